package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	envIMAPHost = "MAILSYNC_IMAP_HOST"
	envIMAPPort = "MAILSYNC_IMAP_PORT"
	envIMAPUser = "MAILSYNC_IMAP_USER"
	envIMAPPass = "MAILSYNC_IMAP_PASS"
)

// Security modes for the IMAP transport.
const (
	SecurityTLS      = "tls"
	SecurityStartTLS = "starttls"
	SecurityNone     = "none"
)

const (
	DefaultBatchSize         = 100
	MinBatchSize             = 10
	MaxBatchSize             = 1000
	DefaultMaxAttachmentSize = 10 * 1024 * 1024
	DefaultCheckpointPath    = "mailsync.checkpoint.json"
)

// DefaultExcludeFolders are never synced unless the exclusion list is
// overridden in the config file.
var DefaultExcludeFolders = []string{"Trash", "Spam", "Drafts"}

// DefaultAttachmentTypes is the extension allow-list applied when the config
// file does not set one.
var DefaultAttachmentTypes = []string{".pdf", ".doc", ".docx", ".txt"}

// Config holds non-secret configuration loaded from YAML.
type Config struct {
	Server      Server      `yaml:"server"`
	Sync        Sync        `yaml:"sync"`
	Attachments Attachments `yaml:"attachments"`
	Checkpoint  Checkpoint  `yaml:"checkpoint"`
}

// Server describes the IMAP endpoint and transport security.
type Server struct {
	Security    string        `yaml:"security"`
	VerifyCert  *bool         `yaml:"verify_cert"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// Sync configures folder selection and batching.
type Sync struct {
	Folders        []string `yaml:"folders"`
	ExcludeFolders []string `yaml:"exclude_folders"`
	BatchSize      int      `yaml:"batch_size"`
}

// Attachments bounds what attachment content is extracted.
type Attachments struct {
	MaxSizeBytes int64    `yaml:"max_size_bytes"`
	AllowedTypes []string `yaml:"allowed_types"`
}

// Checkpoint configures checkpoint storage for the CLI.
type Checkpoint struct {
	Path string `yaml:"path"`
	S3   *S3    `yaml:"s3"`
}

// S3 selects the S3-backed checkpoint store.
type S3 struct {
	Bucket   string `yaml:"bucket"`
	Key      string `yaml:"key"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// IMAPEnv holds the IMAP connection details from environment variables.
type IMAPEnv struct {
	Host string
	Port int
	User string
	Pass string
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	return ApplyDefaults(cfg), nil
}

// ApplyDefaults fills unset fields with their documented defaults.
func ApplyDefaults(cfg Config) Config {
	if cfg.Server.Security == "" {
		cfg.Server.Security = SecurityTLS
	}
	if cfg.Server.DialTimeout <= 0 {
		cfg.Server.DialTimeout = 30 * time.Second
	}
	if len(cfg.Sync.Folders) == 0 {
		cfg.Sync.Folders = []string{"INBOX"}
	}
	if cfg.Sync.ExcludeFolders == nil {
		cfg.Sync.ExcludeFolders = append([]string(nil), DefaultExcludeFolders...)
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = DefaultBatchSize
	}
	if cfg.Attachments.MaxSizeBytes == 0 {
		cfg.Attachments.MaxSizeBytes = DefaultMaxAttachmentSize
	}
	if len(cfg.Attachments.AllowedTypes) == 0 {
		cfg.Attachments.AllowedTypes = append([]string(nil), DefaultAttachmentTypes...)
	}
	if cfg.Checkpoint.Path == "" && cfg.Checkpoint.S3 == nil {
		cfg.Checkpoint.Path = DefaultCheckpointPath
	}
	return cfg
}

// Validate performs basic validation on non-secret config. Errors here are
// surfaced before any network activity.
func Validate(cfg Config) error {
	switch cfg.Server.Security {
	case SecurityTLS, SecurityStartTLS, SecurityNone:
	default:
		return fmt.Errorf("server.security must be one of %q, %q or %q", SecurityTLS, SecurityStartTLS, SecurityNone)
	}

	if cfg.Sync.BatchSize < MinBatchSize || cfg.Sync.BatchSize > MaxBatchSize {
		return fmt.Errorf("sync.batch_size must be between %d and %d", MinBatchSize, MaxBatchSize)
	}

	if len(cfg.Sync.Folders) == 0 {
		return errors.New("sync.folders must list at least one folder")
	}
	for _, folder := range cfg.Sync.Folders {
		if strings.TrimSpace(folder) == "" {
			return errors.New("sync.folders must not contain blank entries")
		}
	}

	if cfg.Attachments.MaxSizeBytes < 0 {
		return errors.New("attachments.max_size_bytes must not be negative")
	}
	for _, ext := range cfg.Attachments.AllowedTypes {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("attachments.allowed_types entry %q must start with a dot", ext)
		}
	}

	if cfg.Checkpoint.S3 != nil {
		if strings.TrimSpace(cfg.Checkpoint.S3.Bucket) == "" {
			return errors.New("checkpoint.s3.bucket is required when checkpoint.s3 is set")
		}
		if strings.TrimSpace(cfg.Checkpoint.S3.Key) == "" {
			return errors.New("checkpoint.s3.key is required when checkpoint.s3 is set")
		}
	}

	return nil
}

// IMAPEnvFromEnv loads IMAP connection details and validates required entries.
func IMAPEnvFromEnv() (IMAPEnv, error) {
	missing := []string{}

	host := strings.TrimSpace(os.Getenv(envIMAPHost))
	if host == "" {
		missing = append(missing, envIMAPHost)
	}

	user := strings.TrimSpace(os.Getenv(envIMAPUser))
	if user == "" {
		missing = append(missing, envIMAPUser)
	}

	pass := strings.TrimSpace(os.Getenv(envIMAPPass))
	if pass == "" {
		missing = append(missing, envIMAPPass)
	}

	if len(missing) > 0 {
		return IMAPEnv{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	port := 993
	if portRaw := strings.TrimSpace(os.Getenv(envIMAPPort)); portRaw != "" {
		parsed, err := strconv.Atoi(portRaw)
		if err != nil {
			return IMAPEnv{}, fmt.Errorf("invalid %s: %w", envIMAPPort, err)
		}
		port = parsed
	}

	if port < 1 || port > 65535 {
		return IMAPEnv{}, fmt.Errorf("invalid %s: port must be between 1 and 65535", envIMAPPort)
	}

	return IMAPEnv{
		Host: host,
		Port: port,
		User: user,
		Pass: pass,
	}, nil
}

// Summary returns a concise config summary for validation runs.
func Summary(cfg Config) string {
	checkpointTarget := defaultIfEmpty(cfg.Checkpoint.Path, "(not set)")
	if cfg.Checkpoint.S3 != nil {
		checkpointTarget = fmt.Sprintf("s3://%s/%s", cfg.Checkpoint.S3.Bucket, cfg.Checkpoint.S3.Key)
	}
	return fmt.Sprintf(
		"Config summary\n"+
			"- folders: %s\n"+
			"- excluded: %s\n"+
			"- batch size: %d\n"+
			"- checkpoint: %s",
		strings.Join(cfg.Sync.Folders, ", "),
		strings.Join(cfg.Sync.ExcludeFolders, ", "),
		cfg.Sync.BatchSize,
		checkpointTarget,
	)
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
