package cli

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/driftlock/mailsync/internal/config"
	"github.com/driftlock/mailsync/internal/connector"
	"github.com/driftlock/mailsync/internal/telemetry"
)

const configEnvVar = "MAILSYNC_CONFIG"
const defaultEnvFile = ".env"

// resolveConfig loads the YAML config named by --config or MAILSYNC_CONFIG.
// With neither set, the documented defaults apply.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	if strings.TrimSpace(cfgPath) == "" {
		cfgPath = os.Getenv(configEnvVar)
	}

	var cfg config.Config
	if strings.TrimSpace(cfgPath) == "" {
		cfg = config.ApplyDefaults(config.Config{})
	} else {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return config.Config{}, err
		}
	}

	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func loadEnvFile() error {
	if _, err := os.Stat(defaultEnvFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(defaultEnvFile)
}

// newConnector wires config plus environment credentials into a connector.
func newConnector(cfg config.Config, logger *slog.Logger) (*connector.Connector, error) {
	imapEnv, err := config.IMAPEnvFromEnv()
	if err != nil {
		return nil, err
	}

	return connector.New(
		connector.WithConfig(cfg),
		connector.WithCredentials(imapEnv),
		connector.WithLogger(logger),
	)
}

// setup prepares telemetry and returns the logger plus a shutdown hook for
// command teardown.
func setup(ctx context.Context) (*slog.Logger, func(context.Context) error, error) {
	if err := loadEnvFile(); err != nil {
		return nil, nil, err
	}

	shutdown, err := telemetry.SetupOTelSDK(ctx)
	if err != nil {
		return nil, nil, err
	}

	return telemetry.NewLogger(), shutdown, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}
