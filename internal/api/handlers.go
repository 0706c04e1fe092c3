package api

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/driftlock/mailsync/internal/config"
	"github.com/driftlock/mailsync/internal/connector"
)

// ConnectRequest carries the full connector configuration for a single API
// call. The admin UI sends credentials with every request; nothing is stored
// server-side.
type ConnectRequest struct {
	Server            string   `json:"server"`
	Port              int      `json:"port"`
	Security          string   `json:"security"`
	Username          string   `json:"username"`
	Password          string   `json:"password"`
	Folders           []string `json:"folders"`
	ExcludeFolders    []string `json:"exclude_folders"`
	BatchSize         int      `json:"batch_size"`
	MaxAttachmentSize int64    `json:"max_attachment_size"`
	AttachmentTypes   []string `json:"attachment_types"`
}

type TestResult struct {
	Success    bool                  `json:"success"`
	Message    string                `json:"message"`
	ServerInfo *connector.ServerInfo `json:"server_info,omitempty"`
}

type FoldersResult struct {
	AllFolders         []string `json:"all_folders"`
	SystemFolders      []string `json:"system_folders"`
	CustomFolders      []string `json:"custom_folders"`
	RecommendedSync    []string `json:"recommended_sync"`
	RecommendedExclude []string `json:"recommended_exclude"`
}

type SyncStatus struct {
	IsSyncing       bool       `json:"is_syncing"`
	Progress        float64    `json:"progress"`
	CurrentFolder   string     `json:"current_folder,omitempty"`
	ProcessedEmails int        `json:"processed_emails"`
	TotalEmails     int        `json:"total_emails"`
	Errors          []string   `json:"errors"`
	LastSyncTime    *time.Time `json:"last_sync_time,omitempty"`
}

// commonFolders is the conventional well-known set used to split a server's
// listing into system and custom folders.
var commonFolders = []string{"INBOX", "Sent", "Drafts", "Trash", "Spam"}

// buildConnector is the default ConnectorFactory.
func buildConnector(req ConnectRequest, logger *slog.Logger) (*connector.Connector, error) {
	cfg := config.ApplyDefaults(config.Config{
		Server: config.Server{Security: req.Security},
		Sync: config.Sync{
			Folders:        req.Folders,
			ExcludeFolders: req.ExcludeFolders,
			BatchSize:      req.BatchSize,
		},
		Attachments: config.Attachments{
			MaxSizeBytes: req.MaxAttachmentSize,
			AllowedTypes: req.AttachmentTypes,
		},
	})
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	port := req.Port
	if port == 0 {
		port = 993
	}

	return connector.New(
		connector.WithConfig(cfg),
		connector.WithCredentials(config.IMAPEnv{
			Host: req.Server,
			Port: port,
			User: req.Username,
			Pass: req.Password,
		}),
		connector.WithLogger(logger),
	)
}

func (s *Server) handleTest(c *fiber.Ctx) error {
	var req ConnectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	conn, err := s.factory(req, s.logger)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	defer conn.Close() //nolint:errcheck

	info, err := conn.TestConnection(c.UserContext())
	if err != nil {
		s.logger.Warn("connection test failed", "server", req.Server, "error", err)
		return c.JSON(TestResult{
			Success: false,
			Message: fmt.Sprintf("connection failed: %v", err),
		})
	}

	return c.JSON(TestResult{
		Success:    true,
		Message:    "connection ok",
		ServerInfo: info,
	})
}

func (s *Server) handleFolders(c *fiber.Ctx) error {
	var req ConnectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	conn, err := s.factory(req, s.logger)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	defer conn.Close() //nolint:errcheck

	all, err := conn.ListFolders(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	result := FoldersResult{
		AllFolders:         all,
		RecommendedSync:    []string{"INBOX", "Sent"},
		RecommendedExclude: append([]string(nil), config.DefaultExcludeFolders...),
	}
	for _, folder := range all {
		if slices.Contains(commonFolders, folder) {
			result.SystemFolders = append(result.SystemFolders, folder)
		} else {
			result.CustomFolders = append(result.CustomFolders, folder)
		}
	}

	return c.JSON(result)
}

func (s *Server) handlePresets(c *fiber.Ctx) error {
	return c.JSON(config.Presets())
}

func (s *Server) handleEstimate(c *fiber.Ctx) error {
	var req struct {
		EmailCount int `json:"email_count"`
		BatchSize  int `json:"batch_size"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.BatchSize <= 0 {
		req.BatchSize = config.DefaultBatchSize
	}

	return c.JSON(EstimateSync(req.EmailCount, req.BatchSize))
}

func (s *Server) handleSyncStart(c *fiber.Ctx) error {
	var req ConnectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	conn, err := s.factory(req, s.logger)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	id := s.newJobID(req.Server)
	ctx, cancel := context.WithCancel(context.Background())
	job := &syncJob{
		cancel: cancel,
		status: SyncStatus{IsSyncing: true, Errors: []string{}},
	}

	s.mu.Lock()
	s.jobs[id] = job
	s.mu.Unlock()

	go s.runSync(ctx, id, job, conn)

	return c.JSON(fiber.Map{
		"success":      true,
		"message":      "sync started",
		"connector_id": id,
	})
}

func (s *Server) handleSyncStatus(c *fiber.Ctx) error {
	job, ok := s.job(c.Params("id"))
	if !ok {
		return c.JSON(SyncStatus{IsSyncing: false, Errors: []string{}})
	}
	return c.JSON(job.snapshot())
}

func (s *Server) handleSyncStop(c *fiber.Ctx) error {
	job, ok := s.job(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no such sync job")
	}

	job.cancel()
	job.update(func(st *SyncStatus) {
		st.IsSyncing = false
	})
	return c.JSON(fiber.Map{"success": true, "message": "sync stopped"})
}

// runSync drives a full sync in the background, mirroring progress into the
// job status and persisting the checkpoint after every consumed batch.
func (s *Server) runSync(ctx context.Context, id string, job *syncJob, conn *connector.Connector) {
	defer conn.Close() //nolint:errcheck

	cp := connector.NewCheckpoint()
	if s.store != nil {
		loaded, found, err := s.store.Load(ctx)
		if err != nil {
			s.logger.Warn("checkpoint load failed, starting fresh", "job", id, "error", err)
		} else if found {
			cp = loaded
		}
	}

	total := 0
	if folders, err := conn.ResolvedFolders(ctx); err == nil {
		if count, err := conn.CountMessages(ctx, folders); err == nil {
			total = int(count)
		}
	}
	job.update(func(st *SyncStatus) {
		st.TotalEmails = total
	})

	run := conn.FullSync(ctx, cp)
	processed := 0
	for run.Next() {
		batch := run.Batch()
		processed += len(batch.Documents)

		job.update(func(st *SyncStatus) {
			st.CurrentFolder = batch.Folder
			st.ProcessedEmails = processed
			if total > 0 {
				st.Progress = float64(processed) / float64(total)
			}
		})

		if s.store != nil {
			if err := s.store.Save(ctx, run.Checkpoint()); err != nil {
				s.logger.Warn("checkpoint save failed", "job", id, "error", err)
			}
		}
	}

	if s.store != nil {
		if err := s.store.Save(context.WithoutCancel(ctx), run.Checkpoint()); err != nil {
			s.logger.Warn("final checkpoint save failed", "job", id, "error", err)
		}
	}

	job.update(func(st *SyncStatus) {
		st.IsSyncing = false
		st.CurrentFolder = ""
		if err := run.Err(); err != nil {
			st.Errors = append(st.Errors, err.Error())
		} else {
			st.Progress = 1.0
		}
		now := time.Now().UTC()
		st.LastSyncTime = &now
	})

	s.logger.Info("sync finished", "job", id, "processed", processed, "error", run.Err())
}
