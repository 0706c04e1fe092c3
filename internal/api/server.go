// Package api exposes the connector admin surface: connection testing,
// folder discovery and background sync management.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/driftlock/mailsync/internal/checkpointstore"
	"github.com/driftlock/mailsync/internal/connector"
)

// ConnectorFactory builds a connector for one request. Swappable in tests.
type ConnectorFactory func(req ConnectRequest, logger *slog.Logger) (*connector.Connector, error)

type Server struct {
	app     *fiber.App
	logger  *slog.Logger
	store   checkpointstore.Store
	factory ConnectorFactory

	mu     sync.Mutex
	jobs   map[string]*syncJob
	jobSeq atomic.Uint64
}

type ServerOption func(*Server)

func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithStore(store checkpointstore.Store) ServerOption {
	return func(s *Server) {
		s.store = store
	}
}

func WithConnectorFactory(factory ConnectorFactory) ServerOption {
	return func(s *Server) {
		s.factory = factory
	}
}

func NewServer(opts ...ServerOption) (*Server, error) {
	s := &Server{
		jobs:    make(map[string]*syncJob),
		factory: buildConnector,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		return nil, errors.New("requires logger")
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "mailsync",
		DisableStartupMessage: true,
	})
	s.app.Use(otelfiber.Middleware())

	group := s.app.Group("/api/connector/imap")
	group.Post("/test", s.handleTest)
	group.Post("/folders", s.handleFolders)
	group.Get("/presets", s.handlePresets)
	group.Post("/estimate", s.handleEstimate)
	group.Post("/sync/start", s.handleSyncStart)
	group.Get("/sync/status/:id", s.handleSyncStatus)
	group.Post("/sync/stop/:id", s.handleSyncStop)

	return s, nil
}

// App exposes the fiber app, primarily for app.Test in handler tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("admin api listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	s.mu.Lock()
	for _, job := range s.jobs {
		job.cancel()
	}
	s.mu.Unlock()
	return s.app.Shutdown()
}

// syncJob is one background sync run and its observable status.
type syncJob struct {
	cancel context.CancelFunc

	mu     sync.Mutex
	status SyncStatus
}

func (j *syncJob) snapshot() SyncStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := j.status
	out.Errors = append([]string(nil), j.status.Errors...)
	return out
}

func (j *syncJob) update(fn func(*SyncStatus)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.status)
}

// newJobID is unique per server instance; the timestamp alone would collide
// when two syncs for one host start within the same second.
func (s *Server) newJobID(host string) string {
	return fmt.Sprintf("imap_%s_%d_%d", host, time.Now().Unix(), s.jobSeq.Add(1))
}

func (s *Server) job(id string) (*syncJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	return job, ok
}
