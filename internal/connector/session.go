package connector

import (
	"crypto/tls"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/pkg/errors"

	"github.com/driftlock/mailsync/internal/config"
)

// Session owns the single pooled IMAP connection of a connector instance.
// It is not safe for concurrent use; IMAP sessions cannot be multiplexed.
type Session struct {
	addr        string
	username    string
	password    string
	security    string
	tlsConfig   *tls.Config
	dialTimeout time.Duration
	logger      *slog.Logger

	dial   func() (*imapclient.Client, error)
	client *imapclient.Client

	// generation increments whenever the underlying connection is replaced,
	// so callers can tell their selected-folder state is gone.
	generation uint64
}

type SessionOption func(*Session)

func WithSessionAddr(addr string) SessionOption {
	return func(s *Session) {
		s.addr = addr
	}
}

func WithSessionCreds(username, password string) SessionOption {
	return func(s *Session) {
		s.username = username
		s.password = password
	}
}

func WithSessionSecurity(security string) SessionOption {
	return func(s *Session) {
		s.security = security
	}
}

func WithSessionTLSConfig(tlsConfig *tls.Config) SessionOption {
	return func(s *Session) {
		s.tlsConfig = tlsConfig
	}
}

func WithSessionDialTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) {
		if timeout > 0 {
			s.dialTimeout = timeout
		}
	}
}

func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// withSessionDialer overrides the dial function, primarily for tests.
func withSessionDialer(dial func() (*imapclient.Client, error)) SessionOption {
	return func(s *Session) {
		s.dial = dial
	}
}

func NewSession(opts ...SessionOption) (*Session, error) {
	s := &Session{
		security:    config.SecurityTLS,
		dialTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	if strings.TrimSpace(s.addr) == "" {
		return nil, errors.New("requires server address")
	}
	if strings.TrimSpace(s.username) == "" || strings.TrimSpace(s.password) == "" {
		return nil, errors.New("requires credentials")
	}
	if s.logger == nil {
		return nil, errors.New("requires logger")
	}
	if s.dial == nil {
		s.dial = s.dialServer
	}

	return s, nil
}

// Client returns a live, authenticated client. A pooled connection is probed
// with NOOP first; a dead one is discarded and replaced transparently, so the
// caller only ever observes added latency.
func (s *Session) Client() (*imapclient.Client, error) {
	if s.client != nil {
		if err := s.client.Noop().Wait(); err == nil {
			return s.client, nil
		}
		s.logger.Warn("pooled connection failed liveness probe, reconnecting", "addr", s.addr)
		_ = s.client.Close()
		s.client = nil
	}

	client, err := s.connect()
	if err != nil {
		return nil, err
	}
	s.client = client
	s.generation++
	return s.client, nil
}

// Generation identifies the current underlying connection. Folder selection
// does not survive a generation change.
func (s *Session) Generation() uint64 {
	return s.generation
}

func (s *Session) connect() (*imapclient.Client, error) {
	client, err := s.dial()
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}

	if err := client.Login(s.username, s.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &AuthenticationError{Err: err}
	}

	s.logger.Debug("imap login ok", "addr", s.addr, "user", s.username)
	return client, nil
}

func (s *Session) dialServer() (*imapclient.Client, error) {
	options := &imapclient.Options{
		TLSConfig: s.tlsConfig,
		Dialer:    &net.Dialer{Timeout: s.dialTimeout},
	}

	switch s.security {
	case config.SecurityTLS:
		return imapclient.DialTLS(s.addr, options)
	case config.SecurityStartTLS:
		return imapclient.DialStartTLS(s.addr, options)
	case config.SecurityNone:
		return imapclient.DialInsecure(s.addr, options)
	default:
		return nil, errors.Errorf("unknown security mode %q", s.security)
	}
}

// Close logs out the pooled connection. Errors are logged, never escalated;
// it is safe to call when no connection was ever established.
func (s *Session) Close() error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Logout().Wait(); err != nil {
		s.logger.Warn("imap logout failed", "addr", s.addr, "error", err)
	}
	s.client = nil
	return nil
}
