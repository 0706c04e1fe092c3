package testutil

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	imap "github.com/emersion/go-imap/v2"
)

// SetupLogger sets up a logger that only outputs if the test fails
func SetupLogger(t *testing.T) *slog.Logger {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	t.Cleanup(func() {
		if t.Failed() {
			os.Stdout.Write(buf.Bytes()) //nolint:errcheck
		}
	})

	return logger
}

// StringLiteral adapts a string to imap.LiteralReader for test appends.
type StringLiteral struct {
	*bytes.Reader
	size int64
}

// NewStringLiteral creates a new StringLiteral based on a string.
func NewStringLiteral(s string) *StringLiteral {
	buf := []byte(s)
	return &StringLiteral{
		Reader: bytes.NewReader(buf),
		size:   int64(len(buf)),
	}
}

// Size returns the length of the underlying string.
func (l *StringLiteral) Size() int64 {
	return l.size
}

var _ imap.LiteralReader = (*StringLiteral)(nil)
