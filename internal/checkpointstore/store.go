package checkpointstore

import (
	"context"

	"github.com/driftlock/mailsync/internal/config"
	"github.com/driftlock/mailsync/internal/connector"
)

//go:generate mockgen -destination=../../pkg/mock/mockcheckpointstore.go -package=mock github.com/driftlock/mailsync/internal/checkpointstore Store

// Store persists sync checkpoints between runs. Load reports found=false when
// no checkpoint has been saved yet, which callers treat as a first sync.
type Store interface {
	Load(ctx context.Context) (cp connector.Checkpoint, found bool, err error)
	Save(ctx context.Context, cp connector.Checkpoint) error
}

// FromConfig picks the backend: S3 when configured, the local file otherwise.
func FromConfig(cfg config.Checkpoint) (Store, error) {
	if cfg.S3 != nil {
		return NewS3Store(cfg.S3)
	}
	return NewFileStore(cfg.Path)
}
