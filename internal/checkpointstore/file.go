package checkpointstore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/driftlock/mailsync/internal/connector"
)

// FileStore keeps the checkpoint in a single local JSON file. Writes go
// through a temp file and rename so a crash never leaves a half-written
// checkpoint behind.
type FileStore struct {
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("requires checkpoint path")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Load(_ context.Context) (connector.Checkpoint, bool, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return connector.NewCheckpoint(), false, nil
	}
	if err != nil {
		return connector.Checkpoint{}, false, errors.Wrapf(err, "reading checkpoint %s", s.path)
	}

	cp, err := connector.DecodeCheckpoint(raw)
	if err != nil {
		return connector.Checkpoint{}, false, err
	}
	return cp, true, nil
}

func (s *FileStore) Save(_ context.Context, cp connector.Checkpoint) error {
	raw, err := cp.Encode()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating checkpoint dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return errors.Wrap(err, "creating temp checkpoint")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "writing checkpoint")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "closing checkpoint")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "replacing checkpoint %s", s.path)
	}
	return nil
}
