package connector

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// FolderState is the resumable cursor within one folder. LastUID only moves
// forward for a given UIDValidity; when the server reports a different
// UIDValidity the cursor is stale and the folder restarts from zero.
type FolderState struct {
	LastUID     uint32 `json:"last_uid"`
	UIDValidity uint32 `json:"uidvalidity"`
	Done        bool   `json:"done"`
}

// Checkpoint is the persisted position of a sync. The connector consumes and
// advances it; the caller owns persistence between runs.
type Checkpoint struct {
	Folders map[string]FolderState `json:"folders"`
	HasMore bool                   `json:"has_more"`
}

// NewCheckpoint returns the empty checkpoint used for a first full sync.
func NewCheckpoint() Checkpoint {
	return Checkpoint{
		Folders: map[string]FolderState{},
		HasMore: true,
	}
}

// Clone returns a deep copy so an in-flight run never aliases caller state.
func (c Checkpoint) Clone() Checkpoint {
	out := Checkpoint{
		Folders: make(map[string]FolderState, len(c.Folders)),
		HasMore: c.HasMore,
	}
	for name, state := range c.Folders {
		out.Folders[name] = state
	}
	return out
}

func (c Checkpoint) folder(name string) FolderState {
	if c.Folders == nil {
		return FolderState{}
	}
	return c.Folders[name]
}

func (c *Checkpoint) setFolder(name string, state FolderState) {
	if c.Folders == nil {
		c.Folders = map[string]FolderState{}
	}
	c.Folders[name] = state
}

// Encode serializes the checkpoint for opaque persistence by the caller.
func (c Checkpoint) Encode() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "encode checkpoint")
	}
	return data, nil
}

// DecodeCheckpoint rehydrates a checkpoint previously produced by Encode.
func DecodeCheckpoint(data []byte) (Checkpoint, error) {
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, errors.Wrap(err, "decode checkpoint")
	}
	if cp.Folders == nil {
		cp.Folders = map[string]FolderState{}
	}
	return cp, nil
}
