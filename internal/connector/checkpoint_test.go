package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	cp := NewCheckpoint()
	cp.Folders["INBOX"] = FolderState{LastUID: 42, UIDValidity: 7, Done: true}
	cp.Folders["Archive"] = FolderState{LastUID: 3, UIDValidity: 9}
	cp.HasMore = false

	raw, err := cp.Encode()
	require.NoError(t, err)

	decoded, err := DecodeCheckpoint(raw)
	require.NoError(t, err)

	assert.Equal(t, cp.Folders, decoded.Folders)
	assert.Equal(t, cp.HasMore, decoded.HasMore)
}

func TestDecodeCheckpointRejectsGarbage(t *testing.T) {
	_, err := DecodeCheckpoint([]byte("not json"))
	assert.Error(t, err)
}

func TestCheckpointCloneIsIndependent(t *testing.T) {
	cp := NewCheckpoint()
	cp.Folders["INBOX"] = FolderState{LastUID: 5}

	clone := cp.Clone()
	clone.Folders["INBOX"] = FolderState{LastUID: 99}

	assert.Equal(t, uint32(5), cp.Folders["INBOX"].LastUID)
}

func TestNewCheckpointStartsWithMore(t *testing.T) {
	cp := NewCheckpoint()
	assert.True(t, cp.HasMore)
	assert.Empty(t, cp.Folders)
}
