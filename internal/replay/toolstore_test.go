package replay

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToolStore_RecordThenReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.jsonl")

	rec, err := OpenToolStore(path, ModeRecord)
	require.NoError(t, err)
	require.NoError(t, rec.Put(ToolRecord{
		ActionID: "abc123",
		Tool:     "read_file",
		Args:     map[string]any{"path": "x.txt"},
		OK:       true,
		Summary:  "read 10 bytes",
	}))

	replay, err := OpenToolStore(path, ModeReplay)
	require.NoError(t, err)
	got, ok := replay.Get("abc123")
	require.True(t, ok)
	require.Equal(t, "read_file", got.Tool)
	require.True(t, got.OK)
}

func TestToolStore_OffModeNeverRecordsOrReplays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.jsonl")
	store, err := OpenToolStore(path, ModeOff)
	require.NoError(t, err)
	require.NoError(t, store.Put(ToolRecord{ActionID: "x", Tool: "t"}))

	_, ok := store.Get("x")
	require.False(t, ok)
	require.Equal(t, 0, store.Count())
}

func TestToolStore_ReplayMissReturnsNotOK(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.jsonl")
	store, err := OpenToolStore(path, ModeReplay)
	require.NoError(t, err)
	_, ok := store.Get("nonexistent")
	require.False(t, ok)
}

func TestActionKey_DeterministicForSamePayload(t *testing.T) {
	k1 := ActionKey("tool_call", map[string]any{"tool": "read_file", "path": "a.txt"})
	k2 := ActionKey("tool_call", map[string]any{"path": "a.txt", "tool": "read_file"})
	require.Equal(t, k1, k2)
}

func TestActionKey_DiffersForDifferentPayload(t *testing.T) {
	k1 := ActionKey("tool_call", map[string]any{"tool": "read_file", "path": "a.txt"})
	k2 := ActionKey("tool_call", map[string]any{"tool": "read_file", "path": "b.txt"})
	require.NotEqual(t, k1, k2)
}

func TestInvalidMode_Errors(t *testing.T) {
	_, err := OpenToolStore(filepath.Join(t.TempDir(), "x.jsonl"), Mode("bogus"))
	require.Error(t, err)
}
