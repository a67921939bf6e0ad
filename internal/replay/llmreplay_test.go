package replay

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func fixedClock() func() string {
	return func() string { return "2026-01-01T00:00:00Z" }
}

func TestReplayRecorderAndPlayer_Sequential(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm.jsonl")

	rec, err := NewReplayRecorder(path, "", true)
	require.NoError(t, err)
	require.NoError(t, rec.Record("sys", "hello", "gpt", "world", 12.5, nil, fixedClock()))
	require.NoError(t, rec.Record("sys", "second", "gpt", "response-two", 8.0, nil, fixedClock()))
	require.Equal(t, 2, rec.Count())

	player, err := NewReplayPlayer(path, MatchSequential, "", false, false)
	require.NoError(t, err)
	require.Equal(t, 2, player.Count())

	resp, ok := player.Get("", "", "")
	require.True(t, ok)
	require.Equal(t, "world", resp)

	resp, ok = player.Get("", "", "")
	require.True(t, ok)
	require.Equal(t, "response-two", resp)

	_, ok = player.Get("", "", "")
	require.False(t, ok)
}

func TestReplayPlayer_HashMatching(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm.jsonl")
	rec, err := NewReplayRecorder(path, "", true)
	require.NoError(t, err)
	require.NoError(t, rec.Record("sys-a", "q1", "gpt", "answer-a", 1, nil, fixedClock()))
	require.NoError(t, rec.Record("sys-b", "q2", "gpt", "answer-b", 1, nil, fixedClock()))

	player, err := NewReplayPlayer(path, MatchHash, "", false, false)
	require.NoError(t, err)

	resp, ok := player.Get("sys-b", "q2", "gpt")
	require.True(t, ok)
	require.Equal(t, "answer-b", resp)

	resp, ok = player.Get("sys-a", "q1", "gpt")
	require.True(t, ok)
	require.Equal(t, "answer-a", resp)
}

func TestReplayRecorder_HMACIntegrityDetectsTamper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm.jsonl")
	rec, err := NewReplayRecorder(path, "topsecret", true)
	require.NoError(t, err)
	require.NoError(t, rec.Record("sys", "hi", "gpt", "resp", 1, nil, fixedClock()))

	ok, errs := VerifyReplayFile(path, "topsecret")
	require.True(t, ok)
	require.Empty(t, errs)

	// Tamper: replace the response substring directly in the file.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(data), `"response":"resp"`, `"response":"hacked"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0o644))

	ok, errs = VerifyReplayFile(path, "topsecret")
	require.False(t, ok)
	require.NotEmpty(t, errs)
}

func TestReplayRecorder_ChainHashLinksEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm.jsonl")
	rec, err := NewReplayRecorder(path, "", true)
	require.NoError(t, err)
	require.NoError(t, rec.Record("s", "u1", "m", "r1", 1, nil, fixedClock()))
	require.NoError(t, rec.Record("s", "u2", "m", "r2", 1, nil, fixedClock()))

	ok, errs := VerifyReplayFile(path, "")
	require.True(t, ok)
	require.Empty(t, errs)
}

func TestContext_ReplayFallsThroughToLiveOnMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm.jsonl")
	ctx, err := NewContext(ModeReplay, path, MatchSequential, "", false)
	require.NoError(t, err)

	called := false
	resp, err := ctx.Intercept("s", "u", "m", func(system, user, model string) (string, error) {
		called = true
		return "live-response", nil
	})
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, "live-response", resp)
}

func TestContext_RecordModeWritesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm.jsonl")
	ctx, err := NewContext(ModeRecord, path, MatchSequential, "", false)
	require.NoError(t, err)

	_, err = ctx.Intercept("s", "u", "m", func(system, user, model string) (string, error) {
		return "recorded", nil
	})
	require.NoError(t, err)

	player, err := NewReplayPlayer(path, MatchSequential, "", false, false)
	require.NoError(t, err)
	require.Equal(t, 1, player.Count())
}
