package checkpoint

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func skipIfNoGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func TestEnsureGitRepo_InitializesOnce(t *testing.T) {
	skipIfNoGit(t)
	dir := t.TempDir()
	require.NoError(t, EnsureGitRepo(dir))
	_, err := os.Stat(filepath.Join(dir, ".git"))
	require.NoError(t, err)

	// Calling again must not error or reinitialize.
	require.NoError(t, EnsureGitRepo(dir))
}

func TestCheckpointAndResetHard_RestoresFileContent(t *testing.T) {
	skipIfNoGit(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(file, []byte("v1"), 0o644))

	commit, err := Checkpoint(dir, "v1")
	require.NoError(t, err)
	require.NotEmpty(t, commit)

	require.NoError(t, os.WriteFile(file, []byte("v2-mutated"), 0o644))
	require.NoError(t, ResetHard(dir, commit))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, "v1", string(data))
}

func TestResetHard_RemovesUntrackedFiles(t *testing.T) {
	skipIfNoGit(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.txt"), []byte("base"), 0o644))
	commit, err := Checkpoint(dir, "base")
	require.NoError(t, err)

	newFile := filepath.Join(dir, "untracked.txt")
	require.NoError(t, os.WriteFile(newFile, []byte("new"), 0o644))
	require.NoError(t, ResetHard(dir, commit))

	_, err = os.Stat(newFile)
	require.True(t, os.IsNotExist(err))
}

func TestCurrentCommit_EmptyWhenNotARepo(t *testing.T) {
	dir := t.TempDir()
	require.Equal(t, "", CurrentCommit(dir))
}

func TestSnapshotAndRestoreSqliteFiles(t *testing.T) {
	dir := t.TempDir()
	dbPath := "data.db"
	full := filepath.Join(dir, dbPath)
	require.NoError(t, os.WriteFile(full, []byte("state-1"), 0o644))

	targets := []SqliteTarget{{Name: "main", Path: dbPath}}
	_, err := SnapshotSqliteFiles(dir, targets, "cp1")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(full, []byte("state-2"), 0o644))
	require.NoError(t, RestoreSqliteFiles(dir, targets, "cp1"))

	data, err := os.ReadFile(full)
	require.NoError(t, err)
	require.Equal(t, "state-1", string(data))
}

func TestSnapshotSqliteFiles_SkipsMissingDB(t *testing.T) {
	dir := t.TempDir()
	targets := []SqliteTarget{{Name: "ghost", Path: "missing.db"}}
	created, err := SnapshotSqliteFiles(dir, targets, "cp1")
	require.NoError(t, err)
	require.Empty(t, created)
}

func TestCleanupSqliteSnaps_KeepsOnlyMostRecent(t *testing.T) {
	dir := t.TempDir()
	dbPath := "data.db"
	full := filepath.Join(dir, dbPath)
	require.NoError(t, os.WriteFile(full, []byte("v"), 0o644))
	targets := []SqliteTarget{{Name: "main", Path: dbPath}}

	for _, id := range []string{"cp1", "cp2", "cp3"} {
		_, err := SnapshotSqliteFiles(dir, targets, id)
		require.NoError(t, err)
	}
	CleanupSqliteSnaps(dir, targets, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	snapCount := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".db" {
			snapCount++
		}
	}
	require.Equal(t, 1, snapCount)
}
