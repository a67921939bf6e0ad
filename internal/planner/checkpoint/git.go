// Package checkpoint implements workdir rollback: git commits for the
// filesystem and file-copy snapshots for SQLite databases. Shells out to
// the git binary via os/exec rather than a library, since reset --hard
// plus clean -fd is simplest driven straight through the CLI.
package checkpoint

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

func run(args []string, dir string) (string, string, error) {
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// EnsureGitRepo makes workdir a git repository if it is not already
// one, committing an initial (possibly empty) checkpoint.
func EnsureGitRepo(workdir string) error {
	wd, err := filepath.Abs(workdir)
	if err != nil {
		return fmt.Errorf("checkpoint: resolve workdir: %w", err)
	}
	if err := os.MkdirAll(wd, 0o755); err != nil {
		return fmt.Errorf("checkpoint: mkdir workdir: %w", err)
	}

	if _, statErr := os.Stat(filepath.Join(wd, ".git")); statErr == nil {
		return nil
	}

	if _, stderr, err := run([]string{"git", "init"}, wd); err != nil {
		return fmt.Errorf("checkpoint: git init failed: %s", strings.TrimSpace(stderr))
	}
	run([]string{"git", "config", "user.email", "rfsn@local"}, wd)
	run([]string{"git", "config", "user.name", "RFSN Planner"}, wd)
	run([]string{"git", "add", "-A"}, wd)
	run([]string{"git", "commit", "-m", "checkpoint:init", "--allow-empty"}, wd)
	return nil
}

// Checkpoint commits the current workdir state under label and
// returns the resulting commit hash.
func Checkpoint(workdir, label string) (string, error) {
	wd, err := filepath.Abs(workdir)
	if err != nil {
		return "", fmt.Errorf("checkpoint: resolve workdir: %w", err)
	}
	if err := EnsureGitRepo(wd); err != nil {
		return "", err
	}

	run([]string{"git", "add", "-A"}, wd)
	run([]string{"git", "commit", "-m", "checkpoint:" + label, "--allow-empty"}, wd)

	stdout, stderr, err := run([]string{"git", "rev-parse", "HEAD"}, wd)
	if err != nil {
		return "", fmt.Errorf("checkpoint: git rev-parse failed: %s", strings.TrimSpace(stderr))
	}
	return strings.TrimSpace(stdout), nil
}

// ResetHard resets workdir to commit and removes untracked files
// created since the checkpoint.
func ResetHard(workdir, commit string) error {
	wd, err := filepath.Abs(workdir)
	if err != nil {
		return fmt.Errorf("checkpoint: resolve workdir: %w", err)
	}
	if err := EnsureGitRepo(wd); err != nil {
		return err
	}

	if _, stderr, err := run([]string{"git", "reset", "--hard", commit}, wd); err != nil {
		return fmt.Errorf("checkpoint: git reset --hard failed: %s", strings.TrimSpace(stderr))
	}
	if _, stderr, err := run([]string{"git", "clean", "-fd"}, wd); err != nil {
		return fmt.Errorf("checkpoint: git clean -fd failed: %s", strings.TrimSpace(stderr))
	}
	return nil
}

// CurrentCommit returns the workdir's HEAD commit, or "" if it is not
// a git repository.
func CurrentCommit(workdir string) string {
	wd, err := filepath.Abs(workdir)
	if err != nil {
		return ""
	}
	if _, statErr := os.Stat(filepath.Join(wd, ".git")); statErr != nil {
		return ""
	}
	stdout, _, err := run([]string{"git", "rev-parse", "HEAD"}, wd)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(stdout)
}
