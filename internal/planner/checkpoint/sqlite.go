package checkpoint

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// SqliteTarget names a SQLite database file to snapshot/restore
// around plan execution.
type SqliteTarget struct {
	Name string
	Path string // absolute, or relative to workdir
}

func resolve(workdir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	wd, _ := filepath.Abs(workdir)
	return filepath.Join(wd, p)
}

func snapPath(dbPath, checkpointID string) string {
	return dbPath + ".rfsn_snap." + checkpointID
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// SnapshotSqliteFiles copies each target's current file to
// <path>.rfsn_snap.<checkpointID>, skipping targets that don't exist
// yet. Returns the snapshot paths created.
func SnapshotSqliteFiles(workdir string, targets []SqliteTarget, checkpointID string) ([]string, error) {
	var created []string
	for _, t := range targets {
		db := resolve(workdir, t.Path)
		if _, err := os.Stat(db); err != nil {
			continue
		}
		snap := snapPath(db, checkpointID)
		if err := copyFile(db, snap); err != nil {
			return created, fmt.Errorf("checkpoint: snapshot %s: %w", t.Name, err)
		}
		created = append(created, snap)
	}
	return created, nil
}

// RestoreSqliteFiles copies each target's snapshot back over its live
// file. Missing snapshots are skipped.
func RestoreSqliteFiles(workdir string, targets []SqliteTarget, checkpointID string) error {
	for _, t := range targets {
		db := resolve(workdir, t.Path)
		snap := snapPath(db, checkpointID)
		if _, err := os.Stat(snap); err != nil {
			continue
		}
		if err := copyFile(snap, db); err != nil {
			return fmt.Errorf("checkpoint: restore %s: %w", t.Name, err)
		}
	}
	return nil
}

// CleanupSqliteSnaps keeps only the keepLast most recent snapshots
// per database, deleting the rest. keepLast<0 means keep all.
func CleanupSqliteSnaps(workdir string, targets []SqliteTarget, keepLast int) {
	if keepLast < 0 {
		return
	}
	for _, t := range targets {
		db := resolve(workdir, t.Path)
		dir := filepath.Dir(db)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		prefix := filepath.Base(db) + ".rfsn_snap."
		type snapInfo struct {
			path    string
			modTime int64
		}
		var snaps []snapInfo
		for _, e := range entries {
			if e.IsDir() || len(e.Name()) <= len(prefix) || e.Name()[:len(prefix)] != prefix {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			snaps = append(snaps, snapInfo{path: filepath.Join(dir, e.Name()), modTime: info.ModTime().UnixNano()})
		}
		sort.Slice(snaps, func(i, j int) bool { return snaps[i].modTime > snaps[j].modTime })
		for _, s := range snaps[min(keepLast, len(snaps)):] {
			os.Remove(s.path)
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
