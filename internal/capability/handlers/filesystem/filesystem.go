// Package filesystem implements the read_file/write_file/list_dir/
// search_files capability handlers: plain os/filepath boundary code, no
// ecosystem library gap to fill.
package filesystem

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dawsonblock/rfsn-kernel/internal/capability"
)

func ReadFile(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	path, _ := args["path"].(string)
	data, err := os.ReadFile(path)
	if err != nil {
		return capability.Result{Success: false, Error: "tool:read_failed: " + err.Error()}
	}
	return capability.Result{Success: true, Output: string(data)}
}

func WriteFile(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return capability.Result{Success: false, Error: "tool:write_failed: " + err.Error()}
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return capability.Result{Success: false, Error: "tool:write_failed: " + err.Error()}
	}
	return capability.Result{Success: true, Output: map[string]any{"bytes_written": len(content)}}
}

func ListDir(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	directory, _ := args["directory"].(string)
	if directory == "" {
		directory = "."
	}
	entries, err := os.ReadDir(directory)
	if err != nil {
		return capability.Result{Success: false, Error: "tool:list_dir_failed: " + err.Error()}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return capability.Result{Success: true, Output: names}
}

func SearchFiles(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	directory, _ := args["directory"].(string)
	if directory == "" {
		directory = "."
	}
	pattern, _ := args["pattern"].(string)

	var matches []string
	err := filepath.WalkDir(directory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.Contains(d.Name(), pattern) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return capability.Result{Success: false, Error: "tool:search_failed: " + err.Error()}
	}
	return capability.Result{Success: true, Output: matches}
}
