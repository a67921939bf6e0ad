// Package code implements grep_files, apply_diff, and get_symbols: a
// line-oriented regex sweep rather than an AST-level feature. Full
// incremental parsing is overkill for a single symbol-listing
// capability.
package code

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dawsonblock/rfsn-kernel/internal/capability"
)

type Match struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

func GrepFiles(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	directory, _ := args["directory"].(string)
	if directory == "" {
		directory = "."
	}
	pattern, _ := args["pattern"].(string)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return capability.Result{Success: false, Error: "tool:invalid_pattern: " + err.Error()}
	}

	var matches []Match
	const limit = 100
	err = filepath.WalkDir(directory, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || len(matches) >= limit {
			return nil
		}
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			if re.MatchString(scanner.Text()) {
				matches = append(matches, Match{Path: path, Line: lineNo, Text: scanner.Text()})
				if len(matches) >= limit {
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return capability.Result{Success: false, Error: "tool:grep_failed: " + err.Error()}
	}
	return capability.Result{Success: true, Output: matches}
}

func ApplyDiff(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	path, _ := args["path"].(string)
	newContent, _ := args["content"].(string)
	if err := os.WriteFile(path, []byte(newContent), 0o644); err != nil {
		return capability.Result{Success: false, Error: "tool:apply_diff_failed: " + err.Error()}
	}
	return capability.Result{Success: true, Output: map[string]any{"path": path, "bytes_written": len(newContent)}}
}

var symbolPattern = regexp.MustCompile(`^\s*func\s+(\([^)]*\)\s*)?(\w+)|^\s*type\s+(\w+)`)

func GetSymbols(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	path, _ := args["path"].(string)
	f, err := os.Open(path)
	if err != nil {
		return capability.Result{Success: false, Error: "tool:get_symbols_failed: " + err.Error()}
	}
	defer f.Close()

	var symbols []string
	scanner := bufio.NewScanner(f)
	lineNo := 0
	const limit = 100
	for scanner.Scan() && len(symbols) < limit {
		lineNo++
		if m := symbolPattern.FindStringSubmatch(scanner.Text()); m != nil {
			name := m[2]
			if name == "" {
				name = m[3]
			}
			if name != "" {
				symbols = append(symbols, fmt.Sprintf("%s:%d:%s", path, lineNo, strings.TrimSpace(name)))
			}
		}
	}
	return capability.Result{Success: true, Output: symbols}
}
