// Package ledger implements the append-only, hash-chained JSONL ledger
// that records every gated proposal. Each entry's hash covers its own
// content plus the previous entry's hash, so tampering with any entry
// breaks the chain from that point forward.
package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dawsonblock/rfsn-kernel/internal/canon"
	"github.com/dawsonblock/rfsn-kernel/internal/rfsn"
)

// Ledger is an append-only, hash-chained JSONL file. Safe for one writer
// at a time; concurrent readers are tolerated.
type Ledger struct {
	path string
	mu   sync.Mutex
}

// Open returns a Ledger backed by path, creating parent directories as
// needed. It does not truncate an existing file.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ledger: create dir: %w", err)
		}
	}
	return &Ledger{path: path}, nil
}

func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

func (l *Ledger) lastEntryHash() (string, int, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return canon.GenesisHash, 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	var last string
	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		count++
		last = line
	}
	if err := scanner.Err(); err != nil {
		return "", 0, err
	}
	if last == "" {
		return canon.GenesisHash, 0, nil
	}
	var entry rfsn.LedgerEntry
	if err := json.Unmarshal([]byte(last), &entry); err != nil {
		return "", 0, fmt.Errorf("ledger: parse last entry: %w", err)
	}
	return entry.EntryHash, count, nil
}

// Append records a new entry for action's gate decision against snapshot,
// returning the entry that was written. extra is optional free-form
// payload merged into the entry (e.g. execution result summaries).
func (l *Ledger) Append(snapshot rfsn.Snapshot, action rfsn.ProposedAction, decision rfsn.GateDecision, extra map[string]any) (rfsn.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stateHash, err := canon.SHA256JSON(snapshot)
	if err != nil {
		return rfsn.LedgerEntry{}, fmt.Errorf("ledger: hash snapshot: %w", err)
	}
	actionHash, err := canon.SHA256JSON(action)
	if err != nil {
		return rfsn.LedgerEntry{}, fmt.Errorf("ledger: hash action: %w", err)
	}
	prevHash, idx, err := l.lastEntryHash()
	if err != nil {
		return rfsn.LedgerEntry{}, fmt.Errorf("ledger: read tail: %w", err)
	}

	entryCore := map[string]any{
		"idx":             idx,
		"ts_utc":          nowUTC(),
		"state_hash":      stateHash,
		"action_hash":     actionHash,
		"decision":        decision,
		"prev_entry_hash": prevHash,
	}
	if extra != nil {
		entryCore["payload"] = extra
	}

	entryHashBytes, err := canon.JSON(entryCore)
	if err != nil {
		return rfsn.LedgerEntry{}, fmt.Errorf("ledger: canonicalize entry: %w", err)
	}
	entryHash := canon.SHA256Bytes(entryHashBytes)

	entry := rfsn.LedgerEntry{
		Idx:           idx,
		TSUtc:         entryCore["ts_utc"].(string),
		StateHash:     stateHash,
		ActionHash:    actionHash,
		Decision:      decision,
		PrevEntryHash: prevHash,
		EntryHash:     entryHash,
		Payload:       extra,
	}

	line, err := canon.JSON(entry)
	if err != nil {
		return rfsn.LedgerEntry{}, fmt.Errorf("ledger: canonicalize written entry: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return rfsn.LedgerEntry{}, fmt.Errorf("ledger: open for append: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return rfsn.LedgerEntry{}, fmt.Errorf("ledger: write entry: %w", err)
	}

	return entry, nil
}

// ReadTail returns the last n entries, oldest first. n<=0 returns all.
func (l *Ledger) ReadTail(n int) ([]rfsn.LedgerEntry, error) {
	entries, err := l.readAll()
	if err != nil {
		return nil, err
	}
	if n <= 0 || n >= len(entries) {
		return entries, nil
	}
	return entries[len(entries)-n:], nil
}

func (l *Ledger) readAll() ([]rfsn.LedgerEntry, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []rfsn.LedgerEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var entry rfsn.LedgerEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("ledger: parse entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

// VerifyResult is the outcome of a hash-chain verification pass.
type VerifyResult struct {
	OK            bool
	BrokenAtIndex int
	Expected      string
	Actual        string
	Message       string
}

// Verify walks the full ledger and confirms every entry's hash chains
// correctly from genesis. It uses the same canonical encoding Append
// uses, so a tampered entry or a broken prev_entry_hash link is detected
// at the first point of divergence.
func (l *Ledger) Verify() (VerifyResult, error) {
	entries, err := l.readAll()
	if err != nil {
		return VerifyResult{}, err
	}
	prev := canon.GenesisHash
	for i, e := range entries {
		if e.PrevEntryHash != prev {
			return VerifyResult{
				OK: false, BrokenAtIndex: i,
				Expected: prev, Actual: e.PrevEntryHash,
				Message: fmt.Sprintf("broken chain at entry %d: prev_entry_hash mismatch", i),
			}, nil
		}
		entryCore := map[string]any{
			"idx":             e.Idx,
			"ts_utc":          e.TSUtc,
			"state_hash":      e.StateHash,
			"action_hash":     e.ActionHash,
			"decision":        e.Decision,
			"prev_entry_hash": e.PrevEntryHash,
		}
		if e.Payload != nil {
			entryCore["payload"] = e.Payload
		}
		b, err := canon.JSON(entryCore)
		if err != nil {
			return VerifyResult{}, err
		}
		expectedHash := canon.SHA256Bytes(b)
		if expectedHash != e.EntryHash {
			return VerifyResult{
				OK: false, BrokenAtIndex: i,
				Expected: expectedHash, Actual: e.EntryHash,
				Message: fmt.Sprintf("broken hash at entry %d: entry_hash mismatch", i),
			}, nil
		}
		prev = e.EntryHash
	}
	return VerifyResult{OK: true, Message: "OK"}, nil
}
