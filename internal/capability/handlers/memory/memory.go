// Package memory implements the memory_store/retrieve/search/delete
// capability handlers over a shared modernc.org/sqlite key-value table,
// the same pure-Go driver the outcome store uses.
package memory

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/dawsonblock/rfsn-kernel/internal/capability"
)

const schema = `
CREATE TABLE IF NOT EXISTS memory (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	ts_utc TEXT NOT NULL
);
`

// Store is a session-scoped key/value memory table.
type Store struct {
	mu   sync.Mutex
	conn *sql.DB
}

func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("memory: open: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("memory: init schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error { return s.conn.Close() }

func (s *Store) set(key, value, tsUTC string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Exec(
		`INSERT INTO memory(key, value, ts_utc) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, ts_utc=excluded.ts_utc`,
		key, value, tsUTC,
	)
	return err
}

func (s *Store) get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var value string
	err := s.conn.QueryRow(`SELECT value FROM memory WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) search(query string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.conn.Query(`SELECT key FROM memory WHERE key LIKE ? OR value LIKE ? LIMIT ?`,
		"%"+query+"%", "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Exec(`DELETE FROM memory WHERE key = ?`, key)
	return err
}

// Handlers binds the capability.Handler functions to one Store instance
// (capability.Handler itself carries no state, so closures are how the
// store is threaded through).
type Handlers struct {
	store *Store
	now   func() string
}

func NewHandlers(store *Store, now func() string) *Handlers {
	return &Handlers{store: store, now: now}
}

func (h *Handlers) Store(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	key, _ := args["key"].(string)
	value, _ := args["value"].(string)
	if err := h.store.set(key, value, h.now()); err != nil {
		return capability.Result{Success: false, Error: "tool:memory_store_failed: " + err.Error()}
	}
	return capability.Result{Success: true, Output: map[string]any{"key": key}}
}

func (h *Handlers) Retrieve(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	key, _ := args["key"].(string)
	value, ok, err := h.store.get(key)
	if err != nil {
		return capability.Result{Success: false, Error: "tool:memory_retrieve_failed: " + err.Error()}
	}
	if !ok {
		return capability.Result{Success: false, Error: "tool:not_found: " + key}
	}
	return capability.Result{Success: true, Output: value}
}

func (h *Handlers) Search(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	query, _ := args["query"].(string)
	limit := 50
	if v, ok := args["limit"].(float64); ok && int(v) > 0 {
		limit = int(v)
	}
	keys, err := h.store.search(query, limit)
	if err != nil {
		return capability.Result{Success: false, Error: "tool:memory_search_failed: " + err.Error()}
	}
	return capability.Result{Success: true, Output: keys}
}

func (h *Handlers) Delete(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	key, _ := args["key"].(string)
	if err := h.store.delete(key); err != nil {
		return capability.Result{Success: false, Error: "tool:memory_delete_failed: " + err.Error()}
	}
	return capability.Result{Success: true, Output: map[string]any{"key": key}}
}
