// Package outcomes is the durable relational store of bandit outcomes:
// every arm pull is recorded with a reward and (optionally) rich
// execution metadata, and the store answers the aggregate queries the
// learner and any reporting surface need.
package outcomes

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schemaV1 = `
CREATE TABLE IF NOT EXISTS outcomes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	context_key TEXT NOT NULL,
	arm_key TEXT NOT NULL,
	reward REAL NOT NULL,
	meta_json TEXT NOT NULL DEFAULT '{}',
	ts_utc TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_context_arm ON outcomes(context_key, arm_key);
`

const schemaV2 = `
CREATE TABLE IF NOT EXISTS outcomes_v2 (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	context_key TEXT NOT NULL,
	arm_key TEXT NOT NULL,
	reward REAL NOT NULL,
	task_id TEXT NOT NULL DEFAULT '',
	run_id TEXT NOT NULL DEFAULT '',
	seed INTEGER NOT NULL DEFAULT 0,
	wall_time_ms REAL NOT NULL DEFAULT 0,
	tool_calls INTEGER NOT NULL DEFAULT 0,
	gate_denials INTEGER NOT NULL DEFAULT 0,
	tests_passed INTEGER NOT NULL DEFAULT 0,
	tests_failed INTEGER NOT NULL DEFAULT 0,
	tests_baseline_passed INTEGER NOT NULL DEFAULT 0,
	tests_baseline_failed INTEGER NOT NULL DEFAULT 0,
	patch_size_bytes INTEGER NOT NULL DEFAULT 0,
	files_changed INTEGER NOT NULL DEFAULT 0,
	meta_json TEXT NOT NULL DEFAULT '{}',
	ts_utc TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_v2_context_arm ON outcomes_v2(context_key, arm_key);
CREATE INDEX IF NOT EXISTS idx_outcomes_v2_task ON outcomes_v2(task_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_v2_ts ON outcomes_v2(ts_utc);
`

// RichOutcome is one bandit-arm pull with the full execution metadata a
// plan/turn produced.
type RichOutcome struct {
	ContextKey          string
	ArmKey              string
	Reward              float64
	TaskID              string
	RunID               string
	Seed                int64
	WallTimeMs          float64
	ToolCalls           int
	GateDenials         int
	TestsPassed         int
	TestsFailed         int
	TestsBaselinePassed int
	TestsBaselineFailed int
	PatchSizeBytes      int
	FilesChanged        int
	MetaJSON            string
	TSUtc               string
}

// ArmSummary is one row of Summary's result.
type ArmSummary struct {
	ArmKey string
	N      int
	Mean   float64
}

// LearningCurvePoint is one row of LearningCurve's result.
type LearningCurvePoint struct {
	Index          int
	WindowMean     float64
	CumulativeMean float64
}

// ArmPerformance aggregates min/max/mean/count for one arm.
type ArmPerformance struct {
	Count int
	Mean  float64
	Min   float64
	Max   float64
}

// DB wraps the outcome store's sqlite connection.
type DB struct {
	conn  *sql.DB
	useV2 bool
}

// Open opens (creating if necessary) the sqlite outcome store at path.
// useV2 controls whether RecordRich/rich queries are available.
func Open(path string, useV2 bool) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("outcomes: open: %w", err)
	}
	if _, err := conn.Exec(schemaV1); err != nil {
		conn.Close()
		return nil, fmt.Errorf("outcomes: init schema v1: %w", err)
	}
	if useV2 {
		if _, err := conn.Exec(schemaV2); err != nil {
			conn.Close()
			return nil, fmt.Errorf("outcomes: init schema v2: %w", err)
		}
	}
	return &DB{conn: conn, useV2: useV2}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// Record inserts a plain V1 outcome row.
func (db *DB) Record(contextKey, armKey string, reward float64, metaJSON, tsUTC string) error {
	_, err := db.conn.Exec(
		`INSERT INTO outcomes (context_key, arm_key, reward, meta_json, ts_utc) VALUES (?, ?, ?, ?, ?)`,
		contextKey, armKey, reward, metaJSON, tsUTC,
	)
	return err
}

// RecordRich inserts a V2 outcome row. Returns an error if the store was
// opened without useV2.
func (db *DB) RecordRich(o RichOutcome) error {
	if !db.useV2 {
		return fmt.Errorf("outcomes: RecordRich requires useV2 store")
	}
	_, err := db.conn.Exec(`
		INSERT INTO outcomes_v2 (
			context_key, arm_key, reward, task_id, run_id, seed, wall_time_ms,
			tool_calls, gate_denials, tests_passed, tests_failed,
			tests_baseline_passed, tests_baseline_failed, patch_size_bytes,
			files_changed, meta_json, ts_utc
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.ContextKey, o.ArmKey, o.Reward, o.TaskID, o.RunID, o.Seed, o.WallTimeMs,
		o.ToolCalls, o.GateDenials, o.TestsPassed, o.TestsFailed,
		o.TestsBaselinePassed, o.TestsBaselineFailed, o.PatchSizeBytes,
		o.FilesChanged, o.MetaJSON, o.TSUtc,
	)
	return err
}

// Summary returns per-arm {n, mean reward} for contextKey, from the V1
// table (arm selection only needs n/mean, so it stays V1-agnostic of
// the rich columns).
func (db *DB) Summary(contextKey string) ([]ArmSummary, error) {
	rows, err := db.conn.Query(
		`SELECT arm_key, COUNT(*), AVG(reward) FROM outcomes WHERE context_key = ? GROUP BY arm_key`,
		contextKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArmSummary
	for rows.Next() {
		var s ArmSummary
		if err := rows.Scan(&s.ArmKey, &s.N, &s.Mean); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ArmPerformanceAll returns count/mean/min/max per arm across all
// contexts, from the V2 table. The result is a map keyed by arm, so it
// carries no order.
func (db *DB) ArmPerformanceAll() (map[string]ArmPerformance, error) {
	if !db.useV2 {
		return nil, fmt.Errorf("outcomes: ArmPerformanceAll requires useV2 store")
	}
	rows, err := db.conn.Query(`
		SELECT arm_key, COUNT(*), AVG(reward), MIN(reward), MAX(reward)
		FROM outcomes_v2 GROUP BY arm_key ORDER BY AVG(reward) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]ArmPerformance{}
	for rows.Next() {
		var arm string
		var p ArmPerformance
		if err := rows.Scan(&arm, &p.Count, &p.Mean, &p.Min, &p.Max); err != nil {
			return nil, err
		}
		out[arm] = p
	}
	return out, rows.Err()
}

// LearningCurve returns rolling-window and cumulative mean reward over
// time, optionally filtered by arm or task, from the V2 table.
func (db *DB) LearningCurve(armKey, taskID string, window int) ([]LearningCurvePoint, error) {
	if !db.useV2 {
		return nil, fmt.Errorf("outcomes: LearningCurve requires useV2 store")
	}
	if window <= 0 {
		window = 10
	}
	query := `SELECT reward FROM outcomes_v2 WHERE 1=1`
	var args []any
	if armKey != "" {
		query += ` AND arm_key = ?`
		args = append(args, armKey)
	}
	if taskID != "" {
		query += ` AND task_id = ?`
		args = append(args, taskID)
	}
	query += ` ORDER BY id ASC`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rewards []float64
	for rows.Next() {
		var r float64
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		rewards = append(rewards, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	points := make([]LearningCurvePoint, 0, len(rewards))
	var cumSum float64
	for i, r := range rewards {
		cumSum += r
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		var windowSum float64
		for _, w := range rewards[start : i+1] {
			windowSum += w
		}
		points = append(points, LearningCurvePoint{
			Index:          i,
			WindowMean:     windowSum / float64(i-start+1),
			CumulativeMean: cumSum / float64(i+1),
		})
	}
	return points, nil
}

// RecentOutcomes returns the most recent V2 outcomes, newest first.
func (db *DB) RecentOutcomes(limit int) ([]RichOutcome, error) {
	if !db.useV2 {
		return nil, fmt.Errorf("outcomes: RecentOutcomes requires useV2 store")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.Query(`
		SELECT context_key, arm_key, reward, task_id, run_id, seed, wall_time_ms,
		       tool_calls, gate_denials, tests_passed, tests_failed,
		       tests_baseline_passed, tests_baseline_failed, patch_size_bytes,
		       files_changed, meta_json, ts_utc
		FROM outcomes_v2 ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RichOutcome
	for rows.Next() {
		var o RichOutcome
		if err := rows.Scan(
			&o.ContextKey, &o.ArmKey, &o.Reward, &o.TaskID, &o.RunID, &o.Seed, &o.WallTimeMs,
			&o.ToolCalls, &o.GateDenials, &o.TestsPassed, &o.TestsFailed,
			&o.TestsBaselinePassed, &o.TestsBaselineFailed, &o.PatchSizeBytes,
			&o.FilesChanged, &o.MetaJSON, &o.TSUtc,
		); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
