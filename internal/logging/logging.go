// Package logging provides config-driven, categorized file-based logging
// for the kernel, written as JSON lines under the configured log
// directory. One category == one concern (gate, router, ledger,
// planner, bandit, session, sandbox, http); each gets its own file so an
// operator can tail exactly the subsystem they care about. Controlled by
// debug_mode: when off, info and higher entries are written; when on,
// debug entries are written too.
package logging

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names one of the kernel's logging subsystems.
type Category string

const (
	CategoryBoot     Category = "boot"
	CategoryGate     Category = "gate"
	CategoryRouter   Category = "router"
	CategoryLedger   Category = "ledger"
	CategoryPlanner  Category = "planner"
	CategoryBandit   Category = "bandit"
	CategorySession  Category = "session"
	CategorySandbox  Category = "sandbox"
	CategoryHTTP     Category = "http"
	CategoryReplay   Category = "replay"
)

// loggingConfig mirrors config.LoggingConfig's shape locally to avoid a
// dependency cycle with internal/config.
type loggingConfig struct {
	DebugMode bool
	Dir       string
}

var (
	mu       sync.Mutex
	cfg      loggingConfig
	loggers  = map[Category]*zap.Logger{}
	initDone bool
)

// Initialize sets up the categorized file logger. Safe to call multiple
// times; later calls reset configuration for future Get calls.
func Initialize(debugMode bool, dir string) error {
	mu.Lock()
	defer mu.Unlock()
	if dir == "" {
		dir = ".rfsn/logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	cfg = loggingConfig{DebugMode: debugMode, Dir: dir}
	loggers = map[Category]*zap.Logger{}
	initDone = true
	return nil
}

func buildLogger(cat Category) *zap.Logger {
	level := zapcore.InfoLevel
	if cfg.DebugMode {
		level = zapcore.DebugLevel
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	path := filepath.Join(cfg.Dir, string(cat)+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		// Fall back to a no-op logger rather than crash the kernel over
		// a logging sink failure.
		return zap.NewNop()
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(f), level)
	return zap.New(core).With(zap.String("category", string(cat)))
}

// Get returns the logger for cat, lazily constructing it. If
// Initialize was never called, a no-op logger is returned so callers
// never need a nil check.
func Get(cat Category) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !initDone {
		return zap.NewNop()
	}
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := buildLogger(cat)
	loggers[cat] = l
	return l
}

// Sync flushes every open category logger. Intended for a deferred call
// at process shutdown.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		_ = l.Sync()
	}
}
