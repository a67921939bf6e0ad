// Package main implements rfsnctl, the kernel's CLI entry point.
//
// File index:
//   main.go        - root command, global flags, logger init
//   cmd_chat.go     - interactive REPL driving one session.Session
//   cmd_serve.go    - HTTP API server (internal/httpapi)
//   cmd_plan.go     - bandit-selected planner run against a single goal
//   cmd_ledger.go   - ledger verify/tail utilities
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dawsonblock/rfsn-kernel/internal/config"
	"github.com/dawsonblock/rfsn-kernel/internal/logging"
)

var (
	verbose    bool
	workspace  string
	configPath string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rfsnctl",
	Short: "rfsnctl - untrusted-reasoner orchestration kernel control plane",
	Long: `rfsnctl runs and inspects the orchestration kernel: a gated turn loop that
lets an untrusted reasoning model propose actions, enforces a frozen policy
and capability registry against every proposal, appends a hash-chained
ledger entry for each decision, and learns which strategies pay off via a
multi-armed bandit.

Run "rfsnctl chat" for an interactive session, or "rfsnctl serve" to expose
the same sessions over HTTP.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		} else if abs, err := filepath.Abs(ws); err == nil {
			ws = abs
		}

		path := configPath
		if path == "" {
			path = filepath.Join(ws, "rfsn.yaml")
		}
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if loaded.WorkingDirectory == "./" || loaded.WorkingDirectory == "" {
			loaded.WorkingDirectory = ws
		}
		cfg = loaded

		if verbose {
			cfg.Logging.DebugMode = true
		}

		zapCfg := zap.NewProductionConfig()
		if cfg.Logging.DebugMode {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var zerr error
		logger, zerr = zapCfg.Build()
		if zerr != nil {
			return fmt.Errorf("init logger: %w", zerr)
		}

		if err := logging.Initialize(cfg.Logging.DebugMode, filepath.Join(cfg.WorkingDirectory, cfg.Logging.Dir)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "working directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to rfsn.yaml (default: <workspace>/rfsn.yaml)")

	rootCmd.AddCommand(chatCmd, serveCmd, planCmd, ledgerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
