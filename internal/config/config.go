// Package config loads the kernel's yaml configuration file as a
// hierarchical, defaults-first Config.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoggingConfig controls the categorized file logger.
type LoggingConfig struct {
	DebugMode bool   `yaml:"debug_mode"`
	Dir       string `yaml:"dir"`
}

// SandboxConfig controls the Docker-backed sandbox_exec handler.
type SandboxConfig struct {
	Image          string `yaml:"image"`
	MemoryLimit    string `yaml:"memory_limit"`
	CPULimit       float64 `yaml:"cpu_limit"`
	NetworkDisabled bool   `yaml:"network_disabled"`
	PidsLimit      int64  `yaml:"pids_limit"`
	AllowHostExec  bool   `yaml:"allow_host_exec"`
}

// HTTPConfig controls the internal/httpapi listener and rate limiter.
type HTTPConfig struct {
	Addr               string  `yaml:"addr"`
	RatePerSecond      float64 `yaml:"rate_per_second"`
	Burst              int     `yaml:"burst"`
}

// LearnerConfig controls bandit arm selection.
type LearnerConfig struct {
	Algorithm string  `yaml:"algorithm"`
	UCBConst  float64 `yaml:"ucb_const"`
	Epsilon   float64 `yaml:"epsilon"`
}

// Config is the kernel's full static configuration.
type Config struct {
	PolicyMode      string        `yaml:"policy_mode"` // "default" or "dev"
	WorkingDirectory string       `yaml:"working_directory"`
	LedgerPath      string        `yaml:"ledger_path"`
	OutcomesDBPath  string        `yaml:"outcomes_db_path"`
	MemoryDBPath    string        `yaml:"memory_db_path"`
	MaxStepsPerTurn int           `yaml:"max_steps_per_turn"`
	Sandbox         SandboxConfig `yaml:"sandbox"`
	HTTP            HTTPConfig    `yaml:"http"`
	Logging         LoggingConfig `yaml:"logging"`
	Learner         LearnerConfig `yaml:"learner"`
}

// Default returns the kernel's built-in defaults, used when no config
// file is present and as the base that a loaded file is merged onto.
func Default() Config {
	return Config{
		PolicyMode:       "default",
		WorkingDirectory: "./",
		LedgerPath:       "ledger.jsonl",
		OutcomesDBPath:   "outcomes.db",
		MemoryDBPath:     "agent_memory.db",
		MaxStepsPerTurn:  6,
		Sandbox: SandboxConfig{
			Image:           "python:3.12-slim",
			MemoryLimit:     "2g",
			CPULimit:        2.0,
			NetworkDisabled: true,
			PidsLimit:       256,
			AllowHostExec:   false,
		},
		HTTP: HTTPConfig{
			Addr:          ":8080",
			RatePerSecond: 5,
			Burst:         10,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Dir:       ".rfsn/logs",
		},
		Learner: LearnerConfig{
			Algorithm: "thompson",
			UCBConst:  2.0,
			Epsilon:   0.1,
		},
	}
}

// Load reads path as yaml and merges it onto Default(). A missing file
// is not an error: Default() is returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
