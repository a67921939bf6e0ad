// Package session implements the headless session API: a small,
// embeddable wrapper around the capability registry, router, ledger,
// and turn loop for programmatic callers (the CLI and HTTP API both sit
// on top of it). Grounded on controller/session_runner.py.
package session

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dawsonblock/rfsn-kernel/internal/agent"
	"github.com/dawsonblock/rfsn-kernel/internal/capability"
	"github.com/dawsonblock/rfsn-kernel/internal/capability/handlers/browser"
	"github.com/dawsonblock/rfsn-kernel/internal/capability/handlers/sandbox"
	"github.com/dawsonblock/rfsn-kernel/internal/capability/registrybuild"
	"github.com/dawsonblock/rfsn-kernel/internal/ledger"
	"github.com/dawsonblock/rfsn-kernel/internal/policy"
	"github.com/dawsonblock/rfsn-kernel/internal/rfsn"
)

// Config configures a new Session. Zero-valued fields take the same
// defaults session_runner.py's SessionConfig does.
type Config struct {
	Policy           policy.Policy
	WorkingDirectory string
	MemoryDBPath     string
	LedgerPath       string
	AutoGrantTools   []string
	SearchBackend    browser.SearchBackend
	SandboxConfig    sandbox.Config
	AllowHostExec    bool
	Reasoner         agent.Reasoner
	Memory           agent.Memory
	Emit             agent.EmitFunc
	AgentCfg         agent.Config
}

// ToolInfo describes one registered capability for ListTools.
type ToolInfo struct {
	Name          string          `json:"name"`
	Risk          capability.Risk `json:"risk"`
	RequiresGrant bool            `json:"requires_grant"`
	Granted       bool            `json:"granted"`
}

// StepResult is the outcome of a single Session.Step call.
type StepResult struct {
	Reply           string              `json:"reply"`
	ActionsProposed int                 `json:"actions_proposed"`
	ActionsAllowed  int                 `json:"actions_allowed"`
	ActionsDenied   int                 `json:"actions_denied"`
	ActionsReplayed int                 `json:"actions_replayed"`
	LedgerTail      []rfsn.LedgerEntry  `json:"ledger_tail"`
}

// Session is a headless, stateful agent session: one capability
// registry/router, one execution context, one ledger, and the running
// chat history across Step calls.
type Session struct {
	SessionID string

	config    Config
	registry  *capability.Registry
	router    *capability.Router
	execCtx   *capability.ExecutionContext
	ledger    *ledger.Ledger
	history   []agent.Turn
	stepCount int
}

// New builds a Session, assembling the full capability registry via
// registrybuild and opening its ledger file.
func New(cfg Config) (*Session, error) {
	sessionID := uuid.New().String()[:8]

	if cfg.WorkingDirectory == "" {
		cfg.WorkingDirectory = "./"
	}
	if cfg.MemoryDBPath == "" {
		cfg.MemoryDBPath = "agent_memory.db"
	}
	if cfg.Policy.AllowedTools == nil {
		cfg.Policy = policy.Default()
	}
	if cfg.AgentCfg.MaxSteps == 0 {
		cfg.AgentCfg = agent.DefaultConfig()
	}

	registry, err := registrybuild.Build(registrybuild.Options{
		MemoryDBPath:  cfg.MemoryDBPath,
		SearchBackend: cfg.SearchBackend,
		SandboxConfig: cfg.SandboxConfig,
		AllowHostExec: cfg.AllowHostExec,
	})
	if err != nil {
		return nil, fmt.Errorf("session: build registry: %w", err)
	}

	execCtx := capability.NewExecutionContext(sessionID, cfg.WorkingDirectory, cfg.Policy)
	execCtx.MemoryDBPath = cfg.MemoryDBPath

	ledgerPath := cfg.LedgerPath
	if ledgerPath == "" {
		ledgerPath = fmt.Sprintf("session_%s.jsonl", sessionID)
	}
	led, err := ledger.Open(ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("session: open ledger: %w", err)
	}

	s := &Session{
		SessionID: sessionID,
		config:    cfg,
		registry:  registry,
		router:    capability.NewRouter(registry),
		execCtx:   execCtx,
		ledger:    led,
	}

	for _, tool := range cfg.AutoGrantTools {
		s.execCtx.Permissions.GrantTool(tool)
	}

	return s, nil
}

// SetEmit (re)wires the event callback used by every subsequent Step
// call, letting a caller attach observability (e.g. a WebSocket event
// hub) once the session's ID is known.
func (s *Session) SetEmit(emit agent.EmitFunc) { s.config.Emit = emit }

func (s *Session) GrantTool(tool string)  { s.execCtx.Permissions.GrantTool(tool) }
func (s *Session) RevokeTool(tool string) { s.execCtx.Permissions.RevokeTool(tool) }

// ListTools reports every registered capability and whether this
// session currently holds a grant for it.
func (s *Session) ListTools() []ToolInfo {
	names := s.registry.Names()
	out := make([]ToolInfo, 0, len(names))
	for _, name := range names {
		spec, _ := s.registry.Get(name)
		out = append(out, ToolInfo{
			Name:          name,
			Risk:          spec.Risk,
			RequiresGrant: spec.Permission.RequireExplicitGrant,
			Granted:       s.execCtx.Permissions.HasTool(name),
		})
	}
	return out
}

func (s *Session) worldSnapshot() rfsn.WorldSnapshot {
	return rfsn.WorldSnapshot{
		SessionID:    s.SessionID,
		EnabledTools: s.registry.Names(),
		Permissions:  s.execCtx.Permissions.GrantedTools(),
		SystemClean:  true,
	}
}

// Step executes one full turn of the agent loop: reset per-turn
// budgets, record the user turn, run the loop, and record the reply.
func (s *Session) Step(userInput string) (StepResult, error) {
	s.stepCount++
	s.execCtx.StartNewTurn()
	s.history = append(s.history, agent.Turn{Role: "user", Text: userInput})

	deps := agent.Deps{
		Reasoner: s.config.Reasoner,
		World:    s.worldSnapshot(),
		Policy:   s.config.Policy,
		Ledger:   s.ledger,
		Router:   s.router,
		ExecCtx:  s.execCtx,
		Memory:   s.config.Memory,
		Emit:     s.config.Emit,
	}

	result := agent.RunTurn(userInput, s.history, deps, s.config.AgentCfg)
	s.history = append(s.history, agent.Turn{Role: "assistant", Text: result.Message})

	tail, err := s.ledger.ReadTail(10)
	if err != nil {
		tail = nil
	}

	return StepResult{
		Reply:           result.Message,
		ActionsProposed: result.ActionsProposed,
		ActionsAllowed:  result.ActionsAllowed,
		ActionsDenied:   result.ActionsDenied,
		ActionsReplayed: result.ActionsReplayed,
		LedgerTail:      tail,
	}, nil
}

// Reset clears conversation history and per-turn budgets without
// rebuilding the registry or discarding grants.
func (s *Session) Reset() {
	s.execCtx.StartNewTurn()
	s.history = nil
	s.stepCount = 0
}

// State reports session bookkeeping useful for a status endpoint/command.
func (s *Session) State() map[string]any {
	return map[string]any{
		"session_id":        s.SessionID,
		"step_count":        s.stepCount,
		"history_length":    len(s.history),
		"granted_tools":     s.execCtx.Permissions.GrantedTools(),
		"working_directory": s.execCtx.WorkingDirectory,
	}
}
