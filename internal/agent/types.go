// Package agent drives the untrusted-reasoner turn loop: build context,
// ask a Reasoner for a JSON proposal, parse it, validate each action's
// shape, pass it through the gate, execute what the gate allows, and
// ledger every decision along the way. The reasoner is adversarial by
// assumption; nothing it proposes runs without going through the gate
// first.
package agent

import (
	"github.com/dawsonblock/rfsn-kernel/internal/capability"
	"github.com/dawsonblock/rfsn-kernel/internal/ledger"
	"github.com/dawsonblock/rfsn-kernel/internal/policy"
	"github.com/dawsonblock/rfsn-kernel/internal/replay"
	"github.com/dawsonblock/rfsn-kernel/internal/rfsn"
)

// Turn is one (role, text) entry in the chat history. Role is one of
// "user", "assistant", "tool".
type Turn struct {
	Role string
	Text string
}

// Reasoner is the pluggable "reasoning plane": given a system prompt and
// a user prompt, it returns raw text that should be a single JSON
// object matching the actions schema. Implementations may call out to
// OpenAI/Anthropic/DeepSeek or anything else; the loop treats the
// response as untrusted.
type Reasoner interface {
	CompleteJSON(system, user string) (string, error)
}

// ReasonerFunc adapts a plain function to a Reasoner.
type ReasonerFunc func(system, user string) (string, error)

func (f ReasonerFunc) CompleteJSON(system, user string) (string, error) {
	return f(system, user)
}

// Memory is the subset of the memory store the turn loop needs: recall
// for context building and storage for memory_write actions.
type Memory interface {
	Search(query string, limit int) ([]MemoryHit, error)
	Store(key, value string) error
}

// MemoryHit is one recalled memory item.
type MemoryHit struct {
	Key   string
	Value string
}

// ContextConfig bounds how much chat history and memory recall feed
// into a single prompt.
type ContextConfig struct {
	MaxTurns    int
	MaxMemItems int
	Recall      bool
}

// DefaultContextConfig matches the turn loop's historical defaults.
func DefaultContextConfig() ContextConfig {
	return ContextConfig{MaxTurns: 12, MaxMemItems: 6, Recall: true}
}

// Config configures one call to RunTurn.
type Config struct {
	MaxSteps    int
	ContextCfg  ContextConfig
	RequireEach bool
}

// DefaultConfig mirrors the turn loop's historical defaults (6 steps).
func DefaultConfig() Config {
	return Config{MaxSteps: 6, ContextCfg: DefaultContextConfig(), RequireEach: true}
}

// Result summarizes one turn: the final message surfaced to the user
// plus counters over every action the reasoner proposed.
type Result struct {
	Message         string
	StepsTaken      int
	ActionsProposed int
	ActionsAllowed  int
	ActionsDenied   int
	ActionsReplayed int
}

// EmitFunc receives turn-loop lifecycle events (turn_start, gate_decision,
// tool_result, turn_end, ...) for tracing/observability. A nil EmitFunc
// disables event emission.
type EmitFunc func(eventType string, payload map[string]any)

// Deps bundles every collaborator the turn loop threads through a
// single call. Any of Ledger, Router, Memory, Replay, or Emit may be
// nil; the loop degrades gracefully when they are.
type Deps struct {
	Reasoner Reasoner
	World    rfsn.WorldSnapshot
	Policy   policy.Policy
	Ledger   *ledger.Ledger
	Router   *capability.Router
	ExecCtx  *capability.ExecutionContext
	Memory   Memory
	Replay   *replay.ToolStore
	Emit     EmitFunc
}
