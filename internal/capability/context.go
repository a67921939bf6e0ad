package capability

import (
	"fmt"

	"github.com/dawsonblock/rfsn-kernel/internal/policy"
)

// ReplayMode controls how the router treats tool_call dispatch.
type ReplayMode string

const (
	ReplayOff     ReplayMode = "off"
	ReplayRecord  ReplayMode = "record"
	ReplayPlay    ReplayMode = "replay"
)

// ExecutionContext is the per-session state the router consults and
// mutates: budgets, grants, working directory, and replay mode.
// Grounded on controller/tool_router.py's ExecutionContext.
type ExecutionContext struct {
	SessionID        string
	UserID           string
	WorkingDirectory string
	MemoryDBPath     string
	Budgets          *BudgetEnforcer
	Permissions      *PermissionState
	ReplayMode       ReplayMode
	Policy           policy.Policy
}

// NewExecutionContext builds a context with fresh budget/permission
// state.
func NewExecutionContext(sessionID, workingDirectory string, pol policy.Policy) *ExecutionContext {
	if workingDirectory == "" {
		workingDirectory = "./"
	}
	return &ExecutionContext{
		SessionID:        sessionID,
		UserID:           "default",
		WorkingDirectory: workingDirectory,
		MemoryDBPath:     "agent_memory.db",
		Budgets:          NewBudgetEnforcer(),
		Permissions:      NewPermissionState(),
		ReplayMode:       ReplayOff,
		Policy:           pol,
	}
}

// StartNewTurn resets per-turn budget counters.
func (c *ExecutionContext) StartNewTurn() {
	c.Budgets.ResetTurn()
}

// EstimateBytes heuristically sizes a call for budget charging, mirroring
// tool_router.py's _estimate_bytes: reads/fetches are charged the
// caller's max_bytes argument as a hint (0 when absent), writes are
// charged their actual content size, and exec calls are charged the
// capability's MaxBytes.
func EstimateBytes(tool string, args map[string]any, budget Budget) int {
	switch tool {
	case "read_file", "fetch_url":
		switch hint := args["max_bytes"].(type) {
		case float64:
			return int(hint)
		case int:
			return hint
		}
		return 0
	case "write_file":
		if content, ok := args["content"].(string); ok {
			return len(content)
		}
		return 0
	case "run_command", "run_python", "sandbox_exec":
		if budget.MaxBytes > 0 {
			return budget.MaxBytes
		}
		return 0
	default:
		return 0
	}
}

func (c *ExecutionContext) String() string {
	return fmt.Sprintf("ExecutionContext{session=%s, workdir=%s, replay=%s}", c.SessionID, c.WorkingDirectory, c.ReplayMode)
}
