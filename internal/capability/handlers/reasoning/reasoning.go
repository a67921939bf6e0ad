// Package reasoning implements the think/plan/ask_user capabilities: no
// I/O, just structured bookkeeping that shows up in the ledger and gives
// the reasoner a way to externalize intermediate state.
package reasoning

import "github.com/dawsonblock/rfsn-kernel/internal/capability"

func Think(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	thought, _ := args["thought"].(string)
	return capability.Result{Success: true, Output: map[string]any{"recorded": thought}}
}

func Plan(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	goal, _ := args["goal"].(string)
	return capability.Result{Success: true, Output: map[string]any{"goal": goal}}
}

func AskUser(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	question, _ := args["question"].(string)
	return capability.Result{Success: true, Output: map[string]any{"question": question}}
}
