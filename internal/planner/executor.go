package planner

import (
	"fmt"
	"time"

	"github.com/dawsonblock/rfsn-kernel/internal/capability"
	"github.com/dawsonblock/rfsn-kernel/internal/gate"
	"github.com/dawsonblock/rfsn-kernel/internal/planner/checkpoint"
	"github.com/dawsonblock/rfsn-kernel/internal/policy"
	"github.com/dawsonblock/rfsn-kernel/internal/rfsn"
)

// MutatingTools mirrors controller/planner/executor.py's MUTATING_TOOLS:
// capabilities that change state and therefore need a checkpoint
// before they run if rollback is enabled.
var MutatingTools = map[string]bool{
	"write_file":    true,
	"apply_diff":    true,
	"memory_delete": true,
	"memory_store":  true,
	"run_command":   true,
	"run_python":    true,
	"sandbox_exec":  true,
}

// irreversibleTools can't be undone by a workdir/sqlite rollback (no
// git-tracked or snapshot-backed state captures them).
var irreversibleTools = map[string]bool{
	"memory_store":  true,
	"memory_delete": true,
}

// Emit reports a planner lifecycle event; implementations must never
// panic, as a misbehaving emitter must not crash execution.
type Emit func(eventType string, payload map[string]any)

func safeEmit(emit Emit, eventType string, payload map[string]any) {
	if emit == nil {
		return
	}
	defer func() { recover() }()
	emit(eventType, payload)
}

// ExecuteStep gates and then executes a single step, mirroring
// controller/planner/executor.py's execute_step.
func ExecuteStep(router *capability.Router, step *PlanStep, ctx *capability.ExecutionContext, world rfsn.WorldSnapshot, pol policy.Policy) StepResult {
	action := step.Action
	decision := gate.Gate(world, action, pol)

	if !decision.Allow {
		return StepResult{
			StepID:     step.StepID,
			Success:    false,
			Gated:      false,
			GateReason: decision.Reason,
			Error:      "Blocked by gate: " + decision.Reason,
		}
	}

	switch action.Kind {
	case rfsn.KindToolCall:
		payload, _ := action.Payload.(map[string]any)
		tool, _ := payload["tool"].(string)
		args, _ := payload["arguments"].(map[string]any)
		routed := routeTool(router, ctx, tool, args)
		return StepResult{
			StepID:     step.StepID,
			Success:    routed.Success,
			Output:     routed.Output,
			Error:      routed.Error,
			Gated:      true,
			GateReason: decision.Reason,
		}

	case rfsn.KindMessageSend:
		message := ""
		if m, ok := action.Payload.(map[string]any); ok {
			message, _ = m["message"].(string)
		}
		return StepResult{
			StepID:     step.StepID,
			Success:    true,
			Output:     map[string]any{"message": message},
			Gated:      true,
			GateReason: decision.Reason,
		}

	case rfsn.KindMemoryWrite:
		payload, _ := action.Payload.(map[string]any)
		routed := routeTool(router, ctx, "memory_store", payload)
		return StepResult{
			StepID:     step.StepID,
			Success:    routed.Success,
			Output:     routed.Output,
			Error:      routed.Error,
			Gated:      true,
			GateReason: decision.Reason,
		}

	default:
		return StepResult{
			StepID:     step.StepID,
			Success:    false,
			Error:      "Unsupported action kind: " + string(action.Kind),
			Gated:      true,
			GateReason: decision.Reason,
		}
	}
}

func routeTool(router *capability.Router, ctx *capability.ExecutionContext, tool string, args map[string]any) capability.Result {
	if router == nil {
		return capability.Result{Success: false, Error: "tool:no_router_configured"}
	}
	return router.Route(ctx, tool, args)
}

// ExecuteOptions configures ExecutePlan's rollback behavior.
type ExecuteOptions struct {
	Router                *capability.Router
	StopOnFailure         bool
	Emit                  Emit
	EnableWorkdirRollback bool
	SqliteTargets         []checkpoint.SqliteTarget
	KeepSqliteSnaps       int
}

// ExecutePlan runs every step of plan in dependency order, optionally
// checkpointing the workdir (git) and any sqlite targets once before the
// plan's first step and rolling back to that single checkpoint on the
// first failure, so a partially-applied plan is fully undone rather than
// left with earlier steps' mutations in place.
// Grounded on controller/planner/executor.py's execute_plan.
func ExecutePlan(plan *Plan, ctx *capability.ExecutionContext, world rfsn.WorldSnapshot, pol policy.Policy, opts ExecuteOptions) PlanResult {
	keepSnaps := opts.KeepSqliteSnaps
	if keepSnaps == 0 {
		keepSnaps = 5
	}

	var stepResults []StepResult
	completed, failed := 0, 0

	var lastCheckpoint string
	var lastSqliteCheckpointID string
	var rolledBack bool
	enableRollback := opts.EnableWorkdirRollback

	if enableRollback {
		if err := checkpoint.EnsureGitRepo(ctx.WorkingDirectory); err != nil {
			safeEmit(opts.Emit, "planner_checkpoint_error", map[string]any{"error": err.Error()})
			enableRollback = false
		} else {
			cp, err := checkpoint.Checkpoint(ctx.WorkingDirectory, "plan_start")
			if err != nil {
				safeEmit(opts.Emit, "planner_checkpoint_error", map[string]any{"error": err.Error()})
				enableRollback = false
			} else {
				lastCheckpoint = cp
				safeEmit(opts.Emit, "planner_checkpoint", map[string]any{"commit": cp, "label": "plan_start"})

				if len(opts.SqliteTargets) > 0 {
					lastSqliteCheckpointID = fmt.Sprintf("%d_start", time.Now().Unix())
					checkpoint.SnapshotSqliteFiles(ctx.WorkingDirectory, opts.SqliteTargets, lastSqliteCheckpointID)
					checkpoint.CleanupSqliteSnaps(ctx.WorkingDirectory, opts.SqliteTargets, keepSnaps)
				}
			}
		}
	}

	safeEmit(opts.Emit, "planner_start", map[string]any{"steps": len(plan.Steps), "workdir_rollback": enableRollback})

	stepIndex := 0
	for {
		pending := plan.PendingSteps()
		if len(pending) == 0 {
			break
		}
		step := pending[0]
		step.Status = StepInProgress

		toolName := ""
		if step.Action.Kind == rfsn.KindToolCall {
			if payload, ok := step.Action.Payload.(map[string]any); ok {
				toolName, _ = payload["tool"].(string)
			}
		}
		isMutating := MutatingTools[toolName]
		isIrreversible := irreversibleTools[toolName]

		safeEmit(opts.Emit, "planner_step_start", map[string]any{
			"step": stepIndex, "tool": toolName, "is_mutating": isMutating, "irreversible": isIrreversible,
		})
		if isMutating && isIrreversible {
			safeEmit(opts.Emit, "planner_note", map[string]any{
				"step": stepIndex, "note": "mutating_step_irreversible", "tool": toolName,
			})
		}

		// lastCheckpoint stays pinned to plan_start: a checkpoint taken
		// here would already include every earlier step's mutation, so
		// rollback always restores to before step 0, not before this step.

		result := ExecuteStep(opts.Router, step, ctx, world, pol)
		stepResults = append(stepResults, result)

		safeEmit(opts.Emit, "planner_step_end", map[string]any{"step": stepIndex, "tool": toolName, "ok": result.Success})

		if result.Success {
			step.Status = StepCompleted
			step.Result = result.Output
			completed++
		} else {
			step.Status = StepFailed
			step.Error = result.Error
			failed++

			safeEmit(opts.Emit, "planner_abort", map[string]any{"step": stepIndex, "reason": result.Error, "tool": toolName})

			if opts.StopOnFailure {
				if enableRollback && lastCheckpoint != "" {
					rolledBack, _ = attemptRollback(ctx.WorkingDirectory, lastCheckpoint, opts.Emit, opts.SqliteTargets, lastSqliteCheckpointID)
				}
				for i := range plan.Steps {
					if plan.Steps[i].Status == StepPending {
						plan.Steps[i].Status = StepSkipped
					}
				}
				break
			}
		}

		stepIndex++
	}

	success := failed == 0 && completed == len(plan.Steps)
	safeEmit(opts.Emit, "planner_end", map[string]any{"ok": success, "completed_steps": completed, "rolled_back": rolledBack})

	var planErr string
	if len(stepResults) > 0 && !stepResults[len(stepResults)-1].Success {
		planErr = stepResults[len(stepResults)-1].Error
	}

	return PlanResult{
		PlanID:         plan.PlanID,
		Success:        success,
		StepResults:    stepResults,
		TotalSteps:     len(plan.Steps),
		CompletedSteps: completed,
		FailedSteps:    failed,
		Error:          planErr,
	}
}

func attemptRollback(workdir, lastCheckpoint string, emit Emit, sqliteTargets []checkpoint.SqliteTarget, lastSqliteCheckpointID string) (bool, string) {
	if err := checkpoint.ResetHard(workdir, lastCheckpoint); err != nil {
		safeEmit(emit, "planner_rollback", map[string]any{"ok": false, "commit": lastCheckpoint, "error": err.Error()})
		return false, err.Error()
	}
	safeEmit(emit, "planner_rollback", map[string]any{"ok": true, "commit": lastCheckpoint})

	if len(sqliteTargets) > 0 && lastSqliteCheckpointID != "" {
		if err := checkpoint.RestoreSqliteFiles(workdir, sqliteTargets, lastSqliteCheckpointID); err != nil {
			safeEmit(emit, "planner_sqlite_restore", map[string]any{"ok": false, "checkpoint_id": lastSqliteCheckpointID, "error": err.Error()})
			return true, "sqlite_restore_failed: " + err.Error()
		}
		safeEmit(emit, "planner_sqlite_restore", map[string]any{"ok": true, "checkpoint_id": lastSqliteCheckpointID})
	}
	return true, ""
}
