package planner

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dawsonblock/rfsn-kernel/internal/capability"
	"github.com/dawsonblock/rfsn-kernel/internal/policy"
	"github.com/dawsonblock/rfsn-kernel/internal/rfsn"
)

func skipIfNoGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func testRouter(t *testing.T) *capability.Router {
	reg := capability.NewRegistry()
	reg.Register(capability.Spec{
		Name: "list_dir",
		Handler: func(_ *capability.ExecutionContext, args map[string]any) capability.Result {
			return capability.Result{Success: true, Output: []string{"a.txt", "b.txt"}}
		},
		Schema: []capability.Field{{Name: "path", Required: false, Kind: capability.KindString}},
		Risk:   capability.RiskLow,
		Budget: capability.Budget{CallsPerTurn: 10},
	})
	return capability.NewRouter(reg)
}

func testWorld() rfsn.WorldSnapshot {
	return rfsn.WorldSnapshot{SessionID: "s1", SystemClean: true, EnabledTools: []string{"list_dir"}}
}

func TestExecuteStep_ToolCallSuccess(t *testing.T) {
	pol := policy.Dev()
	ctx := capability.NewExecutionContext("s1", t.TempDir(), pol)
	router := testRouter(t)

	step := NewPlanStep("list files", rfsn.ProposedAction{
		Kind:          rfsn.KindToolCall,
		Payload:       map[string]any{"tool": "list_dir", "arguments": map[string]any{"path": "./"}},
		Justification: "listing workdir",
	}, nil)

	result := ExecuteStep(router, &step, ctx, testWorld(), pol)
	require.True(t, result.Success)
	require.True(t, result.Gated)
}

func TestExecuteStep_GateDenialShortCircuits(t *testing.T) {
	pol := policy.Default()
	ctx := capability.NewExecutionContext("s1", t.TempDir(), pol)
	router := testRouter(t)

	step := NewPlanStep("short justification", rfsn.ProposedAction{
		Kind:          rfsn.KindToolCall,
		Payload:       map[string]any{"tool": "list_dir", "arguments": map[string]any{"path": "./"}},
		Justification: "no",
	}, nil)

	result := ExecuteStep(router, &step, ctx, testWorld(), pol)
	require.False(t, result.Success)
	require.False(t, result.Gated)
	require.Contains(t, result.Error, "Blocked by gate")
}

func TestExecuteStep_MessageSendAlwaysSucceeds(t *testing.T) {
	pol := policy.Dev()
	ctx := capability.NewExecutionContext("s1", t.TempDir(), pol)

	step := NewPlanStep("say hi", rfsn.ProposedAction{
		Kind:          rfsn.KindMessageSend,
		Payload:       map[string]any{"message": "hello there"},
		Justification: "greeting",
	}, nil)

	result := ExecuteStep(nil, &step, ctx, testWorld(), pol)
	require.True(t, result.Success)
	out, ok := result.Output.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "hello there", out["message"])
}

func TestExecuteStep_PatchDeniedWhenTestsNotPassing(t *testing.T) {
	pol := policy.Default()
	require.True(t, pol.RequireCleanTestsForPatch)
	ctx := capability.NewExecutionContext("s1", t.TempDir(), pol)

	step := NewPlanStep("apply patch", rfsn.ProposedAction{
		Kind:          rfsn.KindPatch,
		Payload:       "diff --git a/x b/x\n",
		Justification: "fixing the failing test",
	}, nil)

	world := testWorld()
	world.TestsPassed = false
	result := ExecuteStep(nil, &step, ctx, world, pol)
	require.False(t, result.Success)
	require.Contains(t, result.GateReason, "tests not passing")
}

func TestExecuteStep_PatchAllowedWhenTestsPassing(t *testing.T) {
	pol := policy.Default()
	ctx := capability.NewExecutionContext("s1", t.TempDir(), pol)

	step := NewPlanStep("apply patch", rfsn.ProposedAction{
		Kind:          rfsn.KindPatch,
		Payload:       "diff --git a/x b/x\n",
		Justification: "fixing the failing test",
	}, nil)

	world := testWorld()
	world.TestsPassed = true
	result := ExecuteStep(nil, &step, ctx, world, pol)
	require.False(t, result.Success) // no router configured, but the gate allowed it
	require.Equal(t, "Unsupported action kind: patch", result.Error)
}

func TestExecutePlan_StopsOnFailureAndSkipsRemaining(t *testing.T) {
	pol := policy.Default()
	ctx := capability.NewExecutionContext("s1", t.TempDir(), pol)
	router := testRouter(t)

	deniedStep := NewPlanStep("bad", rfsn.ProposedAction{
		Kind:          rfsn.KindToolCall,
		Payload:       map[string]any{"tool": "nonexistent_tool", "arguments": map[string]any{}},
		Justification: "should fail gate or router",
	}, nil)
	followup := NewPlanStep("after", rfsn.ProposedAction{
		Kind:          rfsn.KindMessageSend,
		Payload:       map[string]any{"message": "should be skipped"},
		Justification: "never runs",
	}, []string{deniedStep.StepID})

	plan := NewPlan("fail then skip", []PlanStep{deniedStep, followup}, StrategyDirect, nil)

	result := ExecutePlan(&plan, ctx, testWorld(), pol, ExecuteOptions{
		Router:        router,
		StopOnFailure: true,
	})

	require.False(t, result.Success)
	require.Equal(t, 1, result.FailedSteps)
	require.Equal(t, StepSkipped, plan.Steps[1].Status)
}

func TestExecutePlan_AllStepsCompleteSucceeds(t *testing.T) {
	pol := policy.Dev()
	ctx := capability.NewExecutionContext("s1", t.TempDir(), pol)
	router := testRouter(t)

	step := NewPlanStep("list files", rfsn.ProposedAction{
		Kind:          rfsn.KindToolCall,
		Payload:       map[string]any{"tool": "list_dir", "arguments": map[string]any{"path": "./"}},
		Justification: "listing workdir",
	}, nil)

	plan := NewPlan("list", []PlanStep{step}, StrategyDirect, nil)
	result := ExecutePlan(&plan, ctx, testWorld(), pol, ExecuteOptions{Router: router, StopOnFailure: true})

	require.True(t, result.Success)
	require.Equal(t, 1, result.CompletedSteps)
}

// writeFileRouter registers a minimal write_file capability backed by
// plain os.WriteFile, good enough to drive a real workdir mutation
// through the checkpoint/rollback path.
func writeFileRouter(t *testing.T, dir string) *capability.Router {
	reg := capability.NewRegistry()
	reg.Register(capability.Spec{
		Name: "write_file",
		Handler: func(_ *capability.ExecutionContext, args map[string]any) capability.Result {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			if err := os.WriteFile(filepath.Join(dir, path), []byte(content), 0o644); err != nil {
				return capability.Result{Success: false, Error: "tool:write_failed: " + err.Error()}
			}
			return capability.Result{Success: true, Output: path}
		},
		Schema: []capability.Field{
			{Name: "path", Required: true, Kind: capability.KindString},
			{Name: "content", Required: true, Kind: capability.KindString},
		},
		Risk:   capability.RiskLow,
		Budget: capability.Budget{CallsPerTurn: 10},
	})
	return capability.NewRouter(reg)
}

// TestExecutePlan_RollbackRestoresPreStep0State exercises spec.md's
// Scenario 5 directly: step 0 mutates x.txt, step 1 fails, and
// rollback must restore x.txt to its value before step 0 ran, not just
// undo step 1.
func TestExecutePlan_RollbackRestoresPreStep0State(t *testing.T) {
	skipIfNoGit(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.txt"), []byte("A"), 0o644))

	pol := policy.Dev()
	ctx := capability.NewExecutionContext("s1", dir, pol)
	router := writeFileRouter(t, dir)

	mutate := NewPlanStep("mutate x", rfsn.ProposedAction{
		Kind:          rfsn.KindToolCall,
		Payload:       map[string]any{"tool": "write_file", "arguments": map[string]any{"path": "./x.txt", "content": "B"}},
		Justification: "overwrite x.txt",
	}, nil)
	failing := NewPlanStep("bad tool", rfsn.ProposedAction{
		Kind:          rfsn.KindToolCall,
		Payload:       map[string]any{"tool": "nonexistent_tool", "arguments": map[string]any{}},
		Justification: "should fail the router",
	}, []string{mutate.StepID})

	plan := NewPlan("mutate then fail", []PlanStep{mutate, failing}, StrategyDirect, nil)
	result := ExecutePlan(&plan, ctx, testWorld(), pol, ExecuteOptions{
		Router:                router,
		StopOnFailure:         true,
		EnableWorkdirRollback: true,
	})

	require.False(t, result.Success)
	require.Equal(t, 1, result.CompletedSteps)
	require.Equal(t, 1, result.FailedSteps)

	data, err := os.ReadFile(filepath.Join(dir, "x.txt"))
	require.NoError(t, err)
	require.Equal(t, "A", string(data), "rollback must restore x.txt to its pre-plan state, not just undo the failing step")
}
