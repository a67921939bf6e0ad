package planner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecomposeGoal_PatternMatch(t *testing.T) {
	steps := DecomposeGoal("list the files and then summarize them")
	require.Len(t, steps, 3)
	require.Equal(t, "List the relevant files", steps[0].Description)
	require.Empty(t, steps[0].DependsOn)
	require.Equal(t, []string{steps[0].StepID}, steps[1].DependsOn)
	require.Equal(t, []string{steps[1].StepID}, steps[2].DependsOn)
}

func TestDecomposeGoal_FallsBackToDirectStep(t *testing.T) {
	steps := DecomposeGoal("list every config file")
	require.Len(t, steps, 1)
	payload, ok := steps[0].Action.Payload.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "list_dir", payload["tool"])
}

func TestDecomposeGoal_UnknownGoalAsksForClarification(t *testing.T) {
	steps := DecomposeGoal("do the thing")
	require.Len(t, steps, 1)
	require.Equal(t, "message_send", string(steps[0].Action.Kind))
}

func TestPlan_PendingStepsRespectsDependencies(t *testing.T) {
	steps := DecomposeGoal("search for config and then update it")
	plan := NewPlan("search for config and then update it", steps, StrategyDecompose, nil)

	pending := plan.PendingSteps()
	require.Len(t, pending, 1)
	require.Equal(t, steps[0].StepID, pending[0].StepID)

	plan.GetStep(steps[0].StepID).Status = StepCompleted
	pending = plan.PendingSteps()
	require.Len(t, pending, 1)
	require.Equal(t, steps[1].StepID, pending[0].StepID)
}

func TestPlan_IsCompleteAndHasFailed(t *testing.T) {
	steps := DecomposeGoal("remember this note")
	plan := NewPlan("remember this note", steps, StrategyDirect, nil)
	require.False(t, plan.IsComplete())

	plan.Steps[0].Status = StepCompleted
	require.True(t, plan.IsComplete())
	require.False(t, plan.HasFailed())

	plan.Steps[0].Status = StepFailed
	require.True(t, plan.HasFailed())
}
