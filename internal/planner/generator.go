package planner

import (
	"fmt"
	"strings"

	"github.com/dawsonblock/rfsn-kernel/internal/rfsn"
)

// GeneratePlan builds a Plan for goal using strategy, grounded on
// controller/planner/generator.py's generate_plan.
func GeneratePlan(goal string, context *rfsn.WorldSnapshot, strategy Strategy) Plan {
	var steps []PlanStep
	switch strategy {
	case StrategyDirect:
		steps = directStrategy(goal)
	case StrategyDecompose:
		steps = decomposeStrategy(goal)
	case StrategySearchFirst:
		steps = searchFirstStrategy(goal)
	case StrategyAskUser:
		steps = askUserStrategy(goal)
	default:
		steps = directStrategy(goal)
	}

	sessionID := ""
	if context != nil {
		sessionID = context.SessionID
	}
	return NewPlan(goal, steps, strategy, map[string]any{"context_session": sessionID})
}

func directStrategy(goal string) []PlanStep {
	all := DecomposeGoal(goal)
	if len(all) == 0 {
		return all
	}
	return all[:1]
}

func decomposeStrategy(goal string) []PlanStep {
	return DecomposeGoal(goal)
}

func searchFirstStrategy(goal string) []PlanStep {
	searchStep := NewPlanStep(
		"Search for relevant context",
		rfsn.ProposedAction{
			Kind:          rfsn.KindToolCall,
			Payload:       map[string]any{"tool": "list_dir", "arguments": map[string]any{"path": "./"}},
			Justification: fmt.Sprintf("Gather context for: %s", goal),
		},
		nil,
	)

	mainSteps := DecomposeGoal(goal)
	for i := range mainSteps {
		if len(mainSteps[i].DependsOn) == 0 {
			mainSteps[i].DependsOn = append(mainSteps[i].DependsOn, searchStep.StepID)
		}
	}

	return append([]PlanStep{searchStep}, mainSteps...)
}

func askUserStrategy(goal string) []PlanStep {
	message := fmt.Sprintf(
		"Before I proceed with '%s', could you clarify:\n1. What specific outcome do you expect?\n2. Are there any constraints I should be aware of?",
		goal,
	)
	step := NewPlanStep(
		"Request clarification from user",
		rfsn.ProposedAction{
			Kind:          rfsn.KindMessageSend,
			Payload:       map[string]any{"message": message},
			Justification: "Clarification needed before execution",
		},
		nil,
	)
	return []PlanStep{step}
}

// SelectStrategy heuristically chooses a strategy for goal. A learned
// selection can replace this via the bandit's "plan" category.
func SelectStrategy(goal string) Strategy {
	lower := strings.ToLower(goal)

	if containsAny(lower, " and ", " then ", " after ") {
		return StrategyDecompose
	}
	if containsAny(lower, "help", "how do i", "what should") {
		return StrategyAskUser
	}
	if containsAny(lower, "analyze", "summarize", "review", "understand") {
		return StrategySearchFirst
	}
	return StrategyDirect
}

// AutoPlan picks a strategy heuristically and generates a plan for goal.
func AutoPlan(goal string, context *rfsn.WorldSnapshot) Plan {
	strategy := SelectStrategy(goal)
	return GeneratePlan(goal, context, strategy)
}
