package planner

// clamp bounds r to [-1, 1], the stable range every reward function
// below feeds into the bandit learner.
func clamp(r float64) float64 {
	if r > 1.0 {
		return 1.0
	}
	if r < -1.0 {
		return -1.0
	}
	return r
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// FromPlanResult computes a scalar reward from a finished plan,
// weighting full success 70% and completion rate 60%, penalized by
// failed steps. Grounded on
// controller/planner/reward.py's reward_from_plan_result; kept as a
// distinct function from FromPlanProgress (see DESIGN.md) rather than
// unifying the two Python reward formulas.
func FromPlanResult(result PlanResult) float64 {
	base := 0.0
	if result.Success {
		base = 1.0
	}
	partial := result.CompletionRate()
	penalty := minFloat(1.0, 0.15*float64(result.FailedSteps))
	return clamp(base*0.7 + partial*0.6 - penalty)
}

// FromStepOutcomes computes reward from raw step counts when a full
// PlanResult isn't available. Grounded on
// controller/planner/reward.py's reward_from_step_outcomes.
func FromStepOutcomes(completed, failed, denied, total int) float64 {
	if total == 0 {
		return 0.0
	}
	completionRate := float64(completed) / float64(total)
	failureRate := float64(failed) / float64(total)
	denialRate := float64(denied) / float64(total)
	return clamp(completionRate - 0.5*failureRate - 0.1*denialRate)
}

// PlanProgress is a lighter-weight view of plan execution progress,
// used by FromPlanProgress / CombineWeights. Grounded on
// controller/reward/combine.py's PlanProgress.
type PlanProgress struct {
	TotalSteps     int
	CompletedSteps int
	FailedSteps    int
	Success        bool
}

// FromPlanProgress computes a 50/50-weighted plan reward, distinct
// from FromPlanResult's 70/60 weighting (see DESIGN.md's Open
// Questions decided section for why both are kept).
func FromPlanProgress(p PlanProgress) float64 {
	if p.TotalSteps == 0 {
		return 0.0
	}
	completionRate := float64(p.CompletedSteps) / float64(p.TotalSteps)
	failurePenalty := minFloat(1.0, 0.2*float64(p.FailedSteps))
	base := 0.0
	if p.Success {
		base = 1.0
	}
	return clamp(base*0.5 + completionRate*0.5 - failurePenalty)
}

// TestOutcome is a test-suite execution result, used to reward
// whether a patch fixed or broke tests relative to a baseline.
// Grounded on controller/reward/combine.py's TestOutcome.
type TestOutcome struct {
	Passed         int
	Failed         int
	Error          int
	Skipped        int
	TotalTime      float64
	BaselinePassed int
	BaselineFailed int
}

// FromTests measures improvement over a baseline test run. Grounded
// on controller/reward/combine.py's reward_from_tests.
func FromTests(t TestOutcome) float64 {
	if t.BaselineFailed == 0 {
		if t.Failed == 0 {
			return 0.3
		}
		return -0.5
	}
	fixed := t.BaselineFailed - t.Failed
	fixRate := float64(fixed) / float64(t.BaselineFailed)

	broken := t.BaselinePassed - t.Passed
	if broken < 0 {
		broken = 0
	}
	breakPenalty := minFloat(1.0, 0.3*float64(broken))

	return clamp(fixRate - breakPenalty)
}

// RewardWeights overrides the plan/test mix in CombineWeights.
type RewardWeights struct {
	Plan float64
	Test float64
}

// DefaultRewardWeights matches SPEC_FULL.md's chosen plan/test split
// (plan=0.4, test=0.6), the same default controller/reward/combine.py
// uses.
var DefaultRewardWeights = RewardWeights{Plan: 0.4, Test: 0.6}

// CombineWeights merges a plan-progress reward and a test-outcome
// reward into one scalar, weighting by weights (or
// DefaultRewardWeights if zero-valued). Either progress or test may be
// nil to combine from only one signal. Grounded on
// controller/reward/combine.py's combined_reward.
func CombineWeights(progress *PlanProgress, test *TestOutcome, weights RewardWeights) float64 {
	if weights.Plan == 0 && weights.Test == 0 {
		weights = DefaultRewardWeights
	}

	var rPlan, rTest, totalWeight float64
	if progress != nil {
		rPlan = FromPlanProgress(*progress)
		totalWeight += weights.Plan
	}
	if test != nil {
		rTest = FromTests(*test)
		totalWeight += weights.Test
	}
	if totalWeight == 0 {
		return 0.0
	}
	return clamp((rPlan*weights.Plan + rTest*weights.Test) / totalWeight)
}
