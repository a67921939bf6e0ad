// Package planner implements the hierarchical planner: goal
// decomposition into dependent steps, strategy selection, gated
// step-by-step execution with git/sqlite rollback, and the reward
// functions that feed the bandit learner. Grounded on
// controller/planner/{types,decomposer,generator,executor,reward}.py.
package planner

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dawsonblock/rfsn-kernel/internal/rfsn"
)

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
	StepSkipped    StepStatus = "skipped"
)

type Strategy string

const (
	StrategyDirect      Strategy = "direct"
	StrategyDecompose   Strategy = "decompose"
	StrategySearchFirst Strategy = "search_first"
	StrategyAskUser     Strategy = "ask_user"
)

// shortID mirrors controller/planner/types.py's str(uuid.uuid4())[:8]:
// a short, human-scannable plan/step identifier, not a uniqueness
// guarantee across a whole deployment.
func shortID() string {
	return uuid.New().String()[:8]
}

// PlanStep is a single node in a Plan's dependency graph.
type PlanStep struct {
	StepID      string
	Description string
	Action      rfsn.ProposedAction
	DependsOn   []string
	Status      StepStatus
	Error       string
	Result      any
}

func NewPlanStep(description string, action rfsn.ProposedAction, dependsOn []string) PlanStep {
	return PlanStep{
		StepID:      shortID(),
		Description: description,
		Action:      action,
		DependsOn:   dependsOn,
		Status:      StepPending,
	}
}

// Plan is a hierarchical, dependency-ordered set of steps toward goal.
type Plan struct {
	PlanID   string
	Goal     string
	Steps    []PlanStep
	Strategy Strategy
	Metadata map[string]any
}

func NewPlan(goal string, steps []PlanStep, strategy Strategy, metadata map[string]any) Plan {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Plan{
		PlanID:   shortID(),
		Goal:     goal,
		Steps:    steps,
		Strategy: strategy,
		Metadata: metadata,
	}
}

// PendingSteps returns steps ready to run: pending status, all
// dependencies completed.
func (p *Plan) PendingSteps() []*PlanStep {
	completed := map[string]bool{}
	for i := range p.Steps {
		if p.Steps[i].Status == StepCompleted {
			completed[p.Steps[i].StepID] = true
		}
	}
	var out []*PlanStep
	for i := range p.Steps {
		s := &p.Steps[i]
		if s.Status != StepPending {
			continue
		}
		ready := true
		for _, dep := range s.DependsOn {
			if !completed[dep] {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, s)
		}
	}
	return out
}

func (p *Plan) IsComplete() bool {
	for _, s := range p.Steps {
		if s.Status != StepCompleted && s.Status != StepSkipped {
			return false
		}
	}
	return true
}

func (p *Plan) HasFailed() bool {
	for _, s := range p.Steps {
		if s.Status == StepFailed {
			return true
		}
	}
	return false
}

func (p *Plan) GetStep(stepID string) *PlanStep {
	for i := range p.Steps {
		if p.Steps[i].StepID == stepID {
			return &p.Steps[i]
		}
	}
	return nil
}

// StepResult is the outcome of executing a single PlanStep.
type StepResult struct {
	StepID     string
	Success    bool
	Output     any
	Error      string
	Gated      bool
	GateReason string
}

// PlanResult is the outcome of executing an entire Plan.
type PlanResult struct {
	PlanID         string
	Success        bool
	StepResults    []StepResult
	TotalSteps     int
	CompletedSteps int
	FailedSteps    int
	Error          string
}

func (r PlanResult) CompletionRate() float64 {
	if r.TotalSteps == 0 {
		return 1.0
	}
	return float64(r.CompletedSteps) / float64(r.TotalSteps)
}

func (p Plan) String() string {
	return fmt.Sprintf("Plan{id=%s, goal=%q, steps=%d, strategy=%s}", p.PlanID, p.Goal, len(p.Steps), p.Strategy)
}
