package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dawsonblock/rfsn-kernel/internal/bandit"
	"github.com/dawsonblock/rfsn-kernel/internal/capability"
	"github.com/dawsonblock/rfsn-kernel/internal/capability/handlers/sandbox"
	"github.com/dawsonblock/rfsn-kernel/internal/capability/registrybuild"
	"github.com/dawsonblock/rfsn-kernel/internal/outcomes"
	"github.com/dawsonblock/rfsn-kernel/internal/planner"
	"github.com/dawsonblock/rfsn-kernel/internal/rfsn"
)

var (
	planRollback    bool
	planTestCommand string
)

var planCmd = &cobra.Command{
	Use:   "plan <goal>",
	Short: "Decompose a goal, pick a strategy via the bandit learner, and execute it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planRollback, "rollback", false, "checkpoint the workdir and roll back on the first failed step")
	planCmd.Flags().StringVar(&planTestCommand, "test-command", "", "run this test command before and after the plan and fold the test-delta reward into the recorded outcome")
}

// strategyArms mirrors the four planner.Strategy values as bandit arms in
// the "plan" category, so GeneratePlan's strategy choice is learned
// rather than fixed by SelectStrategy's keyword heuristic alone.
var strategyArms = bandit.StaticRegistry{
	bandit.CategoryPlan: []bandit.Arm{
		{Key: "direct", Category: bandit.CategoryPlan, Description: "execute the goal as a single step"},
		{Key: "decompose", Category: bandit.CategoryPlan, Description: "break the goal into pattern-matched steps"},
		{Key: "search_first", Category: bandit.CategoryPlan, Description: "search before acting"},
		{Key: "ask_user", Category: bandit.CategoryPlan, Description: "ask the user to clarify"},
	},
}

func runPlan(cmd *cobra.Command, args []string) error {
	goal := strings.Join(args, " ")

	db, err := outcomes.Open(filepath.Join(cfg.WorkingDirectory, cfg.OutcomesDBPath), true)
	if err != nil {
		return fmt.Errorf("open outcomes db: %w", err)
	}
	defer db.Close()

	algo := bandit.Algorithm(cfg.Learner.Algorithm)
	learner := bandit.NewLearner(db, strategyArms, algo, []bandit.Category{bandit.CategoryPlan})

	contextKey := "plan:" + goal
	seed := time.Now().UnixNano()
	selection, err := learner.Select(contextKey, seed, nil)
	if err != nil {
		return fmt.Errorf("select strategy arm: %w", err)
	}

	strategy := planner.StrategyDirect
	if arm, ok := selection.Arms[bandit.CategoryPlan]; ok {
		strategy = planner.Strategy(strings.TrimPrefix(arm.ArmKey(), "plan::"))
	}
	fmt.Printf("strategy: %s\n", strategy)

	pol := policyForMode(cfg.PolicyMode)
	registry, err := registrybuild.Build(registrybuild.Options{
		MemoryDBPath: filepath.Join(cfg.WorkingDirectory, cfg.MemoryDBPath),
		SandboxConfig: sandbox.Config{
			Image:           cfg.Sandbox.Image,
			MemoryLimit:     cfg.Sandbox.MemoryLimit,
			CPULimit:        cfg.Sandbox.CPULimit,
			NetworkDisabled: cfg.Sandbox.NetworkDisabled,
			PidsLimit:       cfg.Sandbox.PidsLimit,
		},
		AllowHostExec: cfg.Sandbox.AllowHostExec,
	})
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}
	router := capability.NewRouter(registry)
	execCtx := capability.NewExecutionContext("plan-cli", cfg.WorkingDirectory, pol)

	var baseline planner.TestRunResult
	if planTestCommand != "" {
		baseline = planner.RunHostTestCommand(context.Background(), cfg.WorkingDirectory, planTestCommand)
	}

	world := rfsn.WorldSnapshot{
		SessionID:    execCtx.SessionID,
		EnabledTools: registry.Names(),
		SystemClean:  true,
		// tests_passed is what require_clean_tests_for_patch gates a
		// patch action on; without --test-command there is no signal, so
		// it stays false and patch actions are denied by policy default.
		TestsPassed: planTestCommand != "" && baseline.Passed,
	}

	plan := planner.GeneratePlan(goal, &world, strategy)
	result := planner.ExecutePlan(&plan, execCtx, world, pol, planner.ExecuteOptions{
		Router:                router,
		StopOnFailure:         true,
		EnableWorkdirRollback: planRollback,
	})

	fmt.Printf("plan %s: success=%v completed=%d/%d failed=%d\n",
		result.PlanID, result.Success, result.CompletedSteps, result.TotalSteps, result.FailedSteps)
	if result.Error != "" {
		fmt.Printf("last error: %s\n", result.Error)
	}

	var reward float64
	if planTestCommand != "" {
		patched := planner.RunHostTestCommand(context.Background(), cfg.WorkingDirectory, planTestCommand)
		delta := planner.TestDelta{Baseline: baseline, Patched: patched}
		progress := planner.PlanProgress{
			TotalSteps:     result.TotalSteps,
			CompletedSteps: result.CompletedSteps,
			FailedSteps:    result.FailedSteps,
			Success:        result.Success,
		}
		reward = planner.CombineWithTestDelta(&progress, &delta, planner.DefaultRewardWeights)
		fmt.Printf("test delta: baseline_passed=%d/%d patched_passed=%d/%d reward=%.3f\n",
			baseline.PassedTests, baseline.TotalTests, patched.PassedTests, patched.TotalTests, planner.RewardFromTestDelta(delta))
	} else {
		reward = planner.FromPlanResult(result)
	}

	err = bandit.RecordRich(db, selection, outcomes.RichOutcome{
		Reward:      reward,
		TaskID:      result.PlanID,
		Seed:        seed,
		ToolCalls:   len(result.StepResults),
		GateDenials: countGateDenials(result),
		TSUtc:       time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	fmt.Printf("recorded reward %.3f for %s\n", reward, strategy)
	return nil
}

func countGateDenials(result planner.PlanResult) int {
	n := 0
	for _, step := range result.StepResults {
		if !step.Gated {
			n++
		}
	}
	return n
}
