package planner

import (
	"context"
	"os/exec"
	"regexp"
	"strconv"
)

// TestRunResult is one test-suite execution outcome. Grounded on
// controller/test_runner.py's TestResult.
type TestRunResult struct {
	Passed      bool
	TotalTests  int
	PassedTests int
	FailedTests int
	ErrorTests  int
	TimedOut    bool
}

var (
	pytestSummaryRe = regexp.MustCompile(`(?i)=+\s*([\d\w\s,]+)\s+in\s+[\d.]+s?\s*=+`)
	pytestPassedRe  = regexp.MustCompile(`(\d+)\s+passed`)
	pytestFailedRe  = regexp.MustCompile(`(\d+)\s+failed`)
	pytestErrorRe   = regexp.MustCompile(`(\d+)\s+error`)

	unittestRanRe    = regexp.MustCompile(`Ran\s+(\d+)\s+tests?`)
	unittestOKRe     = regexp.MustCompile(`(?m)^OK\s*$`)
	unittestResultRe = regexp.MustCompile(`FAILED\s*\((?:failures=(\d+))?,?\s*(?:errors=(\d+))?\)`)
)

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// parsePytestOutput ports _parse_pytest_output: pull passed/failed/error
// counts out of pytest's "N passed, M failed in Xs" summary line.
func parsePytestOutput(output string) (total, passed, failed, errors int) {
	m := pytestSummaryRe.FindStringSubmatch(output)
	if m == nil {
		return 0, 0, 0, 0
	}
	summary := m[1]
	if pm := pytestPassedRe.FindStringSubmatch(summary); pm != nil {
		passed = atoiOr(pm[1], 0)
	}
	if fm := pytestFailedRe.FindStringSubmatch(summary); fm != nil {
		failed = atoiOr(fm[1], 0)
	}
	if em := pytestErrorRe.FindStringSubmatch(summary); em != nil {
		errors = atoiOr(em[1], 0)
	}
	return passed + failed + errors, passed, failed, errors
}

// parseUnittestOutput ports _parse_unittest_output: "Ran N tests" plus
// either a trailing "OK" or a "FAILED (failures=.., errors=..)" line.
func parseUnittestOutput(output string) (total, passed, failed, errors int) {
	if rm := unittestRanRe.FindStringSubmatch(output); rm != nil {
		total = atoiOr(rm[1], 0)
	}
	if total == 0 {
		return 0, 0, 0, 0
	}
	if unittestOKRe.MatchString(output) {
		return total, total, 0, 0
	}
	if fm := unittestResultRe.FindStringSubmatch(output); fm != nil {
		failed = atoiOr(fm[1], 0)
		errors = atoiOr(fm[2], 0)
	}
	passed = total - failed - errors
	if passed < 0 {
		passed = 0
	}
	return total, passed, failed, errors
}

// parseTestOutput tries pytest parsing first, falling back to unittest,
// matching run_tests' own fallback order.
func parseTestOutput(output string) (total, passed, failed, errors int) {
	total, passed, failed, errors = parsePytestOutput(output)
	if total == 0 {
		return parseUnittestOutput(output)
	}
	return total, passed, failed, errors
}

// RunHostTestCommand runs command in workdir via the shell and parses its
// output into a TestRunResult. Grounded on controller/test_runner.py's
// run_tests with use_docker=False: an operator-invoked test run (the
// `plan --test-command` flag) is a deliberate, explicit host action, not
// a capability a reasoner proposes, so it bypasses the gate/sandbox path
// the way the Python original's non-Docker branch does.
func RunHostTestCommand(ctx context.Context, workdir, command string) TestRunResult {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = workdir
	out, err := cmd.CombinedOutput()
	output := string(out)

	timedOut := ctx.Err() == context.DeadlineExceeded
	total, passed, failed, errors := parseTestOutput(output)

	exitOK := err == nil
	return TestRunResult{
		Passed:      exitOK && failed == 0 && errors == 0,
		TotalTests:  total,
		PassedTests: passed,
		FailedTests: failed,
		ErrorTests:  errors,
		TimedOut:    timedOut,
	}
}

// TestDelta is the change in test outcomes across a patch. Grounded on
// controller/test_delta.py's TestDelta dataclass.
type TestDelta struct {
	Baseline TestRunResult
	Patched  TestRunResult
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// TestsFixed is the number of tests that went from failing to passing.
func (d TestDelta) TestsFixed() int {
	return maxInt(0, d.Patched.PassedTests-d.Baseline.PassedTests)
}

// TestsBroken is the number of tests that went from passing to failing.
func (d TestDelta) TestsBroken() int {
	return maxInt(0, d.Baseline.PassedTests-d.Patched.PassedTests)
}

// NetChange is the signed change in passing test count.
func (d TestDelta) NetChange() int {
	return d.Patched.PassedTests - d.Baseline.PassedTests
}

// Improved reports whether the patch made net progress without the
// patched run timing out.
func (d TestDelta) Improved() bool {
	return d.NetChange() > 0 && !d.Patched.TimedOut
}

// Regression reports whether the patch broke tests that used to pass.
func (d TestDelta) Regression() bool {
	return d.NetChange() < 0 || (d.Baseline.Passed && !d.Patched.Passed)
}

// RewardFromTestDelta computes the literal "Test delta" reward spec.md
// §4.J names: 1.0 for a full recovery (all tests pass after patch, at
// least one failed before), a scaled negative reward on regression, a
// scaled positive reward on partial improvement, 0 otherwise. Grounded
// on controller/test_delta.py's TestDelta.reward. Kept distinct from
// FromTests (controller/reward/combine.py's reward_from_tests), which
// uses different constants (0.3/-0.5 flat, no 0.5 scaling) and comes
// from a different source function, not a bug to unify.
func RewardFromTestDelta(d TestDelta) float64 {
	if d.Baseline.TotalTests == 0 {
		return 0.0
	}
	if d.Patched.Passed && !d.Baseline.Passed {
		return 1.0
	}
	if d.Regression() {
		broken := float64(d.TestsBroken())
		total := float64(maxInt(1, d.Baseline.TotalTests))
		return clamp(-0.5 - 0.5*(broken/total))
	}
	if d.Improved() {
		fixed := float64(d.TestsFixed())
		denom := float64(maxInt(1, d.Baseline.FailedTests))
		return clamp(0.5 * (fixed / denom))
	}
	return 0.0
}

// CombineWithTestDelta merges a plan-progress reward with a literal
// Test-delta reward, the §4.J combination spec.md describes as the
// default plan=0.4/test=0.6 mix. Distinct from CombineWeights, which
// combines with FromTests instead; either may be nil to score from one
// signal alone.
func CombineWithTestDelta(progress *PlanProgress, delta *TestDelta, weights RewardWeights) float64 {
	if weights.Plan == 0 && weights.Test == 0 {
		weights = DefaultRewardWeights
	}

	var rPlan, rTest, totalWeight float64
	if progress != nil {
		rPlan = FromPlanProgress(*progress)
		totalWeight += weights.Plan
	}
	if delta != nil {
		rTest = RewardFromTestDelta(*delta)
		totalWeight += weights.Test
	}
	if totalWeight == 0 {
		return 0.0
	}
	return clamp((rPlan*weights.Plan + rTest*weights.Test) / totalWeight)
}
