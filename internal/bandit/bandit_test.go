package bandit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThompsonSelect_Deterministic(t *testing.T) {
	stats := []ArmStats{{ArmKey: "a", N: 10, Mean: 0.9}, {ArmKey: "b", N: 10, Mean: 0.1}}
	s1 := ThompsonSelect([]string{"a", "b"}, stats, 42)
	s2 := ThompsonSelect([]string{"a", "b"}, stats, 42)
	assert.Equal(t, s1, s2)
}

func TestThompsonSelect_UnknownArmDefaultsToZero(t *testing.T) {
	// An unseen arm shouldn't crash selection.
	got := ThompsonSelect([]string{"new_arm"}, nil, 1)
	assert.Equal(t, "new_arm", got)
}

func TestUCB1Select_PrefersUnpulledArm(t *testing.T) {
	stats := []ArmStats{{ArmKey: "a", N: 5, Mean: 0.9}}
	got := UCB1Select([]string{"a", "b"}, stats, 2)
	assert.Equal(t, "b", got)
}

func TestUCB1Select_BalancesMeanAndUncertainty(t *testing.T) {
	stats := []ArmStats{
		{ArmKey: "a", N: 100, Mean: 0.5},
		{ArmKey: "b", N: 2, Mean: 0.45},
	}
	got := UCB1Select([]string{"a", "b"}, stats, 2)
	assert.Equal(t, "b", got) // low-n arm's bonus should win here
}

func TestEpsilonGreedySelect_ExploitsWhenNotExploring(t *testing.T) {
	stats := []ArmStats{{ArmKey: "a", N: 10, Mean: 0.9}, {ArmKey: "b", N: 10, Mean: 0.1}}
	got := EpsilonGreedySelect([]string{"a", "b"}, stats, 0.0, 1)
	assert.Equal(t, "a", got)
}

func TestEpsilonGreedySelect_Deterministic(t *testing.T) {
	stats := []ArmStats{{ArmKey: "a", N: 10, Mean: 0.9}, {ArmKey: "b", N: 10, Mean: 0.1}}
	s1 := EpsilonGreedySelect([]string{"a", "b"}, stats, 0.5, 7)
	s2 := EpsilonGreedySelect([]string{"a", "b"}, stats, 0.5, 7)
	assert.Equal(t, s1, s2)
}

func TestArm_ArmKeyNamespacesByCategory(t *testing.T) {
	a := Arm{Key: "direct", Category: CategoryPlan}
	assert.Equal(t, "plan::direct", a.ArmKey())
}

func TestArm_ArmKeyLeavesPrenamespacedKeyAlone(t *testing.T) {
	a := Arm{Key: "plan::already_namespaced", Category: CategoryPlan}
	assert.Equal(t, "plan::already_namespaced", a.ArmKey())
}
