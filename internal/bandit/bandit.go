// Package bandit implements arm selection for the learner: Thompson
// sampling, UCB1, and epsilon-greedy over per-arm {n, mean} statistics,
// all deterministic given an explicit seed.
package bandit

import (
	"math"
	"math/rand"
)

// Algorithm names a selection strategy.
type Algorithm string

const (
	Thompson     Algorithm = "thompson"
	UCB1         Algorithm = "ucb1"
	EpsilonGreedy Algorithm = "epsilon_greedy"
)

// ArmStats is the sufficient statistic set bandit selection needs for one
// arm: how many times it has been pulled and its mean observed reward.
type ArmStats struct {
	ArmKey string
	N      int
	Mean   float64
}

func statsByKey(stats []ArmStats) map[string]ArmStats {
	m := make(map[string]ArmStats, len(stats))
	for _, s := range stats {
		m[s.ArmKey] = s
	}
	return m
}

// ThompsonSelect picks an arm via Normal-Normal Thompson sampling: each
// candidate's posterior mean is sampled as Normal(mu, 1/sqrt(max(1,n))),
// and the highest sample wins. Unknown candidates default to mu=0, n=0.
// Grounded on the source's thompson_select.
func ThompsonSelect(candidates []string, stats []ArmStats, seed int64) string {
	byKey := statsByKey(stats)
	rng := rand.New(rand.NewSource(seed))

	var best string
	bestSample := math.Inf(-1)
	found := false
	for _, c := range candidates {
		s := byKey[c]
		sigma := 1.0 / math.Sqrt(math.Max(1, float64(s.N)))
		sample := s.Mean + rng.NormFloat64()*sigma
		if !found || sample > bestSample {
			best = c
			bestSample = sample
			found = true
		}
	}
	if !found {
		panic("bandit: ThompsonSelect called with no candidates")
	}
	return best
}

// UCB1Select picks an arm via the UCB1 upper-confidence-bound rule: any
// arm with zero pulls is selected immediately (to guarantee every arm is
// tried at least once); otherwise the arm maximizing
// mean + c*sqrt(ln(totalPulls)/n) wins. c defaults to 2 when <= 0.
func UCB1Select(candidates []string, stats []ArmStats, c float64) string {
	if c <= 0 {
		c = 2
	}
	byKey := statsByKey(stats)

	totalPulls := 0
	for _, cand := range candidates {
		totalPulls += byKey[cand].N
	}

	for _, cand := range candidates {
		if byKey[cand].N == 0 {
			return cand
		}
	}

	var best string
	bestScore := math.Inf(-1)
	found := false
	for _, cand := range candidates {
		s := byKey[cand]
		score := s.Mean + c*math.Sqrt(math.Log(float64(totalPulls))/float64(s.N))
		if !found || score > bestScore {
			best = cand
			bestScore = score
			found = true
		}
	}
	if !found {
		panic("bandit: UCB1Select called with no candidates")
	}
	return best
}

// EpsilonGreedySelect explores uniformly at random with probability
// epsilon (using a seeded RNG for determinism) and otherwise exploits the
// highest-mean candidate.
func EpsilonGreedySelect(candidates []string, stats []ArmStats, epsilon float64, seed int64) string {
	if len(candidates) == 0 {
		panic("bandit: EpsilonGreedySelect called with no candidates")
	}
	rng := rand.New(rand.NewSource(seed))
	if rng.Float64() < epsilon {
		return candidates[rng.Intn(len(candidates))]
	}

	byKey := statsByKey(stats)
	var best string
	bestMean := math.Inf(-1)
	found := false
	for _, cand := range candidates {
		mean := byKey[cand].Mean
		if !found || mean > bestMean {
			best = cand
			bestMean = mean
			found = true
		}
	}
	return best
}

// Select dispatches to the given algorithm. ucbC and epsilon are only
// consulted for their respective algorithms and may be zero to use
// defaults (ucbC->2, epsilon->0.1).
func Select(candidates []string, stats []ArmStats, algorithm Algorithm, seed int64, ucbC, epsilon float64) string {
	switch algorithm {
	case UCB1:
		return UCB1Select(candidates, stats, ucbC)
	case EpsilonGreedy:
		if epsilon <= 0 {
			epsilon = 0.1
		}
		return EpsilonGreedySelect(candidates, stats, epsilon, seed)
	default:
		return ThompsonSelect(candidates, stats, seed)
	}
}
