package bandit

import "github.com/dawsonblock/rfsn-kernel/internal/outcomes"

// Selection is the set of arms chosen for one context, one per category.
type Selection struct {
	Arms       map[Category]Arm
	ContextKey string
	Seed       int64
}

// ToMap renders the selection as category -> arm_key, the shape that
// gets attached to a ledger/outcome record.
func (s Selection) ToMap() map[string]string {
	out := make(map[string]string, len(s.Arms))
	for cat, arm := range s.Arms {
		out[string(cat)] = arm.ArmKey()
	}
	return out
}

// Config returns category -> arm.Config, handed to the executing
// component (planner, prompt builder, retriever, etc).
func (s Selection) Config() map[Category]map[string]any {
	out := make(map[Category]map[string]any, len(s.Arms))
	for cat, arm := range s.Arms {
		out[cat] = arm.Config
	}
	return out
}

// SummaryReader is the subset of outcomes.DB the learner needs to fetch
// per-context arm statistics.
type SummaryReader interface {
	Summary(contextKey string) ([]outcomes.ArmSummary, error)
}

// Learner selects and records bandit arms across categories, using a
// seed offset per category index to decorrelate draws sharing one base
// seed. Grounded on upstream_learner/arm_registry.py's MultiArmLearner.
type Learner struct {
	db         SummaryReader
	registry   Registry
	algorithm  Algorithm
	categories []Category
}

// NewLearner builds a Learner. categories defaults to AllCategories when
// nil.
func NewLearner(db SummaryReader, registry Registry, algorithm Algorithm, categories []Category) *Learner {
	if categories == nil {
		categories = AllCategories
	}
	return &Learner{db: db, registry: registry, algorithm: algorithm, categories: categories}
}

// Select chooses one arm per category for contextKey, offsetting seed by
// the category's index in l.categories so categories don't draw
// identical random streams.
func (l *Learner) Select(contextKey string, seed int64, categories []Category) (Selection, error) {
	if categories == nil {
		categories = l.categories
	}

	summary, err := l.db.Summary(contextKey)
	if err != nil {
		return Selection{}, err
	}
	allStats := statsFromSummary(summary)

	sel := Selection{Arms: make(map[Category]Arm, len(categories)), ContextKey: contextKey, Seed: seed}
	for i, cat := range categories {
		arms := l.registry.ArmsForCategory(cat)
		if len(arms) == 0 {
			continue
		}
		candidates := make([]string, 0, len(arms))
		byKey := make(map[string]Arm, len(arms))
		for _, a := range arms {
			candidates = append(candidates, a.ArmKey())
			byKey[a.ArmKey()] = a
		}

		var candidateStats []ArmStats
		for _, s := range allStats {
			if _, ok := byKey[s.ArmKey]; ok {
				candidateStats = append(candidateStats, s)
			}
		}

		chosenKey := Select(candidates, candidateStats, l.algorithm, seed+int64(i), 0, 0)
		sel.Arms[cat] = byKey[chosenKey]
	}
	return sel, nil
}

func statsFromSummary(summary []outcomes.ArmSummary) []ArmStats {
	out := make([]ArmStats, 0, len(summary))
	for _, s := range summary {
		out = append(out, ArmStats{ArmKey: s.ArmKey, N: s.N, Mean: s.Mean})
	}
	return out
}

// Recorder is the subset of outcomes.DB the learner needs to persist a
// selection's reward.
type Recorder interface {
	Record(contextKey, armKey string, reward float64, metaJSON, tsUTC string) error
	RecordRich(o outcomes.RichOutcome) error
}

// Record writes one plain outcome row per category in sel, sharing the
// same reward and timestamp.
func Record(db Recorder, sel Selection, reward float64, metaJSON, tsUTC string) error {
	for _, arm := range sel.Arms {
		if err := db.Record(sel.ContextKey, arm.ArmKey(), reward, metaJSON, tsUTC); err != nil {
			return err
		}
	}
	return nil
}

// RecordRich writes one plain outcome row (the one Select's Summary
// reads) and one rich outcome row per category in sel.
func RecordRich(db Recorder, sel Selection, base outcomes.RichOutcome) error {
	for _, arm := range sel.Arms {
		o := base
		o.ContextKey = sel.ContextKey
		o.ArmKey = arm.ArmKey()
		if err := db.Record(o.ContextKey, o.ArmKey, o.Reward, o.MetaJSON, o.TSUtc); err != nil {
			return err
		}
		if err := db.RecordRich(o); err != nil {
			return err
		}
	}
	return nil
}
