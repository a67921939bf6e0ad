package bandit

import "strings"

// Category namespaces an arm: plan, prompt, retrieval, search, test, or
// model. Grounded on upstream_learner/arms.py's ArmCategory.
type Category string

const (
	CategoryPlan      Category = "plan"
	CategoryPrompt    Category = "prompt"
	CategoryRetrieval Category = "retrieval"
	CategorySearch    Category = "search"
	CategoryTest      Category = "test"
	CategoryModel     Category = "model"
)

// AllCategories is the default category set a MultiArmLearner selects
// over when none is specified.
var AllCategories = []Category{
	CategoryPlan, CategoryPrompt, CategoryRetrieval, CategorySearch, CategoryTest, CategoryModel,
}

// Arm is one selectable option within a category.
type Arm struct {
	Key         string
	Category    Category
	Config      map[string]any
	Description string
}

// ArmKey returns the fully namespaced "category::name" key. If Key
// already contains "::" it is returned unchanged (mirrors arms.py's
// arm_key property, which tolerates pre-namespaced keys).
func (a Arm) ArmKey() string {
	if strings.Contains(a.Key, "::") {
		return a.Key
	}
	return string(a.Category) + "::" + a.Key
}

// Registry supplies the candidate arms for a category. Callers provide
// their own (static config, dynamically discovered tools, etc).
type Registry interface {
	ArmsForCategory(cat Category) []Arm
}

// StaticRegistry is a Registry backed by a fixed map, the common case.
type StaticRegistry map[Category][]Arm

func (r StaticRegistry) ArmsForCategory(cat Category) []Arm {
	return r[cat]
}
