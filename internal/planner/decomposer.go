package planner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dawsonblock/rfsn-kernel/internal/rfsn"
)

type patternStep struct {
	stepType    string
	description string
}

type pattern struct {
	re    *regexp.Regexp
	steps []patternStep
}

// patterns mirrors controller/planner/decomposer.py's PATTERNS table:
// rule-based goal decomposition for common multi-step phrasing.
var patterns = []pattern{
	{
		re: regexp.MustCompile(`(list|show|find).*(and|then).*(read|summarize|analyze)`),
		steps: []patternStep{
			{"list_files", "List the relevant files"},
			{"read_content", "Read the file contents"},
			{"summarize", "Summarize the findings"},
		},
	},
	{
		re: regexp.MustCompile(`(create|write).*(and|then).*(test|verify)`),
		steps: []patternStep{
			{"create", "Create the requested content"},
			{"verify", "Verify the result"},
		},
	},
	{
		re: regexp.MustCompile(`(search|find).*(and|then).*(update|modify|change)`),
		steps: []patternStep{
			{"search", "Search for the target"},
			{"modify", "Apply the changes"},
		},
	},
	{
		re: regexp.MustCompile(`(read|analyze).*(and|then).*(store|save|remember)`),
		steps: []patternStep{
			{"read", "Read and analyze the content"},
			{"store", "Store the results in memory"},
		},
	},
}

func matchPattern(goal string) []patternStep {
	lower := strings.ToLower(goal)
	for _, p := range patterns {
		if p.re.MatchString(lower) {
			return p.steps
		}
	}
	return nil
}

// DecomposeGoal breaks a high-level goal into executable steps, using
// rule-based patterns for common goal shapes and falling back to a
// single direct action.
func DecomposeGoal(goal string) []PlanStep {
	if matched := matchPattern(goal); matched != nil {
		return stepsFromPattern(goal, matched)
	}
	return []PlanStep{directStep(goal)}
}

func stepsFromPattern(goal string, patternSteps []patternStep) []PlanStep {
	var steps []PlanStep
	prevID := ""
	for _, ps := range patternSteps {
		action := actionForStep(ps.stepType, goal)
		var deps []string
		if prevID != "" {
			deps = []string{prevID}
		}
		step := NewPlanStep(ps.description, action, deps)
		steps = append(steps, step)
		prevID = step.StepID
	}
	return steps
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func directStep(goal string) PlanStep {
	lower := strings.ToLower(goal)

	var action rfsn.ProposedAction
	switch {
	case containsAny(lower, "list", "show", "find files"):
		action = rfsn.ProposedAction{
			Kind:          rfsn.KindToolCall,
			Payload:       map[string]any{"tool": "list_dir", "arguments": map[string]any{"path": "./"}},
			Justification: goal,
		}
	case containsAny(lower, "read", "open", "view"):
		action = rfsn.ProposedAction{
			Kind:          rfsn.KindToolCall,
			Payload:       map[string]any{"tool": "read_file", "arguments": map[string]any{"path": "./README.md"}},
			Justification: goal,
		}
	case containsAny(lower, "search", "find"):
		action = rfsn.ProposedAction{
			Kind:          rfsn.KindToolCall,
			Payload:       map[string]any{"tool": "search_files", "arguments": map[string]any{"directory": "./", "pattern": "*"}},
			Justification: goal,
		}
	case containsAny(lower, "remember", "store", "save"):
		action = rfsn.ProposedAction{
			Kind:          rfsn.KindToolCall,
			Payload:       map[string]any{"tool": "memory_store", "arguments": map[string]any{"key": "note", "value": goal}},
			Justification: goal,
		}
	default:
		action = rfsn.ProposedAction{
			Kind:          rfsn.KindMessageSend,
			Payload:       map[string]any{"message": fmt.Sprintf("I need more specific instructions to: %s", goal)},
			Justification: "Goal requires clarification",
		}
	}

	return NewPlanStep(fmt.Sprintf("Execute: %s", goal), action, nil)
}

func actionForStep(stepType, goal string) rfsn.ProposedAction {
	justification := fmt.Sprintf("Step in plan: %s", goal)
	switch stepType {
	case "list_files":
		return rfsn.ProposedAction{
			Kind:          rfsn.KindToolCall,
			Payload:       map[string]any{"tool": "list_dir", "arguments": map[string]any{"path": "./"}},
			Justification: justification,
		}
	case "read_content":
		return rfsn.ProposedAction{
			Kind:          rfsn.KindToolCall,
			Payload:       map[string]any{"tool": "read_file", "arguments": map[string]any{"path": "./README.md"}},
			Justification: justification,
		}
	case "summarize", "analyze":
		return rfsn.ProposedAction{
			Kind:          rfsn.KindMessageSend,
			Payload:       map[string]any{"message": "Summarizing findings..."},
			Justification: justification,
		}
	case "create", "modify":
		return rfsn.ProposedAction{
			Kind:          rfsn.KindToolCall,
			Payload:       map[string]any{"tool": "write_file", "arguments": map[string]any{"path": "./output.txt", "content": ""}},
			Justification: justification,
		}
	case "verify":
		return rfsn.ProposedAction{
			Kind:          rfsn.KindMessageSend,
			Payload:       map[string]any{"message": "Verifying results..."},
			Justification: justification,
		}
	case "search":
		return rfsn.ProposedAction{
			Kind:          rfsn.KindToolCall,
			Payload:       map[string]any{"tool": "search_files", "arguments": map[string]any{"directory": "./", "pattern": "*"}},
			Justification: justification,
		}
	case "store":
		return rfsn.ProposedAction{
			Kind:          rfsn.KindToolCall,
			Payload:       map[string]any{"tool": "memory_store", "arguments": map[string]any{"key": "result", "value": ""}},
			Justification: justification,
		}
	default:
		return rfsn.ProposedAction{
			Kind:          rfsn.KindMessageSend,
			Payload:       map[string]any{"message": "Unknown step type: " + stepType},
			Justification: "Fallback",
		}
	}
}
