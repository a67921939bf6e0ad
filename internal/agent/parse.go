package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dawsonblock/rfsn-kernel/internal/capability"
	"github.com/dawsonblock/rfsn-kernel/internal/rfsn"
)

// ProposalError reports that raw reasoner output could not be turned
// into a proposal: invalid JSON, wrong shape, or an empty actions list.
type ProposalError struct {
	msg string
}

func (e *ProposalError) Error() string { return e.msg }

func proposalErrorf(format string, args ...any) error {
	return &ProposalError{msg: fmt.Sprintf(format, args...)}
}

// stripFences removes a single leading/trailing markdown code fence
// (```json ... ``` or plain ``` ... ```) if present, leaving the JSON
// body untouched otherwise.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

// ParseLLMJSON parses raw reasoner output into a list of proposed
// actions. Output must be a JSON object of the form
// {"actions": [{"kind": "...", "payload": {...}, "justification": "..."}]}.
func ParseLLMJSON(text string) ([]rfsn.ProposedAction, error) {
	text = stripFences(text)

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, proposalErrorf("reasoner output was not valid JSON: %v", err)
	}

	rawActions, ok := obj["actions"].([]any)
	if !ok {
		return nil, proposalErrorf("reasoner JSON must have an \"actions\" list")
	}

	actions := make([]rfsn.ProposedAction, 0, len(rawActions))
	for i, rawAction := range rawActions {
		m, ok := rawAction.(map[string]any)
		if !ok {
			return nil, proposalErrorf("actions[%d] must be an object", i)
		}

		kindStr, ok := m["kind"].(string)
		if !ok || kindStr == "" {
			return nil, proposalErrorf("actions[%d].kind must be a non-empty string", i)
		}

		var payload any = map[string]any{}
		if p, present := m["payload"]; present {
			pm, ok := p.(map[string]any)
			if !ok {
				return nil, proposalErrorf("actions[%d].payload must be an object", i)
			}
			payload = pm
		}

		justification, _ := m["justification"].(string)
		if justification == "" {
			justification = fmt.Sprintf("LLM proposed %s", kindStr)
		}

		actions = append(actions, rfsn.ProposedAction{
			Kind:          rfsn.ActionKind(kindStr),
			Payload:       payload,
			Justification: justification,
		})
	}

	if len(actions) == 0 {
		return nil, proposalErrorf("actions list must not be empty")
	}

	return actions, nil
}

// ValidationResult is the verdict of a pre-gate tool_call schema check.
type ValidationResult struct {
	OK    bool
	Error string
}

// ValidateToolCall checks a tool_call action's payload against the
// registered capability's schema before it ever reaches the gate. Every
// other action kind passes through untouched; the gate is responsible
// for those.
func ValidateToolCall(registry *capability.Registry, action rfsn.ProposedAction) ValidationResult {
	if action.Kind != rfsn.KindToolCall {
		return ValidationResult{OK: true}
	}

	payload, ok := action.Payload.(map[string]any)
	if !ok {
		return ValidationResult{OK: false, Error: "tool_call.payload must be an object"}
	}

	tool, _ := payload["tool"].(string)
	if tool == "" {
		return ValidationResult{OK: false, Error: "tool_call.payload.tool must be a non-empty string"}
	}

	args, _ := payload["arguments"].(map[string]any)
	if args == nil {
		args, _ = payload["args"].(map[string]any)
	}
	if args == nil {
		args = map[string]any{}
	}

	if registry == nil {
		return ValidationResult{OK: true}
	}

	spec, ok := registry.Get(tool)
	if !ok {
		return ValidationResult{OK: false, Error: fmt.Sprintf("unknown tool %q (no schema)", tool)}
	}

	if err := capability.ValidateArguments(spec, args); err != nil {
		return ValidationResult{OK: false, Error: fmt.Sprintf("tool %q: %v", tool, err)}
	}

	return ValidationResult{OK: true}
}
