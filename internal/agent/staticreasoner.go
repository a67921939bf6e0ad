package agent

import (
	"encoding/json"
	"strings"
)

// StaticReasoner is a deterministic Reasoner that never calls out to a
// real model: it pattern-matches the user prompt the same way the
// reference mock provider did, so tests and offline demos can drive the
// turn loop without network access. Responses are canned JSON, not
// reasoned about, by design.
type StaticReasoner struct{}

// NewStaticReasoner returns a StaticReasoner.
func NewStaticReasoner() *StaticReasoner {
	return &StaticReasoner{}
}

func (StaticReasoner) CompleteJSON(_ string, user string) (string, error) {
	lower := strings.ToLower(user)

	var body map[string]any
	switch {
	case strings.Contains(lower, "list") && strings.Contains(lower, "file"):
		body = actionBody("tool_call", map[string]any{
			"tool":      "list_dir",
			"arguments": map[string]any{"path": "./"},
		}, "List files as requested")
	case strings.Contains(lower, "read"):
		body = actionBody("tool_call", map[string]any{
			"tool":      "read_file",
			"arguments": map[string]any{"path": "./README.md"},
		}, "Read the requested file")
	default:
		body = actionBody("message_send", map[string]any{
			"message": "I understand you want to: " + headString(user, 100),
		}, "Acknowledge request")
	}

	out, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func actionBody(kind string, payload map[string]any, justification string) map[string]any {
	return map[string]any{
		"actions": []map[string]any{
			{"kind": kind, "payload": payload, "justification": justification},
		},
	}
}
