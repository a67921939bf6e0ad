package agent

import "fmt"

// SystemPrompt is the fixed instruction given to every reasoner call:
// it must emit one JSON object and nothing else. The gate does not
// trust this instruction being followed; ParseLLMJSON is what actually
// enforces shape.
const SystemPrompt = `You are an assistant that MUST output a single JSON object and nothing else.

You propose actions. A safety gate will allow/deny each action.
If a tool is denied, continue with other actions or ask for permission.

You MUST follow this schema:

{
  "actions": [
    {
      "kind": "<string>",
      "payload": { ... },
      "justification": "<string>"
    }
  ]
}

Allowed kinds:
- "message_send": payload {"message": "<string>"}
- "tool_call": payload {"tool": "<string>", "arguments": {...}}
- "memory_write": payload {"key": "<string>", "value": "<string>"}
- "permission_request": payload {"request": "<string>", "why": "<string>"}

Rules:
- Usually propose 1-3 actions.
- If you can answer directly, do only "message_send".
- Use "tool_call" only if needed.
- If a tool might be sensitive, do "permission_request" first.
- Never output markdown. JSON only.`

// UserPrompt assembles the user-facing half of the prompt from the
// built context block and the raw user text.
func UserPrompt(userText, contextBlock string) string {
	return fmt.Sprintf("Context:\n%s\n\nUser:\n%s\n\nReturn JSON only.", contextBlock, userText)
}
