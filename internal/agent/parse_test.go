package agent

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dawsonblock/rfsn-kernel/internal/capability"
	"github.com/dawsonblock/rfsn-kernel/internal/rfsn"
)

func TestParseLLMJSON_PlainObject(t *testing.T) {
	actions, err := ParseLLMJSON(`{"actions":[{"kind":"message_send","payload":{"message":"hi"},"justification":"because"}]}`)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	require.Equal(t, rfsn.KindMessageSend, actions[0].Kind)
	require.Equal(t, "because", actions[0].Justification)
}

func TestParseLLMJSON_StripsMarkdownFence(t *testing.T) {
	raw := "```json\n{\"actions\":[{\"kind\":\"tool_call\",\"payload\":{\"tool\":\"list_dir\"}}]}\n```"
	actions, err := ParseLLMJSON(raw)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	require.Equal(t, "LLM proposed tool_call", actions[0].Justification)
}

func TestParseLLMJSON_RejectsInvalidJSON(t *testing.T) {
	_, err := ParseLLMJSON("not json")
	require.Error(t, err)
	var pe *ProposalError
	require.ErrorAs(t, err, &pe)
}

func TestParseLLMJSON_RejectsEmptyActions(t *testing.T) {
	_, err := ParseLLMJSON(`{"actions":[]}`)
	require.Error(t, err)
}

func TestParseLLMJSON_RejectsMissingActionsList(t *testing.T) {
	_, err := ParseLLMJSON(`{"foo":"bar"}`)
	require.Error(t, err)
}

func TestValidateToolCall_NonToolCallAlwaysOK(t *testing.T) {
	v := ValidateToolCall(nil, rfsn.ProposedAction{Kind: rfsn.KindMessageSend})
	require.True(t, v.OK)
}

func TestValidateToolCall_MissingRequiredArg(t *testing.T) {
	reg := capability.NewRegistry()
	reg.Register(capability.Spec{
		Name:   "read_file",
		Schema: []capability.Field{{Name: "path", Required: true, Kind: capability.KindString}},
		Risk:   capability.RiskLow,
		Budget: capability.Budget{CallsPerTurn: 10},
		Handler: func(_ *capability.ExecutionContext, _ map[string]any) capability.Result {
			return capability.Result{Success: true}
		},
	})

	action := rfsn.ProposedAction{
		Kind:    rfsn.KindToolCall,
		Payload: map[string]any{"tool": "read_file", "arguments": map[string]any{}},
	}
	v := ValidateToolCall(reg, action)
	require.False(t, v.OK)
	require.Contains(t, v.Error, "missing required field")
}

func TestValidateToolCall_UnknownToolRejected(t *testing.T) {
	reg := capability.NewRegistry()
	action := rfsn.ProposedAction{
		Kind:    rfsn.KindToolCall,
		Payload: map[string]any{"tool": "mystery_tool", "arguments": map[string]any{}},
	}
	v := ValidateToolCall(reg, action)
	require.False(t, v.OK)
	require.Contains(t, v.Error, "no schema")
}
