package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dawsonblock/rfsn-kernel/internal/policy"
	"github.com/dawsonblock/rfsn-kernel/internal/rfsn"
)

func world() rfsn.WorldSnapshot {
	return rfsn.WorldSnapshot{SessionID: "s1", WorldStateHash: "h", SystemClean: true}
}

func TestGate_DeniesShortJustification(t *testing.T) {
	d := Gate(world(), rfsn.ProposedAction{Kind: rfsn.KindMessageSend, Justification: "hi"}, policy.Default())
	assert.False(t, d.Allow)
}

func TestGate_PatchPlanAlwaysAllowed(t *testing.T) {
	d := Gate(world(), rfsn.ProposedAction{Kind: rfsn.KindPatchPlan, Justification: "a good reason"}, policy.Default())
	assert.True(t, d.Allow)
}

func TestGate_CommandDeniedByDefault(t *testing.T) {
	d := Gate(world(), rfsn.ProposedAction{
		Kind: rfsn.KindCommand, Payload: "ls -la", Justification: "list files please",
	}, policy.Default())
	assert.False(t, d.Allow)
}

func TestGate_CommandBlockedPrefix(t *testing.T) {
	p := policy.Dev()
	d := Gate(world(), rfsn.ProposedAction{
		Kind: rfsn.KindCommand, Payload: "rm -rf /", Justification: "cleanup time",
	}, p)
	assert.False(t, d.Allow)
}

func TestGate_ToolCallDeniedForUnknownTool(t *testing.T) {
	d := Gate(world(), rfsn.ProposedAction{
		Kind:          rfsn.KindToolCall,
		Payload:       map[string]any{"tool": "shell_command", "arguments": map[string]any{}},
		Justification: "need a shell",
	}, policy.Default())
	assert.False(t, d.Allow)
}

func TestGate_ToolCallDeniedForBlockedPath(t *testing.T) {
	d := Gate(world(), rfsn.ProposedAction{
		Kind: rfsn.KindToolCall,
		Payload: map[string]any{
			"tool":      "read_file",
			"arguments": map[string]any{"path": "./secrets.txt"},
		},
		Justification: "reading a config file",
	}, policy.Default())
	assert.False(t, d.Allow)
}

func TestGate_ToolCallAllowedForOrdinaryPath(t *testing.T) {
	d := Gate(world(), rfsn.ProposedAction{
		Kind: rfsn.KindToolCall,
		Payload: map[string]any{
			"tool":      "read_file",
			"arguments": map[string]any{"path": "./main.go"},
		},
		Justification: "reading the entry point",
	}, policy.Default())
	assert.True(t, d.Allow)
}

func TestGate_PermissionRequestDeniedWhenApprovalRequired(t *testing.T) {
	d := Gate(world(), rfsn.ProposedAction{
		Kind: rfsn.KindPermissionReq, Justification: "need elevated rights",
	}, policy.Default())
	assert.False(t, d.Allow)
}

func TestGate_UnknownKindDenied(t *testing.T) {
	d := Gate(world(), rfsn.ProposedAction{
		Kind: "made_up_kind", Justification: "this should not matter at all",
	}, policy.Default())
	assert.False(t, d.Allow)
}

func TestGate_PatchDeniedForWorldSnapshotWithoutPassingTests(t *testing.T) {
	d := Gate(world(), rfsn.ProposedAction{
		Kind: rfsn.KindPatch, Payload: "diff --git a b\n", Justification: "fixing the bug",
	}, policy.Default())
	assert.False(t, d.Allow)
	assert.Contains(t, d.Reason, "tests not passing")
}

func TestGate_PatchAllowedForWorldSnapshotWithPassingTests(t *testing.T) {
	w := world()
	w.TestsPassed = true
	d := Gate(w, rfsn.ProposedAction{
		Kind: rfsn.KindPatch, Payload: "diff --git a b\n", Justification: "fixing the bug",
	}, policy.Default())
	assert.True(t, d.Allow)
}

func TestGatePatchWithState_DeniesDirtyTests(t *testing.T) {
	state := rfsn.StateSnapshot{RepoID: "r", TestsPassed: false}
	d := GatePatchWithState(state, rfsn.ProposedAction{
		Kind: rfsn.KindPatch, Payload: "diff --git a b\n", Justification: "fixing the bug",
	}, policy.Default())
	assert.False(t, d.Allow)
}

func TestGatePatchWithState_NormalizesTrailingWhitespace(t *testing.T) {
	state := rfsn.StateSnapshot{RepoID: "r", TestsPassed: true}
	d := GatePatchWithState(state, rfsn.ProposedAction{
		Kind: rfsn.KindPatch, Payload: "line one   \nline two\t\n\n\n", Justification: "fixing whitespace",
	}, policy.Default())
	assert.True(t, d.Allow)
	assert.NotNil(t, d.NormalizedAction)
	assert.Equal(t, "line one\nline two\n", d.NormalizedAction.Payload)
}

func TestGate_Deterministic(t *testing.T) {
	action := rfsn.ProposedAction{
		Kind:          rfsn.KindToolCall,
		Payload:       map[string]any{"tool": "read_file", "arguments": map[string]any{"path": "./x.go"}},
		Justification: "checking the file contents",
	}
	d1 := Gate(world(), action, policy.Default())
	d2 := Gate(world(), action, policy.Default())
	assert.Equal(t, d1, d2)
}
