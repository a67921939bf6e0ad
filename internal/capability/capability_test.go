package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dawsonblock/rfsn-kernel/internal/policy"
)

func echoHandler(_ *ExecutionContext, args map[string]any) Result {
	return Result{Success: true, Output: args}
}

func newTestRouter() (*Router, *Registry) {
	reg := NewRegistry()
	reg.Register(Spec{
		Name:    "read_file",
		Handler: echoHandler,
		Schema:  []Field{{Name: "path", Required: true, Kind: KindString}},
		Risk:    RiskLow,
		Budget:  Budget{CallsPerTurn: 2, MaxBytes: 1000},
		Permission: PermissionRule{RestrictPathsToWorkdir: true},
	})
	reg.Register(Spec{
		Name:    "write_file",
		Handler: echoHandler,
		Schema:  []Field{{Name: "path", Required: true, Kind: KindString}, {Name: "content", Required: true, Kind: KindString}},
		Risk:    RiskHigh,
		Budget:  Budget{CallsPerTurn: 5, MaxBytes: 100},
		Permission: PermissionRule{RestrictPathsToWorkdir: true, RequireExplicitGrant: true, DenyInReplay: true, Mutates: true},
	})
	reg.Register(Spec{
		Name:    "sandbox_exec",
		Handler: echoHandler,
		Schema:  []Field{{Name: "command", Required: true, Kind: KindString}},
		Risk:    RiskHigh,
		Budget:  Budget{CallsPerTurn: 8},
		Permission: PermissionRule{RequireExplicitGrant: true, DenyInReplay: true, Mutates: true},
	})
	return NewRouter(reg), reg
}

func TestRoute_UnknownCapability(t *testing.T) {
	router, _ := newTestRouter()
	ctx := NewExecutionContext("s1", "/work", policy.Default())
	result := router.Route(ctx, "does_not_exist", map[string]any{})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "tool:unknown_capability")
}

func TestRoute_SchemaValidationRejectsMissingField(t *testing.T) {
	router, _ := newTestRouter()
	ctx := NewExecutionContext("s1", "/work", policy.Default())
	result := router.Route(ctx, "read_file", map[string]any{})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "schema:invalid_arguments")
}

func TestRoute_PathScopingRejectsOutsideWorkdir(t *testing.T) {
	router, _ := newTestRouter()
	ctx := NewExecutionContext("s1", "/work", policy.Default())
	result := router.Route(ctx, "read_file", map[string]any{"path": "/etc/passwd"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "perm:path_outside_workdir")
}

func TestRoute_RequiresExplicitGrantForMutatingTool(t *testing.T) {
	router, _ := newTestRouter()
	ctx := NewExecutionContext("s1", "/work", policy.Default())
	result := router.Route(ctx, "write_file", map[string]any{"path": "/work/a.txt", "content": "hi"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "perm:grant_required")
}

func TestRoute_GrantedToolSucceeds(t *testing.T) {
	router, _ := newTestRouter()
	ctx := NewExecutionContext("s1", "/work", policy.Default())
	ctx.Permissions.GrantTool("write_file")
	result := router.Route(ctx, "write_file", map[string]any{"path": "/work/a.txt", "content": "hi"})
	assert.True(t, result.Success)
}

func TestRoute_BudgetExceeded(t *testing.T) {
	router, _ := newTestRouter()
	ctx := NewExecutionContext("s1", "/work", policy.Default())
	for i := 0; i < 2; i++ {
		result := router.Route(ctx, "read_file", map[string]any{"path": "/work/a.txt"})
		require.True(t, result.Success)
	}
	result := router.Route(ctx, "read_file", map[string]any{"path": "/work/a.txt"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "budget:exceeded")
}

func TestRoute_DeniedInReplayMode(t *testing.T) {
	router, _ := newTestRouter()
	ctx := NewExecutionContext("s1", "/work", policy.Default())
	ctx.Permissions.GrantTool("write_file")
	ctx.ReplayMode = ReplayPlay
	result := router.Route(ctx, "write_file", map[string]any{"path": "/work/a.txt", "content": "hi"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "deny:denied_in_replay")
}

func TestRoute_HostExecFallsBackToSandbox(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Spec{
		Name: "run_command", Handler: echoHandler,
		Schema: []Field{{Name: "command", Required: true, Kind: KindString}},
		Permission: PermissionRule{RequireExplicitGrant: true},
	})
	reg.Register(Spec{
		Name: "sandbox_exec", Handler: echoHandler,
		Schema: []Field{{Name: "command", Required: true, Kind: KindString}},
		Permission: PermissionRule{RequireExplicitGrant: true},
	})
	router := NewRouter(reg)
	ctx := NewExecutionContext("s1", "/work", policy.Default())
	ctx.Permissions.GrantTool("sandbox_exec")

	result := router.Route(ctx, "run_command", map[string]any{"command": "echo hi"})
	assert.True(t, result.Success)
}

func TestEnforcePathScope_RejectsParentEscape(t *testing.T) {
	err := EnforcePathScope("/work/sub", "/work/sub/../../etc/passwd")
	assert.Error(t, err)
}

func TestValidateArguments_RejectsUnknownField(t *testing.T) {
	spec := Spec{Schema: []Field{{Name: "path", Required: true, Kind: KindString}}}
	err := ValidateArguments(spec, map[string]any{"path": "x", "extra": 1})
	assert.Error(t, err)
}
