package capability

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/dawsonblock/rfsn-kernel/internal/kernelerr"
	"github.com/dawsonblock/rfsn-kernel/internal/logging"
	"go.uber.org/zap"
)

// Router dispatches tool_call actions through the full enforcement chain
// before ever invoking a handler. Grounded on
// controller/tool_router.py's route_tool_call.
type Router struct {
	registry *Registry
}

func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Registry returns the registry r dispatches through, so callers that
// need to inspect a capability's schema ahead of routing (pre-gate
// validation) don't need a second reference threaded everywhere.
func (r *Router) Registry() *Registry {
	return r.registry
}

// Route executes tool with args against ctx, enforcing (in order):
// unknown-capability, schema validation, permission/grant (with
// automatic host-exec -> sandbox-exec fallback), replay-mode block,
// path scoping, budget charge, then invokes the handler.
func (r *Router) Route(ctx *ExecutionContext, tool string, args map[string]any) Result {
	start := time.Now()
	log := logging.Get(logging.CategoryRouter)

	spec, ok := r.registry.Get(tool)
	if !ok {
		log.Warn("unknown capability", zap.String("tool", tool))
		return errResult(kernelerr.Tool("unknown_capability", tool), start)
	}

	if err := ValidateArguments(spec, args); err != nil {
		log.Warn("schema validation failed", zap.String("tool", tool), zap.Error(err))
		return errResult(kernelerr.Schema("invalid_arguments", err.Error()), start)
	}

	if spec.Permission.RequireExplicitGrant && !ctx.Permissions.HasTool(tool) {
		if rewritten, ok := hostExecFallback(tool); ok {
			if sandboxSpec, exists := r.registry.Get(rewritten); exists && ctx.Permissions.HasTool(rewritten) {
				log.Info("rewriting host-exec to sandboxed execution",
					zap.String("from", tool), zap.String("to", rewritten))
				return r.invoke(ctx, rewritten, sandboxSpec, args, start)
			}
		}
		log.Warn("permission denied: missing explicit grant", zap.String("tool", tool))
		return errResult(kernelerr.Perm("grant_required", tool), start)
	}

	if spec.Permission.DenyInReplay && ctx.ReplayMode == ReplayPlay {
		return errResult(kernelerr.Deny("denied_in_replay", tool), start)
	}

	if spec.Permission.RestrictPathsToWorkdir {
		if path, ok := pathArgument(args); ok {
			if err := EnforcePathScope(ctx.WorkingDirectory, path); err != nil {
				log.Warn("path scope violation", zap.String("tool", tool), zap.String("path", path))
				return errResult(kernelerr.Perm("path_outside_workdir", err.Error()), start)
			}
		}
	}

	estimated := EstimateBytes(tool, args, spec.Budget)
	if ok, reason := ctx.Budgets.CheckAndCharge(tool, spec.Budget, estimated); !ok {
		log.Warn("budget exceeded", zap.String("tool", tool), zap.String("reason", reason))
		return errResult(kernelerr.Budget("exceeded", reason), start)
	}

	return r.invoke(ctx, tool, spec, args, start)
}

func (r *Router) invoke(ctx *ExecutionContext, tool string, spec Spec, args map[string]any, start time.Time) Result {
	args = injectSessionDefaults(ctx, tool, args)
	result := spec.Handler(ctx, args)
	result.Duration = float64(time.Since(start).Microseconds()) / 1000.0
	return result
}

func errResult(err *kernelerr.Error, start time.Time) Result {
	return Result{
		Success:  false,
		Error:    err.Error(),
		Duration: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

// hostExecFallback maps a host-exec capability to its sandboxed
// equivalent, matching the router's automatic rewrite for run_command
// and run_python when dev-mode host execution isn't granted.
func hostExecFallback(tool string) (string, bool) {
	switch tool {
	case "run_command", "run_python":
		return "sandbox_exec", true
	default:
		return "", false
	}
}

func pathArgument(args map[string]any) (string, bool) {
	if v, ok := args["path"].(string); ok && v != "" {
		return v, true
	}
	if v, ok := args["directory"].(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// EnforcePathScope resolves both workdir and path to absolute paths and
// requires path to be workdir or a strict subdirectory of it.
func EnforcePathScope(workdir, path string) error {
	absWorkdir, err := filepath.Abs(workdir)
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(absWorkdir, absPath)
	if err != nil {
		return err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return kernelerr.Perm("path_outside_workdir", path)
	}
	return nil
}

// injectSessionDefaults fills in per-session defaults a handler needs but
// the reasoner didn't supply: e.g. forcing a shell capability's cwd to
// the session's working directory, matching tool_router.py's "force
// shell cwd" step.
func injectSessionDefaults(ctx *ExecutionContext, tool string, args map[string]any) map[string]any {
	switch tool {
	case "run_command", "run_python", "sandbox_exec":
		out := make(map[string]any, len(args)+1)
		for k, v := range args {
			out[k] = v
		}
		out["cwd"] = ctx.WorkingDirectory
		return out
	default:
		return args
	}
}
