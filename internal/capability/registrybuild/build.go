// Package registrybuild assembles the full capability registry from every
// handler package. It lives outside internal/capability itself because
// the handler packages import capability.ExecutionContext/Result, so the
// registry core cannot import them back without a cycle.
package registrybuild

import (
	"time"

	"github.com/dawsonblock/rfsn-kernel/internal/capability"
	"github.com/dawsonblock/rfsn-kernel/internal/capability/handlers/browser"
	"github.com/dawsonblock/rfsn-kernel/internal/capability/handlers/code"
	"github.com/dawsonblock/rfsn-kernel/internal/capability/handlers/filesystem"
	"github.com/dawsonblock/rfsn-kernel/internal/capability/handlers/memory"
	"github.com/dawsonblock/rfsn-kernel/internal/capability/handlers/reasoning"
	"github.com/dawsonblock/rfsn-kernel/internal/capability/handlers/sandbox"
	"github.com/dawsonblock/rfsn-kernel/internal/capability/handlers/shell"
)

// Options configures which optional capability groups are registered.
type Options struct {
	MemoryDBPath  string
	SearchBackend browser.SearchBackend
	SandboxConfig sandbox.Config
	AllowHostExec bool
}

// Build assembles the full registry exactly as
// controller/tool_registry.py's build_tool_registry does: every tool
// gets its exact budget and permission rule, and run_command/run_python
// are only added when AllowHostExec is set.
func Build(opts Options) (*capability.Registry, error) {
	reg := capability.NewRegistry()

	reg.Register(capability.Spec{
		Name:    "read_file",
		Handler: filesystem.ReadFile,
		Schema:  []capability.Field{{Name: "path", Required: true, Kind: capability.KindString}},
		Risk:    capability.RiskLow,
		Budget:  capability.Budget{CallsPerTurn: 20, MaxBytes: 200_000},
		Permission: capability.PermissionRule{RestrictPathsToWorkdir: true},
	})
	reg.Register(capability.Spec{
		Name:    "write_file",
		Handler: filesystem.WriteFile,
		Schema: []capability.Field{
			{Name: "path", Required: true, Kind: capability.KindString},
			{Name: "content", Required: true, Kind: capability.KindString},
		},
		Risk:   capability.RiskHigh,
		Budget: capability.Budget{CallsPerTurn: 10, MaxBytes: 200_000},
		Permission: capability.PermissionRule{
			RestrictPathsToWorkdir: true, RequireExplicitGrant: true, DenyInReplay: true, Mutates: true,
		},
	})
	reg.Register(capability.Spec{
		Name:    "list_dir",
		Handler: filesystem.ListDir,
		Schema:  []capability.Field{{Name: "directory", Required: false, Kind: capability.KindString}},
		Risk:    capability.RiskLow,
		Budget:  capability.Budget{CallsPerTurn: 20, MaxResults: 2000},
		Permission: capability.PermissionRule{RestrictPathsToWorkdir: true},
	})
	reg.Register(capability.Spec{
		Name:    "search_files",
		Handler: filesystem.SearchFiles,
		Schema: []capability.Field{
			{Name: "directory", Required: false, Kind: capability.KindString},
			{Name: "pattern", Required: true, Kind: capability.KindString},
		},
		Risk:   capability.RiskLow,
		Budget: capability.Budget{CallsPerTurn: 10, MaxResults: 500},
		Permission: capability.PermissionRule{RestrictPathsToWorkdir: true},
	})
	reg.Register(capability.Spec{
		Name:    "grep_files",
		Handler: code.GrepFiles,
		Schema: []capability.Field{
			{Name: "directory", Required: false, Kind: capability.KindString},
			{Name: "pattern", Required: true, Kind: capability.KindString},
		},
		Risk:   capability.RiskLow,
		Budget: capability.Budget{CallsPerTurn: 20, MaxResults: 100},
		Permission: capability.PermissionRule{RestrictPathsToWorkdir: true},
	})
	reg.Register(capability.Spec{
		Name:    "apply_diff",
		Handler: code.ApplyDiff,
		Schema: []capability.Field{
			{Name: "path", Required: true, Kind: capability.KindString},
			{Name: "content", Required: true, Kind: capability.KindString},
		},
		Risk:   capability.RiskHigh,
		Budget: capability.Budget{CallsPerTurn: 10},
		Permission: capability.PermissionRule{
			RestrictPathsToWorkdir: true, RequireExplicitGrant: true, DenyInReplay: true, Mutates: true,
		},
	})
	reg.Register(capability.Spec{
		Name:    "get_symbols",
		Handler: code.GetSymbols,
		Schema:  []capability.Field{{Name: "path", Required: true, Kind: capability.KindString}},
		Risk:    capability.RiskLow,
		Budget:  capability.Budget{CallsPerTurn: 20, MaxResults: 100},
		Permission: capability.PermissionRule{RestrictPathsToWorkdir: true},
	})

	memDBPath := opts.MemoryDBPath
	if memDBPath == "" {
		memDBPath = "agent_memory.db"
	}
	memStore, err := memory.Open(memDBPath)
	if err != nil {
		return nil, err
	}
	memHandlers := memory.NewHandlers(memStore, func() string { return time.Now().UTC().Format(time.RFC3339) })

	reg.Register(capability.Spec{
		Name:    "memory_store",
		Handler: memHandlers.Store,
		Schema: []capability.Field{
			{Name: "key", Required: true, Kind: capability.KindString},
			{Name: "value", Required: true, Kind: capability.KindString},
		},
		Risk:       capability.RiskMedium,
		Budget:     capability.Budget{CallsPerTurn: 30},
		Permission: capability.PermissionRule{Mutates: true},
	})
	reg.Register(capability.Spec{
		Name:    "memory_retrieve",
		Handler: memHandlers.Retrieve,
		Schema:  []capability.Field{{Name: "key", Required: true, Kind: capability.KindString}},
		Risk:    capability.RiskLow,
		Budget:  capability.Budget{CallsPerTurn: 40},
	})
	reg.Register(capability.Spec{
		Name:    "memory_search",
		Handler: memHandlers.Search,
		Schema: []capability.Field{
			{Name: "query", Required: true, Kind: capability.KindString},
			{Name: "limit", Required: false, Kind: capability.KindInt},
		},
		Risk:   capability.RiskLow,
		Budget: capability.Budget{CallsPerTurn: 40, MaxResults: 50},
	})
	reg.Register(capability.Spec{
		Name:    "memory_delete",
		Handler: memHandlers.Delete,
		Schema:  []capability.Field{{Name: "key", Required: true, Kind: capability.KindString}},
		Risk:    capability.RiskHigh,
		Budget:  capability.Budget{CallsPerTurn: 10},
		Permission: capability.PermissionRule{RequireExplicitGrant: true, DenyInReplay: true, Mutates: true},
	})

	browserHandlers := browser.NewHandlers(opts.SearchBackend, 200_000)
	reg.Register(capability.Spec{
		Name:    "fetch_url",
		Handler: browserHandlers.FetchURL,
		Schema:  []capability.Field{{Name: "url", Required: true, Kind: capability.KindString}},
		Risk:    capability.RiskMedium,
		Budget:  capability.Budget{CallsPerTurn: 10, MaxBytes: 200_000},
	})
	reg.Register(capability.Spec{
		Name:    "search_web",
		Handler: browserHandlers.SearchWeb,
		Schema: []capability.Field{
			{Name: "query", Required: true, Kind: capability.KindString},
			{Name: "limit", Required: false, Kind: capability.KindInt},
		},
		Risk:   capability.RiskLow,
		Budget: capability.Budget{CallsPerTurn: 10, MaxResults: 10},
	})

	reg.Register(capability.Spec{
		Name:    "think",
		Handler: reasoning.Think,
		Schema:  []capability.Field{{Name: "thought", Required: true, Kind: capability.KindString}},
		Risk:    capability.RiskLow,
		Budget:  capability.Budget{CallsPerTurn: 50},
	})
	reg.Register(capability.Spec{
		Name:    "plan",
		Handler: reasoning.Plan,
		Schema:  []capability.Field{{Name: "goal", Required: true, Kind: capability.KindString}},
		Risk:    capability.RiskLow,
		Budget:  capability.Budget{CallsPerTurn: 10},
	})
	reg.Register(capability.Spec{
		Name:    "ask_user",
		Handler: reasoning.AskUser,
		Schema:  []capability.Field{{Name: "question", Required: true, Kind: capability.KindString}},
		Risk:    capability.RiskLow,
		Budget:  capability.Budget{CallsPerTurn: 5},
	})

	sandboxExecutor, err := sandbox.NewExecutor(opts.SandboxConfig)
	if err != nil {
		return nil, err
	}
	reg.Register(capability.Spec{
		Name:    "sandbox_exec",
		Handler: sandboxExecutor.Handler,
		Schema:  []capability.Field{{Name: "command", Required: true, Kind: capability.KindString}},
		Risk:    capability.RiskHigh,
		Budget:  capability.Budget{CallsPerTurn: 8, MaxBytes: 200_000},
		Permission: capability.PermissionRule{
			RestrictPathsToWorkdir: false, RequireExplicitGrant: true, DenyInReplay: true, Mutates: true,
		},
	})

	if opts.AllowHostExec {
		reg.Register(capability.Spec{
			Name:    "run_command",
			Handler: shell.RunCommand,
			Schema:  []capability.Field{{Name: "command", Required: true, Kind: capability.KindString}},
			Risk:    capability.RiskHigh,
			Budget:  capability.Budget{CallsPerTurn: 12, MaxBytes: 100_000},
			Permission: capability.PermissionRule{
				RestrictPathsToWorkdir: true, RequireExplicitGrant: true, DenyInReplay: true, Mutates: true,
			},
		})
		reg.Register(capability.Spec{
			Name:    "run_python",
			Handler: shell.RunPython,
			Schema:  []capability.Field{{Name: "code", Required: true, Kind: capability.KindString}},
			Risk:    capability.RiskHigh,
			Budget:  capability.Budget{CallsPerTurn: 6, MaxBytes: 100_000},
			Permission: capability.PermissionRule{
				RestrictPathsToWorkdir: true, RequireExplicitGrant: true, DenyInReplay: true, Mutates: true,
			},
		})
	}

	return reg, nil
}
