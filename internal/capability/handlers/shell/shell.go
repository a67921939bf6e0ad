// Package shell implements run_command/run_python as direct host
// execution via os/exec. Only registered when the dev-mode
// allow-host-exec flag is set; otherwise these names are not in the
// registry and the router rejects them as unknown capabilities. The
// router's host-exec -> sandbox_exec fallback applies only to a
// registered name that the session has not been granted.
package shell

import (
	"bytes"
	"context"
	"time"

	"os/exec"

	"github.com/dawsonblock/rfsn-kernel/internal/capability"
)

func run(ctx *capability.ExecutionContext, name string, args []string) capability.Result {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = ctx.WorkingDirectory
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := capability.Result{
		Success:  err == nil,
		Output:   map[string]any{"stdout": stdout.String(), "stderr": stderr.String()},
		Duration: float64(time.Since(start).Microseconds()) / 1000.0,
	}
	if err != nil {
		result.Error = "tool:command_failed: " + err.Error()
	}
	return result
}

func RunCommand(ctx *capability.ExecutionContext, args map[string]any) capability.Result {
	command, _ := args["command"].(string)
	return run(ctx, "sh", []string{"-c", command})
}

func RunPython(ctx *capability.ExecutionContext, args map[string]any) capability.Result {
	code, _ := args["code"].(string)
	return run(ctx, "python3", []string{"-c", code})
}
