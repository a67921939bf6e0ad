// Package sandbox implements the sandbox_exec capability as a hardened,
// ephemeral Docker container per call: non-root user, all capabilities
// dropped, no-new-privileges, read-only rootfs with a small tmpfs, and a
// pid limit. Grounded on
// Heikkila-Pty-Ltd-cortex/internal/dispatch/docker.go's
// DockerDispatcher, generalized from its one-container-per-agent-session
// lifecycle to one-container-per-capability-call.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/dawsonblock/rfsn-kernel/internal/capability"
)

// Config mirrors the original's RFSN_DOCKER_* environment variables
// (controller/config.py's DockerConfig), now carried as explicit fields.
type Config struct {
	Image           string
	MemoryLimit     string
	CPULimit        float64
	NetworkDisabled bool
	PidsLimit       int64
}

// Executor runs one-shot commands in hardened Docker containers.
type Executor struct {
	cli *client.Client
	cfg Config
}

func NewExecutor(cfg Config) (*Executor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("sandbox: docker client: %w", err)
	}
	return &Executor{cli: cli, cfg: cfg}, nil
}

// Exec runs command inside a fresh container bind-mounting workdir
// read-write at /workspace, waits for completion, and returns stdout and
// stderr as separate output fields. The container is always removed
// afterward.
func (e *Executor) Exec(ctx context.Context, command, workdir string) capability.Result {
	start := time.Now()

	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: workdir, Target: "/workspace"},
			{Type: mount.TypeTmpfs, Target: "/tmp"},
		},
		AutoRemove:     false,
		ReadonlyRootfs: true,
		CapDrop:        []string{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		NetworkMode:    "none",
		PidsLimit:      &e.cfg.PidsLimit,
	}
	if !e.cfg.NetworkDisabled {
		hostCfg.NetworkMode = "bridge"
	}

	containerCfg := &container.Config{
		Image:      e.cfg.Image,
		Cmd:        []string{"sh", "-c", command},
		WorkingDir: "/workspace",
		User:       "65534:65534", // nobody:nogroup
	}

	resp, err := e.cli.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, "")
	if err != nil {
		return errResult(err, start)
	}
	defer e.cli.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true})

	if err := e.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return errResult(err, start)
	}

	statusCh, errCh := e.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return errResult(err, start)
		}
	case <-statusCh:
	case <-ctx.Done():
		return errResult(ctx.Err(), start)
	}

	logs, err := e.cli.ContainerLogs(ctx, resp.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return errResult(err, start)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	_, _ = stdcopy.StdCopy(&stdout, &stderr, logs)

	return capability.Result{
		Success:  true,
		Output:   map[string]any{"stdout": stdout.String(), "stderr": stderr.String()},
		Duration: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

func errResult(err error, start time.Time) capability.Result {
	return capability.Result{
		Success:  false,
		Error:    "tool:sandbox_exec_failed: " + err.Error(),
		Duration: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

// Handler adapts Exec to the capability.Handler signature.
func (e *Executor) Handler(ctx *capability.ExecutionContext, args map[string]any) capability.Result {
	command, _ := args["command"].(string)
	workdir, _ := args["cwd"].(string)
	if workdir == "" {
		workdir = ctx.WorkingDirectory
	}
	runCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return e.Exec(runCtx, command, workdir)
}
