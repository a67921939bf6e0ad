package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dawsonblock/rfsn-kernel/internal/agent"
	"github.com/dawsonblock/rfsn-kernel/internal/capability/handlers/sandbox"
	"github.com/dawsonblock/rfsn-kernel/internal/policy"
	"github.com/dawsonblock/rfsn-kernel/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session against the orchestration kernel",
	RunE:  runChat,
}

func policyForMode(mode string) policy.Policy {
	if mode == "dev" {
		return policy.Dev()
	}
	return policy.Default()
}

func newSessionFromConfig() (*session.Session, error) {
	return session.New(session.Config{
		Policy:           policyForMode(cfg.PolicyMode),
		WorkingDirectory: cfg.WorkingDirectory,
		MemoryDBPath:     filepath.Join(cfg.WorkingDirectory, cfg.MemoryDBPath),
		LedgerPath:       filepath.Join(cfg.WorkingDirectory, cfg.LedgerPath),
		SandboxConfig: sandbox.Config{
			Image:           cfg.Sandbox.Image,
			MemoryLimit:     cfg.Sandbox.MemoryLimit,
			CPULimit:        cfg.Sandbox.CPULimit,
			NetworkDisabled: cfg.Sandbox.NetworkDisabled,
			PidsLimit:       cfg.Sandbox.PidsLimit,
		},
		AllowHostExec: cfg.Sandbox.AllowHostExec,
		Reasoner:      agent.NewStaticReasoner(),
	})
}

func runChat(cmd *cobra.Command, args []string) error {
	sess, err := newSessionFromConfig()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	fmt.Printf("rfsnctl session %s ready. Type a request, or \"exit\" to quit.\n", sess.SessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		result, err := sess.Step(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "step error: %v\n", err)
			continue
		}

		fmt.Println(result.Reply)
		fmt.Printf("(proposed=%d allowed=%d denied=%d replayed=%d)\n",
			result.ActionsProposed, result.ActionsAllowed, result.ActionsDenied, result.ActionsReplayed)
	}

	return scanner.Err()
}
