package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dawsonblock/rfsn-kernel/internal/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the append-only decision ledger",
}

var ledgerVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the hash chain of the configured ledger file",
	RunE:  runLedgerVerify,
}

var ledgerTailCmd = &cobra.Command{
	Use:   "tail [n]",
	Short: "Print the last n ledger entries (default 10)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLedgerTail,
}

func init() {
	ledgerCmd.AddCommand(ledgerVerifyCmd, ledgerTailCmd)
}

func openConfiguredLedger() (*ledger.Ledger, error) {
	return ledger.Open(filepath.Join(cfg.WorkingDirectory, cfg.LedgerPath))
}

func runLedgerVerify(cmd *cobra.Command, args []string) error {
	led, err := openConfiguredLedger()
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	result, err := led.Verify()
	if err != nil {
		return fmt.Errorf("verify ledger: %w", err)
	}

	if result.OK {
		fmt.Println("ledger OK: hash chain intact")
		return nil
	}
	fmt.Printf("ledger BROKEN at entry %d: %s\n", result.BrokenAtIndex, result.Message)
	return fmt.Errorf("ledger verification failed")
}

func runLedgerTail(cmd *cobra.Command, args []string) error {
	n := 10
	if len(args) == 1 {
		if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil {
			return fmt.Errorf("invalid count %q: %w", args[0], err)
		}
	}

	led, err := openConfiguredLedger()
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	entries, err := led.ReadTail(n)
	if err != nil {
		return fmt.Errorf("read ledger tail: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}
