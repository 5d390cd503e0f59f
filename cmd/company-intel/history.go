// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/company-intel/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent briefing runs from the ledger",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Ledger.Path == "" {
		return fmt.Errorf("no ledger configured: set ledger.path")
	}
	store, err := ledger.NewStore(cfg.Ledger)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(commandContext(cmd), limit)
	if err != nil {
		return err
	}

	handled, err := writeStructured(os.Stdout, format, runs)
	if handled || err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("%-20s %-7s %-6s %-8s %s\n", "STARTED", "STATUS", "EVENTS", "TOOK", "COMPANY")
	for _, r := range runs {
		company := r.Company
		if company == "" {
			company = fmt.Sprintf("%q", r.Input)
		}
		took := r.FinishedAt.Sub(r.StartedAt).Round(100 * time.Millisecond)
		fmt.Printf("%-20s %-7s %-6d %-8s %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status, r.EventCount, took, company)
		for _, sr := range r.Scopes {
			if sr.Status != ledger.StatusOK {
				fmt.Printf("%20s %s failed: %s\n", "", sr.Scope, sr.Error)
			}
		}
		if r.Error != "" {
			fmt.Printf("%20s %s\n", "", r.Error)
		}
	}
	return nil
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum runs to list")
	historyCmd.Flags().String("format", formatTable, "output format: table, json or yaml")

	rootCmd.AddCommand(historyCmd)
}
