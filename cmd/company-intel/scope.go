// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/company-intel/pkg/types"
)

var scopeCmd = &cobra.Command{
	Use:   "scope <scope> <company>",
	Short: "Fetch one discovery scope for a company",
	Long: `Fetch a single discovery scope without synthesis. Scopes are sec_filings,
news, procurement, earnings, industry_context and competitors.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runScope,
}

func runScope(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	scope, err := types.ParseScope(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.resolver.Identify(strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	sec, err := a.dispatcher.FetchScope(commandContext(cmd), scope, c.Identity())
	if err != nil {
		return err
	}

	handled, err := writeStructured(os.Stdout, format, sec)
	if handled || err != nil {
		return err
	}
	fmt.Printf("%s: %s\n\n%s\n", c.Name, scope.Title(), sec.Summary)
	if len(sec.Citations) > 0 {
		fmt.Println()
		for _, ct := range sec.Citations {
			fmt.Printf("- %s\n", citationLine(ct))
		}
	}
	return nil
}

func init() {
	scopeCmd.Flags().String("format", formatTable, "output format: table, json or yaml")

	rootCmd.AddCommand(scopeCmd)
}
