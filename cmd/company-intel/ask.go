// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <company> <question>",
	Short: "Answer a follow-up question about a company",
	Long: `Answer a follow-up question. A cached briefing for the company is searched
first; otherwise the question is classified and only the matching discovery
scopes are fetched. Quote a multi-word company name.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ans, err := a.service.FollowUp(commandContext(cmd), args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	handled, err := writeStructured(os.Stdout, format, ans)
	if handled || err != nil {
		return err
	}
	fmt.Println(ans.Text)
	if len(ans.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range ans.Citations {
			fmt.Printf("- %s\n", citationLine(c))
		}
	}
	fmt.Fprintf(os.Stderr, "\n(%s, %s)\n", ans.Label, ans.Source)
	return nil
}

func init() {
	askCmd.Flags().String("format", formatTable, "output format: table, json or yaml")

	rootCmd.AddCommand(askCmd)
}
