// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <input>",
	Short: "Resolve free text to a known company",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <partial>",
	Short: "List company names matching a partial input",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSuggest,
}

func runResolve(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := newResolver(cfg.Resolver)
	if err != nil {
		return err
	}

	c, err := r.Identify(strings.Join(args, " "))
	if err != nil {
		return err
	}

	handled, err := writeStructured(os.Stdout, format, c)
	if handled || err != nil {
		return err
	}
	fmt.Printf("%-10s %s\n", "Name:", c.Name)
	if c.Ticker != "" {
		fmt.Printf("%-10s %s\n", "Ticker:", c.Ticker)
	}
	fmt.Printf("%-10s %s\n", "Slug:", c.Slug)
	fmt.Printf("%-10s %s\n", "Aliases:", strings.Join(c.Aliases, ", "))
	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := newResolver(cfg.Resolver)
	if err != nil {
		return err
	}

	names := r.Suggestions(strings.Join(args, " "))
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "No matching companies.")
		return nil
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func init() {
	resolveCmd.Flags().String("format", formatTable, "output format: table, json or yaml")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(suggestCmd)
}
