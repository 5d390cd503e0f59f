// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/company-intel/internal/briefing"
	"github.com/pdiddy/company-intel/internal/profile"
	"github.com/pdiddy/company-intel/pkg/types"
)

var briefCmd = &cobra.Command{
	Use:   "brief <company>",
	Short: "Build a briefing of significant events for a company",
	Long: `Resolve the company, fetch every requested discovery scope in parallel, and
synthesize the results into a briefing of significant events with citations.

A scope that fails to fetch is reported in the briefing's sections and left
out of synthesis; the rest of the briefing is still produced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBrief,
}

func runBrief(cmd *cobra.Command, args []string) error {
	scopesFlag, _ := cmd.Flags().GetString("scopes")
	format, _ := cmd.Flags().GetString("format")
	raw, _ := cmd.Flags().GetBool("raw")
	refresh, _ := cmd.Flags().GetBool("refresh")
	profilesDir, _ := cmd.Flags().GetString("profiles")

	scopes, err := types.ParseScopes(scopesFlag)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.service.Brief(commandContext(cmd), briefing.Request{
		Input:      strings.Join(args, " "),
		Scopes:     scopes,
		IncludeRaw: raw,
		Refresh:    refresh,
	})
	if err != nil {
		return err
	}

	if profilesDir == "" {
		profilesDir = a.cfg.ProfilesDir
	}
	var prof profile.Profile
	if profilesDir != "" {
		prof, err = profile.Store{Dir: profilesDir}.Load(res.Company.Slug)
		if err != nil && !errors.Is(err, profile.ErrNotFound) {
			a.log.WithError(err).Warn("profile unavailable")
		}
	}

	handled, err := writeStructured(os.Stdout, format, briefingOutput{Result: res, Profile: prof})
	if handled || err != nil {
		return err
	}
	printBriefing(os.Stdout, res, prof)
	return nil
}

// briefingOutput is the structured form of a brief command result.
type briefingOutput struct {
	briefing.Result `yaml:",inline"`
	Profile         profile.Profile `json:"profile,omitempty" yaml:"profile,omitempty"`
}

func init() {
	briefCmd.Flags().String("scopes", "", fmt.Sprintf("comma-separated scopes (default: %s)", joinScopes(types.BriefingScopes)))
	briefCmd.Flags().String("format", formatTable, "output format: table, json or yaml")
	briefCmd.Flags().Bool("raw", false, "include the raw discovery sections")
	briefCmd.Flags().Bool("refresh", false, "skip the briefing cache")
	briefCmd.Flags().String("profiles", "", "directory of <slug>_profile.json files (default: profiles_dir from config)")

	rootCmd.AddCommand(briefCmd)
}

func joinScopes(scopes []types.Scope) string {
	parts := make([]string, len(scopes))
	for i, sc := range scopes {
		parts[i] = string(sc)
	}
	return strings.Join(parts, ",")
}
