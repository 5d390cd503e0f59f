// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the company-intel CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/company-intel/internal/secrets"
	"github.com/pdiddy/company-intel/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the company-intel CLI.
var rootCmd = &cobra.Command{
	Use:   "company-intel",
	Short: "Company intelligence briefings from live discovery",
	Long: `company-intel resolves a company name, discovers what is new about it across
SEC filings, news, procurement, earnings and industry context, and synthesizes
the findings into a briefing of significant events with citations.

Discovery results and finished briefings are cached in memory for the life of
the process. Each briefing run is recorded in a local ledger when one is
configured.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./company-intel.yaml or ~/.config/company-intel/company-intel.yaml)")
	rootCmd.PersistentFlags().String("queries", "", "YAML file of per-scope search queries (default: built-in)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("company-intel")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "company-intel"))
		}
	}

	viper.SetEnvPrefix("COMPANY_INTEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// Unmarshal only sees environment values for keys viper knows about.
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// envKeys are the settings most often supplied through the environment,
// e.g. COMPANY_INTEL_DISCOVERY_API_KEY.
var envKeys = []string{
	"discovery.api_key",
	"discovery.base_url",
	"synthesis.api_key",
	"synthesis.base_url",
	"synthesis.model",
	"ledger.path",
	"profiles_dir",
	"log.file",
}

// loadConfig layers the config file and environment over the defaults, then
// fills API keys that are still empty from .secrets/.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	secrets.Apply(&cfg, loadedSecrets)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
