// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pdiddy/company-intel/internal/briefing"
	"github.com/pdiddy/company-intel/internal/cache"
	"github.com/pdiddy/company-intel/internal/discovery"
	"github.com/pdiddy/company-intel/internal/httputil"
	"github.com/pdiddy/company-intel/internal/ledger"
	"github.com/pdiddy/company-intel/internal/logger"
	"github.com/pdiddy/company-intel/internal/resolve"
	"github.com/pdiddy/company-intel/internal/search"
	"github.com/pdiddy/company-intel/internal/synth"
	"github.com/pdiddy/company-intel/pkg/types"
)

var _ discovery.Provider = (*search.Provider)(nil)

// minSnippet is the snippet length below which hits are enriched with page
// text when enrichment is on.
const minSnippet = 200

// app holds the wired pipeline for one command invocation.
type app struct {
	cfg        types.Config
	log        *logrus.Logger
	resolver   *resolve.Resolver
	dispatcher *discovery.Dispatcher
	service    *briefing.Service
	ledger     *ledger.Store

	closers []func() error
}

// Close releases the ledger and log file.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
}

// newResolver loads the alias table named in cfg, or the built-in one.
func newResolver(cfg types.ResolverConfig) (*resolve.Resolver, error) {
	if cfg.AliasesFile == "" {
		return resolve.Default(), nil
	}
	return resolve.LoadFile(cfg.AliasesFile)
}

// newApp wires the full pipeline. Synthesis is only wired when needed, so
// lookup commands work without an LLM key.
func newApp(cmd *cobra.Command, withSynthesis bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logger.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, closers: []func() error{closeLog}}

	a.resolver, err = newResolver(cfg.Resolver)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.dispatcher, err = newDispatcher(cmd, cfg.Discovery, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	if !withSynthesis {
		return a, nil
	}

	if cfg.Synthesis.APIKey == "" {
		log.Warn("no LLM API key configured; synthesis requests will likely be rejected")
	}
	cm, err := synth.NewChatModel(commandContext(cmd), cfg.Synthesis)
	if err != nil {
		a.Close()
		return nil, err
	}
	sy := synth.New(synth.NewAnalyst(cm, cfg.Synthesis.RequestsPerMinute), synth.WithLogger(log))

	opts := []briefing.Option{
		briefing.WithLogger(log),
		briefing.WithBriefingCache(cache.New[types.Briefing](cfg.BriefingCache.MaxSize, cfg.BriefingCache.TTL)),
	}
	if cfg.Ledger.Path != "" {
		a.ledger, err = ledger.NewStore(cfg.Ledger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, a.ledger.Close)
		opts = append(opts, briefing.WithRecorder(a.ledger))
	}
	a.service = briefing.NewService(a.resolver, a.dispatcher, sy, opts...)
	return a, nil
}

// newDispatcher builds the search-backed discovery dispatcher.
func newDispatcher(cmd *cobra.Command, cfg types.DiscoveryConfig, log logrus.FieldLogger) (*discovery.Dispatcher, error) {
	if cfg.APIKey == "" {
		log.Warn("no search API key configured; discovery requests will likely be rejected")
	}

	queries := search.DefaultQueries()
	if path, _ := cmd.Flags().GetString("queries"); path != "" {
		q, err := search.ReadQueryFile(path)
		if err != nil {
			return nil, err
		}
		queries = q
	}

	client := search.NewClient(cfg, log)
	popts := []search.ProviderOption{
		search.WithMaxResults(cfg.MaxResults),
		search.WithProviderLogger(log),
	}
	if cfg.EnrichShortResults {
		popts = append(popts, search.WithEnricher(&search.Enricher{
			HTTP:       &http.Client{Timeout: cfg.Timeout},
			Retry:      httputil.Policy{MaxRetries: cfg.Retry.MaxRetries, BackoffFactor: cfg.Retry.BackoffFactor, Logger: log},
			UserAgent:  cfg.UserAgent,
			MinSnippet: minSnippet,
		}))
	}
	provider, err := search.NewProvider(client, queries, popts...)
	if err != nil {
		return nil, err
	}

	sections := cache.New[types.Section](cfg.Cache.MaxSize, cfg.Cache.TTL)
	return discovery.NewDispatcher(discovery.Bind(provider), sections,
		discovery.WithLogger(log),
		discovery.WithConcurrency(cfg.Concurrency),
		discovery.WithScopeTimeout(cfg.ScopeTimeout),
	), nil
}

// commandContext returns the command's context, or Background when run
// outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
