// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "company-intel/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RetryConfig controls the resilient fetch layer.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt (default
	// 3). Zero disables retries.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// BackoffFactor is the delay before the first retry; each later retry
	// doubles it (default 500ms).
	BackoffFactor time.Duration `json:"backoff_factor" yaml:"backoff_factor" mapstructure:"backoff_factor"`
}

// CacheConfig bounds an in-memory TTL cache.
type CacheConfig struct {
	MaxSize int           `json:"max_size" yaml:"max_size" mapstructure:"max_size"`
	TTL     time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// DiscoveryConfig holds settings for the discovery stage.
type DiscoveryConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`
	Retry      RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`
	Cache      CacheConfig `json:"cache" yaml:"cache" mapstructure:"cache"`

	// BaseURL is the search API endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey authenticates against the search API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxResults is the number of search hits requested per scope (default 8).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// RequestsPerMinute throttles calls to the search API. Zero disables throttling.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" mapstructure:"requests_per_minute"`

	// Concurrency caps parallel scope fetches per request. Zero means no cap.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// ScopeTimeout bounds a single scope fetch, retries included.
	ScopeTimeout time.Duration `json:"scope_timeout" yaml:"scope_timeout" mapstructure:"scope_timeout"`

	// EnrichShortResults fetches the article body for hits whose snippet is too short.
	EnrichShortResults bool `json:"enrich_short_results" yaml:"enrich_short_results" mapstructure:"enrich_short_results"`
}

// SynthesisConfig holds settings for the reasoning capability.
type SynthesisConfig struct {
	// BaseURL is the OpenAI-compatible API base URL.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Model is the AI model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Timeout bounds the single synthesis call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// RequestsPerMinute throttles synthesis calls. Zero disables throttling.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// ResolverConfig points at an alias table overriding the built-in one.
type ResolverConfig struct {
	AliasesFile string `json:"aliases_file,omitempty" yaml:"aliases_file,omitempty" mapstructure:"aliases_file"`
}

// LedgerConfig enables the SQLite run ledger when Path is set.
type LedgerConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// Config groups all stage configurations.
type Config struct {
	Discovery     DiscoveryConfig `json:"discovery" yaml:"discovery" mapstructure:"discovery"`
	Synthesis     SynthesisConfig `json:"synthesis" yaml:"synthesis" mapstructure:"synthesis"`
	BriefingCache CacheConfig     `json:"briefing_cache" yaml:"briefing_cache" mapstructure:"briefing_cache"`
	Resolver      ResolverConfig  `json:"resolver" yaml:"resolver" mapstructure:"resolver"`
	Ledger        LedgerConfig    `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
	ProfilesDir   string          `json:"profiles_dir,omitempty" yaml:"profiles_dir,omitempty" mapstructure:"profiles_dir"`
	Log           LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the configuration used when no file or environment
// override is present.
func DefaultConfig() Config {
	return Config{
		Discovery: DiscoveryConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "company-intel/0.1",
			},
			Retry: RetryConfig{
				MaxRetries:    3,
				BackoffFactor: 500 * time.Millisecond,
			},
			Cache: CacheConfig{
				MaxSize: 256,
				TTL:     30 * time.Minute,
			},
			BaseURL:           "https://api.tavily.com/search",
			MaxResults:        8,
			RequestsPerMinute: 60,
			ScopeTimeout:      90 * time.Second,
		},
		Synthesis: SynthesisConfig{
			BaseURL:           "https://api.openai.com/v1",
			Model:             "gpt-4o",
			Timeout:           2 * time.Minute,
			RequestsPerMinute: 20,
		},
		BriefingCache: CacheConfig{
			MaxSize: 64,
			TTL:     30 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
