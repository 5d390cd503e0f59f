// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries a web search API on behalf of the discovery
// scopes and shapes the hits into discovery payloads.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pdiddy/company-intel/internal/httputil"
	"github.com/pdiddy/company-intel/pkg/types"
)

// Request is one search API call.
type Request struct {
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth,omitempty"` // basic or advanced
	Topic          string   `json:"topic,omitempty"`        // general or news
	Days           int      `json:"days,omitempty"`
	MaxResults     int      `json:"max_results,omitempty"`
	IncludeAnswer  bool     `json:"include_answer,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

// Response is the search API reply.
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Results []Result `json:"results"`
}

// Result is a single search hit.
type Result struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date,omitempty"`
}

// Client calls the search API through the retrying fetch layer. A nil
// Limiter disables client-side throttling.
type Client struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	HTTP      *http.Client
	Retry     httputil.Policy
	Limiter   *rate.Limiter
}

// NewClient builds a client from discovery settings.
func NewClient(cfg types.DiscoveryConfig, log logrus.FieldLogger) *Client {
	return &Client{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		UserAgent: cfg.UserAgent,
		HTTP:      &http.Client{Timeout: cfg.Timeout},
		Retry: httputil.Policy{
			MaxRetries:    cfg.Retry.MaxRetries,
			BackoffFactor: cfg.Retry.BackoffFactor,
			Logger:        log,
		},
		Limiter: NewLimiter(cfg.RequestsPerMinute),
	}
}

// NewLimiter returns a limiter allowing rpm requests per minute with a
// burst of one, or nil when rpm is not positive.
func NewLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
}

// Search runs one query. Transport failures and HTTP 5xx are retried by
// httputil.Fetch; HTTP 4xx comes back as a permanent *httputil.FetchError.
func (c *Client) Search(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if req.SearchDepth == "" {
		req.SearchDepth = "basic"
	}
	if req.Topic == "" {
		req.Topic = "general"
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 5
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.UserAgent)
	}
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.Fetch(ctx, client, httpReq, c.Retry)
	if err != nil {
		return nil, fmt.Errorf("search API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned HTTP %d", resp.StatusCode)
	}

	var sr Response
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return &sr, nil
}
