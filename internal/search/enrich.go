// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/pdiddy/company-intel/internal/httputil"
)

// maxPageBytes bounds how much of an article page is read.
const maxPageBytes = 4 << 20

// Enricher fetches a hit's page and extracts its readable text, for hits
// whose search snippet is too short to summarize.
type Enricher struct {
	HTTP      *http.Client
	Retry     httputil.Policy
	UserAgent string

	// MinSnippet is the snippet length below which a hit is enriched.
	MinSnippet int
}

// NeedsText reports whether a snippet is short enough to enrich.
func (e *Enricher) NeedsText(snippet string) bool {
	return len(strings.TrimSpace(snippet)) < e.MinSnippet
}

// Text returns the readable text of the page at rawURL.
func (e *Enricher) Text(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if e.UserAgent != "" {
		req.Header.Set("User-Agent", e.UserAgent)
	}

	client := e.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.Fetch(ctx, client, req, e.Retry)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), u)
	if err != nil {
		return "", fmt.Errorf("extracting article from %s: %w", u.Redacted(), err)
	}
	return strings.TrimSpace(article.TextContent), nil
}
