// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns loosely structured discovery text into typed
// citations and link-free summaries.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/company-intel/pkg/types"
)

var (
	// bulletLinkRe matches a markdown link bullet such as
	// "- [SEC Filing](https://example.com/a)" at the start of a trimmed line.
	bulletLinkRe = regexp.MustCompile(`^- \[([^\]]+)\]\((https?://[^)\s]+)\)`)

	// inlineURLRe matches a bare http(s) URL inside prose.
	inlineURLRe = regexp.MustCompile(`https?://\S+`)
)

// LinkOmitted replaces inline URLs stripped from summaries.
const LinkOmitted = "[link omitted]"

// ParseCitations scans text line by line for "- [title](url)" bullets and
// returns them in input order. Lines that are not link bullets, and bullets
// whose URL does not parse as an absolute http(s) URL, are ignored.
// Duplicates are kept.
func ParseCitations(text string) []types.Citation {
	var citations []types.Citation
	for _, line := range strings.Split(text, "\n") {
		m := bulletLinkRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if !ValidURL(m[2]) {
			continue
		}
		citations = append(citations, types.Citation{
			Title: strings.TrimSpace(m[1]),
			URL:   m[2],
		})
	}
	return citations
}

// ValidURL reports whether s is an absolute http or https URL with a host.
func ValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// StripInlineURLs replaces every bare URL in text with LinkOmitted so that
// summaries carry prose only; links travel as citations.
func StripInlineURLs(text string) string {
	return inlineURLRe.ReplaceAllString(text, LinkOmitted)
}

// Summarize trims text, strips inline URLs and caps it at maxLen runes,
// breaking at the last word boundary. A non-positive maxLen disables the cap.
func Summarize(text string, maxLen int) string {
	text = strings.TrimSpace(StripInlineURLs(text))
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return text
	}
	cut := string(runes[:maxLen])
	if i := strings.LastIndexByte(cut, ' '); i > maxLen/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}

var bracketEscaper = strings.NewReplacer("[", "(", "]", ")")

// FormatCitations renders citations back into "- [title](url)" bullets, one
// per line. Citations without a title use the URL as the title.
func FormatCitations(citations []types.Citation) string {
	var b strings.Builder
	for i, c := range citations {
		if i > 0 {
			b.WriteByte('\n')
		}
		title := c.Title
		if title == "" {
			title = c.URL
		}
		b.WriteString("- [")
		b.WriteString(bracketEscaper.Replace(title))
		b.WriteString("](")
		b.WriteString(c.URL)
		b.WriteString(")")
	}
	return b.String()
}
