// Package extract parses the Markdown rendering of the model listing into
// candidate records.
//
// The upstream source is loosely structured and changes shape between
// revisions, so parsing is split into small tagged strategies (a table with
// header mapping, and a bullet list with fixed regexes) selected by a cheap
// structural probe. Extraction is a pure function of its input: no shared
// state, same candidates on every call.
package extract

import (
	"regexp"
	"strings"

	"github.com/okian/modelrank/internal/domain/model"
)

// rankScoreBase derives the ordinal desirability proxy: the listing is
// ordered by desirability but exposes no absolute metric, so accepted row
// N gets score rankScoreBase/N. Only relative ordering is meaningful.
const rankScoreBase = 10000.0

// Strategy names reported in Result.
const (
	StrategyTable   = "table"
	StrategyBullets = "bullets"
)

// Result carries the accepted candidates plus extraction bookkeeping.
type Result struct {
	Candidates []model.Candidate
	Skipped    int    // rows dropped as unrecognizable or malformed
	Strategy   string // which parsing strategy handled the document
}

// Markdown link: [display name](https://host/provider/slug)
var linkPattern = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)

// Bare URL fallback when the cell carries a raw link.
var urlPattern = regexp.MustCompile(`https?://[^\s)\]]+`)

// Backquoted token overriding the derived id.
var backtickPattern = regexp.MustCompile("`([^`]+)`")

// Extract parses raw Markdown into candidate records. It returns
// ErrNoRecords when zero rows are accepted; individual malformed rows are
// skipped and counted, never fatal.
func Extract(markdown string) (Result, error) {
	lines := strings.Split(markdown, "\n")

	var res Result
	if probeTable(lines) {
		res = parseTable(lines)
	} else {
		res = parseBullets(lines)
	}

	if len(res.Candidates) == 0 {
		return res, ErrNoRecords
	}
	return res, nil
}

// probeTable reports whether the document carries a recognizable table
// header. Anything else falls through to the bullet strategy.
func probeTable(lines []string) bool {
	for _, line := range lines {
		if isHeaderLine(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

func isHeaderLine(line string) bool {
	if !strings.HasPrefix(line, "|") {
		return false
	}
	return strings.Contains(line, "Name") ||
		strings.Contains(line, "Model") ||
		strings.Contains(line, "ID")
}

// modelCell is the parsed identity portion of one row.
type modelCell struct {
	id       string
	name     string
	provider string
}

// parseModelCell extracts display name, provider, and id from the cell
// carrying the model link. Returns false when no link is present.
func parseModelCell(cell string) (modelCell, bool) {
	var name, providerSlug, modelSlug string

	if m := linkPattern.FindStringSubmatch(cell); m != nil {
		name = strings.TrimSpace(m[1])
		var ok bool
		providerSlug, modelSlug, ok = splitSlugURL(m[2])
		if !ok {
			return modelCell{}, false
		}
	} else if m := urlPattern.FindString(cell); m != "" {
		var ok bool
		providerSlug, modelSlug, ok = splitSlugURL(m)
		if !ok {
			return modelCell{}, false
		}
		// Strip the URL and leftover brackets from the display name.
		name = strings.ReplaceAll(cell, m, "")
		name = strings.Trim(name, "[]() \t")
	} else {
		return modelCell{}, false
	}

	id := providerSlug + "/" + modelSlug

	// A back-quoted token is the upstream's own id and overrides the
	// slug derived from the URL.
	if m := backtickPattern.FindStringSubmatch(cell); m != nil {
		id = strings.TrimSpace(m[1])
	}

	provider, name := deriveProvider(name, id)
	return modelCell{id: id, name: name, provider: provider}, true
}

// splitSlugURL takes a listing URL and returns its trailing
// provider/slug path segments.
func splitSlugURL(raw string) (provider, slug string, ok bool) {
	trimmed := strings.TrimRight(raw, "/")
	// Drop the scheme so host never counts as a segment pair on short URLs.
	if idx := strings.Index(trimmed, "://"); idx >= 0 {
		trimmed = trimmed[idx+3:]
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) < 3 { // host, provider, slug
		return "", "", false
	}
	return parts[len(parts)-2], parts[len(parts)-1], true
}

// deriveProvider resolves the provider display string by priority:
// an explicit "provider:" prefix on the name, the provider slug from the
// id, then "Unknown". The prefix is stripped from the returned name.
func deriveProvider(name, id string) (provider, cleanName string) {
	if before, after, found := strings.Cut(name, ":"); found {
		return strings.TrimSpace(before), strings.TrimSpace(after)
	}
	if providerSlug, _, found := strings.Cut(id, "/"); found && providerSlug != "" {
		return titleCase(strings.ReplaceAll(providerSlug, "-", " ")), name
	}
	return "Unknown", name
}

// titleCase uppercases the first rune of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
