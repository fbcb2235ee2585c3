// Package normalize masks volatile tokens in fetched text and canonicalises
// item identifiers so that irrelevant churn never registers as change.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// rules are applied in order. Longer or more specific shapes come first so a
// generic pattern never masks part of a token that a specific one owns.
var rules = []rule{
	{regexp.MustCompile(`[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`), "SESSIONID"},
	{regexp.MustCompile(`[a-f0-9]{32}`), "SESSIONID"},
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d+Z?`), "TIMESTAMP"},
	{regexp.MustCompile(`_[0-9]{13}\b`), "_TIMESTAMP"},
	{regexp.MustCompile(`\b\d{10}\b`), "TIMESTAMP"},
	{regexp.MustCompile(`nonce="[^"]*"`), `nonce="NONCE"`},
	{regexp.MustCompile(`integrity="[^"]*"`), `integrity="INTEGRITY"`},
}

// Text strips known volatile substrings. It is idempotent and never fails.
func Text(raw string) string {
	out := raw
	for _, r := range rules {
		out = r.pattern.ReplaceAllString(out, r.replacement)
	}
	return out
}

var spaceRegex = regexp.MustCompile(`\s+`)

// Item canonicalises one item identifier: NFC, collapsed whitespace, trimmed
func Item(s string) string {
	s = norm.NFC.String(s)
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}

// Items canonicalises a list, dropping empties and duplicates but keeping
// first-seen order
func Items(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, raw := range items {
		item := Item(raw)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Fold lowercases and strips diacritics, for keyword matching only
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return strings.ToLower(result)
}
