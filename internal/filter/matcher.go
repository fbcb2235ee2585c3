package filter

import (
	"regexp"
	"strings"

	"go-jobwatch/internal/models"
	"go-jobwatch/internal/normalize"
)

// Matcher keeps or drops extracted items by keyword. Matching is
// case-insensitive, diacritic-insensitive and on word boundaries.
type Matcher struct {
	include *regexp.Regexp
	exclude *regexp.Regexp
}

// New compiles the keyword lists of a target. Empty lists match nothing.
func New(t models.Target) *Matcher {
	return &Matcher{
		include: compile(t.IncludeKeywords),
		exclude: compile(t.ExcludeKeywords),
	}
}

func compile(keywords []string) *regexp.Regexp {
	var parts []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(normalize.Fold(kw))
		if kw == "" {
			continue
		}
		//"entry level" should also match "entry-level"
		quoted := regexp.QuoteMeta(kw)
		quoted = strings.ReplaceAll(quoted, " ", `[\s-]+`)
		parts = append(parts, quoted)
	}
	if len(parts) == 0 {
		return nil
	}
	return regexp.MustCompile(`\b(` + strings.Join(parts, "|") + `)\b`)
}

// Match reports whether a single item passes the filter
func (m *Matcher) Match(item string) bool {
	text := normalize.Fold(item)
	if m.include != nil && !m.include.MatchString(text) {
		return false
	}
	if m.exclude != nil && m.exclude.MatchString(text) {
		return false
	}
	return true
}

// Apply keeps the items that pass, in order
func (m *Matcher) Apply(items []string) []string {
	if m.include == nil && m.exclude == nil {
		return items
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if m.Match(item) {
			out = append(out, item)
		}
	}
	return out
}

// Items is a shorthand for New(t).Apply(items)
func Items(t models.Target, items []string) []string {
	return New(t).Apply(items)
}
