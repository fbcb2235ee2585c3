// Package differ explains a text change as the lines that were added.
package differ

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Processor wraps a line-mode diff-match-patch instance
type Processor struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

func New() *Processor {
	return &Processor{dmp: diffmatchpatch.New()}
}

// Diff computes a line-level diff between two texts
func (p *Processor) Diff(prior, current string) []diffmatchpatch.Diff {
	a, b, lines := p.dmp.DiffLinesToChars(prior, current)
	diffs := p.dmp.DiffMain(a, b, false)
	return p.dmp.DiffCharsToLines(diffs, lines)
}

// AddedLines returns up to limit non-blank lines present in current but not
// in prior. limit <= 0 means no limit.
func (p *Processor) AddedLines(prior, current string, limit int) []string {
	return p.collect(p.Diff(prior, current), diffmatchpatch.DiffInsert, limit)
}

// RemovedLines is the mirror of AddedLines
func (p *Processor) RemovedLines(prior, current string, limit int) []string {
	return p.collect(p.Diff(prior, current), diffmatchpatch.DiffDelete, limit)
}

func (p *Processor) collect(diffs []diffmatchpatch.Diff, op diffmatchpatch.Operation, limit int) []string {
	var out []string
	for _, d := range diffs {
		if d.Type != op {
			continue
		}
		for _, line := range strings.Split(d.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			out = append(out, line)
			if limit > 0 && len(out) >= limit {
				return out
			}
		}
	}
	return out
}

// Stats summarises a diff
type Stats struct {
	LinesAdded   int
	LinesDeleted int
	IsIdentical  bool
}

func (p *Processor) Stats(prior, current string) Stats {
	stats := Stats{IsIdentical: prior == current}
	for _, d := range p.Diff(prior, current) {
		n := strings.Count(strings.TrimSuffix(d.Text, "\n"), "\n") + 1
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			stats.LinesAdded += n
		case diffmatchpatch.DiffDelete:
			stats.LinesDeleted += n
		}
	}
	return stats
}
