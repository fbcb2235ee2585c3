package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"go-jobwatch/internal/models"
)

const (
	maxDetails  = 3
	maxNewItems = 5
	//maxFieldRunes bounds every free-text field so no single line, even fully
	//escaped, can reach the message limit and get cut inside a tag or entity
	maxFieldRunes = 300
)

// clip shortens s to limit runes and escapes it for HTML mode
func clip(s string, limit int) string {
	r := []rune(s)
	if len(r) > limit {
		s = strings.TrimSpace(string(r[:limit-1])) + "…"
	}
	return html.EscapeString(s)
}

// Messages renders a report into the HTML messages to send, in order
func Messages(r models.Report, includeErrors bool) []string {
	var out []string
	if len(r.TargetsChanged) > 0 {
		out = append(out, FormatChanges(r))
	}
	if len(r.TargetsFirstSeen) > 0 {
		out = append(out, FormatWelcome(r))
	}
	if includeErrors && len(r.Errors) > 0 {
		out = append(out, FormatErrors(r))
	}
	return out
}

// FormatChanges lists every changed target with its reason and evidence
func FormatChanges(r models.Report) string {
	var sb strings.Builder
	sb.WriteString("📸 <b>Job Updates Detected!</b>\n\n")

	for _, c := range r.TargetsChanged {
		name := html.EscapeString(c.Name)
		sb.WriteString(fmt.Sprintf("🔥 <b>%s</b> jobs page has changes!\n", name))

		if c.Confidence != nil {
			sb.WriteString("🤖 <b>AI Analysis:</b>\n")
			sb.WriteString(fmt.Sprintf("📝 %s\n", clip(c.Reason, maxFieldRunes)))
			sb.WriteString(fmt.Sprintf("🎯 Confidence: %.0f%%\n", *c.Confidence*100))
		} else {
			sb.WriteString(fmt.Sprintf("📝 %s\n", clip(c.Reason, maxFieldRunes)))
		}

		if len(c.Details) > 0 {
			sb.WriteString("🔍 <b>Specific Changes:</b>\n")
			for i, d := range c.Details {
				if i == maxDetails {
					break
				}
				sb.WriteString(fmt.Sprintf("  • %s\n", clip(d, maxFieldRunes)))
			}
		}

		if len(c.NewItems) > 0 {
			sb.WriteString("🆕 <b>New postings:</b>\n")
			for i, item := range c.NewItems {
				if i == maxNewItems {
					sb.WriteString(fmt.Sprintf("  … and %d more\n", len(c.NewItems)-maxNewItems))
					break
				}
				sb.WriteString(fmt.Sprintf("  • %s\n", clip(item, maxFieldRunes)))
			}
		}

		if c.ChangeRatio > 0 {
			sb.WriteString(fmt.Sprintf("📊 Change: %.2f%% of pixels\n", c.ChangeRatio))
		}
		if c.Unstable {
			sb.WriteString("⚠️ Page was still changing, the later capture was used\n")
		}
		sb.WriteString(fmt.Sprintf("🔗 <a href=\"%s\">Check %s Jobs</a>\n\n", html.EscapeString(c.URL), name))
	}

	sb.WriteString(fmt.Sprintf("⏰ %s\n", formatTime(r.CheckedAt)))
	sb.WriteString(fmt.Sprintf("🎯 Detection: content fingerprint (screenshot threshold: %.1f%%)", r.ChangeThreshold))
	return sb.String()
}

// FormatWelcome announces the targets checked for the first time
func FormatWelcome(r models.Report) string {
	var sb strings.Builder
	sb.WriteString("📸 <b>Job Hunter Activated!</b>\n\n")
	sb.WriteString("Now monitoring job postings from:\n")
	for _, f := range r.TargetsFirstSeen {
		sb.WriteString(fmt.Sprintf("• <b>%s</b>\n", html.EscapeString(f.Name)))
		sb.WriteString(fmt.Sprintf("  🔗 <a href=\"%s\">Jobs Page</a>\n", html.EscapeString(f.URL)))
	}
	sb.WriteString(fmt.Sprintf("\n📊 Screenshot change threshold: %.1f%%\n", r.ChangeThreshold))
	if r.AIEnabled {
		sb.WriteString("🤖 Enhanced with AI analysis\n")
	}
	sb.WriteString("🔕 You'll only receive notifications when changes occur")
	return sb.String()
}

func FormatErrors(r models.Report) string {
	var sb strings.Builder
	sb.WriteString("⚠️ <b>Some checks failed</b>\n")
	for _, e := range r.Errors {
		sb.WriteString(fmt.Sprintf("• <b>%s</b>: %s\n", html.EscapeString(e.Name), clip(e.Reason, maxFieldRunes)))
	}
	sb.WriteString(fmt.Sprintf("\n⏰ %s", formatTime(r.CheckedAt)))
	return sb.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// Split cuts a message into chunks of at most limit runes, on line
// boundaries when possible
func Split(text string, limit int) []string {
	if limit <= 0 || len([]rune(text)) <= limit {
		return []string{text}
	}

	var chunks []string
	var current []rune
	for _, line := range strings.SplitAfter(text, "\n") {
		r := []rune(line)
		if len(current)+len(r) > limit && len(current) > 0 {
			chunks = append(chunks, string(current))
			current = nil
		}
		for len(r) > limit {
			chunks = append(chunks, string(r[:limit]))
			r = r[limit:]
		}
		current = append(current, r...)
	}
	if len(current) > 0 {
		chunks = append(chunks, string(current))
	}
	return chunks
}
