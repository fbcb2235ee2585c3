package verifier

import (
	"fmt"
	"strings"
)

// maxKnownInPrompt caps how many known items are listed to the model
const maxKnownInPrompt = 200

// maxTextInPrompt caps each page text handed to a model, in runes
const maxTextInPrompt = 15000

func knownBlock(known []string) string {
	if len(known) == 0 {
		return "(none recorded yet)"
	}
	list := known
	if len(list) > maxKnownInPrompt {
		list = list[:maxKnownInPrompt]
	}
	var sb strings.Builder
	for _, item := range list {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	if len(known) > len(list) {
		sb.WriteString(fmt.Sprintf("- ... and %d more\n", len(known)-len(list)))
	}
	return sb.String()
}

// buildComparePrompt creates the instruction for a before/after judgment
func buildComparePrompt(company, medium string, known []string) string {
	return fmt.Sprintf(`You are analyzing %[2]s of %[1]s's job listing page to detect meaningful changes.

I'm providing you with TWO %[2]s:
1. BEFORE: the previous capture of the job page
2. AFTER: the current capture of the job page

Job titles already seen on this page in the past:
%[3]s
1. ARE THERE MEANINGFUL CHANGES? Focus on:
   - New job postings added
   - Job postings removed
   - Changes in job titles, descriptions, or requirements
   - Application deadlines changed
   - New locations or departments

2. IGNORE MINOR CHANGES like:
   - Page loading animations
   - Timestamps or "time ago" indicators
   - Session IDs or tracking elements
   - Small layout shifts
   - Cookie banners or pop-ups
   - Postings from the already-seen list that merely moved, reappeared or changed position

3. PROVIDE ANALYSIS in this exact JSON format:
{
  "has_changes": true/false,
  "description": "Brief description of what changed or 'No meaningful changes detected'",
  "confidence": 0.0-1.0,
  "details": ["list", "of", "specific", "changes"],
  "newly_seen_items": ["exact titles visible in AFTER that are NOT in the already-seen list"]
}

Be conservative - only report changes if you're confident they relate to actual job opportunities.`, company, medium, knownBlock(known))
}

// buildCatalogPrompt asks for the postings visible in a single capture
func buildCatalogPrompt(company, medium string) string {
	return fmt.Sprintf(`Analyze this %[2]s of %[1]s's job listing page.

Respond with JSON only, in this format:
{
  "job_count": estimated_number_of_jobs,
  "description": "Brief description of what you see on the page",
  "items": ["exact title of every visible job posting"]
}

Focus on listing the visible job postings, nothing else on the page.`, company, medium)
}

func truncateText(text string) string {
	r := []rune(text)
	if len(r) <= maxTextInPrompt {
		return text
	}
	return string(r[:maxTextInPrompt]) + "\n[truncated]"
}
