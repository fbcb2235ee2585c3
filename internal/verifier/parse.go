package verifier

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"go-jobwatch/internal/models"
)

const judgmentSchema = `{
  "type": "object",
  "required": ["has_changes", "confidence"],
  "properties": {
    "has_changes": {"type": "boolean"},
    "confidence": {"type": "number"},
    "description": {"type": "string"},
    "details": {"type": "array", "items": {"type": "string"}},
    "newly_seen_items": {"type": "array", "items": {"type": "string"}}
  }
}`

const catalogSchema = `{
  "type": "object",
  "required": ["items"],
  "properties": {
    "job_count": {"type": ["integer", "null"]},
    "description": {"type": "string"},
    "items": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	judgmentSchemaLoader = gojsonschema.NewStringLoader(judgmentSchema)
	catalogSchemaLoader  = gojsonschema.NewStringLoader(catalogSchema)
)

var (
	changePhrases = []string{
		"new job", "job added", "position added", "changes detected",
		"removed", "updated", "modified", "different",
	}
	noChangePhrases = []string{
		"no changes", "no meaningful changes", "no significant",
		"same", "identical", "no new jobs",
	}
)

// extractJSON returns the text between the first '{' and the last '}'
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// validate checks a JSON document against a schema
func validate(schema gojsonschema.JSONLoader, doc string) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(doc))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	var msgs []string
	for _, e := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return fmt.Errorf("response failed schema validation: %s", strings.Join(msgs, "; "))
}

// ParseJudgment turns a model reply into a judgment. A reply that is not
// valid structured JSON falls back to phrase heuristics with a confidence the
// judge will never accept as verified (0.7 or 0.3). structured reports which
// path was taken.
func ParseJudgment(text string) (j *models.Judgment, structured bool) {
	if doc, ok := extractJSON(text); ok && validate(judgmentSchemaLoader, doc) == nil {
		var parsed models.Judgment
		if err := json.Unmarshal([]byte(doc), &parsed); err == nil {
			if parsed.Description == "" {
				parsed.Description = "No description provided"
			}
			parsed.Confidence = Clamp(parsed.Confidence)
			return &parsed, true
		}
	}
	return heuristicJudgment(text), false
}

func heuristicJudgment(text string) *models.Judgment {
	lower := strings.ToLower(text)
	hasChanges := containsAny(lower, changePhrases)
	noChanges := containsAny(lower, noChangePhrases)
	if noChanges {
		hasChanges = false
	}

	confidence := 0.3
	if hasChanges || noChanges {
		confidence = 0.7
	}

	description := strings.TrimSpace(text)
	if r := []rune(description); len(r) > 200 {
		description = string(r[:200]) + "..."
	}
	return &models.Judgment{
		HasChanges:  hasChanges,
		Confidence:  confidence,
		Description: description,
	}
}

// ParseCatalog extracts the item list of a single-observation reply
func ParseCatalog(text string) ([]string, error) {
	doc, ok := extractJSON(text)
	if !ok {
		return nil, fmt.Errorf("no JSON object in catalog reply")
	}
	if err := validate(catalogSchemaLoader, doc); err != nil {
		return nil, err
	}
	var parsed struct {
		Items []string `json:"items"`
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode catalog reply: %w", err)
	}
	return parsed.Items, nil
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Clamp bounds a confidence to [0, 1]
func Clamp(c float64) float64 {
	switch {
	case math.IsNaN(c):
		return 0
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// cleanMarkdownJSON removes backticks and "json" prefix if the model wraps its reply
func cleanMarkdownJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
