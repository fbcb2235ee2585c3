package verifier

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobwatch/internal/models"
)

func TestParseJudgmentStructured(t *testing.T) {
	reply := "Here you go:\n```json\n" + `{
  "has_changes": true,
  "description": "Two internships added",
  "confidence": 0.92,
  "details": ["Added: Deep Learning Intern", "Added: CUDA Intern"],
  "newly_seen_items": ["Deep Learning Intern", "CUDA Intern"]
}` + "\n```"

	got, structured := ParseJudgment(reply)
	require.True(t, structured)

	want := &models.Judgment{
		HasChanges:     true,
		Confidence:     0.92,
		Description:    "Two internships added",
		Details:        []string{"Added: Deep Learning Intern", "Added: CUDA Intern"},
		NewlySeenItems: []string{"Deep Learning Intern", "CUDA Intern"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseJudgment() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseJudgmentClampsConfidence(t *testing.T) {
	got, structured := ParseJudgment(`{"has_changes": true, "confidence": 7}`)
	require.True(t, structured)
	assert.Equal(t, 1.0, got.Confidence)
	assert.Equal(t, "No description provided", got.Description)
}

func TestParseJudgmentHeuristic(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		hasChanges bool
		confidence float64
	}{
		{
			name:       "change phrase",
			reply:      "It looks like a new job was posted for interns.",
			hasChanges: true,
			confidence: 0.7,
		},
		{
			name:       "no change phrase wins",
			reply:      "The pages are identical, although one banner was updated.",
			hasChanges: false,
			confidence: 0.7,
		},
		{
			name:       "nothing recognisable",
			reply:      "Lorem ipsum.",
			hasChanges: false,
			confidence: 0.3,
		},
		{
			name:       "schema violation falls back",
			reply:      `{"has_changes": "yes", "confidence": "high"}`,
			hasChanges: false,
			confidence: 0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, structured := ParseJudgment(tt.reply)
			assert.False(t, structured)
			assert.Equal(t, tt.hasChanges, got.HasChanges)
			assert.Equal(t, tt.confidence, got.Confidence)
		})
	}
}

func TestHeuristicTruncatesDescription(t *testing.T) {
	long := make([]rune, 500)
	for i := range long {
		long[i] = 'ệ'
	}
	got, _ := ParseJudgment(string(long))
	assert.Equal(t, 203, len([]rune(got.Description)))
}

func TestParseCatalog(t *testing.T) {
	items, err := ParseCatalog(`{"job_count": 2, "description": "two cards", "items": ["Intern A", "Intern B"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Intern A", "Intern B"}, items)

	_, err = ParseCatalog("no json here")
	assert.Error(t, err)

	_, err = ParseCatalog(`{"job_count": 2}`)
	assert.Error(t, err)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-0.5))
	assert.Equal(t, 1.0, Clamp(1.5))
	assert.Equal(t, 0.4, Clamp(0.4))
	assert.Equal(t, 0.0, Clamp(math.NaN()))
}

func TestCleanMarkdownJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanMarkdownJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownJSON(`  {"a":1} `))
}

func TestKnownBlockCaps(t *testing.T) {
	known := make([]string, maxKnownInPrompt+5)
	for i := range known {
		known[i] = "Intern"
	}
	assert.Contains(t, knownBlock(known), "... and 5 more")
	assert.Equal(t, "(none recorded yet)", knownBlock(nil))
}
