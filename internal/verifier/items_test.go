package verifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobwatch/internal/models"
)

func TestItemsVerifierJudge(t *testing.T) {
	v := NewItemsVerifier()
	ctx := context.Background()

	tests := []struct {
		name    string
		current []string
		known   []string
		changed bool
		fresh   []string
	}{
		{
			name:    "reordered listing is not a change",
			current: []string{"Intern B", "Intern A"},
			known:   []string{"Intern A", "Intern B"},
			changed: false,
		},
		{
			name:    "one new posting",
			current: []string{"Intern A", "Intern  C "},
			known:   []string{"Intern A", "Intern B"},
			changed: true,
			fresh:   []string{"Intern C"},
		},
		{
			name:    "nothing known yet",
			current: []string{"Intern A"},
			changed: true,
			fresh:   []string{"Intern A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Judge(ctx, Request{
				Current: &models.Snapshot{Items: tt.current},
				Known:   tt.known,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.changed, got.HasChanges)
			assert.Equal(t, 1.0, got.Confidence)
			assert.Equal(t, tt.fresh, got.NewlySeenItems)
		})
	}
}

func TestItemsVerifierWithoutItems(t *testing.T) {
	v := NewItemsVerifier()

	_, err := v.Judge(context.Background(), Request{Current: &models.Snapshot{Text: "page"}})
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = v.Catalog(context.Background(), models.Target{}, nil)
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestItemsVerifierCatalog(t *testing.T) {
	items, err := NewItemsVerifier().Catalog(context.Background(), models.Target{}, &models.Snapshot{Items: []string{"A", " A", "B"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, items)
}
