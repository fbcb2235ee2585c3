package verifier

import (
	"context"
	"fmt"

	"go-jobwatch/internal/models"
	"go-jobwatch/internal/normalize"
)

// ItemsVerifier judges by set difference between the extracted items and the
// known items. It is deterministic and fully confident.
type ItemsVerifier struct{}

func NewItemsVerifier() *ItemsVerifier { return &ItemsVerifier{} }

func (v *ItemsVerifier) Name() string { return models.VerifierItems }

func (v *ItemsVerifier) Judge(_ context.Context, req Request) (*models.Judgment, error) {
	if req.Current == nil || len(req.Current.Items) == 0 {
		return nil, ErrNoItems
	}

	known := make(map[string]struct{}, len(req.Known))
	for _, item := range req.Known {
		known[normalize.Item(item)] = struct{}{}
	}

	var fresh []string
	for _, item := range normalize.Items(req.Current.Items) {
		if _, ok := known[item]; !ok {
			fresh = append(fresh, item)
		}
	}

	j := &models.Judgment{
		HasChanges:     len(fresh) > 0,
		Confidence:     1.0,
		NewlySeenItems: fresh,
	}
	if len(fresh) == 0 {
		j.Description = "No new items among the listed postings"
	} else {
		j.Description = fmt.Sprintf("%d new item(s) listed", len(fresh))
		j.Details = fresh
	}
	return j, nil
}

// Catalog returns the extracted items as they are
func (v *ItemsVerifier) Catalog(_ context.Context, _ models.Target, current *models.Snapshot) ([]string, error) {
	if current == nil || len(current.Items) == 0 {
		return nil, ErrNoItems
	}
	return normalize.Items(current.Items), nil
}
