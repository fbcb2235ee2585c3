// Package fetcher obtains one observation per target: page text over plain
// HTTP, rendered text, or a screenshot from a headless browser.
package fetcher

import (
	"context"
	"strings"
	"time"

	"go-jobwatch/internal/extract"
	"go-jobwatch/internal/filter"
	"go-jobwatch/internal/models"
)

// Fetcher is the single capability the watcher depends on
type Fetcher interface {
	Fetch(ctx context.Context, t models.Target) (*models.Observation, error)
}

// Extract scopes a page and collects its items. When the target names an
// item selector the observation text is the filtered item list itself, so
// that unrelated page churn never reaches the digest.
func Extract(t models.Target, rawHTML string) (text string, items []string, err error) {
	res, err := extract.Page(rawHTML, t.Selectors, t.ItemSelector)
	if err != nil {
		return "", nil, err
	}
	if t.ItemSelector == "" {
		return res.Text, nil, nil
	}
	items = filter.Items(t, res.Items)
	return strings.Join(items, "\n"), items, nil
}

func textObservation(t models.Target, rawHTML, method string) (*models.Observation, error) {
	text, items, err := Extract(t, rawHTML)
	if err != nil {
		return nil, models.NewFetchError(t.Name, "extract", err)
	}
	return &models.Observation{
		Kind:      models.KindText,
		Text:      text,
		Items:     items,
		Method:    method,
		FetchedAt: time.Now().UTC(),
	}, nil
}
