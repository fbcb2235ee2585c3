package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-jobwatch/internal/fingerprint"
	"go-jobwatch/internal/models"
	"go-jobwatch/internal/normalize"
	"go-jobwatch/internal/storage"
)

// Reduce normalizes an observation into the snapshot the judge compares
func Reduce(obs *models.Observation) *models.Snapshot {
	items := normalize.Items(obs.Items)
	if obs.Kind == models.KindImage {
		return &models.Snapshot{
			Fingerprint: models.Fingerprint{Kind: models.KindImage, Image: obs.Image},
			Items:       items,
		}
	}
	text := normalize.Text(obs.Text)
	return &models.Snapshot{
		Fingerprint: models.Fingerprint{Kind: models.KindText, Digest: fingerprint.Text(text)},
		Text:        text,
		Items:       items,
	}
}

// loadPrior reads the stored snapshot of t. Missing or corrupt content yields
// nil so the judge takes the baseline path; only read failures are errors.
func (w *Watcher) loadPrior(ctx context.Context, t models.Target) (*models.Snapshot, error) {
	data, err := w.store.Load(ctx, t.FingerprintSlot())
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	if t.IsImage() {
		img, err := storage.DecodeImageSlot(data)
		if err != nil {
			w.logger.Warn().Err(err).Str("target", t.Name).Msg("⚠️ Stored screenshot is corrupt, treating as absent")
			return nil, nil
		}
		return &models.Snapshot{Fingerprint: models.Fingerprint{Kind: models.KindImage, Image: img}}, nil
	}

	digest, err := storage.ValidateDigest(data)
	if err != nil {
		if !errors.Is(err, models.ErrCorruptSlot) {
			return nil, err
		}
		w.logger.Warn().Err(err).Str("target", t.Name).Msg("⚠️ Stored digest is corrupt, treating as absent")
		return nil, nil
	}
	prior := &models.Snapshot{Fingerprint: models.Fingerprint{Kind: models.KindText, Digest: digest}}

	//the text is only context for the verifier and the change details
	text, err := w.store.Load(ctx, t.ObservationSlot())
	if err != nil {
		w.logger.Warn().Err(err).Str("target", t.Name).Msg("⚠️ Could not read stored text")
	} else if fingerprint.Text(string(text)) == digest {
		prior.Text = string(text)
	}
	return prior, nil
}

func (w *Watcher) persist(ctx context.Context, t models.Target, current *models.Snapshot) error {
	if current.IsImage() {
		return w.store.Save(ctx, t.FingerprintSlot(), storage.EncodeImageSlot(current.Image))
	}
	if err := w.store.Save(ctx, t.ObservationSlot(), []byte(current.Text)); err != nil {
		return err
	}
	return w.store.Save(ctx, t.FingerprintSlot(), []byte(current.Digest))
}

// LoadState reads the persisted run state, empty when absent or unreadable
func LoadState(ctx context.Context, store storage.Store) (models.RunState, error) {
	state := models.RunState{Targets: make(map[string]models.TargetStatus)}
	data, err := store.Load(ctx, storage.RunStateSlot)
	if err != nil {
		return state, err
	}
	if data == nil {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return models.RunState{Targets: make(map[string]models.TargetStatus)}, fmt.Errorf("%w: run state: %v", models.ErrCorruptSlot, err)
	}
	if state.Targets == nil {
		state.Targets = make(map[string]models.TargetStatus)
	}
	return state, nil
}

func (w *Watcher) updateState(ctx context.Context, runID string, verdicts []models.Verdict) (models.RunState, error) {
	state, err := LoadState(ctx, w.store)
	if err != nil && !errors.Is(err, models.ErrCorruptSlot) {
		return state, err
	}

	now := time.Now().UTC()
	state.RunID = runID
	state.LastCheck = now
	state.TotalChecks++
	state.ChangeThreshold = w.opts.ChangeThreshold

	for _, v := range verdicts {
		status := state.Targets[v.Target]
		status.LastChecked = now
		status.LastError = ""
		if v.Error {
			status.LastError = v.ErrorMessage
		} else {
			status.LastState = v.State
		}
		if v.Changed {
			status.LastChanged = now
		}
		state.Targets[v.Target] = status
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return state, err
	}
	return state, w.store.Save(ctx, storage.RunStateSlot, data)
}
