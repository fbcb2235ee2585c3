// Package notifier delivers the aggregate report of a run.
package notifier

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"go-jobwatch/internal/models"
)

// Notifier delivers one report. Errors are logged by the caller and never
// fail a run.
type Notifier interface {
	Notify(ctx context.Context, r models.Report) error
}

// LogNotifier writes the report to the log, used for dry runs and when no
// messaging endpoint is configured
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) Notify(_ context.Context, r models.Report) error {
	for _, c := range r.TargetsChanged {
		ev := n.logger.Info().
			Str("run_id", r.RunID).
			Str("target", c.Name).
			Str("reason", c.Reason).
			Strs("new_items", c.NewItems)
		if c.Confidence != nil {
			ev = ev.Float64("confidence", *c.Confidence)
		}
		ev.Msg("🔥 Change detected")
	}
	for _, f := range r.TargetsFirstSeen {
		n.logger.Info().Str("run_id", r.RunID).Str("target", f.Name).Msg("📋 Now monitoring")
	}
	for _, e := range r.Errors {
		n.logger.Warn().Str("run_id", r.RunID).Str("target", e.Name).Str("reason", e.Reason).Msg("⚠️ Check failed")
	}
	return nil
}

// Multi fans a report out to several notifiers
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, r models.Report) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
