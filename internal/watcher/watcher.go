// Package watcher runs one detection pass over every configured target.
//
// Targets are checked in parallel and in isolation: each has its own storage
// slots and ledger partition, its own timeout, and a failure or panic in one
// check only turns that target's verdict into an error verdict.
package watcher

import (
	"context"
	"fmt"
	"image"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"go-jobwatch/internal/config"
	"go-jobwatch/internal/differ"
	"go-jobwatch/internal/fetcher"
	"go-jobwatch/internal/models"
	"go-jobwatch/internal/notifier"
	"go-jobwatch/internal/storage"
)

// Judge is the decision step, implemented by judge.Judge
type Judge interface {
	Evaluate(ctx context.Context, t models.Target, prior, current *models.Snapshot) models.Verdict
	Reevaluate(ctx context.Context, t models.Target, prior, current *models.Snapshot, first models.Verdict) models.Verdict
	Unstable(first, second *models.Snapshot, threshold float64) (bool, float64)
}

// DebugSink receives the screenshots behind a low-level difference
type DebugSink interface {
	SaveComparison(targetName string, prior, current []byte, diff *image.Gray) ([]string, error)
}

type Options struct {
	Workers         int
	TargetTimeout   time.Duration
	Recheck         config.RecheckConfig
	ChangeThreshold float64
	AIEnabled       bool
	NotifyErrors    bool
	//Debug may be nil
	Debug DebugSink
}

// OptionsFromConfig maps the config onto watcher options
func OptionsFromConfig(cfg *config.Config, aiEnabled bool) Options {
	return Options{
		Workers:         cfg.Workers,
		TargetTimeout:   cfg.TargetTimeout,
		Recheck:         cfg.Recheck,
		ChangeThreshold: cfg.ChangeThreshold,
		AIEnabled:       aiEnabled,
		NotifyErrors:    cfg.NotifyErrors,
	}
}

type Watcher struct {
	targets  []models.Target
	fetcher  fetcher.Fetcher
	store    storage.Store
	judge    Judge
	notifier notifier.Notifier
	differ   *differ.Processor
	opts     Options
	logger   zerolog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}

	sleep func(ctx context.Context, d time.Duration) error
}

func New(targets []models.Target, f fetcher.Fetcher, store storage.Store, j Judge, n notifier.Notifier, opts Options, logger zerolog.Logger) *Watcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Watcher{
		targets:  targets,
		fetcher:  f,
		store:    store,
		judge:    j,
		notifier: n,
		differ:   differ.New(),
		opts:     opts,
		logger:   logger.With().Str("component", "watcher").Logger(),
		inflight: make(map[string]struct{}),
		sleep:    sleepCtx,
	}
}

// Run checks every target, waits for all of them, then notifies at most once
// and records the run state. It only fails when ctx ends before the join.
func (w *Watcher) Run(ctx context.Context) (*models.RunResult, error) {
	runID := uuid.NewString()
	log := w.logger.With().Str("run_id", runID).Logger()
	log.Info().Int("targets", len(w.targets)).Int("workers", w.opts.Workers).Msg("🚀 Starting check run")
	start := time.Now()

	verdicts := make([]models.Verdict, len(w.targets))
	//no WithContext: one target failing must not cancel its siblings
	var g errgroup.Group
	g.SetLimit(w.opts.Workers)
	for i, t := range w.targets {
		g.Go(func() error {
			verdicts[i] = w.Check(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run %s interrupted: %w", runID, err)
	}

	report := models.BuildReport(runID, verdicts)
	report.ChangeThreshold = w.opts.ChangeThreshold
	report.AIEnabled = w.opts.AIEnabled

	result := &models.RunResult{RunID: runID, Verdicts: verdicts, Report: report}

	if w.notifier != nil && report.ShouldNotify(w.opts.NotifyErrors) {
		if err := w.notifier.Notify(ctx, report); err != nil {
			log.Error().Err(err).Msg("❌ Notification failed")
		} else {
			result.Notified = true
		}
	}

	state, err := w.updateState(ctx, runID, verdicts)
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to save run state")
	}
	result.State = state

	log.Info().
		Int("changed", len(report.TargetsChanged)).
		Int("first_seen", len(report.TargetsFirstSeen)).
		Int("errors", len(report.Errors)).
		Bool("notified", result.Notified).
		Dur("elapsed", time.Since(start)).
		Msg("🏁 Check run finished")
	return result, nil
}

func (w *Watcher) acquire(t models.Target) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := t.SlotPrefix()
	if _, busy := w.inflight[key]; busy {
		return false
	}
	w.inflight[key] = struct{}{}
	return true
}

func (w *Watcher) release(t models.Target) {
	w.mu.Lock()
	delete(w.inflight, t.SlotPrefix())
	w.mu.Unlock()
}

// Check runs the full pipeline for one target. It never panics and never
// returns an error: every failure becomes an error verdict.
func (w *Watcher) Check(ctx context.Context, t models.Target) (v models.Verdict) {
	start := time.Now()
	log := w.logger.With().Str("target", t.Name).Logger()

	if !w.acquire(t) {
		log.Warn().Msg("⏭️ Check already running, skipping")
		return models.ErrorVerdict(t, fmt.Errorf("%w: %s", models.ErrCheckInFlight, t.Name))
	}
	defer w.release(t)

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("💥 Check panicked")
			v = models.ErrorVerdict(t, fmt.Errorf("panic: %v", r))
		}
		v.Duration = time.Since(start)
	}()

	if w.opts.TargetTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.TargetTimeout)
		defer cancel()
	}

	log.Info().Str("url", t.URL).Str("mode", string(t.Mode)).Msg("🔍 Checking target")

	current, err := w.snapshot(ctx, t)
	if err != nil {
		log.Error().Err(err).Msg("❌ Fetch failed")
		return models.ErrorVerdict(t, err)
	}

	prior, err := w.loadPrior(ctx, t)
	if err != nil {
		log.Error().Err(err).Msg("❌ Could not read stored observation")
		return models.ErrorVerdict(t, err)
	}

	v = w.judge.Evaluate(ctx, t, prior, current)
	if v.Error {
		return v
	}

	if w.shouldRecheck(t, v) {
		v, current = w.recheck(ctx, t, prior, current, v)
	}

	if err := w.persist(ctx, t, current); err != nil {
		//the verdict stands, the next run simply compares against older state
		log.Error().Err(err).Msg("❌ Failed to save observation")
	}

	w.explain(t, prior, current, &v)

	if v.Changed {
		log.Info().Str("reason", v.Reason).Msg("🔥 Change detected")
	} else {
		log.Info().Str("state", string(v.State)).Str("reason", v.Reason).Msg("✅ No reportable change")
	}
	return v
}

// snapshot fetches and reduces an observation to its comparable form
func (w *Watcher) snapshot(ctx context.Context, t models.Target) (*models.Snapshot, error) {
	obs, err := w.fetcher.Fetch(ctx, t)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		return nil, models.NewFetchError(t.Name, "fetch", fmt.Errorf("no observation returned"))
	}
	return Reduce(obs), nil
}

func (w *Watcher) shouldRecheck(t models.Target, v models.Verdict) bool {
	if !w.opts.Recheck.Enabled {
		return false
	}
	if t.IsImage() {
		return v.State == models.StateVerifiedChanged
	}
	switch v.State {
	case models.StateLowLevelDiffUnverified, models.StateVerifiedChanged, models.StateVerifiedUnchanged:
		return true
	}
	return false
}

// recheck re-fetches after a delay. If the page moved beyond the strict
// threshold since the first capture, the second capture becomes the
// authoritative one and is judged again.
func (w *Watcher) recheck(ctx context.Context, t models.Target, prior, first *models.Snapshot, v models.Verdict) (models.Verdict, *models.Snapshot) {
	log := w.logger.With().Str("target", t.Name).Logger()
	log.Info().Dur("delay", w.opts.Recheck.Delay).Msg("🔍 Double-checking change...")

	rctx := ctx
	if w.opts.Recheck.Timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, w.opts.Recheck.Timeout)
		defer cancel()
	}

	if err := w.sleep(rctx, w.opts.Recheck.Delay); err != nil {
		log.Warn().Err(err).Msg("⚠️ Re-check skipped")
		return v, first
	}
	second, err := w.snapshot(rctx, t)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Re-check fetch failed, keeping first capture")
		return v, first
	}

	unstable, ratio := w.judge.Unstable(first, second, w.opts.Recheck.Threshold)
	if !unstable {
		log.Info().Float64("recheck_ratio", ratio).Msg("✅ Change confirmed (stable on recheck)")
		return v, first
	}

	log.Warn().Float64("recheck_ratio", ratio).Msg("⚠️ Page is unstable, using the second capture")
	return w.judge.Reevaluate(rctx, t, prior, second, v), second
}

// explain attaches the added lines of a text change when the verifier gave
// no details, and dumps debug images for screenshot differences
func (w *Watcher) explain(t models.Target, prior, current *models.Snapshot, v *models.Verdict) {
	if prior == nil || current == nil || v.State == models.StateUnchanged || v.State == models.StateBaseline {
		return
	}

	if !current.IsImage() {
		if v.Changed && len(v.Details) == 0 && prior.Text != "" {
			for _, line := range w.differ.AddedLines(prior.Text, current.Text, 3) {
				v.Details = append(v.Details, "Added: "+line)
			}
		}
		stats := w.differ.Stats(prior.Text, current.Text)
		w.logger.Debug().
			Str("target", t.Name).
			Int("lines_added", stats.LinesAdded).
			Int("lines_deleted", stats.LinesDeleted).
			Msg("📝 Text difference")
		return
	}

	if w.opts.Debug != nil && prior.IsImage() {
		if _, err := w.opts.Debug.SaveComparison(t.Name, prior.Image, current.Image, nil); err != nil {
			w.logger.Warn().Err(err).Str("target", t.Name).Msg("⚠️ Failed to save debug image")
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
