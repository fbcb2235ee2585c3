// Package judge decides, per target and per check, whether a fetched
// observation reflects a genuine content change.
//
// The decision is layered: a cheap low-level comparison gates everything, the
// known-items ledger filters out re-surfaced postings, and the optional
// verifier has the final say only when it is confident.
package judge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"go-jobwatch/internal/fingerprint"
	"go-jobwatch/internal/models"
	"go-jobwatch/internal/normalize"
	"go-jobwatch/internal/verifier"
)

// Ledger is the slice of ledger.Ledger the judge needs
type Ledger interface {
	Known(ctx context.Context, t models.Target) ([]string, error)
	Record(ctx context.Context, t models.Target, items []string) (int, error)
}

// VerifierSource resolves the verifier of a target; nil means none
type VerifierSource interface {
	For(t models.Target) verifier.Verifier
}

// Policy holds the tunable thresholds. Targets may override the first two.
type Policy struct {
	//ChangeThreshold is the pixel change percentage above which two
	//screenshots differ
	ChangeThreshold float64
	//ConfidenceThreshold must be strictly exceeded for a verified change
	ConfidenceThreshold float64
	VerifierTimeout     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		ChangeThreshold:     0.5,
		ConfidenceThreshold: 0.7,
		VerifierTimeout:     45 * time.Second,
	}
}

const (
	ReasonBaseline       = "baseline established"
	ReasonNoDifference   = "no low-level difference"
	ReasonUnverifiable   = "unverifiable low-level difference"
	ReasonLedgerBaseline = "ledger baseline established"
	ReasonResurfaced     = "reported items were already known"
)

type Judge struct {
	ledger    Ledger
	verifiers VerifierSource
	policy    Policy
	logger    zerolog.Logger
	now       func() time.Time
}

func New(l Ledger, verifiers VerifierSource, policy Policy, logger zerolog.Logger) *Judge {
	return &Judge{
		ledger:    l,
		verifiers: verifiers,
		policy:    policy,
		logger:    logger.With().Str("component", "judge").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (j *Judge) changeThreshold(t models.Target) float64 {
	if t.ChangeThreshold > 0 {
		return t.ChangeThreshold
	}
	return j.policy.ChangeThreshold
}

func (j *Judge) confidenceThreshold(t models.Target) float64 {
	if t.ConfidenceThreshold > 0 {
		return t.ConfidenceThreshold
	}
	return j.policy.ConfidenceThreshold
}

// Evaluate runs the state machine for one check. prior is nil when nothing
// usable was stored. It never returns an error: failures surface as an error
// verdict or degrade to the conservative branch.
func (j *Judge) Evaluate(ctx context.Context, t models.Target, prior, current *models.Snapshot) models.Verdict {
	return j.evaluate(ctx, t, prior, current, nil)
}

// Reevaluate judges a replacement observation taken after first turned out
// to be unstable. Items the first pass recorded are not counted as known,
// whatever its verdict was, so the second pass sees the ledger as the first
// pass did.
func (j *Judge) Reevaluate(ctx context.Context, t models.Target, prior, current *models.Snapshot, first models.Verdict) models.Verdict {
	v := j.evaluate(ctx, t, prior, current, first.Recorded)
	v.Unstable = true
	return v
}

func (j *Judge) evaluate(ctx context.Context, t models.Target, prior, current *models.Snapshot, discount []string) (v models.Verdict) {
	start := j.now()
	log := j.logger.With().Str("target", t.Name).Logger()

	v = models.Verdict{
		Target:    t.Name,
		URL:       t.URL,
		CheckedAt: start,
	}
	defer func() { v.Duration = j.now().Sub(start) }()

	if current == nil {
		return models.ErrorVerdict(t, fmt.Errorf("no observation available"))
	}

	if prior != nil && prior.Kind != current.Kind {
		log.Warn().Str("prior", string(prior.Kind)).Str("current", string(current.Kind)).Msg("⚠️ Stored observation has a different kind, starting over")
		prior = nil
	}

	//1. nothing to compare against
	if prior == nil {
		j.baseline(ctx, t, current, log)
		v.State = models.StateBaseline
		v.FirstRun = true
		v.Reason = ReasonBaseline
		return v
	}

	//2. low-level comparison, the only step that runs on every check
	different, ratio := j.lowLevel(t, prior, current, log)
	v.ChangeRatio = ratio
	if !different {
		v.State = models.StateUnchanged
		v.Reason = ReasonNoDifference
		log.Debug().Float64("change_ratio", ratio).Msg("✅ No low-level difference")
		return v
	}

	//3. difference without a usable verifier
	v.State = models.StateLowLevelDiffUnverified
	v.Reason = ReasonUnverifiable

	ver := j.verifiers.For(t)
	if ver == nil {
		log.Info().Float64("change_ratio", ratio).Msg("🔎 Low-level difference, no verifier configured")
		return v
	}

	known, err := j.ledger.Known(ctx, t)
	if err != nil {
		log.Error().Err(err).Msg("❌ Could not read ledger")
		return models.ErrorVerdict(t, err)
	}
	known = without(known, discount)

	//4. ask the verifier
	judgment, err := j.consult(ctx, ver, verifier.Request{Target: t, Prior: prior, Current: current, Known: known})
	if err != nil {
		log.Warn().Err(err).Str("verifier", ver.Name()).Msg("⚠️ Verifier failed, treating difference as unverifiable")
		return v
	}

	knownSet := make(map[string]struct{}, len(known))
	for _, item := range known {
		knownSet[item] = struct{}{}
	}
	reported := normalize.Items(judgment.NewlySeenItems)
	var fresh []string
	for _, item := range reported {
		if _, ok := knownSet[item]; !ok {
			fresh = append(fresh, item)
		}
	}

	v.Verifier = ver.Name()
	v.Confidence = verifier.Clamp(judgment.Confidence)
	v.Details = judgment.Details

	//5. whatever the verdict, reported items are remembered
	if len(reported) > 0 {
		if _, err := j.ledger.Record(ctx, t, reported); err != nil {
			log.Error().Err(err).Msg("❌ Could not record reported items")
		} else {
			v.Recorded = fresh
		}
	}

	threshold := j.confidenceThreshold(t)
	switch {
	//an empty ledger only means first population once items were reported,
	//otherwise a verifier that never lists items would silence every change
	case len(known) == 0 && len(reported) > 0:
		v.State = models.StateBaseline
		v.FirstRun = true
		v.Reason = ReasonLedgerBaseline
	case judgment.HasChanges && v.Confidence > threshold:
		if len(reported) > 0 && len(fresh) == 0 {
			v.State = models.StateVerifiedUnchanged
			v.Reason = ReasonResurfaced
			break
		}
		v.State = models.StateVerifiedChanged
		v.Changed = true
		v.NewlySeenItems = fresh
		v.Reason = fmt.Sprintf("%s (confidence %.2f)", judgment.Description, v.Confidence)
	case judgment.HasChanges:
		v.State = models.StateVerifiedUnchanged
		v.Reason = fmt.Sprintf("low confidence %.2f: %s", v.Confidence, judgment.Description)
	default:
		v.State = models.StateVerifiedUnchanged
		v.Reason = fmt.Sprintf("verifier found no meaningful change: %s", judgment.Description)
	}

	log.Info().
		Str("state", string(v.State)).
		Bool("changed", v.Changed).
		Float64("confidence", v.Confidence).
		Int("fresh_items", len(fresh)).
		Msg("⚖️ Verdict")
	return v
}

func without(items, drop []string) []string {
	if len(drop) == 0 {
		return items
	}
	skip := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		skip[d] = struct{}{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := skip[item]; !ok {
			out = append(out, item)
		}
	}
	return out
}

// lowLevel compares digests for text and pixel ratios for screenshots. An
// image that cannot be compared counts as fully changed.
func (j *Judge) lowLevel(t models.Target, prior, current *models.Snapshot, log zerolog.Logger) (bool, float64) {
	if !current.IsImage() {
		return prior.Digest != current.Digest, 0
	}

	diff, _, err := fingerprint.CompareImages(prior.Image, current.Image)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Screenshot comparison failed, assuming change")
		return true, 100
	}
	log.Debug().
		Float64("change_ratio", diff.ChangeRatio).
		Int("changed_pixels", diff.ChangedPixels).
		Bool("resized", diff.Resized).
		Msg("📊 Screenshot compared")
	return diff.ChangeRatio > j.changeThreshold(t), diff.ChangeRatio
}

func (j *Judge) consult(ctx context.Context, ver verifier.Verifier, req verifier.Request) (*models.Judgment, error) {
	if j.policy.VerifierTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.policy.VerifierTimeout)
		defer cancel()
	}
	judgment, err := ver.Judge(ctx, req)
	if err != nil {
		return nil, err
	}
	if judgment == nil {
		return nil, fmt.Errorf("%w: empty judgment", models.ErrVerifierUnavailable)
	}
	return judgment, nil
}

// baseline seeds the ledger without flagging anything as new. Failures are
// logged only: the baseline verdict does not depend on them.
func (j *Judge) baseline(ctx context.Context, t models.Target, current *models.Snapshot, log zerolog.Logger) {
	items := current.Items
	if len(items) == 0 {
		items = j.catalog(ctx, t, current, log)
	}
	if len(items) == 0 {
		log.Info().Msg("📋 Baseline established")
		return
	}
	added, err := j.ledger.Record(ctx, t, items)
	if err != nil {
		log.Error().Err(err).Msg("❌ Could not seed ledger")
		return
	}
	log.Info().Int("items", added).Msg("📋 Baseline established, ledger seeded")
}

func (j *Judge) catalog(ctx context.Context, t models.Target, current *models.Snapshot, log zerolog.Logger) []string {
	ver := j.verifiers.For(t)
	cataloger, ok := ver.(verifier.Cataloger)
	if !ok {
		return nil
	}
	if j.policy.VerifierTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.policy.VerifierTimeout)
		defer cancel()
	}
	items, err := cataloger.Catalog(ctx, t, current)
	if err != nil {
		if !errors.Is(err, verifier.ErrNoItems) && !errors.Is(err, verifier.ErrUnsupported) {
			log.Warn().Err(err).Msg("⚠️ Could not catalog baseline observation")
		}
		return nil
	}
	return items
}

// Unstable reports whether a second observation taken shortly after the first
// differs beyond the stricter threshold. Text observations are unstable on any
// digest difference.
func (j *Judge) Unstable(first, second *models.Snapshot, threshold float64) (bool, float64) {
	if first == nil || second == nil || first.Kind != second.Kind {
		return true, 100
	}
	if !first.IsImage() {
		if first.Digest != second.Digest {
			return true, 100
		}
		return false, 0
	}
	diff, _, err := fingerprint.CompareImages(first.Image, second.Image)
	if err != nil {
		return true, 100
	}
	return diff.ChangeRatio > threshold, diff.ChangeRatio
}
