// Package verifier holds the optional second opinion consulted when a
// low-level difference has been found.
package verifier

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"go-jobwatch/internal/config"
	"go-jobwatch/internal/models"
)

var (
	// ErrUnsupported is returned for observation kinds a verifier cannot judge
	ErrUnsupported = errors.New("observation kind not supported by verifier")
	ErrNoItems     = errors.New("observation carries no items")
)

// Request carries both snapshots and the target's known items
type Request struct {
	Target  models.Target
	Prior   *models.Snapshot
	Current *models.Snapshot
	Known   []string
}

// Verifier is an untrusted, possibly unavailable judge
type Verifier interface {
	Name() string
	Judge(ctx context.Context, req Request) (*models.Judgment, error)
}

// Cataloger can list the items of a single observation, used to seed the
// ledger when a baseline observation carries no extracted items
type Cataloger interface {
	Catalog(ctx context.Context, target models.Target, current *models.Snapshot) ([]string, error)
}

// Registry resolves the verifier of each target
type Registry struct {
	gemini Verifier
	groq   Verifier
	items  Verifier
	closer func() error
	logger zerolog.Logger
}

// NewRegistry builds every verifier the config has credentials for
func NewRegistry(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Registry, error) {
	logger = logger.With().Str("component", "verifier").Logger()
	r := &Registry{
		items:  NewItemsVerifier(),
		logger: logger,
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := NewGeminiVerifier(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return nil, err
		}
		r.gemini = gemini
		r.closer = gemini.Close
		logger.Info().Str("model", cfg.GeminiModel).Msg("🤖 Gemini verifier enabled")
	}
	if cfg.GroqAPIKey != "" {
		r.groq = NewGroqVerifier(cfg.GroqAPIKey, cfg.GroqModel, logger)
		logger.Info().Str("model", cfg.GroqModel).Msg("🤖 Groq verifier enabled")
	}
	return r, nil
}

// NewStaticRegistry serves fixed verifiers, any of which may be nil
func NewStaticRegistry(gemini, groq Verifier) *Registry {
	return &Registry{gemini: gemini, groq: groq, items: NewItemsVerifier(), logger: zerolog.Nop()}
}

// AIEnabled reports whether any model-backed verifier is configured
func (r *Registry) AIEnabled() bool {
	return r.gemini != nil || r.groq != nil
}

// For returns the verifier of t, or nil when the target runs without one
func (r *Registry) For(t models.Target) Verifier {
	switch t.Verifier {
	case models.VerifierNone:
		return nil
	case models.VerifierItems:
		return r.items
	case models.VerifierGemini:
		return r.gemini
	case models.VerifierGroq:
		return r.groq
	}

	//auto
	switch {
	case r.gemini != nil:
		return r.gemini
	case t.ItemSelector != "":
		return r.items
	case r.groq != nil && !t.IsImage():
		return r.groq
	default:
		return nil
	}
}

func (r *Registry) Close() error {
	if r.closer != nil {
		return r.closer()
	}
	return nil
}
