package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"go-jobwatch/internal/browser"
	"go-jobwatch/internal/config"
	"go-jobwatch/internal/models"
)

// Router picks the fetcher of each target. Browsers are started on first use
// so HTTP-only configurations never launch one.
type Router struct {
	http        Fetcher
	newRenderer func(ctx context.Context, engine string) (browser.Renderer, error)
	logger      zerolog.Logger

	mu        sync.Mutex
	renderers map[string]browser.Renderer
	fetchers  map[string]Fetcher
}

func NewRouter(cfg *config.Config, logger zerolog.Logger) *Router {
	logger = logger.With().Str("component", "fetcher").Logger()
	return &Router{
		http:   NewHTTPFetcher(cfg.HTTP, logger),
		logger: logger,
		newRenderer: func(ctx context.Context, engine string) (browser.Renderer, error) {
			switch engine {
			case models.EngineChromedp:
				return browser.NewChromeDP(cfg.Browser, cfg.HTTP.UserAgent, logger), nil
			default:
				return browser.NewPlaywright(ctx, cfg.Browser, cfg.HTTP.UserAgent, logger)
			}
		},
		renderers: make(map[string]browser.Renderer),
		fetchers:  make(map[string]Fetcher),
	}
}

func (r *Router) Fetch(ctx context.Context, t models.Target) (*models.Observation, error) {
	if t.Mode == models.ModeHTTP || t.Mode == "" {
		return r.http.Fetch(ctx, t)
	}
	f, err := r.browserFetcher(ctx, t.Engine)
	if err != nil {
		return nil, models.NewFetchError(t.Name, "browser", err)
	}
	return f.Fetch(ctx, t)
}

func (r *Router) browserFetcher(ctx context.Context, engine string) (Fetcher, error) {
	if engine == "" {
		engine = models.EnginePlaywright
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.fetchers[engine]; ok {
		return f, nil
	}
	renderer, err := r.newRenderer(ctx, engine)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", engine, err)
	}
	r.logger.Info().Str("engine", engine).Msg("🌐 Browser started")
	r.renderers[engine] = renderer
	f := NewBrowserFetcher(renderer, engine, r.logger)
	r.fetchers[engine] = f
	return f, nil
}

// Close shuts down every browser that was started
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for engine, renderer := range r.renderers {
		if err := renderer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", engine, err))
		}
		delete(r.renderers, engine)
		delete(r.fetchers, engine)
	}
	return errors.Join(errs...)
}
