package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"time"

	"github.com/rs/zerolog"

	"go-jobwatch/internal/browser"
	"go-jobwatch/internal/models"
)

// BrowserFetcher renders a target in a headless browser and turns the result
// into a text or screenshot observation depending on the target's mode
type BrowserFetcher struct {
	renderer browser.Renderer
	engine   string
	logger   zerolog.Logger
}

func NewBrowserFetcher(renderer browser.Renderer, engine string, logger zerolog.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		renderer: renderer,
		engine:   engine,
		logger:   logger.With().Str("fetcher", engine).Logger(),
	}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, t models.Target) (*models.Observation, error) {
	cookies, err := browser.LoadCookies(t.CookiesFile)
	if err != nil {
		f.logger.Warn().Err(err).Str("target", t.Name).Msg("⚠️ Could not load cookies. Continuing.")
	}

	start := time.Now()
	capture, err := f.renderer.Render(ctx, browser.Request{
		URL:        t.URL,
		Selectors:  t.Selectors,
		Screenshot: t.IsImage(),
		Cookies:    cookies,
	})
	if err != nil {
		return nil, models.NewFetchError(t.Name, "render", err)
	}

	if !t.IsImage() {
		f.logger.Debug().Str("target", t.Name).Dur("elapsed", time.Since(start)).Msg("🌐 Rendered page")
		return textObservation(t, capture.HTML, "browser:"+f.engine)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(capture.Image))
	if err != nil {
		return nil, models.NewFetchError(t.Name, "screenshot", fmt.Errorf("unreadable screenshot: %w", err))
	}

	obs := &models.Observation{
		Kind:      models.KindImage,
		Image:     capture.Image,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Method:    "screenshot:" + f.engine,
		FetchedAt: time.Now().UTC(),
	}
	//items from the rendered DOM seed the ledger without asking a model
	if t.ItemSelector != "" {
		if _, items, err := Extract(t, capture.HTML); err == nil {
			obs.Items = items
		}
	}

	f.logger.Debug().
		Str("target", t.Name).
		Str("selector", capture.Selector).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Dur("elapsed", time.Since(start)).
		Msg("📸 Screenshot captured")
	return obs, nil
}
