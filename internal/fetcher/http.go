package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"

	"go-jobwatch/internal/browser"
	"go-jobwatch/internal/config"
	"go-jobwatch/internal/extract"
	"go-jobwatch/internal/models"
)

// HTTPFetcher fetches server-rendered pages without a browser
type HTTPFetcher struct {
	userAgent string
	timeout   time.Duration
	logger    zerolog.Logger
}

func NewHTTPFetcher(cfg config.HTTPConfig, logger zerolog.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		logger:    logger.With().Str("fetcher", "http").Logger(),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, t models.Target) (*models.Observation, error) {
	//one collector per fetch so the request is bound to this ctx
	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	)
	if f.timeout > 0 {
		c.SetRequestTimeout(f.timeout)
	}

	var (
		body   []byte
		status int
		onErr  error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		onErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	start := time.Now()
	if err := c.Visit(t.URL); err != nil {
		if onErr != nil {
			err = onErr
		}
		return nil, models.NewFetchError(t.Name, "http", err)
	}
	if onErr != nil {
		return nil, models.NewFetchError(t.Name, "http", onErr)
	}

	html := string(body)
	if title := extract.Title(html); browser.IsBlocked(title) {
		return nil, models.NewFetchError(t.Name, "http", fmt.Errorf("%w: %q", browser.ErrBlocked, title))
	}

	f.logger.Debug().
		Str("target", t.Name).
		Int("status", status).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("🌐 Fetched page")
	return textObservation(t, html, "http")
}
