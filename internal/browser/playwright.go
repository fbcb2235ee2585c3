package browser

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"go-jobwatch/internal/config"
)

// PlaywrightManager owns one Chromium process. Every render gets its own
// browser context so cookies and storage never leak between targets.
type PlaywrightManager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	cfg     config.BrowserConfig
	ua      string
	logger  zerolog.Logger
}

// InstallPlaywright downloads the driver and Chromium
func InstallPlaywright() error {
	return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
}

func NewPlaywright(ctx context.Context, cfg config.BrowserConfig, userAgent string, logger zerolog.Logger) (*PlaywrightManager, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright (run `jobwatch install-browsers`): %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--no-sandbox",
			"--disable-dev-shm-usage",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch chromium: %w", err)
	}

	return &PlaywrightManager{
		pw:      pw,
		browser: browser,
		cfg:     cfg,
		ua:      userAgent,
		logger:  logger.With().Str("engine", "playwright").Logger(),
	}, nil
}

func (pm *PlaywrightManager) NewContext(cookies []Cookie) (playwright.BrowserContext, error) {
	opts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  pm.cfg.ViewportWidth,
			Height: pm.cfg.ViewportHeight,
		},
		Locale: playwright.String("en-US"),
	}
	if pm.ua != "" {
		opts.UserAgent = playwright.String(pm.ua)
	}

	browserCtx, err := pm.browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}

	if len(cookies) > 0 {
		if err := browserCtx.AddCookies(toPlaywright(cookies)); err != nil {
			browserCtx.Close()
			return nil, fmt.Errorf("could not add cookies: %w", err)
		}
	}
	return browserCtx, nil
}

// Render loads req.URL, waits for the listing to settle and captures it
func (pm *PlaywrightManager) Render(ctx context.Context, req Request) (*Capture, error) {
	browserCtx, err := pm.NewContext(req.Cookies)
	if err != nil {
		return nil, err
	}
	defer browserCtx.Close()

	page, err := browserCtx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("could not create page: %w", err)
	}

	//playwright calls are not context aware, closing the page unblocks them
	stop := context.AfterFunc(ctx, func() { _ = page.Close() })
	defer stop()

	navTimeout := remaining(ctx, pm.cfg.NavTimeout)
	if _, err := page.Goto(req.URL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(navTimeout.Milliseconds())),
	}); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	title, _ := page.Title()
	if IsBlocked(title) {
		return nil, fmt.Errorf("%w: %q", ErrBlocked, title)
	}

	pm.waitForLoading(page)
	if err := sleepCtx(ctx, pm.cfg.SettleDelay); err != nil {
		return nil, err
	}
	if err := ScrollForLazyLoad(page); err != nil {
		pm.logger.Debug().Err(err).Str("url", req.URL).Msg("scroll failed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("could not read page content: %w", err)
	}
	capture := &Capture{HTML: html, Title: title}

	if req.Screenshot {
		img, selector, err := pm.screenshot(page, req.Selectors)
		if err != nil {
			return nil, err
		}
		capture.Image = img
		capture.Selector = selector
	}
	return capture, nil
}

// waitForLoading waits for every loading indicator to disappear. Indicators
// that never go away are ignored, the settle delay covers the rest.
func (pm *PlaywrightManager) waitForLoading(page playwright.Page) {
	for _, sel := range pm.cfg.LoadingSelectors {
		err := page.Locator(sel).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateHidden,
			Timeout: playwright.Float(10000),
		})
		if err != nil {
			pm.logger.Debug().Str("selector", sel).Msg("⏳ Loading indicator still present")
		}
	}
}

// screenshot captures the first visible listing container, falling back to
// the full page
func (pm *PlaywrightManager) screenshot(page playwright.Page, selectors []string) ([]byte, string, error) {
	for _, sel := range selectors {
		loc := page.Locator(sel).First()
		visible, err := loc.IsVisible()
		if err != nil || !visible {
			continue
		}
		img, err := loc.Screenshot(playwright.LocatorScreenshotOptions{
			Type: playwright.ScreenshotTypePng,
		})
		if err != nil {
			pm.logger.Debug().Err(err).Str("selector", sel).Msg("⚠️ Container screenshot failed")
			continue
		}
		pm.logger.Debug().Str("selector", sel).Msg("📸 Captured listing container")
		return img, sel, nil
	}

	img, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, "", fmt.Errorf("could not take screenshot: %w", err)
	}
	pm.logger.Debug().Msg("📸 No container matched, captured full page")
	return img, "", nil
}

func (pm *PlaywrightManager) Close() error {
	if pm.browser != nil {
		if err := pm.browser.Close(); err != nil {
			pm.logger.Warn().Err(err).Msg("⚠️ Failed to close browser")
		}
	}
	if pm.pw != nil {
		return pm.pw.Stop()
	}
	return nil
}
