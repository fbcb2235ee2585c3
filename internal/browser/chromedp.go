package browser

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"go-jobwatch/internal/config"
)

// ChromeDPManager renders pages over the DevTools protocol. It needs only a
// Chrome/Chromium binary on the host, no driver download. One Chrome process
// is started on first use; every render gets its own tab and browser context.
type ChromeDPManager struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	cfg         config.BrowserConfig
	logger      zerolog.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	start         func(allocCtx context.Context) (context.Context, context.CancelFunc, error)
}

func NewChromeDP(cfg config.BrowserConfig, userAgent string, logger zerolog.Logger) *ChromeDPManager {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}

	//the allocator outlives any single check, tabs are bound to their own ctx
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeDPManager{
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
		cfg:         cfg,
		logger:      logger.With().Str("engine", "chromedp").Logger(),
		start:       startChrome,
	}
}

func startChrome(allocCtx context.Context) (context.Context, context.CancelFunc, error) {
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	//running no actions launches the process
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("could not start chrome: %w", err)
	}
	return browserCtx, cancel, nil
}

// browser returns the shared browser context, starting Chrome on first use
// and again if the process went away
func (m *ChromeDPManager) browser() (context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browserCtx != nil && m.browserCtx.Err() == nil {
		return m.browserCtx, nil
	}
	if m.cancelBrowser != nil {
		m.cancelBrowser()
	}
	browserCtx, cancel, err := m.start(m.allocCtx)
	if err != nil {
		return nil, err
	}
	m.browserCtx, m.cancelBrowser = browserCtx, cancel
	m.logger.Info().Msg("🚀 Chrome started")
	return browserCtx, nil
}

// Render loads req.URL in a fresh tab, waits for the listing to settle and
// captures it. The tab has its own cookie jar.
func (m *ChromeDPManager) Render(ctx context.Context, req Request) (*Capture, error) {
	browserCtx, err := m.browser()
	if err != nil {
		return nil, err
	}
	tabCtx, cancelTab := chromedp.NewContext(browserCtx, chromedp.WithNewBrowserContext())
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var title string
	navCtx, cancelNav := context.WithTimeout(tabCtx, remaining(ctx, m.cfg.NavTimeout))
	defer cancelNav()
	err = chromedp.Run(navCtx,
		chromedp.EmulateViewport(int64(m.cfg.ViewportWidth), int64(m.cfg.ViewportHeight)),
		setCookies(req.Cookies),
		chromedp.Navigate(req.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Title(&title),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("browser rendering failed: %w", err)
	}
	if IsBlocked(title) {
		return nil, fmt.Errorf("%w: %q", ErrBlocked, title)
	}

	m.waitForLoading(tabCtx)

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.Sleep(m.cfg.SettleDelay),
		chromedp.Evaluate(scrollBottomJS, nil),
		chromedp.Sleep(time.Second),
		chromedp.Evaluate(scrollTopJS, nil),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("could not read page content: %w", err)
	}
	capture := &Capture{HTML: html, Title: title}

	if req.Screenshot {
		img, selector, err := m.screenshot(tabCtx, req.Selectors)
		if err != nil {
			return nil, err
		}
		capture.Image = img
		capture.Selector = selector
	}
	return capture, nil
}

func (m *ChromeDPManager) waitForLoading(tabCtx context.Context) {
	for _, sel := range m.cfg.LoadingSelectors {
		waitCtx, cancel := context.WithTimeout(tabCtx, 10*time.Second)
		err := chromedp.Run(waitCtx, chromedp.WaitNotPresent(sel, chromedp.ByQuery))
		cancel()
		if err != nil {
			m.logger.Debug().Str("selector", sel).Msg("⏳ Loading indicator still present")
		}
	}
}

func (m *ChromeDPManager) screenshot(tabCtx context.Context, selectors []string) ([]byte, string, error) {
	for _, sel := range selectors {
		var present bool
		check := fmt.Sprintf(`(() => { const el = document.querySelector(%s); return !!el && el.offsetHeight > 0; })()`, strconv.Quote(sel))
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(check, &present)); err != nil || !present {
			continue
		}

		var img []byte
		if err := chromedp.Run(tabCtx, chromedp.Screenshot(sel, &img, chromedp.NodeVisible, chromedp.ByQuery)); err != nil {
			m.logger.Debug().Err(err).Str("selector", sel).Msg("⚠️ Container screenshot failed")
			continue
		}
		m.logger.Debug().Str("selector", sel).Msg("📸 Captured listing container")
		return img, sel, nil
	}

	var img []byte
	//quality 100 keeps the capture lossless PNG
	if err := chromedp.Run(tabCtx, chromedp.FullScreenshot(&img, 100)); err != nil {
		return nil, "", fmt.Errorf("could not take screenshot: %w", err)
	}
	m.logger.Debug().Msg("📸 No container matched, captured full page")
	return img, "", nil
}

func (m *ChromeDPManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelBrowser != nil {
		m.cancelBrowser()
		m.browserCtx, m.cancelBrowser = nil, nil
	}
	m.cancelAlloc()
	return nil
}
