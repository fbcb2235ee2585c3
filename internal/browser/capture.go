// Package browser renders career pages in a headless browser, either through
// Playwright or through the Chrome DevTools protocol.
package browser

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrBlocked is returned when the page served is a bot challenge instead of
// the listing
var ErrBlocked = errors.New("blocked by bot protection")

var blockedTitles = []string{"Attention Required", "Just a moment", "Cloudflare"}

// IsBlocked reports whether a page title belongs to a challenge page
func IsBlocked(title string) bool {
	for _, t := range blockedTitles {
		if strings.Contains(title, t) {
			return true
		}
	}
	return false
}

// Request describes one page render
type Request struct {
	URL string
	//Selectors are tried in order; the first visible one is screenshotted
	Selectors  []string
	Screenshot bool
	Cookies    []Cookie
}

// Capture is what a render produced
type Capture struct {
	HTML  string
	Title string
	//PNG, only when a screenshot was requested
	Image []byte
	//Selector that was screenshotted, empty for a full page shot
	Selector string
}

// Renderer is implemented by both engines
type Renderer interface {
	Render(ctx context.Context, req Request) (*Capture, error)
	Close() error
}

// sleepCtx waits for d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// remaining caps d by the time left before ctx's deadline
func remaining(ctx context.Context, d time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return d
	}
	left := time.Until(deadline)
	if left < d {
		return left
	}
	return d
}
