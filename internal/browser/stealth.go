package browser

import (
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

// RandomDelay waits for a random duration between min and max milliseconds
func RandomDelay(min, max int) {
	if min >= max {
		time.Sleep(time.Duration(min) * time.Millisecond)
		return
	}
	duration := rand.Intn(max-min+1) + min
	time.Sleep(time.Duration(duration) * time.Millisecond)
}

const (
	scrollStepJS   = "window.scrollBy(0, window.innerHeight / 2)"
	scrollBottomJS = "window.scrollTo(0, document.body.scrollHeight)"
	scrollTopJS    = "window.scrollTo(0, 0)"
)

// ScrollForLazyLoad scrolls down in steps so lazily rendered postings load,
// then returns to the top so screenshots always start at the same offset
func ScrollForLazyLoad(page playwright.Page) error {
	for i := 0; i < 4; i++ {
		if _, err := page.Evaluate(scrollStepJS); err != nil {
			return err
		}
		RandomDelay(300, 700)
	}
	if _, err := page.Evaluate(scrollBottomJS); err != nil {
		return err
	}
	RandomDelay(500, 800)

	_, err := page.Evaluate(scrollTopJS)
	return err
}
