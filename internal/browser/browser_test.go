package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobwatch/internal/config"
)

func TestIsBlocked(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{"Just a moment...", true},
		{"Attention Required! | Cloudflare", true},
		{"NVIDIA Careers", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBlocked(tt.title))
		})
	}
}

func TestLoadCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"name": "sid", "value": "abc", "domain": ".myworkdayjobs.com", "path": "/", "expires": 1893456000, "httpOnly": true, "secure": true, "sameSite": "Lax"},
  {"name": "pref", "value": "en", "domain": ".myworkdayjobs.com"}
]`), 0644))

	cookies, err := LoadCookies(path)
	require.NoError(t, err)
	require.Len(t, cookies, 2)

	pw := cookies[0].ToPlaywright()
	assert.Equal(t, "sid", pw.Name)
	assert.Equal(t, ".myworkdayjobs.com", *pw.Domain)
	assert.Equal(t, 1893456000.0, *pw.Expires)
	assert.True(t, *pw.HttpOnly)
	assert.Equal(t, playwright.SameSiteAttributeLax, pw.SameSite)

	pref := cookies[1].ToPlaywright()
	assert.Equal(t, "/", *pref.Path)
	assert.Nil(t, pref.Expires)
	assert.Nil(t, pref.SameSite)
}

func TestLoadCookiesErrors(t *testing.T) {
	cookies, err := LoadCookies("")
	assert.NoError(t, err)
	assert.Nil(t, cookies)

	_, err = LoadCookies(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = LoadCookies(bad)
	assert.Error(t, err)
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepCtx(context.Background(), 0))
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, time.Minute, remaining(context.Background(), time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.LessOrEqual(t, remaining(ctx, time.Minute), time.Second)
}

func TestChromeDPStartsBrowserOnce(t *testing.T) {
	m := NewChromeDP(config.BrowserConfig{Headless: true, ViewportWidth: 800, ViewportHeight: 600}, "", zerolog.Nop())
	var starts atomic.Int32
	var cancels []context.CancelFunc
	var mu sync.Mutex
	m.start = func(context.Context) (context.Context, context.CancelFunc, error) {
		starts.Add(1)
		ctx, cancel := context.WithCancel(context.Background())
		mu.Lock()
		cancels = append(cancels, cancel)
		mu.Unlock()
		return ctx, cancel, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.browser()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), starts.Load())

	first, err := m.browser()
	require.NoError(t, err)

	//a crashed browser is replaced on the next render
	cancels[0]()
	second, err := m.browser()
	require.NoError(t, err)
	assert.Equal(t, int32(2), starts.Load())
	assert.Error(t, first.Err())
	assert.NoError(t, second.Err())

	require.NoError(t, m.Close())
	assert.Error(t, second.Err())
}

func TestChromeDPStartFailure(t *testing.T) {
	m := NewChromeDP(config.BrowserConfig{}, "", zerolog.Nop())
	defer m.Close()
	m.start = func(context.Context) (context.Context, context.CancelFunc, error) {
		return nil, nil, errors.New("chrome not found")
	}

	_, err := m.Render(context.Background(), Request{URL: "https://example.com"})
	assert.ErrorContains(t, err, "chrome not found")
}
