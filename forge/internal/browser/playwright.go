package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Playwright renders pages through playwright-go. The driver and browser
// start lazily on the first Render.
type Playwright struct {
	cfg     Config
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	closed  bool
}

// NewPlaywright creates a Playwright renderer. RemoteURL, when set, is a CDP
// endpoint to connect to instead of launching Chromium.
func NewPlaywright(cfg Config) *Playwright {
	cfg.defaults()
	return &Playwright{cfg: cfg}
}

func (p *Playwright) start() (playwright.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("browser: playwright is closed")
	}
	if p.browser != nil && p.browser.IsConnected() {
		return p.browser, nil
	}
	if p.pw == nil {
		pw, err := playwright.Run()
		if err != nil {
			return nil, fmt.Errorf("browser: playwright run: %w", err)
		}
		p.pw = pw
	}

	var b playwright.Browser
	var err error
	if p.cfg.RemoteURL != "" {
		p.cfg.Logger.Info("browser: playwright connecting over cdp", "url", p.cfg.RemoteURL)
		b, err = p.pw.Chromium.ConnectOverCDP(p.cfg.RemoteURL)
	} else {
		b, err = p.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(true),
			Args:     []string{"--disable-blink-features=AutomationControlled"},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: playwright launch: %w", err)
	}
	p.browser = b
	p.cfg.Logger.Info("browser: playwright chromium ready", "version", b.Version())
	return b, nil
}

// Render loads pageURL in a fresh browser context, waits for network idle,
// and returns the flattened document.
func (p *Playwright) Render(ctx context.Context, pageURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("browser: render %s: %w", pageURL, err)
	}
	b, err := p.start()
	if err != nil {
		return nil, err
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(true),
		JavaScriptEnabled: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("browser: new context: %w", err)
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("browser: new page: %w", err)
	}

	if set := blockSetOf(p.cfg.ResourceBlocking); len(set) > 0 {
		err := page.Route("**/*", func(route playwright.Route) {
			if shouldBlock(set, route.Request().ResourceType()) {
				_ = route.Abort("blockedbyclient")
				return
			}
			_ = route.Continue()
		})
		if err != nil {
			p.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	start := time.Now()
	timeout := navTimeout(ctx, p.cfg.NavTimeout)
	if _, err := page.Goto(pageURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if p.cfg.Settle > 0 {
		page.WaitForTimeout(float64(p.cfg.Settle.Milliseconds()))
	}

	v, err := page.Evaluate(FlattenScript)
	if err != nil {
		return nil, fmt.Errorf("browser: flatten %s: %w", pageURL, err)
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("browser: flatten %s: unexpected result %T", pageURL, v)
	}
	p.cfg.Logger.Debug("browser: rendered", "url", pageURL, "bytes", len(s), "duration", time.Since(start), "backend", "playwright")
	return []byte(s), nil
}

// Close stops the browser and the driver.
func (p *Playwright) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	var errs []error
	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		p.browser = nil
	}
	if p.pw != nil {
		if err := p.pw.Stop(); err != nil {
			errs = append(errs, err)
		}
		p.pw = nil
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("browser: playwright close: %w", err)
	}
	return nil
}

// navTimeout returns the configured timeout, shortened to the context
// deadline when that comes first.
func navTimeout(ctx context.Context, d time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < d {
			if left < time.Millisecond {
				return time.Millisecond
			}
			return left
		}
	}
	return d
}
