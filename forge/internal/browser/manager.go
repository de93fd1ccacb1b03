// Package browser renders pages in headless Chromium so the locator engine
// sees the DOM a user would see. Two backends share one contract,
// Render(ctx, url) ([]byte, error): Manager drives Chrome through go-rod,
// Playwright drives it through playwright-go.
//
// Both backends run the flatten script after load, which serialises open
// shadow roots and same-origin iframe documents into the light DOM.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures a renderer.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local headless Chrome.
	RemoteURL string

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	// Stealth applies go-rod/stealth evasions to every page.
	Stealth bool

	// NavTimeout bounds navigation plus load. Default: 30s.
	NavTimeout time.Duration

	// Settle is an extra wait after load for late client rendering. Default: 0.
	Settle time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Settle < 0 {
		c.Settle = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns one Chrome process, launched lazily on the first Render.
// Safe for concurrent use; each Render opens its own page.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a Manager. Chrome is not started until Start or Render.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to the remote instance) if it is not
// already running.
func (m *Manager) Start() (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked()
}

func (m *Manager) startLocked() (*rod.Browser, error) {
	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return m.browser, nil
	}
	b, err := m.launch()
	if err != nil {
		return nil, err
	}
	m.browser = b
	return b, nil
}

// Close shuts Chrome down. A closed Manager refuses further renders.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch() (*rod.Browser, error) {
	log := m.cfg.Logger

	var wsURL string
	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Headless(true)
		// Anti-detection flag.
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "stealth", m.cfg.Stealth)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if m.lnch != nil {
			m.lnch.Kill()
			m.lnch = nil
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}
	return b, nil
}

func (m *Manager) cleanup() error {
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Kill()
		m.lnch = nil
	}
	if err != nil {
		return fmt.Errorf("browser: close: %w", err)
	}
	return nil
}

// drop discards a browser whose connection failed so the next Render
// relaunches it.
func (m *Manager) drop(b *rod.Browser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browser == b {
		m.cfg.Logger.Warn("browser: dropping broken connection")
		_ = m.cleanup()
	}
}

// Render navigates a fresh page to pageURL, waits for load, flattens shadow
// roots and same-origin iframes, and returns the serialised document.
func (m *Manager) Render(ctx context.Context, pageURL string) ([]byte, error) {
	m.mu.Lock()
	b, err := m.startLocked()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	page, err := m.openPage(b)
	if err != nil {
		m.drop(b)
		return nil, err
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavTimeout)
	defer cancel()

	start := time.Now()
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		m.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	if m.cfg.Settle > 0 {
		select {
		case <-time.After(m.cfg.Settle):
		case <-ctx.Done():
			return nil, fmt.Errorf("browser: render %s: %w", pageURL, ctx.Err())
		}
	}

	res, err := page.Context(navCtx).Eval(FlattenScript)
	if err != nil {
		return nil, fmt.Errorf("browser: flatten %s: %w", pageURL, err)
	}
	out := []byte(res.Value.Str())
	m.cfg.Logger.Debug("browser: rendered", "url", pageURL, "bytes", len(out), "duration", time.Since(start))
	return out, nil
}

func (m *Manager) openPage(b *rod.Browser) (*rod.Page, error) {
	var page *rod.Page
	var err error
	if m.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	if len(m.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, m.cfg.ResourceBlocking); err != nil {
			m.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}
	return page, nil
}
