package forge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/locforge/forge/internal/browser"
	"github.com/hazyhaar/locforge/forge/internal/fetcher"
)

// Renderer supplies the HTML of a page as a user would see it.
type Renderer interface {
	Render(ctx context.Context, url string) ([]byte, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, url string) ([]byte, error)

func (f RendererFunc) Render(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }

// AutoRenderer tries a static GET first and escalates to a browser when the
// response fails or looks like an unrendered SPA shell.
type AutoRenderer struct {
	static  *fetcher.Fetcher
	browser Renderer
	logger  *slog.Logger
}

func newAutoRenderer(static *fetcher.Fetcher, b Renderer, logger *slog.Logger) *AutoRenderer {
	return &AutoRenderer{static: static, browser: b, logger: logger}
}

// Render implements Renderer.
func (a *AutoRenderer) Render(ctx context.Context, url string) ([]byte, error) {
	res, err := a.static.Fetch(ctx, url)
	if err == nil && res.Sufficient {
		return res.HTML, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("forge: render %s: %w", url, ctx.Err())
	}
	if a.browser == nil {
		if err != nil {
			return nil, err
		}
		return res.HTML, nil
	}

	reason := "insufficient"
	if err != nil {
		reason = err.Error()
	}
	a.logger.Info("forge: escalating to browser", "url", url, "reason", reason)

	html, berr := a.browser.Render(ctx, url)
	if berr == nil {
		return html, nil
	}
	if err != nil {
		return nil, fmt.Errorf("forge: render %s: %w", url, errors.Join(err, berr))
	}
	a.logger.Warn("forge: browser render failed, using static html", "url", url, "error", berr)
	return res.HTML, nil
}

// newRenderer builds the renderer for the configured fetch mode. The
// returned closers release browser processes.
func newRenderer(cfg *Config, logger *slog.Logger) (Renderer, []io.Closer, error) {
	static := fetcher.New(
		fetcher.WithUserAgent(cfg.Fetch.UserAgent),
		fetcher.WithTimeout(cfg.Fetch.Timeout),
		fetcher.WithMaxBody(cfg.Fetch.MaxBody),
		fetcher.WithLogger(logger),
	)
	bcfg := browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Stealth:          cfg.Browser.Stealth,
		NavTimeout:       cfg.Browser.NavTimeout,
		Settle:           cfg.Browser.Settle,
		Logger:           logger,
	}

	switch cfg.Fetch.Mode {
	case ModeHTTP:
		return static, nil, nil
	case ModeBrowser:
		m := browser.NewManager(bcfg)
		return m, []io.Closer{m}, nil
	case ModePlaywright:
		p := browser.NewPlaywright(bcfg)
		return p, []io.Closer{p}, nil
	case ModeAuto:
		m := browser.NewManager(bcfg)
		return newAutoRenderer(static, m, logger), []io.Closer{m}, nil
	}
	return nil, nil, fmt.Errorf("%w: fetch mode %q", ErrInvalidInput, cfg.Fetch.Mode)
}
