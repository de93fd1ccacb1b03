package forge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/locforge/forge/internal/fetcher"
)

const staticPage = `<html><head><title>Contact</title></head><body>
<h1>Contact our support team</h1>
<p>Send us a message and we will get back to you within one business day.</p>
<form><input id="from" type="email"><textarea name="body"></textarea><button>Send</button></form>
</body></html>`

const spaShell = `<html><head><title>App</title><script src="/bundle.js"></script></head><body><div id="root"></div>
<noscript>You need to enable JavaScript to run this app.</noscript></body></html>`

func siteServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/static", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, staticPage)
	})
	mux.HandleFunc("/spa", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, spaShell)
	})
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no bots", http.StatusForbidden)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type countingRenderer struct {
	calls int
	html  string
	err   error
}

func (c *countingRenderer) Render(context.Context, string) ([]byte, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []byte(c.html), nil
}

func auto(b Renderer) *AutoRenderer {
	return newAutoRenderer(fetcher.New(), b, slog.New(slog.DiscardHandler))
}

func TestAutoRenderer_StaticSufficient(t *testing.T) {
	srv := siteServer(t)
	b := &countingRenderer{html: "<html>rendered</html>"}
	html, err := auto(b).Render(context.Background(), srv.URL+"/static")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), "Contact our support team") {
		t.Errorf("got %s", html)
	}
	if b.calls != 0 {
		t.Errorf("browser calls: got %d, want 0", b.calls)
	}
}

func TestAutoRenderer_EscalatesSPA(t *testing.T) {
	srv := siteServer(t)
	b := &countingRenderer{html: "<html>rendered</html>"}
	html, err := auto(b).Render(context.Background(), srv.URL+"/spa")
	if err != nil {
		t.Fatal(err)
	}
	if string(html) != "<html>rendered</html>" || b.calls != 1 {
		t.Errorf("got %q after %d calls", html, b.calls)
	}
}

func TestAutoRenderer_EscalatesFetchError(t *testing.T) {
	srv := siteServer(t)
	b := &countingRenderer{html: "<html>rendered</html>"}
	if _, err := auto(b).Render(context.Background(), srv.URL+"/forbidden"); err != nil {
		t.Fatalf("browser should rescue a 403: %v", err)
	}

	b.err = errors.New("chrome gone")
	_, err := auto(b).Render(context.Background(), srv.URL+"/forbidden")
	var se *fetcher.StatusError
	if !errors.As(err, &se) || se.Code != 403 || !strings.Contains(err.Error(), "chrome gone") {
		t.Errorf("got %v, want both errors", err)
	}
}

func TestAutoRenderer_BrowserFailureKeepsStatic(t *testing.T) {
	srv := siteServer(t)
	b := &countingRenderer{err: errors.New("chrome gone")}
	html, err := auto(b).Render(context.Background(), srv.URL+"/spa")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), `<div id="root">`) {
		t.Errorf("expected the static shell, got %s", html)
	}
}

func TestAutoRenderer_NoBrowser(t *testing.T) {
	srv := siteServer(t)
	if _, err := auto(nil).Render(context.Background(), srv.URL+"/spa"); err != nil {
		t.Errorf("spa without browser: %v", err)
	}
	if _, err := auto(nil).Render(context.Background(), srv.URL+"/forbidden"); err == nil {
		t.Error("403 without browser: expected error")
	}
}

func TestNewRenderer_Modes(t *testing.T) {
	for _, mode := range []string{ModeHTTP, ModeBrowser, ModePlaywright, ModeAuto} {
		cfg := &Config{Fetch: FetchConfig{Mode: mode}}
		cfg.defaults()
		r, closers, err := newRenderer(cfg, slog.New(slog.DiscardHandler))
		if err != nil || r == nil {
			t.Errorf("%s: got %v, %v", mode, r, err)
		}
		if mode != ModeHTTP && len(closers) != 1 {
			t.Errorf("%s: closers: got %d, want 1", mode, len(closers))
		}
		for _, c := range closers {
			c.Close()
		}
	}
	cfg := &Config{Fetch: FetchConfig{Mode: "ftp"}}
	if _, _, err := newRenderer(cfg, slog.Default()); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad mode: got %v", err)
	}
}
