// Package forge is the locforge service: it renders pages, runs locator
// inference over them, keeps the resulting frameworks in SQLite, and turns
// them into Playwright test suites.
//
// The pipeline:
//
//	URL → Renderer → locator.Engine → PageResult → Project → store / codegen
//
// Usage:
//
//	svc, err := forge.New(cfg)
//	defer svc.Close()
//	results, _ := svc.Analyze(ctx, urls)
//	p, _ := svc.SaveFramework(ctx, svc.BuildProject("shop", forge.ProjectConfig{}, results))
//	files, _ := svc.GenerateFramework(ctx, p.ID)
//
// The same operations are served over HTTP (Handler) and MCP (RegisterMCP).
package forge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/locforge/forge/internal/codegen"
	"github.com/hazyhaar/locforge/forge/internal/store"
	"github.com/hazyhaar/locforge/idgen"
	"github.com/hazyhaar/locforge/locator"
)

const maxNameLen = 100

// PageResult is the outcome of analysing one URL.
type PageResult struct {
	URL   string                  `json:"url"`
	Page  *locator.PageDefinition `json:"page,omitempty"`
	Tests []locator.TestCase      `json:"tests,omitempty"`
	Error string                  `json:"error,omitempty"`

	// HTML is the rendered source, kept for page docs.
	HTML []byte `json:"-"`
	Err  error  `json:"-"`
}

// Service wires the renderer, the inference engine, the framework store and
// code generation.
type Service struct {
	cfg      *Config
	db       *sql.DB
	store    *store.Store
	ownStore bool
	renderer Renderer
	engine   *locator.Engine
	ids      idgen.Generator
	metrics  *Metrics
	logger   *slog.Logger
	closers  []io.Closer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithRenderer replaces the renderer built from Config.Fetch.Mode.
func WithRenderer(r Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithEngine replaces the default inference engine.
func WithEngine(e *locator.Engine) Option {
	return func(s *Service) { s.engine = e }
}

// WithIDGenerator sets the generator for framework ids.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(s *Service) { s.ids = gen }
}

// WithDB uses an already open database instead of Config.DBPath. The caller
// keeps ownership of db.
func WithDB(db *sql.DB) Option {
	return func(s *Service) { s.db = db }
}

// New creates a Service. cfg may be nil.
func New(cfg *Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:     cfg,
		logger:  slog.Default(),
		ids:     idgen.Prefixed("fw_", idgen.Default),
		metrics: newMetrics(),
	}
	for _, o := range opts {
		o(s)
	}

	if s.db != nil {
		st, err := store.New(s.db)
		if err != nil {
			return nil, fmt.Errorf("forge: open store: %w", err)
		}
		s.store = st
	} else {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("forge: open store: %w", err)
		}
		s.store = st
		s.ownStore = true
	}
	if s.renderer == nil {
		r, closers, err := newRenderer(cfg, s.logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.renderer = r
		s.closers = closers
	}
	if s.engine == nil {
		s.engine = locator.New(locator.WithLogger(s.logger))
	}
	return s, nil
}

// Close releases the store and any browser processes.
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.ownStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the effective configuration.
func (s *Service) Config() *Config { return s.cfg }

// Metrics returns the service's collectors.
func (s *Service) Metrics() *Metrics { return s.metrics }

// AnalyzeHTML runs inference on caller-supplied HTML.
func (s *Service) AnalyzeHTML(ctx context.Context, rawHTML, sourceURL string) (*locator.Result, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, fmt.Errorf("%w: empty html", ErrInvalidInput)
	}
	res, err := s.infer(rawHTML, sourceURL, "html")
	if err != nil {
		return nil, err
	}
	s.logger.Info("forge: analyzed", "source", "html", "url", sourceURL,
		"page", res.PageName, "elements", len(res.Elements), "tests", len(res.Tests))
	return res, nil
}

func (s *Service) infer(rawHTML, sourceURL, source string) (*locator.Result, error) {
	start := time.Now()
	res, err := s.engine.Infer(rawHTML, sourceURL)
	if err != nil {
		s.metrics.observeAnalysis(source, outcomeParseError)
		return nil, fmt.Errorf("forge: infer %s: %w", sourceURL, err)
	}
	s.metrics.observeInference(time.Since(start), len(res.Elements))
	s.metrics.observeAnalysis(source, outcomeOK)
	return res, nil
}

// Analyze renders and analyses every URL with bounded concurrency. A failing
// URL is reported in its PageResult and does not stop the others. Results
// are in input order.
func (s *Service) Analyze(ctx context.Context, urls []string) ([]PageResult, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no urls", ErrInvalidInput)
	}
	if len(urls) > s.cfg.Analyze.MaxURLs {
		return nil, fmt.Errorf("%w: %d urls, limit %d", ErrInvalidInput, len(urls), s.cfg.Analyze.MaxURLs)
	}

	results := make([]PageResult, len(urls))
	var g errgroup.Group
	g.SetLimit(s.cfg.Analyze.Concurrency)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = s.analyzeOne(ctx, strings.TrimSpace(u))
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info("forge: analysis done", "urls", len(urls), "failed", failed)
	return results, nil
}

func (s *Service) analyzeOne(ctx context.Context, pageURL string) PageResult {
	out := PageResult{URL: pageURL}
	fail := func(err error) PageResult {
		out.Err = err
		out.Error = err.Error()
		s.logger.Warn("forge: analyze failed", "url", pageURL, "error", err)
		return out
	}

	if err := checkURL(pageURL); err != nil {
		s.metrics.observeAnalysis("url", outcomeRenderError)
		return fail(err)
	}
	html, err := s.renderer.Render(ctx, pageURL)
	if err != nil {
		s.metrics.observeAnalysis("url", outcomeRenderError)
		return fail(err)
	}
	res, err := s.infer(string(html), pageURL, "url")
	if err != nil {
		return fail(err)
	}
	page := res.Page()
	out.Page = &page
	out.Tests = res.Tests
	out.HTML = html
	s.logger.Info("forge: analyzed", "source", "url", "url", pageURL,
		"page", res.PageName, "elements", len(res.Elements), "tests", len(res.Tests))
	return out
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: url %q: %v", ErrInvalidInput, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url %q: need an absolute http(s) url", ErrInvalidInput, raw)
	}
	return nil
}

// BuildProject merges successful results into an unsaved project. Page
// names that collide get an ordinal suffix (LoginPage, LoginPage2) and the
// tests follow the rename. Empty config fields take the codegen defaults;
// the base URL defaults to the origin of the first successful URL.
func (s *Service) BuildProject(name string, cfg ProjectConfig, results []PageResult) *Project {
	if cfg.Language == "" {
		cfg.Language = s.cfg.Codegen.Language
	}
	if cfg.Framework == "" {
		cfg.Framework = s.cfg.Codegen.Framework
	}
	if cfg.Package == "" {
		cfg.Package = s.cfg.Codegen.Package
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = s.cfg.Codegen.BaseURL
	}

	p := &Project{Name: strings.TrimSpace(name), Config: cfg}
	seen := make(map[string]int)
	for _, r := range results {
		if r.Err != nil || r.Page == nil {
			continue
		}
		if p.Config.BaseURL == "" {
			if u, err := url.Parse(r.URL); err == nil && u.Host != "" {
				p.Config.BaseURL = u.Scheme + "://" + u.Host
			}
		}

		page := *r.Page
		seen[page.Name]++
		if n := seen[page.Name]; n > 1 {
			renamed := page.Name + strconv.Itoa(n)
			for seen[renamed] > 0 {
				n++
				renamed = page.Name + strconv.Itoa(n)
			}
			seen[renamed] = 1
			page.Name = renamed
		}
		p.Pages = append(p.Pages, page)
		for _, tc := range r.Tests {
			tc.Page = page.Name
			p.Tests = append(p.Tests, tc)
		}
		p.Sources = append(p.Sources, Source{Page: page.Name, URL: r.URL, HTML: string(r.HTML)})
	}
	return p
}

// validateProject checks the name and that every reference in p resolves.
func validateProject(p *Project) error {
	if p == nil {
		return fmt.Errorf("%w: nil project", ErrInvalidInput)
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: framework name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(p.Name) > maxNameLen {
		return fmt.Errorf("%w: framework name longer than %d", ErrInvalidInput, maxNameLen)
	}

	pages := make(map[string]map[string]bool, len(p.Pages))
	for _, page := range p.Pages {
		if page.Name == "" {
			return fmt.Errorf("%w: page without a name", ErrInvalidInput)
		}
		if _, dup := pages[page.Name]; dup {
			return fmt.Errorf("%w: duplicate page %q", ErrInvalidInput, page.Name)
		}
		els := make(map[string]bool, len(page.Elements))
		for _, el := range page.Elements {
			if el.Name == "" || el.LocatorValue == "" {
				return fmt.Errorf("%w: page %s: element needs a name and a locator", ErrInvalidInput, page.Name)
			}
			if !el.LocatorKind.Valid() {
				return fmt.Errorf("%w: page %s element %s: locator kind %q", ErrInvalidInput, page.Name, el.Name, el.LocatorKind)
			}
			if els[el.Name] {
				return fmt.Errorf("%w: page %s: duplicate element %q", ErrInvalidInput, page.Name, el.Name)
			}
			els[el.Name] = true
		}
		pages[page.Name] = els
	}
	for _, tc := range p.Tests {
		if _, ok := pages[tc.Page]; !ok {
			return fmt.Errorf("%w: test %q: unknown page %q", ErrInvalidInput, tc.Name, tc.Page)
		}
	}
	return nil
}

// SaveFramework validates and stores a new framework. Id, version and
// timestamps are assigned here.
func (s *Service) SaveFramework(ctx context.Context, p *Project) (*Project, error) {
	if err := validateProject(p); err != nil {
		return nil, err
	}
	existing, err := s.store.GetByName(ctx, p.Name)
	if err != nil {
		return nil, fmt.Errorf("forge: save: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: framework %q already exists", ErrConflict, p.Name)
	}
	p.ID = s.ids()
	if err := s.store.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("forge: save: %w", err)
	}
	s.metrics.frameworks.WithLabelValues("save").Inc()
	s.logger.Info("forge: framework saved", "id", p.ID, "name", p.Name, "pages", len(p.Pages), "tests", len(p.Tests))
	return p, nil
}

// GetFramework returns a stored framework.
func (s *Service) GetFramework(ctx context.Context, id string) (*Project, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("forge: get %s: %w", id, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: framework %s", ErrNotFound, id)
	}
	return p, nil
}

// ListFrameworks returns every framework, most recently updated first.
// Source HTML is omitted.
func (s *Service) ListFrameworks(ctx context.Context) ([]*Project, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("forge: list: %w", err)
	}
	if list == nil {
		list = []*Project{}
	}
	for _, p := range list {
		for i := range p.Sources {
			p.Sources[i].HTML = ""
		}
	}
	return list, nil
}

// UpdateFramework replaces a stored framework. p.Version must equal the
// stored version; on success it is incremented.
func (s *Service) UpdateFramework(ctx context.Context, p *Project) (*Project, error) {
	if err := validateProject(p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: framework id is required", ErrInvalidInput)
	}
	other, err := s.store.GetByName(ctx, p.Name)
	if err != nil {
		return nil, fmt.Errorf("forge: update %s: %w", p.ID, err)
	}
	if other != nil && other.ID != p.ID {
		return nil, fmt.Errorf("%w: framework %q already exists", ErrConflict, p.Name)
	}
	err = s.store.Update(ctx, p)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("%w: framework %s", ErrNotFound, p.ID)
	case errors.Is(err, store.ErrVersionConflict):
		return nil, fmt.Errorf("%w: %w", ErrConflict, err)
	case err != nil:
		return nil, fmt.Errorf("forge: update %s: %w", p.ID, err)
	}
	s.metrics.frameworks.WithLabelValues("update").Inc()
	s.logger.Info("forge: framework updated", "id", p.ID, "version", p.Version)
	return p, nil
}

// DeleteFramework removes a stored framework.
func (s *Service) DeleteFramework(ctx context.Context, id string) error {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("forge: delete %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%w: framework %s", ErrNotFound, id)
	}
	s.metrics.frameworks.WithLabelValues("delete").Inc()
	s.logger.Info("forge: framework deleted", "id", id)
	return nil
}

// Generate renders a project, saved or not, into source files keyed by
// relative path.
func (s *Service) Generate(p *Project) (map[string]string, error) {
	if err := validateProject(p); err != nil {
		return nil, err
	}
	files, err := codegen.Generate(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	s.metrics.frameworks.WithLabelValues("generate").Inc()
	return files, nil
}

// GenerateFramework renders a stored framework.
func (s *Service) GenerateFramework(ctx context.Context, id string) (map[string]string, error) {
	p, err := s.GetFramework(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Generate(p)
}
