// Command locforge infers element locators and test flows from web pages
// and generates Playwright test suites.
//
// Usage:
//
//	locforge -html page.html -source-url https://app.example/login   # infer and print JSON
//	locforge -url https://a.example/login,https://a.example/search   # render, infer, print JSON
//	locforge -url ... -name shop -save                              # also store the framework
//	locforge -url ... -out ./e2e                                    # write the generated suite
//	locforge -serve :8090                                           # HTTP API
//	locforge -mcp                                                   # MCP over stdio
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/locforge/forge"
)

var version = "dev"

type options struct {
	configPath string
	dbPath     string
	urls       string
	htmlFile   string
	sourceURL  string
	name       string
	save       bool
	outDir     string
	serve      string
	mcp        bool
	mode       string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to locforge.yaml config file")
	flag.StringVar(&o.dbPath, "db", "", "path to SQLite database")
	flag.StringVar(&o.urls, "url", "", "comma-separated URLs to analyse")
	flag.StringVar(&o.htmlFile, "html", "", "HTML file to analyse instead of fetching")
	flag.StringVar(&o.sourceURL, "source-url", "", "URL the -html file was taken from")
	flag.StringVar(&o.name, "name", "locforge", "framework name for -save and -out")
	flag.BoolVar(&o.save, "save", false, "store the analysed pages as a framework")
	flag.StringVar(&o.outDir, "out", "", "write the generated Playwright suite to this directory")
	flag.StringVar(&o.serve, "serve", "", "serve the HTTP API on this address (\"\" uses config)")
	flag.BoolVar(&o.mcp, "mcp", false, "serve MCP tools over stdio")
	flag.StringVar(&o.mode, "mode", "", "fetch mode: http, browser, playwright, auto")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("locforge: .env", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("locforge: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	cfg, err := resolveConfig(o)
	if err != nil {
		return err
	}
	svc, err := forge.New(cfg, forge.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer svc.Close()

	switch {
	case o.mcp:
		srv := mcp.NewServer(&mcp.Implementation{Name: "locforge", Version: version}, nil)
		svc.RegisterMCP(srv)
		logger.Info("locforge: mcp on stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})

	case o.serve != "" || (o.urls == "" && o.htmlFile == ""):
		addr := o.serve
		if addr == "" {
			addr = cfg.HTTP.Addr
		}
		return svc.ListenAndServe(ctx, addr)
	}

	results, err := analyse(ctx, svc, o)
	if err != nil {
		return err
	}
	if o.save || o.outDir != "" {
		p := svc.BuildProject(o.name, forge.ProjectConfig{}, results)
		if len(p.Pages) == 0 {
			return errors.New("no page could be analysed")
		}
		if o.save {
			if p, err = svc.SaveFramework(ctx, p); err != nil {
				return fmt.Errorf("save: %w", err)
			}
			logger.Info("locforge: framework saved", "id", p.ID, "name", p.Name)
		}
		if o.outDir != "" {
			files, err := svc.Generate(p)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			if err := writeFiles(o.outDir, files); err != nil {
				return err
			}
			logger.Info("locforge: suite written", "dir", o.outDir, "files", len(files))
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func resolveConfig(o options) (*forge.Config, error) {
	cfg := &forge.Config{}
	if o.configPath != "" {
		c, err := forge.LoadConfigFile(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	cfg.ApplyEnv()
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.mode != "" {
		cfg.Fetch.Mode = o.mode
	}
	return cfg, nil
}

func analyse(ctx context.Context, svc *forge.Service, o options) ([]forge.PageResult, error) {
	if o.htmlFile != "" {
		data, err := os.ReadFile(o.htmlFile)
		if err != nil {
			return nil, err
		}
		res, err := svc.AnalyzeHTML(ctx, string(data), o.sourceURL)
		if err != nil {
			return nil, err
		}
		page := res.Page()
		return []forge.PageResult{{URL: o.sourceURL, Page: &page, Tests: res.Tests, HTML: data}}, nil
	}

	var urls []string
	for _, u := range strings.Split(o.urls, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return svc.Analyze(ctx, urls)
}

// writeFiles writes the generated tree under dir, in path order.
func writeFiles(dir string, files map[string]string) error {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		full := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(files[p]), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", full, err)
		}
	}
	return nil
}
