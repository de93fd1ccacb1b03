package forge

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Fetch modes.
const (
	ModeHTTP       = "http"       // static GET only
	ModeBrowser    = "browser"    // go-rod Chrome
	ModePlaywright = "playwright" // playwright-go Chromium
	ModeAuto       = "auto"       // static GET, browser when the HTML looks like a SPA shell
)

// Config holds all locforge configuration.
type Config struct {
	DBPath  string        `yaml:"db_path"`
	HTTP    HTTPConfig    `yaml:"http"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Browser BrowserConfig `yaml:"browser"`
	Analyze AnalyzeConfig `yaml:"analyze"`
	Codegen CodegenConfig `yaml:"codegen"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr    string `yaml:"addr"`
	MaxBody int64  `yaml:"max_body"` // request body limit in bytes
}

// FetchConfig controls page acquisition.
type FetchConfig struct {
	Mode      string        `yaml:"mode"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxBody   int64         `yaml:"max_body"`
}

// BrowserConfig controls the headless renderers.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"` // WebSocket/CDP URL of an external Chrome
	ResourceBlocking []string      `yaml:"resource_blocking"`
	Stealth          bool          `yaml:"stealth"`
	NavTimeout       time.Duration `yaml:"nav_timeout"`
	Settle           time.Duration `yaml:"settle"`
}

// AnalyzeConfig bounds multi-URL analysis.
type AnalyzeConfig struct {
	Concurrency int `yaml:"concurrency"`
	MaxURLs     int `yaml:"max_urls"`
}

// CodegenConfig holds defaults for new projects.
type CodegenConfig struct {
	Language  string `yaml:"language"`
	Framework string `yaml:"framework"`
	Package   string `yaml:"package"`
	BaseURL   string `yaml:"base_url"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "locforge.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8090"
	}
	if c.HTTP.MaxBody <= 0 {
		c.HTTP.MaxBody = 20 << 20
	}
	if c.Fetch.Mode == "" {
		c.Fetch.Mode = ModeAuto
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "locforge/1.0"
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.MaxBody <= 0 {
		c.Fetch.MaxBody = 10 << 20
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 30 * time.Second
	}
	if c.Analyze.Concurrency <= 0 {
		c.Analyze.Concurrency = 4
	}
	if c.Analyze.MaxURLs <= 0 {
		c.Analyze.MaxURLs = 50
	}
	if c.Codegen.Language == "" {
		c.Codegen.Language = "go"
	}
	if c.Codegen.Framework == "" {
		c.Codegen.Framework = "playwright"
	}
}

func (c *Config) validate() error {
	switch c.Fetch.Mode {
	case ModeHTTP, ModeBrowser, ModePlaywright, ModeAuto:
	default:
		return fmt.Errorf("%w: fetch mode %q", ErrInvalidInput, c.Fetch.Mode)
	}
	return nil
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("forge: config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides the database path and listen address from
// LOCFORGE_DB and LOCFORGE_ADDR when they are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LOCFORGE_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("LOCFORGE_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
}
