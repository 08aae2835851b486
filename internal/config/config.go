// Package config loads newsdays configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newsdays/internal/view"
)

const appName = "newsdays"

type Config struct {
	API  APIConfig  `koanf:"api"`
	UI   UIConfig   `koanf:"ui"`
	Log  LogConfig  `koanf:"log"`
	Stub StubConfig `koanf:"stub"`
}

type APIConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
	// SummaryRate is summary regenerations per second; 0 means unlimited.
	SummaryRate  float64 `koanf:"summary_rate"`
	SummaryBurst int     `koanf:"summary_burst"`
}

type UIConfig struct {
	Theme     string        `koanf:"theme"`
	NoticeTTL time.Duration `koanf:"notice_ttl"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// StubConfig configures the local contract stub backend.
type StubConfig struct {
	Addr         string `koanf:"addr"`
	DBPath       string `koanf:"db_path"`
	SummaryField string `koanf:"summary_field"`
}

// Dir returns ~/.config/newsdays.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// Defaults returns the configuration used when nothing else is set.
// Paths are left empty here and filled relative to dir by applyDefaults.
func Defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL:      "http://localhost:8000",
			Timeout:      15 * time.Second,
			SummaryRate:  1,
			SummaryBurst: 2,
		},
		UI: UIConfig{
			Theme:     string(view.ThemeDark),
			NoticeTTL: 4 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Stub: StubConfig{
			Addr:         "127.0.0.1:8000",
			SummaryField: "summary",
		},
	}
}

// applyDefaults fills what Defaults cannot know: paths under the config dir,
// and string fields explicitly set to empty.
func applyDefaults(cfg *Config, dir string) {
	def := Defaults()
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = def.API.BaseURL
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = def.UI.Theme
	}
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(dir, appName+".log")
	}
	if cfg.Stub.DBPath == "" {
		cfg.Stub.DBPath = filepath.Join(dir, "stub.db")
	}
}

// Validate checks values that would otherwise fail late, at request time.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("api.base_url has no host: %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.API.SummaryRate < 0 {
		return fmt.Errorf("api.summary_rate must not be negative")
	}
	if c.API.SummaryBurst < 0 {
		return fmt.Errorf("api.summary_burst must not be negative")
	}
	if _, err := view.ParseTheme(c.UI.Theme); err != nil {
		return fmt.Errorf("ui.theme: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if strings.TrimSpace(c.Stub.SummaryField) == "" {
		return fmt.Errorf("stub.summary_field must not be empty")
	}
	return nil
}

// Theme returns the validated UI theme.
func (c *Config) Theme() view.Theme {
	t, err := view.ParseTheme(c.UI.Theme)
	if err != nil {
		return view.ThemeDark
	}
	return t
}
