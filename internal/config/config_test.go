package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdays/internal/view"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := load(filepath.Join(dir, "config.yaml"), false, dir)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, 1.0, cfg.API.SummaryRate)
	assert.Equal(t, 2, cfg.API.SummaryBurst)
	assert.Equal(t, view.ThemeDark, cfg.Theme())
	assert.Equal(t, 4*time.Second, cfg.UI.NoticeTTL)
	assert.Equal(t, filepath.Join(dir, "newsdays.log"), cfg.Log.File)
	assert.Equal(t, filepath.Join(dir, "stub.db"), cfg.Stub.DBPath)
	assert.Equal(t, "summary", cfg.Stub.SummaryField)
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
api:
  base_url: https://news.example.com/
  timeout: 3s
  summary_rate: 0
ui:
  theme: light
log:
  format: console
stub:
  summary_field: resumen
`)
	cfg, err := load(path, true, dir)
	require.NoError(t, err)

	assert.Equal(t, "https://news.example.com/", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Zero(t, cfg.API.SummaryRate, "an explicit zero disables the limit")
	assert.Equal(t, 2, cfg.API.SummaryBurst)
	assert.Equal(t, view.ThemeLight, cfg.Theme())
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "resumen", cfg.Stub.SummaryField)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "api:\n  base_url: http://file.example\n")
	t.Setenv("NEWSDAYS_API_BASE_URL", "http://env.example:9000")
	t.Setenv("NEWSDAYS_UI_NOTICE_TTL", "10s")

	cfg, err := load(path, true, dir)
	require.NoError(t, err)
	assert.Equal(t, "http://env.example:9000", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.UI.NoticeTTL)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := load(filepath.Join(dir, "nope.yaml"), true, dir)
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "api: [unclosed")
	_, err := load(path, true, dir)
	assert.ErrorContains(t, err, "failed to load config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://x" }, "http(s)"},
		{"no host", func(c *Config) { c.API.BaseURL = "http://" }, "no host"},
		{"negative rate", func(c *Config) { c.API.SummaryRate = -1 }, "summary_rate"},
		{"negative burst", func(c *Config) { c.API.SummaryBurst = -1 }, "summary_burst"},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }, "ui.theme"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty summary field", func(c *Config) { c.Stub.SummaryField = " " }, "summary_field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}
