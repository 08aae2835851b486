package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix         = "NEWSDAYS_"
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load reads configuration from a YAML file, then overrides with environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (NEWSDAYS_API_BASE_URL, NEWSDAYS_UI_THEME, ...)
//  2. YAML file (configPath, or ~/.config/newsdays/config.yaml when empty)
//  3. Defaults
//
// A missing file is not an error; an explicitly named one that cannot be read is.
func Load(configPath string) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	explicit := configPath != ""
	if !explicit {
		configPath = filepath.Join(dir, "config.yaml")
	}
	return load(configPath, explicit, dir)
}

func load(configPath string, explicit bool, dir string) (*Config, error) {
	k := koanf.New(".")

	content, err := readConfigFile(configPath)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, err
	}

	// NEWSDAYS_API_BASE_URL -> api.base_url
	// Split on the first underscore only so field names keep theirs.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Keys absent from both sources keep their default.
	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg, dir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
