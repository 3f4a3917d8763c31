// Package config loads process-wide configuration from file, environment
// variables, and CLI flags, with flags taking the highest precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names searched in the working directory.
const (
	ConfigFileName    = "acsgrid.yaml"
	ConfigFileNameAlt = "acsgrid.yml"
)

// Defaults.
const (
	DefaultVintage     = 2023
	DefaultStartYear   = 2009
	DefaultBatchSize   = 45
	DefaultPort        = 32101
	DefaultDataDir     = "./data"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultMemoSize    = 512
	DefaultMemoTTL     = time.Hour
)

// DefaultGroups are the demographic profile tables loaded when none are
// configured.
var DefaultGroups = []string{"DP02", "DP03", "DP04", "DP05"}

// Config is the process-wide configuration.
type Config struct {
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Vintage     int           `koanf:"vintage"`
	StartYear   int           `koanf:"start_year"`
	Groups      []string      `koanf:"groups"`
	BatchSize   int           `koanf:"batch_size"`
	DataDir     string        `koanf:"data_dir"`
	CachePath   string        `koanf:"cache_path"`
	Port        int           `koanf:"port"`
	HTTPTimeout time.Duration `koanf:"http_timeout"`
	MemoSize    int           `koanf:"memo_size"`
	MemoTTL     time.Duration `koanf:"memo_ttl"`
	Verbose     bool          `koanf:"verbose"`
}

// CacheFile returns the KV cache path, defaulting to data_dir/kv_cache.db.
func (c *Config) CacheFile() string {
	if c.CachePath != "" {
		return c.CachePath
	}
	return filepath.Join(c.DataDir, "kv_cache.db")
}

// Validate rejects configurations the core cannot operate with.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Vintage < c.StartYear {
		return fmt.Errorf("vintage %d precedes start_year %d", c.Vintage, c.StartYear)
	}
	if len(c.Groups) == 0 {
		return fmt.Errorf("at least one variable group is required")
	}
	return nil
}

// findConfigFile finds the config file to use.
// Priority: explicit path > acsgrid.yaml > acsgrid.yml.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(ConfigFileName); err == nil {
		return ConfigFileName
	}
	if _, err := os.Stat(ConfigFileNameAlt); err == nil {
		return ConfigFileNameAlt
	}
	return ""
}

// Load loads configuration with precedence flags > env vars > config file >
// defaults. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults.
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"base_url":     "https://api.census.gov/data",
		"vintage":      DefaultVintage,
		"start_year":   DefaultStartYear,
		"groups":       DefaultGroups,
		"batch_size":   DefaultBatchSize,
		"data_dir":     DefaultDataDir,
		"port":         DefaultPort,
		"http_timeout": DefaultHTTPTimeout,
		"memo_size":    DefaultMemoSize,
		"memo_ttl":     DefaultMemoTTL,
		"verbose":      false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file, when present.
	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment variables: ACSGRID_BATCH_SIZE -> batch_size.
	if err := k.Load(env.Provider("ACSGRID_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "ACSGRID_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
