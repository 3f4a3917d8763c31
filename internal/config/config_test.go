package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://api.census.gov/data", cfg.BaseURL)
	assert.Equal(t, 2023, cfg.Vintage)
	assert.Equal(t, 2009, cfg.StartYear)
	assert.Equal(t, []string{"DP02", "DP03", "DP04", "DP05"}, cfg.Groups)
	assert.Equal(t, 45, cfg.BatchSize)
	assert.Equal(t, 32101, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 512, cfg.MemoSize)
	assert.Equal(t, time.Hour, cfg.MemoTTL)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acsgrid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
vintage: 2021
groups:
  - DP02
data_dir: /tmp/acs
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 2021, cfg.Vintage)
	assert.Equal(t, []string{"DP02"}, cfg.Groups)
	assert.Equal(t, "/tmp/acs", cfg.DataDir)
	assert.Equal(t, 45, cfg.BatchSize, "unset keys keep defaults")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acsgrid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vintage: 2021\n"), 0o644))

	t.Setenv("ACSGRID_VINTAGE", "2022")
	t.Setenv("ACSGRID_API_KEY", "from-env")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2022, cfg.Vintage)
	assert.Equal(t, "from-env", cfg.APIKey)
}

func TestLoadFlagsOverrideEverything(t *testing.T) {
	t.Setenv("ACSGRID_VINTAGE", "2022")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("vintage", 0, "")
	flags.Int("batch-size", 0, "")
	require.NoError(t, flags.Parse([]string{"--vintage=2019", "--batch-size=10"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 2019, cfg.Vintage)
	assert.Equal(t, 10, cfg.BatchSize)
}

func TestLoadUnchangedFlagsDoNotOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("vintage", 0, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 2023, cfg.Vintage, "a flag left at its zero default is ignored")
}

func TestCacheFile(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/acs"}
	assert.Equal(t, filepath.Join("/var/lib/acs", "kv_cache.db"), cfg.CacheFile())

	cfg.CachePath = "/elsewhere/cache.db"
	assert.Equal(t, "/elsewhere/cache.db", cfg.CacheFile())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"vintage before start", func(c *Config) { c.Vintage = 2000 }, "precedes"},
		{"no groups", func(c *Config) { c.Groups = nil }, "group"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Vintage:   DefaultVintage,
				StartYear: DefaultStartYear,
				Groups:    DefaultGroups,
				BatchSize: DefaultBatchSize,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
