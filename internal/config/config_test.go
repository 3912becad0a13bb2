package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the global config at an empty directory and runs the test
// from a fresh working directory with no LOADABLE_* variables set.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{"LOG_LEVEL", "FORMAT", "STATS", "VERBOSE", "LATENCY", "PAGE_SIZE", "TOTAL", "FAIL_RATE"} {
		t.Setenv(EnvPrefix+key, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.Format)
	assert.Equal(t, 300*time.Millisecond, cfg.Latency)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, 200, cfg.Total)
	assert.Zero(t, cfg.FailRate)
	assert.NotNil(t, cfg.Sources)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, configPath, `
log_level: debug
format: json
stats: true
verbose: 2
latency: 50ms
page_size: 5
total: 42
fail_rate: 0.25
`)

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, configPath, SourceGlobal))

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.StatsEnabled())
	assert.Equal(t, 2, cfg.VerboseLevel())
	assert.Equal(t, 50*time.Millisecond, cfg.Latency)
	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, 42, cfg.Total)
	assert.Equal(t, 0.25, cfg.FailRate)

	assert.Equal(t, "global", cfg.Sources["log_level"])
	assert.Equal(t, "global", cfg.Sources["fail_rate"])
}

func TestLoadFromFilePartialConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, configPath, "page_size: 7\n")

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, configPath, SourceLocal))

	assert.Equal(t, 7, cfg.PageSize)
	assert.Equal(t, 200, cfg.Total, "absent keys keep defaults")
	assert.NotContains(t, cfg.Sources, "total")
}

func TestLoadFromFileSkipsInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, configPath, "page_size: [unterminated")

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, configPath, SourceGlobal))

	assert.Equal(t, 20, cfg.PageSize)
}

func TestLoadFromFileSkipsMissingFile(t *testing.T) {
	cfg := Default()
	require.NoError(t, loadFromFile(cfg, "/nonexistent/path/config.yaml", SourceGlobal))

	assert.Empty(t, cfg.Sources)
}

func TestLoadFromFileIgnoresBadValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, configPath, "latency: soon\nverbose: 9\n")

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, configPath, SourceGlobal))

	assert.Equal(t, 300*time.Millisecond, cfg.Latency)
	assert.Nil(t, cfg.Verbose)
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("LOADABLE_LOG_LEVEL", "info")
	t.Setenv("LOADABLE_STATS", "1")
	t.Setenv("LOADABLE_VERBOSE", "1")
	t.Setenv("LOADABLE_LATENCY", "1s")
	t.Setenv("LOADABLE_PAGE_SIZE", "3")
	t.Setenv("LOADABLE_FAIL_RATE", "0.5")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.StatsEnabled())
	assert.Equal(t, 1, cfg.VerboseLevel())
	assert.Equal(t, time.Second, cfg.Latency)
	assert.Equal(t, 3, cfg.PageSize)
	assert.Equal(t, 0.5, cfg.FailRate)
	assert.Equal(t, "env", cfg.Sources["page_size"])
}

func TestLoadFromEnvIgnoresUnrecognized(t *testing.T) {
	isolate(t)
	t.Setenv("LOADABLE_STATS", "maybe")
	t.Setenv("LOADABLE_PAGE_SIZE", "many")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.Nil(t, cfg.Stats)
	assert.Equal(t, 20, cfg.PageSize)
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, path, "LOADABLE_TOTAL=12\nUNRELATED=1\n")

	cfg := Default()
	require.NoError(t, LoadDotenv(cfg, path))

	assert.Equal(t, 12, cfg.Total)
	assert.Equal(t, "dotenv", cfg.Sources["total"])
	assert.Empty(t, os.Getenv("LOADABLE_TOTAL"), "dotenv must not modify the process environment")
}

func TestLoadDotenvMissingFile(t *testing.T) {
	cfg := Default()
	assert.NoError(t, LoadDotenv(cfg, filepath.Join(t.TempDir(), ".env")))
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	stats := true
	verbose := 2
	latency := 10 * time.Millisecond
	rate := 0.1

	ApplyOverrides(cfg, FlagOverrides{
		LogLevel: "debug",
		Format:   "json",
		Stats:    &stats,
		Verbose:  &verbose,
		Latency:  &latency,
		PageSize: 4,
		Total:    8,
		FailRate: &rate,
	})

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.StatsEnabled())
	assert.Equal(t, 2, cfg.VerboseLevel())
	assert.Equal(t, latency, cfg.Latency)
	assert.Equal(t, 4, cfg.PageSize)
	assert.Equal(t, 8, cfg.Total)
	assert.Equal(t, rate, cfg.FailRate)
	assert.Equal(t, "flag", cfg.Sources["fail_rate"])
}

func TestApplyOverridesSkipsEmpty(t *testing.T) {
	cfg := Default()
	ApplyOverrides(cfg, FlagOverrides{})

	assert.Equal(t, Default().PageSize, cfg.PageSize)
	assert.Empty(t, cfg.Sources)
}

func TestFullLayeringPrecedence(t *testing.T) {
	dir := isolate(t)

	writeFile(t, filepath.Join(GlobalConfigDir(), "config.yaml"), "page_size: 1\ntotal: 10\nformat: styled\nlog_level: error\n")
	writeFile(t, filepath.Join(dir, LocalConfigName), "page_size: 2\ntotal: 20\nformat: json\n")
	explicit := filepath.Join(t.TempDir(), "explicit.yaml")
	writeFile(t, explicit, "page_size: 3\ntotal: 30\n")
	writeFile(t, filepath.Join(dir, ".env"), "LOADABLE_PAGE_SIZE=4\n")
	t.Setenv("LOADABLE_PAGE_SIZE", "5")

	cfg, err := Load(FlagOverrides{ConfigPath: explicit, PageSize: 6})
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.PageSize)
	assert.Equal(t, "flag", cfg.Sources["page_size"])
	assert.Equal(t, 30, cfg.Total)
	assert.Equal(t, "file", cfg.Sources["total"])
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "local", cfg.Sources["format"])
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "global", cfg.Sources["log_level"])
}

func TestLoadDotenvBelowEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "LOADABLE_TOTAL=11\nLOADABLE_PAGE_SIZE=4\n")
	t.Setenv("LOADABLE_PAGE_SIZE", "5")

	cfg, err := Load(FlagOverrides{})
	require.NoError(t, err)

	assert.Equal(t, 11, cfg.Total)
	assert.Equal(t, "dotenv", cfg.Sources["total"])
	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, "env", cfg.Sources["page_size"])
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(FlagOverrides{ConfigPath: "/nonexistent/loadable.yaml"})
	assert.Error(t, err)
}

func TestLoadValidates(t *testing.T) {
	isolate(t)
	rate := 1.5

	_, err := Load(FlagOverrides{FailRate: &rate})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fail_rate")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"page size", func(c *Config) { c.PageSize = 0 }, "page_size"},
		{"total", func(c *Config) { c.Total = -1 }, "total"},
		{"fail rate", func(c *Config) { c.FailRate = -0.1 }, "fail_rate"},
		{"latency", func(c *Config) { c.Latency = -time.Second }, "latency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGlobalConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/loadable", GlobalConfigDir())
}

func TestParseEnvBool(t *testing.T) {
	for in, want := range map[string]bool{"true": true, "1": true, "FALSE": false, "0": false} {
		got, ok := parseEnvBool(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := parseEnvBool("yes")
	assert.False(t, ok)
}
