package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "csv", cfg.Data.Source)
	assert.Equal(t, "data/london_schools_gias.csv", cfg.Data.ContactPath)
	assert.Equal(t, "data/london_schools_financial.csv", cfg.Data.FinancialPath)
	assert.Equal(t, "school_contacts", cfg.Data.Postgres.ContactTable)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "file", cfg.Cache.Driver)
	assert.Equal(t, 24, cfg.Cache.TTLHours)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL())
	assert.InDelta(t, 0.3, cfg.Anthropic.Temperature, 0.001)
	assert.Equal(t, 1500, cfg.Anthropic.MaxTokens)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "https://api.perplexity.ai", cfg.Perplexity.BaseURL)
	assert.True(t, cfg.Features.ConversationStarters)
	assert.True(t, cfg.Features.InspectionAnalysis)
	assert.True(t, cfg.Features.ExportToExcel)
	assert.Equal(t, 5, cfg.Intel.MaxStarters)
	assert.Equal(t, 30*time.Second, cfg.Intel.GenerationTimeout())
	assert.Equal(t, 3, cfg.Intel.WarmConcurrency)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
data:
  source: xlsx
  contact_path: feeds/contacts.xlsx
cache:
  driver: sqlite
  ttl_hours: 6
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "xlsx", cfg.Data.Source)
	assert.Equal(t, "feeds/contacts.xlsx", cfg.Data.ContactPath)
	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTL())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, "data/london_schools_financial.csv", cfg.Data.FinancialPath)
	assert.Equal(t, 5, cfg.Intel.MaxStarters)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
cache:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SCHOOLINTEL_CACHE_DRIVER", "file")
	t.Setenv("SCHOOLINTEL_LOG_LEVEL", "warn")
	t.Setenv("SCHOOLINTEL_FEATURES_INSPECTION_ANALYSIS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "file", cfg.Cache.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Features.InspectionAnalysis)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("SCHOOLINTEL_SERVER_PORT", "3000")
	t.Setenv("SCHOOLINTEL_ANTHROPIC_KEY", "sk-ant-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("data: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Data.Source = SourceCSV
	cfg.Cache.Driver = "file"
	cfg.Intel.MaxStarters = 5
	cfg.Intel.WarmConcurrency = 3
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("query"))
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidate_UnknownSource(t *testing.T) {
	cfg := validDefaults()
	cfg.Data.Source = "parquet"

	err := cfg.Validate("query")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnknownSource))
	assert.Contains(t, err.Error(), "parquet")
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Data.Source = SourcePostgres

	err := cfg.Validate("query")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnknownSource))

	cfg.Data.Postgres.URL = "postgres://localhost/schools"
	assert.NoError(t, cfg.Validate("query"))
}

func TestValidate_CollectsProblems(t *testing.T) {
	cfg := validDefaults()
	cfg.Cache.Driver = "redis"
	cfg.Intel.MaxStarters = 0
	cfg.Intel.WarmConcurrency = 21

	err := cfg.Validate("query")
	require.Error(t, err)
	assert.False(t, eris.Is(err, ErrUnknownSource))
	assert.Contains(t, err.Error(), "cache.driver")
	assert.Contains(t, err.Error(), "intel.max_starters must be >= 1")
	assert.Contains(t, err.Error(), "intel.warm_concurrency must be between 1 and 20")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	assert.NoError(t, cfg.Validate("query"))
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
