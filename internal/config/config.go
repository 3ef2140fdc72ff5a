package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Data source selectors.
const (
	SourceCSV      = "csv"
	SourceXLSX     = "xlsx"
	SourcePostgres = "postgres"
)

// ErrUnknownSource is returned by Validate when data.source names no known feed reader.
var ErrUnknownSource = eris.New("config: unknown data source")

// Config holds the full application configuration.
type Config struct {
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Features   FeaturesConfig   `yaml:"features" mapstructure:"features"`
	Intel      IntelConfig      `yaml:"intel" mapstructure:"intel"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DataConfig selects where the contact and financial feeds come from.
type DataConfig struct {
	Source        string         `yaml:"source" mapstructure:"source"`
	ContactPath   string         `yaml:"contact_path" mapstructure:"contact_path"`
	FinancialPath string         `yaml:"financial_path" mapstructure:"financial_path"`
	ColumnsFile   string         `yaml:"columns_file" mapstructure:"columns_file"`
	Postgres      PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig configures the database-backed feed source.
type PostgresConfig struct {
	URL            string `yaml:"url" mapstructure:"url"`
	ContactTable   string `yaml:"contact_table" mapstructure:"contact_table"`
	FinancialTable string `yaml:"financial_table" mapstructure:"financial_table"`
}

// CacheConfig configures the talking-point cache.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	Driver     string `yaml:"driver" mapstructure:"driver"`
	Dir        string `yaml:"dir" mapstructure:"dir"`
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	TTLHours   int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	Model             string  `yaml:"model" mapstructure:"model"`
	ExtractModel      string  `yaml:"extract_model" mapstructure:"extract_model"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerMinute int     `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// FeaturesConfig toggles optional capabilities.
type FeaturesConfig struct {
	ConversationStarters bool `yaml:"conversation_starters" mapstructure:"conversation_starters"`
	InspectionAnalysis   bool `yaml:"inspection_analysis" mapstructure:"inspection_analysis"`
	ExportToExcel        bool `yaml:"export_to_excel" mapstructure:"export_to_excel"`
}

// IntelConfig configures talking-point generation.
type IntelConfig struct {
	MaxStarters           int `yaml:"max_starters" mapstructure:"max_starters"`
	GenerationTimeoutSecs int `yaml:"generation_timeout_secs" mapstructure:"generation_timeout_secs"`
	WarmConcurrency       int `yaml:"warm_concurrency" mapstructure:"warm_concurrency"`
}

// GenerationTimeout returns the per-generator deadline.
func (c IntelConfig) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSecs) * time.Second
}

// ServerConfig configures the HTTP read API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCHOOLINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.source", SourceCSV)
	v.SetDefault("data.contact_path", "data/london_schools_gias.csv")
	v.SetDefault("data.financial_path", "data/london_schools_financial.csv")
	v.SetDefault("data.columns_file", "")
	v.SetDefault("data.postgres.url", "")
	v.SetDefault("data.postgres.contact_table", "school_contacts")
	v.SetDefault("data.postgres.financial_table", "school_financials")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.driver", "file")
	v.SetDefault("cache.dir", "cache")
	v.SetDefault("cache.sqlite_path", "cache/talking_points.db")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.extract_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.temperature", 0.3)
	v.SetDefault("anthropic.max_tokens", 1500)
	v.SetDefault("anthropic.requests_per_minute", 50)
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("features.conversation_starters", true)
	v.SetDefault("features.inspection_analysis", true)
	v.SetDefault("features.export_to_excel", true)
	v.SetDefault("intel.max_starters", 5)
	v.SetDefault("intel.generation_timeout_secs", 30)
	v.SetDefault("intel.warm_concurrency", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks settings for the given run mode ("query" or "serve").
// A bad data source wraps ErrUnknownSource and stops start-up.
func (c *Config) Validate(mode string) error {
	switch c.Data.Source {
	case SourceCSV, SourceXLSX:
	case SourcePostgres:
		if c.Data.Postgres.URL == "" {
			return eris.Wrap(ErrUnknownSource, "config: postgres source requires data.postgres.url")
		}
	default:
		return eris.Wrapf(ErrUnknownSource, "config: %q (want csv, xlsx or postgres)", c.Data.Source)
	}

	var errs []string
	switch c.Cache.Driver {
	case "", "file", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("cache.driver %q must be file or sqlite", c.Cache.Driver))
	}
	if c.Intel.MaxStarters < 1 {
		errs = append(errs, "intel.max_starters must be >= 1")
	}
	if c.Intel.WarmConcurrency < 1 || c.Intel.WarmConcurrency > 20 {
		errs = append(errs, "intel.warm_concurrency must be between 1 and 20")
	}

	switch mode {
	case "query":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
