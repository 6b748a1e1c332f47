package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pricelens/backend/internal/domain"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Matching MatchingConfig
	Snapshot SnapshotConfig
	Fetch    FetchConfig
	Insights InsightsConfig
	Sources  SourcesConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig holds logrus and log rotation settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // "text" or "json"
	File       string `mapstructure:"file"`   // empty: stdout only
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// MatchingConfig selects and tunes the catalog matcher
type MatchingConfig struct {
	Strategy          string  `mapstructure:"strategy"` // "exact" or "fuzzy"
	FuzzyThreshold    float64 `mapstructure:"fuzzy_threshold"`
	FuzzyEditDistance int     `mapstructure:"fuzzy_edit_distance"`
	Debug             bool    `mapstructure:"debug"`
}

// SnapshotConfig holds snapshot store configuration
type SnapshotConfig struct {
	Type        string `mapstructure:"type"` // "memory", "sqlite" or "postgres"
	SQLitePath  string `mapstructure:"sqlite_path"`
	DatabaseURL string `mapstructure:"database_url"`
}

// FetchConfig holds storefront feed client configuration
type FetchConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	Concurrency   int           `mapstructure:"concurrency"`
	UserAgent     string        `mapstructure:"user_agent"`
}

// InsightsConfig selects the insight generator
type InsightsConfig struct {
	Provider string `mapstructure:"provider"` // "template" or "openai"
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Model    string `mapstructure:"model"`
}

// SourcesConfig lists the baseline storefront and its competitors
type SourcesConfig struct {
	Baseline    domain.Source   `mapstructure:"baseline"`
	Competitors []domain.Source `mapstructure:"competitors"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	// PRICELENS_SNAPSHOT_DATABASE_URL -> snapshot.database_url
	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key that may come from
// the environment needs a default so AutomaticEnv can see it on Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)

	v.SetDefault("matching.strategy", "exact")
	v.SetDefault("matching.fuzzy_threshold", 60.0)
	v.SetDefault("matching.fuzzy_edit_distance", 1)
	v.SetDefault("matching.debug", false)

	v.SetDefault("snapshot.type", "memory")
	v.SetDefault("snapshot.sqlite_path", "pricelens.db")
	v.SetDefault("snapshot.database_url", "")

	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.rate_per_second", 2.0)
	v.SetDefault("fetch.burst", 5)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.user_agent", "PriceLens/1.0")

	v.SetDefault("insights.provider", "template")
	v.SetDefault("insights.api_key", "")
	v.SetDefault("insights.base_url", "https://api.openai.com/v1")
	v.SetDefault("insights.model", "gpt-4o-mini")

	v.SetDefault("sources.baseline.name", "baseline")
	v.SetDefault("sources.baseline.url", "")
	v.SetDefault("sources.baseline.api", "")
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging format must be 'text' or 'json', got: %s", config.Logging.Format)
	}

	switch config.Matching.Strategy {
	case "exact", "fuzzy":
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownStrategy, config.Matching.Strategy)
	}

	if config.Matching.FuzzyThreshold <= 0 || config.Matching.FuzzyThreshold > 100 {
		return fmt.Errorf("fuzzy threshold must be above 0 and at most 100, got: %g", config.Matching.FuzzyThreshold)
	}

	switch config.Snapshot.Type {
	case "memory":
	case "sqlite":
		if config.Snapshot.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required when snapshot type is 'sqlite'")
		}
	case "postgres":
		if config.Snapshot.DatabaseURL == "" {
			return fmt.Errorf("database URL is required when snapshot type is 'postgres' (set PRICELENS_SNAPSHOT_DATABASE_URL)")
		}
	default:
		return fmt.Errorf("snapshot type must be 'memory', 'sqlite' or 'postgres', got: %s", config.Snapshot.Type)
	}

	switch config.Insights.Provider {
	case "template":
	case "openai":
		if config.Insights.APIKey == "" {
			return fmt.Errorf("insights API key is required when provider is 'openai' (set PRICELENS_INSIGHTS_API_KEY)")
		}
	default:
		return fmt.Errorf("insights provider must be 'template' or 'openai', got: %s", config.Insights.Provider)
	}

	if config.Fetch.Concurrency < 1 {
		return fmt.Errorf("fetch concurrency must be at least 1, got: %d", config.Fetch.Concurrency)
	}

	return nil
}
