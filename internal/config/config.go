// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/RaihanArvi/producthunt-scraper/internal/scraper"
)

// Config captures all configuration knobs, read once at startup and
// read-only thereafter.
type Config struct {
	Scraper    ScraperConfig    `mapstructure:"scraper"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Sinks      SinksConfig      `mapstructure:"sinks"`
	Snapshot   SnapshotConfig   `mapstructure:"snapshot"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ScraperConfig governs the date walk and fan-out.
type ScraperConfig struct {
	StartDate         string `mapstructure:"start_date"`
	EndDate           string `mapstructure:"end_date"`
	Concurrency       int    `mapstructure:"concurrency"`
	ListRetryMax      int    `mapstructure:"list_retry_max"`
	ItemBudgetSeconds int    `mapstructure:"item_budget_seconds"`
}

// BrowserConfig configures the shared Chrome session.
type BrowserConfig struct {
	DisplayEmulation  bool   `mapstructure:"display_emulation"`
	ProxyURL          string `mapstructure:"proxy_url"`
	UserAgent         string `mapstructure:"user_agent"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
}

// SinksConfig selects the active output sinks for the run.
type SinksConfig struct {
	// Warehouse is the required analytical sink: bigquery, postgres,
	// or noop for dry runs.
	Warehouse string         `mapstructure:"warehouse"`
	BigQuery  BigQueryConfig `mapstructure:"bigquery"`
	Postgres  PostgresConfig `mapstructure:"postgres"`
	PubSub    PubSubConfig   `mapstructure:"pubsub"`
	File      FileSinkConfig `mapstructure:"file"`
}

// BigQueryConfig identifies the warehouse table and its credentials.
type BigQueryConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	Table           string `mapstructure:"table"`
}

// PostgresConfig configures the alternative relational warehouse.
type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// PubSubConfig configures the optional record notification topic.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// FileSinkConfig configures the optional local JSON output.
type FileSinkConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// SnapshotConfig configures the optional raw-HTML archive.
type SnapshotConfig struct {
	Provider  string `mapstructure:"provider"` // noop, local, or gcs
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// CheckpointConfig sets where the resume marker lives.
type CheckpointConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig controls the metrics/health listener.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk and environment. An empty path searches
// the working directory and $HOME/.producthunt-scraper for config.yaml;
// in that mode a missing file is fine, defaults and env vars carry the run.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.producthunt-scraper")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper.concurrency", 1)
	v.SetDefault("scraper.list_retry_max", 3)
	v.SetDefault("scraper.item_budget_seconds", 120)
	v.SetDefault("browser.display_emulation", false)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.nav_timeout_seconds", 45)
	v.SetDefault("sinks.warehouse", "bigquery")
	v.SetDefault("sinks.postgres.table", "products")
	v.SetDefault("sinks.file.path", "output/products.json")
	v.SetDefault("snapshot.provider", "noop")
	v.SetDefault("snapshot.prefix", "pages")
	v.SetDefault("checkpoint.path", "checkpoint.json")
	v.SetDefault("server.port", 9090)
	v.SetDefault("logging.development", true)
}

// Validate enforces the startup rules; any violation aborts before the
// browser starts.
func (c Config) Validate() error {
	if c.Scraper.StartDate == "" {
		return fmt.Errorf("scraper.start_date is required")
	}
	start, err := time.Parse(scraper.DateLayout, c.Scraper.StartDate)
	if err != nil {
		return fmt.Errorf("scraper.start_date must be YYYY-MM-DD: %w", err)
	}
	if c.Scraper.EndDate != "" {
		end, err := time.Parse(scraper.DateLayout, c.Scraper.EndDate)
		if err != nil {
			return fmt.Errorf("scraper.end_date must be YYYY-MM-DD: %w", err)
		}
		if end.Before(start) {
			return fmt.Errorf("scraper.end_date %s is before scraper.start_date %s",
				c.Scraper.EndDate, c.Scraper.StartDate)
		}
	}
	if c.Scraper.Concurrency < 0 {
		return fmt.Errorf("scraper.concurrency must be >= 0")
	}

	switch c.Sinks.Warehouse {
	case "bigquery":
		if c.Sinks.BigQuery.Table == "" {
			return fmt.Errorf("sinks.bigquery.table is required when the warehouse is bigquery")
		}
	case "postgres":
		if c.Sinks.Postgres.DSN == "" {
			return fmt.Errorf("sinks.postgres.dsn is required when the warehouse is postgres")
		}
		if c.Sinks.Postgres.Table == "" {
			return fmt.Errorf("sinks.postgres.table is required when the warehouse is postgres")
		}
	case "noop":
	default:
		return fmt.Errorf("unknown warehouse sink: %s", c.Sinks.Warehouse)
	}

	if c.Sinks.PubSub.Enabled && (c.Sinks.PubSub.ProjectID == "" || c.Sinks.PubSub.Topic == "") {
		return fmt.Errorf("sinks.pubsub.project_id and sinks.pubsub.topic are required when pubsub is enabled")
	}
	if c.Sinks.File.Enabled && c.Sinks.File.Path == "" {
		return fmt.Errorf("sinks.file.path is required when the file sink is enabled")
	}

	switch c.Snapshot.Provider {
	case "noop":
	case "local":
		if c.Snapshot.LocalDir == "" {
			return fmt.Errorf("snapshot.local_dir is required when the snapshot provider is local")
		}
	case "gcs":
		if c.Snapshot.GCSBucket == "" {
			return fmt.Errorf("snapshot.gcs_bucket is required when the snapshot provider is gcs")
		}
	default:
		return fmt.Errorf("unknown snapshot provider: %s", c.Snapshot.Provider)
	}

	if c.Checkpoint.Path == "" {
		return fmt.Errorf("checkpoint.path is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// StartDate returns the parsed configured start date. Validate must have
// passed.
func (c Config) StartDate() time.Time {
	t, _ := time.Parse(scraper.DateLayout, c.Scraper.StartDate)
	return t
}

// EndDate returns the parsed configured end date, or zero when the run
// should extend through today.
func (c Config) EndDate() time.Time {
	if c.Scraper.EndDate == "" {
		return time.Time{}
	}
	t, _ := time.Parse(scraper.DateLayout, c.Scraper.EndDate)
	return t
}
