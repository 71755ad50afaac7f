// Package config loads the catalogue service configuration from a YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	APIHost            string        `mapstructure:"api_host"`
	DebugHost          string        `mapstructure:"debug_host"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
}

// RepositoryConfig holds the record repository settings.
type RepositoryConfig struct {
	// DSN is the PostgreSQL connection string.
	DSN string `mapstructure:"dsn"`

	// Filter constrains the catalogue to a subset of the records table,
	// expressed as property=value pairs ANDed together.
	Filter map[string]string `mapstructure:"filter"`

	// MaxRecords caps one page of search results.
	MaxRecords int `mapstructure:"max_records"`
}

// MetadataConfig identifies the catalogue deployment.
type MetadataConfig struct {
	Title    string `mapstructure:"title"`
	Abstract string `mapstructure:"abstract"`
	Provider string `mapstructure:"provider"`
	Contact  string `mapstructure:"contact"`
}

// NotifyConfig holds the change notification settings. Notifications are
// disabled when no brokers are configured.
type NotifyConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// TelemetryConfig holds the OpenTelemetry export settings.
type TelemetryConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Probability float64 `mapstructure:"probability"`
}

// Config is the full catalogue service configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Metadata   MetadataConfig   `mapstructure:"metadata"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// Load reads the configuration from the given file, falling back to
// defaults, with GOCSW_-prefixed environment variables overriding both.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.api_host", "0.0.0.0:8000")
	v.SetDefault("server.debug_host", "0.0.0.0:6060")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 20*time.Second)
	v.SetDefault("repository.dsn", "")
	v.SetDefault("repository.max_records", 10)
	v.SetDefault("metadata.title", "gocsw catalogue")
	v.SetDefault("notify.topic", "catalogue.record-changes")
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.probability", 0.05)

	v.SetEnvPrefix("GOCSW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Repository.DSN == "" {
		return nil, fmt.Errorf("repository.dsn is required")
	}

	return &cfg, nil
}
