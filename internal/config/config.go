// Package config loads and validates websight configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Export providers accepted by export.provider.
const (
	ExportProviderLocal  = "local"
	ExportProviderGCS    = "gcs"
	ExportProviderMemory = "memory"
)

// DefaultUserAgent is sent on outbound probe requests unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (compatible; WebSight/1.0; +https://github.com/JakeFAU/websight)"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Probe   ProbeConfig   `mapstructure:"probe"`
	Geo     GeoConfig     `mapstructure:"geo"`
	Export  ExportConfig  `mapstructure:"export"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// ProbeConfig governs the four fetchers.
type ProbeConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	TLSPort        int    `mapstructure:"tls_port"`
}

// GeoConfig points the geolocation lookup at an ip-api.com compatible service.
type GeoConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// ExportConfig selects where CSV exports are written.
type ExportConfig struct {
	Provider  string `mapstructure:"provider"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WEBSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Export.Provider = strings.ToLower(strings.TrimSpace(cfg.Export.Provider))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("probe.user_agent", DefaultUserAgent)
	v.SetDefault("probe.timeout_seconds", 10)
	v.SetDefault("probe.tls_port", 443)
	v.SetDefault("geo.base_url", "http://ip-api.com/json/")
	v.SetDefault("export.provider", ExportProviderLocal)
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.gcs_bucket", "")
	v.SetDefault("export.prefix", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Probe.TimeoutSeconds <= 0 {
		return fmt.Errorf("probe.timeout_seconds must be > 0")
	}
	if c.Probe.TLSPort <= 0 || c.Probe.TLSPort > 65535 {
		return fmt.Errorf("probe.tls_port must be between 1 and 65535")
	}
	switch c.Export.Provider {
	case ExportProviderLocal:
		if strings.TrimSpace(c.Export.Dir) == "" {
			return fmt.Errorf("export.dir must be set for the local provider")
		}
	case ExportProviderGCS:
		if c.Export.GCSBucket == "" {
			return fmt.Errorf("export.gcs_bucket must be set for the gcs provider")
		}
	case ExportProviderMemory:
	default:
		return fmt.Errorf("export.provider %q is not one of local, gcs, memory", c.Export.Provider)
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// StageTimeout is the budget applied to each probe stage.
func (c Config) StageTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}

// RequestTimeout bounds one HTTP API request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// PublishEnabled reports whether probe records are sent to Pub/Sub.
func (c Config) PublishEnabled() bool {
	return c.PubSub.ProjectID != "" && c.PubSub.TopicName != ""
}
