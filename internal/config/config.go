// Package config loads CAGConfig from environment variables and an
// optional YAML file, following the defaults-then-file-then-env layering
// spf13/viper is built for.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Mode names the two ways the knowledge store can be reached.
type Mode string

const (
	ModeDirect Mode = "direct"
	ModeTool   Mode = "tool"
)

// DatabaseConfig configures the direct-store Postgres connection.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ToolConfig configures the tool-invocation endpoint.
type ToolConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ResilienceConfig configures the knowledge client's rate limiter,
// circuit breaker, and retry policy.
type ResilienceConfig struct {
	RateLimitPerSecond      float64 `mapstructure:"rate_limit_per_second"`
	RateLimitBurst          int     `mapstructure:"rate_limit_burst"`
	MaxRetries              uint64  `mapstructure:"max_retries"`
	BreakerFailureThreshold uint32  `mapstructure:"breaker_failure_threshold"`
}

// CacheConfig configures the Warm Cache.
type CacheConfig struct {
	PriorityThreshold float64 `mapstructure:"priority_threshold"`
	MaxItems          int     `mapstructure:"max_items"`
}

// ContextConfig configures the Context Manager.
type ContextConfig struct {
	MaxContextTokens int    `mapstructure:"max_context_tokens"`
	ProjectSummary   string `mapstructure:"project_summary"`
}

// ServerConfig configures the gin HTTP surface.
type ServerConfig struct {
	ListenAddress string        `mapstructure:"listen_address"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

// MetricsConfig configures the Prometheus metrics client.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
}

// CAGConfig is the complete, validated configuration for the CAG core.
type CAGConfig struct {
	Mode       Mode             `mapstructure:"mode"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Tool       ToolConfig       `mapstructure:"tool"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Context    ContextConfig    `mapstructure:"context"`
	Server     ServerConfig     `mapstructure:"server"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	LogLevel   string           `mapstructure:"log_level"`
}

// ConfigError reports a configuration value that fails validation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load reads defaults, an optional YAML file, and CAG_-prefixed
// environment variables, then validates the result.
func Load() (*CAGConfig, error) {
	v := viper.New()
	setDefaults(v)

	configFile := os.Getenv("CAG_CONFIG_FILE")
	if configFile == "" {
		configFile = "configs/cag.yaml"
	}
	v.SetConfigFile(configFile)

	v.SetEnvPrefix("CAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// database.dsn and tool.endpoint carry no default, so viper's
	// Unmarshal never learns they're real keys unless a config file or
	// BindEnv registers them first; AutomaticEnv alone only helps Get().
	for _, key := range []string{"database.dsn", "tool.endpoint"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg CAGConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the mutual-exclusion between direct-store and
// tool-invocation configuration: exactly one must be usable for the
// configured Mode.
func (c *CAGConfig) Validate() error {
	switch c.Mode {
	case ModeDirect:
		if c.Database.DSN == "" {
			return &ConfigError{Field: "database.dsn", Reason: "required when mode=direct"}
		}
	case ModeTool:
		if c.Tool.Endpoint == "" {
			return &ConfigError{Field: "tool.endpoint", Reason: "required when mode=tool"}
		}
	default:
		return &ConfigError{Field: "mode", Reason: fmt.Sprintf("must be %q or %q, got %q", ModeDirect, ModeTool, c.Mode)}
	}
	if c.Cache.PriorityThreshold < 0 || c.Cache.PriorityThreshold > 1 {
		return &ConfigError{Field: "cache.priority_threshold", Reason: "must be in [0,1]"}
	}
	if c.Context.MaxContextTokens <= 0 {
		return &ConfigError{Field: "context.max_context_tokens", Reason: "must be positive"}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeDirect))
	v.SetDefault("log_level", "info")

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("tool.timeout", 10*time.Second)

	v.SetDefault("resilience.rate_limit_per_second", 50.0)
	v.SetDefault("resilience.rate_limit_burst", 10)
	v.SetDefault("resilience.max_retries", uint64(3))
	v.SetDefault("resilience.breaker_failure_threshold", uint32(5))

	v.SetDefault("cache.priority_threshold", 0.3)
	v.SetDefault("cache.max_items", 100)

	v.SetDefault("context.max_context_tokens", 128000)
	v.SetDefault("context.project_summary", "Project context unavailable.")

	v.SetDefault("server.listen_address", ":8090")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "cag")
	v.SetDefault("metrics.subsystem", "core")
}
