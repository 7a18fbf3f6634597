package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/edgestow"
	"github.com/sagarc03/edgestow/cachestore"
	edgehttp "github.com/sagarc03/edgestow/http"
	"github.com/sagarc03/edgestow/origin"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for edgestow.
type Config struct {
	Server ServerConfig        `mapstructure:"server"`
	Origin origin.Config       `mapstructure:"origin"`
	Cache  CacheConfig         `mapstructure:"cache"`
	Store  cachestore.Config   `mapstructure:"store"`
	Auth   AuthConfig          `mapstructure:"auth"`
	Retry  RetryConfig         `mapstructure:"retry"`
	Limits LimitsConfig        `mapstructure:"limits"`
	CORS   edgehttp.CORSConfig `mapstructure:"cors"`
	Log    LogConfig           `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int `mapstructure:"port" validate:"required,min=1,max=65535"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout" validate:"min=1"`
}

// CacheConfig holds the caching policy. TTLs are in seconds; SweepInterval
// controls how often expired entries are removed from the store.
type CacheConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	TTL             int    `mapstructure:"ttl" validate:"min=0"`
	MinTTL          int    `mapstructure:"min_ttl" validate:"min=0,ltefield=MaxTTL"`
	MaxTTL          int    `mapstructure:"max_ttl" validate:"min=0"`
	OverrideHeaders bool   `mapstructure:"override_headers"`
	KeyVersion      string `mapstructure:"key_version" validate:"required"`
	DebugHeader     bool   `mapstructure:"debug_header"`
	SweepInterval   int    `mapstructure:"sweep_interval" validate:"min=0"`
}

// Policy converts the cache section into the orchestrator's policy type.
func (c CacheConfig) Policy() edgestow.CacheConfig {
	return edgestow.CacheConfig{
		Enabled:               c.Enabled,
		TTLSeconds:            c.TTL,
		MinTTLSeconds:         c.MinTTL,
		MaxTTLSeconds:         c.MaxTTL,
		OverrideOriginHeaders: c.OverrideHeaders,
	}
}

// AuthConfig holds signed-URL and admin authentication configuration.
// Secret must be at least 32 characters whenever it is set, and is
// mandatory when Enforce is true.
type AuthConfig struct {
	Enforce       bool     `mapstructure:"enforce"`
	Secret        string   `mapstructure:"secret" validate:"required_if=Enforce true,omitempty,min=32"`
	RequiredPaths []string `mapstructure:"required_paths"`
	AdminToken    string   `mapstructure:"admin_token"`
}

// RetryConfig holds origin fetch retry configuration.
type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts" validate:"min=1"`
	BackoffMS   int `mapstructure:"backoff_ms" validate:"min=1"`
}

// LimitsConfig bounds client-supplied listing prefixes and upload keys.
type LimitsConfig struct {
	PrefixMaxLength int `mapstructure:"prefix_max_length" validate:"min=1"`
	PrefixMaxDepth  int `mapstructure:"prefix_max_depth" validate:"min=1"`
}

// PrefixLimits converts the limits section into the sanitizer's limits.
func (l LimitsConfig) PrefixLimits() edgestow.PrefixLimits {
	return edgestow.PrefixLimits{
		MaxLength: l.PrefixMaxLength,
		MaxDepth:  l.PrefixMaxDepth,
	}
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
	File   string `mapstructure:"file"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":            "server.port",
	"store-type":      "store.type",
	"store-dsn":       "store.dsn",
	"store-path":      "store.path",
	"origin-endpoint": "origin.endpoint",
	"origin-bucket":   "origin.bucket",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5807)
	v.SetDefault("server.shutdown_timeout", 30) // seconds

	v.SetDefault("origin.region", "us-east-1")

	v.SetDefault("cache.enabled", edgestow.DefaultCacheConfig.Enabled)
	v.SetDefault("cache.ttl", edgestow.DefaultCacheConfig.TTLSeconds)
	v.SetDefault("cache.min_ttl", edgestow.DefaultCacheConfig.MinTTLSeconds)
	v.SetDefault("cache.max_ttl", edgestow.DefaultCacheConfig.MaxTTLSeconds)
	v.SetDefault("cache.key_version", "v1")
	v.SetDefault("cache.sweep_interval", int(cachestore.DefaultSweepInterval.Seconds()))

	v.SetDefault("store.type", "memory")
	v.SetDefault("store.table", cachestore.DefaultTable)

	v.SetDefault("retry.max_attempts", edgestow.DefaultMaxAttempts)
	v.SetDefault("retry.backoff_ms", int(edgestow.DefaultBackoffBase.Milliseconds()))

	v.SetDefault("limits.prefix_max_length", edgestow.DefaultPrefixLimits.MaxLength)
	v.SetDefault("limits.prefix_max_depth", edgestow.DefaultPrefixLimits.MaxDepth)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("EDGESTOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
