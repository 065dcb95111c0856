// Package config loads collector settings using Viper.
//
// Sources, lowest to highest precedence: built-in defaults, an optional
// YAML file, ANALYTICS_* environment variables, then command-line flags
// bound by the cli package. Nested keys map to ANALYTICS_<SECTION>_<KEY>,
// for example ANALYTICS_WATCHER_INTERVAL.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read.
const EnvPrefix = "ANALYTICS"

// Config is the complete collector configuration.
type Config struct {
	DB             string        `mapstructure:"db"`
	Token          string        `mapstructure:"token"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
	Collect        CollectConfig `mapstructure:"collect"`
	Watcher        WatcherConfig `mapstructure:"watcher"`
	Log            LogConfig     `mapstructure:"log"`
}

// CollectConfig bounds the ingestion endpoint.
type CollectConfig struct {
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// WatcherConfig locates the bulletin source tree, the record and asset
// outputs, and the optional site rebuild command run from SiteRoot.
type WatcherConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Interval       time.Duration `mapstructure:"interval"`
	SourceDir      string        `mapstructure:"source_dir"`
	DataDir        string        `mapstructure:"data_dir"`
	AssetsDir      string        `mapstructure:"assets_dir"`
	SiteRoot       string        `mapstructure:"site_root"`
	RebuildCommand string        `mapstructure:"rebuild_command"`
}

// LogConfig selects the slog level and handler ("text" or "json").
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default value. Keys must be
// registered for AutomaticEnv to reach them through Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db", "data/runtime/analytics.db")
	v.SetDefault("token", "")
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", 8787)
	v.SetDefault("trusted_proxies", []string{})

	v.SetDefault("collect.max_body_bytes", int64(1<<20))

	v.SetDefault("watcher.enabled", true)
	v.SetDefault("watcher.interval", 10*time.Second)
	v.SetDefault("watcher.source_dir", "site/bulten_doc")
	v.SetDefault("watcher.data_dir", "data/bultenler")
	v.SetDefault("watcher.assets_dir", "site/bultenler/assets")
	v.SetDefault("watcher.site_root", ".")
	v.SetDefault("watcher.rebuild_command", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// New returns a Viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file into v and decodes the result.
// An empty file means defaults, environment and flags only.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DB) == "" {
		errs = append(errs, errors.New("db: path must not be empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port: %d out of range 1..65535", c.Port))
	}
	if c.Collect.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("collect.max_body_bytes: must be positive, got %d", c.Collect.MaxBodyBytes))
	}
	if c.Watcher.Interval <= 0 {
		errs = append(errs, fmt.Errorf("watcher.interval: must be positive, got %s", c.Watcher.Interval))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown level %q", name)
	}
	return level, nil
}
