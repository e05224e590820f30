// Package config loads server and CLI settings from defaults, an optional
// YAML file and CHART_MCP_* environment variables, in increasing order of
// precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the config reads, e.g.
// CHART_MCP_LOG_LEVEL for log.level.
const EnvPrefix = "CHART_MCP"

// EnvConfigPath names a YAML config file when no path is passed to Load.
const EnvConfigPath = EnvPrefix + "_CONFIG"

const (
	defaultLogLevel   = "info"
	defaultLogFormat  = "json"
	defaultTopK       = 4
	defaultWorkers    = 4
	defaultCacheImage = true
)

// Config is the full application configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Extract ExtractConfig `mapstructure:"extract"`
	Cache   CacheConfig   `mapstructure:"cache"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ExtractConfig controls extraction requests that do not set their own
// values.
type ExtractConfig struct {
	TopK    int `mapstructure:"top_k"`
	Workers int `mapstructure:"workers"`
}

// CacheConfig controls decoded image caching in the server.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Log:     LogConfig{Level: defaultLogLevel, Format: defaultLogFormat},
		Extract: ExtractConfig{TopK: defaultTopK, Workers: defaultWorkers},
		Cache:   CacheConfig{Enabled: defaultCacheImage},
	}
}

// Load builds a Config. An empty path falls back to $CHART_MCP_CONFIG; if
// that is empty too, only defaults and the environment apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("extract.top_k", d.Extract.TopK)
	v.SetDefault("extract.workers", d.Extract.Workers)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console; got %q", c.Log.Format)
	}
	if c.Extract.TopK < 1 {
		return fmt.Errorf("extract.top_k must be >= 1")
	}
	if c.Extract.Workers < 1 {
		return fmt.Errorf("extract.workers must be >= 1")
	}
	return nil
}
