// Package config loads the application's YAML configuration with Viper,
// layering in environment variable overrides under the TULSA_ prefix and a
// .env file for secrets, the way elmon's config package does.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Duration wraps time.Duration so it can be written as "30s" in YAML.
type Duration struct {
	time.Duration
}

// UnmarshalText lets Duration satisfy encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// LogConfig controls the slog handler built by the logging package.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// SchedulerConfig selects and sizes the tulsa scheduler substrate.
type SchedulerConfig struct {
	Substrate     string `mapstructure:"substrate"`      // async, sync
	WorkerThreads int    `mapstructure:"worker-threads"` // async only
}

// FetchConfig controls the HTTP client used to pull GTFS-realtime feeds.
type FetchConfig struct {
	Timeout       Duration `mapstructure:"timeout"`
	StatsCacheTTL Duration `mapstructure:"stats-cache-ttl"`
	StatsCacheMax int      `mapstructure:"stats-cache-max"`
}

// AuthConfig configures optional bearer-token authentication on the
// mutating HTTP routes. An empty Secret disables auth entirely.
type AuthConfig struct {
	Secret string `mapstructure:"secret"`
}

// CORSConfig configures rs/cors. A nil/empty AllowedOrigins disables CORS.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed-origins"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port int        `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
	Auth AuthConfig `mapstructure:"auth"`
}

// Config is the root application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
}

func durationHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(Duration{}) || f.Kind() != reflect.String {
			return data, nil
		}
		d, err := time.ParseDuration(data.(string))
		if err != nil {
			return nil, err
		}
		return Duration{Duration: d}, nil
	}
}

// Load reads configPath (YAML) through Viper, applies TULSA_-prefixed
// environment overrides (with a .env file loaded first for secrets such as
// the auth signing key), and validates the result.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("config: .env file not found, using process environment")
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()
	v.SetEnvPrefix("TULSA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setDefaults(v)

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil {
		// SetConfigFile points Viper at an exact path, so a missing file
		// surfaces as a plain os.ErrNotExist rather than
		// ConfigFileNotFoundError (that variant is only returned by
		// Viper's own search-path lookup); tolerate both and fall back to
		// defaults plus environment overrides.
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: reading %q: %w", configPath, err)
		}
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &cfg,
		TagName:    "mapstructure",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(durationHook()),
	})
	if err != nil {
		return nil, fmt.Errorf("config: building decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.port", 3000)
	v.SetDefault("scheduler.substrate", "async")
	v.SetDefault("scheduler.worker-threads", 4)
	v.SetDefault("fetch.timeout", "10s")
	v.SetDefault("fetch.stats-cache-ttl", "1h")
	v.SetDefault("fetch.stats-cache-max", 10000)
	// An empty default registers the key so an environment-only
	// TULSA_SERVER_AUTH_SECRET is picked up by AllSettings.
	v.SetDefault("server.auth.secret", "")
}

// Validate checks invariants Load cannot express through defaults alone.
func (c *Config) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}
	validFormats := []string{"console", "json"}
	if !slices.Contains(validFormats, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("invalid log format: %q", c.Log.Format)
	}

	validSubstrates := []string{"async", "sync"}
	if !slices.Contains(validSubstrates, strings.ToLower(c.Scheduler.Substrate)) {
		return fmt.Errorf("invalid scheduler substrate: %q", c.Scheduler.Substrate)
	}
	if c.Scheduler.WorkerThreads <= 0 {
		return fmt.Errorf("scheduler.worker-threads must be positive, got %d", c.Scheduler.WorkerThreads)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Fetch.Timeout.Duration <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.StatsCacheMax <= 0 {
		return fmt.Errorf("fetch.stats-cache-max must be positive")
	}

	return nil
}
