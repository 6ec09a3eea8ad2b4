// Package config loads and validates the connector's instance configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/spoke-connector/pkg/pagination"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the connector reads,
// e.g. SPOKE_API_KEY or SPOKE_REDIS_ADDR.
const EnvPrefix = "SPOKE"

// DefaultBaseURL is the atSpoke v1 API root.
const DefaultBaseURL = "https://api.askspoke.com/api/v1"

// Config is the configuration of one integration instance.
type Config struct {
	// APIKey is sent as the Api-Key header on every provider request.
	APIKey string `mapstructure:"api_key"`

	// NumRequests caps the requests ingested per run. It is user input, so it
	// stays a string and is normalized by ParseCount.
	NumRequests string `mapstructure:"num_requests"`

	BaseURL           string        `mapstructure:"base_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	Lookback          time.Duration `mapstructure:"lookback"`

	Instance InstanceConfig `mapstructure:"instance"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// InstanceConfig identifies the integration instance being collected.
type InstanceConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// RedisConfig points at the execution history store. An empty Addr keeps
// history in memory for the lifetime of the process.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configuration from an optional config file, a .env file and the
// environment. Values already present in the environment win over .env. A
// missing .env is fine; one that does not parse is an error.
func Load(v *viper.Viper, envFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	if envFile != "" {
		envMap, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read env file %s: %w", envFile, err)
		}
		for k, val := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, val)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("num_requests", "")
	v.SetDefault("requests_per_second", 5.0)
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("lookback", pagination.DefaultLookback)

	v.SetDefault("instance.id", "local")
	v.SetDefault("instance.name", "atSpoke")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", false)
}

// bindEnvs makes keys without a default visible to Unmarshal when they only
// exist in the environment.
func bindEnvs(v *viper.Viper) {
	for _, key := range []string{"api_key", "redis.password"} {
		_ = v.BindEnv(key)
	}
}

// Validate checks the fields a collection run cannot do without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return &ConfigurationError{Field: "api_key", Reason: "is required"}
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return &ConfigurationError{Field: "base_url", Reason: "is required"}
	}
	if c.RequestsPerSecond < 0 {
		return &ConfigurationError{Field: "requests_per_second", Reason: fmt.Sprintf("must be >= 0 (got %v)", c.RequestsPerSecond)}
	}
	if c.HTTPTimeout <= 0 {
		return &ConfigurationError{Field: "http_timeout", Reason: fmt.Sprintf("must be positive (got %s)", c.HTTPTimeout)}
	}
	if c.Lookback <= 0 {
		return &ConfigurationError{Field: "lookback", Reason: fmt.Sprintf("must be positive (got %s)", c.Lookback)}
	}
	if strings.TrimSpace(c.Instance.ID) == "" {
		return &ConfigurationError{Field: "instance.id", Reason: "is required"}
	}
	return nil
}

// RequestCap returns the parsed request cap. Zero means uncapped.
func (c *Config) RequestCap() int {
	return ParseCount(c.NumRequests)
}
