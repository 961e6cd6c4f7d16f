// Package config loads the application configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-listquery/cache"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every variable read by Load.
const EnvPrefix = "LISTQUERY_"

// Config is the application configuration.
//
// StaleTime has no implied default: zero means every observation of a cached
// page refetches it in the background while the cached page is shown.
type Config struct {
	BaseURL          string        `env:"BASE_URL" envDefault:"http://localhost:3000/api"`
	StudentsPath     string        `env:"STUDENTS_PATH" envDefault:"students"`
	Timeout          time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	StaleTime        time.Duration `env:"STALE_TIME" envDefault:"0s"`
	KeepPreviousData bool          `env:"KEEP_PREVIOUS_DATA" envDefault:"true"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`

	// BreakerFailures consecutive failures open the circuit breaker. Zero disables it.
	BreakerFailures uint32        `env:"BREAKER_FAILURES" envDefault:"0"`
	BreakerTimeout  time.Duration `env:"BREAKER_TIMEOUT" envDefault:"30s"`

	Cache cache.Config `envPrefix:"CACHE_"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return load(env.Options{Prefix: EnvPrefix})
}

// LoadFrom reads the configuration from environ instead of the process
// environment. Keys carry EnvPrefix.
func LoadFrom(environ map[string]string) (Config, error) {
	return load(env.Options{Prefix: EnvPrefix, Environment: environ})
}

func load(opts env.Options) (Config, error) {
	cfg := Config{Cache: cache.DefaultConfig()}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &cache.ConfigError{Field: "BaseURL", Message: "must be an absolute URL"}
	}
	if c.StudentsPath == "" {
		return &cache.ConfigError{Field: "StudentsPath", Message: "cannot be empty"}
	}
	if c.Timeout <= 0 {
		return &cache.ConfigError{Field: "Timeout", Message: "must be positive"}
	}
	if c.StaleTime < 0 {
		return &cache.ConfigError{Field: "StaleTime", Message: "must be non-negative"}
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		return &cache.ConfigError{Field: "LogLevel", Message: err.Error()}
	}
	return c.Cache.Validate()
}

// Logger builds a production JSON logger at LogLevel.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.Encoding = "json"
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.MessageKey = "msg"
	zc.EncoderConfig.LevelKey = "level"
	zc.EncoderConfig.CallerKey = "caller"
	return zc.Build()
}
