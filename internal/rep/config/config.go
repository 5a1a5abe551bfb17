// Package config loads engine configuration from environment variables with
// the DOMREP_ prefix, applies defaults, and validates the result.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// HTTPAddr is the listen address of the read-only HTTP API.
	HTTPAddr string `koanf:"http_addr" validate:"required"`

	// DBPath is the bolt database file backing the key-value store.
	DBPath string `koanf:"db_path" validate:"required"`

	// SeedPath optionally points at a JSON seed dataset. Empty means the
	// built-in defaults are used when no database has been persisted yet.
	SeedPath string `koanf:"seed_path"`

	// CacheSize bounds the lookup result cache. Zero disables caching.
	CacheSize int `koanf:"cache_size" validate:"gte=0"`

	// CacheTTLHours is the result cache entry lifetime.
	CacheTTLHours int `koanf:"cache_ttl_hours" validate:"required,gte=1"`

	// Compression selects the storage codec: "gzip" or "none".
	Compression string `koanf:"compression" validate:"required,oneof=gzip none"`

	// UpdateURL is the remote manifest endpoint. Empty disables remote updates.
	UpdateURL string `koanf:"update_url" validate:"omitempty,url"`

	// UpdateIntervalDays gates how often remote update checks may run.
	UpdateIntervalDays int `koanf:"update_interval_days" validate:"required,gte=1"`

	// FetchTimeoutSeconds bounds each remote fetch.
	FetchTimeoutSeconds int `koanf:"fetch_timeout_seconds" validate:"required,gte=1"`

	// MaxRetries caps update-cycle retry attempts.
	MaxRetries int `koanf:"max_retries" validate:"gte=0"`

	// RetryBaseDelayMS is the base of the exponential backoff schedule.
	RetryBaseDelayMS int `koanf:"retry_base_delay_ms" validate:"required,gte=1"`

	// RetryMultiplier grows the backoff delay each attempt.
	RetryMultiplier float64 `koanf:"retry_multiplier" validate:"required,gte=1"`

	// Tier is the subscription tier; only "pro" runs remote update cycles.
	Tier string `koanf:"tier" validate:"required,oneof=free pro"`
}

// CacheTTL returns the result cache TTL as a duration.
func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// UpdateInterval returns the update eligibility window as a duration.
func (c *AppConfig) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalDays) * 24 * time.Hour
}

// FetchTimeout returns the remote fetch timeout as a duration.
func (c *AppConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// RetryBaseDelay returns the backoff base delay as a duration.
func (c *AppConfig) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMS) * time.Millisecond
}

// DEFAULT_APP_CONFIG defines the default application configuration for the
// reputation engine daemon.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:                 "prod",
	LogLevel:            "info",
	HTTPAddr:            ":8953",
	DBPath:              "/var/lib/domrep/reputation.db",
	SeedPath:            "",
	CacheSize:           1000,
	CacheTTLHours:       24,
	Compression:         "gzip",
	UpdateURL:           "",
	UpdateIntervalDays:  30,
	FetchTimeoutSeconds: 10,
	MaxRetries:          3,
	RetryBaseDelayMS:    500,
	RetryMultiplier:     2,
	Tier:                "free",
}

// envLoader loads environment variables with the prefix "DOMREP_",
// lowercasing keys and stripping the prefix. Mockable in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "DOMREP_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "DOMREP_"))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}

			return key, value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG via the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
