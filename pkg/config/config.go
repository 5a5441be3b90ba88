package config

import (
	"errors"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DecisionMode selects how flags are resolved.
type DecisionMode string

const (
	// ModeAPI delegates targeting and allocation to the decision endpoint.
	ModeAPI DecisionMode = "api"
	// ModeBucketing polls the campaign file and buckets visitors locally.
	ModeBucketing DecisionMode = "bucketing"
)

// Config is the validated SDK configuration.
type Config struct {
	EnvID  string `env:"FLAGSHIP_ENV_ID"`
	APIKey string `env:"FLAGSHIP_API_KEY"`

	DecisionMode DecisionMode `env:"FLAGSHIP_DECISION_MODE" envDefault:"api"`

	DecisionURL   string `env:"FLAGSHIP_DECISION_URL" envDefault:"https://decision.flagship.io/v2"`
	BucketingURL  string `env:"FLAGSHIP_BUCKETING_URL"`
	EventsURL     string `env:"FLAGSHIP_EVENTS_URL" envDefault:"https://events.flagship.io"`
	ActivationURL string `env:"FLAGSHIP_ACTIVATION_URL" envDefault:"https://decision.flagship.io/v2/activate"`

	// Timeout bounds every decision and tracking HTTP call.
	Timeout time.Duration `env:"FLAGSHIP_TIMEOUT" envDefault:"10s"`

	// PollingInterval is the fixed delay between bucketing fetches.
	// Zero fetches once at start and never polls again.
	PollingInterval time.Duration `env:"FLAGSHIP_POLLING_INTERVAL" envDefault:"60s"`

	// BatchInterval is the fixed delay between tracking flush cycles.
	BatchInterval time.Duration `env:"FLAGSHIP_BATCH_INTERVAL" envDefault:"10s"`

	// MaxPoolSize triggers an early flush when the hit queue reaches it.
	MaxPoolSize int `env:"FLAGSHIP_MAX_POOL_SIZE" envDefault:"20"`

	// CacheStrategy selects the hit persistence policy:
	// continuous, periodic or no-batching.
	CacheStrategy string `env:"FLAGSHIP_CACHE_STRATEGY" envDefault:"continuous"`

	// CacheLookupTimeout bounds visitor and hit cache lookups; on expiry
	// the SDK proceeds as if the cache were empty.
	CacheLookupTimeout time.Duration `env:"FLAGSHIP_CACHE_LOOKUP_TIMEOUT" envDefault:"200ms"`

	// HitExpiration is the window after which a cached hit is discarded
	// instead of resent.
	HitExpiration time.Duration `env:"FLAGSHIP_HIT_EXPIRATION" envDefault:"4h"`
}

var loadEnvOnce sync.Once

// Load builds a Config from the environment, reading an optional .env file
// first. The result is validated.
func Load() (Config, error) {
	loadEnvOnce.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParseFailed, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the fields a running SDK cannot do without.
func (c Config) Validate() error {
	if c.EnvID == "" {
		return ErrMissingEnvID
	}
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	switch c.DecisionMode {
	case ModeAPI, ModeBucketing:
	default:
		return ErrInvalidDecisionMode
	}
	switch c.CacheStrategy {
	case "continuous", "periodic", "no-batching":
	default:
		return ErrInvalidCacheStrategy
	}
	return nil
}
