package app

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
)

// InsecureTokenSecret is the development default. Validate refuses it outside
// the dev environment.
const InsecureTokenSecret = "dev-insecure-change-me"

// Rate limiter backends.
const (
	LimiterBackendMemory = "memory"
	LimiterBackendRedis  = "redis"
)

type Config struct {
	DatabaseFile string `env:"DATABASE_FILE" envDefault:"gatekeep.db"`

	TokenSecret       string        `env:"TOKEN_SECRET" envDefault:"dev-insecure-change-me"`
	TokenTTL          time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
	AllowRegistration bool          `env:"ALLOW_REGISTRATION" envDefault:"true"`

	MFASecretKey string `env:"MFA_SECRET_KEY"` // defaults to TokenSecret
	MFAIssuer    string `env:"MFA_ISSUER" envDefault:"Gatekeep"`
	MFAVaultMode string `env:"MFA_VAULT_MODE" envDefault:"xor"` // xor, aead

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"30"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`
	RateLimitBackend  string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory"` // memory, redis
	RedisURL          string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS" envSeparator:","`

	Env                  string        `env:"ENV" envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                 int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1m"`
}

// LoadConfig reads the environment, after loading a .env file from the
// working directory when one exists. Variables already set take precedence
// over the file.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.TokenSecret = strings.TrimSpace(cfg.TokenSecret)
	cfg.MFASecretKey = strings.TrimSpace(cfg.MFASecretKey)
	if cfg.MFASecretKey == "" {
		cfg.MFASecretKey = cfg.TokenSecret
	}

	origins := cfg.CORSAllowOrigins[:0]
	for _, o := range cfg.CORSAllowOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.CORSAllowOrigins = origins

	return cfg, nil
}

// Validate reports every problem with cfg at once.
func (cfg Config) Validate() error {
	var errs []error

	if cfg.TokenSecret == "" {
		errs = append(errs, errors.New("TOKEN_SECRET must not be empty"))
	} else if cfg.TokenSecret == InsecureTokenSecret && cfg.Env != "dev" {
		errs = append(errs, fmt.Errorf("TOKEN_SECRET must be changed from the default outside ENV=dev (ENV=%s)", cfg.Env))
	}
	if cfg.MFASecretKey == "" {
		errs = append(errs, errors.New("MFA_SECRET_KEY must not be empty"))
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}

	switch cfg.MFAVaultMode {
	case cryptox.VaultModeXOR, cryptox.VaultModeAEAD:
	default:
		errs = append(errs, fmt.Errorf("MFA_VAULT_MODE %q is not one of xor, aead", cfg.MFAVaultMode))
	}

	if cfg.RateLimitRequests <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS must be positive"))
	}
	if cfg.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	switch cfg.RateLimitBackend {
	case LimiterBackendMemory:
	case LimiterBackendRedis:
		if cfg.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required with RATE_LIMIT_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND %q is not one of memory, redis", cfg.RateLimitBackend))
	}

	if slices.Contains(cfg.CORSAllowOrigins, "*") {
		errs = append(errs, errors.New("CORS_ALLOW_ORIGINS must not include wildcard '*'"))
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", cfg.Port))
	}

	return errors.Join(errs...)
}
