// Package config loads the credentials server settings from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

const (
	TokenStrategyUser   = "user"
	TokenStrategyRandom = "random"
)

// Config holds the runtime settings of cmd/credentials-server.
type Config struct {
	HTTPAddr      string        `env:"CREDENTIALS_HTTP_ADDR"      envDefault:":8080"`
	DatabaseDSN   string        `env:"CREDENTIALS_DATABASE_DSN"   envDefault:"file:credentials.db?cache=shared"`
	RedisURL      string        `env:"CREDENTIALS_REDIS_URL"`
	SessionTTL    time.Duration `env:"CREDENTIALS_SESSION_TTL"    envDefault:"24h"`
	SessionCookie string        `env:"CREDENTIALS_SESSION_COOKIE" envDefault:"credentials_session"`
	SigningKey    string        `env:"CREDENTIALS_SIGNING_KEY"`
	TokenStrategy string        `env:"CREDENTIALS_TOKEN_STRATEGY" envDefault:"user"`
	TokenLength   int           `env:"CREDENTIALS_TOKEN_LENGTH"   envDefault:"128"`
	BcryptCost    int           `env:"CREDENTIALS_BCRYPT_COST"    envDefault:"12"`
	LogLevel      string        `env:"CREDENTIALS_LOG_LEVEL"      envDefault:"info"`
	LogEncoding   string        `env:"CREDENTIALS_LOG_ENCODING"   envDefault:"json"`
	Debug         bool          `env:"CREDENTIALS_DEBUG"          envDefault:"false"`
}

// Load reads files (a missing file is not an error) and then the
// environment, and validates the result.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryValidation, "parse env")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.TokenStrategy {
	case TokenStrategyUser, TokenStrategyRandom:
	default:
		return invalid("CREDENTIALS_TOKEN_STRATEGY must be user or random", c.TokenStrategy)
	}

	if c.TokenLength <= 0 {
		return invalid("CREDENTIALS_TOKEN_LENGTH must be positive", c.TokenLength)
	}

	if c.SessionTTL <= 0 {
		return invalid("CREDENTIALS_SESSION_TTL must be positive", c.SessionTTL.String())
	}

	if c.SessionCookie == "" {
		return invalid("CREDENTIALS_SESSION_COOKIE cannot be empty", c.SessionCookie)
	}

	if !c.Debug && len(c.SigningKey) < 32 {
		return invalid("CREDENTIALS_SIGNING_KEY must be at least 32 bytes", len(c.SigningKey))
	}
	return nil
}

func invalid(message string, value any) error {
	return goerrors.New(message, goerrors.CategoryValidation).
		WithTextCode("INVALID_CONFIG").
		WithMetadata(map[string]any{"value": value})
}
