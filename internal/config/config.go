// Package config loads the server configuration once at startup.
//
// Every setting lives in one Config value that main.go builds and passes into
// constructors. No other package reads the environment, which keeps tests
// free to build a Config by hand.
//
// Sources, in order of precedence:
//  1. real environment variables
//  2. an optional env.local file in the working directory (never overrides 1)
//  3. the envDefault tags below
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/sakif/devsnap/internal/apperror"
)

// LocalEnvFile is the dotenv file loaded before parsing, when present.
const LocalEnvFile = "env.local"

// Config holds all server configuration.
type Config struct {
	Port        int    `env:"PORT" envDefault:"8000"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	DBPath      string `env:"DB_PATH" envDefault:"data/devsnap.db"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	RedisURL    string `env:"REDIS_URL"`

	// OAuthStateTTL bounds how long a login nonce stays redeemable.
	OAuthStateTTL time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`

	JWT    JWT
	GitHub GitHub `envPrefix:"GITHUB_"`
	OpenAI OpenAI `envPrefix:"OPENAI_"`
}

// JWT configures session token signing. The variable names match the ones the
// project has always used in env.local.
type JWT struct {
	Secret        string `env:"SECRET_KEY"`
	Algorithm     string `env:"ALGORITHM" envDefault:"HS256"`
	ExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"1440"`
}

// TTL returns the default token lifetime.
func (j JWT) TTL() time.Duration {
	return time.Duration(j.ExpireMinutes) * time.Minute
}

// GitHub configures the OAuth app. The endpoint URLs default to github.com
// and only need overriding for GitHub Enterprise or tests.
type GitHub struct {
	ClientID     string        `env:"CLIENT_ID"`
	ClientSecret string        `env:"CLIENT_SECRET"`
	CallbackURL  string        `env:"CALLBACK_URL"`
	AuthURL      string        `env:"AUTH_URL" envDefault:"https://github.com/login/oauth/authorize"`
	TokenURL     string        `env:"TOKEN_URL" envDefault:"https://github.com/login/oauth/access_token"`
	APIURL       string        `env:"API_URL" envDefault:"https://api.github.com"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
}

// OpenAI configures the text generator. An empty APIKey disables generation.
type OpenAI struct {
	APIKey      string  `env:"API_KEY"`
	Model       string  `env:"MODEL" envDefault:"gpt-3.5-turbo"`
	BaseURL     string  `env:"BASE_URL"`
	MaxTokens   int64   `env:"MAX_TOKENS" envDefault:"500"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.7"`
}

// Load reads env.local (if any) and the environment into a Config and
// validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(LocalEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading %s: %w", LocalEnvFile, err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with. Missing optional
// integrations (GitHub, OpenAI, JWT secret) are not errors here: the features
// that need them report a configuration error at request time instead.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return apperror.Configuration(fmt.Sprintf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	switch strings.ToUpper(c.JWT.Algorithm) {
	case "HS256", "HS384", "HS512":
	default:
		return apperror.Configuration(fmt.Sprintf("ALGORITHM %q is not supported (use HS256, HS384 or HS512)", c.JWT.Algorithm))
	}
	if c.JWT.ExpireMinutes <= 0 {
		return apperror.Configuration("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.JWT.Secret != "" && len(c.JWT.Secret) < 16 {
		return apperror.Configuration("SECRET_KEY must be at least 16 characters")
	}
	if c.OAuthStateTTL <= 0 {
		return apperror.Configuration("OAUTH_STATE_TTL must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return apperror.Configuration(fmt.Sprintf("LOG_LEVEL %q is not a valid level", c.LogLevel))
	}
	return nil
}

// Warn logs settings that leave a feature disabled.
func (c *Config) Warn(logger *slog.Logger) {
	if c.JWT.Secret == "" {
		logger.Warn("SECRET_KEY not set: token issuing will fail and every login will return 500")
	}
	if c.GitHub.ClientID == "" {
		logger.Warn("GITHUB_CLIENT_ID not set: /auth/github/login will return 500")
	}
	if c.OpenAI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY not set: AI endpoints will return a not-configured message")
	}
	if c.RedisURL == "" {
		logger.Info("REDIS_URL not set: OAuth state is kept in process memory")
	}
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}
