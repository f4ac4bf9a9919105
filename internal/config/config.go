// Package config loads devserver configuration from the environment. A
// .env file in the working directory is read first when present; real
// environment variables always win.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Env names the deployment environment, e.g. "dev" or "prod". It only
	// shows up in logs.
	Env string `env:"ENV" envDefault:"dev"`

	HTTP HTTP     `envPrefix:"HTTP_"`
	Log  Log      `envPrefix:"LOG_"`
	Auth Auth     `envPrefix:"AUTH_"`
	Psql Postgres `envPrefix:"PSQL_"`
}

type HTTP struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port uint16 `env:"PORT" envDefault:"8080"`

	// CORSOrigins is the comma-separated allow list. Empty means any
	// origin, which is fine for a development backend.
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	// RateLimit is the per-client request budget in requests per minute.
	RateLimit int `env:"RATE_LIMIT" envDefault:"600"`
}

type Log struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"console"`
}

// SlogLevel maps the textual level onto slog. Unknown values fall back to
// info.
func (l Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SlogFormat normalises the format to "console" or "json".
func (l Log) SlogFormat() string {
	if strings.ToLower(l.Format) == "json" {
		return "json"
	}
	return "console"
}

type Auth struct {
	JWTSecret string        `env:"JWT_SECRET"`
	AccessTTL time.Duration `env:"ACCESS_TTL" envDefault:"1h"`
	OTPTTL    time.Duration `env:"OTP_TTL" envDefault:"10m"`
}

type Postgres struct {
	// URL is a pgx connection string. Empty selects the in-memory store.
	URL           string `env:"URL"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	MaxConns      int32  `env:"MAX_CONNS" envDefault:"10"`
	MinConns      int32  `env:"MIN_CONNS" envDefault:"2"`
}

// Load reads .env (when present) and the environment into a Config, then
// validates it.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least 16 characters")
	}
	if c.Auth.AccessTTL <= 0 {
		return fmt.Errorf("AUTH_ACCESS_TTL must be positive")
	}
	if c.Auth.OTPTTL <= 0 {
		return fmt.Errorf("AUTH_OTP_TTL must be positive")
	}
	if c.HTTP.Port == 0 {
		return fmt.Errorf("HTTP_PORT must be set")
	}
	return nil
}
