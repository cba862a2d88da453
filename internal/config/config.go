// Package config loads the server configuration from environment variables.
//
// Variables are read with envconfig into grouped structs; defaults live in the
// struct tags so the zero-config case (SQLite file, in-memory reset tokens,
// log mailer) works out of the box. Only SESSION_SECRET is required.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Supported values of DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Reset     ResetConfig
	Redis     RedisConfig
	Mail      MailConfig
	GitHub    GitHubConfig
	Countries []string `envconfig:"COUNTRIES" default:"Italy,France,Germany,Spain,United Kingdom,United States"`
	LogLevel  string   `envconfig:"LOG_LEVEL" default:"debug"`
}

type ServerConfig struct {
	Port        int      `envconfig:"PORT" default:"8080"`
	BaseURL     string   `envconfig:"BASE_URL" default:"http://localhost:8080"`
	CORSOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
}

type DatabaseConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"sqlite"`
	Path     string `envconfig:"DB_PATH" default:"data/teamboard.db"`
	URL      string `envconfig:"DATABASE_URL"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"10"`
}

type SessionConfig struct {
	Secret     string        `envconfig:"SESSION_SECRET" required:"true"`
	TTL        time.Duration `envconfig:"SESSION_TTL" default:"336h"`
	CookieName string        `envconfig:"SESSION_COOKIE_NAME" default:"sessionid"`
	Secure     bool          `envconfig:"SESSION_SECURE" default:"false"`
}

type ResetConfig struct {
	TokenTTL time.Duration `envconfig:"RESET_TOKEN_TTL" default:"72h"`
}

// RedisConfig enables the Redis reset-token store when Addr is set.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// MailConfig enables SMTP delivery when Host is set; otherwise reset links
// are written to the log.
type MailConfig struct {
	Host     string `envconfig:"SMTP_HOST"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"MAIL_FROM" default:"teamboard <no-reply@localhost>"`
}

// GitHubConfig enables "Sign in with GitHub" when both credentials are set.
type GitHubConfig struct {
	ClientID     string `envconfig:"GITHUB_CLIENT_ID"`
	ClientSecret string `envconfig:"GITHUB_CLIENT_SECRET"`
	CallbackURL  string `envconfig:"GITHUB_CALLBACK_URL"`
}

// Enabled reports whether GitHub login should be wired.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is the normal case in production.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = strings.TrimRight(cfg.Server.BaseURL, "/") + "/accounts/github/callback/"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if len(c.Session.Secret) < 16 {
		return errors.New("config: SESSION_SECRET must be at least 16 characters")
	}
	if c.Session.TTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	if c.Reset.TokenTTL <= 0 {
		return errors.New("config: RESET_TOKEN_TTL must be positive")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("config: DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.Database.Driver)
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps LOG_LEVEL onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
