package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port        string   `env:"PORT" envDefault:"8080"`
	Storage     string   `env:"STORAGE" envDefault:"postgres"`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:3001"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty   bool     `env:"LOG_PRETTY" envDefault:"false"`

	Database DatabaseConfig
	Auth     AuthConfig
	Ledger   LedgerConfig
	Alerts   AlertConfig
	Tracing  TracingConfig
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host         string `env:"DB_HOST" envDefault:"localhost"`
	Port         string `env:"DB_PORT" envDefault:"5432"`
	User         string `env:"DB_USER" envDefault:"warehouse"`
	Password     string `env:"DB_PASSWORD" envDefault:"warehouse"`
	Name         string `env:"DB_NAME" envDefault:"warehouse_inventory"`
	SSLMode      string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// AuthConfig holds token and bootstrap account settings.
type AuthConfig struct {
	JWTSecret              string        `env:"JWT_SECRET"`
	TokenTTL               time.Duration `env:"JWT_TTL" envDefault:"8h"`
	RefreshTTL             time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	BootstrapAdminEmail    string        `env:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPassword string        `env:"BOOTSTRAP_ADMIN_PASSWORD"`
	BootstrapAdminName     string        `env:"BOOTSTRAP_ADMIN_NAME" envDefault:"Administrator"`
}

// LedgerConfig tunes optimistic retries.
type LedgerConfig struct {
	MaxRetries int `env:"LEDGER_MAX_RETRIES" envDefault:"5"`
}

// AlertConfig tunes the background alert evaluator.
type AlertConfig struct {
	Interval         time.Duration `env:"ALERT_INTERVAL" envDefault:"1m"`
	ExpiryWindowDays int           `env:"ALERT_EXPIRY_WINDOW_DAYS" envDefault:"14"`
}

// TracingConfig enables OTLP export when an endpoint is set.
type TracingConfig struct {
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"warehouse-inventory-backend"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that have no safe default.
func (c *Config) Validate() error {
	if c.Storage != StoragePostgres && c.Storage != StorageMemory {
		return fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Storage)
	}
	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.Auth.RefreshTTL < c.Auth.TokenTTL {
		return errors.New("JWT_REFRESH_TTL must not be shorter than JWT_TTL")
	}
	if c.Ledger.MaxRetries < 1 {
		return errors.New("LEDGER_MAX_RETRIES must be at least 1")
	}
	if c.Alerts.Interval <= 0 {
		return errors.New("ALERT_INTERVAL must be positive")
	}
	if c.Alerts.ExpiryWindowDays < 0 {
		return errors.New("ALERT_EXPIRY_WINDOW_DAYS must not be negative")
	}
	return nil
}
