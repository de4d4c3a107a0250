package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"Tally"`
		Port     int    `envconfig:"PORT" default:"8080"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
		LogJSON  bool   `envconfig:"LOG_JSON" default:"false"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"tally"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	}

	// Lock replaces the old single-row settings table: the PIN hash and
	// lock timeout are read once at startup.
	Lock struct {
		PINHash       string        `envconfig:"PIN_HASH"`
		SessionSecret string        `envconfig:"SESSION_SECRET"`
		Timeout       time.Duration `envconfig:"LOCK_TIMEOUT" default:"15m"`
	}

	Redis struct {
		URL            string        `envconfig:"REDIS_URL"`
		IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	}

	Audit struct {
		Tolerance decimal.Decimal `envconfig:"AUDIT_TOLERANCE" default:"0"`
	}

	Notifications struct {
		Enabled  bool `envconfig:"NOTIFICATIONS_ENABLED" default:"false"`
		LeadDays int  `envconfig:"NOTIFICATION_LEAD_DAYS" default:"3"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// LockEnabled reports whether the API requires a PIN session.
func (c *Config) LockEnabled() bool {
	return c.Lock.PINHash != ""
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.LockEnabled() && cfg.Lock.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET must be set when PIN_HASH is set")
	}

	if cfg.Audit.Tolerance.IsNegative() {
		return nil, fmt.Errorf("AUDIT_TOLERANCE must not be negative")
	}

	return &cfg, nil
}
