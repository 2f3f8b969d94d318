// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultSessionSecret = "change-me-session-secret"

// defaultSQLiteDSN waits up to 5s on a locked database.
const defaultSQLiteDSN = "file:ideaboard.db?_foreign_keys=on&_busy_timeout=5000"

// Config holds application configuration values loaded from the environment.
type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"APP_ENV"`
	BaseURL        string        `mapstructure:"APP_BASE_URL"`
	AllowedOrigins string        `mapstructure:"ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`

	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DBDriver       string `mapstructure:"DB_DRIVER"`
	DBMaxOpenConns int    `mapstructure:"DB_MAX_OPEN_CONNS"`

	SessionSecret    string `mapstructure:"SESSION_SECRET"`
	JWTSecret        string `mapstructure:"JWT_SECRET"`
	ResetTokenSecret string `mapstructure:"RESET_TOKEN_SECRET"`

	InitialAdminEmail    string `mapstructure:"INITIAL_ADMIN_EMAIL"`
	InitialAdminPassword string `mapstructure:"INITIAL_ADMIN_PASSWORD"`

	MailerEmail         string `mapstructure:"MAILER_EMAIL"`
	MailerPassword      string `mapstructure:"MAILER_PASSWD"`
	MailerSMTPServer    string `mapstructure:"MAILER_SMTP_SERVER"`
	MailerRatePerMinute int    `mapstructure:"MAILER_RATE_PER_MINUTE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	CASURL         string `mapstructure:"CAS_URL"`
	CASEmailDomain string `mapstructure:"CAS_EMAIL_DOMAIN"`

	ReconcileCron string `mapstructure:"RECONCILE_CRON"`

	TracingEnabled  bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampler  float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	// Every key needs a default so Unmarshal picks it up from the environment.
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_MAX_OPEN_CONNS", 4)
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("RESET_TOKEN_SECRET", "")
	v.SetDefault("INITIAL_ADMIN_EMAIL", "admin")
	v.SetDefault("INITIAL_ADMIN_PASSWORD", "admin")
	v.SetDefault("MAILER_EMAIL", "")
	v.SetDefault("MAILER_PASSWD", "")
	v.SetDefault("MAILER_SMTP_SERVER", "")
	v.SetDefault("MAILER_RATE_PER_MINUTE", 30)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CAS_URL", "")
	v.SetDefault("CAS_EMAIL_DOMAIN", "uab.edu")
	v.SetDefault("RECONCILE_CRON", "@hourly")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.DBDriver = strings.ToLower(strings.TrimSpace(config.DBDriver))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	switch c.DBDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case "sqlite":
		if c.DatabaseURL == "" {
			c.DatabaseURL = defaultSQLiteDSN
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBMaxOpenConns <= 0 {
		return errors.New("DB_MAX_OPEN_CONNS must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}

	if c.IsProduction() {
		if c.ResetSecret() == "" {
			return errors.New("RESET_TOKEN_SECRET or JWT_SECRET is required in production")
		}
		if c.SessionKey() == defaultSessionSecret {
			return errors.New("SESSION_SECRET or JWT_SECRET is required in production")
		}
		if len(c.SessionKey()) < 32 {
			return errors.New("SESSION_SECRET must be at least 32 characters in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if c.ResetSecret() == "" {
		log.Println("WARNING: neither RESET_TOKEN_SECRET nor JWT_SECRET is set; password reset links are disabled.")
	}

	return nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// ResetSecret returns the secret used to sign password reset tokens.
// RESET_TOKEN_SECRET takes precedence over JWT_SECRET.
func (c *Config) ResetSecret() string {
	if c.ResetTokenSecret != "" {
		return c.ResetTokenSecret
	}
	return c.JWTSecret
}

// SessionKey returns the secret used to sign session cookies.
func (c *Config) SessionKey() string {
	if c.SessionSecret != "" {
		return c.SessionSecret
	}
	if c.JWTSecret != "" {
		return c.JWTSecret
	}
	return defaultSessionSecret
}

// MailerConfigured reports whether all SMTP settings are present.
func (c *Config) MailerConfigured() bool {
	return c.MailerEmail != "" && c.MailerPassword != "" && c.MailerSMTPServer != ""
}
