// Package config provides database configuration management.
package config

import (
	"fmt"
	"strings"
	"time"

	appConfig "github.com/festy23/mergequeue/internal/config"
	"github.com/festy23/mergequeue/pkg/retry"
)

// Config holds database connection configuration.
type Config struct {
	Host     string
	User     string
	Password string
	DBName   string
	Port     string
	SSLMode  string
	TimeZone string
	// StatementTimeout bounds every statement on the server side. Zero keeps
	// the server default.
	StatementTimeout time.Duration
}

// LoadConfigFromEnv loads database configuration from DB_* environment variables.
func LoadConfigFromEnv() Config {
	return Config{
		Host:             appConfig.GetEnv("DB_HOST", "localhost"),
		User:             appConfig.GetEnv("DB_USER", "postgres"),
		Password:         appConfig.GetEnv("DB_PASSWORD", "postgres"),
		DBName:           appConfig.GetEnv("DB_NAME", "mergequeue"),
		Port:             appConfig.GetEnv("DB_PORT", "5432"),
		SSLMode:          appConfig.GetEnv("DB_SSLMODE", "disable"),
		TimeZone:         appConfig.GetEnv("DB_TIMEZONE", "UTC"),
		StatementTimeout: appConfig.GetEnvDuration("DB_STATEMENT_TIMEOUT", 0),
	}
}

// LoadRetryConfigFromEnv returns retry.PostgresConfig with DB_RETRY_* overrides.
func LoadRetryConfigFromEnv() retry.Config {
	cfg := retry.PostgresConfig()
	cfg.MaxAttempts = appConfig.GetEnvInt("DB_RETRY_MAX_ATTEMPTS", cfg.MaxAttempts)
	cfg.InitialDelay = appConfig.GetEnvDuration("DB_RETRY_INITIAL_DELAY", cfg.InitialDelay)
	cfg.MaxDelay = appConfig.GetEnvDuration("DB_RETRY_MAX_DELAY", cfg.MaxDelay)
	cfg.Multiplier = appConfig.GetEnvFloat("DB_RETRY_MULTIPLIER", cfg.Multiplier)
	return cfg
}

// BuildDSN renders cfg as a libpq keyword/value connection string.
func BuildDSN(cfg Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port, cfg.SSLMode, cfg.TimeZone)
	if cfg.StatementTimeout > 0 {
		fmt.Fprintf(&b, " statement_timeout=%d", cfg.StatementTimeout.Milliseconds())
	}
	return b.String()
}

// connectError masks credentials in the message while keeping the cause
// reachable through errors.Is and errors.As.
type connectError struct {
	msg string
	err error
}

func (e *connectError) Error() string { return "failed to connect to database: " + e.msg }

func (e *connectError) Unwrap() error { return e.err }

// SanitizeError wraps a connection error with the password masked out.
func SanitizeError(err error, cfg Config) error {
	if err == nil {
		return nil
	}
	safe := cfg
	safe.Password = "***"
	msg := strings.ReplaceAll(err.Error(), BuildDSN(cfg), BuildDSN(safe))
	if cfg.Password != "" {
		msg = strings.ReplaceAll(msg, cfg.Password, "***")
	}
	return &connectError{msg: msg, err: err}
}
