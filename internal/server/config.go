package server

import (
	"time"

	"codeberg.org/mutker/vitalscan/internal/errors"
)

type Config struct {
	CORSOrigins []string      `mapstructure:"cors_origins"`
	Heartbeat   time.Duration `mapstructure:"heartbeat"`
	// Retention is how long a finished scan stays queryable.
	Retention time.Duration `mapstructure:"retention"`
	// MaxLifetime bounds scans that never finish, such as a recoverable
	// error that is never retried.
	MaxLifetime     time.Duration `mapstructure:"max_lifetime"`
	AcquireTimeout  time.Duration `mapstructure:"acquire_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Heartbeat:       15 * time.Second,
		Retention:       5 * time.Minute,
		MaxLifetime:     30 * time.Minute,
		AcquireTimeout:  10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Heartbeat <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "heartbeat must be positive")
	}
	if c.Retention < 0 || c.MaxLifetime <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "retention must not be negative and max_lifetime must be positive")
	}
	if c.AcquireTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "timeouts must be positive")
	}
	return nil
}
