package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the root configuration for go-session consumers.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Log      LogConfig      `koanf:"log"`

	// k holds the underlying Koanf instance for flexible access to custom configurations
	k *koanf.Koanf `json:"-" yaml:"-" toml:"-" mapstructure:"-"`
}

// DatabaseConfig describes the connection source session factories open
// against.
type DatabaseConfig struct {
	Type            string        `koanf:"type" validate:"required,oneof=postgresql oracle"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=0,lte=65535"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxConns        int32         `koanf:"max_conns" validate:"gte=0"`
	MaxIdleConns    int32         `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`

	// Oracle-specific settings
	ServiceName string `koanf:"service_name"`
	SID         string `koanf:"sid"`

	// Connection string override (if needed)
	ConnectionString string `koanf:"connection_string"`
}

// SessionConfig tunes session behaviour.
type SessionConfig struct {
	// DefaultMode is the execution mode used when callers do not request one:
	// simple, reuse or batch.
	DefaultMode string `koanf:"default_mode" validate:"omitempty,oneof=simple reuse batch"`

	// SlowThreshold is the elapsed time above which an instrumented session
	// operation logs a warning.
	SlowThreshold time.Duration `koanf:"slow_threshold" validate:"gte=0"`
}

// LogConfig controls the library logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty"`
}

// Raw returns the underlying koanf instance for access to custom keys, or nil
// when the config was built directly rather than loaded.
func (c *Config) Raw() *koanf.Koanf {
	return c.k
}
