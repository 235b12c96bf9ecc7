package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Database type constants
const (
	PostgreSQL = "postgresql"
	Oracle     = "oracle"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against struct tags plus the cross-field rules the tags
// cannot express. It returns the first failed validation, or nil.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if err := validateDatabase(&cfg.Database); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	return nil
}

// validateDatabase enforces the vendor-specific addressing rules: a
// connection string stands alone; otherwise PostgreSQL needs host and
// database, and Oracle needs host plus one of service name, SID or database.
func validateDatabase(cfg *DatabaseConfig) error {
	if cfg.ConnectionString != "" {
		return nil
	}

	if cfg.Host == "" {
		return fmt.Errorf("host is required without a connection string")
	}

	switch cfg.Type {
	case PostgreSQL:
		if cfg.Database == "" {
			return fmt.Errorf("database name is required for postgresql")
		}
	case Oracle:
		if cfg.ServiceName == "" && cfg.SID == "" && cfg.Database == "" {
			return fmt.Errorf("service_name, sid or database is required for oracle")
		}
	}

	if cfg.MaxIdleConns > cfg.MaxConns && cfg.MaxConns > 0 {
		return fmt.Errorf("max_idle_conns (%d) cannot exceed max_conns (%d)", cfg.MaxIdleConns, cfg.MaxConns)
	}

	return nil
}
