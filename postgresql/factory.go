// Package postgresql provides the PostgreSQL session factory for go-session,
// built on database/sql with the pgx driver.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/gaborage/go-session/config"
	"github.com/gaborage/go-session/internal/sqlsession"
	"github.com/gaborage/go-session/logger"
	"github.com/gaborage/go-session/session/types"
	"github.com/gaborage/go-session/transaction"
)

// Factory implements types.Factory for PostgreSQL. Sessions opened while the
// current unit of work holds a transaction on the factory's pool join that
// transaction; all other sessions own their lifecycle.
type Factory struct {
	db          *sql.DB
	cfg         *config.DatabaseConfig
	defaultMode types.ExecutionMode
	log         logger.Logger
}

var (
	_ types.Factory = (*Factory)(nil)
	_ types.Managed = (*Factory)(nil)
)

var (
	openPostgresDB = func(cfg *pgx.ConnConfig) *sql.DB {
		return stdlib.OpenDB(*cfg)
	}
	pingPostgresDB = func(ctx context.Context, db *sql.DB) error {
		return db.PingContext(ctx)
	}
)

// quoteDSN quotes a DSN value according to libpq rules:
// - Returns double single quotes for empty strings (empty value)
// - Escapes backslashes and single quotes
// - Wraps in single quotes when value contains non-alphanumeric/._- characters
func quoteDSN(value string) string {
	if value == "" {
		return "''"
	}

	needsQuoting := false
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') && r != '.' && r != '_' && r != '-' {
			needsQuoting = true
			break
		}
	}

	if !needsQuoting {
		return value
	}

	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "'", "\\'")

	return "'" + escaped + "'"
}

// NewFactory opens a PostgreSQL connection pool according to cfg and returns
// a session factory over it. defaultMode resolves callers' ModeDefault;
// passing ModeDefault here selects ModeSimple.
func NewFactory(cfg *config.DatabaseConfig, defaultMode types.ExecutionMode, log logger.Logger) (*Factory, error) {
	if log == nil {
		log = logger.Nop()
	}

	var dsn string
	if cfg.ConnectionString != "" {
		dsn = cfg.ConnectionString
	} else {
		parts := []string{
			fmt.Sprintf("host=%s", quoteDSN(cfg.Host)),
			fmt.Sprintf("port=%d", cfg.Port),
			fmt.Sprintf("user=%s", quoteDSN(cfg.Username)),
			fmt.Sprintf("password=%s", quoteDSN(cfg.Password)),
			fmt.Sprintf("dbname=%s", quoteDSN(cfg.Database)),
		}

		if cfg.SSLMode != "" {
			parts = append(parts, fmt.Sprintf("sslmode=%s", cfg.SSLMode))
		}

		dsn = strings.Join(parts, " ")
	}

	pgxConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}

	db := openPostgresDB(pgxConfig)

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MaxIdleConns))
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pingPostgresDB(ctx, db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close PostgreSQL pool after ping failure")
		}
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to PostgreSQL database")

	return newFactory(db, cfg, defaultMode, log), nil
}

// NewFactoryFromDB wraps an existing pool. Used when the pool is shared with
// a transaction.Manager the caller already constructed, and in tests.
func NewFactoryFromDB(db *sql.DB, defaultMode types.ExecutionMode, log logger.Logger) *Factory {
	if log == nil {
		log = logger.Nop()
	}
	return newFactory(db, nil, defaultMode, log)
}

func newFactory(db *sql.DB, cfg *config.DatabaseConfig, defaultMode types.ExecutionMode, log logger.Logger) *Factory {
	if defaultMode == types.ModeDefault {
		defaultMode = types.ModeSimple
	}
	return &Factory{db: db, cfg: cfg, defaultMode: defaultMode, log: log}
}

// OpenSession creates a new session. When the current unit of work holds a
// transaction on this factory's pool the session attaches to it, so its own
// commit and rollback never touch the physical connection.
func (f *Factory) OpenSession(ctx context.Context, mode types.ExecutionMode) (types.Session, error) {
	if mode == types.ModeDefault {
		mode = f.defaultMode
	}
	if !mode.Valid() {
		return nil, types.ErrNoMode
	}

	if res, ok := transaction.TxFor(ctx, f.ConnectionSource()); ok {
		return sqlsession.New(types.PostgreSQL, mode, f.db, res.Tx, f.log), nil
	}
	return sqlsession.New(types.PostgreSQL, mode, f.db, nil, f.log), nil
}

// DefaultMode returns the mode used when callers request ModeDefault.
func (f *Factory) DefaultMode() types.ExecutionMode {
	return f.defaultMode
}

// ConnectionSource identifies the underlying pool; transaction managers over
// the same *sql.DB bind their transaction under this key.
func (f *Factory) ConnectionSource() any {
	return f.db
}

// ManagedByUnitOfWork reports that sessions from this factory defer physical
// commit and rollback to the unit of work.
func (f *Factory) ManagedByUnitOfWork() bool {
	return true
}

// DB exposes the pool, e.g. to construct a transaction.Manager over it.
func (f *Factory) DB() *sql.DB {
	return f.db
}

// Health pings the pool.
func (f *Factory) Health(ctx context.Context) error {
	return pingPostgresDB(ctx, f.db)
}

// Close closes the pool.
func (f *Factory) Close() error {
	return f.db.Close()
}
