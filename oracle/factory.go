// Package oracle provides the Oracle session factory for go-session, built on
// database/sql with the go-ora driver.
package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/gaborage/go-session/config"
	"github.com/gaborage/go-session/internal/sqlsession"
	"github.com/gaborage/go-session/logger"
	"github.com/gaborage/go-session/session/types"
	"github.com/gaborage/go-session/transaction"
)

// Factory implements types.Factory for Oracle.
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
	openOracleDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("oracle", dsn)
	}
	pingOracleDB = func(ctx context.Context, db *sql.DB) error {
		return db.PingContext(ctx)
	}
)

// BuildDSN assembles the go-ora connection URL from cfg: an explicit
// connection string wins, then service name, then SID, then database name.
func BuildDSN(cfg *config.DatabaseConfig) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}
	if cfg.ServiceName != "" {
		return go_ora.BuildUrl(cfg.Host, cfg.Port, cfg.ServiceName, cfg.Username, cfg.Password, nil)
	}
	if cfg.SID != "" {
		urlOpts := map[string]string{"SID": cfg.SID}
		return go_ora.BuildUrl(cfg.Host, cfg.Port, "", cfg.Username, cfg.Password, urlOpts)
	}
	return go_ora.BuildUrl(cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password, nil)
}

// NewFactory opens an Oracle connection pool according to cfg and returns a
// session factory over it.
func NewFactory(cfg *config.DatabaseConfig, defaultMode types.ExecutionMode, log logger.Logger) (*Factory, error) {
	if log == nil {
		log = logger.Nop()
	}

	db, err := openOracleDB(BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open Oracle connection: %w", err)
	}

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MaxIdleConns))
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pingOracleDB(ctx, db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close Oracle pool after ping failure")
		}
		return nil, fmt.Errorf("failed to ping Oracle database: %w", err)
	}

	ev := log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port)
	if cfg.ServiceName != "" {
		ev = ev.Str("service_name", cfg.ServiceName)
	} else if cfg.SID != "" {
		ev = ev.Str("sid", cfg.SID)
	} else {
		ev = ev.Str("database", cfg.Database)
	}
	ev.Msg("Connected to Oracle database")

	return newFactory(db, cfg, defaultMode, log), nil
}

// NewFactoryFromDB wraps an existing pool.
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

// OpenSession creates a new session, joining the unit of work's transaction
// on this pool when one is bound.
func (f *Factory) OpenSession(ctx context.Context, mode types.ExecutionMode) (types.Session, error) {
	if mode == types.ModeDefault {
		mode = f.defaultMode
	}
	if !mode.Valid() {
		return nil, types.ErrNoMode
	}

	if res, ok := transaction.TxFor(ctx, f.ConnectionSource()); ok {
		return sqlsession.New(types.Oracle, mode, f.db, res.Tx, f.log), nil
	}
	return sqlsession.New(types.Oracle, mode, f.db, nil, f.log), nil
}

// DefaultMode returns the mode used when callers request ModeDefault.
func (f *Factory) DefaultMode() types.ExecutionMode {
	return f.defaultMode
}

// ConnectionSource identifies the underlying pool.
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
	return pingOracleDB(ctx, f.db)
}

// Close closes the pool.
func (f *Factory) Close() error {
	return f.db.Close()
}
