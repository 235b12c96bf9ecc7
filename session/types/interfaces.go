// Package types contains the core session interface definitions for go-session.
// These interfaces are separate from the main session package to avoid import cycles
// and to make them easily accessible for mocking and testing.
//
//nolint:revive // Package name "types" is intentionally generic to avoid circular imports.
package types

import (
	"context"
	"database/sql"
	"errors"
)

// Database vendor identifiers shared across the session packages.
type Vendor = string

const (
	PostgreSQL Vendor = "postgresql"
	Oracle     Vendor = "oracle"
)

// Row represents a single result set row with basic scanning behaviour.
type Row interface {
	Scan(dest ...any) error
	Err() error
}

type sqlRowAdapter struct {
	row *sql.Row
}

// NewRowFromSQL wraps the provided *sql.Row in a Row.
// If row is nil, NewRowFromSQL returns nil.
func NewRowFromSQL(row *sql.Row) Row {
	if row == nil {
		return nil
	}
	return &sqlRowAdapter{row: row}
}

func (r *sqlRowAdapter) Scan(dest ...any) error {
	if r == nil || r.row == nil {
		return errors.New("sqlRowAdapter: underlying sql.Row is nil")
	}
	return r.row.Scan(dest...)
}

func (r *sqlRowAdapter) Err() error {
	if r == nil || r.row == nil {
		return errors.New("sqlRowAdapter: underlying sql.Row is nil")
	}
	return r.row.Err()
}

// Rows is a forward-only cursor over a query's result set. Cursors returned
// by a Session ride the session's transaction; the template materializes them
// with BufferRows before releasing a session it manages end to end.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

type sqlRowsAdapter struct {
	rows *sql.Rows
}

// NewRowsFromSQL wraps the provided *sql.Rows in a Rows.
// If rows is nil, NewRowsFromSQL returns nil.
func NewRowsFromSQL(rows *sql.Rows) Rows {
	if rows == nil {
		return nil
	}
	return &sqlRowsAdapter{rows: rows}
}

func (r *sqlRowsAdapter) Columns() ([]string, error) { return r.rows.Columns() }
func (r *sqlRowsAdapter) Next() bool                 { return r.rows.Next() }
func (r *sqlRowsAdapter) Scan(dest ...any) error     { return r.rows.Scan(dest...) }
func (r *sqlRowsAdapter) Close() error               { return r.rows.Close() }
func (r *sqlRowsAdapter) Err() error                 { return r.rows.Err() }

type errRow struct {
	err error
}

// NewRowFromError returns a Row whose Scan and Err both report err. It lets
// single-row query paths surface acquisition and flush failures through the
// row itself.
func NewRowFromError(err error) Row {
	return errRow{err: err}
}

func (r errRow) Scan(...any) error {
	return r.err
}

func (r errRow) Err() error {
	return r.err
}

// Session is a stateful handle to a database interaction context. A Session is
// NOT safe for concurrent use; the session package binds one to a unit of work
// so that concurrent call sites never share it by accident.
//
// Commit and Rollback act on the session's buffered state first. When the
// session's physical transaction is owned by a surrounding unit of work they
// are no-ops against the connection itself; the unit of work's manager commits
// or rolls back the connection.
type Session interface {
	// Query executes a query and returns a forward-only cursor over its
	// results. The cursor is backed by the session's transaction; consume it
	// before that transaction completes.
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	// Flush executes any buffered batch statements in order and returns their
	// results. Sessions opened in ModeSimple or ModeReuse have nothing to
	// flush and return (nil, nil).
	Flush(ctx context.Context) ([]sql.Result, error)

	// Commit flushes buffered work and commits the session's own transaction
	// if it has one. When force is true the commit is issued even if the
	// session executed no writes; some engines require an explicit
	// commit/rollback before close even for read-only work.
	Commit(ctx context.Context, force bool) error

	// Rollback discards buffered work and rolls back the session's own
	// transaction if it has one.
	Rollback(ctx context.Context) error

	// Close releases the session. Closing an unmanaged session with
	// uncommitted work rolls it back. Close is idempotent.
	Close() error
}

// Factory creates sessions against one underlying connection source. A Factory
// is used as the registry key inside a unit of work: at most one session holder
// is bound per factory per unit of work.
type Factory interface {
	// OpenSession creates a new session using the given execution mode.
	// ModeDefault resolves to DefaultMode().
	OpenSession(ctx context.Context, mode ExecutionMode) (Session, error)

	// DefaultMode returns the execution mode used when the caller does not
	// specify one.
	DefaultMode() ExecutionMode

	// ConnectionSource identifies the underlying connection pool. Two
	// factories over the same pool return the same value. The unit of work
	// binds the physical transaction under this key.
	ConnectionSource() any
}

// Managed is implemented by factories whose sessions defer physical commit and
// rollback to a surrounding unit of work. Only sessions from managed factories
// participate in unit-of-work synchronization.
type Managed interface {
	ManagedByUnitOfWork() bool
}

// Translator converts engine-specific persistence failures into the generic
// data-access taxonomy. Translate returns nil when it cannot translate the
// fault; callers then propagate the original error.
type Translator interface {
	Translate(err *PersistenceError) error
}
