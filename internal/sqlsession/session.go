// Package sqlsession implements the session contract over database/sql. The
// vendor packages (postgresql, oracle) wrap it with driver setup, placeholder
// formats and fault translation.
package sqlsession

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/gaborage/go-session/logger"
	"github.com/gaborage/go-session/session/types"
)

// runner abstracts *sql.DB and *sql.Tx execution.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type bufferedStatement struct {
	query string
	args  []any
}

// Session is a stateful, single-goroutine handle over one logical
// transaction. When external is true the physical transaction belongs to a
// surrounding unit of work: Commit and Rollback then act only on buffered
// state and never touch the connection. Otherwise the session lazily begins
// its own transaction on first use and owns it until Commit, Rollback or
// Close.
type Session struct {
	id       string
	vendor   types.Vendor
	mode     types.ExecutionMode
	db       *sql.DB
	tx       *sql.Tx
	external bool
	stmts    map[string]*sql.Stmt
	batch    []bufferedStatement
	dirty    bool
	closed   bool
	log      logger.Logger
}

var _ types.Session = (*Session)(nil)

// New creates a session for vendor in the given mode. When externalTx is not
// nil the session executes on it and leaves its lifecycle to the unit of
// work; otherwise the session transacts on db itself.
func New(vendor types.Vendor, mode types.ExecutionMode, db *sql.DB, externalTx *sql.Tx, log logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	s := &Session{
		id:       uuid.NewString(),
		vendor:   vendor,
		mode:     mode,
		db:       db,
		tx:       externalTx,
		external: externalTx != nil,
		log:      log,
	}
	s.log = log.WithFields(map[string]any{"session_id": s.id, "vendor": vendor})
	s.log.Debug().Str("mode", string(mode)).Msg("Session opened")
	return s
}

// ID returns the session's identity used in log correlation.
func (s *Session) ID() string {
	return s.id
}

// External reports whether the physical transaction is owned by a
// surrounding unit of work.
func (s *Session) External() bool {
	return s.external
}

// runner returns the execution target, beginning the session's own
// transaction on first use.
func (s *Session) runner(ctx context.Context) (runner, error) {
	if s.closed {
		return nil, types.ErrSessionClosed
	}
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, types.NewPersistenceError(s.vendor, "begin", err)
	}
	s.tx = tx
	return tx, nil
}

// statement returns a prepared statement for query, cached in ModeReuse.
func (s *Session) statement(ctx context.Context, r runner, query string) (*sql.Stmt, error) {
	if st, ok := s.stmts[query]; ok {
		return st, nil
	}
	st, err := r.PrepareContext(ctx, query)
	if err != nil {
		return nil, types.NewPersistenceError(s.vendor, "prepare", err)
	}
	if s.stmts == nil {
		s.stmts = make(map[string]*sql.Stmt)
	}
	s.stmts[query] = st
	return st, nil
}

// Query executes a query immediately. Pending batch statements flush first so
// the query observes their effects.
func (s *Session) Query(ctx context.Context, query string, args ...any) (types.Rows, error) {
	if _, err := s.Flush(ctx); err != nil {
		return nil, err
	}
	r, err := s.runner(ctx)
	if err != nil {
		return nil, err
	}

	if s.mode == types.ModeReuse {
		st, err := s.statement(ctx, r, query)
		if err != nil {
			return nil, err
		}
		rows, err := st.QueryContext(ctx, args...)
		if err != nil {
			return nil, types.NewPersistenceError(s.vendor, "query", err)
		}
		return types.NewRowsFromSQL(rows), nil
	}

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.NewPersistenceError(s.vendor, "query", err)
	}
	return types.NewRowsFromSQL(rows), nil
}

// QueryRow executes a single-row query immediately. Errors defer to Scan and
// Err on the returned row.
func (s *Session) QueryRow(ctx context.Context, query string, args ...any) types.Row {
	if _, err := s.Flush(ctx); err != nil {
		return types.NewRowFromError(err)
	}
	r, err := s.runner(ctx)
	if err != nil {
		return types.NewRowFromError(err)
	}

	if s.mode == types.ModeReuse {
		st, err := s.statement(ctx, r, query)
		if err != nil {
			return types.NewRowFromError(err)
		}
		return types.NewRowFromSQL(st.QueryRowContext(ctx, args...))
	}

	return types.NewRowFromSQL(r.QueryRowContext(ctx, query, args...))
}

// Exec executes a statement. In ModeBatch the statement is buffered and a
// PendingResult returned; real results come from Flush.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.closed {
		return nil, types.ErrSessionClosed
	}

	if s.mode == types.ModeBatch {
		s.batch = append(s.batch, bufferedStatement{query: query, args: args})
		s.dirty = true
		return types.PendingResult{}, nil
	}

	r, err := s.runner(ctx)
	if err != nil {
		return nil, err
	}

	var res sql.Result
	if s.mode == types.ModeReuse {
		st, err := s.statement(ctx, r, query)
		if err != nil {
			return nil, err
		}
		res, err = st.ExecContext(ctx, args...)
		if err != nil {
			return nil, types.NewPersistenceError(s.vendor, "exec", err)
		}
	} else {
		res, err = r.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, types.NewPersistenceError(s.vendor, "exec", err)
		}
	}
	s.dirty = true
	return res, nil
}

// Flush executes buffered batch statements in order and clears the buffer.
func (s *Session) Flush(ctx context.Context) ([]sql.Result, error) {
	if len(s.batch) == 0 {
		return nil, nil
	}
	r, err := s.runner(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]sql.Result, 0, len(s.batch))
	for _, stmt := range s.batch {
		res, err := r.ExecContext(ctx, stmt.query, stmt.args...)
		if err != nil {
			return results, types.NewPersistenceError(s.vendor, "flush", err)
		}
		results = append(results, res)
	}
	s.batch = nil
	return results, nil
}

// Commit flushes buffered work and commits the session's own transaction.
// When the transaction is external the flush is the whole effect; the unit of
// work commits the connection. Without force, a session that executed no
// writes skips the physical commit.
func (s *Session) Commit(ctx context.Context, force bool) error {
	if s.closed {
		return types.ErrSessionClosed
	}
	if _, err := s.Flush(ctx); err != nil {
		return err
	}
	s.closeStatements()

	if s.external {
		return nil
	}
	if s.tx == nil || (!s.dirty && !force) {
		return nil
	}

	err := s.tx.Commit()
	s.tx = nil
	s.dirty = false
	if err != nil {
		return types.NewPersistenceError(s.vendor, "commit", err)
	}
	s.log.Debug().Msg("Session committed")
	return nil
}

// Rollback discards buffered work and rolls back the session's own
// transaction. External transactions are left to the unit of work.
func (s *Session) Rollback(_ context.Context) error {
	if s.closed {
		return types.ErrSessionClosed
	}
	s.batch = nil
	s.closeStatements()

	if s.external {
		return nil
	}
	if s.tx == nil {
		return nil
	}

	err := s.tx.Rollback()
	s.tx = nil
	s.dirty = false
	if err != nil {
		return types.NewPersistenceError(s.vendor, "rollback", err)
	}
	s.log.Debug().Msg("Session rolled back")
	return nil
}

// Close releases the session. An unmanaged session with an open transaction
// rolls it back; engines require an explicit commit or rollback before the
// connection is returned. Close is idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.batch = nil
	s.closeStatements()

	if s.external || s.tx == nil {
		s.log.Debug().Msg("Session closed")
		return nil
	}

	err := s.tx.Rollback()
	s.tx = nil
	if err != nil {
		return types.NewPersistenceError(s.vendor, "close", err)
	}
	s.log.Debug().Msg("Session closed")
	return nil
}

func (s *Session) closeStatements() {
	for query, st := range s.stmts {
		if err := st.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to close prepared statement")
		}
		delete(s.stmts, query)
	}
}

// String implements fmt.Stringer for log-friendly identity.
func (s *Session) String() string {
	return fmt.Sprintf("session[%s %s %s]", s.vendor, s.mode, s.id)
}
