package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gaborage/go-session/logger"
	"github.com/gaborage/go-session/session/types"
)

// Template is a thread-safe session that works with unit-of-work management
// to ensure the session actually used is the one bound to the current unit of
// work. Every operation acquires a session through the acquisition protocol,
// delegates, force-commits when the session is not unit-of-work managed, and
// always releases. It is an explicit decorator over the full session surface,
// with no dynamic dispatch.
//
// Because Template holds no session state, one instance can be shared by all
// callers over the same factory.
type Template struct {
	factory    types.Factory
	mode       types.ExecutionMode
	translator types.Translator
	log        logger.Logger
}

var _ types.Session = (*Template)(nil)

// NewTemplate creates a template over factory. ModeDefault resolves to the
// factory's default mode; translator may be nil to propagate persistence
// faults verbatim; a nil log is replaced with a no-op logger.
func NewTemplate(factory types.Factory, mode types.ExecutionMode, translator types.Translator, log logger.Logger) (*Template, error) {
	if factory == nil {
		return nil, types.ErrNoFactory
	}
	if mode == types.ModeDefault {
		mode = factory.DefaultMode()
	}
	if !mode.Valid() {
		return nil, types.ErrNoMode
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Template{factory: factory, mode: mode, translator: translator, log: log}, nil
}

// Factory returns the session factory the template operates over.
func (t *Template) Factory() types.Factory {
	return t.factory
}

// Mode returns the execution mode fixed at construction.
func (t *Template) Mode() types.ExecutionMode {
	return t.mode
}

// Query runs a query through the managed session. When the session is not
// unit-of-work managed the result set is buffered in memory before the
// force-commit and release, so the returned cursor stays readable. Managed
// callers get the live cursor and must consume it inside the unit of work.
func (t *Template) Query(ctx context.Context, query string, args ...any) (types.Rows, error) {
	var rows types.Rows
	err := t.execute(ctx, func(ctx context.Context, s types.Session) error {
		var err error
		rows, err = s.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		if !IsManaged(ctx, s, t.factory) {
			rows, err = types.BufferRows(rows)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// QueryRow runs a single-row query through the managed session. The row is
// buffered before the session is released; acquisition and persistence
// failures pass fault translation and surface through the returned row's Err
// and Scan.
func (t *Template) QueryRow(ctx context.Context, query string, args ...any) types.Row {
	var row types.Row
	err := t.execute(ctx, func(ctx context.Context, s types.Session) error {
		rows, err := s.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		row, err = types.RowFromRows(rows)
		return err
	})
	if err != nil {
		return types.NewRowFromError(err)
	}
	return row
}

// Exec runs a statement through the managed session.
func (t *Template) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := t.execute(ctx, func(ctx context.Context, s types.Session) error {
		var err error
		res, err = s.Exec(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Flush executes buffered batch statements through the managed session.
func (t *Template) Flush(ctx context.Context) ([]sql.Result, error) {
	var results []sql.Result
	err := t.execute(ctx, func(ctx context.Context, s types.Session) error {
		var err error
		results, err = s.Flush(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Commit is not allowed on a managed template; the unit of work owns the
// session lifecycle.
func (t *Template) Commit(context.Context, bool) error {
	return fmt.Errorf("%w: commit", types.ErrManualLifecycle)
}

// Rollback is not allowed on a managed template.
func (t *Template) Rollback(context.Context) error {
	return fmt.Errorf("%w: rollback", types.ErrManualLifecycle)
}

// Close is not allowed on a managed template.
func (t *Template) Close() error {
	return fmt.Errorf("%w: close", types.ErrManualLifecycle)
}

// execute is the fixed operation envelope: acquire, delegate, force-commit if
// the session is not participating in a unit of work, translate persistence
// faults, and release on every exit path.
func (t *Template) execute(ctx context.Context, fn func(ctx context.Context, s types.Session) error) error {
	sess, err := Acquire(ctx, t.factory, t.mode, t.translator, t.log)
	if err != nil {
		return err
	}

	released := false
	defer func() {
		if !released {
			if relErr := Release(ctx, sess, t.factory, t.log); relErr != nil {
				t.log.Error().Err(relErr).Msg("Failed to release session")
			}
		}
	}()

	err = fn(ctx, sess)
	if err == nil && !IsManaged(ctx, sess, t.factory) {
		// Force commit even on non-dirty sessions because some engines
		// require a commit/rollback before calling close.
		err = sess.Commit(ctx, true)
	}
	if err == nil {
		return nil
	}

	var pe *types.PersistenceError
	if t.translator != nil && errors.As(err, &pe) {
		// Close the session before translating to avoid a deadlock when the
		// translator itself needs a connection.
		if relErr := Release(ctx, sess, t.factory, t.log); relErr != nil {
			t.log.Error().Err(relErr).Msg("Failed to release session")
		}
		released = true
		if translated := t.translator.Translate(pe); translated != nil {
			return translated
		}
	}
	return err
}
