package transaction

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gaborage/go-session/logger"
)

// TxResource is the physical transaction a unit of work holds on one
// connection source. Sessions opened while it is bound execute on Tx and treat
// their own commit and rollback as no-ops against the connection.
type TxResource struct {
	Tx *sql.Tx
}

// Manager drives unit-of-work lifecycles over a single *sql.DB. It binds the
// physical transaction under the pool's identity so managed session factories
// on the same pool can discover and join it.
type Manager struct {
	db     *sql.DB
	source any
	log    logger.Logger
}

// NewManager creates a manager over db. The db pointer itself is the
// connection-source key; factories over the same *sql.DB participate in the
// manager's transactions. A nil log is replaced with a no-op logger.
func NewManager(db *sql.DB, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{db: db, source: db, log: log}
}

// Source returns the connection-source key the manager binds its transaction
// under.
func (m *Manager) Source() any {
	return m.source
}

// Begin starts a new unit of work backed by a physical transaction and
// returns a derived context carrying it. Beginning inside an active unit of
// work fails with ErrAlreadyActive; suspend first.
func (m *Manager) Begin(ctx context.Context, opts *sql.TxOptions) (context.Context, error) {
	if _, ok := FromContext(ctx); ok {
		return ctx, ErrAlreadyActive
	}

	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		return ctx, fmt.Errorf("failed to begin transaction: %w", err)
	}

	u := NewUnitOfWork(m.log)
	u.MarkActualActive(true)
	if opts != nil {
		u.SetReadOnly(opts.ReadOnly)
	}
	if err := u.BindResource(m.source, &TxResource{Tx: tx}); err != nil {
		// Fresh unit of work; binding cannot collide unless misused.
		_ = tx.Rollback()
		return ctx, err
	}

	m.log.Debug().Msg("Beginning unit of work")
	return WithUnitOfWork(ctx, u), nil
}

// Commit completes the unit of work carried by ctx: synchronizations flush
// through BeforeCommit, BeforeCompletion runs, the physical transaction
// commits, then AfterCompletion reports the outcome. A BeforeCommit failure
// rolls the physical transaction back and propagates.
func (m *Manager) Commit(ctx context.Context) error {
	u, res, err := m.current(ctx)
	if err != nil {
		return err
	}

	if err := u.BeforeCommit(ctx, u.ReadOnly()); err != nil {
		m.log.Debug().Err(err).Msg("Unit of work flush failed; rolling back")
		u.BeforeCompletion(ctx)
		u.UnbindResourceIfPossible(m.source)
		if rbErr := res.Tx.Rollback(); rbErr != nil {
			m.log.Error().Err(rbErr).Msg("Rollback after failed flush also failed")
		}
		u.AfterCompletion(ctx, StatusRolledBack)
		return err
	}

	u.BeforeCompletion(ctx)
	u.UnbindResourceIfPossible(m.source)

	if err := res.Tx.Commit(); err != nil {
		u.AfterCompletion(ctx, StatusUnknown)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.AfterCompletion(ctx, StatusCommitted)
	m.log.Debug().Msg("Unit of work committed")
	return nil
}

// Rollback completes the unit of work carried by ctx with a rollback outcome.
// A cancelled unit of work goes through this same path.
func (m *Manager) Rollback(ctx context.Context) error {
	u, res, err := m.current(ctx)
	if err != nil {
		return err
	}

	u.BeforeCompletion(ctx)
	u.UnbindResourceIfPossible(m.source)

	rbErr := res.Tx.Rollback()
	u.AfterCompletion(ctx, StatusRolledBack)
	if rbErr != nil {
		return fmt.Errorf("failed to roll back transaction: %w", rbErr)
	}
	m.log.Debug().Msg("Unit of work rolled back")
	return nil
}

// Suspension holds a suspended unit of work so it can be resumed later,
// possibly on another goroutine.
type Suspension struct {
	uow *UnitOfWork
}

// Suspend detaches the current unit of work: every synchronization unbinds its
// resources and the returned context no longer carries the unit of work. The
// physical transaction stays open inside the returned Suspension.
func (m *Manager) Suspend(ctx context.Context) (context.Context, *Suspension, error) {
	u, ok := FromContext(ctx)
	if !ok {
		return ctx, nil, ErrNoUnitOfWork
	}
	u.SuspendSynchronizations()
	m.log.Debug().Msg("Unit of work suspended")
	return WithUnitOfWork(ctx, nil), &Suspension{uow: u}, nil
}

// Resume reattaches a suspended unit of work to ctx and rebinds every
// synchronization's resources. The same holders, and therefore the same
// sessions, become visible again.
func (m *Manager) Resume(ctx context.Context, s *Suspension) (context.Context, error) {
	if s == nil || s.uow == nil {
		return ctx, ErrNoUnitOfWork
	}
	if _, ok := FromContext(ctx); ok {
		return ctx, ErrAlreadyActive
	}
	s.uow.ResumeSynchronizations()
	m.log.Debug().Msg("Unit of work resumed")
	return WithUnitOfWork(ctx, s.uow), nil
}

// Do runs fn inside a unit of work: Begin, fn, then Commit, or Rollback when
// fn fails. The fn error wins over a rollback error, which is only logged.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	txCtx, err := m.Begin(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(txCtx); err != nil {
		if rbErr := m.Rollback(txCtx); rbErr != nil {
			m.log.Error().Err(rbErr).Msg("Rollback failed after unit-of-work error")
		}
		return err
	}

	return m.Commit(txCtx)
}

func (m *Manager) current(ctx context.Context) (*UnitOfWork, *TxResource, error) {
	u, ok := FromContext(ctx)
	if !ok {
		return nil, nil, ErrNoUnitOfWork
	}
	res, ok := u.Resource(m.source).(*TxResource)
	if !ok || res == nil {
		return nil, nil, ErrResourceNotBound
	}
	return u, res, nil
}
