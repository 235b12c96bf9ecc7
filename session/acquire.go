package session

import (
	"context"
	"fmt"

	"github.com/gaborage/go-session/logger"
	"github.com/gaborage/go-session/session/types"
	"github.com/gaborage/go-session/transaction"
)

// Acquire returns a session for factory in the requested execution mode.
//
// If the current unit of work already binds a holder for factory, its session
// is returned and the reference count incremented; requesting a different mode
// than the bound holder fails with types.ErrModeMismatch and leaves the holder
// untouched. Otherwise a new session is opened and, when unit-of-work
// synchronization is active and the factory is managed, bound and registered
// for completion callbacks. Outside any unit of work the new session is
// returned unregistered and the caller owns its lifecycle through Release.
//
// ModeDefault resolves to the factory's default mode. A nil log is replaced
// with a no-op logger.
func Acquire(ctx context.Context, factory types.Factory, mode types.ExecutionMode, translator types.Translator, log logger.Logger) (types.Session, error) {
	if factory == nil {
		return nil, types.ErrNoFactory
	}
	if log == nil {
		log = logger.Nop()
	}
	if mode == types.ModeDefault {
		mode = factory.DefaultMode()
	}
	if !mode.Valid() {
		return nil, types.ErrNoMode
	}

	uow, _ := transaction.FromContext(ctx)

	if sess := boundSession(uow, factory, mode, log); sess != nil {
		return sess, nil
	}
	if uow != nil {
		if h := holderFor(uow, factory); h != nil && h.Synchronized() && h.Mode() != mode {
			return nil, fmt.Errorf("%w: unit of work holds a %s session, %s requested",
				types.ErrModeMismatch, h.Mode(), mode)
		}
	}

	log.Debug().Msg("Creating a new session")
	sess, err := factory.OpenSession(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	if err := registerHolder(ctx, uow, factory, mode, translator, sess, log); err != nil {
		if closeErr := sess.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close session after registration failure")
		}
		return nil, err
	}

	return sess, nil
}

// boundSession returns the already-bound session when the holder matches the
// requested mode, after incrementing its reference count.
func boundSession(uow *transaction.UnitOfWork, factory types.Factory, mode types.ExecutionMode, log logger.Logger) types.Session {
	h := holderFor(uow, factory)
	if h == nil || !h.Synchronized() || h.Mode() != mode {
		return nil
	}
	h.Request()
	log.Debug().Msg("Fetched session from current unit of work")
	return h.Session()
}

// registerHolder binds a holder for sess and registers its completion
// synchronization when a unit of work with active synchronization exists and
// the factory participates.
func registerHolder(ctx context.Context, uow *transaction.UnitOfWork, factory types.Factory, mode types.ExecutionMode, translator types.Translator, sess types.Session, log logger.Logger) error {
	if uow == nil || !uow.SynchronizationActive() {
		log.Debug().Msg("Session not registered; unit-of-work synchronization is not active")
		return nil
	}

	if managed, ok := factory.(types.Managed); ok && managed.ManagedByUnitOfWork() {
		log.Debug().Msg("Registering unit-of-work synchronization for session")
		h := NewHolder(sess, mode, translator)
		if err := uow.BindResource(factory, h); err != nil {
			return fmt.Errorf("failed to bind session holder: %w", err)
		}
		if err := uow.RegisterSynchronization(newSynchronization(h, factory, uow, log)); err != nil {
			uow.UnbindResourceIfPossible(factory)
			return fmt.Errorf("failed to register synchronization: %w", err)
		}
		h.SetSynchronized(true)
		h.Request()
		return nil
	}

	if uow.HasResource(factory.ConnectionSource()) {
		// Another mechanism already owns commit/rollback on this connection
		// source; it closes over the session's work, so stay unregistered.
		log.Debug().Msg("Session not registered; connection source is transactional through another mechanism")
		return nil
	}

	return types.ErrFactoryNotManaged
}

// Release returns a session obtained from Acquire. A session bound to the
// current unit of work only has its reference count decremented; closing is
// deferred to the completion callbacks. An unbound session is closed
// immediately.
func Release(ctx context.Context, sess types.Session, factory types.Factory, log logger.Logger) error {
	if sess == nil {
		return types.ErrNoSession
	}
	if factory == nil {
		return types.ErrNoFactory
	}
	if log == nil {
		log = logger.Nop()
	}

	uow, _ := transaction.FromContext(ctx)
	if h := holderFor(uow, factory); h != nil && h.Session() == sess {
		log.Debug().Msg("Releasing managed session")
		h.Released()
		return nil
	}

	log.Debug().Msg("Closing unmanaged session")
	if err := sess.Close(); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// IsManaged reports whether sess is the session bound for factory in the
// current unit of work. Operations on a session that is not managed must
// force-commit before release.
func IsManaged(ctx context.Context, sess types.Session, factory types.Factory) bool {
	if sess == nil || factory == nil {
		return false
	}
	uow, _ := transaction.FromContext(ctx)
	h := holderFor(uow, factory)
	return h != nil && h.Session() == sess
}

func holderFor(uow *transaction.UnitOfWork, factory types.Factory) *Holder {
	if uow == nil {
		return nil
	}
	h, _ := uow.Resource(factory).(*Holder)
	return h
}
