package session

import (
	"context"
	"errors"
	"sync"

	"github.com/gaborage/go-session/logger"
	"github.com/gaborage/go-session/session/types"
	"github.com/gaborage/go-session/transaction"
)

// synchronization retires a holder when its unit of work completes. It cleans
// the registry entry and commits and closes the session; the physical
// connection's commit or rollback is owned by the unit-of-work manager.
//
// The close path runs exactly once across BeforeCompletion and
// AfterCompletion even when they fire on different goroutines; holderActive
// and the holder's own close guard enforce that.
type synchronization struct {
	mu           sync.Mutex
	holder       *Holder
	factory      types.Factory
	uow          *transaction.UnitOfWork
	log          logger.Logger
	holderActive bool
}

func newSynchronization(holder *Holder, factory types.Factory, uow *transaction.UnitOfWork, log logger.Logger) *synchronization {
	return &synchronization{
		holder:       holder,
		factory:      factory,
		uow:          uow,
		log:          log,
		holderActive: true,
	}
}

func (s *synchronization) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holderActive
}

// retire flips holderActive exactly once. It returns false when another
// callback already retired the holder.
func (s *synchronization) retire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.holderActive {
		return false
	}
	s.holderActive = false
	return true
}

// Suspend unbinds the holder so the suspended unit of work leaves no registry
// entry behind. The session stays open.
func (s *synchronization) Suspend() {
	if s.active() {
		s.log.Debug().Msg("Unit of work suspending session")
		s.uow.UnbindResourceIfPossible(s.factory)
	}
}

// Resume rebinds the holder suspended earlier.
func (s *synchronization) Resume() {
	if s.active() {
		s.log.Debug().Msg("Unit of work resuming session")
		if err := s.uow.BindResource(s.factory, s.holder); err != nil &&
			!errors.Is(err, transaction.ErrResourceAlreadyBound) {
			s.log.Error().Err(err).Msg("Failed to rebind session holder on resume")
		}
	}
}

// BeforeCommit flushes the session while the physical transaction is still
// active: buffered batch statements execute and caches clear before the outer
// commit. The session-level commit is a no-op against the connection itself.
// Persistence faults are translated when the holder carries a translator.
func (s *synchronization) BeforeCommit(ctx context.Context, _ bool) error {
	if !s.uow.ActualTransactionActive() {
		return nil
	}

	s.log.Debug().Msg("Unit of work committing session")
	err := s.holder.Session().Commit(ctx, false)
	if err == nil {
		return nil
	}

	var pe *types.PersistenceError
	if s.holder.Translator() != nil && errors.As(err, &pe) {
		if translated := s.holder.Translator().Translate(pe); translated != nil {
			return translated
		}
	}
	return err
}

// BeforeCompletion closes the session early when no acquisition is still
// outstanding. Closing now, on the completing goroutine, avoids relying on
// AfterCompletion which may run on a different goroutine. Deregistration
// happens before close so a close failure cannot leak the registry entry.
func (s *synchronization) BeforeCompletion(_ context.Context) {
	if s.holder.Referenced() {
		return
	}
	if !s.retire() {
		return
	}
	s.log.Debug().Msg("Unit of work deregistering session")
	s.uow.UnbindResourceIfPossible(s.factory)
	s.log.Debug().Msg("Unit of work closing session")
	if err := s.holder.CloseSession(); err != nil {
		s.log.Error().Err(err).Msg("Failed to close session on completion")
	}
}

// AfterCompletion retires the holder if BeforeCompletion did not, which
// happens when references were still outstanding or the callbacks raced
// across goroutines. Unbinding tolerates an already-removed entry. The holder
// is reset last so its state is clean if the unit of work is re-entered.
func (s *synchronization) AfterCompletion(_ context.Context, _ transaction.Status) {
	if s.retire() {
		s.log.Debug().Msg("Unit of work deregistering session")
		s.uow.UnbindResourceIfPossible(s.factory)
		s.log.Debug().Msg("Unit of work closing session")
		if err := s.holder.CloseSession(); err != nil {
			s.log.Error().Err(err).Msg("Failed to close session on completion")
		}
	}
	s.holder.Reset()
}
