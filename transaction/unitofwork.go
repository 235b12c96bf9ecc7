// Package transaction provides an explicit unit-of-work context: a keyed
// resource registry with synchronization callbacks, plus a manager that drives
// the registry against a database/sql transaction.
//
// The unit of work replaces the ambient thread-local registry found in
// classic transaction managers with an explicit object carried through
// context.Context. Suspend and resume detach and reattach the registry view,
// so a unit of work may hop goroutines as long as only one goroutine drives
// it at a time.
package transaction

import (
	"context"
	"sync"

	"github.com/gaborage/go-session/logger"
)

// UnitOfWork coordinates one logical transaction boundary. It maps resource
// keys (typically a session factory or a connection source) to at most one
// bound resource each, and fans lifecycle events out to registered
// synchronizations.
//
// All registry mutation is serialized by an internal mutex; callbacks are
// invoked outside the lock so they may bind and unbind resources themselves.
type UnitOfWork struct {
	mu         sync.Mutex
	resources  map[any]any
	syncs      []Synchronization
	syncActive bool
	active     bool
	readOnly   bool
	suspended  bool
	log        logger.Logger
}

// NewUnitOfWork creates a unit of work with synchronization active and no
// physical transaction. Managers that own a physical transaction call
// MarkActualActive after starting it. A nil log is replaced with a no-op
// logger.
func NewUnitOfWork(log logger.Logger) *UnitOfWork {
	if log == nil {
		log = logger.Nop()
	}
	return &UnitOfWork{
		resources:  make(map[any]any),
		syncActive: true,
		log:        log,
	}
}

// MarkActualActive records that a physical transaction is (or is not) active
// for this unit of work. Synchronizations consult this through
// ActualTransactionActive before flushing on commit.
func (u *UnitOfWork) MarkActualActive(active bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.active = active
}

// SetReadOnly records the read-only flag passed to BeforeCommit callbacks.
func (u *UnitOfWork) SetReadOnly(readOnly bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.readOnly = readOnly
}

// ReadOnly reports whether the unit of work was started read-only.
func (u *UnitOfWork) ReadOnly() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.readOnly
}

// SynchronizationActive reports whether new synchronizations and resource
// bindings are accepted.
func (u *UnitOfWork) SynchronizationActive() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.syncActive
}

// ActualTransactionActive reports whether a physical transaction backs this
// unit of work.
func (u *UnitOfWork) ActualTransactionActive() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.active
}

// BindResource binds value under key. Binding an already-bound key fails with
// ErrResourceAlreadyBound.
func (u *UnitOfWork) BindResource(key, value any) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, bound := u.resources[key]; bound {
		return ErrResourceAlreadyBound
	}
	u.resources[key] = value
	return nil
}

// UnbindResource removes and returns the resource bound under key. Unbinding
// an unbound key fails with ErrResourceNotBound.
func (u *UnitOfWork) UnbindResource(key any) (any, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	value, bound := u.resources[key]
	if !bound {
		return nil, ErrResourceNotBound
	}
	delete(u.resources, key)
	return value, nil
}

// UnbindResourceIfPossible removes and returns the resource bound under key,
// or nil if none is bound. Completion callbacks use this form because another
// goroutine may already have unbound the entry.
func (u *UnitOfWork) UnbindResourceIfPossible(key any) any {
	u.mu.Lock()
	defer u.mu.Unlock()
	value := u.resources[key]
	delete(u.resources, key)
	return value
}

// Resource returns the resource bound under key, or nil.
func (u *UnitOfWork) Resource(key any) any {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.resources[key]
}

// HasResource reports whether a resource is bound under key.
func (u *UnitOfWork) HasResource(key any) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, bound := u.resources[key]
	return bound
}

// RegisterSynchronization adds s to the completion callback list. It fails
// with ErrSynchronizationInactive once completion has started.
func (u *UnitOfWork) RegisterSynchronization(s Synchronization) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.syncActive {
		return ErrSynchronizationInactive
	}
	u.syncs = append(u.syncs, s)
	return nil
}

// synchronizations returns a snapshot so callbacks run outside the lock.
func (u *UnitOfWork) synchronizations() []Synchronization {
	u.mu.Lock()
	defer u.mu.Unlock()
	snapshot := make([]Synchronization, len(u.syncs))
	copy(snapshot, u.syncs)
	return snapshot
}

// SuspendSynchronizations notifies every synchronization to detach its
// resources and marks the unit of work suspended.
func (u *UnitOfWork) SuspendSynchronizations() {
	for _, s := range u.synchronizations() {
		s.Suspend()
	}
	u.mu.Lock()
	u.suspended = true
	u.mu.Unlock()
}

// ResumeSynchronizations clears the suspended mark and notifies every
// synchronization to reattach its resources.
func (u *UnitOfWork) ResumeSynchronizations() {
	u.mu.Lock()
	u.suspended = false
	u.mu.Unlock()
	for _, s := range u.synchronizations() {
		s.Resume()
	}
}

// Suspended reports whether the unit of work is currently suspended.
func (u *UnitOfWork) Suspended() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.suspended
}

// BeforeCommit runs every synchronization's BeforeCommit. The first error
// stops the sequence and propagates; the manager then rolls back.
func (u *UnitOfWork) BeforeCommit(ctx context.Context, readOnly bool) error {
	for _, s := range u.synchronizations() {
		if err := s.BeforeCommit(ctx, readOnly); err != nil {
			return err
		}
	}
	return nil
}

// BeforeCompletion runs every synchronization's BeforeCompletion.
func (u *UnitOfWork) BeforeCompletion(ctx context.Context) {
	for _, s := range u.synchronizations() {
		s.BeforeCompletion(ctx)
	}
}

// AfterCompletion runs every synchronization's AfterCompletion with status and
// then retires the unit of work: synchronization deactivates and the callback
// list is cleared. A completed unit of work accepts no further registrations.
func (u *UnitOfWork) AfterCompletion(ctx context.Context, status Status) {
	snapshot := u.synchronizations()

	u.mu.Lock()
	u.syncActive = false
	u.active = false
	u.syncs = nil
	u.mu.Unlock()

	for _, s := range snapshot {
		s.AfterCompletion(ctx, status)
	}
}
