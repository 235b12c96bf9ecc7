package transaction

import "errors"

// Sentinel errors for unit-of-work lifecycle misuse.
// These can be used with errors.Is() for programmatic error checking.
var (
	// ErrNoUnitOfWork is returned when an operation requires an active unit
	// of work and the context carries none.
	ErrNoUnitOfWork = errors.New("no active unit of work in context")

	// ErrAlreadyActive is returned by Begin when the context already carries
	// a unit of work; suspend it first.
	ErrAlreadyActive = errors.New("a unit of work is already active; suspend it before beginning another")

	// ErrResourceAlreadyBound is returned when a resource key is bound twice
	// within the same unit of work.
	ErrResourceAlreadyBound = errors.New("resource already bound to this unit of work")

	// ErrResourceNotBound is returned when unbinding a key that has no bound
	// resource.
	ErrResourceNotBound = errors.New("resource is not bound to this unit of work")

	// ErrSynchronizationInactive is returned when registering a
	// synchronization on a unit of work that no longer accepts them.
	ErrSynchronizationInactive = errors.New("unit-of-work synchronization is not active")
)
