package transaction

import "context"

// Status reports the outcome of a completed unit of work to its
// synchronizations.
type Status int

const (
	// StatusCommitted means the physical transaction committed successfully.
	StatusCommitted Status = iota

	// StatusRolledBack means the physical transaction was rolled back,
	// including cancellation surfacing as a rollback.
	StatusRolledBack

	// StatusUnknown means completion finished in an indeterminate state,
	// e.g. the physical commit itself failed.
	StatusUnknown
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusCommitted:
		return "committed"
	case StatusRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Synchronization receives unit-of-work lifecycle callbacks. Implementations
// must tolerate BeforeCompletion and AfterCompletion being invoked from a
// different goroutine than the one that registered them.
//
// Callback order on commit: BeforeCommit, BeforeCompletion, physical commit,
// AfterCompletion. On rollback: BeforeCompletion, physical rollback,
// AfterCompletion. Suspend and Resume may occur any number of times in
// between, always pairwise.
type Synchronization interface {
	// Suspend detaches the synchronization's resources from the unit of
	// work's registry. It must not release them.
	Suspend()

	// Resume reattaches resources detached by Suspend.
	Resume()

	// BeforeCommit runs before the physical commit while the transaction is
	// still active. Errors abort the commit and propagate to the caller.
	BeforeCommit(ctx context.Context, readOnly bool) error

	// BeforeCompletion runs before the physical commit or rollback,
	// after BeforeCommit.
	BeforeCompletion(ctx context.Context)

	// AfterCompletion runs after the physical transaction finished with the
	// given status, regardless of outcome.
	AfterCompletion(ctx context.Context, status Status)
}
