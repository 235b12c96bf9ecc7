//nolint:revive // Package name "types" is intentionally generic to avoid circular imports.
package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for invalid-argument and incompatible-state failures across
// the session entry points. These can be used with errors.Is() for
// programmatic error checking.
var (
	// ErrNoFactory is returned when a session factory is required but nil.
	ErrNoFactory = errors.New("no session factory specified")

	// ErrNoMode is returned when an execution mode is required but missing
	// and the factory declares no default.
	ErrNoMode = errors.New("no execution mode specified")

	// ErrNoSession is returned when a session is required but nil.
	ErrNoSession = errors.New("no session specified")

	// ErrModeMismatch is returned when an acquisition requests a different
	// execution mode than the holder already bound to the unit of work.
	ErrModeMismatch = errors.New("cannot change the execution mode during an active unit of work")

	// ErrFactoryNotManaged is returned when a factory that does not defer its
	// transactions to the unit of work is used while synchronization is active.
	ErrFactoryNotManaged = errors.New("session factory must be managed by the unit of work to participate in synchronization")

	// ErrManualLifecycle is returned by Template when commit, rollback or
	// close is called directly; the unit of work owns the session lifecycle.
	ErrManualLifecycle = errors.New("manual lifecycle calls are not allowed on a managed session")

	// ErrSessionClosed is returned when an operation is attempted on a
	// session that has already been closed.
	ErrSessionClosed = errors.New("session is closed")
)

// PersistenceError wraps an engine-level failure raised by a session
// operation. It records the vendor and the operation so a Translator can map
// it into the generic data-access taxonomy.
type PersistenceError struct {
	Vendor    Vendor
	Operation string
	Err       error
}

// NewPersistenceError wraps err as a PersistenceError. It returns nil when err
// is nil so call sites can wrap unconditionally.
func NewPersistenceError(vendor Vendor, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Vendor: vendor, Operation: operation, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Vendor, e.Operation, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DataAccessKind classifies a translated persistence failure.
type DataAccessKind string

const (
	// KindTransient marks failures that may succeed on retry (connection
	// loss, timeouts, serialization aborts that drivers report as retryable).
	KindTransient DataAccessKind = "transient"

	// KindIntegrity marks constraint violations (unique, foreign key, check).
	KindIntegrity DataAccessKind = "integrity"

	// KindConcurrency marks lock conflicts and serialization failures.
	KindConcurrency DataAccessKind = "concurrency"

	// KindGeneric marks translated failures with no finer classification.
	KindGeneric DataAccessKind = "generic"
)

// DataAccessError is the vendor-neutral form of a persistence failure,
// produced by a Translator.
type DataAccessError struct {
	Kind DataAccessKind
	Err  error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("%s data access failure: %v", e.Kind, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// NewDataAccessError builds a DataAccessError of the given kind around err.
func NewDataAccessError(kind DataAccessKind, err error) *DataAccessError {
	return &DataAccessError{Kind: kind, Err: err}
}
