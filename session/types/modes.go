//nolint:revive // Package name "types" is intentionally generic to avoid circular imports.
package types

import "fmt"

// ExecutionMode selects how a session executes statements. The mode is fixed
// when the session is opened and cannot change while the session is bound to
// an active unit of work.
type ExecutionMode string

const (
	// ModeDefault resolves to the factory's default execution mode.
	ModeDefault ExecutionMode = ""

	// ModeSimple executes every statement immediately with no reuse.
	ModeSimple ExecutionMode = "simple"

	// ModeReuse executes statements immediately but caches prepared
	// statements for the lifetime of the session.
	ModeReuse ExecutionMode = "reuse"

	// ModeBatch buffers write statements and executes them on Flush or
	// Commit, preserving order.
	ModeBatch ExecutionMode = "batch"
)

// Valid reports whether m is a concrete execution mode (not ModeDefault).
func (m ExecutionMode) Valid() bool {
	switch m {
	case ModeSimple, ModeReuse, ModeBatch:
		return true
	default:
		return false
	}
}

// ParseExecutionMode converts a configuration string into an ExecutionMode.
// The empty string maps to ModeDefault.
func ParseExecutionMode(s string) (ExecutionMode, error) {
	m := ExecutionMode(s)
	if m == ModeDefault || m.Valid() {
		return m, nil
	}
	return ModeDefault, fmt.Errorf("unknown execution mode: %q (supported: simple, reuse, batch)", s)
}
