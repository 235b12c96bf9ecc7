//nolint:revive // Package name "types" is intentionally generic to avoid circular imports.
package types

import (
	"database/sql"
	"errors"
)

// ErrResultPending is returned by PendingResult accessors. Batched statements
// have no result until the session flushes.
var ErrResultPending = errors.New("statement is buffered; result available after flush")

// PendingResult is the sql.Result returned by Exec on a ModeBatch session.
// The statement has only been buffered; real results are returned by Flush.
type PendingResult struct{}

var _ sql.Result = PendingResult{}

// LastInsertId always fails with ErrResultPending.
func (PendingResult) LastInsertId() (int64, error) {
	return 0, ErrResultPending
}

// RowsAffected always fails with ErrResultPending.
func (PendingResult) RowsAffected() (int64, error) {
	return 0, ErrResultPending
}
