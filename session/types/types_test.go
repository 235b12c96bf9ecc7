package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionModeValid(t *testing.T) {
	assert.True(t, ModeSimple.Valid())
	assert.True(t, ModeReuse.Valid())
	assert.True(t, ModeBatch.Valid())
	assert.False(t, ModeDefault.Valid())
	assert.False(t, ExecutionMode("streaming").Valid())
}

func TestParseExecutionMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ExecutionMode
		wantErr bool
	}{
		{name: "empty_is_default", input: "", want: ModeDefault},
		{name: "simple", input: "simple", want: ModeSimple},
		{name: "reuse", input: "reuse", want: ModeReuse},
		{name: "batch", input: "batch", want: ModeBatch},
		{name: "unknown", input: "bulk", wantErr: true},
		{name: "case_sensitive", input: "Simple", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExecutionMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPersistenceErrorNilPassthrough(t *testing.T) {
	assert.NoError(t, NewPersistenceError(PostgreSQL, "exec", nil))
}

func TestPersistenceErrorWrapping(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := NewPersistenceError(Oracle, "exec", cause)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "oracle")
	assert.Contains(t, err.Error(), "exec")

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, Oracle, pe.Vendor)
	assert.Equal(t, "exec", pe.Operation)
}

func TestDataAccessErrorWrapping(t *testing.T) {
	cause := errors.New("could not serialize access")
	err := NewDataAccessError(KindConcurrency, cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "concurrency")
}

func TestPendingResult(t *testing.T) {
	var res PendingResult

	_, err := res.LastInsertId()
	assert.ErrorIs(t, err, ErrResultPending)
	_, err = res.RowsAffected()
	assert.ErrorIs(t, err, ErrResultPending)
}

func TestNewRowFromError(t *testing.T) {
	cause := errors.New("no session available")
	row := NewRowFromError(cause)

	assert.ErrorIs(t, row.Err(), cause)
	var n int
	assert.ErrorIs(t, row.Scan(&n), cause)
}

func TestNewRowFromSQLNil(t *testing.T) {
	assert.Nil(t, NewRowFromSQL(nil))
}
