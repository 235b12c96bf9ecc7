package postgresql

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-session/session/types"
)

func pgFault(code string) *types.PersistenceError {
	return &types.PersistenceError{
		Vendor:    types.PostgreSQL,
		Operation: "exec",
		Err:       &pgconn.PgError{Code: code, Message: "server error"},
	}
}

func TestTranslateClassifiesSQLState(t *testing.T) {
	tests := []struct {
		name string
		code string
		kind types.DataAccessKind
	}{
		{name: "unique_violation", code: "23505", kind: types.KindIntegrity},
		{name: "foreign_key_violation", code: "23503", kind: types.KindIntegrity},
		{name: "serialization_failure", code: "40001", kind: types.KindConcurrency},
		{name: "deadlock_detected", code: "40P01", kind: types.KindConcurrency},
		{name: "connection_failure", code: "08006", kind: types.KindTransient},
		{name: "too_many_connections", code: "53300", kind: types.KindTransient},
		{name: "statement_timeout", code: "57014", kind: types.KindTransient},
		{name: "syntax_error", code: "42601", kind: types.KindGeneric},
		{name: "undefined_table", code: "42P01", kind: types.KindGeneric},
	}

	tr := NewTranslator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tr.Translate(pgFault(tt.code))
			require.Error(t, err)

			var dae *types.DataAccessError
			require.ErrorAs(t, err, &dae)
			assert.Equal(t, tt.kind, dae.Kind)

			// The original fault stays reachable for callers that need
			// the raw server error.
			var pgErr *pgconn.PgError
			assert.ErrorAs(t, err, &pgErr)
		})
	}
}

func TestTranslateIgnoresForeignFaults(t *testing.T) {
	tr := NewTranslator()

	assert.Nil(t, tr.Translate(nil))
	assert.Nil(t, tr.Translate(&types.PersistenceError{
		Vendor:    types.PostgreSQL,
		Operation: "exec",
		Err:       errors.New("driver: bad connection"),
	}))
}
