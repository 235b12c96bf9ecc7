package postgresql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBuilderUsesDollarPlaceholders(t *testing.T) {
	query, args, err := QueryBuilder().
		Select("id", "name").
		From("users").
		Where("active = ?", true).
		Where("org_id = ?", 42).
		ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, name FROM users WHERE active = $1 AND org_id = $2", query)
	assert.Equal(t, []any{true, 42}, args)
}

func TestInsertBatchMultiRow(t *testing.T) {
	query, args, err := InsertBatch("users", []string{"id", "name"}, [][]any{
		{1, "alice"},
		{2, "bob"},
	})
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO users (id,name) VALUES ($1,$2),($3,$4)", query)
	assert.Equal(t, []any{1, "alice", 2, "bob"}, args)
}

func TestInsertBatchValidation(t *testing.T) {
	_, _, err := InsertBatch("users", []string{"id"}, nil)
	assert.Error(t, err)

	_, _, err = InsertBatch("users", []string{"id", "name"}, [][]any{{1}})
	assert.ErrorContains(t, err, "expected 2")
}
