package postgresql

import (
	"fmt"

	"github.com/Masterminds/squirrel"
)

// QueryBuilder returns squirrel builders configured for PostgreSQL
// dollar-numbered placeholders.
func QueryBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// InsertBatch composes a multi-row INSERT for table. Batch sessions buffer
// the resulting statement once instead of one statement per row.
func InsertBatch(table string, columns []string, rows [][]any) (string, []any, error) {
	if len(rows) == 0 {
		return "", nil, fmt.Errorf("insert batch needs at least one row")
	}
	builder := QueryBuilder().Insert(table).Columns(columns...)
	for _, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("row has %d values, expected %d", len(row), len(columns))
		}
		builder = builder.Values(row...)
	}
	return builder.ToSql()
}
