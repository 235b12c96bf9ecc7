package oracle

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
)

// QueryBuilder returns squirrel builders configured for Oracle colon-numbered
// placeholders.
func QueryBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Colon)
}

// InsertBatch composes a multi-row INSERT ALL for table. Oracle has no
// multi-VALUES insert, so rows become INSERT ALL ... INTO clauses with
// colon-numbered placeholders.
func InsertBatch(table string, columns []string, rows [][]any) (string, []any, error) {
	if len(rows) == 0 {
		return "", nil, fmt.Errorf("insert batch needs at least one row")
	}

	var sb strings.Builder
	args := make([]any, 0, len(rows)*len(columns))
	placeholder := 1

	sb.WriteString("INSERT ALL")
	for _, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("row has %d values, expected %d", len(row), len(columns))
		}
		sb.WriteString(" INTO ")
		sb.WriteString(table)
		sb.WriteString(" (")
		sb.WriteString(strings.Join(columns, ", "))
		sb.WriteString(") VALUES (")
		for i := range row {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, ":%d", placeholder)
			placeholder++
		}
		sb.WriteString(")")
		args = append(args, row...)
	}
	sb.WriteString(" SELECT 1 FROM dual")

	return sb.String(), args, nil
}
