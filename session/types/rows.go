package types

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// bufferedRows is an in-memory result set detached from any transaction.
type bufferedRows struct {
	columns []string
	values  [][]any
	idx     int
	current []any
	closed  bool
}

// BufferRows drains rows into memory and closes the source cursor, returning
// a Rows that stays readable after the backing transaction completes. Byte
// slices are copied because drivers reuse their scan buffers between rows.
func BufferRows(rows Rows) (Rows, error) {
	defer func() {
		_ = rows.Close()
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var values [][]any
	for rows.Next() {
		row := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range row {
			if b, ok := v.([]byte); ok {
				row[i] = append([]byte(nil), b...)
			}
		}
		values = append(values, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &bufferedRows{columns: columns, values: values}, nil
}

func (r *bufferedRows) Columns() ([]string, error) {
	return r.columns, nil
}

func (r *bufferedRows) Next() bool {
	if r.closed || r.idx >= len(r.values) {
		r.current = nil
		return false
	}
	r.current = r.values[r.idx]
	r.idx++
	return true
}

func (r *bufferedRows) Scan(dest ...any) error {
	if r.closed {
		return errors.New("rows are closed")
	}
	if r.current == nil {
		return errors.New("scan called without calling Next")
	}
	if len(dest) != len(r.current) {
		return fmt.Errorf("expected %d destination arguments in Scan, not %d", len(r.current), len(dest))
	}
	for i, v := range r.current {
		if err := convertAssign(dest[i], v); err != nil {
			return fmt.Errorf("scan error on column index %d, name %q: %w", i, r.columns[i], err)
		}
	}
	return nil
}

func (r *bufferedRows) Close() error {
	r.closed = true
	r.current = nil
	return nil
}

func (r *bufferedRows) Err() error {
	return nil
}

// bufferedRow is a single in-memory row. An absent row reports sql.ErrNoRows
// from Scan, matching database/sql single-row semantics.
type bufferedRow struct {
	columns []string
	values  []any
	exists  bool
}

// RowFromRows buffers the first row of rows and closes the cursor. Reading an
// empty result is not an error; the returned Row reports sql.ErrNoRows from
// Scan instead.
func RowFromRows(rows Rows) (Row, error) {
	buffered, err := BufferRows(rows)
	if err != nil {
		return nil, err
	}
	br := buffered.(*bufferedRows)
	if len(br.values) == 0 {
		return &bufferedRow{}, nil
	}
	return &bufferedRow{columns: br.columns, values: br.values[0], exists: true}, nil
}

func (r *bufferedRow) Scan(dest ...any) error {
	if !r.exists {
		return sql.ErrNoRows
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("expected %d destination arguments in Scan, not %d", len(r.values), len(dest))
	}
	for i, v := range r.values {
		if err := convertAssign(dest[i], v); err != nil {
			return fmt.Errorf("scan error on column index %d, name %q: %w", i, r.columns[i], err)
		}
	}
	return nil
}

func (r *bufferedRow) Err() error {
	return nil
}

// convertAssign copies src, a value previously scanned out of database/sql,
// into the destination pointer. It covers the conversions the sql package
// applies for concrete destinations: direct assignment, numeric widening,
// string/[]byte interchange, string parsing and sql.Scanner delegation.
func convertAssign(dest, src any) error {
	if scanner, ok := dest.(sql.Scanner); ok {
		return scanner.Scan(src)
	}

	switch d := dest.(type) {
	case *any:
		*d = src
		return nil
	case *string:
		switch s := src.(type) {
		case string:
			*d = s
			return nil
		case []byte:
			*d = string(s)
			return nil
		}
	case *[]byte:
		switch s := src.(type) {
		case []byte:
			*d = s
			return nil
		case string:
			*d = []byte(s)
			return nil
		case nil:
			*d = nil
			return nil
		}
	case *time.Time:
		if s, ok := src.(time.Time); ok {
			*d = s
			return nil
		}
	case *bool:
		if s, ok := src.(bool); ok {
			*d = s
			return nil
		}
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("destination must be a non-nil pointer, not %T", dest)
	}
	elem := dv.Elem()

	if src == nil {
		if elem.Kind() == reflect.Pointer {
			elem.Set(reflect.Zero(elem.Type()))
			return nil
		}
		return fmt.Errorf("converting NULL to %s is unsupported", elem.Type())
	}

	if elem.Kind() == reflect.Pointer {
		// Nullable destinations like **int64 allocate through the elem type.
		target := reflect.New(elem.Type().Elem())
		if err := convertAssign(target.Interface(), src); err != nil {
			return err
		}
		elem.Set(target)
		return nil
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(elem.Type()) {
		elem.Set(sv)
		return nil
	}
	if isNumeric(sv.Kind()) && isNumeric(elem.Kind()) {
		elem.Set(sv.Convert(elem.Type()))
		return nil
	}

	switch s := src.(type) {
	case string:
		return parseInto(s, elem)
	case []byte:
		return parseInto(string(s), elem)
	}
	return fmt.Errorf("unsupported Scan, storing %T into %T", src, dest)
}

func parseInto(s string, elem reflect.Value) error {
	switch elem.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, elem.Type().Bits())
		if err != nil {
			return err
		}
		elem.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, elem.Type().Bits())
		if err != nil {
			return err
		}
		elem.SetUint(n)
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, elem.Type().Bits())
		if err != nil {
			return err
		}
		elem.SetFloat(f)
		return nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		elem.SetBool(b)
		return nil
	default:
		return fmt.Errorf("unsupported Scan, storing string into %s", elem.Type())
	}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
