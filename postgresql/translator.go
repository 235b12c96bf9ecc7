package postgresql

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gaborage/go-session/session/types"
)

// Translator maps PostgreSQL server errors into the generic data-access
// taxonomy using SQLSTATE classes.
type Translator struct{}

var _ types.Translator = (*Translator)(nil)

// NewTranslator returns the PostgreSQL fault translator.
func NewTranslator() *Translator {
	return &Translator{}
}

// Translate classifies pe by SQLSTATE class: 23 integrity, 40 concurrency,
// 08/53/57 transient, anything else generic. Non-PostgreSQL faults return
// nil so the caller propagates the original error.
func (t *Translator) Translate(pe *types.PersistenceError) error {
	var pgErr *pgconn.PgError
	if pe == nil || !errors.As(pe.Err, &pgErr) {
		return nil
	}

	kind := types.KindGeneric
	switch {
	case strings.HasPrefix(pgErr.Code, "23"):
		kind = types.KindIntegrity
	case strings.HasPrefix(pgErr.Code, "40"):
		kind = types.KindConcurrency
	case strings.HasPrefix(pgErr.Code, "08"),
		strings.HasPrefix(pgErr.Code, "53"),
		strings.HasPrefix(pgErr.Code, "57"):
		kind = types.KindTransient
	}

	return types.NewDataAccessError(kind, pe)
}
