package oracle

import (
	"errors"

	"github.com/sijms/go-ora/v2/network"

	"github.com/gaborage/go-session/session/types"
)

// Translator maps Oracle server errors into the generic data-access taxonomy
// using ORA error codes.
type Translator struct{}

var _ types.Translator = (*Translator)(nil)

// NewTranslator returns the Oracle fault translator.
func NewTranslator() *Translator {
	return &Translator{}
}

// Translate classifies pe by ORA code. Non-Oracle faults return nil so the
// caller propagates the original error.
func (t *Translator) Translate(pe *types.PersistenceError) error {
	var oraErr *network.OracleError
	if pe == nil || !errors.As(pe.Err, &oraErr) {
		return nil
	}

	kind := types.KindGeneric
	switch oraErr.ErrCode {
	case 1, 1400, 2290, 2291, 2292:
		// unique constraint, not null, check, foreign key violations
		kind = types.KindIntegrity
	case 60, 8177:
		// deadlock, serialization failure
		kind = types.KindConcurrency
	case 1033, 1034, 3113, 3114, 12170, 12541:
		// instance unavailable or connection lost
		kind = types.KindTransient
	}

	return types.NewDataAccessError(kind, pe)
}
