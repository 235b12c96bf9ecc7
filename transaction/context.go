package transaction

import "context"

// uowKey is the context key carrying the active unit of work.
type uowKey struct{}

// WithUnitOfWork returns a context carrying u. Passing nil detaches any unit
// of work from the returned context.
func WithUnitOfWork(ctx context.Context, u *UnitOfWork) context.Context {
	return context.WithValue(ctx, uowKey{}, u)
}

// FromContext returns the unit of work carried by ctx, if any. A suspended
// unit of work is never returned from the context it was suspended on.
func FromContext(ctx context.Context) (*UnitOfWork, bool) {
	u, ok := ctx.Value(uowKey{}).(*UnitOfWork)
	if !ok || u == nil {
		return nil, false
	}
	if u.Suspended() {
		return nil, false
	}
	return u, true
}

// SynchronizationActive reports whether ctx carries a unit of work that still
// accepts synchronizations.
func SynchronizationActive(ctx context.Context) bool {
	u, ok := FromContext(ctx)
	return ok && u.SynchronizationActive()
}

// ActualTransactionActive reports whether ctx carries a unit of work backed by
// a physical transaction.
func ActualTransactionActive(ctx context.Context) bool {
	u, ok := FromContext(ctx)
	return ok && u.ActualTransactionActive()
}

// TxFor returns the physical transaction bound under source in the current
// unit of work, if one exists. Session factories use this to attach sessions
// to the transaction the unit of work already owns on their connection pool.
func TxFor(ctx context.Context, source any) (*TxResource, bool) {
	u, ok := FromContext(ctx)
	if !ok {
		return nil, false
	}
	res, ok := u.Resource(source).(*TxResource)
	if !ok || res == nil {
		return nil, false
	}
	return res, true
}
