package session

import (
	"context"
	"database/sql"
	"time"

	"github.com/gaborage/go-session/logger"
	"github.com/gaborage/go-session/session/internal/instrumentation"
	"github.com/gaborage/go-session/session/types"
)

// DefaultSlowThreshold is the slow-operation warning threshold used when the
// caller passes zero.
const DefaultSlowThreshold = 200 * time.Millisecond

// Instrumented decorates a session (typically a Template) with operation
// tracking: OpenTelemetry call and duration metrics, per-request counters in
// the context, and slow-operation warnings.
type Instrumented struct {
	next      types.Session
	vendor    types.Vendor
	threshold time.Duration
	log       logger.Logger
}

var _ types.Session = (*Instrumented)(nil)

// NewInstrumented wraps next with operation tracking for the given vendor.
// A zero threshold falls back to DefaultSlowThreshold; a nil log to a no-op
// logger.
func NewInstrumented(next types.Session, vendor types.Vendor, threshold time.Duration, log logger.Logger) *Instrumented {
	if threshold <= 0 {
		threshold = DefaultSlowThreshold
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Instrumented{next: next, vendor: vendor, threshold: threshold, log: log}
}

func (i *Instrumented) track(ctx context.Context, operation string, start time.Time, err error) {
	elapsed := time.Since(start)

	logger.IncrementSessionCounter(ctx)
	logger.AddSessionElapsed(ctx, elapsed.Nanoseconds())
	instrumentation.Record(ctx, i.vendor, operation, elapsed, err)

	if elapsed >= i.threshold {
		i.log.Warn().
			Str("vendor", i.vendor).
			Str("operation", operation).
			Dur("elapsed", elapsed).
			Msg("Slow session operation")
	}
}

// Query delegates and records the operation.
func (i *Instrumented) Query(ctx context.Context, query string, args ...any) (types.Rows, error) {
	start := time.Now()
	rows, err := i.next.Query(ctx, query, args...)
	i.track(ctx, "query", start, err)
	return rows, err
}

// QueryRow delegates and records the operation. Row errors surface on Scan,
// so the recorded outcome reflects only dispatch.
func (i *Instrumented) QueryRow(ctx context.Context, query string, args ...any) types.Row {
	start := time.Now()
	row := i.next.QueryRow(ctx, query, args...)
	i.track(ctx, "query_row", start, nil)
	return row
}

// Exec delegates and records the operation.
func (i *Instrumented) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := i.next.Exec(ctx, query, args...)
	i.track(ctx, "exec", start, err)
	return res, err
}

// Flush delegates and records the operation.
func (i *Instrumented) Flush(ctx context.Context) ([]sql.Result, error) {
	start := time.Now()
	results, err := i.next.Flush(ctx)
	i.track(ctx, "flush", start, err)
	return results, err
}

// Commit delegates and records the operation.
func (i *Instrumented) Commit(ctx context.Context, force bool) error {
	start := time.Now()
	err := i.next.Commit(ctx, force)
	i.track(ctx, "commit", start, err)
	return err
}

// Rollback delegates and records the operation.
func (i *Instrumented) Rollback(ctx context.Context) error {
	start := time.Now()
	err := i.next.Rollback(ctx)
	i.track(ctx, "rollback", start, err)
	return err
}

// Close delegates without recording; there is no request context to track
// against at close time.
func (i *Instrumented) Close() error {
	return i.next.Close()
}
