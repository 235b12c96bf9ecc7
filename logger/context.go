package logger

import (
	"context"
	"sync/atomic"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	// sessionCounterKey is the context key for tracking session operation count per request
	sessionCounterKey contextKey = "session_operation_counter"
	// sessionElapsedKey is the context key for tracking total session elapsed time per request
	sessionElapsedKey contextKey = "session_elapsed_nanos"
)

// WithSessionCounter creates a new context with a session operation counter and elapsed time tracker
func WithSessionCounter(ctx context.Context) context.Context {
	counter := int64(0)
	elapsed := int64(0)
	ctx = context.WithValue(ctx, sessionCounterKey, &counter)
	return context.WithValue(ctx, sessionElapsedKey, &elapsed)
}

// IncrementSessionCounter increments the session operation counter in the context
func IncrementSessionCounter(ctx context.Context) {
	if counter, ok := ctx.Value(sessionCounterKey).(*int64); ok && counter != nil {
		atomic.AddInt64(counter, 1)
	}
}

// GetSessionCounter returns the current session operation count from the context
func GetSessionCounter(ctx context.Context) int64 {
	if counter, ok := ctx.Value(sessionCounterKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}

// AddSessionElapsed adds elapsed nanoseconds to the session elapsed time in the context
func AddSessionElapsed(ctx context.Context, nanos int64) {
	if elapsed, ok := ctx.Value(sessionElapsedKey).(*int64); ok && elapsed != nil {
		atomic.AddInt64(elapsed, nanos)
	}
}

// GetSessionElapsed returns the total session elapsed time in nanoseconds from the context
func GetSessionElapsed(ctx context.Context) int64 {
	if elapsed, ok := ctx.Value(sessionElapsedKey).(*int64); ok && elapsed != nil {
		return atomic.LoadInt64(elapsed)
	}
	return 0
}
