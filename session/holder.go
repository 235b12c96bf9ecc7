// Package session binds stateful database sessions to an ambient unit of
// work. Call sites sharing a unit of work observe exactly one underlying
// session per factory; call sites outside any unit of work get an independent
// auto-committed session per operation.
//
// The package exposes the acquisition protocol (Acquire, Release, IsManaged)
// and Template, a decorator that applies the protocol around every session
// operation.
package session

import (
	"sync"

	"github.com/gaborage/go-session/session/types"
)

// Holder is the reference-counted binding of one session to one unit of work
// for one factory. The holder owns the session exclusively until it is closed;
// the unit-of-work registry only points at the holder.
//
// Holder methods are safe for cross-goroutine use because completion callbacks
// may fire on a goroutine other than the one that created the holder.
type Holder struct {
	mu           sync.Mutex
	session      types.Session
	mode         types.ExecutionMode
	translator   types.Translator
	refs         int
	synchronized bool
	closed       bool
}

// NewHolder wraps session with its execution mode and optional translator.
// The mode is immutable for the holder's lifetime.
func NewHolder(session types.Session, mode types.ExecutionMode, translator types.Translator) *Holder {
	return &Holder{session: session, mode: mode, translator: translator}
}

// Session returns the wrapped session.
func (h *Holder) Session() types.Session {
	return h.session
}

// Mode returns the execution mode fixed at creation.
func (h *Holder) Mode() types.ExecutionMode {
	return h.mode
}

// Translator returns the optional persistence-fault translator, or nil.
func (h *Holder) Translator() types.Translator {
	return h.translator
}

// Request records one acquisition of the wrapped session.
func (h *Holder) Request() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refs++
}

// Released records one release of the wrapped session. Releasing more times
// than requested is a programming fault and panics.
func (h *Holder) Released() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refs == 0 {
		panic("session: holder released more times than requested")
	}
	h.refs--
}

// Referenced reports whether any acquisition is still outstanding.
func (h *Holder) Referenced() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refs > 0
}

// ReferenceCount returns the number of outstanding acquisitions.
func (h *Holder) ReferenceCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refs
}

// SetSynchronized flags the holder as registered with a unit of work.
func (h *Holder) SetSynchronized(synchronized bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.synchronized = synchronized
}

// Synchronized reports whether the holder is registered with a unit of work.
func (h *Holder) Synchronized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.synchronized
}

// Open reports whether the wrapped session has not been closed yet.
func (h *Holder) Open() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.closed
}

// CloseSession closes the wrapped session exactly once. Subsequent calls are
// no-ops returning nil, which guards against racing completion callbacks.
func (h *Holder) CloseSession() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	return h.session.Close()
}

// Reset clears the reference count and synchronization flag so the holder
// state is clean if the unit of work is re-entered. It does not reopen a
// closed session.
func (h *Holder) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refs = 0
	h.synchronized = false
}
