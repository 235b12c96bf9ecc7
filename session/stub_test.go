package session

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/gaborage/go-session/session/types"
)

// stubSession records lifecycle calls so tests can assert exactly when a
// session was committed, rolled back and closed.
type stubSession struct {
	mu            sync.Mutex
	queryCalls    int
	execCalls     int
	flushCalls    int
	commitCalls   int
	forcedCommits int
	rollbacks     int
	closeCalls    int

	queryErr  error
	execErr   error
	flushErr  error
	commitErr error
	closeErr  error
}

func (s *stubSession) Query(context.Context, string, ...any) (types.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryCalls++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return &stubRows{}, nil
}

func (s *stubSession) QueryRow(context.Context, string, ...any) types.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryCalls++
	return types.NewRowFromError(s.queryErr)
}

func (s *stubSession) Exec(context.Context, string, ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execCalls++
	if s.execErr != nil {
		return nil, s.execErr
	}
	return sqlmockResult{}, nil
}

func (s *stubSession) Flush(context.Context) ([]sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushCalls++
	if s.flushErr != nil {
		return nil, s.flushErr
	}
	return nil, nil
}

func (s *stubSession) Commit(_ context.Context, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitCalls++
	if force {
		s.forcedCommits++
	}
	return s.commitErr
}

func (s *stubSession) Rollback(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollbacks++
	return nil
}

func (s *stubSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	return s.closeErr
}

func (s *stubSession) closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

func (s *stubSession) committed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitCalls
}

func (s *stubSession) forced() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forcedCommits
}

// stubRows is a one-row in-memory cursor with a single "value" column
// holding int64(1).
type stubRows struct {
	idx    int
	closed bool
}

func (r *stubRows) Columns() ([]string, error) {
	return []string{"value"}, nil
}

func (r *stubRows) Next() bool {
	if r.closed || r.idx >= 1 {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	if len(dest) != 1 {
		return errors.New("stubRows: expected one destination")
	}
	switch d := dest[0].(type) {
	case *any:
		*d = int64(1)
	case *int64:
		*d = 1
	default:
		return errors.New("stubRows: unsupported destination")
	}
	return nil
}

func (r *stubRows) Close() error {
	r.closed = true
	return nil
}

func (r *stubRows) Err() error {
	return nil
}

type sqlmockResult struct{}

func (sqlmockResult) LastInsertId() (int64, error) { return 0, nil }
func (sqlmockResult) RowsAffected() (int64, error) { return 1, nil }

// stubFactory opens stubSessions. managed distinguishes factories whose
// sessions defer to the unit of work from factories that own their own
// transactions.
type stubFactory struct {
	mu          sync.Mutex
	sessions    []*stubSession
	defaultMode types.ExecutionMode
	managed     bool
	source      any
	openErr     error
	sessionErr  error
}

func newStubFactory() *stubFactory {
	return &stubFactory{
		defaultMode: types.ModeSimple,
		managed:     true,
		source:      new(int),
	}
}

func (f *stubFactory) OpenSession(context.Context, types.ExecutionMode) (types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	sess := &stubSession{queryErr: f.sessionErr, execErr: f.sessionErr}
	f.sessions = append(f.sessions, sess)
	return sess, nil
}

func (f *stubFactory) DefaultMode() types.ExecutionMode {
	return f.defaultMode
}

func (f *stubFactory) ConnectionSource() any {
	return f.source
}

func (f *stubFactory) ManagedByUnitOfWork() bool {
	return f.managed
}

func (f *stubFactory) opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func (f *stubFactory) lastSession() *stubSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sessions) == 0 {
		return nil
	}
	return f.sessions[len(f.sessions)-1]
}

// stubTranslator maps every persistence fault to a fixed generic error.
type stubTranslator struct {
	translated int
	result     error
}

func (t *stubTranslator) Translate(err *types.PersistenceError) error {
	t.translated++
	if t.result != nil {
		return t.result
	}
	return types.NewDataAccessError(types.KindGeneric, err)
}
