package sqlsession

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-session/session/types"
)

const (
	insertUser  = "INSERT INTO users (name) VALUES ($1)"
	selectUser  = "SELECT name FROM users WHERE id = $1"
	selectCount = "SELECT COUNT(*) FROM users"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestSessionSimpleExecAndCommit(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(insertUser).WithArgs("alice").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	s := New(types.PostgreSQL, types.ModeSimple, db, nil, nil)
	ctx := context.Background()

	res, err := s.Exec(ctx, insertUser, "alice")
	require.NoError(t, err)
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	require.NoError(t, s.Commit(ctx, false))
	require.NoError(t, s.Close())
}

func TestSessionCommitWithoutWritesSkipsPhysicalCommit(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{"name"}).AddRow("alice")
	mock.ExpectQuery(selectUser).WithArgs(1).WillReturnRows(rows)
	mock.ExpectRollback()

	s := New(types.PostgreSQL, types.ModeSimple, db, nil, nil)
	ctx := context.Background()

	got, err := s.Query(ctx, selectUser, 1)
	require.NoError(t, err)
	require.NoError(t, got.Close())

	// No write happened: commit is a no-op and close rolls the
	// read transaction back.
	require.NoError(t, s.Commit(ctx, false))
	require.NoError(t, s.Close())
}

func TestSessionForcedCommitOnReadOnlyWork(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{"count"}).AddRow(3)
	mock.ExpectQuery(selectCount).WillReturnRows(rows)
	mock.ExpectCommit()

	s := New(types.PostgreSQL, types.ModeSimple, db, nil, nil)
	ctx := context.Background()

	var count int
	row := s.QueryRow(ctx, selectCount)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 3, count)

	require.NoError(t, s.Commit(ctx, true))
	require.NoError(t, s.Close())
}

func TestSessionCloseRollsBackOpenTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(insertUser).WithArgs("bob").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectRollback()

	s := New(types.PostgreSQL, types.ModeSimple, db, nil, nil)
	_, err := s.Exec(context.Background(), insertUser, "bob")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	// Close is idempotent.
	require.NoError(t, s.Close())
}

func TestSessionClosedGuards(t *testing.T) {
	db, _ := newMockDB(t)
	s := New(types.PostgreSQL, types.ModeSimple, db, nil, nil)
	require.NoError(t, s.Close())
	ctx := context.Background()

	_, err := s.Exec(ctx, insertUser, "x")
	assert.ErrorIs(t, err, types.ErrSessionClosed)
	_, err = s.Query(ctx, selectCount)
	assert.ErrorIs(t, err, types.ErrSessionClosed)
	assert.ErrorIs(t, s.QueryRow(ctx, selectCount).Err(), types.ErrSessionClosed)
	assert.ErrorIs(t, s.Commit(ctx, false), types.ErrSessionClosed)
	assert.ErrorIs(t, s.Rollback(ctx), types.ErrSessionClosed)
}

func TestSessionExternalTransactionIsNeverTouched(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(insertUser).WithArgs("carol").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	s := New(types.PostgreSQL, types.ModeSimple, db, tx, nil)
	assert.True(t, s.External())
	ctx := context.Background()

	_, err = s.Exec(ctx, insertUser, "carol")
	require.NoError(t, err)

	// Session commit, rollback and close leave the external transaction
	// to its owner.
	require.NoError(t, s.Commit(ctx, true))
	require.NoError(t, s.Rollback(ctx))
	require.NoError(t, s.Close())

	require.NoError(t, tx.Commit())
}

func TestSessionReuseModeCachesPreparedStatements(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(insertUser)
	prep.ExpectExec().WithArgs("dave").WillReturnResult(sqlmock.NewResult(4, 1))
	prep.ExpectExec().WithArgs("erin").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	s := New(types.PostgreSQL, types.ModeReuse, db, nil, nil)
	ctx := context.Background()

	_, err := s.Exec(ctx, insertUser, "dave")
	require.NoError(t, err)
	// The second execution reuses the cached statement; only one prepare
	// is expected on the wire.
	_, err = s.Exec(ctx, insertUser, "erin")
	require.NoError(t, err)

	require.NoError(t, s.Commit(ctx, false))
	require.NoError(t, s.Close())
}

func TestSessionBatchModeBuffersUntilFlush(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(insertUser).WithArgs("frank").WillReturnResult(sqlmock.NewResult(6, 1))
	mock.ExpectExec(insertUser).WithArgs("grace").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	s := New(types.PostgreSQL, types.ModeBatch, db, nil, nil)
	ctx := context.Background()

	res, err := s.Exec(ctx, insertUser, "frank")
	require.NoError(t, err)
	_, err = res.RowsAffected()
	assert.ErrorIs(t, err, types.ErrResultPending)
	_, err = s.Exec(ctx, insertUser, "grace")
	require.NoError(t, err)

	results, err := s.Flush(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	affected, err := results[0].RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// The buffer is spent; a second flush is a no-op.
	results, err = s.Flush(ctx)
	require.NoError(t, err)
	assert.Nil(t, results)

	require.NoError(t, s.Commit(ctx, false))
	require.NoError(t, s.Close())
}

func TestSessionBatchFlushesBeforeQuery(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(insertUser).WithArgs("heidi").WillReturnResult(sqlmock.NewResult(8, 1))
	rows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(selectCount).WillReturnRows(rows)
	mock.ExpectRollback()

	s := New(types.PostgreSQL, types.ModeBatch, db, nil, nil)
	ctx := context.Background()

	_, err := s.Exec(ctx, insertUser, "heidi")
	require.NoError(t, err)

	// The query observes the buffered insert because it flushes first.
	got, err := s.Query(ctx, selectCount)
	require.NoError(t, err)
	require.NoError(t, got.Close())

	require.NoError(t, s.Close())
}

func TestSessionBatchCommitFlushesBuffer(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(insertUser).WithArgs("ivan").WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	s := New(types.PostgreSQL, types.ModeBatch, db, nil, nil)
	ctx := context.Background()

	_, err := s.Exec(ctx, insertUser, "ivan")
	require.NoError(t, err)

	require.NoError(t, s.Commit(ctx, false))
	require.NoError(t, s.Close())
}

func TestSessionRollbackDiscardsBatch(t *testing.T) {
	db, _ := newMockDB(t)

	s := New(types.PostgreSQL, types.ModeBatch, db, nil, nil)
	ctx := context.Background()

	_, err := s.Exec(ctx, insertUser, "judy")
	require.NoError(t, err)

	// Nothing hit the wire: the buffered statement is dropped and no
	// transaction was ever begun.
	require.NoError(t, s.Rollback(ctx))
	results, err := s.Flush(ctx)
	require.NoError(t, err)
	assert.Nil(t, results)
	require.NoError(t, s.Close())
}

func TestSessionFlushErrorWrapsPersistenceError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	execErr := errors.New("unique violation")
	mock.ExpectExec(insertUser).WithArgs("kate").WillReturnError(execErr)
	mock.ExpectRollback()

	s := New(types.PostgreSQL, types.ModeBatch, db, nil, nil)
	ctx := context.Background()

	_, err := s.Exec(ctx, insertUser, "kate")
	require.NoError(t, err)

	_, err = s.Flush(ctx)
	require.Error(t, err)
	var pe *types.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, types.PostgreSQL, pe.Vendor)
	assert.Equal(t, "flush", pe.Operation)
	assert.ErrorIs(t, err, execErr)

	require.NoError(t, s.Close())
}

func TestSessionBeginFailure(t *testing.T) {
	db, mock := newMockDB(t)
	beginErr := errors.New("pool saturated")
	mock.ExpectBegin().WillReturnError(beginErr)

	s := New(types.Oracle, types.ModeSimple, db, nil, nil)

	_, err := s.Query(context.Background(), selectCount)
	require.Error(t, err)
	var pe *types.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "begin", pe.Operation)
	assert.Equal(t, types.Oracle, pe.Vendor)

	require.NoError(t, s.Close())
}

func TestSessionStringIdentity(t *testing.T) {
	db, _ := newMockDB(t)
	s := New(types.Oracle, types.ModeReuse, db, nil, nil)
	t.Cleanup(func() { _ = s.Close() })

	assert.NotEmpty(t, s.ID())
	assert.Contains(t, s.String(), s.ID())
	assert.Contains(t, s.String(), "oracle")
	assert.Contains(t, s.String(), "reuse")
}
