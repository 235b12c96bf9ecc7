package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-session/logger"
	"github.com/gaborage/go-session/session/types"
)

func TestNewInstrumentedDefaults(t *testing.T) {
	i := NewInstrumented(&stubSession{}, types.PostgreSQL, 0, nil)
	assert.Equal(t, DefaultSlowThreshold, i.threshold)
	assert.NotNil(t, i.log)

	i = NewInstrumented(&stubSession{}, types.Oracle, 5*time.Second, nil)
	assert.Equal(t, 5*time.Second, i.threshold)
}

func TestInstrumentedDelegatesAndCounts(t *testing.T) {
	sess := &stubSession{}
	i := NewInstrumented(sess, types.PostgreSQL, time.Second, nil)
	ctx := logger.WithSessionCounter(context.Background())

	_, err := i.Query(ctx, selectOne)
	require.NoError(t, err)
	_, err = i.Exec(ctx, selectOne)
	require.NoError(t, err)
	row := i.QueryRow(ctx, selectOne)
	require.NoError(t, row.Err())
	_, err = i.Flush(ctx)
	require.NoError(t, err)
	require.NoError(t, i.Commit(ctx, false))
	require.NoError(t, i.Rollback(ctx))

	assert.Equal(t, int64(6), logger.GetSessionCounter(ctx))
	assert.GreaterOrEqual(t, logger.GetSessionElapsed(ctx), int64(0))
	assert.Equal(t, 2, sess.queryCalls)
	assert.Equal(t, 1, sess.execCalls)
	assert.Equal(t, 1, sess.flushCalls)
	assert.Equal(t, 1, sess.committed())
	assert.Equal(t, 1, sess.rollbacks)
}

func TestInstrumentedCloseIsUncounted(t *testing.T) {
	sess := &stubSession{}
	i := NewInstrumented(sess, types.PostgreSQL, time.Second, nil)
	ctx := logger.WithSessionCounter(context.Background())

	require.NoError(t, i.Close())
	assert.Equal(t, int64(0), logger.GetSessionCounter(ctx))
	assert.Equal(t, 1, sess.closed())
}

func TestInstrumentedCountsFailedOperations(t *testing.T) {
	sess := &stubSession{execErr: assert.AnError}
	i := NewInstrumented(sess, types.Oracle, time.Second, nil)
	ctx := logger.WithSessionCounter(context.Background())

	_, err := i.Exec(ctx, selectOne)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, int64(1), logger.GetSessionCounter(ctx))
}
