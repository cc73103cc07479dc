package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLockMutualExclusion(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client, "import", time.Minute)
	second := NewRedisLock(client, "import", time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "held lock must not be acquirable")

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "released lock is acquirable again")
}

func TestRedisLockReleaseOnlyByOwner(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	owner := NewRedisLock(client, "import", time.Minute)
	intruder := NewRedisLock(client, "import", time.Minute)

	ok, err := owner.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// A non-owner's release is a no-op; the lock stays held.
	require.NoError(t, intruder.Release(ctx))
	ok, err = intruder.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPGAdvisoryLockHoldsOneSessionUntilRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectQuery("SELECT pg_try_advisory_lock\\(\\$1\\)").
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec("SELECT pg_advisory_unlock\\(\\$1\\)").
		WillReturnResult(sqlmock.NewResult(0, 0))

	lock := NewPGAdvisoryLock(db, "import")
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	// The session that took the lock stays pinned; unlock must run on it,
	// not on whichever pooled connection happens to be free.
	assert.Equal(t, 1, db.Stats().InUse)

	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, 0, db.Stats().InUse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLockFailedAcquireReturnsSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectQuery("SELECT pg_try_advisory_lock\\(\\$1\\)").
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	lock := NewPGAdvisoryLock(db, "import")
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, db.Stats().InUse, "a lock we did not get must not pin a connection")

	// Release without a held lock is a no-op, never an unlock round trip.
	require.NoError(t, lock.Release(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPrefersRedis(t *testing.T) {
	client := setupRedis(t)

	lock := New(client, nil, "import", time.Minute)
	_, isRedis := lock.(*RedisLock)
	assert.True(t, isRedis)

	lock = New(nil, nil, "import", time.Minute)
	_, isPG := lock.(*PGAdvisoryLock)
	assert.True(t, isPG)
}
