package lock

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client), mr
}

func TestAcquire_ExclusiveUntilRelease(t *testing.T) {
	l, _ := newTestLock(t)
	ctx := context.Background()

	release, err := l.Acquire(ctx, SweepLockKey(), time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, SweepLockKey(), time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, release(ctx))

	release2, err := l.Acquire(ctx, SweepLockKey(), time.Minute)
	require.NoError(t, err)
	require.NoError(t, release2(ctx))
}

func TestAcquire_ExpiresAfterTTL(t *testing.T) {
	l, mr := newTestLock(t)
	ctx := context.Background()

	_, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = l.Acquire(ctx, "k", time.Second)
	assert.NoError(t, err)
}

func TestRelease_DoesNotDropForeignLock(t *testing.T) {
	l, mr := newTestLock(t)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	// el lock expira y lo toma otro proceso
	mr.FastForward(2 * time.Second)
	_, err = l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	require.NoError(t, release(ctx))
	assert.True(t, mr.Exists("k"))
}
