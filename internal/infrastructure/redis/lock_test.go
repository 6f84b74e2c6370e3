package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accountmarket/internal/domain/service"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewClientFrom(rdb)
}

func TestEscrowLocksExcludeSecondHolder(t *testing.T) {
	mr, client := newTestClient(t)
	locks := NewEscrowLocks(client, "api-1")
	ctx := context.Background()

	unlock, err := locks.Acquire(ctx, "escrow:txn-1", time.Minute)
	require.NoError(t, err)

	holder, err := mr.Get("escrow-lock:escrow:txn-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(holder, "api-1/"), holder)
	assert.Equal(t, time.Minute, mr.TTL("escrow-lock:escrow:txn-1"))

	_, err = locks.Acquire(ctx, "escrow:txn-1", time.Minute)
	assert.ErrorIs(t, err, service.ErrLockHeld)

	other, err := locks.Acquire(ctx, "escrow:txn-2", time.Minute)
	require.NoError(t, err, "keys are independent")
	other()

	unlock()
	assert.False(t, mr.Exists("escrow-lock:escrow:txn-1"))

	again, err := locks.Acquire(ctx, "escrow:txn-1", time.Minute)
	require.NoError(t, err)
	again()
}

func TestEscrowLocksStaleUnlockKeepsNewHolder(t *testing.T) {
	mr, client := newTestClient(t)
	first := NewEscrowLocks(client, "api-1")
	second := NewEscrowLocks(client, "api-2")
	ctx := context.Background()

	staleUnlock, err := first.Acquire(ctx, "escrow:txn-1", 5*time.Second)
	require.NoError(t, err)

	mr.FastForward(6 * time.Second)
	assert.False(t, mr.Exists("escrow-lock:escrow:txn-1"), "hold expires with its ttl")

	unlock, err := second.Acquire(ctx, "escrow:txn-1", time.Minute)
	require.NoError(t, err)

	staleUnlock()
	holder, err := mr.Get("escrow-lock:escrow:txn-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(holder, "api-2/"), "expired holder must not release the new hold")

	unlock()
	assert.False(t, mr.Exists("escrow-lock:escrow:txn-1"))
}

func TestEscrowLocksUnlockRunsOnce(t *testing.T) {
	mr, client := newTestClient(t)
	locks := NewEscrowLocks(client, "")
	ctx := context.Background()

	unlock, err := locks.Acquire(ctx, "escrow:txn-1", time.Minute)
	require.NoError(t, err)
	unlock()

	next, err := locks.Acquire(ctx, "escrow:txn-1", time.Minute)
	require.NoError(t, err)

	unlock()
	assert.True(t, mr.Exists("escrow-lock:escrow:txn-1"))

	holder, err := mr.Get("escrow-lock:escrow:txn-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(holder, "api/"), "empty replica name falls back to api")
	next()
}

func TestEscrowLocksSurfaceRedisErrors(t *testing.T) {
	mr, client := newTestClient(t)
	locks := NewEscrowLocks(client, "api-1")

	mr.SetError("ERR injected failure")
	_, err := locks.Acquire(context.Background(), "escrow:txn-1", time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrLockHeld)
}
