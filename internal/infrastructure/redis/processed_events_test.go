package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkProcessedRejectsDuplicates(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewProcessedEventStore(client)
	ctx := context.Background()

	fresh, err := store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, time.Hour, mr.TTL("webhook:evt:evt_1"))

	fresh, err = store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.False(t, fresh)

	fresh, err = store.MarkProcessed(ctx, "evt_2", time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestForgetAllowsRedelivery(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewProcessedEventStore(client)
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.Forget(ctx, "evt_1"))
	assert.False(t, mr.Exists("webhook:evt:evt_1"))

	fresh, err := store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh)

	assert.NoError(t, store.Forget(ctx, "evt_unknown"))
}

func TestProcessedEventsExpire(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewProcessedEventStore(client)
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "evt_1", time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	fresh, err := store.MarkProcessed(ctx, "evt_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestProcessedEventsSurfaceRedisErrors(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewProcessedEventStore(client)

	mr.SetError("ERR injected failure")
	_, err := store.MarkProcessed(context.Background(), "evt_1", time.Hour)
	assert.Error(t, err)
	assert.Error(t, store.Forget(context.Background(), "evt_1"))
}
