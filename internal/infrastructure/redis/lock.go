package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"accountmarket/internal/domain/service"
	"accountmarket/pkg/logger"
)

const escrowLockPrefix = "escrow-lock:"

// releaseIfOwner drops KEYS[1] when it still carries ARGV[1]. A lock that
// expired and was taken by another replica is left alone.
var releaseIfOwner = redis.NewScript(`
if redis.call('GET', KEYS[1]) ~= ARGV[1] then
    return 0
end
return redis.call('DEL', KEYS[1])
`)

// EscrowLocks serializes escrow mutations across API replicas. Each hold is
// stamped with the replica name and a fresh id so a stale release cannot drop
// somebody else's hold.
type EscrowLocks struct {
	rdb     *redis.Client
	replica string
}

func NewEscrowLocks(c *Client, replica string) *EscrowLocks {
	if replica == "" {
		replica = "api"
	}
	return &EscrowLocks{rdb: c.Underlying(), replica: replica}
}

func (l *EscrowLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	redisKey := escrowLockPrefix + key
	holder := l.replica + "/" + uuid.NewString()

	acquired, err := l.rdb.SetNX(ctx, redisKey, holder, ttl).Result()
	switch {
	case err != nil:
		return nil, fmt.Errorf("redis: lock %s: %w", key, err)
	case !acquired:
		return nil, service.ErrLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(redisKey, holder) })
	}, nil
}

// release runs on its own deadline; the caller's context is often done by
// the time a deferred unlock fires.
func (l *EscrowLocks) release(redisKey, holder string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := releaseIfOwner.Run(ctx, l.rdb, []string{redisKey}, holder).Err(); err != nil {
		logger.Warn("Escrow lock %s not released, it expires on its own: %v", redisKey, err)
	}
}

var _ service.LockManager = (*EscrowLocks)(nil)
