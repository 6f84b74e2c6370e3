package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"accountmarket/internal/domain/repository"
)

// ProcessedEventStore remembers gateway webhook event ids.
type ProcessedEventStore struct {
	rdb *redis.Client
}

func NewProcessedEventStore(c *Client) *ProcessedEventStore {
	return &ProcessedEventStore{rdb: c.Underlying()}
}

func eventKey(eventID string) string {
	return "webhook:evt:" + eventID
}

func (s *ProcessedEventStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, eventKey(eventID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: mark event %s: %w", eventID, err)
	}
	return ok, nil
}

func (s *ProcessedEventStore) Forget(ctx context.Context, eventID string) error {
	if err := s.rdb.Del(ctx, eventKey(eventID)).Err(); err != nil {
		return fmt.Errorf("redis: forget event %s: %w", eventID, err)
	}
	return nil
}

var _ repository.ProcessedEventRepository = (*ProcessedEventStore)(nil)
