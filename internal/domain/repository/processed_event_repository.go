package repository

import (
	"context"
	"time"
)

// ProcessedEventRepository remembers webhook event ids already handled.
type ProcessedEventRepository interface {
	// MarkProcessed returns false when the id was already recorded.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	// Forget removes an id so a failed delivery can be retried.
	Forget(ctx context.Context, eventID string) error
}
