package service

import (
	"context"
	"errors"
	"time"
)

// Notifier delivers in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, userID, notificationType, title, message string, data map[string]interface{}) error
}

const (
	EmailEscrowFunded        = "escrow_funded"
	EmailTransactionComplete = "transaction_complete"
	EmailRefundIssued        = "refund_issued"
	EmailDisputeOpened       = "dispute_opened"
)

type Email struct {
	UserID   string                 `json:"user_id"`
	Template string                 `json:"template"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// EmailSender hands a templated email to the mailer.
type EmailSender interface {
	SendEmail(ctx context.Context, email Email) error
}

type DomainEvent struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	TransactionID string                 `json:"transaction_id"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// EventPublisher emits lifecycle events such as seller payouts.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

var ErrLockHeld = errors.New("lock already held")

// LockManager provides short-lived advisory locks shared by all replicas.
type LockManager interface {
	// Acquire returns ErrLockHeld when another holder owns key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
