package repository

import (
	"context"
	"time"

	"accountmarket/internal/domain/entity"
)

type TransactionRepository interface {
	// CreateExclusive stores the transaction only if its listing is active and
	// has no other non-terminal transaction.
	CreateExclusive(ctx context.Context, transaction *entity.Transaction) error
	GetByID(ctx context.Context, id string) (*entity.Transaction, error)
	GetByGatewayOrderID(ctx context.Context, orderID string) (*entity.Transaction, error)

	// UpdateFn serializes mutations of one transaction: it loads the latest
	// version, applies fn and persists the result atomically. When fn moves
	// the transaction to completed, its listing is marked sold in the same
	// write.
	UpdateFn(ctx context.Context, id string, fn func(transaction *entity.Transaction) error) (*entity.Transaction, error)

	ListByUserID(ctx context.Context, userID string, role string, status string, limit, offset int) ([]*entity.Transaction, int64, error)
	CountCreatedByBuyerSince(ctx context.Context, buyerID string, since time.Time, excludeStatuses []string) (int, error)
	ListDueForAutoRelease(ctx context.Context, now time.Time, limit int) ([]*entity.Transaction, error)

	CreateLog(ctx context.Context, log *entity.TransactionLog) error
	ListLogsByTransactionID(ctx context.Context, transactionID string) ([]*entity.TransactionLog, error)
}
