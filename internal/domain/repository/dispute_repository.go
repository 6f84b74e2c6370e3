package repository

import (
	"context"

	"accountmarket/internal/domain/entity"
)

type DisputeRepository interface {
	Create(ctx context.Context, dispute *entity.Dispute) error
	GetByID(ctx context.Context, id string) (*entity.Dispute, error)
	// FindOpenByTransactionID returns nil, nil when no dispute is open.
	FindOpenByTransactionID(ctx context.Context, transactionID string) (*entity.Dispute, error)
	UpdateFn(ctx context.Context, id string, fn func(dispute *entity.Dispute) error) (*entity.Dispute, error)
}
