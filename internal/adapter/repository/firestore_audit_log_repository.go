package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"accountmarket/internal/domain/entity"
	"accountmarket/internal/domain/repository"
	"accountmarket/pkg/errors"
)

type firestoreAuditLogRepository struct {
	client *firestore.Client
}

func NewFirestoreAuditLogRepository(client *firestore.Client) repository.AuditLogRepository {
	return &firestoreAuditLogRepository{
		client: client,
	}
}

func (r *firestoreAuditLogRepository) Create(ctx context.Context, log *entity.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	if _, err := r.client.Collection("audit_logs").Doc(log.ID).Set(ctx, log); err != nil {
		return errors.Internal("Failed to write audit log", err)
	}
	return nil
}
