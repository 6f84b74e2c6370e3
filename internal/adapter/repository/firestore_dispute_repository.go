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

type firestoreDisputeRepository struct {
	client *firestore.Client
}

func NewFirestoreDisputeRepository(client *firestore.Client) repository.DisputeRepository {
	return &firestoreDisputeRepository{
		client: client,
	}
}

func (r *firestoreDisputeRepository) disputes() *firestore.CollectionRef {
	return r.client.Collection("disputes")
}

func decodeDispute(doc *firestore.DocumentSnapshot) (*entity.Dispute, error) {
	var dispute entity.Dispute
	if err := doc.DataTo(&dispute); err != nil {
		return nil, errors.Internal("Failed to parse dispute data", err)
	}
	return &dispute, nil
}

func (r *firestoreDisputeRepository) Create(ctx context.Context, dispute *entity.Dispute) error {
	if dispute.ID == "" {
		dispute.ID = uuid.New().String()
	}
	now := time.Now()
	dispute.CreatedAt = now
	dispute.UpdatedAt = now

	if _, err := r.disputes().Doc(dispute.ID).Create(ctx, dispute); err != nil {
		return errors.Internal("Failed to create dispute", err)
	}
	return nil
}

func (r *firestoreDisputeRepository) GetByID(ctx context.Context, id string) (*entity.Dispute, error) {
	doc, err := r.disputes().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Dispute", err)
		}
		return nil, errors.Internal("Failed to get dispute", err)
	}
	return decodeDispute(doc)
}

func (r *firestoreDisputeRepository) FindOpenByTransactionID(ctx context.Context, transactionID string) (*entity.Dispute, error) {
	docs, err := r.disputes().
		Where("transactionId", "==", transactionID).
		Where("status", "in", []string{entity.DisputeStatusOpen, entity.DisputeStatusInvestigating}).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to query disputes", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return decodeDispute(docs[0])
}

func (r *firestoreDisputeRepository) UpdateFn(ctx context.Context, id string, fn func(dispute *entity.Dispute) error) (*entity.Dispute, error) {
	ref := r.disputes().Doc(id)

	var result *entity.Dispute
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return errors.NotFound("Dispute", err)
			}
			return errors.Internal("Failed to get dispute", err)
		}
		dispute, err := decodeDispute(doc)
		if err != nil {
			return err
		}
		result = dispute

		if err := fn(dispute); err != nil {
			return err
		}
		dispute.UpdatedAt = time.Now()
		return tx.Set(ref, dispute)
	})
	return finish(result, err, "Failed to update dispute")
}
