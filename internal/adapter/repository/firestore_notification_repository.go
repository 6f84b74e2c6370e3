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

type firestoreNotificationRepository struct {
	client *firestore.Client
}

func NewFirestoreNotificationRepository(client *firestore.Client) repository.NotificationRepository {
	return &firestoreNotificationRepository{
		client: client,
	}
}

func (r *firestoreNotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	if _, err := r.client.Collection("notifications").Doc(notification.ID).Set(ctx, notification); err != nil {
		return errors.Internal("Failed to create notification", err)
	}
	return nil
}

func (r *firestoreNotificationRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Notification, int64, error) {
	query := r.client.Collection("notifications").
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to count notifications", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	notifications := []*entity.Notification{}
	err = collect(query.Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		var n entity.Notification
		if err := doc.DataTo(&n); err != nil {
			return errors.Internal("Failed to parse notification data", err)
		}
		notifications = append(notifications, &n)
		return nil
	})
	if err != nil {
		return nil, 0, wrapTxError(err, "Failed to iterate notifications")
	}
	return notifications, total, nil
}
