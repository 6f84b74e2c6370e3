package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"accountmarket/internal/domain/entity"
	"accountmarket/internal/domain/repository"
	"accountmarket/pkg/utils"
)

// Pusher delivers a live message to a connected user. websocket.Manager
// implements it.
type Pusher interface {
	Push(userID, messageType string, data interface{}) int
}

// NotificationUseCase stores in-app notifications and pushes them to open
// sockets. It is the production service.Notifier.
type NotificationUseCase struct {
	notificationRepo repository.NotificationRepository
	pusher           Pusher
}

func NewNotificationUseCase(notificationRepo repository.NotificationRepository, pusher Pusher) *NotificationUseCase {
	return &NotificationUseCase{
		notificationRepo: notificationRepo,
		pusher:           pusher,
	}
}

func (uc *NotificationUseCase) Notify(ctx context.Context, userID, notificationType, title, message string, data map[string]interface{}) error {
	notification := &entity.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}

	if err := uc.notificationRepo.Create(ctx, notification); err != nil {
		return err
	}

	if uc.pusher != nil {
		uc.pusher.Push(userID, "notification", notification)
	}
	return nil
}

func (uc *NotificationUseCase) ListForUser(ctx context.Context, userID string, page, pageSize int) ([]*entity.Notification, int64, error) {
	pagination := utils.NewPaginationParams(page, pageSize)
	return uc.notificationRepo.ListByUserID(ctx, userID, pagination.PageSize, pagination.Offset)
}
