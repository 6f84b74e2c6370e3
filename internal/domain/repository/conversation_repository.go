package repository

import (
	"context"

	"accountmarket/internal/domain/entity"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
}
