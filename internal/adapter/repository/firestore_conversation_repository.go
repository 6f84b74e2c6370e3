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

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}
	now := time.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now

	if _, err := r.client.Collection("chats").Doc(conversation.ID).Set(ctx, conversation); err != nil {
		return errors.Internal("Failed to create conversation", err)
	}
	return nil
}
