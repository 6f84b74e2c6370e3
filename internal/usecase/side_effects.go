package usecase

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"accountmarket/internal/domain/entity"
	"accountmarket/internal/domain/repository"
	"accountmarket/internal/domain/service"
	"accountmarket/pkg/logger"
)

// Enqueuer schedules work outside the request path. worker.Queue implements
// it.
type Enqueuer interface {
	Enqueue(name string, fn func(ctx context.Context) error) bool
}

type SideEffectDeps struct {
	Queue           Enqueuer
	Notifier        service.Notifier
	Emails          service.EmailSender
	Events          service.EventPublisher
	Conversations   repository.ConversationRepository
	AuditLogs       repository.AuditLogRepository
	TransactionRepo repository.TransactionRepository
	Observer        Observer
}

// SideEffects fans state changes out to notifications, email, events, audit
// and status logs. Every call is fire-and-forget: failures are retried by the
// queue and logged, never returned.
type SideEffects struct {
	deps SideEffectDeps
}

func NewSideEffects(deps SideEffectDeps) *SideEffects {
	if deps.Observer == nil {
		deps.Observer = noopObserver{}
	}
	return &SideEffects{deps: deps}
}

func (s *SideEffects) enqueue(name string, fn func(ctx context.Context) error) {
	if s.deps.Queue == nil {
		return
	}
	s.deps.Queue.Enqueue(name, fn)
}

// Transition records an applied status change.
func (s *SideEffects) Transition(transaction *entity.Transaction, from, to, actorID, notes string) {
	logger.LogTransition(transaction.ID, from, to, actorID)
	if from != "" {
		s.deps.Observer.ObserveTransition(from, to)
	}

	entry := &entity.TransactionLog{
		ID:            uuid.New().String(),
		TransactionID: transaction.ID,
		FromStatus:    from,
		Status:        to,
		Notes:         notes,
		CreatedBy:     actorID,
		CreatedAt:     time.Now(),
	}
	s.enqueue("transaction_log", func(ctx context.Context) error {
		return s.deps.TransactionRepo.CreateLog(ctx, entry)
	})
}

func (s *SideEffects) Notify(userID, notificationType, title, message string, data map[string]interface{}) {
	if s.deps.Notifier == nil || userID == "" {
		return
	}
	s.enqueue("notify:"+notificationType, func(ctx context.Context) error {
		return s.deps.Notifier.Notify(ctx, userID, notificationType, title, message, data)
	})
}

func (s *SideEffects) Email(userID, template string, data map[string]interface{}) {
	if s.deps.Emails == nil || userID == "" {
		return
	}
	email := service.Email{UserID: userID, Template: template, Data: data}
	s.enqueue("email:"+template, func(ctx context.Context) error {
		return s.deps.Emails.SendEmail(ctx, email)
	})
}

func (s *SideEffects) Publish(eventType string, transaction *entity.Transaction, payload map[string]interface{}) {
	if s.deps.Events == nil {
		return
	}
	event := service.DomainEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		TransactionID: transaction.ID,
		Payload:       payload,
		OccurredAt:    time.Now().UTC(),
	}
	s.enqueue("event:"+eventType, func(ctx context.Context) error {
		return s.deps.Events.Publish(ctx, event)
	})
}

func (s *SideEffects) Audit(actor Actor, action, resourceType, resourceID string, payload map[string]interface{}) {
	if s.deps.AuditLogs == nil {
		return
	}
	record := &entity.AuditLog{
		ID:           uuid.New().String(),
		ActorID:      actor.ID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Payload:      payload,
		CreatedAt:    time.Now(),
	}
	s.enqueue("audit:"+action, func(ctx context.Context) error {
		return s.deps.AuditLogs.Create(ctx, record)
	})
}

// OpenConversation creates the buyer/seller chat for a new transaction and
// links it back. The conversation id is reused across retries.
func (s *SideEffects) OpenConversation(transaction *entity.Transaction) {
	if s.deps.Conversations == nil {
		return
	}
	conversation := &entity.Conversation{
		ID:            uuid.New().String(),
		Participants:  []string{transaction.BuyerID, transaction.SellerID},
		ListingID:     transaction.ListingID,
		TransactionID: transaction.ID,
		Type:          "transaction",
	}
	transactionID := transaction.ID

	s.enqueue("conversation", func(ctx context.Context) error {
		if err := s.deps.Conversations.Create(ctx, conversation); err != nil {
			return err
		}
		_, err := s.deps.TransactionRepo.UpdateFn(ctx, transactionID, func(t *entity.Transaction) error {
			if t.ConversationID != "" {
				return repository.ErrNoChange
			}
			t.ConversationID = conversation.ID
			return nil
		})
		if err != nil && !stderrors.Is(err, repository.ErrNoChange) {
			logger.LogTransactionError(transactionID, "link_conversation", err)
			return err
		}
		return nil
	})
}
