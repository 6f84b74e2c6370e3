package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"accountmarket/internal/domain/entity"
	"accountmarket/internal/domain/repository"
	"accountmarket/internal/domain/service"
	"accountmarket/pkg/errors"
	"accountmarket/pkg/logger"
)

var evidenceTypes = map[string]bool{
	"screenshot": true,
	"video":      true,
	"text":       true,
	"file":       true,
}

type DisputeUseCase struct {
	disputeRepo     repository.DisputeRepository
	transactionRepo repository.TransactionRepository
	payments        *PaymentUseCase
	effects         *SideEffects
	now             func() time.Time
}

func NewDisputeUseCase(
	disputeRepo repository.DisputeRepository,
	transactionRepo repository.TransactionRepository,
	payments *PaymentUseCase,
	effects *SideEffects,
) *DisputeUseCase {
	return &DisputeUseCase{
		disputeRepo:     disputeRepo,
		transactionRepo: transactionRepo,
		payments:        payments,
		effects:         effects,
		now:             time.Now,
	}
}

// Open moves the transaction to disputed, freezing party actions until an
// admin resolves it.
func (uc *DisputeUseCase) Open(ctx context.Context, transactionID, actorID, reason string) (*entity.Dispute, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errors.BadRequest("Dispute reason is required", nil)
	}

	var from string
	transaction, err := uc.transactionRepo.UpdateFn(ctx, transactionID, func(t *entity.Transaction) error {
		if !t.IsParty(actorID) {
			return errors.Forbidden("Only the buyer or seller can open a dispute", nil)
		}
		switch t.Status {
		case entity.TransactionStatusEscrowFunded,
			entity.TransactionStatusTransferInProgress,
			entity.TransactionStatusVerificationPending:
		default:
			return errors.InvalidTransition("transaction", t.Status, entity.TransactionStatusDisputed)
		}
		if t.EscrowStatus == entity.EscrowStatusRefundPending {
			return errors.BadRequest("A refund is in progress for this transaction", nil)
		}
		from = t.Status
		if err := t.TransitionTo(entity.TransactionStatusDisputed, uc.now()); err != nil {
			return err
		}
		t.AutoReleaseAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	openedByRole := entity.PartySeller
	if transaction.BuyerID == actorID {
		openedByRole = entity.PartyBuyer
	}
	now := uc.now()
	dispute := &entity.Dispute{
		ID:            uuid.New().String(),
		TransactionID: transaction.ID,
		ListingID:     transaction.ListingID,
		OpenedBy:      actorID,
		OpenedByRole:  openedByRole,
		RespondentID:  transaction.Counterparty(actorID),
		Reason:        reason,
		Evidence:      []entity.DisputeEvidence{},
		Status:        entity.DisputeStatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.disputeRepo.Create(ctx, dispute); err != nil {
		logger.LogTransactionError(transaction.ID, "create_dispute", err)
		return nil, err
	}

	uc.effects.Transition(transaction, from, transaction.Status, actorID, "Dispute opened: "+reason)
	data := map[string]interface{}{"transaction_id": transaction.ID, "dispute_id": dispute.ID, "reason": reason}
	uc.effects.Notify(dispute.RespondentID, entity.NotificationDisputeOpened,
		"Dispute opened", "The other party opened a dispute on your transaction", data)
	uc.effects.Email(dispute.RespondentID, service.EmailDisputeOpened, data)
	uc.effects.Publish(DomainEventDisputeOpened, transaction, data)

	return dispute, nil
}

type EvidenceInput struct {
	Type        string
	Title       string
	Description string
	FileURL     string
	Content     string
}

func (uc *DisputeUseCase) AddEvidence(ctx context.Context, transactionID, actorID string, input EvidenceInput) (*entity.Dispute, error) {
	if !evidenceTypes[input.Type] {
		return nil, errors.BadRequest("Evidence type must be screenshot, video, text or file", nil)
	}
	if input.FileURL == "" && input.Content == "" {
		return nil, errors.BadRequest("Evidence needs a file URL or content", nil)
	}

	dispute, err := uc.openDispute(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if dispute.OpenedBy != actorID && dispute.RespondentID != actorID {
		return nil, errors.Forbidden("Only the parties can add evidence", nil)
	}

	return uc.disputeRepo.UpdateFn(ctx, dispute.ID, func(d *entity.Dispute) error {
		if !d.IsOpen() {
			return errors.BadRequest("Dispute is already resolved", nil)
		}
		now := uc.now()
		d.Evidence = append(d.Evidence, entity.DisputeEvidence{
			ID:          uuid.New().String(),
			Type:        input.Type,
			Title:       input.Title,
			Description: input.Description,
			FileURL:     input.FileURL,
			Content:     input.Content,
			UploadedAt:  now,
			UploadedBy:  actorID,
		})
		d.UpdatedAt = now
		return nil
	})
}

func (uc *DisputeUseCase) StartInvestigation(ctx context.Context, transactionID string, admin Actor) (*entity.Dispute, error) {
	if !admin.IsAdmin() {
		return nil, errors.Forbidden("Admin access required", nil)
	}
	dispute, err := uc.openDispute(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	updated, err := uc.disputeRepo.UpdateFn(ctx, dispute.ID, func(d *entity.Dispute) error {
		if d.Status != entity.DisputeStatusOpen {
			return repository.ErrNoChange
		}
		d.Status = entity.DisputeStatusInvestigating
		d.UpdatedAt = uc.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.effects.Audit(admin, "dispute.investigate", "dispute", updated.ID, map[string]interface{}{"transaction_id": transactionID})
	return updated, nil
}

// Resolve settles a dispute by releasing escrow to the seller or refunding
// the buyer.
func (uc *DisputeUseCase) Resolve(ctx context.Context, transactionID string, admin Actor, resolution, notes string) (*entity.Dispute, error) {
	if !admin.IsAdmin() {
		return nil, errors.Forbidden("Admin access required", nil)
	}
	if resolution != entity.DisputeResolutionRelease && resolution != entity.DisputeResolutionRefund {
		return nil, errors.BadRequest("Resolution must be release or refund", nil)
	}

	dispute, err := uc.openDispute(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	var transaction *entity.Transaction
	if resolution == entity.DisputeResolutionRelease {
		transaction, err = uc.payments.ReleaseEscrow(ctx, transactionID, admin)
	} else {
		reason := "Dispute resolved in buyer's favour"
		if notes != "" {
			reason += ": " + notes
		}
		transaction, err = uc.payments.RefundPayment(ctx, transactionID, reason, admin)
	}
	if err != nil {
		return nil, err
	}

	resolved, err := uc.disputeRepo.UpdateFn(ctx, dispute.ID, func(d *entity.Dispute) error {
		if !d.IsOpen() {
			return repository.ErrNoChange
		}
		now := uc.now()
		d.Status = entity.DisputeStatusResolved
		d.Resolution = resolution
		d.ResolutionNotes = notes
		d.ResolvedBy = admin.ID
		d.ResolvedAt = &now
		d.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.effects.Audit(admin, "dispute.resolve", "dispute", resolved.ID, map[string]interface{}{
		"transaction_id": transactionID,
		"resolution":     resolution,
		"notes":          notes,
	})
	data := map[string]interface{}{"transaction_id": transactionID, "dispute_id": resolved.ID, "resolution": resolution}
	message := fmt.Sprintf("The dispute was resolved with a %s", resolution)
	uc.effects.Notify(transaction.BuyerID, entity.NotificationDisputeResolved, "Dispute resolved", message, data)
	uc.effects.Notify(transaction.SellerID, entity.NotificationDisputeResolved, "Dispute resolved", message, data)
	uc.effects.Publish(DomainEventDisputeClosed, transaction, data)

	return resolved, nil
}

func (uc *DisputeUseCase) Get(ctx context.Context, disputeID string, actor Actor) (*entity.Dispute, error) {
	dispute, err := uc.disputeRepo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && dispute.OpenedBy != actor.ID && dispute.RespondentID != actor.ID {
		return nil, errors.Forbidden("You don't have permission to view this dispute", nil)
	}
	return dispute, nil
}

func (uc *DisputeUseCase) openDispute(ctx context.Context, transactionID string) (*entity.Dispute, error) {
	dispute, err := uc.disputeRepo.FindOpenByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if dispute == nil {
		return nil, errors.NotFound("Open dispute", nil)
	}
	return dispute, nil
}
