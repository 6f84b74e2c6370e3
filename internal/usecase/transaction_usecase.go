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
	"accountmarket/pkg/utils"
)

// cancellableStatuses are the pre-funding states a party may walk away from.
var cancellableStatuses = map[string]bool{
	entity.TransactionStatusInitiated:         true,
	entity.TransactionStatusPaymentPending:    true,
	entity.TransactionStatusPaymentProcessing: true,
}

type TransactionConfig struct {
	Currency         string
	AutoReleaseAfter time.Duration
}

type TransactionUseCase struct {
	transactionRepo repository.TransactionRepository
	listingRepo     repository.ListingRepository
	offerRepo       repository.OfferRepository
	fees            service.FeeCalculator
	plans           service.TransferPlanProvider
	velocity        *VelocityGuard
	payments        *PaymentUseCase
	effects         *SideEffects
	config          TransactionConfig
	now             func() time.Time
}

func NewTransactionUseCase(
	transactionRepo repository.TransactionRepository,
	listingRepo repository.ListingRepository,
	offerRepo repository.OfferRepository,
	fees service.FeeCalculator,
	plans service.TransferPlanProvider,
	velocity *VelocityGuard,
	payments *PaymentUseCase,
	effects *SideEffects,
	config TransactionConfig,
) *TransactionUseCase {
	if config.Currency == "" {
		config.Currency = "INR"
	}
	if config.AutoReleaseAfter <= 0 {
		config.AutoReleaseAfter = 72 * time.Hour
	}
	return &TransactionUseCase{
		transactionRepo: transactionRepo,
		listingRepo:     listingRepo,
		offerRepo:       offerRepo,
		fees:            fees,
		plans:           plans,
		velocity:        velocity,
		payments:        payments,
		effects:         effects,
		config:          config,
		now:             time.Now,
	}
}

type CreateTransactionInput struct {
	ListingID string
	OfferID   string
}

func (uc *TransactionUseCase) Create(ctx context.Context, buyerID string, input CreateTransactionInput) (*entity.Transaction, error) {
	listing, err := uc.listingRepo.GetByID(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsActive() {
		return nil, errors.BadRequest("Listing is not available for purchase", nil)
	}
	if listing.SellerID == buyerID {
		return nil, errors.BadRequest("Cannot buy your own listing", nil)
	}

	amount := listing.Price
	currency := listing.Currency
	if input.OfferID != "" {
		offer, err := uc.offerRepo.GetByID(ctx, input.OfferID)
		if err != nil {
			return nil, err
		}
		if offer.ListingID != listing.ID || offer.BuyerID != buyerID {
			return nil, errors.BadRequest("Offer does not belong to this listing and buyer", nil)
		}
		if offer.Status != entity.OfferStatusAccepted {
			return nil, errors.BadRequest(fmt.Sprintf("Offer is %s, only accepted offers can be purchased", offer.Status), nil)
		}
		amount = offer.Amount
		if offer.Currency != "" {
			currency = offer.Currency
		}
	}
	if amount <= 0 {
		return nil, errors.BadRequest("Transaction amount must be greater than zero", nil)
	}
	if currency == "" {
		currency = uc.config.Currency
	}

	if uc.velocity != nil {
		if err := uc.velocity.Check(ctx, buyerID); err != nil {
			return nil, err
		}
	}

	fee := uc.fees.CalculateFee(amount)
	amountMinor, feeMinor, payoutMinor := fee.Minor()
	now := uc.now()

	transaction := &entity.Transaction{
		ID:                uuid.New().String(),
		ListingID:         listing.ID,
		OfferID:           input.OfferID,
		BuyerID:           buyerID,
		SellerID:          listing.SellerID,
		Platform:          listing.Platform,
		Amount:            fee.Amount.InexactFloat64(),
		Currency:          currency,
		PlatformFee:       fee.PlatformFee.InexactFloat64(),
		SellerPayout:      fee.SellerPayout.InexactFloat64(),
		AmountMinor:       amountMinor,
		PlatformFeeMinor:  feeMinor,
		SellerPayoutMinor: payoutMinor,
		Status:            entity.TransactionStatusInitiated,
		PaymentStatus:     entity.PaymentStatusPending,
		EscrowStatus:      entity.EscrowStatusPending,
		TransferProgress:  service.NewTransferProgress(uc.plans.Steps(listing.Platform)),
		CurrentStep:       0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := uc.transactionRepo.CreateExclusive(ctx, transaction); err != nil {
		return nil, err
	}

	uc.effects.Transition(transaction, "", transaction.Status, buyerID, "Transaction created")
	uc.effects.OpenConversation(transaction)
	uc.effects.Notify(transaction.SellerID, entity.NotificationTransactionCreated,
		"New purchase", fmt.Sprintf("A buyer started a purchase of %s", listing.Title),
		map[string]interface{}{"transaction_id": transaction.ID, "listing_id": listing.ID, "amount": amount})

	return transaction, nil
}

type StepProofInput struct {
	ProofURL string
	Notes    string
}

// CompleteTransferStep attests one handover step. Steps complete strictly in
// order; completing the last one arms the auto-release timer.
func (uc *TransactionUseCase) CompleteTransferStep(ctx context.Context, transactionID string, stepNumber int, actorID string, input StepProofInput) (*entity.Transaction, error) {
	var steps []statusStep

	updated, err := uc.transactionRepo.UpdateFn(ctx, transactionID, func(t *entity.Transaction) error {
		steps = nil

		if !t.IsParty(actorID) {
			return errors.Forbidden("Only the buyer or seller can complete transfer steps", nil)
		}
		switch t.Status {
		case entity.TransactionStatusEscrowFunded, entity.TransactionStatusTransferInProgress:
		default:
			return errors.BadRequest(fmt.Sprintf("Cannot complete transfer steps while transaction is %s", t.Status), nil)
		}
		if t.EscrowStatus == entity.EscrowStatusRefundPending {
			return errors.BadRequest("A refund is in progress for this transaction", nil)
		}

		step := t.Step(stepNumber)
		if step == nil {
			return errors.BadRequest(fmt.Sprintf("Transfer step %d does not exist", stepNumber), nil)
		}
		if step.IsCompleted() {
			return errors.BadRequest(fmt.Sprintf("Transfer step %d is already completed", stepNumber), nil)
		}
		if t.CurrentStep != stepNumber {
			return errors.BadRequest(fmt.Sprintf("Transfer step %d must be completed first", t.CurrentStep), nil)
		}

		now := uc.now()
		if t.Status == entity.TransactionStatusEscrowFunded {
			s, err := walk(t, now, entity.TransactionStatusTransferInProgress)
			if err != nil {
				return err
			}
			steps = append(steps, s...)
		}

		step.Status = entity.StepStatusCompleted
		step.ProofURL = input.ProofURL
		step.Notes = input.Notes
		step.CompletedAt = &now
		step.CompletedBy = actorID
		t.CurrentStep = stepNumber + 1

		if next := t.Step(stepNumber + 1); next != nil {
			next.Status = entity.StepStatusInProgress
		}

		if t.AllStepsCompleted() {
			s, err := walk(t, now, entity.TransactionStatusTransferCompleted)
			if err != nil {
				return err
			}
			steps = append(steps, s...)
			releaseAt := now.Add(uc.config.AutoReleaseAfter)
			t.AutoReleaseAt = &releaseAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, s := range steps {
		uc.effects.Transition(updated, s.from, s.to, actorID, fmt.Sprintf("Transfer step %d completed", stepNumber))
	}

	data := map[string]interface{}{"transaction_id": updated.ID, "step_number": stepNumber}
	uc.effects.Notify(updated.Counterparty(actorID), entity.NotificationStepCompleted,
		"Transfer step completed", fmt.Sprintf("Step %d of %d has been completed", stepNumber, len(updated.TransferProgress)), data)
	if updated.Status == entity.TransactionStatusTransferCompleted {
		uc.effects.Notify(updated.BuyerID, entity.NotificationReadyToConfirm,
			"Ready to confirm", "All transfer steps are done. Confirm the transfer to release payment to the seller.", data)
	}

	return updated, nil
}

// AmendStepProof replaces the proof on a completed step. Only the user who
// completed it may amend, and only until the following step is done.
func (uc *TransactionUseCase) AmendStepProof(ctx context.Context, transactionID string, stepNumber int, actorID string, input StepProofInput) (*entity.Transaction, error) {
	if strings.TrimSpace(input.ProofURL) == "" && strings.TrimSpace(input.Notes) == "" {
		return nil, errors.BadRequest("Proof URL or notes are required", nil)
	}

	return uc.transactionRepo.UpdateFn(ctx, transactionID, func(t *entity.Transaction) error {
		if !t.IsParty(actorID) {
			return errors.Forbidden("You are not a party to this transaction", nil)
		}
		switch t.Status {
		case entity.TransactionStatusTransferInProgress, entity.TransactionStatusTransferCompleted:
		default:
			return errors.BadRequest(fmt.Sprintf("Cannot amend proof while transaction is %s", t.Status), nil)
		}

		step := t.Step(stepNumber)
		if step == nil || !step.IsCompleted() {
			return errors.BadRequest(fmt.Sprintf("Transfer step %d is not completed", stepNumber), nil)
		}
		if step.CompletedBy != actorID {
			return errors.Forbidden("Only the user who completed this step can amend its proof", nil)
		}
		if next := t.Step(stepNumber + 1); next != nil && next.IsCompleted() {
			return errors.BadRequest("Cannot amend a step once the following step is completed", nil)
		}

		now := uc.now()
		if input.ProofURL != "" {
			step.ProofURL = input.ProofURL
		}
		if input.Notes != "" {
			step.Notes = input.Notes
		}
		step.AmendedAt = &now
		return nil
	})
}

// BeginVerification lets the buyer pause auto-release while they check the
// account.
func (uc *TransactionUseCase) BeginVerification(ctx context.Context, transactionID, buyerID string) (*entity.Transaction, error) {
	var from string
	updated, err := uc.transactionRepo.UpdateFn(ctx, transactionID, func(t *entity.Transaction) error {
		from = ""
		if t.BuyerID != buyerID {
			return errors.Forbidden("Only the buyer can verify the transfer", nil)
		}
		if t.Status == entity.TransactionStatusVerificationPending {
			return repository.ErrNoChange
		}
		from = t.Status
		if err := t.TransitionTo(entity.TransactionStatusVerificationPending, uc.now()); err != nil {
			return err
		}
		t.AutoReleaseAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	if from != "" {
		uc.effects.Transition(updated, from, updated.Status, buyerID, "Buyer started verification")
	}
	return updated, nil
}

// ConfirmTransferComplete is the buyer's sign-off; it releases escrow.
func (uc *TransactionUseCase) ConfirmTransferComplete(ctx context.Context, transactionID, buyerID string) (*entity.Transaction, error) {
	transaction, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if transaction.BuyerID != buyerID {
		return nil, errors.Forbidden("Only the buyer can confirm the transfer", nil)
	}

	switch transaction.Status {
	case entity.TransactionStatusCompleted:
		return transaction, nil
	case entity.TransactionStatusTransferCompleted, entity.TransactionStatusVerificationPending:
	case entity.TransactionStatusEscrowFunded, entity.TransactionStatusTransferInProgress:
		return nil, errors.BadRequest("Cannot confirm transfer: steps not yet completed", nil)
	default:
		return nil, errors.InvalidTransition("transaction", transaction.Status, entity.TransactionStatusCompleted)
	}

	return uc.payments.ReleaseEscrow(ctx, transactionID, Actor{ID: buyerID, Role: RoleUser})
}

func (uc *TransactionUseCase) Cancel(ctx context.Context, transactionID, actorID, reason string) (*entity.Transaction, error) {
	var from string
	updated, err := uc.transactionRepo.UpdateFn(ctx, transactionID, func(t *entity.Transaction) error {
		from = ""
		if !t.IsParty(actorID) {
			return errors.Forbidden("Only the buyer or seller can cancel this transaction", nil)
		}
		if !cancellableStatuses[t.Status] {
			return errors.BadRequest(fmt.Sprintf("Cannot cancel at this stage, transaction is %s", t.Status), nil)
		}
		if t.EscrowStatus == entity.EscrowStatusRefundPending {
			return errors.BadRequest("A refund is in progress for this transaction", nil)
		}

		now := uc.now()
		from = t.Status
		if err := t.TransitionTo(entity.TransactionStatusCancelled, now); err != nil {
			return err
		}
		t.CancellationReason = reason
		t.CancelledAt = &now
		if t.EscrowStatus == entity.EscrowStatusFunded {
			t.EscrowStatus = entity.EscrowStatusRefunded
		} else {
			t.EscrowStatus = entity.EscrowStatusPending
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notes := "Transaction cancelled by seller"
	if updated.BuyerID == actorID {
		notes = "Transaction cancelled by buyer"
	}
	if reason != "" {
		notes += ": " + reason
	}
	uc.effects.Transition(updated, from, updated.Status, actorID, notes)
	uc.effects.Notify(updated.Counterparty(actorID), entity.NotificationTransactionCanceled,
		"Transaction cancelled", notes, map[string]interface{}{"transaction_id": updated.ID, "reason": reason})

	return updated, nil
}

func (uc *TransactionUseCase) Get(ctx context.Context, transactionID string, actor Actor) (*entity.Transaction, error) {
	transaction, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !transaction.IsParty(actor.ID) {
		return nil, errors.Forbidden("You don't have permission to view this transaction", nil)
	}
	return transaction, nil
}

// List returns the caller's transactions; role narrows to "buyer" or
// "seller", empty means both.
func (uc *TransactionUseCase) List(ctx context.Context, userID, role, status string, page, pageSize int) ([]*entity.Transaction, int64, error) {
	switch role {
	case "", entity.PartyBuyer, entity.PartySeller:
	default:
		return nil, 0, errors.BadRequest("Role must be buyer or seller", nil)
	}

	pagination := utils.NewPaginationParams(page, pageSize)
	return uc.transactionRepo.ListByUserID(ctx, userID, role, status, pagination.PageSize, pagination.Offset)
}

func (uc *TransactionUseCase) Logs(ctx context.Context, transactionID string, actor Actor) ([]*entity.TransactionLog, error) {
	if _, err := uc.Get(ctx, transactionID, actor); err != nil {
		return nil, err
	}

	logs, err := uc.transactionRepo.ListLogsByTransactionID(ctx, transactionID)
	if err != nil {
		logger.Error("Failed to list logs for transaction %s: %v", transactionID, err)
		return nil, err
	}
	return logs, nil
}
