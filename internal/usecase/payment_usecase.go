package usecase

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"time"

	"accountmarket/internal/domain/entity"
	"accountmarket/internal/domain/repository"
	"accountmarket/internal/domain/service"
	"accountmarket/pkg/errors"
	"accountmarket/pkg/logger"
)

const (
	escrowLockTTL      = 2 * time.Minute
	escrowLockAttempts = 20
	escrowLockWait     = 100 * time.Millisecond
	webhookEventTTL    = 7 * 24 * time.Hour
)

// Webhook processing outcomes reported back to the gateway.
const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookIgnored   = "ignored"
	WebhookFailed    = "error"
)

// Gateway webhook event types.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundCreated   = "refund.created"
	EventRefundProcessed = "refund.processed"
)

// Domain events published to the event topic.
const (
	DomainEventEscrowFunded   = "escrow.funded"
	DomainEventEscrowReleased = "escrow.released"
	DomainEventEscrowRefunded = "escrow.refunded"
	DomainEventDisputeOpened  = "dispute.opened"
	DomainEventDisputeClosed  = "dispute.resolved"
)

type PaymentUseCase struct {
	transactionRepo repository.TransactionRepository
	processedEvents repository.ProcessedEventRepository
	gateway         service.PaymentGateway
	verifier        service.SignatureVerifier
	locks           service.LockManager
	effects         *SideEffects
	observer        Observer
	now             func() time.Time
}

func NewPaymentUseCase(
	transactionRepo repository.TransactionRepository,
	processedEvents repository.ProcessedEventRepository,
	gateway service.PaymentGateway,
	verifier service.SignatureVerifier,
	locks service.LockManager,
	effects *SideEffects,
	observer Observer,
) *PaymentUseCase {
	if observer == nil {
		observer = noopObserver{}
	}
	return &PaymentUseCase{
		transactionRepo: transactionRepo,
		processedEvents: processedEvents,
		gateway:         gateway,
		verifier:        verifier,
		locks:           locks,
		effects:         effects,
		observer:        observer,
		now:             time.Now,
	}
}

type PaymentOrder struct {
	TransactionID string  `json:"transaction_id"`
	OrderID       string  `json:"order_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
}

func orderFor(t *entity.Transaction) *PaymentOrder {
	return &PaymentOrder{
		TransactionID: t.ID,
		OrderID:       t.GatewayOrderID,
		Amount:        t.Amount,
		Currency:      t.Currency,
		Status:        t.Status,
	}
}

func isPaid(t *entity.Transaction) bool {
	return t.EscrowStatus == entity.EscrowStatusFunded ||
		t.EscrowStatus == entity.EscrowStatusReleased ||
		t.PaymentStatus == entity.PaymentStatusCaptured ||
		t.PaymentStatus == entity.PaymentStatusCompleted
}

// CreateOrder opens a gateway order for the buyer to pay. Calling it again
// while the order is still payable returns the same order.
func (uc *PaymentUseCase) CreateOrder(ctx context.Context, transactionID, buyerID string) (*PaymentOrder, error) {
	transaction, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if transaction.BuyerID != buyerID {
		return nil, errors.Forbidden("Only the buyer can pay for this transaction", nil)
	}
	if isPaid(transaction) {
		return nil, errors.BadRequest("Transaction is already paid", nil)
	}
	if transaction.Status == entity.TransactionStatusPaymentPending && transaction.GatewayOrderID != "" {
		return orderFor(transaction), nil
	}
	if transaction.Status != entity.TransactionStatusPaymentPending {
		if err := entity.ValidateTransition(transaction.Status, entity.TransactionStatusPaymentPending); err != nil {
			return nil, err
		}
	}

	started := time.Now()
	order, err := uc.gateway.CreateOrder(ctx, service.CreateOrderRequest{
		Receipt:  transaction.ID,
		Amount:   transaction.Amount,
		Currency: transaction.Currency,
		Notes: map[string]string{
			"transaction_id": transaction.ID,
			"listing_id":     transaction.ListingID,
		},
	})
	uc.observer.ObserveGatewayCall("create_order", started, err)
	if err != nil {
		return nil, errors.GatewayError("Failed to create payment order", err)
	}

	var from string
	updated, err := uc.transactionRepo.UpdateFn(ctx, transactionID, func(t *entity.Transaction) error {
		from = ""
		if isPaid(t) {
			return errors.BadRequest("Transaction is already paid", nil)
		}
		if t.Status == entity.TransactionStatusPaymentPending && t.GatewayOrderID != "" {
			return repository.ErrNoChange
		}
		if t.Status != entity.TransactionStatusPaymentPending {
			from = t.Status
			if err := t.TransitionTo(entity.TransactionStatusPaymentPending, uc.now()); err != nil {
				return err
			}
		}
		t.GatewayOrderID = order.ID
		t.GatewayPaymentID = ""
		t.PaymentStatus = entity.PaymentStatusOrderCreated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated.GatewayOrderID != order.ID {
		logger.Warn("Discarding gateway order %s, transaction %s already has order %s", order.ID, transactionID, updated.GatewayOrderID)
	} else if from != "" {
		uc.effects.Transition(updated, from, updated.Status, buyerID, "Payment order created")
	}

	return orderFor(updated), nil
}

type PaymentProof struct {
	OrderID   string
	PaymentID string
	Signature string
}

// CapturePayment verifies the client's payment proof and funds escrow. A
// tampered signature is rejected before anything is read or written.
func (uc *PaymentUseCase) CapturePayment(ctx context.Context, transactionID, buyerID string, proof PaymentProof) (*entity.Transaction, error) {
	if !uc.verifier.VerifyPaymentSignature(proof.OrderID, proof.PaymentID, proof.Signature) {
		logger.Warn("Invalid payment signature for transaction %s", transactionID)
		return nil, errors.InvalidSignature("Payment signature verification failed")
	}

	transaction, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if transaction.BuyerID != buyerID {
		return nil, errors.Forbidden("Only the buyer can confirm this payment", nil)
	}
	if transaction.GatewayOrderID == "" || transaction.GatewayOrderID != proof.OrderID {
		return nil, errors.BadRequest("Payment order does not match this transaction", nil)
	}
	if isPaid(transaction) {
		if transaction.GatewayPaymentID == proof.PaymentID {
			return transaction, nil
		}
		return nil, errors.BadRequest("Transaction is already paid", nil)
	}

	started := time.Now()
	payment, err := uc.gateway.FetchPayment(ctx, proof.PaymentID)
	uc.observer.ObserveGatewayCall("fetch_payment", started, err)
	if err != nil {
		return nil, errors.GatewayError("Failed to fetch payment from gateway", err)
	}

	updated, _, err := uc.applyCapture(ctx, transactionID, payment, buyerID)
	return updated, err
}

func (uc *PaymentUseCase) checkCapturedPayment(transaction *entity.Transaction, payment *service.GatewayPayment) error {
	if payment.OrderID != transaction.GatewayOrderID {
		return errors.BadRequest("Payment does not belong to this order", nil)
	}
	switch payment.Status {
	case service.GatewayPaymentCaptured:
	case service.GatewayPaymentFailed:
		return errors.BadRequest("Payment failed at the gateway", nil)
	default:
		return errors.BadRequest(fmt.Sprintf("Payment is %s, not captured", payment.Status), nil)
	}
	if math.Abs(payment.Amount-transaction.Amount) > 0.005 {
		return errors.BadRequest("Payment amount does not match the transaction amount", nil)
	}
	return nil
}

type statusStep struct{ from, to string }

// walk applies each status in path, recording the edges it took.
func walk(t *entity.Transaction, now time.Time, path ...string) ([]statusStep, error) {
	var steps []statusStep
	for _, next := range path {
		from := t.Status
		if err := t.TransitionTo(next, now); err != nil {
			return nil, err
		}
		steps = append(steps, statusStep{from: from, to: next})
	}
	return steps, nil
}

// applyCapture is the single idempotent routine that funds escrow, shared by
// the client verification call and the payment.captured webhook. It reports
// whether this call performed the change.
func (uc *PaymentUseCase) applyCapture(ctx context.Context, transactionID string, payment *service.GatewayPayment, actorID string) (*entity.Transaction, bool, error) {
	var steps []statusStep
	applied := false

	updated, err := uc.transactionRepo.UpdateFn(ctx, transactionID, func(t *entity.Transaction) error {
		steps, applied = nil, false

		if isPaid(t) {
			if t.GatewayPaymentID == payment.ID {
				return repository.ErrNoChange
			}
			return errors.BadRequest("Transaction is already paid", nil)
		}
		if err := uc.checkCapturedPayment(t, payment); err != nil {
			return err
		}

		now := uc.now()
		var path []string
		switch t.Status {
		case entity.TransactionStatusPaymentFailed:
			path = []string{entity.TransactionStatusPaymentPending, entity.TransactionStatusPaymentProcessing, entity.TransactionStatusEscrowFunded}
		case entity.TransactionStatusPaymentPending:
			path = []string{entity.TransactionStatusPaymentProcessing, entity.TransactionStatusEscrowFunded}
		default:
			path = []string{entity.TransactionStatusEscrowFunded}
		}

		var err error
		if steps, err = walk(t, now, path...); err != nil {
			return err
		}

		t.GatewayPaymentID = payment.ID
		t.PaymentStatus = entity.PaymentStatusCaptured
		t.EscrowStatus = entity.EscrowStatusFunded
		t.PaidAt = &now
		t.ActivateFirstStep()
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !applied {
		return updated, false, nil
	}

	for _, s := range steps {
		uc.effects.Transition(updated, s.from, s.to, actorID, "Payment captured: "+payment.ID)
	}

	data := map[string]interface{}{"transaction_id": updated.ID, "amount": updated.Amount, "currency": updated.Currency}
	uc.effects.Notify(updated.BuyerID, entity.NotificationPaymentReceived,
		"Payment received", "Your payment is held in escrow until the transfer is complete", data)
	uc.effects.Notify(updated.SellerID, entity.NotificationPaymentReceived,
		"Escrow funded", "The buyer's payment is in escrow, you can start the account transfer", data)
	uc.effects.Email(updated.BuyerID, service.EmailEscrowFunded, data)
	uc.effects.Email(updated.SellerID, service.EmailEscrowFunded, data)
	uc.effects.Publish(DomainEventEscrowFunded, updated, map[string]interface{}{
		"payment_id": payment.ID,
		"amount":     updated.Amount,
		"currency":   updated.Currency,
	})

	return updated, true, nil
}

// applyFailure records a gateway payment failure for a transaction that has
// not been funded yet. Any other state is left untouched.
func (uc *PaymentUseCase) applyFailure(ctx context.Context, transactionID, reason string) (*entity.Transaction, bool, error) {
	var steps []statusStep
	applied := false

	updated, err := uc.transactionRepo.UpdateFn(ctx, transactionID, func(t *entity.Transaction) error {
		steps, applied = nil, false

		var path []string
		switch t.Status {
		case entity.TransactionStatusPaymentPending:
			path = []string{entity.TransactionStatusPaymentProcessing, entity.TransactionStatusPaymentFailed}
		case entity.TransactionStatusPaymentProcessing:
			path = []string{entity.TransactionStatusPaymentFailed}
		default:
			return repository.ErrNoChange
		}

		var err error
		if steps, err = walk(t, uc.now(), path...); err != nil {
			return err
		}
		t.PaymentStatus = entity.PaymentStatusFailed
		applied = true
		return nil
	})
	if err != nil || !applied {
		return updated, false, err
	}

	for _, s := range steps {
		uc.effects.Transition(updated, s.from, s.to, SystemActor.ID, reason)
	}
	uc.effects.Notify(updated.BuyerID, entity.NotificationPaymentFailed,
		"Payment failed", "Your payment could not be completed. You can retry from the transaction page.",
		map[string]interface{}{"transaction_id": updated.ID, "reason": reason})

	return updated, true, nil
}

// acquireEscrowLock serializes money movement for one transaction across
// replicas. Waiters retry briefly so a concurrent duplicate becomes a no-op
// instead of an error.
func (uc *PaymentUseCase) acquireEscrowLock(ctx context.Context, transactionID string) (func(), error) {
	key := "escrow:" + transactionID
	for attempt := 0; ; attempt++ {
		unlock, err := uc.locks.Acquire(ctx, key, escrowLockTTL)
		if err == nil {
			return unlock, nil
		}
		if !stderrors.Is(err, service.ErrLockHeld) {
			return nil, errors.Internal("Failed to acquire escrow lock", err)
		}
		if attempt+1 >= escrowLockAttempts {
			return nil, errors.Conflict("Another escrow operation is in progress for this transaction")
		}
		select {
		case <-time.After(escrowLockWait):
		case <-ctx.Done():
			return nil, errors.Internal("Escrow lock wait cancelled", ctx.Err())
		}
	}
}

// ReleaseEscrow completes the transaction and pays the seller. It is the only
// place money leaves escrow towards the seller; repeated calls return the
// completed transaction without side effects.
func (uc *PaymentUseCase) ReleaseEscrow(ctx context.Context, transactionID string, actor Actor) (*entity.Transaction, error) {
	unlock, err := uc.acquireEscrowLock(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var from string
	released := false

	updated, err := uc.transactionRepo.UpdateFn(ctx, transactionID, func(t *entity.Transaction) error {
		released = false

		if t.EscrowStatus == entity.EscrowStatusReleased {
			return repository.ErrNoChange
		}
		if !actor.IsAdmin() && !actor.IsSystem() && t.BuyerID != actor.ID {
			return errors.Forbidden("Only the buyer or an admin can release escrow", nil)
		}
		if t.EscrowStatus == entity.EscrowStatusRefundPending {
			if actor.IsSystem() {
				return repository.ErrNoChange
			}
			return errors.BadRequest("A refund is in progress for this transaction", nil)
		}
		if t.EscrowStatus != entity.EscrowStatusFunded {
			return errors.BadRequest(fmt.Sprintf("Escrow is %s, not funded", t.EscrowStatus), nil)
		}
		if t.Status == entity.TransactionStatusDisputed && !actor.IsAdmin() {
			return errors.BadRequest("Transaction is under dispute, an admin must resolve it", nil)
		}
		if actor.IsSystem() && t.Status != entity.TransactionStatusTransferCompleted {
			return repository.ErrNoChange
		}

		now := uc.now()
		from = t.Status
		if err := t.TransitionTo(entity.TransactionStatusCompleted, now); err != nil {
			return err
		}
		t.EscrowStatus = entity.EscrowStatusReleased
		t.PaymentStatus = entity.PaymentStatusCompleted
		t.CompletedAt = &now
		t.ReleasedBy = actor.ID
		t.AutoReleaseAt = nil
		released = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !released {
		return updated, nil
	}

	uc.effects.Transition(updated, from, updated.Status, actor.ID, "Escrow released to seller")

	data := map[string]interface{}{
		"transaction_id": updated.ID,
		"amount":         updated.Amount,
		"seller_payout":  updated.SellerPayout,
		"currency":       updated.Currency,
	}
	uc.effects.Notify(updated.BuyerID, entity.NotificationTransactionComplete,
		"Transaction completed", "The account transfer is complete", data)
	uc.effects.Notify(updated.SellerID, entity.NotificationTransactionComplete,
		"Payment released", fmt.Sprintf("%.2f %s has been released to you", updated.SellerPayout, updated.Currency), data)
	uc.effects.Email(updated.BuyerID, service.EmailTransactionComplete, data)
	uc.effects.Email(updated.SellerID, service.EmailTransactionComplete, data)
	uc.effects.Publish(DomainEventEscrowReleased, updated, map[string]interface{}{
		"seller_id":           updated.SellerID,
		"seller_payout":       updated.SellerPayout,
		"seller_payout_minor": updated.SellerPayoutMinor,
		"platform_fee":        updated.PlatformFee,
		"platform_fee_minor":  updated.PlatformFeeMinor,
		"currency":            updated.Currency,
		"released_by":         actor.ID,
	})
	if actor.IsAdmin() {
		uc.effects.Audit(actor, "escrow.release", "transaction", updated.ID, map[string]interface{}{"from_status": from})
	}

	return updated, nil
}

// RefundPayment returns the full amount to the buyer. The escrow is first
// claimed as refund_pending in a short serialized update, which shuts out any
// release. The gateway call runs after that with no lock held, keyed by the
// transaction id as receipt.
func (uc *PaymentUseCase) RefundPayment(ctx context.Context, transactionID, reason string, actor Actor) (*entity.Transaction, error) {
	claimed, resumed, err := uc.claimRefund(ctx, transactionID, reason)
	if err != nil {
		return nil, err
	}
	if claimed.EscrowStatus == entity.EscrowStatusRefunded {
		return claimed, nil
	}

	refund, err := uc.issueRefund(ctx, claimed, resumed)
	if err != nil {
		uc.expireRefundClaim(ctx, transactionID)
		return nil, err
	}

	var from string
	settled := false
	updated, err := uc.transactionRepo.UpdateFn(ctx, transactionID, func(t *entity.Transaction) error {
		settled = false
		if t.EscrowStatus == entity.EscrowStatusRefunded {
			return repository.ErrNoChange
		}
		if t.EscrowStatus != entity.EscrowStatusRefundPending {
			return errors.BadRequest(fmt.Sprintf("Escrow is %s, refund claim was lost", t.EscrowStatus), nil)
		}
		now := uc.now()
		from = t.Status
		if err := t.TransitionTo(entity.TransactionStatusRefunded, now); err != nil {
			return err
		}
		t.EscrowStatus = entity.EscrowStatusRefunded
		t.PaymentStatus = entity.PaymentStatusRefunded
		t.GatewayRefundID = refund.ID
		t.RefundedAt = &now
		t.AutoReleaseAt = nil
		settled = true
		return nil
	})
	if err != nil {
		// The claim stays in place, so a retry settles without refunding twice.
		logger.Error("Refund %s issued but transaction %s was not updated: %v", refund.ID, transactionID, err)
		return nil, err
	}
	if !settled {
		return updated, nil
	}

	uc.effects.Transition(updated, from, updated.Status, actor.ID, "Refunded: "+reason)

	data := map[string]interface{}{
		"transaction_id": updated.ID,
		"amount":         updated.Amount,
		"currency":       updated.Currency,
		"reason":         reason,
	}
	uc.effects.Notify(updated.BuyerID, entity.NotificationRefundIssued,
		"Refund issued", fmt.Sprintf("%.2f %s is being refunded to you", updated.Amount, updated.Currency), data)
	uc.effects.Notify(updated.SellerID, entity.NotificationRefundIssued,
		"Transaction refunded", "The buyer has been refunded for this transaction", data)
	uc.effects.Email(updated.BuyerID, service.EmailRefundIssued, data)
	uc.effects.Publish(DomainEventEscrowRefunded, updated, map[string]interface{}{
		"refund_id": refund.ID,
		"amount":    updated.Amount,
		"reason":    reason,
	})
	if actor.IsAdmin() {
		uc.effects.Audit(actor, "escrow.refund", "transaction", updated.ID, map[string]interface{}{
			"reason":      reason,
			"refund_id":   refund.ID,
			"from_status": from,
		})
	}

	return updated, nil
}

const refundClaimTimeout = 2 * time.Minute

// claimRefund moves funded escrow to refund_pending. A claim older than
// refundClaimTimeout belongs to an attempt that died after or during its
// gateway call and is taken over; resumed reports that case.
func (uc *PaymentUseCase) claimRefund(ctx context.Context, transactionID, reason string) (*entity.Transaction, bool, error) {
	unlock, err := uc.acquireEscrowLock(ctx, transactionID)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	resumed := false
	claimed, err := uc.transactionRepo.UpdateFn(ctx, transactionID, func(t *entity.Transaction) error {
		resumed = false
		now := uc.now()

		switch t.EscrowStatus {
		case entity.EscrowStatusRefunded:
			return repository.ErrNoChange
		case entity.EscrowStatusReleased:
			return errors.BadRequest("Escrow has already been released to the seller", nil)
		case entity.EscrowStatusRefundPending:
			if t.RefundRequestedAt != nil && now.Sub(*t.RefundRequestedAt) < refundClaimTimeout {
				return errors.Conflict("A refund is already in progress for this transaction")
			}
			resumed = true
			t.RefundRequestedAt = &now
			return nil
		}

		if t.GatewayPaymentID == "" || t.PaymentStatus != entity.PaymentStatusCaptured || t.EscrowStatus != entity.EscrowStatusFunded {
			return errors.BadRequest("No captured payment to refund", nil)
		}
		if err := entity.ValidateTransition(t.Status, entity.TransactionStatusRefunded); err != nil {
			return err
		}
		t.EscrowStatus = entity.EscrowStatusRefundPending
		t.RefundReason = reason
		t.RefundRequestedAt = &now
		t.AutoReleaseAt = nil
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return claimed, resumed, nil
}

// expireRefundClaim lets the next attempt resume at once after a gateway
// error. Resuming checks the gateway before refunding again.
func (uc *PaymentUseCase) expireRefundClaim(ctx context.Context, transactionID string) {
	_, err := uc.transactionRepo.UpdateFn(ctx, transactionID, func(t *entity.Transaction) error {
		if t.EscrowStatus != entity.EscrowStatusRefundPending {
			return repository.ErrNoChange
		}
		t.RefundRequestedAt = nil
		return nil
	})
	if err != nil {
		logger.LogTransactionError(transactionID, "expire_refund_claim", err)
	}
}

// issueRefund calls the gateway for a claimed refund. When resuming, the
// gateway is asked first whether an earlier attempt already refunded it.
func (uc *PaymentUseCase) issueRefund(ctx context.Context, t *entity.Transaction, resumed bool) (*service.GatewayRefund, error) {
	if resumed {
		started := time.Now()
		payment, err := uc.gateway.FetchPayment(ctx, t.GatewayPaymentID)
		uc.observer.ObserveGatewayCall("fetch_payment", started, err)
		if err != nil {
			return nil, errors.GatewayError("Failed to check refund state", err)
		}
		if payment.Status == service.GatewayPaymentRefunded {
			logger.Info("Payment %s already refunded at the gateway, settling transaction %s", payment.ID, t.ID)
			return &service.GatewayRefund{PaymentID: payment.ID, Amount: t.Amount, Status: "processed"}, nil
		}
	}

	started := time.Now()
	refund, err := uc.gateway.Refund(ctx, service.RefundRequest{
		PaymentID: t.GatewayPaymentID,
		Amount:    t.Amount,
		Receipt:   t.ID,
	})
	uc.observer.ObserveGatewayCall("refund", started, err)
	if err != nil {
		return nil, errors.GatewayError("Failed to issue refund", err)
	}
	return refund, nil
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity webhookPayment `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
				Amount    int64  `json:"amount"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

type webhookPayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	ErrorDescription string `json:"error_description"`
}

func (p webhookPayment) toGateway() *service.GatewayPayment {
	return &service.GatewayPayment{
		ID:       p.ID,
		OrderID:  p.OrderID,
		Amount:   float64(p.Amount) / 100,
		Currency: p.Currency,
		Status:   p.Status,
		Method:   p.Method,
	}
}

// HandleWebhook authenticates and applies one gateway delivery. Only a bad
// signature is returned as an error; everything else is acknowledged with
// an outcome string so the gateway does not retry forever.
func (uc *PaymentUseCase) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) (string, error) {
	if !uc.verifier.VerifyWebhookSignature(body, signature) {
		uc.observer.ObserveWebhook("unknown", "invalid_signature")
		logger.Warn("Rejected webhook with invalid signature")
		return "", errors.InvalidSignature("Webhook signature verification failed")
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		logger.Warn("Ignoring malformed webhook payload: %v", err)
		uc.observer.ObserveWebhook("unknown", WebhookIgnored)
		return WebhookIgnored, nil
	}

	if eventID == "" {
		eventID = envelope.Event + ":" + envelope.Payload.Payment.Entity.ID + envelope.Payload.Refund.Entity.ID
	}
	if uc.processedEvents != nil {
		fresh, err := uc.processedEvents.MarkProcessed(ctx, eventID, webhookEventTTL)
		if err != nil {
			logger.Warn("Webhook dedup unavailable for %s, relying on state checks: %v", eventID, err)
		} else if !fresh {
			uc.observer.ObserveWebhook(envelope.Event, WebhookDuplicate)
			return WebhookDuplicate, nil
		}
	}

	outcome, err := uc.dispatchWebhook(ctx, envelope)
	if err != nil {
		logger.Error("Webhook %s (%s) failed: %v", eventID, envelope.Event, err)
		if uc.processedEvents != nil {
			if ferr := uc.processedEvents.Forget(ctx, eventID); ferr != nil {
				logger.Warn("Failed to forget webhook %s: %v", eventID, ferr)
			}
		}
		outcome = WebhookFailed
	}
	uc.observer.ObserveWebhook(envelope.Event, outcome)
	return outcome, nil
}

func (uc *PaymentUseCase) dispatchWebhook(ctx context.Context, envelope webhookEnvelope) (string, error) {
	payment := envelope.Payload.Payment.Entity

	switch envelope.Event {
	case EventPaymentCaptured:
		transaction, err := uc.transactionRepo.GetByGatewayOrderID(ctx, payment.OrderID)
		if err != nil {
			if errors.Is(err, errors.CodeNotFound) {
				logger.Warn("payment.captured for unknown order %s", payment.OrderID)
				return WebhookIgnored, nil
			}
			return "", err
		}
		if _, _, err := uc.applyCapture(ctx, transaction.ID, payment.toGateway(), SystemActor.ID); err != nil {
			if errors.Is(err, errors.CodeInvalidTransition) || errors.Is(err, errors.CodeBadRequest) {
				logger.Error("Captured payment %s cannot fund transaction %s (%v), manual refund required", payment.ID, transaction.ID, err)
				return WebhookIgnored, nil
			}
			return "", err
		}
		return WebhookProcessed, nil

	case EventPaymentFailed:
		transaction, err := uc.transactionRepo.GetByGatewayOrderID(ctx, payment.OrderID)
		if err != nil {
			if errors.Is(err, errors.CodeNotFound) {
				logger.Warn("payment.failed for unknown order %s", payment.OrderID)
				return WebhookIgnored, nil
			}
			return "", err
		}
		reason := payment.ErrorDescription
		if reason == "" {
			reason = "Payment failed at the gateway"
		}
		if _, _, err := uc.applyFailure(ctx, transaction.ID, reason); err != nil {
			return "", err
		}
		return WebhookProcessed, nil

	case EventRefundCreated, EventRefundProcessed:
		refund := envelope.Payload.Refund.Entity
		logger.Info("Gateway refund %s acknowledged for payment %s", refund.ID, refund.PaymentID)
		return WebhookProcessed, nil

	default:
		logger.Info("Ignoring unhandled webhook event %q", envelope.Event)
		return WebhookIgnored, nil
	}
}
