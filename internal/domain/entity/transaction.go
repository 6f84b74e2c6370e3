package entity

import (
	"time"
)

type Transaction struct {
	ID        string `json:"id" firestore:"id"`
	ListingID string `json:"listing_id" firestore:"listingId"`
	OfferID   string `json:"offer_id,omitempty" firestore:"offerId,omitempty"`
	BuyerID   string `json:"buyer_id" firestore:"buyerId"`
	SellerID  string `json:"seller_id" firestore:"sellerId"`
	Platform  string `json:"platform" firestore:"platform"`

	Amount       float64 `json:"amount" firestore:"amount"`
	Currency     string  `json:"currency" firestore:"currency"`
	PlatformFee  float64 `json:"platform_fee" firestore:"platformFee"`
	SellerPayout float64 `json:"seller_payout" firestore:"sellerPayout"`

	// Exact amounts in minor currency units (paise). The fee and payout
	// always sum to the amount.
	AmountMinor       int64 `json:"amount_minor" firestore:"amountMinor"`
	PlatformFeeMinor  int64 `json:"platform_fee_minor" firestore:"platformFeeMinor"`
	SellerPayoutMinor int64 `json:"seller_payout_minor" firestore:"sellerPayoutMinor"`

	Status        string `json:"status" firestore:"status"`
	PaymentStatus string `json:"payment_status" firestore:"paymentStatus"`
	EscrowStatus  string `json:"escrow_status" firestore:"escrowStatus"`

	TransferProgress []TransferStep `json:"transfer_progress" firestore:"transferProgress"`
	CurrentStep      int            `json:"current_step" firestore:"currentStep"`

	GatewayOrderID   string `json:"gateway_order_id,omitempty" firestore:"gatewayOrderId,omitempty"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty" firestore:"gatewayPaymentId,omitempty"`
	GatewayRefundID  string `json:"gateway_refund_id,omitempty" firestore:"gatewayRefundId,omitempty"`

	ConversationID     string `json:"conversation_id,omitempty" firestore:"conversationId,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty" firestore:"cancellationReason,omitempty"`
	RefundReason       string `json:"refund_reason,omitempty" firestore:"refundReason,omitempty"`
	ReleasedBy         string `json:"released_by,omitempty" firestore:"releasedBy,omitempty"`

	// Auto-release timer, armed when the last transfer step completes.
	AutoReleaseAt *time.Time `json:"auto_release_at,omitempty" firestore:"autoReleaseAt,omitempty"`

	CreatedAt   time.Time  `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time  `json:"updated_at" firestore:"updatedAt"`
	PaidAt      *time.Time `json:"paid_at,omitempty" firestore:"paidAt,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty" firestore:"completedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" firestore:"cancelledAt,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty" firestore:"refundedAt,omitempty"`

	RefundRequestedAt *time.Time `json:"refund_requested_at,omitempty" firestore:"refundRequestedAt,omitempty"`
}

type TransactionLog struct {
	ID            string    `json:"id" firestore:"id"`
	TransactionID string    `json:"transaction_id" firestore:"transactionId"`
	FromStatus    string    `json:"from_status,omitempty" firestore:"fromStatus,omitempty"`
	Status        string    `json:"status" firestore:"status"`
	Notes         string    `json:"notes,omitempty" firestore:"notes,omitempty"`
	CreatedBy     string    `json:"created_by" firestore:"createdBy"`
	CreatedAt     time.Time `json:"created_at" firestore:"createdAt"`
}

// TransitionTo moves the transaction along the transition table.
func (t *Transaction) TransitionTo(status string, now time.Time) error {
	if err := ValidateTransition(t.Status, status); err != nil {
		return err
	}
	t.Status = status
	t.UpdatedAt = now
	return nil
}

func (t *Transaction) IsParty(userID string) bool {
	return userID != "" && (t.BuyerID == userID || t.SellerID == userID)
}

// Counterparty returns the other participant, or "" for outsiders.
func (t *Transaction) Counterparty(userID string) string {
	switch userID {
	case t.BuyerID:
		return t.SellerID
	case t.SellerID:
		return t.BuyerID
	}
	return ""
}

func (t *Transaction) IsTerminal() bool {
	return IsTerminalStatus(t.Status)
}

func (t *Transaction) Step(stepNumber int) *TransferStep {
	for i := range t.TransferProgress {
		if t.TransferProgress[i].StepNumber == stepNumber {
			return &t.TransferProgress[i]
		}
	}
	return nil
}

func (t *Transaction) AllStepsCompleted() bool {
	for _, s := range t.TransferProgress {
		if !s.IsCompleted() {
			return false
		}
	}
	return len(t.TransferProgress) > 0
}

// ActivateFirstStep marks step one in progress once escrow is funded.
func (t *Transaction) ActivateFirstStep() {
	if len(t.TransferProgress) == 0 {
		return
	}
	if t.TransferProgress[0].Status == StepStatusPending {
		t.TransferProgress[0].Status = StepStatusInProgress
	}
	if t.CurrentStep < 1 {
		t.CurrentStep = t.TransferProgress[0].StepNumber
	}
}
