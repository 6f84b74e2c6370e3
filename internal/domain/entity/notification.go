package entity

import "time"

const (
	NotificationOfferReceived       = "offer_received"
	NotificationOfferResponded      = "offer_responded"
	NotificationTransactionCreated  = "transaction_created"
	NotificationPaymentReceived     = "payment_received"
	NotificationPaymentFailed       = "payment_failed"
	NotificationStepCompleted       = "transfer_step_completed"
	NotificationReadyToConfirm      = "transfer_ready_to_confirm"
	NotificationTransactionComplete = "transaction_completed"
	NotificationTransactionCanceled = "transaction_cancelled"
	NotificationRefundIssued        = "refund_issued"
	NotificationDisputeOpened       = "dispute_opened"
	NotificationDisputeResolved     = "dispute_resolved"
)

type Notification struct {
	ID        string                 `json:"id" firestore:"id"`
	UserID    string                 `json:"user_id" firestore:"userId"`
	Type      string                 `json:"type" firestore:"type"`
	Title     string                 `json:"title" firestore:"title"`
	Message   string                 `json:"message" firestore:"message"`
	Data      map[string]interface{} `json:"data,omitempty" firestore:"data,omitempty"`
	Read      bool                   `json:"read" firestore:"read"`
	CreatedAt time.Time              `json:"created_at" firestore:"createdAt"`
}
