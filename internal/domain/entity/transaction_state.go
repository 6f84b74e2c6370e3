package entity

import "accountmarket/pkg/errors"

const (
	TransactionStatusInitiated           = "initiated"
	TransactionStatusPaymentPending      = "payment_pending"
	TransactionStatusPaymentProcessing   = "payment_processing"
	TransactionStatusPaymentFailed       = "payment_failed"
	TransactionStatusEscrowFunded        = "escrow_funded"
	TransactionStatusTransferInProgress  = "transfer_in_progress"
	TransactionStatusTransferCompleted   = "transfer_completed"
	TransactionStatusVerificationPending = "verification_pending"
	TransactionStatusCompleted           = "completed"
	TransactionStatusDisputed            = "disputed"
	TransactionStatusCancelled           = "cancelled"
	TransactionStatusRefunded            = "refunded"
)

const (
	PaymentStatusPending      = "pending"
	PaymentStatusOrderCreated = "order_created"
	PaymentStatusCaptured     = "captured"
	PaymentStatusFailed       = "failed"
	PaymentStatusRefunded     = "refunded"
	PaymentStatusCompleted    = "completed"
)

// EscrowStatusRefundPending marks escrow claimed by a refund whose gateway
// call has not been settled yet. Only a refund can move it on.
const (
	EscrowStatusPending       = "pending"
	EscrowStatusFunded        = "funded"
	EscrowStatusRefundPending = "refund_pending"
	EscrowStatusReleased      = "released"
	EscrowStatusRefunded      = "refunded"
)

// transactionTransitions is the only source of legal status changes.
// payment_processing -> cancelled is a recovery edge for buyers who abandon
// a payment the gateway never confirmed.
var transactionTransitions = map[string][]string{
	TransactionStatusInitiated:           {TransactionStatusPaymentPending, TransactionStatusCancelled},
	TransactionStatusPaymentPending:      {TransactionStatusPaymentProcessing, TransactionStatusCancelled},
	TransactionStatusPaymentProcessing:   {TransactionStatusEscrowFunded, TransactionStatusPaymentFailed, TransactionStatusCancelled},
	TransactionStatusPaymentFailed:       {TransactionStatusPaymentPending, TransactionStatusCancelled},
	TransactionStatusEscrowFunded:        {TransactionStatusTransferInProgress, TransactionStatusDisputed, TransactionStatusRefunded},
	TransactionStatusTransferInProgress:  {TransactionStatusTransferCompleted, TransactionStatusDisputed},
	TransactionStatusTransferCompleted:   {TransactionStatusVerificationPending, TransactionStatusCompleted},
	TransactionStatusVerificationPending: {TransactionStatusCompleted, TransactionStatusDisputed},
	TransactionStatusCompleted:           {},
	TransactionStatusDisputed:            {TransactionStatusCompleted, TransactionStatusRefunded},
	TransactionStatusCancelled:           {},
	TransactionStatusRefunded:            {},
}

// TransactionStatuses lists every known status in lifecycle order.
var TransactionStatuses = []string{
	TransactionStatusInitiated,
	TransactionStatusPaymentPending,
	TransactionStatusPaymentProcessing,
	TransactionStatusPaymentFailed,
	TransactionStatusEscrowFunded,
	TransactionStatusTransferInProgress,
	TransactionStatusTransferCompleted,
	TransactionStatusVerificationPending,
	TransactionStatusCompleted,
	TransactionStatusDisputed,
	TransactionStatusCancelled,
	TransactionStatusRefunded,
}

func CanTransition(from, to string) bool {
	for _, s := range transactionTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func ValidateTransition(from, to string) error {
	if !CanTransition(from, to) {
		return errors.InvalidTransition("transaction", from, to)
	}
	return nil
}

// IsTerminalStatus reports statuses with no outgoing edges.
func IsTerminalStatus(status string) bool {
	next, ok := transactionTransitions[status]
	return ok && len(next) == 0
}
