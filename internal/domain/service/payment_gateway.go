package service

import (
	"context"
)

// Gateway payment statuses as reported by the provider.
const (
	GatewayPaymentCreated    = "created"
	GatewayPaymentAuthorized = "authorized"
	GatewayPaymentCaptured   = "captured"
	GatewayPaymentFailed     = "failed"
	GatewayPaymentRefunded   = "refunded"
)

type CreateOrderRequest struct {
	Receipt  string
	Amount   float64
	Currency string
	Notes    map[string]string
}

type GatewayOrder struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Status   string  `json:"status"`
}

type GatewayPayment struct {
	ID       string
	OrderID  string
	Amount   float64
	Currency string
	Status   string
	Method   string
}

// RefundRequest refunds a captured payment. Receipt identifies the refund on
// our side; the transaction id is used so retries can be matched up.
type RefundRequest struct {
	PaymentID string
	Amount    float64
	Receipt   string
}

type GatewayRefund struct {
	ID        string
	PaymentID string
	Amount    float64
	Status    string
}

// PaymentGateway is the subset of the payment provider the escrow engine
// relies on.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error)
	Refund(ctx context.Context, req RefundRequest) (*GatewayRefund, error)
}
