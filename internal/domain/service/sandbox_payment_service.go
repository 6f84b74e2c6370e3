package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"accountmarket/pkg/logger"
)

// SandboxPaymentService is an in-process gateway for local development. It
// signs payment proofs with the configured key secret so the normal
// verification path is exercised end to end.
type SandboxPaymentService struct {
	keySecret []byte

	mu       sync.Mutex
	orders   map[string]*GatewayOrder
	payments map[string]*GatewayPayment
	// refunds is keyed by receipt, falling back to the refund id.
	refunds map[string]*GatewayRefund
}

func NewSandboxPaymentService(keySecret string) *SandboxPaymentService {
	return &SandboxPaymentService{
		keySecret: []byte(keySecret),
		orders:    make(map[string]*GatewayOrder),
		payments:  make(map[string]*GatewayPayment),
		refunds:   make(map[string]*GatewayRefund),
	}
}

func (s *SandboxPaymentService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := &GatewayOrder{
		ID:       "order_sbx_" + shortID(),
		Amount:   req.Amount,
		Currency: req.Currency,
		Status:   GatewayPaymentCreated,
	}
	s.orders[order.ID] = order

	logger.Info("Sandbox order created: %s for receipt %s", order.ID, req.Receipt)
	copied := *order
	return &copied, nil
}

func (s *SandboxPaymentService) FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment, ok := s.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("sandbox payment %s not found", paymentID)
	}
	copied := *payment
	return &copied, nil
}

// Refund replays the earlier refund when the receipt was already used.
func (s *SandboxPaymentService) Refund(ctx context.Context, req RefundRequest) (*GatewayRefund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Receipt != "" {
		if existing, ok := s.refunds[req.Receipt]; ok && existing.PaymentID == req.PaymentID {
			copied := *existing
			return &copied, nil
		}
	}

	payment, ok := s.payments[req.PaymentID]
	if !ok {
		return nil, fmt.Errorf("sandbox payment %s not found", req.PaymentID)
	}
	if payment.Status == GatewayPaymentRefunded {
		return nil, fmt.Errorf("sandbox payment %s already refunded", req.PaymentID)
	}
	payment.Status = GatewayPaymentRefunded

	refund := &GatewayRefund{
		ID:        "rfnd_sbx_" + shortID(),
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
		Status:    "processed",
	}
	key := req.Receipt
	if key == "" {
		key = refund.ID
	}
	s.refunds[key] = refund
	copied := *refund
	return &copied, nil
}

// SimulatePayment captures the full order amount and returns the proof a
// checkout client would submit.
func (s *SandboxPaymentService) SimulatePayment(orderID string, succeed bool) (*GatewayPayment, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, "", fmt.Errorf("sandbox order %s not found", orderID)
	}

	status := GatewayPaymentCaptured
	if !succeed {
		status = GatewayPaymentFailed
	}
	payment := &GatewayPayment{
		ID:       "pay_sbx_" + shortID(),
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Status:   status,
		Method:   "sandbox",
	}
	s.payments[payment.ID] = payment
	if succeed {
		order.Status = "paid"
	}

	copied := *payment
	return &copied, SignPaymentProof(s.keySecret, order.ID, payment.ID), nil
}

func shortID() string {
	return uuid.New().String()[:14]
}
