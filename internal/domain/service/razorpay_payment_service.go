package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"accountmarket/pkg/logger"
)

// RazorpayPaymentService talks to the Razorpay REST API.
type RazorpayPaymentService struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

func NewRazorpayPaymentService(keyID, keySecret, baseURL string) *RazorpayPaymentService {
	if baseURL == "" {
		baseURL = "https://api.razorpay.com/v1"
	}
	return &RazorpayPaymentService{
		keyID:      keyID,
		keySecret:  keySecret,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type razorpayOrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt"`
	Notes          map[string]string `json:"notes,omitempty"`
	PaymentCapture int               `json:"payment_capture"`
}

type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type razorpayPayment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`
}

type razorpayRefundRequest struct {
	Amount  int64  `json:"amount"`
	Receipt string `json:"receipt,omitempty"`
}

type razorpayRefund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

func (s *RazorpayPaymentService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error) {
	logger.Info("Creating Razorpay order for receipt: %s, amount: %.2f %s", req.Receipt, req.Amount, req.Currency)

	var order razorpayOrder
	err := s.do(ctx, http.MethodPost, "/orders", razorpayOrderRequest{
		Amount:         toMinorUnits(req.Amount),
		Currency:       req.Currency,
		Receipt:        req.Receipt,
		Notes:          req.Notes,
		PaymentCapture: 1,
	}, &order)
	if err != nil {
		return nil, err
	}

	return &GatewayOrder{
		ID:       order.ID,
		Amount:   fromMinorUnits(order.Amount),
		Currency: order.Currency,
		Status:   order.Status,
	}, nil
}

func (s *RazorpayPaymentService) FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error) {
	var payment razorpayPayment
	if err := s.do(ctx, http.MethodGet, "/payments/"+paymentID, nil, &payment); err != nil {
		return nil, err
	}

	return &GatewayPayment{
		ID:       payment.ID,
		OrderID:  payment.OrderID,
		Amount:   fromMinorUnits(payment.Amount),
		Currency: payment.Currency,
		Status:   payment.Status,
		Method:   payment.Method,
	}, nil
}

func (s *RazorpayPaymentService) Refund(ctx context.Context, req RefundRequest) (*GatewayRefund, error) {
	logger.Info("Issuing Razorpay refund for payment: %s, amount: %.2f, receipt: %s", req.PaymentID, req.Amount, req.Receipt)

	var refund razorpayRefund
	body := razorpayRefundRequest{Amount: toMinorUnits(req.Amount), Receipt: req.Receipt}
	if err := s.do(ctx, http.MethodPost, "/payments/"+req.PaymentID+"/refund", body, &refund); err != nil {
		return nil, err
	}

	return &GatewayRefund{
		ID:        refund.ID,
		PaymentID: refund.PaymentID,
		Amount:    fromMinorUnits(refund.Amount),
		Status:    refund.Status,
	}, nil
}

func (s *RazorpayPaymentService) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.SetBasicAuth(s.keyID, s.keySecret)
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("Razorpay API error: %s %s -> %d", method, path, resp.StatusCode)
		return fmt.Errorf("razorpay API error (%d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}
