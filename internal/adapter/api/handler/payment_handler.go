package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"accountmarket/internal/usecase"
	"accountmarket/pkg/errors"
	"accountmarket/pkg/logger"
	"accountmarket/pkg/response"
)

const (
	headerWebhookSignature = "X-Razorpay-Signature"
	headerWebhookEventID   = "X-Razorpay-Event-Id"

	maxWebhookBody = 1 << 20
)

type PaymentHandler struct {
	paymentService PaymentService
}

func NewPaymentHandler(paymentService PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	order, err := h.paymentService.CreateOrder(c.Request().Context(), transactionID, currentUserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, order)
}

// Field names follow the checkout callback so clients can forward it as is.
type capturePaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

func (h *PaymentHandler) CapturePayment(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	var req capturePaymentRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	transaction, err := h.paymentService.CapturePayment(c.Request().Context(), transactionID, currentUserID(c), usecase.PaymentProof{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, transaction)
}

// HandleWebhook answers 401 only for a bad signature. Every other delivery
// gets 200 with the outcome so the gateway stops retrying.
func (h *PaymentHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		logger.Warn("Failed to read webhook body: %v", err)
		return response.Error(c, errors.BadRequest("Unreadable webhook body", err))
	}

	signature := c.Request().Header.Get(headerWebhookSignature)
	eventID := c.Request().Header.Get(headerWebhookEventID)

	outcome, err := h.paymentService.HandleWebhook(c.Request().Context(), body, signature, eventID)
	if err != nil {
		return response.Error(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": outcome})
}
