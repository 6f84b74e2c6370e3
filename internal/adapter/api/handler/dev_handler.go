package handler

import (
	"context"
	"encoding/json"
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"accountmarket/internal/domain/service"
	"accountmarket/internal/usecase"
	"accountmarket/pkg/errors"
	"accountmarket/pkg/response"
)

type DevTokenIssuer interface {
	SetRole(ctx context.Context, uid, role string) error
	GenerateToken(ctx context.Context, uid string) (string, error)
}

// PaymentSimulator plays the customer at the sandbox checkout.
// service.SandboxPaymentService implements it.
type PaymentSimulator interface {
	SimulatePayment(orderID string, succeed bool) (*service.GatewayPayment, string, error)
}

// DevHandler is only routed in development.
type DevHandler struct {
	tokens        DevTokenIssuer
	simulator     PaymentSimulator
	payments      PaymentService
	webhookSecret []byte
}

var devHandler *DevHandler

func NewDevHandler(tokens DevTokenIssuer, simulator PaymentSimulator, payments PaymentService, webhookSecret string) *DevHandler {
	return &DevHandler{
		tokens:        tokens,
		simulator:     simulator,
		payments:      payments,
		webhookSecret: []byte(webhookSecret),
	}
}

func SetupDevHandler(tokens DevTokenIssuer, simulator PaymentSimulator, payments PaymentService, webhookSecret string) {
	devHandler = NewDevHandler(tokens, simulator, payments, webhookSecret)
}

func GetDevHandler() *DevHandler {
	return devHandler
}

func (h *DevHandler) GenerateUserToken(c echo.Context) error {
	return h.issue(c, usecase.RoleUser)
}

func (h *DevHandler) GenerateAdminToken(c echo.Context) error {
	return h.issue(c, usecase.RoleAdmin)
}

// issue returns a custom token; clients exchange it for an ID token.
func (h *DevHandler) issue(c echo.Context, role string) error {
	uid := c.QueryParam("uid")
	if uid == "" {
		return response.Error(c, errors.BadRequest("uid query parameter is required", nil))
	}

	if err := h.tokens.SetRole(c.Request().Context(), uid, role); err != nil {
		return response.Error(c, errors.Internal("Failed to set role claim", err))
	}

	token, err := h.tokens.GenerateToken(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to generate token", err))
	}

	return response.Success(c, map[string]interface{}{
		"custom_token": token,
		"uid":          uid,
		"role":         role,
	})
}

// SimulatePayment pays the caller's transaction through the sandbox. A
// successful payment goes through the client capture path; a failed one is
// delivered as a signed payment.failed webhook.
func (h *DevHandler) SimulatePayment(c echo.Context) error {
	if h.simulator == nil {
		return response.Error(c, errors.BadRequest("Sandbox gateway is not enabled", nil))
	}

	transactionID := c.Param("id")
	succeed := true
	if raw := c.QueryParam("succeed"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return response.Error(c, errors.BadRequest("succeed must be a boolean", err))
		}
		succeed = parsed
	}

	ctx := c.Request().Context()
	buyerID := currentUserID(c)

	order, err := h.payments.CreateOrder(ctx, transactionID, buyerID)
	if err != nil {
		return response.Error(c, err)
	}

	payment, signature, err := h.simulator.SimulatePayment(order.OrderID, succeed)
	if err != nil {
		return response.Error(c, errors.BadRequest("Sandbox payment failed", err))
	}

	if succeed {
		transaction, err := h.payments.CapturePayment(ctx, transactionID, buyerID, usecase.PaymentProof{
			OrderID:   order.OrderID,
			PaymentID: payment.ID,
			Signature: signature,
		})
		if err != nil {
			return response.Error(c, err)
		}
		return response.Success(c, transaction)
	}

	body, err := json.Marshal(map[string]interface{}{
		"event": usecase.EventPaymentFailed,
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":                payment.ID,
					"order_id":          payment.OrderID,
					"amount":            int64(math.Round(payment.Amount * 100)),
					"currency":          payment.Currency,
					"status":            payment.Status,
					"method":            payment.Method,
					"error_description": "Sandbox payment declined",
				},
			},
		},
	})
	if err != nil {
		return response.Error(c, errors.Internal("Failed to build webhook", err))
	}

	outcome, err := h.payments.HandleWebhook(ctx, body, service.SignWebhookBody(h.webhookSecret, body), "evt_sbx_"+payment.ID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"payment_id": payment.ID,
		"webhook":    outcome,
	})
}
