package handler

import (
	"github.com/labstack/echo/v4"

	"accountmarket/pkg/errors"
	"accountmarket/pkg/response"
)

// AdminHandler exposes manual escrow interventions.
type AdminHandler struct {
	transactionService TransactionService
	paymentService     PaymentService
}

func NewAdminHandler(transactionService TransactionService, paymentService PaymentService) *AdminHandler {
	return &AdminHandler{
		transactionService: transactionService,
		paymentService:     paymentService,
	}
}

func (h *AdminHandler) GetTransaction(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	transaction, err := h.transactionService.Get(c.Request().Context(), transactionID, currentActor(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, transaction)
}

func (h *AdminHandler) ReleaseEscrow(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	transaction, err := h.paymentService.ReleaseEscrow(c.Request().Context(), transactionID, currentActor(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, transaction)
}

type refundRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *AdminHandler) RefundPayment(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	var req refundRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	transaction, err := h.paymentService.RefundPayment(c.Request().Context(), transactionID, req.Reason, currentActor(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, transaction)
}
