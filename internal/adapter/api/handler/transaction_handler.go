package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"accountmarket/internal/usecase"
	"accountmarket/pkg/errors"
	"accountmarket/pkg/response"
	"accountmarket/pkg/utils"
)

type TransactionHandler struct {
	transactionService TransactionService
}

func NewTransactionHandler(transactionService TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

type createTransactionRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
	OfferID   string `json:"offer_id,omitempty"`
}

func (h *TransactionHandler) CreateTransaction(c echo.Context) error {
	var req createTransactionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	transaction, err := h.transactionService.Create(c.Request().Context(), currentUserID(c), usecase.CreateTransactionInput{
		ListingID: req.ListingID,
		OfferID:   req.OfferID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, transaction)
}

func (h *TransactionHandler) GetTransaction(c echo.Context) error {
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

func (h *TransactionHandler) ListTransactions(c echo.Context) error {
	role := c.QueryParam("role") // buyer or seller
	status := c.QueryParam("status")

	pagination := utils.GetPaginationParams(c)

	transactions, total, err := h.transactionService.List(
		c.Request().Context(),
		currentUserID(c),
		role,
		status,
		pagination.Page,
		pagination.PageSize,
	)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, transactions, total, pagination.Page, pagination.PageSize)
}

func (h *TransactionHandler) GetTransactionLogs(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	logs, err := h.transactionService.Logs(c.Request().Context(), transactionID, currentActor(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, logs)
}

type stepProofRequest struct {
	ProofURL string `json:"proof_url,omitempty" validate:"omitempty,url"`
	Notes    string `json:"notes,omitempty" validate:"max=1000"`
}

type amendProofRequest struct {
	ProofURL string `json:"proof_url" validate:"required,url"`
	Notes    string `json:"notes,omitempty" validate:"max=1000"`
}

func stepParams(c echo.Context) (string, int, error) {
	transactionID := c.Param("id")
	if transactionID == "" {
		return "", 0, errors.BadRequest("Transaction ID is required", nil)
	}

	stepNumber, err := strconv.Atoi(c.Param("step"))
	if err != nil || stepNumber < 1 {
		return "", 0, errors.BadRequest("Invalid step number", err)
	}
	return transactionID, stepNumber, nil
}

func (h *TransactionHandler) CompleteTransferStep(c echo.Context) error {
	transactionID, stepNumber, err := stepParams(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req stepProofRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	transaction, err := h.transactionService.CompleteTransferStep(c.Request().Context(), transactionID, stepNumber, currentUserID(c), usecase.StepProofInput{
		ProofURL: req.ProofURL,
		Notes:    req.Notes,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, transaction)
}

func (h *TransactionHandler) AmendStepProof(c echo.Context) error {
	transactionID, stepNumber, err := stepParams(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req amendProofRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	transaction, err := h.transactionService.AmendStepProof(c.Request().Context(), transactionID, stepNumber, currentUserID(c), usecase.StepProofInput{
		ProofURL: req.ProofURL,
		Notes:    req.Notes,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, transaction)
}

func (h *TransactionHandler) BeginVerification(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	transaction, err := h.transactionService.BeginVerification(c.Request().Context(), transactionID, currentUserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, transaction)
}

func (h *TransactionHandler) ConfirmTransfer(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	transaction, err := h.transactionService.ConfirmTransferComplete(c.Request().Context(), transactionID, currentUserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, transaction)
}

type cancelTransactionRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *TransactionHandler) CancelTransaction(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	var req cancelTransactionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	transaction, err := h.transactionService.Cancel(c.Request().Context(), transactionID, currentUserID(c), req.Reason)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, transaction)
}
