package handler

import (
	"github.com/labstack/echo/v4"

	"accountmarket/internal/usecase"
	"accountmarket/pkg/errors"
	"accountmarket/pkg/response"
)

type DisputeHandler struct {
	disputeService DisputeService
}

func NewDisputeHandler(disputeService DisputeService) *DisputeHandler {
	return &DisputeHandler{
		disputeService: disputeService,
	}
}

type openDisputeRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=1000"`
}

func (h *DisputeHandler) OpenDispute(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	var req openDisputeRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	dispute, err := h.disputeService.Open(c.Request().Context(), transactionID, currentUserID(c), req.Reason)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, dispute)
}

type addEvidenceRequest struct {
	Type        string `json:"type" validate:"required,oneof=screenshot video text file"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=1000"`
	FileURL     string `json:"file_url,omitempty" validate:"omitempty,url"`
	Content     string `json:"content,omitempty" validate:"max=5000"`
}

func (h *DisputeHandler) AddEvidence(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	var req addEvidenceRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	dispute, err := h.disputeService.AddEvidence(c.Request().Context(), transactionID, currentUserID(c), usecase.EvidenceInput{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		FileURL:     req.FileURL,
		Content:     req.Content,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, dispute)
}

func (h *DisputeHandler) GetDispute(c echo.Context) error {
	disputeID := c.Param("id")
	if disputeID == "" {
		return response.Error(c, errors.BadRequest("Dispute ID is required", nil))
	}

	dispute, err := h.disputeService.Get(c.Request().Context(), disputeID, currentActor(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, dispute)
}

func (h *DisputeHandler) StartInvestigation(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	dispute, err := h.disputeService.StartInvestigation(c.Request().Context(), transactionID, currentActor(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, dispute)
}

type resolveDisputeRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=release refund"`
	Notes      string `json:"notes,omitempty" validate:"max=1000"`
}

func (h *DisputeHandler) ResolveDispute(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	var req resolveDisputeRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	dispute, err := h.disputeService.Resolve(c.Request().Context(), transactionID, currentActor(c), req.Resolution, req.Notes)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, dispute)
}
