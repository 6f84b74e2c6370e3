package handler

import (
	"github.com/labstack/echo/v4"

	"accountmarket/internal/usecase"
	"accountmarket/pkg/errors"
	"accountmarket/pkg/response"
)

type OfferHandler struct {
	offerService OfferService
}

func NewOfferHandler(offerService OfferService) *OfferHandler {
	return &OfferHandler{
		offerService: offerService,
	}
}

type createOfferRequest struct {
	ListingID      string  `json:"listing_id" validate:"required"`
	Amount         float64 `json:"amount" validate:"gt=0"`
	Message        string  `json:"message,omitempty" validate:"max=500"`
	ExpiresInHours int     `json:"expires_in_hours,omitempty" validate:"omitempty,min=1,max=168"`
}

func (h *OfferHandler) CreateOffer(c echo.Context) error {
	var req createOfferRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	offer, err := h.offerService.Create(c.Request().Context(), currentUserID(c), usecase.CreateOfferInput{
		ListingID:      req.ListingID,
		Amount:         req.Amount,
		Message:        req.Message,
		ExpiresInHours: req.ExpiresInHours,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, offer)
}

type respondOfferRequest struct {
	Action        string  `json:"action" validate:"required,oneof=accept reject counter"`
	CounterAmount float64 `json:"counter_amount,omitempty" validate:"omitempty,gt=0"`
	Message       string  `json:"message,omitempty" validate:"max=500"`
}

func (h *OfferHandler) RespondToOffer(c echo.Context) error {
	offerID := c.Param("id")
	if offerID == "" {
		return response.Error(c, errors.BadRequest("Offer ID is required", nil))
	}

	var req respondOfferRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.offerService.Respond(c.Request().Context(), offerID, currentUserID(c), usecase.RespondOfferInput{
		Action:        req.Action,
		CounterAmount: req.CounterAmount,
		Message:       req.Message,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

func (h *OfferHandler) WithdrawOffer(c echo.Context) error {
	offerID := c.Param("id")
	if offerID == "" {
		return response.Error(c, errors.BadRequest("Offer ID is required", nil))
	}

	offer, err := h.offerService.Withdraw(c.Request().Context(), offerID, currentUserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, offer)
}

func (h *OfferHandler) GetOffer(c echo.Context) error {
	offerID := c.Param("id")
	if offerID == "" {
		return response.Error(c, errors.BadRequest("Offer ID is required", nil))
	}

	offer, err := h.offerService.Get(c.Request().Context(), offerID, currentUserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, offer)
}

// ListListingOffers is for the listing's seller.
func (h *OfferHandler) ListListingOffers(c echo.Context) error {
	listingID := c.Param("listingId")
	if listingID == "" {
		return response.Error(c, errors.BadRequest("Listing ID is required", nil))
	}

	offers, err := h.offerService.ListByListing(c.Request().Context(), listingID, currentUserID(c), c.QueryParam("status"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, offers)
}

func (h *OfferHandler) ListMyOffers(c echo.Context) error {
	offers, err := h.offerService.ListByBuyer(c.Request().Context(), currentUserID(c), c.QueryParam("status"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, offers)
}
