package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"accountmarket/internal/domain/entity"
	"accountmarket/internal/usecase"
	"accountmarket/pkg/errors"
)

func TestCreateOfferDefaultsExpiry(t *testing.T) {
	svc := new(mockOfferService)
	h := NewOfferHandler(svc)

	svc.On("Create", mock.Anything, "buyer-1", usecase.CreateOfferInput{ListingID: "listing-1", Amount: 450}).
		Return(&entity.Offer{ID: "offer-1", Status: entity.OfferStatusPending}, nil)

	c, rec := newTestContext(http.MethodPost, "/v1/offers", `{"listing_id":"listing-1","amount":450}`)
	asUser(c, "buyer-1", usecase.RoleUser)

	require.NoError(t, h.CreateOffer(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestCreateOfferValidatesInput(t *testing.T) {
	cases := map[string]string{
		"zero amount":    `{"listing_id":"listing-1","amount":0}`,
		"expiry too far": `{"listing_id":"listing-1","amount":10,"expires_in_hours":200}`,
		"no listing":     `{"amount":10}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := new(mockOfferService)
			h := NewOfferHandler(svc)

			c, rec := newTestContext(http.MethodPost, "/v1/offers", body)
			asUser(c, "buyer-1", usecase.RoleUser)

			require.NoError(t, h.CreateOffer(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRespondToOfferRejectsUnknownAction(t *testing.T) {
	svc := new(mockOfferService)
	h := NewOfferHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/v1/offers/offer-1/respond", `{"action":"maybe"}`)
	asUser(c, "seller-1", usecase.RoleUser)
	withParams(c, "id", "offer-1")

	require.NoError(t, h.RespondToOffer(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	envelope, _ := decodeResponse(t, rec.Body.Bytes())
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestRespondToOfferForbidden(t *testing.T) {
	svc := new(mockOfferService)
	h := NewOfferHandler(svc)

	svc.On("Respond", mock.Anything, "offer-1", "stranger", usecase.RespondOfferInput{Action: entity.OfferActionAccept}).
		Return(nil, errors.Forbidden("Only the counterparty can respond to this offer", nil))

	c, rec := newTestContext(http.MethodPost, "/v1/offers/offer-1/respond", `{"action":"accept"}`)
	asUser(c, "stranger", usecase.RoleUser)
	withParams(c, "id", "offer-1")

	require.NoError(t, h.RespondToOffer(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListListingOffersScopesToCaller(t *testing.T) {
	svc := new(mockOfferService)
	h := NewOfferHandler(svc)

	svc.On("ListByListing", mock.Anything, "listing-1", "seller-1", "pending").
		Return([]*entity.Offer{{ID: "offer-1"}, {ID: "offer-2"}}, nil)

	c, rec := newTestContext(http.MethodGet, "/v1/listings/listing-1/offers?status=pending", "")
	asUser(c, "seller-1", usecase.RoleUser)
	withParams(c, "listingId", "listing-1")

	require.NoError(t, h.ListListingOffers(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}
