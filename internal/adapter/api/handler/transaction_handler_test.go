package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"accountmarket/internal/domain/entity"
	"accountmarket/internal/usecase"
	"accountmarket/pkg/errors"
	"accountmarket/pkg/response"
)

func decodeResponse(t *testing.T, body []byte) (response.Response, map[string]interface{}) {
	t.Helper()
	var envelope response.Response
	require.NoError(t, json.Unmarshal(body, &envelope))
	data, _ := envelope.Data.(map[string]interface{})
	return envelope, data
}

func TestCreateTransaction(t *testing.T) {
	svc := new(mockTransactionService)
	h := NewTransactionHandler(svc)

	svc.On("Create", mock.Anything, "buyer-1", usecase.CreateTransactionInput{ListingID: "listing-1", OfferID: "offer-1"}).
		Return(&entity.Transaction{ID: "tx-1", ListingID: "listing-1"}, nil)

	c, rec := newTestContext(http.MethodPost, "/v1/transactions", `{"listing_id":"listing-1","offer_id":"offer-1"}`)
	asUser(c, "buyer-1", usecase.RoleUser)

	require.NoError(t, h.CreateTransaction(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	envelope, data := decodeResponse(t, rec.Body.Bytes())
	assert.True(t, envelope.Success)
	assert.Equal(t, "tx-1", data["id"])
	svc.AssertExpectations(t)
}

func TestCreateTransactionRequiresListing(t *testing.T) {
	svc := new(mockTransactionService)
	h := NewTransactionHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/v1/transactions", `{}`)
	asUser(c, "buyer-1", usecase.RoleUser)

	require.NoError(t, h.CreateTransaction(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	envelope, _ := decodeResponse(t, rec.Body.Bytes())
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteTransferStepParsesStep(t *testing.T) {
	svc := new(mockTransactionService)
	h := NewTransactionHandler(svc)

	input := usecase.StepProofInput{ProofURL: "https://storage.googleapis.com/b/proofs/1.png", Notes: "email changed"}
	svc.On("CompleteTransferStep", mock.Anything, "tx-1", 2, "seller-1", input).
		Return(&entity.Transaction{ID: "tx-1", CurrentStep: 3}, nil)

	c, rec := newTestContext(http.MethodPost, "/v1/transactions/tx-1/steps/2/complete",
		`{"proof_url":"https://storage.googleapis.com/b/proofs/1.png","notes":"email changed"}`)
	asUser(c, "seller-1", usecase.RoleUser)
	withParams(c, "id", "tx-1", "step", "2")

	require.NoError(t, h.CompleteTransferStep(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestCompleteTransferStepRejectsBadStep(t *testing.T) {
	svc := new(mockTransactionService)
	h := NewTransactionHandler(svc)

	for _, step := range []string{"abc", "0", "-1"} {
		c, rec := newTestContext(http.MethodPost, "/v1/transactions/tx-1/steps/x/complete", `{}`)
		asUser(c, "seller-1", usecase.RoleUser)
		withParams(c, "id", "tx-1", "step", step)

		require.NoError(t, h.CompleteTransferStep(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, step)
	}
	svc.AssertNotCalled(t, "CompleteTransferStep", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmTransferMapsInvalidTransition(t *testing.T) {
	svc := new(mockTransactionService)
	h := NewTransactionHandler(svc)

	svc.On("ConfirmTransferComplete", mock.Anything, "tx-1", "buyer-1").
		Return(nil, errors.InvalidTransition("transaction", entity.TransactionStatusEscrowFunded, entity.TransactionStatusCompleted))

	c, rec := newTestContext(http.MethodPost, "/v1/transactions/tx-1/confirm", "")
	asUser(c, "buyer-1", usecase.RoleUser)
	withParams(c, "id", "tx-1")

	require.NoError(t, h.ConfirmTransfer(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	envelope, _ := decodeResponse(t, rec.Body.Bytes())
	require.NotNil(t, envelope.Error)
	assert.Equal(t, errors.CodeInvalidTransition, envelope.Error.Code)
	assert.Contains(t, envelope.Error.Message, entity.TransactionStatusEscrowFunded)
}

func TestListTransactionsPaginates(t *testing.T) {
	svc := new(mockTransactionService)
	h := NewTransactionHandler(svc)

	svc.On("List", mock.Anything, "buyer-1", "buyer", "completed", 2, 10).
		Return([]*entity.Transaction{{ID: "tx-1"}}, int64(11), nil)

	c, rec := newTestContext(http.MethodGet, "/v1/transactions?role=buyer&status=completed&page=2&limit=10", "")
	asUser(c, "buyer-1", usecase.RoleUser)

	require.NoError(t, h.ListTransactions(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	_, data := decodeResponse(t, rec.Body.Bytes())
	assert.Equal(t, float64(11), data["total"])
	assert.Equal(t, float64(2), data["totalPages"])
}

func TestGetTransactionPassesActorRole(t *testing.T) {
	svc := new(mockTransactionService)
	h := NewAdminHandler(svc, new(mockPaymentService))

	admin := usecase.Actor{ID: "admin-1", Role: usecase.RoleAdmin}
	svc.On("Get", mock.Anything, "tx-1", admin).Return(&entity.Transaction{ID: "tx-1"}, nil)

	c, rec := newTestContext(http.MethodGet, "/v1/admin/transactions/tx-1", "")
	asUser(c, admin.ID, admin.Role)
	withParams(c, "id", "tx-1")

	require.NoError(t, h.GetTransaction(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestCancelRequiresReason(t *testing.T) {
	svc := new(mockTransactionService)
	h := NewTransactionHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/v1/transactions/tx-1/cancel", `{"reason":""}`)
	asUser(c, "buyer-1", usecase.RoleUser)
	withParams(c, "id", "tx-1")

	require.NoError(t, h.CancelTransaction(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
