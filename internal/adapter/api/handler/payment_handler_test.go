package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"accountmarket/internal/domain/entity"
	"accountmarket/internal/domain/service"
	"accountmarket/internal/usecase"
	"accountmarket/pkg/errors"
)

const webhookBody = `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":50000}}}}`

func TestWebhookAcknowledgesOutcome(t *testing.T) {
	svc := new(mockPaymentService)
	h := NewPaymentHandler(svc)

	svc.On("HandleWebhook", mock.Anything, []byte(webhookBody), "sig", "evt_1").
		Return(usecase.WebhookProcessed, nil)

	c, rec := newTestContext(http.MethodPost, "/v1/webhooks/razorpay", webhookBody)
	c.Request().Header.Set(headerWebhookSignature, "sig")
	c.Request().Header.Set(headerWebhookEventID, "evt_1")

	require.NoError(t, h.HandleWebhook(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"processed"}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	svc := new(mockPaymentService)
	h := NewPaymentHandler(svc)

	svc.On("HandleWebhook", mock.Anything, mock.Anything, "forged", "").
		Return("", errors.InvalidSignature("Webhook signature verification failed"))

	c, rec := newTestContext(http.MethodPost, "/v1/webhooks/razorpay", webhookBody)
	c.Request().Header.Set(headerWebhookSignature, "forged")

	require.NoError(t, h.HandleWebhook(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookFailureStillReturns200(t *testing.T) {
	svc := new(mockPaymentService)
	h := NewPaymentHandler(svc)

	svc.On("HandleWebhook", mock.Anything, mock.Anything, "sig", mock.Anything).
		Return(usecase.WebhookFailed, nil)

	c, rec := newTestContext(http.MethodPost, "/v1/webhooks/razorpay", webhookBody)
	c.Request().Header.Set(headerWebhookSignature, "sig")

	require.NoError(t, h.HandleWebhook(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"error"}`, rec.Body.String())
}

func TestCapturePaymentForwardsCheckoutFields(t *testing.T) {
	svc := new(mockPaymentService)
	h := NewPaymentHandler(svc)

	proof := usecase.PaymentProof{OrderID: "order_1", PaymentID: "pay_1", Signature: "abc"}
	svc.On("CapturePayment", mock.Anything, "tx-1", "buyer-1", proof).
		Return(&entity.Transaction{ID: "tx-1", Status: entity.TransactionStatusEscrowFunded}, nil)

	c, rec := newTestContext(http.MethodPost, "/v1/transactions/tx-1/payment/capture",
		`{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"abc"}`)
	asUser(c, "buyer-1", usecase.RoleUser)
	withParams(c, "id", "tx-1")

	require.NoError(t, h.CapturePayment(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestCapturePaymentSignatureMismatch(t *testing.T) {
	svc := new(mockPaymentService)
	h := NewPaymentHandler(svc)

	svc.On("CapturePayment", mock.Anything, "tx-1", "buyer-1", mock.Anything).
		Return(nil, errors.InvalidSignature("Payment signature verification failed"))

	c, rec := newTestContext(http.MethodPost, "/v1/transactions/tx-1/payment/capture",
		`{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"bad"}`)
	asUser(c, "buyer-1", usecase.RoleUser)
	withParams(c, "id", "tx-1")

	require.NoError(t, h.CapturePayment(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	envelope, _ := decodeResponse(t, rec.Body.Bytes())
	require.NotNil(t, envelope.Error)
	assert.Equal(t, errors.CodeInvalidSignature, envelope.Error.Code)
}

func TestAdminRefundUsesAdminActor(t *testing.T) {
	payments := new(mockPaymentService)
	h := NewAdminHandler(new(mockTransactionService), payments)

	admin := usecase.Actor{ID: "admin-1", Role: usecase.RoleAdmin}
	payments.On("RefundPayment", mock.Anything, "tx-1", "seller unresponsive", admin).
		Return(&entity.Transaction{ID: "tx-1", Status: entity.TransactionStatusRefunded}, nil)

	c, rec := newTestContext(http.MethodPost, "/v1/admin/transactions/tx-1/refund", `{"reason":"seller unresponsive"}`)
	asUser(c, admin.ID, admin.Role)
	withParams(c, "id", "tx-1")

	require.NoError(t, h.RefundPayment(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	payments.AssertExpectations(t)
}

func TestSimulateFailedPaymentSendsSignedWebhook(t *testing.T) {
	payments := new(mockPaymentService)
	simulator := new(mockSimulator)
	secret := "whsec_test"
	h := NewDevHandler(nil, simulator, payments, secret)

	payments.On("CreateOrder", mock.Anything, "tx-1", "buyer-1").
		Return(&usecase.PaymentOrder{TransactionID: "tx-1", OrderID: "order_1", Amount: 500}, nil)
	simulator.On("SimulatePayment", "order_1", false).
		Return(&service.GatewayPayment{ID: "pay_1", OrderID: "order_1", Amount: 500, Currency: "INR", Status: service.GatewayPaymentFailed}, "sig", nil)
	payments.On("HandleWebhook", mock.Anything, mock.Anything, mock.Anything, "evt_sbx_pay_1").
		Run(func(args mock.Arguments) {
			body := args.Get(1).([]byte)
			assert.Equal(t, service.SignWebhookBody([]byte(secret), body), args.String(2))
			assert.Contains(t, string(body), `"amount":50000`)
		}).
		Return(usecase.WebhookProcessed, nil)

	c, rec := newTestContext(http.MethodPost, "/_dev/sandbox/transactions/tx-1/pay?succeed=false", "")
	asUser(c, "buyer-1", usecase.RoleUser)
	withParams(c, "id", "tx-1")

	require.NoError(t, h.SimulatePayment(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	payments.AssertExpectations(t)
	simulator.AssertExpectations(t)
	payments.AssertNotCalled(t, "CapturePayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
