package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"accountmarket/internal/adapter/api"
	"accountmarket/internal/adapter/api/middleware"
	"accountmarket/internal/domain/entity"
	"accountmarket/internal/domain/service"
	"accountmarket/internal/usecase"
)

func newTestContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = api.NewValidator()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func asUser(c echo.Context, uid, role string) {
	c.Set(middleware.ContextUserID, uid)
	c.Set(middleware.ContextRole, role)
}

func withParams(c echo.Context, kv ...string) {
	var names, values []string
	for i := 0; i+1 < len(kv); i += 2 {
		names = append(names, kv[i])
		values = append(values, kv[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
}

type mockOfferService struct{ mock.Mock }

func (m *mockOfferService) Create(ctx context.Context, buyerID string, input usecase.CreateOfferInput) (*entity.Offer, error) {
	args := m.Called(ctx, buyerID, input)
	offer, _ := args.Get(0).(*entity.Offer)
	return offer, args.Error(1)
}

func (m *mockOfferService) Respond(ctx context.Context, offerID, responderID string, input usecase.RespondOfferInput) (*usecase.RespondOfferResult, error) {
	args := m.Called(ctx, offerID, responderID, input)
	result, _ := args.Get(0).(*usecase.RespondOfferResult)
	return result, args.Error(1)
}

func (m *mockOfferService) Withdraw(ctx context.Context, offerID, actorID string) (*entity.Offer, error) {
	args := m.Called(ctx, offerID, actorID)
	offer, _ := args.Get(0).(*entity.Offer)
	return offer, args.Error(1)
}

func (m *mockOfferService) Get(ctx context.Context, offerID, actorID string) (*entity.Offer, error) {
	args := m.Called(ctx, offerID, actorID)
	offer, _ := args.Get(0).(*entity.Offer)
	return offer, args.Error(1)
}

func (m *mockOfferService) ListByListing(ctx context.Context, listingID, sellerID, status string) ([]*entity.Offer, error) {
	args := m.Called(ctx, listingID, sellerID, status)
	offers, _ := args.Get(0).([]*entity.Offer)
	return offers, args.Error(1)
}

func (m *mockOfferService) ListByBuyer(ctx context.Context, buyerID, status string) ([]*entity.Offer, error) {
	args := m.Called(ctx, buyerID, status)
	offers, _ := args.Get(0).([]*entity.Offer)
	return offers, args.Error(1)
}

type mockTransactionService struct{ mock.Mock }

func (m *mockTransactionService) Create(ctx context.Context, buyerID string, input usecase.CreateTransactionInput) (*entity.Transaction, error) {
	args := m.Called(ctx, buyerID, input)
	transaction, _ := args.Get(0).(*entity.Transaction)
	return transaction, args.Error(1)
}

func (m *mockTransactionService) CompleteTransferStep(ctx context.Context, transactionID string, stepNumber int, actorID string, input usecase.StepProofInput) (*entity.Transaction, error) {
	args := m.Called(ctx, transactionID, stepNumber, actorID, input)
	transaction, _ := args.Get(0).(*entity.Transaction)
	return transaction, args.Error(1)
}

func (m *mockTransactionService) AmendStepProof(ctx context.Context, transactionID string, stepNumber int, actorID string, input usecase.StepProofInput) (*entity.Transaction, error) {
	args := m.Called(ctx, transactionID, stepNumber, actorID, input)
	transaction, _ := args.Get(0).(*entity.Transaction)
	return transaction, args.Error(1)
}

func (m *mockTransactionService) BeginVerification(ctx context.Context, transactionID, buyerID string) (*entity.Transaction, error) {
	args := m.Called(ctx, transactionID, buyerID)
	transaction, _ := args.Get(0).(*entity.Transaction)
	return transaction, args.Error(1)
}

func (m *mockTransactionService) ConfirmTransferComplete(ctx context.Context, transactionID, buyerID string) (*entity.Transaction, error) {
	args := m.Called(ctx, transactionID, buyerID)
	transaction, _ := args.Get(0).(*entity.Transaction)
	return transaction, args.Error(1)
}

func (m *mockTransactionService) Cancel(ctx context.Context, transactionID, actorID, reason string) (*entity.Transaction, error) {
	args := m.Called(ctx, transactionID, actorID, reason)
	transaction, _ := args.Get(0).(*entity.Transaction)
	return transaction, args.Error(1)
}

func (m *mockTransactionService) Get(ctx context.Context, transactionID string, actor usecase.Actor) (*entity.Transaction, error) {
	args := m.Called(ctx, transactionID, actor)
	transaction, _ := args.Get(0).(*entity.Transaction)
	return transaction, args.Error(1)
}

func (m *mockTransactionService) List(ctx context.Context, userID, role, status string, page, pageSize int) ([]*entity.Transaction, int64, error) {
	args := m.Called(ctx, userID, role, status, page, pageSize)
	transactions, _ := args.Get(0).([]*entity.Transaction)
	return transactions, args.Get(1).(int64), args.Error(2)
}

func (m *mockTransactionService) Logs(ctx context.Context, transactionID string, actor usecase.Actor) ([]*entity.TransactionLog, error) {
	args := m.Called(ctx, transactionID, actor)
	logs, _ := args.Get(0).([]*entity.TransactionLog)
	return logs, args.Error(1)
}

type mockPaymentService struct{ mock.Mock }

func (m *mockPaymentService) CreateOrder(ctx context.Context, transactionID, buyerID string) (*usecase.PaymentOrder, error) {
	args := m.Called(ctx, transactionID, buyerID)
	order, _ := args.Get(0).(*usecase.PaymentOrder)
	return order, args.Error(1)
}

func (m *mockPaymentService) CapturePayment(ctx context.Context, transactionID, buyerID string, proof usecase.PaymentProof) (*entity.Transaction, error) {
	args := m.Called(ctx, transactionID, buyerID, proof)
	transaction, _ := args.Get(0).(*entity.Transaction)
	return transaction, args.Error(1)
}

func (m *mockPaymentService) ReleaseEscrow(ctx context.Context, transactionID string, actor usecase.Actor) (*entity.Transaction, error) {
	args := m.Called(ctx, transactionID, actor)
	transaction, _ := args.Get(0).(*entity.Transaction)
	return transaction, args.Error(1)
}

func (m *mockPaymentService) RefundPayment(ctx context.Context, transactionID, reason string, actor usecase.Actor) (*entity.Transaction, error) {
	args := m.Called(ctx, transactionID, reason, actor)
	transaction, _ := args.Get(0).(*entity.Transaction)
	return transaction, args.Error(1)
}

func (m *mockPaymentService) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) (string, error) {
	args := m.Called(ctx, body, signature, eventID)
	return args.String(0), args.Error(1)
}

type mockDisputeService struct{ mock.Mock }

func (m *mockDisputeService) Open(ctx context.Context, transactionID, actorID, reason string) (*entity.Dispute, error) {
	args := m.Called(ctx, transactionID, actorID, reason)
	dispute, _ := args.Get(0).(*entity.Dispute)
	return dispute, args.Error(1)
}

func (m *mockDisputeService) AddEvidence(ctx context.Context, transactionID, actorID string, input usecase.EvidenceInput) (*entity.Dispute, error) {
	args := m.Called(ctx, transactionID, actorID, input)
	dispute, _ := args.Get(0).(*entity.Dispute)
	return dispute, args.Error(1)
}

func (m *mockDisputeService) StartInvestigation(ctx context.Context, transactionID string, admin usecase.Actor) (*entity.Dispute, error) {
	args := m.Called(ctx, transactionID, admin)
	dispute, _ := args.Get(0).(*entity.Dispute)
	return dispute, args.Error(1)
}

func (m *mockDisputeService) Resolve(ctx context.Context, transactionID string, admin usecase.Actor, resolution, notes string) (*entity.Dispute, error) {
	args := m.Called(ctx, transactionID, admin, resolution, notes)
	dispute, _ := args.Get(0).(*entity.Dispute)
	return dispute, args.Error(1)
}

func (m *mockDisputeService) Get(ctx context.Context, disputeID string, actor usecase.Actor) (*entity.Dispute, error) {
	args := m.Called(ctx, disputeID, actor)
	dispute, _ := args.Get(0).(*entity.Dispute)
	return dispute, args.Error(1)
}

type mockSimulator struct{ mock.Mock }

func (m *mockSimulator) SimulatePayment(orderID string, succeed bool) (*service.GatewayPayment, string, error) {
	args := m.Called(orderID, succeed)
	payment, _ := args.Get(0).(*service.GatewayPayment)
	return payment, args.String(1), args.Error(2)
}
