package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"accountmarket/internal/domain/entity"
	"accountmarket/internal/domain/service"
)

const (
	testKeySecret     = "rzp_test_secret"
	testWebhookSecret = "whsec_test"
	testSeller        = "seller-1"
	testBuyer         = "buyer-1"
)

var testAdmin = Actor{ID: "admin-1", Role: RoleAdmin}

type harness struct {
	txRepo        *memTransactionRepo
	listings      *memListingRepo
	offerRepo     *memOfferRepo
	disputeRepo   *memDisputeRepo
	gateway       *mockGateway
	queue         *inlineQueue
	notifier      *recordingNotifier
	events        *recordingEvents
	audit         *recordingAudit
	conversations *memConversations
	locks         *memLocks
	processed     *memProcessedEvents

	velocity     *VelocityGuard
	payments     *PaymentUseCase
	transactions *TransactionUseCase
	offers       *OfferUseCase
	disputes     *DisputeUseCase
	jobs         *EscrowJobs
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	listings := newMemListingRepo(
		&entity.Listing{ID: "listing-1", SellerID: testSeller, Title: "Travel account", Platform: "instagram", Price: 500, Currency: "INR", Status: entity.ListingStatusActive},
		&entity.Listing{ID: "listing-2", SellerID: testSeller, Title: "Gaming channel", Platform: "twitch", Price: 1000, Currency: "INR", Status: entity.ListingStatusActive},
	)
	h := &harness{
		txRepo:        newMemTransactionRepo(listings),
		listings:      listings,
		offerRepo:     newMemOfferRepo(),
		disputeRepo:   newMemDisputeRepo(),
		gateway:       &mockGateway{},
		queue:         &inlineQueue{},
		notifier:      &recordingNotifier{},
		events:        &recordingEvents{},
		audit:         &recordingAudit{},
		conversations: &memConversations{},
		locks:         newMemLocks(),
		processed:     newMemProcessedEvents(),
	}

	effects := NewSideEffects(SideEffectDeps{
		Queue:           h.queue,
		Notifier:        h.notifier,
		Events:          h.events,
		Conversations:   h.conversations,
		AuditLogs:       h.audit,
		TransactionRepo: h.txRepo,
	})

	verifier := service.NewHMACSignatureVerifier(testKeySecret, testWebhookSecret)
	fees := service.NewFeeCalculator(service.FeeConfig{Percent: 5, Min: 100, Max: 5000})

	h.velocity = NewVelocityGuard(h.txRepo, 5)
	h.payments = NewPaymentUseCase(h.txRepo, h.processed, h.gateway, verifier, h.locks, effects, nil)
	h.transactions = NewTransactionUseCase(h.txRepo, h.listings, h.offerRepo, fees, service.NewTransferPlanProvider(),
		h.velocity, h.payments, effects, TransactionConfig{Currency: "INR", AutoReleaseAfter: 72 * time.Hour})
	h.offers = NewOfferUseCase(h.offerRepo, h.listings, effects)
	h.disputes = NewDisputeUseCase(h.disputeRepo, h.txRepo, h.payments, effects)
	h.jobs = NewEscrowJobs(h.offers, h.payments, h.txRepo, h.locks, nil)

	return h
}

func (h *harness) addListing(id string, price float64) {
	h.listings.mu.Lock()
	defer h.listings.mu.Unlock()
	h.listings.listings[id] = &entity.Listing{
		ID: id, SellerID: testSeller, Title: id, Platform: "youtube", Price: price, Currency: "INR", Status: entity.ListingStatusActive,
	}
}

func orderForReceipt(transactionID string) interface{} {
	return mock.MatchedBy(func(req service.CreateOrderRequest) bool { return req.Receipt == transactionID })
}

// refundFor matches the gateway refund for txn, keyed by its id.
func refundFor(txn *entity.Transaction) service.RefundRequest {
	return service.RefundRequest{PaymentID: txn.GatewayPaymentID, Amount: txn.Amount, Receipt: txn.ID}
}

// pendingPayment creates a transaction and opens its gateway order.
func (h *harness) pendingPayment(t *testing.T, listingID string) *entity.Transaction {
	t.Helper()
	ctx := context.Background()

	txn, err := h.transactions.Create(ctx, testBuyer, CreateTransactionInput{ListingID: listingID})
	require.NoError(t, err)

	orderID := "order_" + txn.ID
	h.gateway.On("CreateOrder", mock.Anything, orderForReceipt(txn.ID)).
		Return(&service.GatewayOrder{ID: orderID, Amount: txn.Amount, Currency: txn.Currency, Status: "created"}, nil)

	order, err := h.payments.CreateOrder(ctx, txn.ID, testBuyer)
	require.NoError(t, err)
	require.Equal(t, orderID, order.OrderID)

	txn, err = h.txRepo.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	return txn
}

func (h *harness) capturedPayment(txn *entity.Transaction) *service.GatewayPayment {
	payment := &service.GatewayPayment{
		ID:       "pay_" + txn.ID,
		OrderID:  txn.GatewayOrderID,
		Amount:   txn.Amount,
		Currency: txn.Currency,
		Status:   service.GatewayPaymentCaptured,
		Method:   "upi",
	}
	h.gateway.On("FetchPayment", mock.Anything, payment.ID).Return(payment, nil)
	return payment
}

func proofFor(orderID, paymentID string) PaymentProof {
	return PaymentProof{
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: service.SignPaymentProof([]byte(testKeySecret), orderID, paymentID),
	}
}

// funded returns a transaction in escrow_funded.
func (h *harness) funded(t *testing.T, listingID string) *entity.Transaction {
	t.Helper()
	txn := h.pendingPayment(t, listingID)
	payment := h.capturedPayment(txn)

	txn, err := h.payments.CapturePayment(context.Background(), txn.ID, testBuyer, proofFor(txn.GatewayOrderID, payment.ID))
	require.NoError(t, err)
	require.Equal(t, entity.TransactionStatusEscrowFunded, txn.Status)
	return txn
}

// transferred returns a transaction with every step completed.
func (h *harness) transferred(t *testing.T, listingID string) *entity.Transaction {
	t.Helper()
	txn := h.funded(t, listingID)
	for _, step := range txn.TransferProgress {
		var err error
		txn, err = h.transactions.CompleteTransferStep(context.Background(), txn.ID, step.StepNumber, testSeller, StepProofInput{ProofURL: "https://proof.example/" + txn.ID})
		require.NoError(t, err)
	}
	require.Equal(t, entity.TransactionStatusTransferCompleted, txn.Status)
	return txn
}
