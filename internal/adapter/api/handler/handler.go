package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"accountmarket/internal/adapter/api/middleware"
	"accountmarket/internal/domain/entity"
	"accountmarket/internal/usecase"
)

type OfferService interface {
	Create(ctx context.Context, buyerID string, input usecase.CreateOfferInput) (*entity.Offer, error)
	Respond(ctx context.Context, offerID, responderID string, input usecase.RespondOfferInput) (*usecase.RespondOfferResult, error)
	Withdraw(ctx context.Context, offerID, actorID string) (*entity.Offer, error)
	Get(ctx context.Context, offerID, actorID string) (*entity.Offer, error)
	ListByListing(ctx context.Context, listingID, sellerID, status string) ([]*entity.Offer, error)
	ListByBuyer(ctx context.Context, buyerID, status string) ([]*entity.Offer, error)
}

type TransactionService interface {
	Create(ctx context.Context, buyerID string, input usecase.CreateTransactionInput) (*entity.Transaction, error)
	CompleteTransferStep(ctx context.Context, transactionID string, stepNumber int, actorID string, input usecase.StepProofInput) (*entity.Transaction, error)
	AmendStepProof(ctx context.Context, transactionID string, stepNumber int, actorID string, input usecase.StepProofInput) (*entity.Transaction, error)
	BeginVerification(ctx context.Context, transactionID, buyerID string) (*entity.Transaction, error)
	ConfirmTransferComplete(ctx context.Context, transactionID, buyerID string) (*entity.Transaction, error)
	Cancel(ctx context.Context, transactionID, actorID, reason string) (*entity.Transaction, error)
	Get(ctx context.Context, transactionID string, actor usecase.Actor) (*entity.Transaction, error)
	List(ctx context.Context, userID, role, status string, page, pageSize int) ([]*entity.Transaction, int64, error)
	Logs(ctx context.Context, transactionID string, actor usecase.Actor) ([]*entity.TransactionLog, error)
}

type PaymentService interface {
	CreateOrder(ctx context.Context, transactionID, buyerID string) (*usecase.PaymentOrder, error)
	CapturePayment(ctx context.Context, transactionID, buyerID string, proof usecase.PaymentProof) (*entity.Transaction, error)
	ReleaseEscrow(ctx context.Context, transactionID string, actor usecase.Actor) (*entity.Transaction, error)
	RefundPayment(ctx context.Context, transactionID, reason string, actor usecase.Actor) (*entity.Transaction, error)
	HandleWebhook(ctx context.Context, body []byte, signature, eventID string) (string, error)
}

type DisputeService interface {
	Open(ctx context.Context, transactionID, actorID, reason string) (*entity.Dispute, error)
	AddEvidence(ctx context.Context, transactionID, actorID string, input usecase.EvidenceInput) (*entity.Dispute, error)
	StartInvestigation(ctx context.Context, transactionID string, admin usecase.Actor) (*entity.Dispute, error)
	Resolve(ctx context.Context, transactionID string, admin usecase.Actor, resolution, notes string) (*entity.Dispute, error)
	Get(ctx context.Context, disputeID string, actor usecase.Actor) (*entity.Dispute, error)
}

type NotificationService interface {
	ListForUser(ctx context.Context, userID string, page, pageSize int) ([]*entity.Notification, int64, error)
}

var (
	offerHandler        *OfferHandler
	transactionHandler  *TransactionHandler
	paymentHandler      *PaymentHandler
	disputeHandler      *DisputeHandler
	adminHandler        *AdminHandler
	notificationHandler *NotificationHandler
)

func Setup(
	offerService OfferService,
	transactionService TransactionService,
	paymentService PaymentService,
	disputeService DisputeService,
	notificationService NotificationService,
) {
	offerHandler = NewOfferHandler(offerService)
	transactionHandler = NewTransactionHandler(transactionService)
	paymentHandler = NewPaymentHandler(paymentService)
	disputeHandler = NewDisputeHandler(disputeService)
	adminHandler = NewAdminHandler(transactionService, paymentService)
	notificationHandler = NewNotificationHandler(notificationService)
}

func GetOfferHandler() *OfferHandler {
	return offerHandler
}

func GetTransactionHandler() *TransactionHandler {
	return transactionHandler
}

func GetPaymentHandler() *PaymentHandler {
	return paymentHandler
}

func GetDisputeHandler() *DisputeHandler {
	return disputeHandler
}

func GetAdminHandler() *AdminHandler {
	return adminHandler
}

func GetNotificationHandler() *NotificationHandler {
	return notificationHandler
}

func currentUserID(c echo.Context) string {
	uid, _ := c.Get(middleware.ContextUserID).(string)
	return uid
}

func currentActor(c echo.Context) usecase.Actor {
	role, _ := c.Get(middleware.ContextRole).(string)
	return usecase.Actor{ID: currentUserID(c), Role: role}
}
