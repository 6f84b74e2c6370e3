package router

import (
	"accountmarket/internal/adapter/api/handler"
	"accountmarket/internal/adapter/api/middleware"
	"accountmarket/internal/infrastructure/ratelimit"

	"github.com/labstack/echo/v4"
)

func SetupTransactionRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit *middleware.RateLimitMiddleware) {
	transactionHandler := handler.GetTransactionHandler()

	transactions := e.Group("/v1/transactions")
	transactions.Use(authMiddleware.Authenticate)
	transactions.Use(rateLimit.Limit(ratelimit.ActionGeneral))

	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.GET("/:id/logs", transactionHandler.GetTransactionLogs)

	// Transfer steps
	transactions.POST("/:id/steps/:step/complete", transactionHandler.CompleteTransferStep)
	transactions.PUT("/:id/steps/:step/proof", transactionHandler.AmendStepProof)

	transactions.POST("/:id/verify", transactionHandler.BeginVerification)
	transactions.POST("/:id/confirm", transactionHandler.ConfirmTransfer)
	transactions.POST("/:id/cancel", transactionHandler.CancelTransaction)
}
