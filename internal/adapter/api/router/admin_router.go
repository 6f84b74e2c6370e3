package router

import (
	"accountmarket/internal/adapter/api/handler"
	"accountmarket/internal/adapter/api/middleware"

	"github.com/labstack/echo/v4"
)

func SetupAdminRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	adminHandler := handler.GetAdminHandler()
	disputeHandler := handler.GetDisputeHandler()

	admin := e.Group("/v1/admin/transactions")
	admin.Use(authMiddleware.Authenticate)
	admin.Use(adminMiddleware.AdminOnly)

	admin.GET("/:id", adminHandler.GetTransaction)
	admin.POST("/:id/release", adminHandler.ReleaseEscrow)
	admin.POST("/:id/refund", adminHandler.RefundPayment)
	admin.POST("/:id/dispute/investigate", disputeHandler.StartInvestigation)
	admin.POST("/:id/dispute/resolve", disputeHandler.ResolveDispute)
}
