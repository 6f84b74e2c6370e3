package router

import (
	"accountmarket/internal/adapter/api/handler"
	"accountmarket/internal/adapter/api/middleware"
	"accountmarket/internal/infrastructure/ratelimit"

	"github.com/labstack/echo/v4"
)

func SetupDisputeRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit *middleware.RateLimitMiddleware) {
	disputeHandler := handler.GetDisputeHandler()

	transactions := e.Group("/v1/transactions/:id/dispute")
	transactions.Use(authMiddleware.Authenticate)
	transactions.Use(rateLimit.Limit(ratelimit.ActionGeneral))

	transactions.POST("", disputeHandler.OpenDispute)
	transactions.POST("/evidence", disputeHandler.AddEvidence)

	e.GET("/v1/disputes/:id", disputeHandler.GetDispute, authMiddleware.Authenticate)
}
