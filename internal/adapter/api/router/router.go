package router

import (
	"accountmarket/internal/adapter/api/middleware"

	"github.com/labstack/echo/v4"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware, rateLimit *middleware.RateLimitMiddleware) {
	SetupOfferRouter(e, authMiddleware, rateLimit)
	SetupTransactionRouter(e, authMiddleware, rateLimit)
	SetupPaymentRouter(e, authMiddleware, rateLimit)
	SetupDisputeRouter(e, authMiddleware, rateLimit)
	SetupAdminRouter(e, authMiddleware, adminMiddleware)
	SetupNotificationRouter(e, authMiddleware)
}
