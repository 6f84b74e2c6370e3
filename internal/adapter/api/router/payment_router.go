package router

import (
	"accountmarket/internal/adapter/api/handler"
	"accountmarket/internal/adapter/api/middleware"
	"accountmarket/internal/infrastructure/ratelimit"

	"github.com/labstack/echo/v4"
)

func SetupPaymentRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit *middleware.RateLimitMiddleware) {
	paymentHandler := handler.GetPaymentHandler()

	payments := e.Group("/v1/transactions/:id/payment")
	payments.Use(authMiddleware.Authenticate)
	payments.Use(rateLimit.Limit(ratelimit.ActionPayment))

	payments.POST("/order", paymentHandler.CreateOrder)
	payments.POST("/capture", paymentHandler.CapturePayment)

	// Gateway callbacks authenticate with the body signature
	e.POST("/v1/webhooks/razorpay", paymentHandler.HandleWebhook, rateLimit.Limit(ratelimit.ActionWebhook))
}
