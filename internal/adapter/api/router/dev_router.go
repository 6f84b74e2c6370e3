package router

import (
	"accountmarket/internal/adapter/api/handler"
	"accountmarket/internal/adapter/api/middleware"

	"github.com/labstack/echo/v4"
)

func SetupDevRouter(e *echo.Echo, environment string, authMiddleware *middleware.AuthMiddleware) {
	if environment != "development" {
		return
	}
	devHandler := handler.GetDevHandler()

	e.GET("/_dev/token/user", devHandler.GenerateUserToken)
	e.GET("/_dev/token/admin", devHandler.GenerateAdminToken)
	e.POST("/_dev/sandbox/transactions/:id/pay", devHandler.SimulatePayment, authMiddleware.Authenticate)
}
