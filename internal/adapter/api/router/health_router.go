package router

import (
	"net/http"

	"accountmarket/internal/adapter/api/handler"

	"github.com/labstack/echo/v4"
)

func SetupHealthRouter(e *echo.Echo, metricsHandler http.Handler) {
	healthHandler := handler.GetHealthHandler()
	e.GET("/health", healthHandler.CheckHealth)
	e.GET("/health/ready", healthHandler.CheckReadiness)
	e.GET("/metrics", echo.WrapHandler(metricsHandler))
}
