package router

import (
	"github.com/labstack/echo/v4"

	"accountmarket/internal/adapter/api/handler"
	"accountmarket/internal/adapter/api/middleware"
)

// SetupWebSocketRouter reads the token from the query string.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler, authMiddleware *middleware.AuthMiddleware) {
	e.GET("/ws", wsHandler.HandleWebSocket, authMiddleware.AuthenticateQuery)
}
