package router

import (
	"accountmarket/internal/adapter/api/handler"
	"accountmarket/internal/adapter/api/middleware"
	"accountmarket/internal/infrastructure/ratelimit"

	"github.com/labstack/echo/v4"
)

func SetupFileRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit *middleware.RateLimitMiddleware) {
	fileHandler := handler.GetFileHandler()

	files := e.Group("/v1/files")
	files.Use(authMiddleware.Authenticate)
	files.Use(rateLimit.Limit(ratelimit.ActionGeneral))

	files.POST("/upload", fileHandler.UploadFile)
	files.POST("/upload-url", fileHandler.CreateUploadURL)
}
