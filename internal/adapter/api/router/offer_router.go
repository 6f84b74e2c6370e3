package router

import (
	"accountmarket/internal/adapter/api/handler"
	"accountmarket/internal/adapter/api/middleware"
	"accountmarket/internal/infrastructure/ratelimit"

	"github.com/labstack/echo/v4"
)

func SetupOfferRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit *middleware.RateLimitMiddleware) {
	offerHandler := handler.GetOfferHandler()

	offers := e.Group("/v1/offers")
	offers.Use(authMiddleware.Authenticate)
	offers.Use(rateLimit.Limit(ratelimit.ActionGeneral))

	offers.POST("", offerHandler.CreateOffer, rateLimit.Limit(ratelimit.ActionCreateOffer))
	offers.GET("/mine", offerHandler.ListMyOffers)
	offers.GET("/:id", offerHandler.GetOffer)
	offers.POST("/:id/respond", offerHandler.RespondToOffer)
	offers.POST("/:id/withdraw", offerHandler.WithdrawOffer)

	// Seller view of the offers on one listing
	e.GET("/v1/listings/:listingId/offers", offerHandler.ListListingOffers, authMiddleware.Authenticate, rateLimit.Limit(ratelimit.ActionGeneral))
}
