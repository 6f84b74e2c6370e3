package repository

import (
	"context"
	"time"

	"accountmarket/internal/domain/entity"
)

type OfferRepository interface {
	// CreatePending stores a new pending offer unless the buyer already has
	// one pending on the same listing.
	CreatePending(ctx context.Context, offer *entity.Offer) error
	GetByID(ctx context.Context, id string) (*entity.Offer, error)
	UpdateFn(ctx context.Context, id string, fn func(offer *entity.Offer) error) (*entity.Offer, error)

	// Accept applies fn to the offer and rejects every other pending offer on
	// the same listing in one atomic write.
	Accept(ctx context.Context, id string, fn func(offer *entity.Offer) error) (*entity.Offer, []*entity.Offer, error)
	// Counter applies fn to the original offer and stores the offer it returns.
	Counter(ctx context.Context, id string, fn func(original *entity.Offer) (*entity.Offer, error)) (*entity.Offer, *entity.Offer, error)

	// ExpireStale moves pending offers past their expiry to expired and
	// returns the offers it changed.
	ExpireStale(ctx context.Context, now time.Time, limit int) ([]*entity.Offer, error)

	ListByListing(ctx context.Context, listingID, status string) ([]*entity.Offer, error)
	ListByBuyer(ctx context.Context, buyerID, status string) ([]*entity.Offer, error)
}
