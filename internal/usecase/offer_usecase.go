package usecase

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"accountmarket/internal/domain/entity"
	"accountmarket/internal/domain/repository"
	"accountmarket/pkg/errors"
	"accountmarket/pkg/logger"
)

const (
	defaultOfferExpiryHours = 48
	minOfferExpiryHours     = 1
	maxOfferExpiryHours     = 168
	offerSweepBatch         = 500
)

type OfferUseCase struct {
	offerRepo   repository.OfferRepository
	listingRepo repository.ListingRepository
	effects     *SideEffects
	now         func() time.Time
}

func NewOfferUseCase(
	offerRepo repository.OfferRepository,
	listingRepo repository.ListingRepository,
	effects *SideEffects,
) *OfferUseCase {
	return &OfferUseCase{
		offerRepo:   offerRepo,
		listingRepo: listingRepo,
		effects:     effects,
		now:         time.Now,
	}
}

type CreateOfferInput struct {
	ListingID      string
	Amount         float64
	Message        string
	ExpiresInHours int
}

func (uc *OfferUseCase) Create(ctx context.Context, buyerID string, input CreateOfferInput) (*entity.Offer, error) {
	if input.Amount <= 0 {
		return nil, errors.BadRequest("Offer amount must be greater than zero", nil)
	}

	hours := input.ExpiresInHours
	if hours == 0 {
		hours = defaultOfferExpiryHours
	}
	if hours < minOfferExpiryHours || hours > maxOfferExpiryHours {
		return nil, errors.BadRequest(fmt.Sprintf("Offer expiry must be between %d and %d hours", minOfferExpiryHours, maxOfferExpiryHours), nil)
	}

	listing, err := uc.listingRepo.GetByID(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsActive() {
		return nil, errors.BadRequest("Listing is not accepting offers", nil)
	}
	if listing.SellerID == buyerID {
		return nil, errors.BadRequest("Cannot make an offer on your own listing", nil)
	}

	now := uc.now()
	offer := &entity.Offer{
		ID:         uuid.New().String(),
		ListingID:  listing.ID,
		BuyerID:    buyerID,
		SellerID:   listing.SellerID,
		Amount:     input.Amount,
		Currency:   listing.Currency,
		Message:    input.Message,
		Status:     entity.OfferStatusPending,
		ProposedBy: entity.PartyBuyer,
		ExpiresAt:  now.Add(time.Duration(hours) * time.Hour),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := uc.offerRepo.CreatePending(ctx, offer); err != nil {
		return nil, err
	}

	uc.effects.Notify(offer.SellerID, entity.NotificationOfferReceived,
		"New offer received",
		fmt.Sprintf("You received an offer of %.2f %s on %s", offer.Amount, offer.Currency, listing.Title),
		map[string]interface{}{"offer_id": offer.ID, "listing_id": listing.ID})

	return offer, nil
}

type RespondOfferInput struct {
	Action        string
	CounterAmount float64
	Message       string
}

// RespondOfferResult carries the answered offer, the counter it spawned and
// any competing offers that were rejected by an accept.
type RespondOfferResult struct {
	Offer        *entity.Offer   `json:"offer"`
	CounterOffer *entity.Offer   `json:"counter_offer,omitempty"`
	Rejected     []*entity.Offer `json:"rejected,omitempty"`
}

func (uc *OfferUseCase) Respond(ctx context.Context, offerID, responderID string, input RespondOfferInput) (*RespondOfferResult, error) {
	switch input.Action {
	case entity.OfferActionAccept, entity.OfferActionReject:
	case entity.OfferActionCounter:
		if input.CounterAmount <= 0 {
			return nil, errors.BadRequest("Counter amount is required", nil)
		}
	default:
		return nil, errors.BadRequest("Action must be accept, reject or counter", nil)
	}

	offer, err := uc.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Responder() != responderID {
		return nil, errors.Forbidden("Only the other party can respond to this offer", nil)
	}
	if err := uc.checkRespondable(ctx, offer); err != nil {
		return nil, err
	}

	now := uc.now()
	guard := func(o *entity.Offer) error {
		if !o.IsPending() {
			return errors.BadRequest(fmt.Sprintf("Offer is already %s", o.Status), nil)
		}
		if o.IsExpired(now) {
			return errors.BadRequest("Offer has expired", nil)
		}
		return nil
	}

	result := &RespondOfferResult{}
	switch input.Action {
	case entity.OfferActionAccept:
		accepted, rejected, err := uc.offerRepo.Accept(ctx, offerID, func(o *entity.Offer) error {
			if err := guard(o); err != nil {
				return err
			}
			o.Status = entity.OfferStatusAccepted
			o.RespondedAt = &now
			return nil
		})
		if err != nil {
			return nil, err
		}
		result.Offer = accepted
		result.Rejected = rejected

	case entity.OfferActionReject:
		rejected, err := uc.offerRepo.UpdateFn(ctx, offerID, func(o *entity.Offer) error {
			if err := guard(o); err != nil {
				return err
			}
			o.Status = entity.OfferStatusRejected
			o.RespondedAt = &now
			return nil
		})
		if err != nil {
			return nil, err
		}
		result.Offer = rejected

	case entity.OfferActionCounter:
		original, counter, err := uc.offerRepo.Counter(ctx, offerID, func(o *entity.Offer) (*entity.Offer, error) {
			if err := guard(o); err != nil {
				return nil, err
			}
			counter := &entity.Offer{
				ID:            uuid.New().String(),
				ListingID:     o.ListingID,
				BuyerID:       o.BuyerID,
				SellerID:      o.SellerID,
				Amount:        input.CounterAmount,
				Currency:      o.Currency,
				Message:       input.Message,
				Status:        entity.OfferStatusPending,
				ProposedBy:    oppositeParty(o.ProposedBy),
				ParentOfferID: o.ID,
				ExpiresAt:     now.Add(defaultOfferExpiryHours * time.Hour),
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			o.Status = entity.OfferStatusCountered
			o.CounterOfferID = counter.ID
			o.RespondedAt = &now
			return counter, nil
		})
		if err != nil {
			return nil, err
		}
		result.Offer = original
		result.CounterOffer = counter
	}

	uc.notifyResponse(result)
	return result, nil
}

// checkRespondable flips an expired pending offer to expired before failing,
// so the caller sees the real state on the next read.
func (uc *OfferUseCase) checkRespondable(ctx context.Context, offer *entity.Offer) error {
	if !offer.IsPending() {
		return errors.BadRequest(fmt.Sprintf("Offer is already %s", offer.Status), nil)
	}

	now := uc.now()
	if !offer.IsExpired(now) {
		return nil
	}

	_, err := uc.offerRepo.UpdateFn(ctx, offer.ID, func(o *entity.Offer) error {
		if !o.IsPending() || !o.IsExpired(now) {
			return repository.ErrNoChange
		}
		o.Status = entity.OfferStatusExpired
		return nil
	})
	if err != nil && !stderrors.Is(err, repository.ErrNoChange) {
		logger.Warn("Failed to expire offer %s: %v", offer.ID, err)
	}
	return errors.BadRequest("Offer has expired", nil)
}

func (uc *OfferUseCase) notifyResponse(result *RespondOfferResult) {
	offer := result.Offer
	data := map[string]interface{}{"offer_id": offer.ID, "listing_id": offer.ListingID, "status": offer.Status}

	switch offer.Status {
	case entity.OfferStatusAccepted:
		uc.effects.Notify(offer.Proposer(), entity.NotificationOfferResponded,
			"Offer accepted", fmt.Sprintf("Your offer of %.2f %s was accepted", offer.Amount, offer.Currency), data)
		for _, other := range result.Rejected {
			uc.effects.Notify(other.Proposer(), entity.NotificationOfferResponded,
				"Offer declined", "The listing accepted another offer",
				map[string]interface{}{"offer_id": other.ID, "listing_id": other.ListingID, "status": other.Status})
		}
	case entity.OfferStatusRejected:
		uc.effects.Notify(offer.Proposer(), entity.NotificationOfferResponded,
			"Offer declined", fmt.Sprintf("Your offer of %.2f %s was declined", offer.Amount, offer.Currency), data)
	case entity.OfferStatusCountered:
		counter := result.CounterOffer
		data["counter_offer_id"] = counter.ID
		uc.effects.Notify(counter.Responder(), entity.NotificationOfferReceived,
			"Counter offer received", fmt.Sprintf("You received a counter offer of %.2f %s", counter.Amount, counter.Currency), data)
	}
}

func (uc *OfferUseCase) Withdraw(ctx context.Context, offerID, actorID string) (*entity.Offer, error) {
	offer, err := uc.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Proposer() != actorID {
		return nil, errors.Forbidden("Only the party who made the offer can withdraw it", nil)
	}

	now := uc.now()
	return uc.offerRepo.UpdateFn(ctx, offerID, func(o *entity.Offer) error {
		if !o.IsPending() {
			return errors.BadRequest(fmt.Sprintf("Offer is already %s", o.Status), nil)
		}
		o.Status = entity.OfferStatusWithdrawn
		o.RespondedAt = &now
		return nil
	})
}

// ExpireStale moves every pending offer past its expiry to expired. Safe to
// run from several workers at once.
func (uc *OfferUseCase) ExpireStale(ctx context.Context) (int, error) {
	expired, err := uc.offerRepo.ExpireStale(ctx, uc.now(), offerSweepBatch)
	for _, offer := range expired {
		uc.effects.Notify(offer.Proposer(), entity.NotificationOfferResponded,
			"Offer expired", "Your offer expired without a response",
			map[string]interface{}{"offer_id": offer.ID, "listing_id": offer.ListingID, "status": offer.Status})
	}
	return len(expired), err
}

func (uc *OfferUseCase) Get(ctx context.Context, offerID, actorID string) (*entity.Offer, error) {
	offer, err := uc.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.BuyerID != actorID && offer.SellerID != actorID {
		return nil, errors.Forbidden("You don't have permission to view this offer", nil)
	}
	return offer, nil
}

// ListByListing is restricted to the listing's seller.
func (uc *OfferUseCase) ListByListing(ctx context.Context, listingID, sellerID, status string) ([]*entity.Offer, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != sellerID {
		return nil, errors.Forbidden("Only the seller can view offers on this listing", nil)
	}
	return uc.offerRepo.ListByListing(ctx, listingID, status)
}

func (uc *OfferUseCase) ListByBuyer(ctx context.Context, buyerID, status string) ([]*entity.Offer, error) {
	return uc.offerRepo.ListByBuyer(ctx, buyerID, status)
}

func oppositeParty(party string) string {
	if party == entity.PartySeller {
		return entity.PartyBuyer
	}
	return entity.PartySeller
}
