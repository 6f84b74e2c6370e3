package repository

import (
	"context"
	stderrors "errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"accountmarket/internal/domain/entity"
	"accountmarket/internal/domain/repository"
	"accountmarket/pkg/errors"
)

type firestoreOfferRepository struct {
	client *firestore.Client
}

func NewFirestoreOfferRepository(client *firestore.Client) repository.OfferRepository {
	return &firestoreOfferRepository{
		client: client,
	}
}

func (r *firestoreOfferRepository) offers() *firestore.CollectionRef {
	return r.client.Collection("offers")
}

func (r *firestoreOfferRepository) CreatePending(ctx context.Context, offer *entity.Offer) error {
	if offer.ID == "" {
		offer.ID = uuid.New().String()
	}

	existing := r.offers().
		Where("listingId", "==", offer.ListingID).
		Where("buyerId", "==", offer.BuyerID).
		Where("status", "==", entity.OfferStatusPending).
		Limit(1)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(existing).GetAll()
		if err != nil {
			return errors.Internal("Failed to check pending offers", err)
		}
		if len(docs) > 0 {
			return errors.BadRequest("You already have a pending offer on this listing", nil)
		}
		return tx.Create(r.offers().Doc(offer.ID), offer)
	})
	if err != nil {
		return wrapTxError(err, "Failed to create offer")
	}
	return nil
}

func (r *firestoreOfferRepository) GetByID(ctx context.Context, id string) (*entity.Offer, error) {
	doc, err := r.offers().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Offer", err)
		}
		return nil, errors.Internal("Failed to get offer", err)
	}
	return decodeOffer(doc)
}

func decodeOffer(doc *firestore.DocumentSnapshot) (*entity.Offer, error) {
	var offer entity.Offer
	if err := doc.DataTo(&offer); err != nil {
		return nil, errors.Internal("Failed to parse offer data", err)
	}
	return &offer, nil
}

func (r *firestoreOfferRepository) getInTx(tx *firestore.Transaction, id string) (*entity.Offer, error) {
	doc, err := tx.Get(r.offers().Doc(id))
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Offer", err)
		}
		return nil, errors.Internal("Failed to get offer", err)
	}
	return decodeOffer(doc)
}

func (r *firestoreOfferRepository) UpdateFn(ctx context.Context, id string, fn func(offer *entity.Offer) error) (*entity.Offer, error) {
	var result *entity.Offer
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		offer, err := r.getInTx(tx, id)
		if err != nil {
			return err
		}
		result = offer

		if err := fn(offer); err != nil {
			return err
		}
		offer.UpdatedAt = time.Now()
		return tx.Set(r.offers().Doc(id), offer)
	})
	return finish(result, err, "Failed to update offer")
}

func (r *firestoreOfferRepository) Accept(ctx context.Context, id string, fn func(offer *entity.Offer) error) (*entity.Offer, []*entity.Offer, error) {
	var accepted *entity.Offer
	var rejected []*entity.Offer

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		rejected = nil

		offer, err := r.getInTx(tx, id)
		if err != nil {
			return err
		}
		accepted = offer

		others, err := tx.Documents(r.offers().
			Where("listingId", "==", offer.ListingID).
			Where("status", "==", entity.OfferStatusPending)).GetAll()
		if err != nil {
			return errors.Internal("Failed to load competing offers", err)
		}

		if err := fn(offer); err != nil {
			return err
		}

		now := time.Now()
		offer.UpdatedAt = now
		if err := tx.Set(r.offers().Doc(offer.ID), offer); err != nil {
			return err
		}

		for _, doc := range others {
			other, err := decodeOffer(doc)
			if err != nil {
				return err
			}
			if other.ID == offer.ID {
				continue
			}
			other.Status = entity.OfferStatusRejected
			other.RespondedAt = &now
			other.UpdatedAt = now
			if err := tx.Set(doc.Ref, other); err != nil {
				return err
			}
			rejected = append(rejected, other)
		}
		return nil
	})
	if err != nil {
		return nil, nil, wrapTxError(err, "Failed to accept offer")
	}
	return accepted, rejected, nil
}

func (r *firestoreOfferRepository) Counter(ctx context.Context, id string, fn func(original *entity.Offer) (*entity.Offer, error)) (*entity.Offer, *entity.Offer, error) {
	var original, counter *entity.Offer

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		offer, err := r.getInTx(tx, id)
		if err != nil {
			return err
		}
		original = offer

		counter, err = fn(offer)
		if err != nil {
			return err
		}
		if counter.ID == "" {
			counter.ID = uuid.New().String()
		}

		offer.UpdatedAt = time.Now()
		if err := tx.Set(r.offers().Doc(offer.ID), offer); err != nil {
			return err
		}
		return tx.Create(r.offers().Doc(counter.ID), counter)
	})
	if err != nil {
		return nil, nil, wrapTxError(err, "Failed to counter offer")
	}
	return original, counter, nil
}

// ExpireStale re-checks each candidate inside its own transaction so that an
// offer accepted concurrently is never expired.
func (r *firestoreOfferRepository) ExpireStale(ctx context.Context, now time.Time, limit int) ([]*entity.Offer, error) {
	query := r.offers().
		Where("status", "==", entity.OfferStatusPending).
		Where("expiresAt", "<", now).
		Limit(limit)

	var candidates []string
	err := collect(query.Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		candidates = append(candidates, doc.Ref.ID)
		return nil
	})
	if err != nil {
		return nil, errors.Internal("Failed to query stale offers", err)
	}

	var expired []*entity.Offer
	for _, id := range candidates {
		changed := false
		offer, err := r.UpdateFn(ctx, id, func(offer *entity.Offer) error {
			changed = false
			if !offer.IsPending() || !offer.IsExpired(now) {
				return repository.ErrNoChange
			}
			offer.Status = entity.OfferStatusExpired
			changed = true
			return nil
		})
		if err != nil {
			return expired, err
		}
		if changed {
			expired = append(expired, offer)
		}
	}
	return expired, nil
}

func (r *firestoreOfferRepository) ListByListing(ctx context.Context, listingID, status string) ([]*entity.Offer, error) {
	return r.list(ctx, "listingId", listingID, status)
}

func (r *firestoreOfferRepository) ListByBuyer(ctx context.Context, buyerID, status string) ([]*entity.Offer, error) {
	return r.list(ctx, "buyerId", buyerID, status)
}

func (r *firestoreOfferRepository) list(ctx context.Context, field, value, status string) ([]*entity.Offer, error) {
	query := r.offers().Where(field, "==", value)
	if status != "" {
		query = query.Where("status", "==", status)
	}
	query = query.OrderBy("createdAt", firestore.Desc)

	offers := []*entity.Offer{}
	err := collect(query.Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		offer, err := decodeOffer(doc)
		if err != nil {
			return err
		}
		offers = append(offers, offer)
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err, "Failed to list offers")
	}
	return offers, nil
}

// finish maps the outcome of an UpdateFn transaction. ErrNoChange aborts the
// write but still returns the record as read.
func finish[T any](result *T, err error, message string) (*T, error) {
	if err == nil {
		return result, nil
	}
	if stderrors.Is(err, repository.ErrNoChange) {
		return result, nil
	}
	return nil, wrapTxError(err, message)
}

func wrapTxError(err error, message string) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.Internal(message, err)
}
