package entity

import "time"

const (
	OfferStatusPending   = "pending"
	OfferStatusAccepted  = "accepted"
	OfferStatusRejected  = "rejected"
	OfferStatusCountered = "countered"
	OfferStatusWithdrawn = "withdrawn"
	OfferStatusExpired   = "expired"

	OfferActionAccept  = "accept"
	OfferActionReject  = "reject"
	OfferActionCounter = "counter"

	PartyBuyer  = "buyer"
	PartySeller = "seller"
)

type Offer struct {
	ID         string  `json:"id" firestore:"id"`
	ListingID  string  `json:"listing_id" firestore:"listingId"`
	BuyerID    string  `json:"buyer_id" firestore:"buyerId"`
	SellerID   string  `json:"seller_id" firestore:"sellerId"`
	Amount     float64 `json:"amount" firestore:"amount"`
	Currency   string  `json:"currency" firestore:"currency"`
	Message    string  `json:"message,omitempty" firestore:"message,omitempty"`
	Status     string  `json:"status" firestore:"status"`
	ProposedBy string  `json:"proposed_by" firestore:"proposedBy"` // buyer, seller

	// CounterOfferID points from a countered offer to its replacement;
	// ParentOfferID points back from the replacement.
	CounterOfferID string `json:"counter_offer_id,omitempty" firestore:"counterOfferId,omitempty"`
	ParentOfferID  string `json:"parent_offer_id,omitempty" firestore:"parentOfferId,omitempty"`

	ExpiresAt   time.Time  `json:"expires_at" firestore:"expiresAt"`
	RespondedAt *time.Time `json:"responded_at,omitempty" firestore:"respondedAt,omitempty"`
	CreatedAt   time.Time  `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time  `json:"updated_at" firestore:"updatedAt"`
}

func (o *Offer) IsPending() bool {
	return o.Status == OfferStatusPending
}

func (o *Offer) IsExpired(now time.Time) bool {
	return !o.ExpiresAt.IsZero() && now.After(o.ExpiresAt)
}

// Proposer returns the user who made this offer.
func (o *Offer) Proposer() string {
	if o.ProposedBy == PartySeller {
		return o.SellerID
	}
	return o.BuyerID
}

// Responder returns the user expected to answer this offer.
func (o *Offer) Responder() string {
	if o.ProposedBy == PartySeller {
		return o.BuyerID
	}
	return o.SellerID
}
