package entity

import "time"

const (
	ListingStatusActive        = "active"
	ListingStatusPendingReview = "pending_review"
	ListingStatusSold          = "sold"
	ListingStatusSuspended     = "suspended"
	ListingStatusRejected      = "rejected"
)

// Listing is owned by the catalogue service. The engine only reads it and
// flips its status when a sale settles or unwinds.
type Listing struct {
	ID        string    `json:"id" firestore:"id"`
	SellerID  string    `json:"seller_id" firestore:"sellerId"`
	Title     string    `json:"title" firestore:"title"`
	Platform  string    `json:"platform" firestore:"platform"`
	Price     float64   `json:"price" firestore:"price"`
	Currency  string    `json:"currency" firestore:"currency"`
	Status    string    `json:"status" firestore:"status"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (l *Listing) IsActive() bool {
	return l.Status == ListingStatusActive
}
