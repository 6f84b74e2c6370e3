package entity

import "time"

type Conversation struct {
	ID            string    `json:"id" firestore:"id"`
	Participants  []string  `json:"participants" firestore:"participants"`
	ListingID     string    `json:"listing_id,omitempty" firestore:"listingId,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty" firestore:"transactionId,omitempty"`
	Type          string    `json:"type" firestore:"type"` // direct, transaction
	CreatedAt     time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time `json:"updated_at" firestore:"updatedAt"`
}
