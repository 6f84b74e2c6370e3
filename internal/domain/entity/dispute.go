package entity

import (
	"time"
)

const (
	DisputeStatusOpen          = "open"
	DisputeStatusInvestigating = "investigating"
	DisputeStatusResolved      = "resolved"

	DisputeResolutionRelease = "release"
	DisputeResolutionRefund  = "refund"
)

type Dispute struct {
	ID            string `json:"id" firestore:"id"`
	TransactionID string `json:"transaction_id" firestore:"transactionId"`
	ListingID     string `json:"listing_id" firestore:"listingId"`
	OpenedBy      string `json:"opened_by" firestore:"openedBy"`
	OpenedByRole  string `json:"opened_by_role" firestore:"openedByRole"` // buyer, seller
	RespondentID  string `json:"respondent_id" firestore:"respondentId"`
	Reason        string `json:"reason" firestore:"reason"`

	Evidence []DisputeEvidence `json:"evidence" firestore:"evidence"`

	Status          string     `json:"status" firestore:"status"`
	Resolution      string     `json:"resolution,omitempty" firestore:"resolution,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty" firestore:"resolutionNotes,omitempty"`
	ResolvedBy      string     `json:"resolved_by,omitempty" firestore:"resolvedBy,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty" firestore:"resolvedAt,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

type DisputeEvidence struct {
	ID          string    `json:"id" firestore:"id"`
	Type        string    `json:"type" firestore:"type"` // screenshot, video, text, file
	Title       string    `json:"title" firestore:"title"`
	Description string    `json:"description,omitempty" firestore:"description,omitempty"`
	FileURL     string    `json:"file_url,omitempty" firestore:"fileUrl,omitempty"`
	Content     string    `json:"content,omitempty" firestore:"content,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at" firestore:"uploadedAt"`
	UploadedBy  string    `json:"uploaded_by" firestore:"uploadedBy"`
}

// IsOpen reports whether the dispute still blocks party-driven transitions.
func (d *Dispute) IsOpen() bool {
	return d.Status != DisputeStatusResolved
}
