package entity

import "time"

const (
	StepStatusPending    = "pending"
	StepStatusInProgress = "in_progress"
	StepStatusCompleted  = "completed"
)

// TransferStep is one attested action of the account handover plan.
type TransferStep struct {
	StepNumber   int        `json:"step_number" firestore:"stepNumber"`
	Title        string     `json:"title" firestore:"title"`
	Description  string     `json:"description" firestore:"description"`
	Instructions []string   `json:"instructions" firestore:"instructions"`
	Status       string     `json:"status" firestore:"status"`
	ProofURL     string     `json:"proof_url,omitempty" firestore:"proofUrl,omitempty"`
	Notes        string     `json:"notes,omitempty" firestore:"notes,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" firestore:"completedAt,omitempty"`
	CompletedBy  string     `json:"completed_by,omitempty" firestore:"completedBy,omitempty"`
	AmendedAt    *time.Time `json:"amended_at,omitempty" firestore:"amendedAt,omitempty"`
}

func (s *TransferStep) IsCompleted() bool {
	return s.Status == StepStatusCompleted
}
