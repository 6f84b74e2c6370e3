package entity

import "time"

// AuditLog records every admin-privileged mutation.
type AuditLog struct {
	ID           string                 `json:"id" firestore:"id"`
	ActorID      string                 `json:"actor_id" firestore:"actorId"`
	Action       string                 `json:"action" firestore:"action"`
	ResourceType string                 `json:"resource_type" firestore:"resourceType"`
	ResourceID   string                 `json:"resource_id" firestore:"resourceId"`
	Payload      map[string]interface{} `json:"payload,omitempty" firestore:"payload,omitempty"`
	CreatedAt    time.Time              `json:"created_at" firestore:"createdAt"`
}
