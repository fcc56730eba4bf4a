package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent is a single tenant activity record. The engine treats the
// audit store as the system of record: an event is durably inserted before
// any deliveries are enqueued for it.
type AuditEvent struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	ResourceType   string    `json:"resource_type"`
	Action         string    `json:"action"`
	ActorID        string    `json:"actor_id,omitempty"`
	ResourceID     string    `json:"resource_id,omitempty"`
	Metadata       string    `json:"metadata,omitempty"` // JSON string
	CreatedAt      time.Time `json:"created_at"`
}

// EventType returns the resourceType.action string subscriptions match on.
func (e *AuditEvent) EventType() string {
	return e.ResourceType + "." + e.Action
}

// EventEnvelope is the wire payload POSTed to subscriber endpoints.
type EventEnvelope struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"` // ISO-8601
	Data      map[string]any `json:"data"`
}

// NewEventEnvelope wraps an audit event in the delivery wire format.
func NewEventEnvelope(e *AuditEvent) EventEnvelope {
	data := map[string]any{
		"id":            e.ID.String(),
		"resource_type": e.ResourceType,
		"action":        e.Action,
	}
	if e.ActorID != "" {
		data["actor_id"] = e.ActorID
	}
	if e.ResourceID != "" {
		data["resource_id"] = e.ResourceID
	}
	if e.Metadata != "" {
		data["metadata"] = e.Metadata
	}
	return EventEnvelope{
		Event:     e.EventType(),
		Timestamp: e.CreatedAt.UTC().Format(time.RFC3339),
		Data:      data,
	}
}
