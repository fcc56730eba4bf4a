package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// WebhookStatus represents the state of a webhook subscription.
type WebhookStatus string

const (
	WebhookStatusActive   WebhookStatus = "active"
	WebhookStatusDisabled WebhookStatus = "disabled"
)

// WebhookSubscription is a tenant-configured endpoint plus the set of event
// types it wants to receive.
//
// An empty EventTypes slice means the subscription receives EVERY event in
// the organization, not none. Callers creating subscriptions must be aware
// of this: omitting event types opts into the full stream.
type WebhookSubscription struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"organization_id"`
	Name           string        `json:"name"`
	EndpointURL    string        `json:"endpoint_url"`
	Secret         string        `json:"-"` // Shown in full only at creation
	EventTypes     []string      `json:"event_types"`
	Status         WebhookStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// IsActive returns true if the subscription receives new deliveries.
func (w *WebhookSubscription) IsActive() bool {
	return w.Status == WebhookStatusActive
}

// Matches reports whether the subscription wants the given event type.
// An empty EventTypes set matches everything.
func (w *WebhookSubscription) Matches(eventType string) bool {
	if len(w.EventTypes) == 0 {
		return true
	}
	for _, et := range w.EventTypes {
		if et == eventType {
			return true
		}
	}
	return false
}

// MaskedSecret returns the secret with all but the last four characters
// replaced, suitable for display after creation.
func (w *WebhookSubscription) MaskedSecret() string {
	if len(w.Secret) <= 4 {
		return strings.Repeat("*", len(w.Secret))
	}
	return strings.Repeat("*", len(w.Secret)-4) + w.Secret[len(w.Secret)-4:]
}

// ValidEventType reports whether s is in resourceType.action form: exactly
// one dot with non-empty segments on both sides.
func ValidEventType(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}
