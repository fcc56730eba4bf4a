package dto

import (
	"time"

	"audit-webhook-engine/internal/core/domain"
	"audit-webhook-engine/internal/core/ports"
)

// CreateWebhookRequest is the request body for subscription creation.
//
// An empty or omitted event_types list subscribes the endpoint to EVERY
// event in the organization.
type CreateWebhookRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=100"`
	EndpointURL string   `json:"endpoint_url" binding:"required,safe_url,max=2048"`
	Secret      string   `json:"secret,omitempty" binding:"omitempty,max=256"`
	EventTypes  []string `json:"event_types,omitempty"`
}

// UpdateWebhookRequest is the request body for partial subscription updates.
// Omitted fields are left unchanged.
type UpdateWebhookRequest struct {
	Name        *string   `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	EndpointURL *string   `json:"endpoint_url,omitempty" binding:"omitempty,safe_url,max=2048"`
	EventTypes  *[]string `json:"event_types,omitempty"`
	Status      *string   `json:"status,omitempty" binding:"omitempty,oneof=active disabled"`
}

// WebhookResponse is the response body for subscription reads. The secret
// is always masked.
type WebhookResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	EndpointURL string   `json:"endpoint_url"`
	Secret      string   `json:"secret"`
	EventTypes  []string `json:"event_types"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// WebhookCreatedResponse carries the full secret exactly once.
type WebhookCreatedResponse struct {
	WebhookResponse
	Secret string `json:"secret"`
}

// IngestEventRequest is the request body for audit event ingestion.
type IngestEventRequest struct {
	ResourceType string `json:"resource_type" binding:"required,safe_id,max=100"`
	Action       string `json:"action" binding:"required,safe_id,max=100"`
	ActorID      string `json:"actor_id,omitempty" binding:"omitempty,max=255"`
	ResourceID   string `json:"resource_id,omitempty" binding:"omitempty,max=255"`
	Metadata     string `json:"metadata,omitempty"`
}

// EventResponse is the response body for an accepted event.
type EventResponse struct {
	ID           string `json:"id"`
	EventType    string `json:"event_type"`
	ResourceType string `json:"resource_type"`
	Action       string `json:"action"`
	CreatedAt    string `json:"created_at"`
}

// DeliveryResponse is the response body for delivery records.
type DeliveryResponse struct {
	ID          string  `json:"id"`
	WebhookID   string  `json:"webhook_id"`
	WebhookName string  `json:"webhook_name"`
	EndpointURL string  `json:"endpoint_url"`
	EventType   string  `json:"event_type"`
	Status      string  `json:"status"`
	Attempts    int     `json:"attempts"`
	StatusCode  *int    `json:"status_code,omitempty"`
	Error       *string `json:"error,omitempty"`
	AttemptedAt *string `json:"attempted_at,omitempty"`
	CompletedAt *string `json:"completed_at,omitempty"`
	NextRetryAt *string `json:"next_retry_at,omitempty"`
	LatencyMs   *int64  `json:"latency_ms,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// DeliveryListResponse is the paginated listing envelope.
type DeliveryListResponse struct {
	Deliveries []DeliveryResponse `json:"deliveries"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
}

// ListDeliveriesQuery binds the delivery listing query string.
type ListDeliveriesQuery struct {
	WebhookID    string `form:"webhook_id" binding:"omitempty,uuid"`
	Status       string `form:"status" binding:"omitempty,oneof=pending success failed"`
	EventType    string `form:"event_type" binding:"omitempty,max=200"`
	Endpoint     string `form:"endpoint" binding:"omitempty,max=2048"`
	From         string `form:"from" binding:"omitempty"` // RFC 3339
	To           string `form:"to" binding:"omitempty"`
	MinLatencyMs *int64 `form:"min_latency_ms" binding:"omitempty,gte=0"`
	MaxLatencyMs *int64 `form:"max_latency_ms" binding:"omitempty,gte=0"`
	Page         int    `form:"page" binding:"omitempty,gte=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,gte=1,lte=100"`
}

// ToWebhookResponse maps a subscription to its read representation with the
// secret masked.
func ToWebhookResponse(w *domain.WebhookSubscription) WebhookResponse {
	eventTypes := w.EventTypes
	if eventTypes == nil {
		eventTypes = []string{}
	}
	return WebhookResponse{
		ID:          w.ID.String(),
		Name:        w.Name,
		EndpointURL: w.EndpointURL,
		Secret:      w.MaskedSecret(),
		EventTypes:  eventTypes,
		Status:      string(w.Status),
		CreatedAt:   w.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   w.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ToWebhookCreatedResponse maps a creation result, exposing the full secret.
func ToWebhookCreatedResponse(res *ports.CreateWebhookResult) WebhookCreatedResponse {
	return WebhookCreatedResponse{
		WebhookResponse: ToWebhookResponse(res.Webhook),
		Secret:          res.Secret,
	}
}

// ToEventResponse maps an accepted audit event.
func ToEventResponse(e *domain.AuditEvent) EventResponse {
	return EventResponse{
		ID:           e.ID.String(),
		EventType:    e.EventType(),
		ResourceType: e.ResourceType,
		Action:       e.Action,
		CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ToDeliveryResponse maps a joined delivery record.
func ToDeliveryResponse(item ports.DeliveryListItem) DeliveryResponse {
	resp := DeliveryResponse{
		ID:          item.ID.String(),
		WebhookID:   item.WebhookID.String(),
		WebhookName: item.WebhookName,
		EndpointURL: item.EndpointURL,
		EventType:   item.EventType,
		Status:      string(item.Status),
		Attempts:    item.Attempts,
		StatusCode:  item.StatusCode,
		Error:       item.Error,
		AttemptedAt: formatTimePtr(item.AttemptedAt),
		CompletedAt: formatTimePtr(item.CompletedAt),
		NextRetryAt: formatTimePtr(item.NextRetryAt),
		CreatedAt:   item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if lat, ok := item.Latency(); ok {
		ms := lat.Milliseconds()
		resp.LatencyMs = &ms
	}
	return resp
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
