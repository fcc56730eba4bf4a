package ports

import (
	"context"

	"audit-webhook-engine/internal/core/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

// SignatureService handles HMAC-SHA256 signing of delivery payloads.
type SignatureService interface {
	// Sign returns lowercase hex of HMAC-SHA256(secret, payload).
	Sign(secret string, payload []byte) string
	// Verify checks a signature in constant time.
	Verify(secret string, payload []byte, signature string) bool
	// Header returns the x-signature header value: "sha256=<hex>".
	Header(secret string, payload []byte) string
}

// Enqueuer fans a fired audit event out into pending delivery records.
// It never propagates errors to the ingestion path: delivery is best-effort
// relative to the system of record, so failures are logged and swallowed.
type Enqueuer interface {
	EnqueueDeliveries(ctx context.Context, orgID uuid.UUID, eventType string, envelope domain.EventEnvelope)
}

// --- Service Ports (Business Logic) ---

// WebhookService manages webhook subscriptions.
type WebhookService interface {
	Create(ctx context.Context, req CreateWebhookRequest) (*CreateWebhookResult, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*domain.WebhookSubscription, error)
	List(ctx context.Context, orgID uuid.UUID) ([]domain.WebhookSubscription, error)
	Update(ctx context.Context, orgID, id uuid.UUID, req UpdateWebhookRequest) (*domain.WebhookSubscription, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

// CreateWebhookRequest holds validated input for subscription creation.
//
// EventTypes semantics: an EMPTY list subscribes the endpoint to every event
// in the organization. To subscribe to nothing, disable the webhook instead.
type CreateWebhookRequest struct {
	OrganizationID uuid.UUID
	Name           string
	EndpointURL    string
	Secret         string // empty = generate
	EventTypes     []string
}

// CreateWebhookResult carries the one-time full secret alongside the
// subscription. The secret is never shown in full again.
type CreateWebhookResult struct {
	Webhook *domain.WebhookSubscription
	Secret  string
}

// UpdateWebhookRequest holds partial updates; nil fields are unchanged.
type UpdateWebhookRequest struct {
	Name        *string
	EndpointURL *string
	EventTypes  *[]string
	Status      *domain.WebhookStatus
}

// DeliveryService exposes the filtered, paginated delivery listing.
type DeliveryService interface {
	List(ctx context.Context, params DeliveryListParams) ([]DeliveryListItem, int64, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*DeliveryListItem, error)
}

// EventService ingests audit events and triggers delivery fan-out.
type EventService interface {
	Ingest(ctx context.Context, req IngestEventRequest) (*domain.AuditEvent, error)
}

// IngestEventRequest holds validated input for event ingestion.
type IngestEventRequest struct {
	OrganizationID uuid.UUID
	ResourceType   string
	Action         string
	ActorID        string
	ResourceID     string
	Metadata       string // JSON string, optional
}
