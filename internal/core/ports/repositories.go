package ports

import (
	"context"
	"time"

	"audit-webhook-engine/internal/core/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

// WebhookRepository defines persistence operations for webhook subscriptions.
type WebhookRepository interface {
	Create(ctx context.Context, w *domain.WebhookSubscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookSubscription, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]domain.WebhookSubscription, error)
	// ListActiveByOrganization returns only subscriptions eligible for new
	// deliveries (status = active).
	ListActiveByOrganization(ctx context.Context, orgID uuid.UUID) ([]domain.WebhookSubscription, error)
	Update(ctx context.Context, w *domain.WebhookSubscription) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

// DeliveryRepository defines persistence for delivery records. The store is
// the single source of truth for what needs sending and when to retry it;
// every state transition is a single-row write.
type DeliveryRepository interface {
	Create(ctx context.Context, d *domain.Delivery) error
	CreateBatch(ctx context.Context, ds []*domain.Delivery) error
	// Update persists the outcome of one dispatch attempt atomically.
	Update(ctx context.Context, d *domain.Delivery) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Delivery, error)
	// FetchDue returns up to limit pending deliveries whose next_retry_at is
	// null or in the past, oldest first.
	FetchDue(ctx context.Context, limit int) ([]domain.Delivery, error)
	List(ctx context.Context, params DeliveryListParams) ([]DeliveryListItem, int64, error)
	GetListItem(ctx context.Context, orgID, id uuid.UUID) (*DeliveryListItem, error)
}

// DeliveryListParams holds filter + pagination for the delivery listing.
type DeliveryListParams struct {
	OrganizationID   uuid.UUID
	WebhookID        *uuid.UUID
	Status           *domain.DeliveryStatus
	EventType        *string
	EndpointContains *string
	From             *time.Time
	To               *time.Time
	MinLatency       *time.Duration
	MaxLatency       *time.Duration
	Page             int
	PageSize         int
}

// DeliveryListItem is a delivery joined with its subscription for operator
// visibility.
type DeliveryListItem struct {
	domain.Delivery
	WebhookName string `json:"webhook_name"`
	EndpointURL string `json:"endpoint_url"`
	EventType   string `json:"event_type"`
}

// EventRepository defines persistence for audit events. The event row is
// inserted before any deliveries are enqueued for it.
type EventRepository interface {
	Create(ctx context.Context, e *domain.AuditEvent) error
}

// SubscriptionCache is a short-TTL cache of an organization's active
// subscriptions, read on the enqueue hot path in front of the database.
type SubscriptionCache interface {
	// Get returns the cached subscriptions and whether the key was present.
	Get(ctx context.Context, orgID uuid.UUID) ([]domain.WebhookSubscription, bool, error)
	Set(ctx context.Context, orgID uuid.UUID, subs []domain.WebhookSubscription, ttl time.Duration) error
	Invalidate(ctx context.Context, orgID uuid.UUID) error
}
