package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"audit-webhook-engine/internal/core/domain"
	"audit-webhook-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WebhookRepo implements ports.WebhookRepository.
type WebhookRepo struct {
	pool Pool
}

// NewWebhookRepo creates a PostgreSQL-backed WebhookRepository.
func NewWebhookRepo(pool Pool) *WebhookRepo {
	return &WebhookRepo{pool: pool}
}

var _ ports.WebhookRepository = (*WebhookRepo)(nil)

const webhookColumns = `id, organization_id, name, endpoint_url, secret, event_types, status, created_at, updated_at`

// Create inserts a new webhook subscription.
func (r *WebhookRepo) Create(ctx context.Context, w *domain.WebhookSubscription) error {
	eventTypes, err := json.Marshal(w.EventTypes)
	if err != nil {
		return fmt.Errorf("marshal event types: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO webhook_subscriptions (id, organization_id, name, endpoint_url, secret, event_types, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		w.ID, w.OrganizationID, w.Name, w.EndpointURL, w.Secret,
		eventTypes, string(w.Status), w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook subscription: %w", err)
	}
	return nil
}

// GetByID fetches a subscription by UUID. Returns nil, nil when absent.
func (r *WebhookRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookSubscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_subscriptions WHERE id = $1`, webhookColumns)
	return r.scanWebhook(r.pool.QueryRow(ctx, query, id))
}

// ListByOrganization returns all subscriptions owned by an organization.
func (r *WebhookRepo) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]domain.WebhookSubscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_subscriptions WHERE organization_id = $1 ORDER BY created_at DESC`, webhookColumns)
	return r.queryWebhooks(ctx, query, orgID)
}

// ListActiveByOrganization returns subscriptions eligible for new deliveries.
func (r *WebhookRepo) ListActiveByOrganization(ctx context.Context, orgID uuid.UUID) ([]domain.WebhookSubscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_subscriptions WHERE organization_id = $1 AND status = $2 ORDER BY created_at DESC`, webhookColumns)
	return r.queryWebhooks(ctx, query, orgID, string(domain.WebhookStatusActive))
}

// Update persists mutable subscription fields.
func (r *WebhookRepo) Update(ctx context.Context, w *domain.WebhookSubscription) error {
	eventTypes, err := json.Marshal(w.EventTypes)
	if err != nil {
		return fmt.Errorf("marshal event types: %w", err)
	}

	w.UpdatedAt = time.Now().UTC()
	_, err = r.pool.Exec(ctx,
		`UPDATE webhook_subscriptions
		 SET name = $1, endpoint_url = $2, event_types = $3, status = $4, updated_at = $5
		 WHERE id = $6`,
		w.Name, w.EndpointURL, eventTypes, string(w.Status), w.UpdatedAt, w.ID,
	)
	if err != nil {
		return fmt.Errorf("update webhook subscription: %w", err)
	}
	return nil
}

// Delete removes a subscription. Delivery rows referencing it are retained;
// the worker terminates them with a referential failure.
func (r *WebhookRepo) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM webhook_subscriptions WHERE organization_id = $1 AND id = $2`,
		orgID, id,
	)
	if err != nil {
		return fmt.Errorf("delete webhook subscription: %w", err)
	}
	return nil
}

func (r *WebhookRepo) queryWebhooks(ctx context.Context, query string, args ...any) ([]domain.WebhookSubscription, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query webhook subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.WebhookSubscription
	for rows.Next() {
		w, err := scanWebhookRow(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook rows: %w", err)
	}
	return subs, nil
}

func (r *WebhookRepo) scanWebhook(row pgx.Row) (*domain.WebhookSubscription, error) {
	w, err := scanWebhookRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func scanWebhookRow(row pgx.Row) (*domain.WebhookSubscription, error) {
	w := &domain.WebhookSubscription{}
	var eventTypes []byte
	var status string
	err := row.Scan(
		&w.ID, &w.OrganizationID, &w.Name, &w.EndpointURL, &w.Secret,
		&eventTypes, &status, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan webhook subscription: %w", err)
	}
	w.Status = domain.WebhookStatus(status)
	if len(eventTypes) > 0 {
		if err := json.Unmarshal(eventTypes, &w.EventTypes); err != nil {
			return nil, fmt.Errorf("unmarshal event types: %w", err)
		}
	}
	return w, nil
}
