package postgres

import (
	"context"
	"fmt"

	"audit-webhook-engine/internal/core/domain"
	"audit-webhook-engine/internal/core/ports"
)

// EventRepo implements ports.EventRepository.
type EventRepo struct {
	pool Pool
}

// NewEventRepo creates a PostgreSQL-backed EventRepository.
func NewEventRepo(pool Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

var _ ports.EventRepository = (*EventRepo)(nil)

// Create inserts a new audit event. The event row is the system of record;
// delivery fan-out happens only after this insert succeeds.
func (r *EventRepo) Create(ctx context.Context, e *domain.AuditEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_events (id, organization_id, resource_type, action, actor_id, resource_id, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.OrganizationID, e.ResourceType, e.Action,
		e.ActorID, e.ResourceID, e.Metadata, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
