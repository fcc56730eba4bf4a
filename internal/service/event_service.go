package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"audit-webhook-engine/internal/core/domain"
	"audit-webhook-engine/internal/core/ports"
	"audit-webhook-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventServiceImpl implements ports.EventService. Ingestion commits the
// event to the audit store first, then hands it to the enqueuer; delivery
// fan-out never affects the ingestion result.
type EventServiceImpl struct {
	eventRepo ports.EventRepository
	enqueuer  ports.Enqueuer
	log       zerolog.Logger
}

// NewEventService creates a new EventServiceImpl.
func NewEventService(eventRepo ports.EventRepository, enqueuer ports.Enqueuer, log zerolog.Logger) *EventServiceImpl {
	return &EventServiceImpl{eventRepo: eventRepo, enqueuer: enqueuer, log: log}
}

var _ ports.EventService = (*EventServiceImpl)(nil)

// Ingest records an audit event and enqueues deliveries for it.
func (s *EventServiceImpl) Ingest(ctx context.Context, req ports.IngestEventRequest) (*domain.AuditEvent, error) {
	if strings.TrimSpace(req.ResourceType) == "" || strings.TrimSpace(req.Action) == "" {
		return nil, apperror.ErrInvalidEvent("resource_type and action are required")
	}
	if strings.Contains(req.ResourceType, ".") || strings.Contains(req.Action, ".") {
		return nil, apperror.ErrInvalidEvent("resource_type and action must not contain dots")
	}
	if req.Metadata != "" && !json.Valid([]byte(req.Metadata)) {
		return nil, apperror.ErrInvalidEvent("metadata must be valid JSON")
	}

	e := &domain.AuditEvent{
		ID:             uuid.New(),
		OrganizationID: req.OrganizationID,
		ResourceType:   req.ResourceType,
		Action:         req.Action,
		ActorID:        req.ActorID,
		ResourceID:     req.ResourceID,
		Metadata:       req.Metadata,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.eventRepo.Create(ctx, e); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	s.enqueuer.EnqueueDeliveries(ctx, e.OrganizationID, e.EventType(), domain.NewEventEnvelope(e))
	return e, nil
}
