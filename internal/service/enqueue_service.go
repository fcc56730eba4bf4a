package service

import (
	"context"
	"encoding/json"
	"time"

	"audit-webhook-engine/internal/core/domain"
	"audit-webhook-engine/internal/core/ports"
	"audit-webhook-engine/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const subscriptionCacheTTL = 30 * time.Second

// EnqueueServiceImpl implements ports.Enqueuer. It resolves the
// organization's active subscriptions (cache first, database on miss),
// filters them by event type, and inserts one pending delivery per match.
type EnqueueServiceImpl struct {
	webhookRepo  ports.WebhookRepository
	deliveryRepo ports.DeliveryRepository
	subCache     ports.SubscriptionCache
	log          zerolog.Logger
}

// NewEnqueueService creates a new EnqueueServiceImpl.
func NewEnqueueService(
	webhookRepo ports.WebhookRepository,
	deliveryRepo ports.DeliveryRepository,
	subCache ports.SubscriptionCache,
	log zerolog.Logger,
) *EnqueueServiceImpl {
	return &EnqueueServiceImpl{
		webhookRepo:  webhookRepo,
		deliveryRepo: deliveryRepo,
		subCache:     subCache,
		log:          log,
	}
}

var _ ports.Enqueuer = (*EnqueueServiceImpl)(nil)

// EnqueueDeliveries fans one fired event out into pending delivery records.
//
// The envelope is serialized exactly once here; the resulting bytes are
// stored on every delivery row and reused verbatim by each dispatch attempt,
// so the signature a receiver verifies never changes across retries.
//
// Failures are logged and swallowed: the event is already committed to the
// audit store and notification is best-effort relative to it.
func (s *EnqueueServiceImpl) EnqueueDeliveries(ctx context.Context, orgID uuid.UUID, eventType string, envelope domain.EventEnvelope) {
	subs, err := s.activeSubscriptions(ctx, orgID)
	if err != nil {
		s.log.Error().Err(err).
			Str("organization_id", orgID.String()).
			Str("event_type", eventType).
			Msg("failed to resolve subscriptions, event will not be delivered")
		return
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		s.log.Error().Err(err).
			Str("event_type", eventType).
			Msg("failed to serialize event envelope")
		return
	}

	now := time.Now().UTC()
	var deliveries []*domain.Delivery
	for i := range subs {
		if !subs[i].Matches(eventType) {
			continue
		}
		deliveries = append(deliveries, domain.NewPendingDelivery(subs[i].ID, payload, now))
	}
	if len(deliveries) == 0 {
		return
	}

	if err := s.deliveryRepo.CreateBatch(ctx, deliveries); err != nil {
		s.log.Error().Err(err).
			Str("organization_id", orgID.String()).
			Str("event_type", eventType).
			Int("count", len(deliveries)).
			Msg("failed to enqueue deliveries")
		return
	}

	metrics.DeliveriesEnqueued.WithLabelValues(eventType).Add(float64(len(deliveries)))
	s.log.Info().
		Str("organization_id", orgID.String()).
		Str("event_type", eventType).
		Int("count", len(deliveries)).
		Msg("deliveries enqueued")
}

// activeSubscriptions reads through the short-TTL cache in front of the
// database. Cache errors degrade to a database read; they never fail the
// enqueue.
func (s *EnqueueServiceImpl) activeSubscriptions(ctx context.Context, orgID uuid.UUID) ([]domain.WebhookSubscription, error) {
	subs, hit, err := s.subCache.Get(ctx, orgID)
	if err != nil {
		s.log.Warn().Err(err).Str("organization_id", orgID.String()).Msg("subscription cache read failed, falling through to DB")
	} else if hit {
		return subs, nil
	}

	subs, err = s.webhookRepo.ListActiveByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if err := s.subCache.Set(ctx, orgID, subs, subscriptionCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("organization_id", orgID.String()).Msg("subscription cache write failed")
	}
	return subs, nil
}
