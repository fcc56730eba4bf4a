package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"audit-webhook-engine/internal/core/domain"
	"audit-webhook-engine/internal/core/ports"
	"audit-webhook-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WebhookServiceImpl implements ports.WebhookService.
type WebhookServiceImpl struct {
	webhookRepo ports.WebhookRepository
	subCache    ports.SubscriptionCache
	log         zerolog.Logger
}

// NewWebhookService creates a new WebhookServiceImpl.
func NewWebhookService(
	webhookRepo ports.WebhookRepository,
	subCache ports.SubscriptionCache,
	log zerolog.Logger,
) *WebhookServiceImpl {
	return &WebhookServiceImpl{
		webhookRepo: webhookRepo,
		subCache:    subCache,
		log:         log,
	}
}

var _ ports.WebhookService = (*WebhookServiceImpl)(nil)

// Create registers a new subscription. When no secret is supplied a random
// whsec_ key is generated; the full value is returned exactly once.
func (s *WebhookServiceImpl) Create(ctx context.Context, req ports.CreateWebhookRequest) (*ports.CreateWebhookResult, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperror.Validation("name is required")
	}
	if err := validateEndpointURL(req.EndpointURL); err != nil {
		return nil, err
	}
	if err := validateEventTypes(req.EventTypes); err != nil {
		return nil, err
	}

	secret := req.Secret
	if secret == "" {
		var err error
		secret, err = generateSecret("whsec_", 32)
		if err != nil {
			return nil, apperror.InternalError(err)
		}
	}

	now := time.Now().UTC()
	w := &domain.WebhookSubscription{
		ID:             uuid.New(),
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		EndpointURL:    req.EndpointURL,
		Secret:         secret,
		EventTypes:     req.EventTypes,
		Status:         domain.WebhookStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.webhookRepo.Create(ctx, w); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	s.invalidateCache(ctx, req.OrganizationID)
	s.log.Info().
		Str("webhook_id", w.ID.String()).
		Str("organization_id", w.OrganizationID.String()).
		Str("name", w.Name).
		Msg("webhook subscription created")

	return &ports.CreateWebhookResult{Webhook: w, Secret: secret}, nil
}

// Get returns one subscription scoped to the organization.
func (s *WebhookServiceImpl) Get(ctx context.Context, orgID, id uuid.UUID) (*domain.WebhookSubscription, error) {
	w, err := s.webhookRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if w == nil || w.OrganizationID != orgID {
		return nil, apperror.ErrWebhookNotFound()
	}
	return w, nil
}

// List returns all of the organization's subscriptions.
func (s *WebhookServiceImpl) List(ctx context.Context, orgID uuid.UUID) ([]domain.WebhookSubscription, error) {
	subs, err := s.webhookRepo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return subs, nil
}

// Update applies a partial update; nil request fields are left unchanged.
func (s *WebhookServiceImpl) Update(ctx context.Context, orgID, id uuid.UUID, req ports.UpdateWebhookRequest) (*domain.WebhookSubscription, error) {
	w, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, apperror.Validation("name cannot be empty")
		}
		w.Name = *req.Name
	}
	if req.EndpointURL != nil {
		if err := validateEndpointURL(*req.EndpointURL); err != nil {
			return nil, err
		}
		w.EndpointURL = *req.EndpointURL
	}
	if req.EventTypes != nil {
		if err := validateEventTypes(*req.EventTypes); err != nil {
			return nil, err
		}
		w.EventTypes = *req.EventTypes
	}
	if req.Status != nil {
		if *req.Status != domain.WebhookStatusActive && *req.Status != domain.WebhookStatusDisabled {
			return nil, apperror.Validation("status must be active or disabled")
		}
		w.Status = *req.Status
	}
	w.UpdatedAt = time.Now().UTC()

	if err := s.webhookRepo.Update(ctx, w); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	s.invalidateCache(ctx, orgID)
	return w, nil
}

// Delete removes a subscription. Deliveries already enqueued for it fail
// terminally on their next dispatch attempt.
func (s *WebhookServiceImpl) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	if _, err := s.Get(ctx, orgID, id); err != nil {
		return err
	}
	if err := s.webhookRepo.Delete(ctx, orgID, id); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	s.invalidateCache(ctx, orgID)
	s.log.Info().
		Str("webhook_id", id.String()).
		Str("organization_id", orgID.String()).
		Msg("webhook subscription deleted")
	return nil
}

// invalidateCache drops the organization's cached subscription list after
// any mutation. Cache failures only delay visibility by the TTL.
func (s *WebhookServiceImpl) invalidateCache(ctx context.Context, orgID uuid.UUID) {
	if err := s.subCache.Invalidate(ctx, orgID); err != nil {
		s.log.Warn().Err(err).Str("organization_id", orgID.String()).Msg("subscription cache invalidation failed")
	}
}

func validateEndpointURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperror.ErrInvalidEndpointURL()
	}
	return nil
}

func validateEventTypes(eventTypes []string) error {
	for _, et := range eventTypes {
		if !domain.ValidEventType(et) {
			return apperror.ErrInvalidEventType(et)
		}
	}
	return nil
}

func generateSecret(prefix string, length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(b), nil
}
