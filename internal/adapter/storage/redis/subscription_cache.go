package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"audit-webhook-engine/internal/core/domain"
	"audit-webhook-engine/internal/core/ports"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// cachedSubscription mirrors the fields the enqueue path needs.
type cachedSubscription struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	EndpointURL string    `json:"endpoint_url"`
	Secret      string    `json:"secret"`
	EventTypes  []string  `json:"event_types"`
	Status      string    `json:"status"`
}

// SubscriptionCache implements ports.SubscriptionCache using Redis. It sits
// in front of the database on the enqueue hot path; every event ingest
// triggers a subscription lookup for its organization.
type SubscriptionCache struct {
	client *goredis.Client
	prefix string
}

// NewSubscriptionCache creates a Redis-backed subscription cache.
func NewSubscriptionCache(client *goredis.Client) *SubscriptionCache {
	return &SubscriptionCache{
		client: client,
		prefix: "subscriptions:active:",
	}
}

var _ ports.SubscriptionCache = (*SubscriptionCache)(nil)

// Get returns the cached active subscriptions for an organization.
// The second return value reports whether the key was present; a cached
// empty list is a valid hit.
func (c *SubscriptionCache) Get(ctx context.Context, orgID uuid.UUID) ([]domain.WebhookSubscription, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+orgID.String()).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis subscription get: %w", err)
	}

	var cached []cachedSubscription
	if err := json.Unmarshal(val, &cached); err != nil {
		return nil, false, fmt.Errorf("decode cached subscriptions: %w", err)
	}

	subs := make([]domain.WebhookSubscription, 0, len(cached))
	for _, cs := range cached {
		subs = append(subs, domain.WebhookSubscription{
			ID:             cs.ID,
			OrganizationID: orgID,
			Name:           cs.Name,
			EndpointURL:    cs.EndpointURL,
			Secret:         cs.Secret,
			EventTypes:     cs.EventTypes,
			Status:         domain.WebhookStatus(cs.Status),
		})
	}
	return subs, true, nil
}

// Set stores an organization's active subscriptions with a TTL.
func (c *SubscriptionCache) Set(ctx context.Context, orgID uuid.UUID, subs []domain.WebhookSubscription, ttl time.Duration) error {
	cached := make([]cachedSubscription, 0, len(subs))
	for _, s := range subs {
		cached = append(cached, cachedSubscription{
			ID:          s.ID,
			Name:        s.Name,
			EndpointURL: s.EndpointURL,
			Secret:      s.Secret,
			EventTypes:  s.EventTypes,
			Status:      string(s.Status),
		})
	}

	val, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("encode subscriptions: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+orgID.String(), val, ttl).Err(); err != nil {
		return fmt.Errorf("redis subscription set: %w", err)
	}
	return nil
}

// Invalidate drops an organization's cache entry after any subscription
// mutation.
func (c *SubscriptionCache) Invalidate(ctx context.Context, orgID uuid.UUID) error {
	if err := c.client.Del(ctx, c.prefix+orgID.String()).Err(); err != nil {
		return fmt.Errorf("redis subscription invalidate: %w", err)
	}
	return nil
}
