package redis

import (
	"context"
	"testing"
	"time"

	"audit-webhook-engine/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*SubscriptionCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	return NewSubscriptionCache(client), s
}

func TestSubscriptionCache_SetAndGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	orgID := uuid.New()

	subs := []domain.WebhookSubscription{
		{
			ID:          uuid.New(),
			Name:        "audit-feed",
			EndpointURL: "https://example.com/hooks",
			Secret:      "whsec_abc",
			EventTypes:  []string{"document.created"},
			Status:      domain.WebhookStatusActive,
		},
	}

	// Get before set => miss
	_, hit, err := cache.Get(ctx, orgID)
	assert.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, orgID, subs, time.Minute))

	got, hit, err := cache.Get(ctx, orgID)
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, got, 1)
	assert.Equal(t, subs[0].ID, got[0].ID)
	assert.Equal(t, orgID, got[0].OrganizationID)
	assert.Equal(t, subs[0].EventTypes, got[0].EventTypes)
	assert.Equal(t, domain.WebhookStatusActive, got[0].Status)
}

func TestSubscriptionCache_EmptyListIsAHit(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	orgID := uuid.New()

	require.NoError(t, cache.Set(ctx, orgID, nil, time.Minute))

	got, hit, err := cache.Get(ctx, orgID)
	require.NoError(t, err)
	assert.True(t, hit, "an org with no subscriptions should still cache the empty result")
	assert.Empty(t, got)
}

func TestSubscriptionCache_TTLExpiry(t *testing.T) {
	cache, s := newTestCache(t)
	ctx := context.Background()
	orgID := uuid.New()

	require.NoError(t, cache.Set(ctx, orgID, nil, time.Second))

	s.FastForward(2 * time.Second)

	_, hit, err := cache.Get(ctx, orgID)
	assert.NoError(t, err)
	assert.False(t, hit, "expired key should be a miss")
}

func TestSubscriptionCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	orgID := uuid.New()

	require.NoError(t, cache.Set(ctx, orgID, []domain.WebhookSubscription{{ID: uuid.New()}}, time.Minute))
	require.NoError(t, cache.Invalidate(ctx, orgID))

	_, hit, err := cache.Get(ctx, orgID)
	assert.NoError(t, err)
	assert.False(t, hit)
}

func TestSubscriptionCache_IsolatedPerOrganization(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	orgA := uuid.New()
	orgB := uuid.New()

	require.NoError(t, cache.Set(ctx, orgA, []domain.WebhookSubscription{{ID: uuid.New(), Name: "a"}}, time.Minute))

	_, hit, err := cache.Get(ctx, orgB)
	assert.NoError(t, err)
	assert.False(t, hit)
}
