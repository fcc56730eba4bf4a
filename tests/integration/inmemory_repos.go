package integration

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"audit-webhook-engine/internal/core/domain"
	"audit-webhook-engine/internal/core/ports"

	"github.com/google/uuid"
)

// --- In-Memory Webhook Repo ---

type inMemoryWebhookRepo struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*domain.WebhookSubscription
}

func newInMemoryWebhookRepo() *inMemoryWebhookRepo {
	return &inMemoryWebhookRepo{subs: make(map[uuid.UUID]*domain.WebhookSubscription)}
}

func (r *inMemoryWebhookRepo) Create(_ context.Context, w *domain.WebhookSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.subs[w.ID] = &cp
	return nil
}

func (r *inMemoryWebhookRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.WebhookSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.subs[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWebhookRepo) ListByOrganization(_ context.Context, orgID uuid.UUID) ([]domain.WebhookSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WebhookSubscription
	for _, w := range r.subs {
		if w.OrganizationID == orgID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *inMemoryWebhookRepo) ListActiveByOrganization(_ context.Context, orgID uuid.UUID) ([]domain.WebhookSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WebhookSubscription
	for _, w := range r.subs {
		if w.OrganizationID == orgID && w.IsActive() {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *inMemoryWebhookRepo) Update(_ context.Context, w *domain.WebhookSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.subs[w.ID] = &cp
	return nil
}

func (r *inMemoryWebhookRepo) Delete(_ context.Context, orgID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.subs[id]; ok && w.OrganizationID == orgID {
		delete(r.subs, id)
	}
	return nil
}

// --- In-Memory Delivery Repo ---

type inMemoryDeliveryRepo struct {
	mu         sync.RWMutex
	deliveries map[uuid.UUID]*domain.Delivery
	webhooks   *inMemoryWebhookRepo
}

func newInMemoryDeliveryRepo(webhooks *inMemoryWebhookRepo) *inMemoryDeliveryRepo {
	return &inMemoryDeliveryRepo{
		deliveries: make(map[uuid.UUID]*domain.Delivery),
		webhooks:   webhooks,
	}
}

func (r *inMemoryDeliveryRepo) Create(_ context.Context, d *domain.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.deliveries[d.ID] = &cp
	return nil
}

func (r *inMemoryDeliveryRepo) CreateBatch(ctx context.Context, ds []*domain.Delivery) error {
	for _, d := range ds {
		if err := r.Create(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *inMemoryDeliveryRepo) Update(_ context.Context, d *domain.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.deliveries[d.ID] = &cp
	return nil
}

func (r *inMemoryDeliveryRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deliveries[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *inMemoryDeliveryRepo) FetchDue(_ context.Context, limit int) ([]domain.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now().UTC()
	var due []domain.Delivery
	for _, d := range r.deliveries {
		if d.Status != domain.DeliveryStatusPending {
			continue
		}
		if d.NextRetryAt != nil && d.NextRetryAt.After(now) {
			continue
		}
		due = append(due, *d)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *inMemoryDeliveryRepo) List(ctx context.Context, params ports.DeliveryListParams) ([]ports.DeliveryListItem, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []ports.DeliveryListItem
	for _, d := range r.deliveries {
		item, ok := r.toListItem(d)
		if !ok || r.webhookOrg(d.WebhookID) != params.OrganizationID {
			continue
		}
		if params.WebhookID != nil && d.WebhookID != *params.WebhookID {
			continue
		}
		if params.Status != nil && d.Status != *params.Status {
			continue
		}
		if params.EventType != nil && item.EventType != *params.EventType {
			continue
		}
		if params.EndpointContains != nil && !strings.Contains(item.EndpointURL, *params.EndpointContains) {
			continue
		}
		if params.From != nil && d.CreatedAt.Before(*params.From) {
			continue
		}
		if params.To != nil && d.CreatedAt.After(*params.To) {
			continue
		}
		if params.MinLatency != nil || params.MaxLatency != nil {
			lat, ok := d.Latency()
			if !ok {
				continue
			}
			if params.MinLatency != nil && lat < *params.MinLatency {
				continue
			}
			if params.MaxLatency != nil && lat > *params.MaxLatency {
				continue
			}
		}
		matched = append(matched, item)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))

	start := (params.Page - 1) * params.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *inMemoryDeliveryRepo) GetListItem(_ context.Context, orgID, id uuid.UUID) (*ports.DeliveryListItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deliveries[id]
	if !ok || r.webhookOrg(d.WebhookID) != orgID {
		return nil, nil
	}
	item, ok := r.toListItem(d)
	if !ok {
		return nil, nil
	}
	return &item, nil
}

// rewind makes a pending delivery immediately due again. Test helper for
// driving retry cycles without waiting out the backoff.
func (r *inMemoryDeliveryRepo) rewind(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.deliveries[id]; ok {
		past := time.Now().UTC().Add(-time.Second)
		d.NextRetryAt = &past
	}
}

func (r *inMemoryDeliveryRepo) webhookOrg(webhookID uuid.UUID) uuid.UUID {
	r.webhooks.mu.RLock()
	defer r.webhooks.mu.RUnlock()
	if w, ok := r.webhooks.subs[webhookID]; ok {
		return w.OrganizationID
	}
	return uuid.Nil
}

func (r *inMemoryDeliveryRepo) toListItem(d *domain.Delivery) (ports.DeliveryListItem, bool) {
	r.webhooks.mu.RLock()
	defer r.webhooks.mu.RUnlock()
	w, ok := r.webhooks.subs[d.WebhookID]
	if !ok {
		return ports.DeliveryListItem{}, false
	}
	var envelope domain.EventEnvelope
	_ = json.Unmarshal(d.Payload, &envelope)
	return ports.DeliveryListItem{
		Delivery:    *d,
		WebhookName: w.Name,
		EndpointURL: w.EndpointURL,
		EventType:   envelope.Event,
	}, true
}

// --- In-Memory Event Repo ---

type inMemoryEventRepo struct {
	mu     sync.RWMutex
	events []domain.AuditEvent
}

func newInMemoryEventRepo() *inMemoryEventRepo {
	return &inMemoryEventRepo{}
}

func (r *inMemoryEventRepo) Create(_ context.Context, e *domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

// --- In-Memory Subscription Cache ---

type inMemorySubCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID][]domain.WebhookSubscription
}

func newInMemorySubCache() *inMemorySubCache {
	return &inMemorySubCache{entries: make(map[uuid.UUID][]domain.WebhookSubscription)}
}

func (c *inMemorySubCache) Get(_ context.Context, orgID uuid.UUID) ([]domain.WebhookSubscription, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	subs, ok := c.entries[orgID]
	return subs, ok, nil
}

func (c *inMemorySubCache) Set(_ context.Context, orgID uuid.UUID, subs []domain.WebhookSubscription, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[orgID] = subs
	return nil
}

func (c *inMemorySubCache) Invalidate(_ context.Context, orgID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, orgID)
	return nil
}
