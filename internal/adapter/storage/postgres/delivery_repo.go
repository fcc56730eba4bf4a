package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"audit-webhook-engine/internal/core/domain"
	"audit-webhook-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DeliveryRepo implements ports.DeliveryRepository.
type DeliveryRepo struct {
	pool Pool
}

// NewDeliveryRepo creates a PostgreSQL-backed DeliveryRepository.
func NewDeliveryRepo(pool Pool) *DeliveryRepo {
	return &DeliveryRepo{pool: pool}
}

var _ ports.DeliveryRepository = (*DeliveryRepo)(nil)

const deliveryColumns = `id, webhook_id, payload, status, attempts, attempted_at, completed_at, next_retry_at, status_code, response, error, created_at`

// Create inserts a single delivery record.
func (r *DeliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO deliveries (id, webhook_id, payload, status, attempts, attempted_at, completed_at, next_retry_at, status_code, response, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, d.WebhookID, d.Payload, string(d.Status), d.Attempts,
		d.AttemptedAt, d.CompletedAt, d.NextRetryAt,
		d.StatusCode, d.Response, d.Error, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// CreateBatch inserts the fan-out of one event in a single transaction so a
// partially enqueued event is never observable.
func (r *DeliveryRepo) CreateBatch(ctx context.Context, ds []*domain.Delivery) error {
	if len(ds) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin enqueue batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, d := range ds {
		_, err := tx.Exec(ctx,
			`INSERT INTO deliveries (id, webhook_id, payload, status, attempts, attempted_at, completed_at, next_retry_at, status_code, response, error, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			d.ID, d.WebhookID, d.Payload, string(d.Status), d.Attempts,
			d.AttemptedAt, d.CompletedAt, d.NextRetryAt,
			d.StatusCode, d.Response, d.Error, d.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert delivery batch row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit enqueue batch: %w", err)
	}
	return nil
}

// Update writes the outcome of one dispatch attempt. The whole transition
// lands in one row write, so a crash can never leave a half-mutated record.
func (r *DeliveryRepo) Update(ctx context.Context, d *domain.Delivery) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE deliveries
		 SET status = $1, attempts = $2, attempted_at = $3, completed_at = $4,
		     next_retry_at = $5, status_code = $6, response = $7, error = $8
		 WHERE id = $9`,
		string(d.Status), d.Attempts, d.AttemptedAt, d.CompletedAt,
		d.NextRetryAt, d.StatusCode, d.Response, d.Error, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}
	return nil
}

// GetByID fetches a delivery by UUID. Returns nil, nil when absent.
func (r *DeliveryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliveries WHERE id = $1`, deliveryColumns)
	d, err := scanDelivery(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// FetchDue selects pending deliveries whose retry time has arrived, oldest
// first so no record starves behind newer traffic.
func (r *DeliveryRepo) FetchDue(ctx context.Context, limit int) ([]domain.Delivery, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM deliveries
		 WHERE status = $1 AND (next_retry_at IS NULL OR next_retry_at <= now())
		 ORDER BY created_at ASC
		 LIMIT $2`, deliveryColumns)

	rows, err := r.pool.Query(ctx, query, string(domain.DeliveryStatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due deliveries: %w", err)
	}
	defer rows.Close()

	var out []domain.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due deliveries: %w", err)
	}
	return out, nil
}

// listSelect is the join used by the listing read path. The event type lives
// inside the stored payload envelope, which is kept as raw bytes so retries
// stay byte-identical; the filter parses it at query time instead.
const listSelect = `SELECT d.id, d.webhook_id, d.payload, d.status, d.attempts, d.attempted_at, d.completed_at,
		d.next_retry_at, d.status_code, d.response, d.error, d.created_at,
		w.name, w.endpoint_url, convert_from(d.payload, 'UTF8')::jsonb ->> 'event'
	FROM deliveries d
	JOIN webhook_subscriptions w ON w.id = d.webhook_id`

// List returns a filtered, paginated page of delivery history plus the total
// match count.
func (r *DeliveryRepo) List(ctx context.Context, params ports.DeliveryListParams) ([]ports.DeliveryListItem, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("w.organization_id = $%d", argIdx))
	args = append(args, params.OrganizationID)
	argIdx++

	if params.WebhookID != nil {
		conditions = append(conditions, fmt.Sprintf("d.webhook_id = $%d", argIdx))
		args = append(args, *params.WebhookID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("d.status = $%d", argIdx))
		args = append(args, string(*params.Status))
		argIdx++
	}
	if params.EventType != nil {
		conditions = append(conditions, fmt.Sprintf("convert_from(d.payload, 'UTF8')::jsonb ->> 'event' = $%d", argIdx))
		args = append(args, *params.EventType)
		argIdx++
	}
	if params.EndpointContains != nil {
		conditions = append(conditions, fmt.Sprintf("w.endpoint_url ILIKE '%%' || $%d || '%%'", argIdx))
		args = append(args, *params.EndpointContains)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("d.created_at >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("d.created_at <= $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}
	if params.MinLatency != nil {
		conditions = append(conditions, fmt.Sprintf("d.completed_at IS NOT NULL AND d.completed_at - d.attempted_at >= $%d", argIdx))
		args = append(args, *params.MinLatency)
		argIdx++
	}
	if params.MaxLatency != nil {
		conditions = append(conditions, fmt.Sprintf("d.completed_at IS NOT NULL AND d.completed_at - d.attempted_at <= $%d", argIdx))
		args = append(args, *params.MaxLatency)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM deliveries d JOIN webhook_subscriptions w ON w.id = d.webhook_id %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count deliveries: %w", err)
	}

	// Fetch page
	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf("%s %s ORDER BY d.created_at DESC LIMIT $%d OFFSET $%d", listSelect, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var items []ports.DeliveryListItem
	for rows.Next() {
		item, err := scanListItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate delivery rows: %w", err)
	}
	return items, total, nil
}

// GetListItem fetches one delivery joined with its subscription, scoped to
// the owning organization. Returns nil, nil when absent.
func (r *DeliveryRepo) GetListItem(ctx context.Context, orgID, id uuid.UUID) (*ports.DeliveryListItem, error) {
	query := listSelect + ` WHERE w.organization_id = $1 AND d.id = $2`
	item, err := scanListItem(r.pool.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

func scanDelivery(row pgx.Row) (*domain.Delivery, error) {
	d := &domain.Delivery{}
	var status string
	err := row.Scan(
		&d.ID, &d.WebhookID, &d.Payload, &status, &d.Attempts,
		&d.AttemptedAt, &d.CompletedAt, &d.NextRetryAt,
		&d.StatusCode, &d.Response, &d.Error, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan delivery: %w", err)
	}
	d.Status = domain.DeliveryStatus(status)
	return d, nil
}

func scanListItem(row pgx.Row) (*ports.DeliveryListItem, error) {
	item := &ports.DeliveryListItem{}
	var status string
	err := row.Scan(
		&item.ID, &item.WebhookID, &item.Payload, &status, &item.Attempts,
		&item.AttemptedAt, &item.CompletedAt, &item.NextRetryAt,
		&item.StatusCode, &item.Response, &item.Error, &item.CreatedAt,
		&item.WebhookName, &item.EndpointURL, &item.EventType,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan delivery list item: %w", err)
	}
	item.Status = domain.DeliveryStatus(status)
	return item, nil
}
