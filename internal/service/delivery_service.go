package service

import (
	"context"

	"audit-webhook-engine/internal/core/ports"
	"audit-webhook-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// DeliveryServiceImpl implements ports.DeliveryService.
type DeliveryServiceImpl struct {
	deliveryRepo ports.DeliveryRepository
	log          zerolog.Logger
}

// NewDeliveryService creates a new DeliveryServiceImpl.
func NewDeliveryService(deliveryRepo ports.DeliveryRepository, log zerolog.Logger) *DeliveryServiceImpl {
	return &DeliveryServiceImpl{deliveryRepo: deliveryRepo, log: log}
}

var _ ports.DeliveryService = (*DeliveryServiceImpl)(nil)

// List returns a filtered, paginated page of the organization's delivery
// history plus the total row count for the filter.
func (s *DeliveryServiceImpl) List(ctx context.Context, params ports.DeliveryListParams) ([]ports.DeliveryListItem, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}
	if params.From != nil && params.To != nil && params.To.Before(*params.From) {
		return nil, 0, apperror.ErrInvalidListFilter("to must not precede from")
	}
	if params.MinLatency != nil && params.MaxLatency != nil && *params.MaxLatency < *params.MinLatency {
		return nil, 0, apperror.ErrInvalidListFilter("max_latency must not be below min_latency")
	}

	items, total, err := s.deliveryRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(err)
	}
	return items, total, nil
}

// Get returns one delivery with its subscription context, scoped to the
// organization.
func (s *DeliveryServiceImpl) Get(ctx context.Context, orgID, id uuid.UUID) (*ports.DeliveryListItem, error) {
	item, err := s.deliveryRepo.GetListItem(ctx, orgID, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if item == nil {
		return nil, apperror.ErrDeliveryNotFound()
	}
	return item, nil
}
