package handler

import (
	"time"

	"audit-webhook-engine/internal/adapter/http/dto"
	"audit-webhook-engine/internal/adapter/http/middleware"
	"audit-webhook-engine/internal/core/domain"
	"audit-webhook-engine/internal/core/ports"
	"audit-webhook-engine/pkg/apperror"
	"audit-webhook-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DeliveryHandler handles delivery history endpoints.
type DeliveryHandler struct {
	deliverySvc ports.DeliveryService
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(deliverySvc ports.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliverySvc: deliverySvc}
}

// List handles GET /api/v1/deliveries.
func (h *DeliveryHandler) List(c *gin.Context) {
	orgID, ok := middleware.OrganizationID(c)
	if !ok {
		response.Error(c, apperror.ErrMissingOrganization())
		return
	}

	var q dto.ListDeliveriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.ErrInvalidListFilter(err.Error()))
		return
	}

	params, err := toListParams(orgID, q)
	if err != nil {
		response.Error(c, err)
		return
	}

	items, total, err := h.deliverySvc.List(c.Request.Context(), *params)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.DeliveryResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.ToDeliveryResponse(item))
	}
	response.OK(c, dto.DeliveryListResponse{
		Deliveries: out,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
	})
}

// Get handles GET /api/v1/deliveries/:id.
func (h *DeliveryHandler) Get(c *gin.Context) {
	orgID, ok := middleware.OrganizationID(c)
	if !ok {
		response.Error(c, apperror.ErrMissingOrganization())
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrDeliveryNotFound())
		return
	}

	item, err := h.deliverySvc.Get(c.Request.Context(), orgID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToDeliveryResponse(*item))
}

// toListParams translates bound query values into repository filter params.
func toListParams(orgID uuid.UUID, q dto.ListDeliveriesQuery) (*ports.DeliveryListParams, error) {
	params := ports.DeliveryListParams{
		OrganizationID: orgID,
		Page:           q.Page,
		PageSize:       q.PageSize,
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 20
	}

	if q.WebhookID != "" {
		id, err := uuid.Parse(q.WebhookID)
		if err != nil {
			return nil, apperror.ErrInvalidListFilter("webhook_id must be a UUID")
		}
		params.WebhookID = &id
	}
	if q.Status != "" {
		status := domain.DeliveryStatus(q.Status)
		params.Status = &status
	}
	if q.EventType != "" {
		params.EventType = &q.EventType
	}
	if q.Endpoint != "" {
		params.EndpointContains = &q.Endpoint
	}
	if q.From != "" {
		from, err := time.Parse(time.RFC3339, q.From)
		if err != nil {
			return nil, apperror.ErrInvalidListFilter("from must be RFC 3339")
		}
		params.From = &from
	}
	if q.To != "" {
		to, err := time.Parse(time.RFC3339, q.To)
		if err != nil {
			return nil, apperror.ErrInvalidListFilter("to must be RFC 3339")
		}
		params.To = &to
	}
	if q.MinLatencyMs != nil {
		d := time.Duration(*q.MinLatencyMs) * time.Millisecond
		params.MinLatency = &d
	}
	if q.MaxLatencyMs != nil {
		d := time.Duration(*q.MaxLatencyMs) * time.Millisecond
		params.MaxLatency = &d
	}
	return &params, nil
}
