package handler

import (
	"audit-webhook-engine/internal/adapter/http/dto"
	"audit-webhook-engine/internal/adapter/http/middleware"
	"audit-webhook-engine/internal/core/ports"
	"audit-webhook-engine/pkg/apperror"
	"audit-webhook-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// EventHandler handles audit event ingestion.
type EventHandler struct {
	eventSvc ports.EventService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(eventSvc ports.EventService) *EventHandler {
	return &EventHandler{eventSvc: eventSvc}
}

// Ingest handles POST /api/v1/events. The event is durably recorded before
// the handler returns; webhook fan-out happens asynchronously and never
// affects the response.
func (h *EventHandler) Ingest(c *gin.Context) {
	orgID, ok := middleware.OrganizationID(c)
	if !ok {
		response.Error(c, apperror.ErrMissingOrganization())
		return
	}

	var req dto.IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrInvalidEvent(err.Error()))
		return
	}

	e, err := h.eventSvc.Ingest(c.Request.Context(), ports.IngestEventRequest{
		OrganizationID: orgID,
		ResourceType:   req.ResourceType,
		Action:         req.Action,
		ActorID:        req.ActorID,
		ResourceID:     req.ResourceID,
		Metadata:       req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, dto.ToEventResponse(e))
}
