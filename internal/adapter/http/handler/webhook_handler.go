package handler

import (
	"audit-webhook-engine/internal/adapter/http/dto"
	"audit-webhook-engine/internal/adapter/http/middleware"
	"audit-webhook-engine/internal/core/domain"
	"audit-webhook-engine/internal/core/ports"
	"audit-webhook-engine/pkg/apperror"
	"audit-webhook-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebhookHandler handles webhook subscription endpoints.
type WebhookHandler struct {
	webhookSvc ports.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookSvc ports.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// Create handles POST /api/v1/webhooks.
func (h *WebhookHandler) Create(c *gin.Context) {
	orgID, ok := middleware.OrganizationID(c)
	if !ok {
		response.Error(c, apperror.ErrMissingOrganization())
		return
	}

	var req dto.CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.webhookSvc.Create(c.Request.Context(), ports.CreateWebhookRequest{
		OrganizationID: orgID,
		Name:           req.Name,
		EndpointURL:    req.EndpointURL,
		Secret:         req.Secret,
		EventTypes:     req.EventTypes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToWebhookCreatedResponse(result))
}

// Get handles GET /api/v1/webhooks/:id.
func (h *WebhookHandler) Get(c *gin.Context) {
	orgID, ok := middleware.OrganizationID(c)
	if !ok {
		response.Error(c, apperror.ErrMissingOrganization())
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrWebhookNotFound())
		return
	}

	w, err := h.webhookSvc.Get(c.Request.Context(), orgID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToWebhookResponse(w))
}

// List handles GET /api/v1/webhooks.
func (h *WebhookHandler) List(c *gin.Context) {
	orgID, ok := middleware.OrganizationID(c)
	if !ok {
		response.Error(c, apperror.ErrMissingOrganization())
		return
	}

	subs, err := h.webhookSvc.List(c.Request.Context(), orgID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.WebhookResponse, 0, len(subs))
	for i := range subs {
		out = append(out, dto.ToWebhookResponse(&subs[i]))
	}
	response.OK(c, out)
}

// Update handles PATCH /api/v1/webhooks/:id.
func (h *WebhookHandler) Update(c *gin.Context) {
	orgID, ok := middleware.OrganizationID(c)
	if !ok {
		response.Error(c, apperror.ErrMissingOrganization())
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrWebhookNotFound())
		return
	}

	var req dto.UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	update := ports.UpdateWebhookRequest{
		Name:        req.Name,
		EndpointURL: req.EndpointURL,
		EventTypes:  req.EventTypes,
	}
	if req.Status != nil {
		status := domain.WebhookStatus(*req.Status)
		update.Status = &status
	}

	w, err := h.webhookSvc.Update(c.Request.Context(), orgID, id, update)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToWebhookResponse(w))
}

// Delete handles DELETE /api/v1/webhooks/:id.
func (h *WebhookHandler) Delete(c *gin.Context) {
	orgID, ok := middleware.OrganizationID(c)
	if !ok {
		response.Error(c, apperror.ErrMissingOrganization())
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrWebhookNotFound())
		return
	}

	if err := h.webhookSvc.Delete(c.Request.Context(), orgID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
