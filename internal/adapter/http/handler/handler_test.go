package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"audit-webhook-engine/internal/adapter/http/dto"
	"audit-webhook-engine/internal/adapter/http/middleware"
	"audit-webhook-engine/internal/core/domain"
	"audit-webhook-engine/internal/core/ports"
	"audit-webhook-engine/internal/core/ports/mocks"
	"audit-webhook-engine/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type routerTestDeps struct {
	router      *gin.Engine
	eventSvc    *mocks.MockEventService
	webhookSvc  *mocks.MockWebhookService
	deliverySvc *mocks.MockDeliveryService
	ctrl        *gomock.Controller
}

func setupRouter(t *testing.T) *routerTestDeps {
	ctrl := gomock.NewController(t)
	d := &routerTestDeps{
		eventSvc:    mocks.NewMockEventService(ctrl),
		webhookSvc:  mocks.NewMockWebhookService(ctrl),
		deliverySvc: mocks.NewMockDeliveryService(ctrl),
		ctrl:        ctrl,
	}
	d.router = SetupRouter(RouterDeps{
		EventSvc:    d.eventSvc,
		WebhookSvc:  d.webhookSvc,
		DeliverySvc: d.deliverySvc,
		Logger:      zerolog.Nop(),
	})
	return d
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, orgID *uuid.UUID, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if orgID != nil {
		req.Header.Set(middleware.HeaderOrganizationID, orgID.String())
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// --- Event Ingestion ---

func TestIngestEvent_Accepted(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	orgID := uuid.New()
	event := &domain.AuditEvent{
		ID:             uuid.New(),
		OrganizationID: orgID,
		ResourceType:   "user",
		Action:         "created",
		CreatedAt:      time.Now().UTC(),
	}

	d.eventSvc.EXPECT().Ingest(gomock.Any(), ports.IngestEventRequest{
		OrganizationID: orgID,
		ResourceType:   "user",
		Action:         "created",
		ActorID:        "actor-1",
	}).Return(event, nil)

	w := doJSON(t, d.router, http.MethodPost, "/api/v1/events", &orgID, dto.IngestEventRequest{
		ResourceType: "user",
		Action:       "created",
		ActorID:      "actor-1",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, "user.created", data["event_type"])
}

func TestIngestEvent_MissingOrganization(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	w := doJSON(t, d.router, http.MethodPost, "/api/v1/events", nil, dto.IngestEventRequest{
		ResourceType: "user",
		Action:       "created",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ORG_001")
}

func TestIngestEvent_InvalidBody(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	orgID := uuid.New()
	w := doJSON(t, d.router, http.MethodPost, "/api/v1/events", &orgID, dto.IngestEventRequest{
		ResourceType: "user.created", // dots rejected by safe_id
		Action:       "created",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "EVT_001")
}

// --- Webhook CRUD ---

func TestCreateWebhook_Success(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	orgID := uuid.New()
	now := time.Now().UTC()
	created := &domain.WebhookSubscription{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           "ci-notify",
		EndpointURL:    "https://example.com/hook",
		Secret:         "whsec_full_secret_value",
		EventTypes:     []string{"user.created"},
		Status:         domain.WebhookStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	d.webhookSvc.EXPECT().Create(gomock.Any(), ports.CreateWebhookRequest{
		OrganizationID: orgID,
		Name:           "ci-notify",
		EndpointURL:    "https://example.com/hook",
		EventTypes:     []string{"user.created"},
	}).Return(&ports.CreateWebhookResult{Webhook: created, Secret: created.Secret}, nil)

	w := doJSON(t, d.router, http.MethodPost, "/api/v1/webhooks", &orgID, dto.CreateWebhookRequest{
		Name:        "ci-notify",
		EndpointURL: "https://example.com/hook",
		EventTypes:  []string{"user.created"},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	// Whole secret visible exactly once, at creation.
	assert.Equal(t, "whsec_full_secret_value", data["secret"])
}

func TestCreateWebhook_InvalidURL(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	orgID := uuid.New()
	w := doJSON(t, d.router, http.MethodPost, "/api/v1/webhooks", &orgID, dto.CreateWebhookRequest{
		Name:        "bad",
		EndpointURL: "ftp://example.com/hook",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetWebhook_MasksSecret(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	orgID := uuid.New()
	sub := &domain.WebhookSubscription{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           "ci-notify",
		EndpointURL:    "https://example.com/hook",
		Secret:         "whsec_1234abcd",
		Status:         domain.WebhookStatusActive,
	}

	d.webhookSvc.EXPECT().Get(gomock.Any(), orgID, sub.ID).Return(sub, nil)

	w := doJSON(t, d.router, http.MethodGet, "/api/v1/webhooks/"+sub.ID.String(), &orgID, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	secret := data["secret"].(string)
	assert.NotEqual(t, sub.Secret, secret)
	assert.Contains(t, secret, "abcd")
	assert.Contains(t, secret, "*")
}

func TestGetWebhook_NotFound(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	orgID := uuid.New()
	id := uuid.New()
	d.webhookSvc.EXPECT().Get(gomock.Any(), orgID, id).Return(nil, apperror.ErrWebhookNotFound())

	w := doJSON(t, d.router, http.MethodGet, "/api/v1/webhooks/"+id.String(), &orgID, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "WH_001")
}

func TestUpdateWebhook_Disable(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	orgID := uuid.New()
	id := uuid.New()
	updated := &domain.WebhookSubscription{
		ID:             id,
		OrganizationID: orgID,
		Name:           "ci-notify",
		EndpointURL:    "https://example.com/hook",
		Status:         domain.WebhookStatusDisabled,
	}

	d.webhookSvc.EXPECT().Update(gomock.Any(), orgID, id, gomock.Any()).DoAndReturn(
		func(_ any, _, _ uuid.UUID, req ports.UpdateWebhookRequest) (*domain.WebhookSubscription, error) {
			require.NotNil(t, req.Status)
			assert.Equal(t, domain.WebhookStatusDisabled, *req.Status)
			return updated, nil
		})

	status := "disabled"
	w := doJSON(t, d.router, http.MethodPatch, "/api/v1/webhooks/"+id.String(), &orgID, dto.UpdateWebhookRequest{Status: &status})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteWebhook(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	orgID := uuid.New()
	id := uuid.New()
	d.webhookSvc.EXPECT().Delete(gomock.Any(), orgID, id).Return(nil)

	w := doJSON(t, d.router, http.MethodDelete, "/api/v1/webhooks/"+id.String(), &orgID, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

// --- Delivery Listing ---

func TestListDeliveries_Filters(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	orgID := uuid.New()
	webhookID := uuid.New()

	item := ports.DeliveryListItem{
		Delivery: domain.Delivery{
			ID:        uuid.New(),
			WebhookID: webhookID,
			Status:    domain.DeliveryStatusSuccess,
			Attempts:  1,
			CreatedAt: time.Now().UTC(),
		},
		WebhookName: "ci-notify",
		EndpointURL: "https://example.com/hook",
		EventType:   "user.created",
	}

	d.deliverySvc.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, params ports.DeliveryListParams) ([]ports.DeliveryListItem, int64, error) {
			assert.Equal(t, orgID, params.OrganizationID)
			require.NotNil(t, params.WebhookID)
			assert.Equal(t, webhookID, *params.WebhookID)
			require.NotNil(t, params.Status)
			assert.Equal(t, domain.DeliveryStatusSuccess, *params.Status)
			require.NotNil(t, params.EventType)
			assert.Equal(t, "user.created", *params.EventType)
			require.NotNil(t, params.MinLatency)
			assert.Equal(t, 250*time.Millisecond, *params.MinLatency)
			assert.Equal(t, 2, params.Page)
			assert.Equal(t, 50, params.PageSize)
			return []ports.DeliveryListItem{item}, 1, nil
		})

	path := "/api/v1/deliveries?webhook_id=" + webhookID.String() +
		"&status=success&event_type=user.created&min_latency_ms=250&page=2&page_size=50"
	w := doJSON(t, d.router, http.MethodGet, path, &orgID, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, float64(1), data["total"])
	assert.Equal(t, float64(2), data["page"])
}

func TestListDeliveries_BadStatus(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	orgID := uuid.New()
	w := doJSON(t, d.router, http.MethodGet, "/api/v1/deliveries?status=exploded", &orgID, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "DLV_002")
}

func TestListDeliveries_BadTimeRange(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	orgID := uuid.New()
	w := doJSON(t, d.router, http.MethodGet, "/api/v1/deliveries?from=yesterday", &orgID, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDelivery_NotFound(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	orgID := uuid.New()
	id := uuid.New()
	d.deliverySvc.EXPECT().Get(gomock.Any(), orgID, id).Return(nil, apperror.ErrDeliveryNotFound())

	w := doJSON(t, d.router, http.MethodGet, "/api/v1/deliveries/"+id.String(), &orgID, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "DLV_001")
}

// --- Health ---

func TestHealthCheck_NoCheckers(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	w := doJSON(t, d.router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	w := doJSON(t, d.router, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
