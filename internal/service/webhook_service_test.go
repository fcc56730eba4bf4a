package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"audit-webhook-engine/internal/core/domain"
	"audit-webhook-engine/internal/core/ports"
	"audit-webhook-engine/internal/core/ports/mocks"
	"audit-webhook-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type webhookTestDeps struct {
	svc         *WebhookServiceImpl
	webhookRepo *mocks.MockWebhookRepository
	subCache    *mocks.MockSubscriptionCache
	ctrl        *gomock.Controller
}

func setupWebhookService(t *testing.T) *webhookTestDeps {
	ctrl := gomock.NewController(t)
	d := &webhookTestDeps{
		webhookRepo: mocks.NewMockWebhookRepository(ctrl),
		subCache:    mocks.NewMockSubscriptionCache(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewWebhookService(d.webhookRepo, d.subCache, zerolog.Nop())
	return d
}

func TestWebhookService_Create_GeneratesSecret(t *testing.T) {
	d := setupWebhookService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	orgID := uuid.New()

	d.webhookRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.subCache.EXPECT().Invalidate(ctx, orgID).Return(nil)

	res, err := d.svc.Create(ctx, ports.CreateWebhookRequest{
		OrganizationID: orgID,
		Name:           "ci-notify",
		EndpointURL:    "https://example.com/hook",
		EventTypes:     []string{"user.created"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Secret, "whsec_"))
	assert.Len(t, res.Secret, len("whsec_")+64)
	assert.Equal(t, res.Secret, res.Webhook.Secret)
	assert.Equal(t, domain.WebhookStatusActive, res.Webhook.Status)
	assert.Equal(t, orgID, res.Webhook.OrganizationID)
}

func TestWebhookService_Create_KeepsProvidedSecret(t *testing.T) {
	d := setupWebhookService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	orgID := uuid.New()

	d.webhookRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.subCache.EXPECT().Invalidate(ctx, orgID).Return(nil)

	res, err := d.svc.Create(ctx, ports.CreateWebhookRequest{
		OrganizationID: orgID,
		Name:           "ci-notify",
		EndpointURL:    "https://example.com/hook",
		Secret:         "whsec_mine",
	})
	require.NoError(t, err)
	assert.Equal(t, "whsec_mine", res.Secret)
}

func TestWebhookService_Create_Validation(t *testing.T) {
	d := setupWebhookService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	orgID := uuid.New()

	tests := []struct {
		name     string
		req      ports.CreateWebhookRequest
		wantCode string
	}{
		{
			"empty name",
			ports.CreateWebhookRequest{OrganizationID: orgID, EndpointURL: "https://x.com"},
			"VAL_001",
		},
		{
			"bad URL",
			ports.CreateWebhookRequest{OrganizationID: orgID, Name: "n", EndpointURL: "not-a-url"},
			"WH_002",
		},
		{
			"ftp URL",
			ports.CreateWebhookRequest{OrganizationID: orgID, Name: "n", EndpointURL: "ftp://x.com/hook"},
			"WH_002",
		},
		{
			"bad event type",
			ports.CreateWebhookRequest{OrganizationID: orgID, Name: "n", EndpointURL: "https://x.com", EventTypes: []string{"nodot"}},
			"WH_003",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.svc.Create(ctx, tt.req)
			require.Error(t, err)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestWebhookService_Get_NotFound(t *testing.T) {
	d := setupWebhookService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	orgID := uuid.New()
	id := uuid.New()

	d.webhookRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	_, err := d.svc.Get(ctx, orgID, id)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "WH_001", appErr.Code)
}

func TestWebhookService_Get_WrongOrganizationIsNotFound(t *testing.T) {
	d := setupWebhookService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	w := &domain.WebhookSubscription{ID: id, OrganizationID: uuid.New()}

	d.webhookRepo.EXPECT().GetByID(ctx, id).Return(w, nil)

	_, err := d.svc.Get(ctx, uuid.New(), id)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "WH_001", appErr.Code)
}

func TestWebhookService_Update_PartialFields(t *testing.T) {
	d := setupWebhookService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	orgID := uuid.New()
	id := uuid.New()
	existing := &domain.WebhookSubscription{
		ID:             id,
		OrganizationID: orgID,
		Name:           "old-name",
		EndpointURL:    "https://old.example.com",
		EventTypes:     []string{"user.created"},
		Status:         domain.WebhookStatusActive,
	}

	d.webhookRepo.EXPECT().GetByID(ctx, id).Return(existing, nil)
	d.webhookRepo.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, w *domain.WebhookSubscription) error {
			assert.Equal(t, "new-name", w.Name)
			// Untouched fields survive.
			assert.Equal(t, "https://old.example.com", w.EndpointURL)
			assert.Equal(t, []string{"user.created"}, w.EventTypes)
			return nil
		})
	d.subCache.EXPECT().Invalidate(ctx, orgID).Return(nil)

	name := "new-name"
	w, err := d.svc.Update(ctx, orgID, id, ports.UpdateWebhookRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "new-name", w.Name)
}

func TestWebhookService_Update_Disable(t *testing.T) {
	d := setupWebhookService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	orgID := uuid.New()
	id := uuid.New()
	existing := &domain.WebhookSubscription{ID: id, OrganizationID: orgID, Name: "n", Status: domain.WebhookStatusActive}

	d.webhookRepo.EXPECT().GetByID(ctx, id).Return(existing, nil)
	d.webhookRepo.EXPECT().Update(ctx, gomock.Any()).Return(nil)
	d.subCache.EXPECT().Invalidate(ctx, orgID).Return(nil)

	status := domain.WebhookStatusDisabled
	w, err := d.svc.Update(ctx, orgID, id, ports.UpdateWebhookRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusDisabled, w.Status)
}

func TestWebhookService_Update_InvalidStatus(t *testing.T) {
	d := setupWebhookService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	orgID := uuid.New()
	id := uuid.New()
	existing := &domain.WebhookSubscription{ID: id, OrganizationID: orgID, Name: "n", Status: domain.WebhookStatusActive}

	d.webhookRepo.EXPECT().GetByID(ctx, id).Return(existing, nil)

	bad := domain.WebhookStatus("paused")
	_, err := d.svc.Update(ctx, orgID, id, ports.UpdateWebhookRequest{Status: &bad})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_001", appErr.Code)
}

func TestWebhookService_Delete(t *testing.T) {
	d := setupWebhookService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	orgID := uuid.New()
	id := uuid.New()
	existing := &domain.WebhookSubscription{ID: id, OrganizationID: orgID, Name: "n"}

	d.webhookRepo.EXPECT().GetByID(ctx, id).Return(existing, nil)
	d.webhookRepo.EXPECT().Delete(ctx, orgID, id).Return(nil)
	d.subCache.EXPECT().Invalidate(ctx, orgID).Return(nil)

	require.NoError(t, d.svc.Delete(ctx, orgID, id))
}

func TestWebhookService_Delete_RepoError(t *testing.T) {
	d := setupWebhookService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	orgID := uuid.New()
	id := uuid.New()
	existing := &domain.WebhookSubscription{ID: id, OrganizationID: orgID, Name: "n"}

	d.webhookRepo.EXPECT().GetByID(ctx, id).Return(existing, nil)
	d.webhookRepo.EXPECT().Delete(ctx, orgID, id).Return(errors.New("db down"))

	err := d.svc.Delete(ctx, orgID, id)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SYS_001", appErr.Code)
}
