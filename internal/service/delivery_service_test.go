package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"audit-webhook-engine/internal/core/ports"
	"audit-webhook-engine/internal/core/ports/mocks"
	"audit-webhook-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDeliveryService_List_DefaultsPagination(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockDeliveryRepository(ctrl)
	svc := NewDeliveryService(repo, zerolog.Nop())

	ctx := context.Background()
	orgID := uuid.New()

	repo.EXPECT().List(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.DeliveryListParams) ([]ports.DeliveryListItem, int64, error) {
			assert.Equal(t, 1, params.Page)
			assert.Equal(t, defaultPageSize, params.PageSize)
			return []ports.DeliveryListItem{}, 0, nil
		})

	_, _, err := svc.List(ctx, ports.DeliveryListParams{OrganizationID: orgID})
	require.NoError(t, err)
}

func TestDeliveryService_List_CapsPageSize(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockDeliveryRepository(ctrl)
	svc := NewDeliveryService(repo, zerolog.Nop())

	ctx := context.Background()

	repo.EXPECT().List(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.DeliveryListParams) ([]ports.DeliveryListItem, int64, error) {
			assert.Equal(t, maxPageSize, params.PageSize)
			return nil, 0, nil
		})

	_, _, err := svc.List(ctx, ports.DeliveryListParams{OrganizationID: uuid.New(), Page: 1, PageSize: 5000})
	require.NoError(t, err)
}

func TestDeliveryService_List_InvalidRanges(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockDeliveryRepository(ctrl)
	svc := NewDeliveryService(repo, zerolog.Nop())

	ctx := context.Background()
	from := time.Now()
	to := from.Add(-time.Hour)

	_, _, err := svc.List(ctx, ports.DeliveryListParams{OrganizationID: uuid.New(), From: &from, To: &to})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "DLV_002", appErr.Code)

	minLat := 5 * time.Second
	maxLat := time.Second
	_, _, err = svc.List(ctx, ports.DeliveryListParams{OrganizationID: uuid.New(), MinLatency: &minLat, MaxLatency: &maxLat})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "DLV_002", appErr.Code)
}

func TestDeliveryService_Get_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockDeliveryRepository(ctrl)
	svc := NewDeliveryService(repo, zerolog.Nop())

	ctx := context.Background()
	orgID := uuid.New()
	id := uuid.New()

	repo.EXPECT().GetListItem(ctx, orgID, id).Return(nil, nil)

	_, err := svc.Get(ctx, orgID, id)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "DLV_001", appErr.Code)
}

func TestDeliveryService_Get_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockDeliveryRepository(ctrl)
	svc := NewDeliveryService(repo, zerolog.Nop())

	ctx := context.Background()
	repo.EXPECT().GetListItem(ctx, gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	_, err := svc.Get(ctx, uuid.New(), uuid.New())
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SYS_001", appErr.Code)
}
