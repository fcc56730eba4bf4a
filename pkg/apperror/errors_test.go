package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	err := New("WH_001", "Webhook not found", http.StatusNotFound)
	assert.Equal(t, "[WH_001] Webhook not found", err.Error())
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrDatabaseError(cause)

	assert.Equal(t, "SYS_001", err.Code)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	inner := ErrWebhookDisabled()
	wrapped := fmt.Errorf("dispatch: %w", inner)

	var appErr *AppError
	assert.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, "WH_004", appErr.Code)
}

func TestInvalidEventTypeMentionsValue(t *testing.T) {
	err := ErrInvalidEventType("documentcreated")
	assert.Contains(t, err.Message, "documentcreated")
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
}
