package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Webhook Subscriptions (WH) ----

func ErrWebhookNotFound() *AppError {
	return New("WH_001", "Webhook not found", http.StatusNotFound)
}

func ErrInvalidEndpointURL() *AppError {
	return New("WH_002", "Endpoint URL must be a valid http(s) URL", http.StatusBadRequest)
}

func ErrInvalidEventType(eventType string) *AppError {
	return New("WH_003", fmt.Sprintf("Event type %q must use resourceType.action form", eventType), http.StatusBadRequest)
}

func ErrWebhookDisabled() *AppError {
	return New("WH_004", "Webhook is not active", http.StatusConflict)
}

// ---- Deliveries (DLV) ----

func ErrDeliveryNotFound() *AppError {
	return New("DLV_001", "Delivery not found", http.StatusNotFound)
}

func ErrInvalidListFilter(message string) *AppError {
	return New("DLV_002", message, http.StatusBadRequest)
}

// ---- Events (EVT) ----

func ErrInvalidEvent(message string) *AppError {
	return New("EVT_001", message, http.StatusBadRequest)
}

// ---- Tenancy (ORG) ----

func ErrMissingOrganization() *AppError {
	return New("ORG_001", "Missing organization context", http.StatusUnauthorized)
}

func ErrInvalidOrganization() *AppError {
	return New("ORG_002", "Invalid organization identifier", http.StatusBadRequest)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a generic request validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
