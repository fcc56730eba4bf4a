package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus represents the state of a delivery attempt-series.
type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSuccess DeliveryStatus = "success"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// Delivery is one queued attempt-series to deliver a single event
// notification to one webhook endpoint. Payload holds the exact bytes sent
// on every attempt; it is captured once at enqueue time so retries are
// byte-identical and the receiver's signature check is stable.
//
// The record is never deleted by the engine; terminal rows remain as the
// delivery history read via the listing interface.
type Delivery struct {
	ID          uuid.UUID      `json:"id"`
	WebhookID   uuid.UUID      `json:"webhook_id"`
	Payload     []byte         `json:"payload"`
	Status      DeliveryStatus `json:"status"`
	Attempts    int            `json:"attempts"`
	AttemptedAt *time.Time     `json:"attempted_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	NextRetryAt *time.Time     `json:"next_retry_at,omitempty"`
	StatusCode  *int           `json:"status_code,omitempty"`
	Response    *string        `json:"response,omitempty"`
	Error       *string        `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewPendingDelivery builds a freshly enqueued delivery, due immediately.
func NewPendingDelivery(webhookID uuid.UUID, payload []byte, now time.Time) *Delivery {
	due := now
	return &Delivery{
		ID:          uuid.New(),
		WebhookID:   webhookID,
		Payload:     payload,
		Status:      DeliveryStatusPending,
		Attempts:    0,
		NextRetryAt: &due,
		CreatedAt:   now,
	}
}

// IsTerminal returns true once no further dispatch will occur.
func (d *Delivery) IsTerminal() bool {
	return d.Status == DeliveryStatusSuccess || d.Status == DeliveryStatusFailed
}

// MarkSuccess transitions the delivery to its success terminal state.
func (d *Delivery) MarkSuccess(statusCode int, responseBody string, now time.Time) {
	d.Status = DeliveryStatusSuccess
	d.StatusCode = &statusCode
	d.Response = &responseBody
	d.Error = nil
	d.CompletedAt = &now
	d.NextRetryAt = nil
}

// MarkFailed transitions the delivery to its failed terminal state.
// statusCode may be nil when no HTTP response was received.
func (d *Delivery) MarkFailed(statusCode *int, responseBody *string, errMsg string, now time.Time) {
	d.Status = DeliveryStatusFailed
	d.StatusCode = statusCode
	d.Response = responseBody
	d.Error = &errMsg
	d.CompletedAt = &now
	d.NextRetryAt = nil
}

// MarkRetry keeps the delivery pending and schedules the next attempt.
func (d *Delivery) MarkRetry(statusCode *int, responseBody *string, errMsg string, nextRetryAt time.Time) {
	d.Status = DeliveryStatusPending
	d.StatusCode = statusCode
	d.Response = responseBody
	d.Error = &errMsg
	d.NextRetryAt = &nextRetryAt
}

// Latency returns the duration between the last dispatch attempt and
// completion, or false if the record is not terminal.
func (d *Delivery) Latency() (time.Duration, bool) {
	if d.AttemptedAt == nil || d.CompletedAt == nil {
		return 0, false
	}
	return d.CompletedAt.Sub(*d.AttemptedAt), true
}
