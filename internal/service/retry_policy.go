package service

import (
	"net/http"
	"time"
)

// FailureKind classifies a failed dispatch attempt.
type FailureKind int

const (
	// FailureNetwork covers attempts that produced no HTTP response at all:
	// connection refused, DNS failure, timeout.
	FailureNetwork FailureKind = iota
	// FailureHTTPStatus covers non-2xx responses; Code carries the status.
	FailureHTTPStatus
	// FailureWebhookMissing marks a delivery whose subscription was deleted.
	FailureWebhookMissing
	// FailureWebhookInactive marks a delivery whose subscription was disabled
	// after enqueue.
	FailureWebhookInactive
)

// Failure is the outcome of one unsuccessful dispatch.
type Failure struct {
	Kind FailureKind
	Code int // HTTP status, set only for FailureHTTPStatus
}

// Decision tells the worker what to do with a failed delivery.
type Decision struct {
	Retry bool
	Delay time.Duration // backoff before the next attempt, when Retry
}

// RetryPolicy decides, from attempt count and failure class alone, whether
// a delivery gets another attempt. It holds no I/O so the full decision
// table is unit-testable.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// NewRetryPolicy builds a policy, applying defaults for zero values.
func NewRetryPolicy(maxAttempts int, backoffBase time.Duration) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoffBase <= 0 {
		backoffBase = time.Minute
	}
	return RetryPolicy{MaxAttempts: maxAttempts, BackoffBase: backoffBase}
}

// Backoff returns the delay scheduled after the given attempt number
// (1-based): base after attempt 1, doubling each attempt after that.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BackoffBase << (attempt - 1)
}

// Decide maps a failure plus the attempts consumed so far to a decision.
//
// Referential failures (subscription deleted or disabled) and client errors
// other than 408/429 are terminal immediately; network failures, 5xx, 429
// and 408 are retryable until MaxAttempts is exhausted.
func (p RetryPolicy) Decide(f Failure, attempts int) Decision {
	if !p.retryable(f) {
		return Decision{}
	}
	if attempts >= p.MaxAttempts {
		return Decision{}
	}
	return Decision{Retry: true, Delay: p.Backoff(attempts)}
}

func (p RetryPolicy) retryable(f Failure) bool {
	switch f.Kind {
	case FailureNetwork:
		return true
	case FailureHTTPStatus:
		if f.Code >= 500 {
			return true
		}
		return f.Code == http.StatusTooManyRequests || f.Code == http.StatusRequestTimeout
	default:
		// FailureWebhookMissing, FailureWebhookInactive
		return false
	}
}
