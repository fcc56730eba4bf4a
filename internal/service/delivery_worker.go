package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"audit-webhook-engine/config"
	"audit-webhook-engine/internal/core/domain"
	"audit-webhook-engine/internal/core/ports"
	"audit-webhook-engine/internal/metrics"
	"audit-webhook-engine/pkg/apperror"

	"github.com/rs/zerolog"
)

// maxStoredResponseBytes caps the endpoint response body persisted on a
// delivery record.
const maxStoredResponseBytes = 4 << 10

// HTTPClient abstracts the outbound HTTP client for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DeliveryWorker polls the delivery store for due records and dispatches
// them to subscriber endpoints. One worker instance runs a single poll
// goroutine; within a cycle, dispatches run with bounded concurrency.
type DeliveryWorker struct {
	deliveryRepo ports.DeliveryRepository
	webhookRepo  ports.WebhookRepository
	signer       ports.SignatureService
	policy       RetryPolicy
	client       HTTPClient
	cfg          config.WorkerConfig
	log          zerolog.Logger

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewDeliveryWorker creates a worker wired to the given repositories. A nil
// client gets a default http.Client with the configured timeout.
func NewDeliveryWorker(
	deliveryRepo ports.DeliveryRepository,
	webhookRepo ports.WebhookRepository,
	signer ports.SignatureService,
	cfg config.WorkerConfig,
	client HTTPClient,
	log zerolog.Logger,
) *DeliveryWorker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &DeliveryWorker{
		deliveryRepo: deliveryRepo,
		webhookRepo:  webhookRepo,
		signer:       signer,
		policy:       NewRetryPolicy(cfg.MaxAttempts, cfg.BackoffBase),
		client:       client,
		cfg:          cfg,
		log:          log,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start launches the poll loop. It returns immediately; the loop runs until
// Stop is called or ctx is cancelled.
func (w *DeliveryWorker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.cfg.PollInterval)
		defer ticker.Stop()

		w.log.Info().
			Dur("poll_interval", w.cfg.PollInterval).
			Int("batch_size", w.cfg.BatchSize).
			Int("concurrency", w.cfg.Concurrency).
			Msg("delivery worker started")

		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			case <-ticker.C:
				w.ProcessOnce(ctx)
			}
		}
	}()
}

// Stop signals the poll loop to exit and waits for the in-flight cycle to
// finish.
func (w *DeliveryWorker) Stop() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
	w.log.Info().Msg("delivery worker stopped")
}

// ProcessOnce runs a single poll cycle: fetch due deliveries and dispatch
// them in groups bounded by the configured concurrency. Exported so tests
// and operational tooling can drive cycles without the ticker.
func (w *DeliveryWorker) ProcessOnce(ctx context.Context) {
	due, err := w.deliveryRepo.FetchDue(ctx, w.cfg.BatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to fetch due deliveries")
		return
	}
	if len(due) == 0 {
		return
	}
	metrics.WorkerCycles.Inc()

	sem := make(chan struct{}, w.cfg.Concurrency)
	var wg sync.WaitGroup
	for i := range due {
		wg.Add(1)
		sem <- struct{}{}
		go func(d domain.Delivery) {
			defer wg.Done()
			defer func() { <-sem }()
			w.dispatch(ctx, &d)
		}(due[i])
	}
	wg.Wait()
}

// dispatch performs one attempt for one delivery and persists the outcome.
func (w *DeliveryWorker) dispatch(ctx context.Context, d *domain.Delivery) {
	now := time.Now().UTC()
	d.Attempts++
	d.AttemptedAt = &now

	sub, err := w.webhookRepo.GetByID(ctx, d.WebhookID)
	if err != nil {
		// Transient lookup failure: leave the row as-is for the next cycle.
		w.log.Error().Err(err).Str("delivery_id", d.ID.String()).Msg("webhook lookup failed")
		d.Attempts--
		d.AttemptedAt = nil
		return
	}
	if sub == nil {
		w.finish(ctx, d, apperror.ErrWebhookNotFound().Message, now)
		return
	}
	if !sub.IsActive() {
		w.finish(ctx, d, apperror.ErrWebhookDisabled().Message, now)
		return
	}

	statusCode, body, reqErr := w.post(ctx, sub, d.Payload)
	completed := time.Now().UTC()
	latency := completed.Sub(now)

	if reqErr != nil {
		w.observe(ctx, latency, d, Failure{Kind: FailureNetwork}, nil, nil, reqErr.Error(), completed)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		d.MarkSuccess(statusCode, body, completed)
		w.persist(ctx, d)
		metrics.DeliveryAttempts.WithLabelValues("success").Inc()
		metrics.DeliveryLatency.WithLabelValues("success").Observe(latency.Seconds())
		w.log.Info().
			Str("delivery_id", d.ID.String()).
			Str("webhook_id", sub.ID.String()).
			Int("status_code", statusCode).
			Dur("latency", latency).
			Msg("delivery succeeded")
		return
	}

	errMsg := fmt.Sprintf("endpoint returned status %d", statusCode)
	w.observe(ctx, latency, d, Failure{Kind: FailureHTTPStatus, Code: statusCode}, &statusCode, &body, errMsg, completed)
}

// finish records a referential failure (subscription gone or disabled).
func (w *DeliveryWorker) finish(ctx context.Context, d *domain.Delivery, errMsg string, now time.Time) {
	d.MarkFailed(nil, nil, errMsg, now)
	w.persist(ctx, d)
	metrics.DeliveryAttempts.WithLabelValues("failed").Inc()
	w.log.Warn().
		Str("delivery_id", d.ID.String()).
		Str("webhook_id", d.WebhookID.String()).
		Str("error", errMsg).
		Msg("delivery terminally failed")
}

// observe applies the retry decision for a failed attempt and persists it.
func (w *DeliveryWorker) observe(ctx context.Context, latency time.Duration, d *domain.Delivery, f Failure, statusCode *int, body *string, errMsg string, now time.Time) {
	decision := w.policy.Decide(f, d.Attempts)
	if decision.Retry {
		d.MarkRetry(statusCode, body, errMsg, now.Add(decision.Delay))
		metrics.DeliveryAttempts.WithLabelValues("retry").Inc()
		metrics.DeliveryLatency.WithLabelValues("retry").Observe(latency.Seconds())
		w.log.Warn().
			Str("delivery_id", d.ID.String()).
			Int("attempts", d.Attempts).
			Dur("retry_in", decision.Delay).
			Str("error", errMsg).
			Msg("delivery failed, retry scheduled")
	} else {
		d.MarkFailed(statusCode, body, errMsg, now)
		metrics.DeliveryAttempts.WithLabelValues("failed").Inc()
		metrics.DeliveryLatency.WithLabelValues("failed").Observe(latency.Seconds())
		w.log.Warn().
			Str("delivery_id", d.ID.String()).
			Int("attempts", d.Attempts).
			Str("error", errMsg).
			Msg("delivery terminally failed")
	}
	w.persist(ctx, d)
}

// post sends the stored payload bytes to the endpoint, signed with the
// subscription secret.
func (w *DeliveryWorker) post(ctx context.Context, sub *domain.WebhookSubscription, payload []byte) (int, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, w.cfg.HTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, sub.EndpointURL, bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, w.signer.Header(sub.Secret, payload))

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxStoredResponseBytes))
	return resp.StatusCode, string(body), nil
}

// persist writes the delivery's new state; persistence failures are logged
// and the row is retried by a later cycle in its prior state.
func (w *DeliveryWorker) persist(ctx context.Context, d *domain.Delivery) {
	if err := w.deliveryRepo.Update(ctx, d); err != nil {
		w.log.Error().Err(err).Str("delivery_id", d.ID.String()).Msg("failed to persist delivery state")
	}
}
