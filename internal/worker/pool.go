package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/signalhouse/dispatch/internal/config"
	"github.com/signalhouse/dispatch/internal/domain"
	"github.com/signalhouse/dispatch/internal/metrics"
)

// Pool runs the delivery workers for one channel. Each worker drains the
// channel queue job by job: claim the notification row, resolve the
// recipient, render the active template and hand the message to the
// channel adapter. A maintenance loop promotes due delayed jobs and
// reclaims stalled ones.
type Pool struct {
	channel   domain.Channel
	count     int
	store     domain.NotificationRepository
	queue     domain.Queue
	limiter   domain.RateLimiter
	resolver  domain.Resolver
	adapter   domain.ChannelAdapter
	collector *metrics.Collector
	logger    *slog.Logger
	cfg       config.WorkerConfig

	mu         sync.Mutex
	running    bool
	wg         sync.WaitGroup
	cancelFunc context.CancelFunc
}

// NewPool creates a new Pool for the adapter's channel
func NewPool(
	count int,
	store domain.NotificationRepository,
	queue domain.Queue,
	limiter domain.RateLimiter,
	resolver domain.Resolver,
	adapter domain.ChannelAdapter,
	collector *metrics.Collector,
	logger *slog.Logger,
	cfg config.WorkerConfig,
) *Pool {
	return &Pool{
		channel:   adapter.Channel(),
		count:     count,
		store:     store,
		queue:     queue,
		limiter:   limiter,
		resolver:  resolver,
		adapter:   adapter,
		collector: collector,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start starts the workers and the maintenance loop
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	ctx, p.cancelFunc = context.WithCancel(ctx)

	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	p.wg.Add(1)
	go p.maintenance(ctx)

	p.logger.Info("worker pool started",
		"channel", p.channel,
		"workers", p.count,
	)
	return nil
}

// Stop stops the pool, waiting up to the drain timeout for in-flight
// jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	if p.cancelFunc != nil {
		p.cancelFunc()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped", "channel", p.channel)
	case <-time.After(p.cfg.DrainTimeout):
		p.logger.Warn("worker pool stop timed out", "channel", p.channel)
	}
}

// worker is the main delivery loop for one goroutine
func (p *Pool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	logger := p.logger.With(
		"channel", p.channel,
		"worker_id", workerID,
	)

	p.collector.WorkerStarted(p.channel)
	defer p.collector.WorkerStopped(p.channel)

	logger.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopped")
			return
		default:
			if err := p.processNext(ctx, logger); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Error("failed to process job", "error", err)
				p.idle(ctx)
			}
		}
	}
}

// processNext takes one job from the queue, or idles when none is ready.
// The channel send budget is claimed before the job is taken, so a full
// window throttles the whole pool instead of parking claimed jobs.
func (p *Pool) processNext(ctx context.Context, logger *slog.Logger) error {
	if err := p.limiter.Wait(ctx, p.channel); err != nil {
		return err
	}

	job, err := p.queue.Dequeue(ctx, p.channel)
	if err != nil {
		return err
	}
	if job == nil {
		p.idle(ctx)
		return nil
	}

	p.process(ctx, job, logger)
	return nil
}

// process executes one delivery attempt for the job.
func (p *Pool) process(ctx context.Context, job *domain.Job, logger *slog.Logger) {
	logger = logger.With("notification_id", job.NotificationID)
	start := time.Now()

	notification, err := p.store.MarkProcessing(ctx, job.NotificationID)
	if err != nil {
		p.handleClaimError(ctx, job, err, logger)
		return
	}

	if err := p.deliver(ctx, job); err != nil {
		p.handleDeliveryError(ctx, job, notification, err, logger)
		return
	}

	if err := p.store.UpdateStatus(ctx, notification.ID, domain.StatusSent, nil); err != nil {
		logger.Error("failed to mark notification sent", "error", err)
	}
	if err := p.queue.Complete(ctx, p.channel, job); err != nil {
		logger.Error("failed to complete job", "error", err)
	}
	p.collector.RecordSent(p.channel, time.Since(start))

	logger.Info("notification sent", "attempts", job.Attempts+1)
}

// handleClaimError resolves a job whose row could not be claimed. A row
// that already reached SENT means the job was redelivered after a
// successful send; acknowledge it without sending twice. A missing row
// was cleaned up, so the job is dropped.
func (p *Pool) handleClaimError(ctx context.Context, job *domain.Job, err error, logger *slog.Logger) {
	switch {
	case errors.Is(err, domain.ErrAlreadyDelivered):
		logger.Warn("job redelivered after send, dropping")
		if completeErr := p.queue.Complete(ctx, p.channel, job); completeErr != nil {
			logger.Error("failed to drop redelivered job", "error", completeErr)
		}
	case errors.Is(err, domain.ErrNotFound):
		logger.Warn("notification row missing, dropping job")
		if completeErr := p.queue.Complete(ctx, p.channel, job); completeErr != nil {
			logger.Error("failed to drop orphaned job", "error", completeErr)
		}
	default:
		logger.Error("failed to claim notification", "error", err)
		if _, failErr := p.queue.Fail(ctx, p.channel, job, err.Error()); failErr != nil {
			logger.Error("failed to reschedule job", "error", failErr)
		}
	}
}

// deliver resolves the recipient, builds the message and sends it
func (p *Pool) deliver(ctx context.Context, job *domain.Job) error {
	recipient := p.resolver.Recipient(ctx, job.UserID, p.channel)
	if recipient.Empty(p.channel) {
		return fmt.Errorf("%w: %s", domain.ErrRecipientMissing, p.channel)
	}

	return p.adapter.Send(ctx, recipient, p.buildMessage(ctx, job))
}

// buildMessage renders the active template for the job's type, falling
// back to the job's raw title and message when none exists. The job's
// title, message and metadata feed the template variables.
func (p *Pool) buildMessage(ctx context.Context, job *domain.Job) domain.Message {
	msg := domain.Message{
		Title:    job.Title,
		Body:     job.Message,
		Metadata: job.Metadata,
	}

	tmpl := p.resolver.Template(ctx, job.Type, p.channel)
	if tmpl == nil {
		return msg
	}

	vars := make(map[string]any, len(job.Metadata)+2)
	for key, value := range job.Metadata {
		vars[key] = value
	}
	vars["title"] = job.Title
	vars["message"] = job.Message

	rendered := tmpl.Render(vars)
	msg.Title = rendered.Title
	msg.Body = rendered.Message
	if rendered.HTMLContent != nil {
		msg.HTMLBody = *rendered.HTMLContent
	}
	return msg
}

// handleDeliveryError records the failed attempt on the row, then routes
// the job: permanent rejections are buried immediately, everything else
// goes back to the queue with backoff until the attempt budget is spent.
func (p *Pool) handleDeliveryError(ctx context.Context, job *domain.Job, notification *domain.Notification, err error, logger *slog.Logger) {
	errMsg := err.Error()

	if updateErr := p.store.UpdateStatus(ctx, notification.ID, domain.StatusFailed, &errMsg); updateErr != nil {
		logger.Error("failed to mark notification failed", "error", updateErr)
	}
	if retryErr := p.store.IncrementRetry(ctx, notification.ID); retryErr != nil {
		logger.Error("failed to increment retry count", "error", retryErr)
	}
	p.collector.RecordFailed(p.channel, domain.CodeOf(err))

	var adapterErr *domain.AdapterError
	if errors.As(err, &adapterErr) && !adapterErr.Retryable {
		p.deactivateTokens(ctx, job.UserID, adapterErr.Tokens, logger)
		if killErr := p.queue.Kill(ctx, p.channel, job, errMsg); killErr != nil {
			logger.Error("failed to bury job", "error", killErr)
		}
		logger.Error("notification failed permanently", "error", errMsg)
		return
	}

	retrying, failErr := p.queue.Fail(ctx, p.channel, job, errMsg)
	if failErr != nil {
		logger.Error("failed to reschedule job", "error", failErr)
		return
	}
	if retrying {
		logger.Warn("notification will be retried",
			"attempts", job.Attempts,
			"error", errMsg,
		)
		return
	}
	logger.Error("notification failed after max attempts",
		"attempts", job.Attempts,
		"error", errMsg,
	)
}

// deactivateTokens retires device tokens the push gateway rejected as
// unregistered.
func (p *Pool) deactivateTokens(ctx context.Context, userID string, tokens []string, logger *slog.Logger) {
	for _, token := range tokens {
		if err := p.resolver.DeactivateDeviceToken(ctx, userID, token); err != nil {
			logger.Error("failed to deactivate device token", "user_id", userID, "error", err)
			continue
		}
		logger.Info("device token deactivated", "user_id", userID)
	}
}

// maintenance promotes due delayed jobs and reclaims stalled ones on a
// fixed interval.
func (p *Pool) maintenance(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.MaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.queue.PromoteDelayed(ctx, p.channel); err != nil {
				p.logger.Error("failed to promote delayed jobs", "channel", p.channel, "error", err)
			}

			reclaimed, dead, err := p.queue.ReclaimStalled(ctx, p.channel)
			if err != nil {
				p.logger.Error("failed to reclaim stalled jobs", "channel", p.channel, "error", err)
				continue
			}
			if reclaimed > 0 {
				p.logger.Warn("stalled jobs requeued", "channel", p.channel, "count", reclaimed)
			}
			for _, job := range dead {
				p.markStallDead(ctx, job)
			}
		}
	}
}

// markStallDead records a stall death on the notification row. The queue
// already buried the job; this keeps the row's attempt count honest so
// the retry scan stays bounded.
func (p *Pool) markStallDead(ctx context.Context, job *domain.Job) {
	errMsg := "job stalled"
	if err := p.store.UpdateStatus(ctx, job.NotificationID, domain.StatusFailed, &errMsg); err != nil {
		p.logger.Error("failed to mark stalled notification failed",
			"notification_id", job.NotificationID,
			"error", err,
		)
	}
	if err := p.store.IncrementRetry(ctx, job.NotificationID); err != nil {
		p.logger.Error("failed to increment retry count",
			"notification_id", job.NotificationID,
			"error", err,
		)
	}
	p.collector.RecordFailed(p.channel, domain.CodeAdapterTransient)

	p.logger.Error("job stalled beyond budget",
		"notification_id", job.NotificationID,
		"channel", p.channel,
	)
}

// idle waits one poll interval, or less if the context ends
func (p *Pool) idle(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(p.cfg.PollInterval):
	}
}
