package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/signalhouse/dispatch/internal/config"
	"github.com/signalhouse/dispatch/internal/domain"
)

// RetryOrchestrator periodically rescues notifications the queue no
// longer holds: FAILED rows with retry budget left, and QUEUED rows
// whose job never landed because an enqueue failed after the create.
//
// A requeued job reuses the original notification id, so no duplicate
// history rows are written. The row's retryCount seeds the job's
// attempt counter, which keeps total executions bounded by the retry
// budget across requeues.
type RetryOrchestrator struct {
	store  domain.NotificationRepository
	queue  domain.Queue
	logger *slog.Logger
	cfg    config.RetryConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// NewRetryOrchestrator creates a new RetryOrchestrator
func NewRetryOrchestrator(store domain.NotificationRepository, queue domain.Queue, logger *slog.Logger, cfg config.RetryConfig) *RetryOrchestrator {
	return &RetryOrchestrator{
		store:  store,
		queue:  queue,
		logger: logger,
		cfg:    cfg,
	}
}

// Start starts the periodic scan
func (o *RetryOrchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = true
	o.stopChan = make(chan struct{})
	o.mu.Unlock()

	o.logger.Info("retry orchestrator started", "interval", o.cfg.ScanInterval)

	go o.run(ctx)
	return nil
}

// Stop stops the periodic scan
func (o *RetryOrchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return
	}

	close(o.stopChan)
	o.running = false
	o.logger.Info("retry orchestrator stopped")
}

func (o *RetryOrchestrator) run(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopChan:
			return
		case <-ticker.C:
			if _, err := o.RetryFailed(ctx); err != nil {
				o.logger.Error("retry scan failed", "error", err)
			}
			if _, err := o.RequeueStuck(ctx); err != nil {
				o.logger.Error("stuck scan failed", "error", err)
			}
		}
	}
}

// RetryFailed requeues FAILED notifications that still have retry
// budget, oldest failure first. It returns how many were requeued.
func (o *RetryOrchestrator) RetryFailed(ctx context.Context) (int, error) {
	rows, err := o.store.FindFailedForRetry(ctx, o.cfg.ScanLimit, domain.MaxRetries)
	if err != nil {
		return 0, fmt.Errorf("failed to find notifications for retry: %w", err)
	}

	requeued := 0
	for _, n := range rows {
		if err := o.requeue(ctx, n); err != nil {
			o.logger.Error("failed to requeue notification",
				"notification_id", n.ID,
				"error", err,
			)
			continue
		}
		requeued++
	}

	if requeued > 0 {
		o.logger.Info("failed notifications requeued", "count", requeued)
	}
	return requeued, nil
}

// RequeueStuck requeues QUEUED notifications untouched for longer than
// the configured threshold. These are rows whose enqueue never landed.
func (o *RetryOrchestrator) RequeueStuck(ctx context.Context) (int, error) {
	rows, err := o.store.FindStuckQueued(ctx, o.cfg.StuckAfter, o.cfg.ScanLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to find stuck notifications: %w", err)
	}

	requeued := 0
	for _, n := range rows {
		if err := o.requeue(ctx, n); err != nil {
			o.logger.Error("failed to requeue stuck notification",
				"notification_id", n.ID,
				"error", err,
			)
			continue
		}
		requeued++
	}

	if requeued > 0 {
		o.logger.Info("stuck notifications requeued", "count", requeued)
	}
	return requeued, nil
}

// requeue resets the row to QUEUED and enqueues one job on its stored
// channel. The status update also bumps updatedAt, which keeps the row
// out of the stuck scan for another threshold window.
func (o *RetryOrchestrator) requeue(ctx context.Context, n *domain.Notification) error {
	if err := o.store.UpdateStatus(ctx, n.ID, domain.StatusQueued, nil); err != nil {
		return fmt.Errorf("failed to reset status: %w", err)
	}

	delayUntil := time.Now().UTC()
	if n.ScheduledAt != nil && n.ScheduledAt.After(delayUntil) {
		delayUntil = *n.ScheduledAt
	}

	job := &domain.Job{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		Metadata:       n.Metadata,
		Priority:       n.Priority.Weight(),
		DelayUntil:     delayUntil,
		Attempts:       n.RetryCount,
	}
	if err := o.queue.Enqueue(ctx, n.Channel, job); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}
