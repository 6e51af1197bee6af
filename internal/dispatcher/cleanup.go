package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/signalhouse/dispatch/internal/config"
	"github.com/signalhouse/dispatch/internal/domain"
)

// Cleaner deletes terminal notifications past their retention window.
type Cleaner struct {
	store  domain.NotificationRepository
	logger *slog.Logger
	cfg    config.CleanupConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// NewCleaner creates a new Cleaner
func NewCleaner(store domain.NotificationRepository, logger *slog.Logger, cfg config.CleanupConfig) *Cleaner {
	return &Cleaner{
		store:  store,
		logger: logger,
		cfg:    cfg,
	}
}

// Start starts the periodic cleanup
func (c *Cleaner) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.stopChan = make(chan struct{})
	c.mu.Unlock()

	c.logger.Info("cleanup started", "interval", c.cfg.Interval, "max_age", c.cfg.MaxAge)

	go c.run(ctx)
	return nil
}

// Stop stops the periodic cleanup
func (c *Cleaner) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	close(c.stopChan)
	c.running = false
	c.logger.Info("cleanup stopped")
}

func (c *Cleaner) run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleaner) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-c.cfg.MaxAge)

	deleted, err := c.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		c.logger.Error("cleanup sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		c.logger.Info("old notifications deleted", "count", deleted, "cutoff", cutoff)
	}
}
