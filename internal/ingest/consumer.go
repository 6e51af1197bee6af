package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/signalhouse/dispatch/internal/config"
)

// handlerFunc processes one event payload. Implementations absorb
// per-message failures; a returned error means the message should be
// retried on redelivery.
type handlerFunc func(ctx context.Context, value []byte) error

// Consumer runs one reader per subscribed topic against a shared
// consumer group and routes messages to the Ingestor.
type Consumer struct {
	ingestor *Ingestor
	logger   *slog.Logger
	cfg      config.KafkaConfig

	mu         sync.Mutex
	running    bool
	readers    []*kafka.Reader
	wg         sync.WaitGroup
	cancelFunc context.CancelFunc
}

// NewConsumer creates a new Consumer
func NewConsumer(ingestor *Ingestor, logger *slog.Logger, cfg config.KafkaConfig) *Consumer {
	return &Consumer{
		ingestor: ingestor,
		logger:   logger,
		cfg:      cfg,
	}
}

// Start opens the readers and begins consuming
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.mu.Unlock()

	ctx, c.cancelFunc = context.WithCancel(ctx)

	subscriptions := []struct {
		topic   string
		handler handlerFunc
	}{
		{TopicUser, c.ingestor.HandleUserEvent},
		{TopicAuth, c.ingestor.HandleAuthEvent},
		{TopicOrder, c.ingestor.HandleOrderEvent},
		{TopicPayment, c.ingestor.HandlePaymentEvent},
		{TopicBulk, c.ingestor.HandleBulk},
	}

	for _, sub := range subscriptions {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:           c.cfg.Brokers,
			GroupID:           c.cfg.GroupID,
			Topic:             sub.topic,
			MaxWait:           c.cfg.MaxWait,
			MaxBytes:          c.cfg.MaxBytes,
			SessionTimeout:    c.cfg.SessionTimeout,
			HeartbeatInterval: c.cfg.HeartbeatInterval,
		})
		c.readers = append(c.readers, reader)

		c.wg.Add(1)
		go c.consume(ctx, reader, sub.topic, sub.handler)
	}

	c.logger.Info("event consumer started",
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
		"topics", len(subscriptions),
	)
	return nil
}

// Stop drains in-flight handlers within the drain timeout, then closes
// the readers, committing final offsets.
func (c *Consumer) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	if c.cancelFunc != nil {
		c.cancelFunc()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.cfg.DrainTimeout):
		c.logger.Warn("event consumer drain timed out")
	}

	for _, reader := range c.readers {
		if err := reader.Close(); err != nil {
			c.logger.Error("failed to close reader", "error", err)
		}
	}
	c.readers = nil
	c.logger.Info("event consumer stopped")
}

// consume is the fetch/handle/commit loop for one topic. Handling and
// the commit run detached from the fetch context so an in-flight
// message finishes during shutdown.
func (c *Consumer) consume(ctx context.Context, reader *kafka.Reader, topic string, handle handlerFunc) {
	defer c.wg.Done()

	logger := c.logger.With("topic", topic)
	logger.Info("consuming topic")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				logger.Info("consumer loop stopped")
				return
			}
			logger.Error("failed to fetch message", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		handleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.DrainTimeout)
		if err := handle(handleCtx, msg.Value); err != nil {
			logger.Error("failed to handle event",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			cancel()
			continue
		}

		if err := reader.CommitMessages(handleCtx, msg); err != nil {
			logger.Error("failed to commit offset",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
		cancel()
	}
}
