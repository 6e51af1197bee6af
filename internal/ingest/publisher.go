package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/signalhouse/dispatch/internal/config"
	"github.com/signalhouse/dispatch/internal/dispatcher"
)

// Publisher writes bulk batches back onto the bulk topic so large
// admin submissions are absorbed by the consumer at its own pace.
type Publisher struct {
	writer *kafka.Writer
	chunk  int
	logger *slog.Logger
}

// NewPublisher creates a new Publisher
func NewPublisher(cfg config.KafkaConfig, logger *slog.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:            kafka.TCP(cfg.Brokers...),
		Topic:           TopicBulk,
		Balancer:        &kafka.Hash{},
		RequiredAcks:    kafka.RequireAll,
		MaxAttempts:     cfg.ProducerAttempts,
		WriteBackoffMin: cfg.ProducerBackoff,
	}

	return &Publisher{
		writer: writer,
		chunk:  cfg.ProducerChunk,
		logger: logger,
	}
}

// PublishBulk splits the requests into producer-sized chunks and writes
// one bulk message per chunk. It returns the number of chunks written;
// a mid-batch write failure reports how many made it out.
func (p *Publisher) PublishBulk(ctx context.Context, batchID string, requests []dispatcher.SendRequest) (int, error) {
	total := len(requests)
	totalChunks := (total + p.chunk - 1) / p.chunk

	published := 0
	for begin := 0; begin < total; begin += p.chunk {
		end := begin + p.chunk
		if end > total {
			end = total
		}

		msg := BulkMessage{
			BatchID:            batchID,
			TotalNotifications: total,
			ChunkIndex:         published,
			TotalChunks:        totalChunks,
			BulkNotifications:  requests[begin:end],
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			return published, fmt.Errorf("failed to marshal bulk chunk: %w", err)
		}

		if err := p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(publishKey(msg)),
			Value: payload,
		}); err != nil {
			return published, fmt.Errorf("failed to publish bulk chunk %d/%d: %w", published+1, totalChunks, err)
		}
		published++
	}

	p.logger.Info("bulk batch published",
		"batch_id", batchID,
		"items", total,
		"chunks", published,
	)
	return published, nil
}

// Close flushes and closes the underlying writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// publishKey picks the partitioning key: the batch id, the first item's
// user, or a literal fallback.
func publishKey(msg BulkMessage) string {
	if msg.BatchID != "" {
		return msg.BatchID
	}
	if len(msg.BulkNotifications) > 0 && msg.BulkNotifications[0].UserID != "" {
		return msg.BulkNotifications[0].UserID
	}
	return "bulk"
}
