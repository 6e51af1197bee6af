package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/signalhouse/dispatch/internal/config"
	"github.com/signalhouse/dispatch/internal/domain"
)

// SMSAdapter hands messages to the carrier integration by publishing to
// its outbound topic. Delivery beyond the broker is the carrier's
// concern; a successful publish counts as sent.
type SMSAdapter struct {
	writer  *kafka.Writer
	timeout time.Duration
}

// NewSMSAdapter creates a new SMSAdapter
func NewSMSAdapter(cfg config.SMSConfig, kafkaCfg config.KafkaConfig) *SMSAdapter {
	return &SMSAdapter{
		writer: &kafka.Writer{
			Addr:            kafka.TCP(kafkaCfg.Brokers...),
			Topic:           cfg.Topic,
			Balancer:        &kafka.Hash{},
			RequiredAcks:    kafka.RequireAll,
			MaxAttempts:     kafkaCfg.ProducerAttempts,
			WriteBackoffMin: kafkaCfg.ProducerBackoff,
		},
		timeout: cfg.Timeout,
	}
}

func (a *SMSAdapter) Channel() domain.Channel {
	return domain.ChannelSMS
}

type smsPayload struct {
	UserID  string `json:"user_id"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Send publishes one outbound SMS keyed by user so a recipient's
// messages stay on one partition.
func (a *SMSAdapter) Send(ctx context.Context, recipient domain.Recipient, msg domain.Message) error {
	if recipient.Phone == "" {
		return domain.ErrRecipientMissing
	}

	payload, err := json.Marshal(smsPayload{
		UserID:  recipient.UserID,
		Phone:   recipient.Phone,
		Message: msg.Body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sms payload: %w", err)
	}

	key := recipient.UserID
	if key == "" {
		key = recipient.Phone
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}); err != nil {
		return domain.NewTransientAdapterError(fmt.Sprintf("sms publish failed: %v", err))
	}

	return nil
}

// Close flushes and closes the underlying producer.
func (a *SMSAdapter) Close() error {
	return a.writer.Close()
}
