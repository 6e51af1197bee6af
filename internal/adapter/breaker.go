package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/signalhouse/dispatch/internal/domain"
)

const (
	breakerTripAfter = 5
	breakerCooldown  = 30 * time.Second
)

// BreakerAdapter wraps a ChannelAdapter with a circuit breaker so a
// dead upstream sheds jobs quickly instead of tying every worker up in
// timeouts. Rejections while open are reported as transient, so the
// queue backoff naturally probes recovery.
type BreakerAdapter struct {
	inner   domain.ChannelAdapter
	breaker *gobreaker.CircuitBreaker
}

// WithBreaker wraps the adapter. Only transient failures count towards
// tripping; permanent rejections are the recipient's problem, not the
// upstream's.
func WithBreaker(inner domain.ChannelAdapter, logger *slog.Logger) *BreakerAdapter {
	settings := gobreaker.Settings{
		Name:    string(inner.Channel()),
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripAfter
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var adapterErr *domain.AdapterError
			if errors.As(err, &adapterErr) && !adapterErr.Retryable {
				return true
			}
			return errors.Is(err, domain.ErrRecipientMissing)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("adapter circuit state changed",
				"adapter", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &BreakerAdapter{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *BreakerAdapter) Channel() domain.Channel {
	return b.inner.Channel()
}

func (b *BreakerAdapter) Send(ctx context.Context, recipient domain.Recipient, msg domain.Message) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.inner.Send(ctx, recipient, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.NewTransientAdapterError(fmt.Sprintf("%s adapter circuit open", b.inner.Channel()))
	}
	return err
}
