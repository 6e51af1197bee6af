package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/signalhouse/dispatch/internal/domain"
)

const (
	rateLimitKeyPrefix = "notification:ratelimit:"
	rateLimitWindow    = time.Second
	rateLimitRetryTick = 10 * time.Millisecond
)

// RateLimiter implements domain.RateLimiter with a sliding window of
// send timestamps per channel, shared across instances through Redis.
type RateLimiter struct {
	client      *Client
	limitPerSec int
}

// NewRateLimiter creates a new RateLimiter
func NewRateLimiter(client *Client, limitPerSec int) *RateLimiter {
	return &RateLimiter{
		client:      client,
		limitPerSec: limitPerSec,
	}
}

func rateLimitKey(channel domain.Channel) string {
	return rateLimitKeyPrefix + string(channel)
}

// Allow reports whether one more send fits inside the channel's window,
// consuming a slot when it does.
func (r *RateLimiter) Allow(ctx context.Context, channel domain.Channel) (bool, error) {
	key := rateLimitKey(channel)
	now := time.Now()
	windowStart := strconv.FormatInt(now.Add(-rateLimitWindow).UnixNano(), 10)

	pipe := r.client.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", windowStart)
	count := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count.Val() >= int64(r.limitPerSec) {
		return false, nil
	}

	pipe = r.client.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, key, 2*rateLimitWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to consume rate limit slot: %w", err)
	}

	return true, nil
}

// Wait blocks until a send slot frees up or the context ends.
func (r *RateLimiter) Wait(ctx context.Context, channel domain.Channel) error {
	allowed, err := r.Allow(ctx, channel)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}

	ticker := time.NewTicker(rateLimitRetryTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			allowed, err := r.Allow(ctx, channel)
			if err != nil {
				return err
			}
			if allowed {
				return nil
			}
		}
	}
}
