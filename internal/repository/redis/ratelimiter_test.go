package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalhouse/dispatch/internal/domain"
)

func TestRateLimiter_AllowConsumesSlots(t *testing.T) {
	ctx := context.Background()
	limiter := NewRateLimiter(testClient(t), 3)

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, domain.ChannelEmail)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRateLimiter_ChannelsAreIndependent(t *testing.T) {
	ctx := context.Background()
	limiter := NewRateLimiter(testClient(t), 1)

	allowed, err := limiter.Allow(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, domain.ChannelSMS)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)
	limiter := NewRateLimiter(client, 1)

	// a send older than the window no longer counts
	stale := time.Now().Add(-2 * rateLimitWindow)
	require.NoError(t, client.client.ZAdd(ctx, rateLimitKey(domain.ChannelEmail), redis.Z{
		Score:  float64(stale.UnixNano()),
		Member: "stale",
	}).Err())

	allowed, err := limiter.Allow(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	assert.True(t, allowed)

	entries, err := client.client.ZCard(ctx, rateLimitKey(domain.ChannelEmail)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), entries)
}

func TestRateLimiter_WaitReturnsWhenSlotFree(t *testing.T) {
	ctx := context.Background()
	limiter := NewRateLimiter(testClient(t), 1)

	require.NoError(t, limiter.Wait(ctx, domain.ChannelPush))
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	limiter := NewRateLimiter(testClient(t), 1)

	ctx := context.Background()
	allowed, err := limiter.Allow(ctx, domain.ChannelPush)
	require.NoError(t, err)
	require.True(t, allowed)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	err = limiter.Wait(waitCtx, domain.ChannelPush)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
