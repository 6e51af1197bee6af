package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalhouse/dispatch/internal/config"
	"github.com/signalhouse/dispatch/internal/domain"
)

func testClient(t *testing.T) *Client {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewFromClient(client)
}

func testQueue(t *testing.T) *Queue {
	t.Helper()

	cfg := config.QueueConfig{
		StalledInterval: 100 * time.Millisecond,
		MaxStalled:      1,
		MaxAttempts:     3,
		BackoffBase:     time.Second,
		CompletedKeep:   5,
		FailedKeep:      3,
	}
	return NewQueue(testClient(t), cfg)
}

func queueJob(priority domain.Priority) *domain.Job {
	return &domain.Job{
		NotificationID: uuid.New(),
		UserID:         "u1",
		Type:           domain.TypeWelcome,
		Title:          "Welcome!",
		Message:        "Hello",
		Priority:       priority.Weight(),
	}
}

func TestQueue_PriorityOrder(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

	low := queueJob(domain.PriorityLow)
	urgent := queueJob(domain.PriorityUrgent)
	normal := queueJob(domain.PriorityNormal)

	require.NoError(t, q.Enqueue(ctx, domain.ChannelEmail, low))
	require.NoError(t, q.Enqueue(ctx, domain.ChannelEmail, urgent))
	require.NoError(t, q.Enqueue(ctx, domain.ChannelEmail, normal))

	for _, want := range []*domain.Job{urgent, normal, low} {
		got, err := q.Dequeue(ctx, domain.ChannelEmail)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.NotificationID, got.NotificationID)
	}

	got, err := q.Dequeue(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_FIFOWithinPriority(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

	first := queueJob(domain.PriorityNormal)
	second := queueJob(domain.PriorityNormal)
	third := queueJob(domain.PriorityNormal)

	for _, job := range []*domain.Job{first, second, third} {
		require.NoError(t, q.Enqueue(ctx, domain.ChannelEmail, job))
	}

	for _, want := range []*domain.Job{first, second, third} {
		got, err := q.Dequeue(ctx, domain.ChannelEmail)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.NotificationID, got.NotificationID)
	}
}

func TestQueue_DelayedHeldUntilDue(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

	job := queueJob(domain.PriorityHigh)
	job.DelayUntil = time.Now().Add(40 * time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, domain.ChannelEmail, job))

	// parked in the delayed set, not ready
	got, err := q.Dequeue(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	assert.Nil(t, got)

	depth, err := q.Depth(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth.Delayed)

	promoted, err := q.PromoteDelayed(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	assert.Zero(t, promoted)

	time.Sleep(60 * time.Millisecond)

	promoted, err = q.PromoteDelayed(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, int64(1), promoted)

	got, err = q.Dequeue(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.NotificationID, got.NotificationID)
}

func TestQueue_CompleteDropsJobAndTrimsHistory(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

	for i := 0; i < q.cfg.CompletedKeep+2; i++ {
		job := queueJob(domain.PriorityNormal)
		require.NoError(t, q.Enqueue(ctx, domain.ChannelEmail, job))

		got, err := q.Dequeue(ctx, domain.ChannelEmail)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.NoError(t, q.Complete(ctx, domain.ChannelEmail, got))
	}

	depth, err := q.Depth(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	assert.Zero(t, depth.Total())

	kept, err := q.client.client.LLen(ctx, queueKey(domain.ChannelEmail, "completed")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(q.cfg.CompletedKeep), kept)

	payloads, err := q.client.client.HLen(ctx, queueKey(domain.ChannelEmail, "jobs")).Result()
	require.NoError(t, err)
	assert.Zero(t, payloads)
}

func TestQueue_FailReschedulesWithBackoff(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

	job := queueJob(domain.PriorityNormal)
	require.NoError(t, q.Enqueue(ctx, domain.ChannelEmail, job))

	got, err := q.Dequeue(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	require.NotNil(t, got)

	retrying, err := q.Fail(ctx, domain.ChannelEmail, got, "smtp timeout")
	require.NoError(t, err)
	assert.True(t, retrying)
	assert.Equal(t, 1, got.Attempts)

	// backoff keeps the job out of the waiting set for now
	depth, err := q.Depth(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth.Delayed)

	promoted, err := q.PromoteDelayed(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	assert.Zero(t, promoted)
}

func TestQueue_FailBuriesAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

	job := queueJob(domain.PriorityNormal)
	require.NoError(t, q.Enqueue(ctx, domain.ChannelEmail, job))

	got, err := q.Dequeue(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	require.NotNil(t, got)

	for attempt := 1; attempt < q.cfg.MaxAttempts; attempt++ {
		retrying, err := q.Fail(ctx, domain.ChannelEmail, got, "smtp timeout")
		require.NoError(t, err)
		assert.True(t, retrying)
	}

	retrying, err := q.Fail(ctx, domain.ChannelEmail, got, "smtp timeout")
	require.NoError(t, err)
	assert.False(t, retrying)
	assert.Equal(t, q.cfg.MaxAttempts, got.Attempts)

	depth, err := q.Depth(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	assert.Zero(t, depth.Total())

	buried, err := q.client.client.LLen(ctx, queueKey(domain.ChannelEmail, "failed")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), buried)
}

func TestQueue_KillBuriesImmediately(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

	job := queueJob(domain.PriorityNormal)
	require.NoError(t, q.Enqueue(ctx, domain.ChannelPush, job))

	got, err := q.Dequeue(ctx, domain.ChannelPush)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, q.Kill(ctx, domain.ChannelPush, got, "all tokens rejected"))

	depth, err := q.Depth(ctx, domain.ChannelPush)
	require.NoError(t, err)
	assert.Zero(t, depth.Total())

	buried, err := q.client.client.LLen(ctx, queueKey(domain.ChannelPush, "failed")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), buried)
}

func TestQueue_ReclaimStalled(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

	job := queueJob(domain.PriorityNormal)
	require.NoError(t, q.Enqueue(ctx, domain.ChannelEmail, job))

	got, err := q.Dequeue(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	require.NotNil(t, got)

	// first stall: requeued
	time.Sleep(120 * time.Millisecond)
	requeued, dead, err := q.ReclaimStalled(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, int64(1), requeued)
	assert.Empty(t, dead)

	got, err = q.Dequeue(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Stalls)

	// second stall: past the budget, buried and reported dead
	time.Sleep(120 * time.Millisecond)
	requeued, dead, err = q.ReclaimStalled(ctx, domain.ChannelEmail)
	require.NoError(t, err)
	assert.Zero(t, requeued)
	require.Len(t, dead, 1)
	assert.Equal(t, job.NotificationID, dead[0].NotificationID)
	assert.Equal(t, 2, dead[0].Stalls)

	buried, err := q.client.client.LLen(ctx, queueKey(domain.ChannelEmail, "failed")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), buried)
}

func TestQueue_Depths(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

	require.NoError(t, q.Enqueue(ctx, domain.ChannelEmail, queueJob(domain.PriorityNormal)))
	require.NoError(t, q.Enqueue(ctx, domain.ChannelEmail, queueJob(domain.PriorityNormal)))

	delayed := queueJob(domain.PriorityNormal)
	delayed.DelayUntil = time.Now().Add(time.Minute)
	require.NoError(t, q.Enqueue(ctx, domain.ChannelSMS, delayed))

	_, err := q.Dequeue(ctx, domain.ChannelEmail)
	require.NoError(t, err)

	depths, err := q.Depths(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), depths[domain.ChannelEmail].Waiting)
	assert.Equal(t, int64(1), depths[domain.ChannelEmail].Active)
	assert.Equal(t, int64(1), depths[domain.ChannelSMS].Delayed)
	assert.Zero(t, depths[domain.ChannelPush].Total())
}
