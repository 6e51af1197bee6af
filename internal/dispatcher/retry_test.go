package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/signalhouse/dispatch/internal/config"
	"github.com/signalhouse/dispatch/internal/domain"
)

func testRetryConfig() config.RetryConfig {
	return config.RetryConfig{
		ScanInterval: time.Minute,
		ScanLimit:    100,
		StuckAfter:   5 * time.Minute,
	}
}

func failedNotification(channel domain.Channel, retryCount int) *domain.Notification {
	errMsg := "smtp timeout"
	return &domain.Notification{
		ID:           uuid.New(),
		UserID:       "u1",
		Type:         domain.TypeWelcome,
		Channel:      channel,
		Priority:     domain.PriorityNormal,
		Status:       domain.StatusFailed,
		Title:        "Welcome!",
		Message:      "Hello",
		RetryCount:   retryCount,
		ErrorMessage: &errMsg,
	}
}

func TestRetryOrchestrator_RetryFailed(t *testing.T) {
	ctx := context.Background()
	repo := new(MockNotificationRepository)
	queue := new(MockQueue)

	first := failedNotification(domain.ChannelEmail, 1)
	second := failedNotification(domain.ChannelPush, 2)

	repo.On("FindFailedForRetry", mock.Anything, 100, domain.MaxRetries).
		Return([]*domain.Notification{first, second}, nil)
	repo.On("UpdateStatus", mock.Anything, first.ID, domain.StatusQueued, (*string)(nil)).Return(nil)
	repo.On("UpdateStatus", mock.Anything, second.ID, domain.StatusQueued, (*string)(nil)).Return(nil)
	queue.On("Enqueue", mock.Anything, domain.ChannelEmail, mock.AnythingOfType("*domain.Job")).Return(nil)
	queue.On("Enqueue", mock.Anything, domain.ChannelPush, mock.AnythingOfType("*domain.Job")).Return(nil)

	o := NewRetryOrchestrator(repo, queue, testLogger(), testRetryConfig())

	requeued, err := o.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, requeued)

	// jobs reuse the notification id and carry the accumulated attempts
	emailJobs := queue.jobsFor(domain.ChannelEmail)
	require.Len(t, emailJobs, 1)
	assert.Equal(t, first.ID, emailJobs[0].NotificationID)
	assert.Equal(t, 1, emailJobs[0].Attempts)

	pushJobs := queue.jobsFor(domain.ChannelPush)
	require.Len(t, pushJobs, 1)
	assert.Equal(t, 2, pushJobs[0].Attempts)

	// the scan itself never burns retry budget
	repo.AssertNotCalled(t, "IncrementRetry", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
	queue.AssertExpectations(t)
}

func TestRetryOrchestrator_RetryFailed_EnqueueErrorSkipsRow(t *testing.T) {
	ctx := context.Background()
	repo := new(MockNotificationRepository)
	queue := new(MockQueue)

	broken := failedNotification(domain.ChannelEmail, 1)
	healthy := failedNotification(domain.ChannelPush, 1)

	repo.On("FindFailedForRetry", mock.Anything, 100, domain.MaxRetries).
		Return([]*domain.Notification{broken, healthy}, nil)
	repo.On("UpdateStatus", mock.Anything, mock.Anything, domain.StatusQueued, (*string)(nil)).Return(nil)
	queue.On("Enqueue", mock.Anything, domain.ChannelEmail, mock.AnythingOfType("*domain.Job")).
		Return(errors.New("queue unavailable"))
	queue.On("Enqueue", mock.Anything, domain.ChannelPush, mock.AnythingOfType("*domain.Job")).Return(nil)

	o := NewRetryOrchestrator(repo, queue, testLogger(), testRetryConfig())

	requeued, err := o.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, requeued)
}

func TestRetryOrchestrator_RetryFailed_StoreError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockNotificationRepository)
	queue := new(MockQueue)

	repo.On("FindFailedForRetry", mock.Anything, 100, domain.MaxRetries).
		Return(nil, errors.New("connection refused"))

	o := NewRetryOrchestrator(repo, queue, testLogger(), testRetryConfig())

	_, err := o.RetryFailed(ctx)
	require.Error(t, err)
	queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetryOrchestrator_RequeueStuck(t *testing.T) {
	ctx := context.Background()
	repo := new(MockNotificationRepository)
	queue := new(MockQueue)

	stuck := failedNotification(domain.ChannelSMS, 0)
	stuck.Status = domain.StatusQueued
	stuck.ErrorMessage = nil

	repo.On("FindStuckQueued", mock.Anything, 5*time.Minute, 100).
		Return([]*domain.Notification{stuck}, nil)
	repo.On("UpdateStatus", mock.Anything, stuck.ID, domain.StatusQueued, (*string)(nil)).Return(nil)
	queue.On("Enqueue", mock.Anything, domain.ChannelSMS, mock.AnythingOfType("*domain.Job")).Return(nil)

	o := NewRetryOrchestrator(repo, queue, testLogger(), testRetryConfig())

	requeued, err := o.RequeueStuck(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, requeued)

	jobs := queue.jobsFor(domain.ChannelSMS)
	require.Len(t, jobs, 1)
	assert.Equal(t, stuck.ID, jobs[0].NotificationID)
	assert.Equal(t, 0, jobs[0].Attempts)
	repo.AssertExpectations(t)
}

func TestRetryOrchestrator_RequeueHonoursSchedule(t *testing.T) {
	ctx := context.Background()
	repo := new(MockNotificationRepository)
	queue := new(MockQueue)

	scheduledAt := time.Now().UTC().Add(time.Hour)
	row := failedNotification(domain.ChannelEmail, 1)
	row.ScheduledAt = &scheduledAt

	repo.On("FindFailedForRetry", mock.Anything, 100, domain.MaxRetries).
		Return([]*domain.Notification{row}, nil)
	repo.On("UpdateStatus", mock.Anything, row.ID, domain.StatusQueued, (*string)(nil)).Return(nil)
	queue.On("Enqueue", mock.Anything, domain.ChannelEmail, mock.AnythingOfType("*domain.Job")).Return(nil)

	o := NewRetryOrchestrator(repo, queue, testLogger(), testRetryConfig())

	_, err := o.RetryFailed(ctx)
	require.NoError(t, err)

	jobs := queue.jobsFor(domain.ChannelEmail)
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].DelayUntil.Equal(scheduledAt))
}

func TestCleaner_Sweep(t *testing.T) {
	ctx := context.Background()
	repo := new(MockNotificationRepository)

	maxAge := 30 * 24 * time.Hour
	repo.On("DeleteOlderThan", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		want := time.Now().UTC().Add(-maxAge)
		return cutoff.Sub(want).Abs() < time.Second
	})).Return(int64(7), nil)

	c := NewCleaner(repo, testLogger(), config.CleanupConfig{Interval: time.Hour, MaxAge: maxAge})
	c.sweep(ctx)

	repo.AssertExpectations(t)
}
