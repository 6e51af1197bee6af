package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is the unit enqueued per (notification, target channel). It carries
// enough data to deliver without another store read for content.
type Job struct {
	NotificationID uuid.UUID      `json:"notification_id"`
	UserID         string         `json:"user_id"`
	Type           Type           `json:"type"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Metadata       map[string]any `json:"metadata,omitempty"`

	// Priority is the mapped integer weight (higher wins).
	Priority int `json:"priority"`

	// DelayUntil defers dequeue; the zero value means immediately ready.
	DelayUntil time.Time `json:"delay_until,omitempty"`

	// Attempts counts failed executions, bounded by MaxRetries.
	Attempts int `json:"attempts"`

	// Stalls counts reclaim passes for this job.
	Stalls int `json:"stalls"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// QueueDepth is a point-in-time size reading of one channel queue.
type QueueDepth struct {
	Waiting int64 `json:"waiting"`
	Delayed int64 `json:"delayed"`
	Active  int64 `json:"active"`
}

func (d QueueDepth) Total() int64 {
	return d.Waiting + d.Delayed + d.Active
}

// Queue is a per-channel priority queue with delayed delivery and
// stalled-job recovery.
type Queue interface {
	// Enqueue adds a job to the channel queue. Jobs with DelayUntil in
	// the future park in the delayed set until promoted.
	Enqueue(ctx context.Context, channel Channel, job *Job) error

	// Dequeue takes the highest-priority ready job and marks it active,
	// or returns nil when nothing is ready.
	Dequeue(ctx context.Context, channel Channel) (*Job, error)

	// Complete acknowledges a delivered job and drops its payload,
	// keeping a short completion history.
	Complete(ctx context.Context, channel Channel, job *Job) error

	// Fail records a failed execution. It reschedules the job with
	// exponential backoff and reports true, or declares it dead once the
	// attempt budget is spent and reports false.
	Fail(ctx context.Context, channel Channel, job *Job, cause string) (bool, error)

	// Kill buries a job immediately, skipping the backoff retry. Used for
	// permanent delivery rejections.
	Kill(ctx context.Context, channel Channel, job *Job, cause string) error

	// PromoteDelayed moves due delayed jobs into the waiting set.
	PromoteDelayed(ctx context.Context, channel Channel) (int64, error)

	// ReclaimStalled requeues active jobs whose consumer went quiet.
	// Jobs past the stall budget are returned dead instead of requeued.
	ReclaimStalled(ctx context.Context, channel Channel) (int64, []*Job, error)

	Depth(ctx context.Context, channel Channel) (QueueDepth, error)
	Depths(ctx context.Context) (map[Channel]QueueDepth, error)
}

// RateLimiter throttles outbound deliveries per channel.
type RateLimiter interface {
	// Allow reports whether one more send fits inside the channel's
	// per-second budget, consuming a slot when it does.
	Allow(ctx context.Context, channel Channel) (bool, error)

	// Wait blocks until a send slot frees up or the context ends.
	Wait(ctx context.Context, channel Channel) error
}
