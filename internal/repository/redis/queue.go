package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signalhouse/dispatch/internal/config"
	"github.com/signalhouse/dispatch/internal/domain"
)

const queueKeyPrefix = "notification:queue:"

// maxPriorityWeight caps the priority band of the waiting-set score.
const maxPriorityWeight = 100

// promoteBatch bounds how many delayed jobs one promotion pass moves.
const promoteBatch = 100

// Queue implements domain.Queue using Redis sorted sets. Each channel
// owns a waiting set ordered by priority then FIFO, a delayed set keyed
// by ready time, an active set keyed by reclaim deadline, a jobs hash
// holding payloads, and short completed/failed history lists.
type Queue struct {
	client *Client
	cfg    config.QueueConfig
}

// NewQueue creates a new Queue
func NewQueue(client *Client, cfg config.QueueConfig) *Queue {
	return &Queue{client: client, cfg: cfg}
}

func queueKey(channel domain.Channel, part string) string {
	return queueKeyPrefix + string(channel) + ":" + part
}

// waitingScore orders the waiting set: lower pops first, so the priority
// band is inverted and a per-channel sequence breaks ties FIFO. Both
// terms are integers, so the float64 score is exact.
func waitingScore(priority int, seq int64) float64 {
	if priority < 0 {
		priority = 0
	}
	if priority > maxPriorityWeight {
		priority = maxPriorityWeight
	}
	return float64(int64(maxPriorityWeight-priority)<<40 + seq)
}

// dequeueScript pops the best waiting job and marks it active with a
// reclaim deadline, atomically.
var dequeueScript = redis.NewScript(`
	local popped = redis.call("ZPOPMIN", KEYS[1])
	if #popped == 0 then
		return false
	end
	local id = popped[1]
	redis.call("ZADD", KEYS[2], ARGV[1], id)
	local payload = redis.call("HGET", KEYS[3], id)
	if not payload then
		redis.call("ZREM", KEYS[2], id)
		return {id, false}
	end
	return {id, payload}
`)

// Enqueue adds a job to the channel queue
func (q *Queue) Enqueue(ctx context.Context, channel domain.Channel, job *domain.Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	id := job.NotificationID.String()
	now := time.Now()

	if job.DelayUntil.After(now) {
		pipe := q.client.client.Pipeline()
		pipe.HSet(ctx, queueKey(channel, "jobs"), id, data)
		pipe.ZAdd(ctx, queueKey(channel, "delayed"), redis.Z{
			Score:  float64(job.DelayUntil.UnixMilli()),
			Member: id,
		})
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to enqueue delayed job: %w", err)
		}
		return nil
	}

	seq, err := q.client.client.Incr(ctx, queueKey(channel, "seq")).Result()
	if err != nil {
		return fmt.Errorf("failed to advance queue sequence: %w", err)
	}

	pipe := q.client.client.Pipeline()
	pipe.HSet(ctx, queueKey(channel, "jobs"), id, data)
	pipe.ZAdd(ctx, queueKey(channel, "waiting"), redis.Z{
		Score:  waitingScore(job.Priority, seq),
		Member: id,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	return nil
}

// Dequeue takes the highest-priority ready job and marks it active, or
// returns nil when the queue has nothing ready.
func (q *Queue) Dequeue(ctx context.Context, channel domain.Channel) (*domain.Job, error) {
	deadline := time.Now().Add(q.cfg.StalledInterval).UnixMilli()

	keys := []string{
		queueKey(channel, "waiting"),
		queueKey(channel, "active"),
		queueKey(channel, "jobs"),
	}
	res, err := dequeueScript.Run(ctx, q.client.client, keys, deadline).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // queue is empty
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	pair, ok := res.([]interface{})
	if !ok || len(pair) < 2 {
		return nil, nil
	}
	payload, ok := pair[1].(string)
	if !ok {
		// Orphaned member without a payload; already dropped by the script.
		return nil, nil
	}

	var job domain.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// Complete acknowledges a delivered job, drops its payload and records a
// completion entry, keeping only the most recent few.
func (q *Queue) Complete(ctx context.Context, channel domain.Channel, job *domain.Job) error {
	id := job.NotificationID.String()
	record, _ := json.Marshal(map[string]any{
		"notification_id": id,
		"user_id":         job.UserID,
		"attempts":        job.Attempts,
		"completed_at":    time.Now().UTC(),
	})

	pipe := q.client.client.Pipeline()
	pipe.ZRem(ctx, queueKey(channel, "active"), id)
	pipe.HDel(ctx, queueKey(channel, "jobs"), id)
	pipe.LPush(ctx, queueKey(channel, "completed"), record)
	pipe.LTrim(ctx, queueKey(channel, "completed"), 0, int64(q.cfg.CompletedKeep-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	return nil
}

// bury removes a job from every live set, drops its payload and records
// its failure, keeping only the most recent few records.
func (q *Queue) bury(ctx context.Context, channel domain.Channel, job *domain.Job, cause string) error {
	id := job.NotificationID.String()
	record, _ := json.Marshal(map[string]any{
		"notification_id": id,
		"user_id":         job.UserID,
		"attempts":        job.Attempts,
		"cause":           cause,
		"failed_at":       time.Now().UTC(),
	})

	pipe := q.client.client.Pipeline()
	pipe.ZRem(ctx, queueKey(channel, "active"), id)
	pipe.ZRem(ctx, queueKey(channel, "waiting"), id)
	pipe.ZRem(ctx, queueKey(channel, "delayed"), id)
	pipe.HDel(ctx, queueKey(channel, "jobs"), id)
	pipe.LPush(ctx, queueKey(channel, "failed"), record)
	pipe.LTrim(ctx, queueKey(channel, "failed"), 0, int64(q.cfg.FailedKeep-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to bury job: %w", err)
	}
	return nil
}

// Fail records a failed execution. While the attempt budget lasts the
// job is rescheduled with exponential backoff and true is returned;
// otherwise the job is dead and false is returned.
func (q *Queue) Fail(ctx context.Context, channel domain.Channel, job *domain.Job, cause string) (bool, error) {
	job.Attempts++
	id := job.NotificationID.String()

	if job.Attempts >= q.cfg.MaxAttempts {
		if err := q.bury(ctx, channel, job, cause); err != nil {
			return false, err
		}
		return false, nil
	}

	backoff := q.cfg.BackoffBase << (job.Attempts - 1)
	readyAt := time.Now().Add(backoff)

	data, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.client.Pipeline()
	pipe.ZRem(ctx, queueKey(channel, "active"), id)
	pipe.HSet(ctx, queueKey(channel, "jobs"), id, data)
	pipe.ZAdd(ctx, queueKey(channel, "delayed"), redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: id,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to reschedule job: %w", err)
	}

	return true, nil
}

// Kill buries a job without a backoff retry, for permanent rejections.
func (q *Queue) Kill(ctx context.Context, channel domain.Channel, job *domain.Job, cause string) error {
	job.Attempts++
	return q.bury(ctx, channel, job, cause)
}

// PromoteDelayed moves due delayed jobs into the waiting set
func (q *Queue) PromoteDelayed(ctx context.Context, channel domain.Channel) (int64, error) {
	nowMilli := strconv.FormatInt(time.Now().UnixMilli(), 10)

	ids, err := q.client.client.ZRangeByScore(ctx, queueKey(channel, "delayed"), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   nowMilli,
		Count: promoteBatch,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list due jobs: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	payloads, err := q.client.client.HMGet(ctx, queueKey(channel, "jobs"), ids...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to load due job payloads: %w", err)
	}

	// Reserve a contiguous sequence range so promotion keeps FIFO order.
	seqEnd, err := q.client.client.IncrBy(ctx, queueKey(channel, "seq"), int64(len(ids))).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to advance queue sequence: %w", err)
	}
	seq := seqEnd - int64(len(ids))

	var promoted int64
	pipe := q.client.client.Pipeline()
	for i, id := range ids {
		pipe.ZRem(ctx, queueKey(channel, "delayed"), id)

		payload, ok := payloads[i].(string)
		if !ok {
			continue // orphaned entry, drop it
		}
		var job domain.Job
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			continue
		}

		seq++
		pipe.ZAdd(ctx, queueKey(channel, "waiting"), redis.Z{
			Score:  waitingScore(job.Priority, seq),
			Member: id,
		})
		promoted++
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to promote delayed jobs: %w", err)
	}

	return promoted, nil
}

// ReclaimStalled requeues active jobs whose reclaim deadline passed.
// A job is reassigned at most cfg.MaxStalled times; beyond that it is
// buried and returned so the caller can finalise its notification.
func (q *Queue) ReclaimStalled(ctx context.Context, channel domain.Channel) (int64, []*domain.Job, error) {
	nowMilli := strconv.FormatInt(time.Now().UnixMilli(), 10)

	ids, err := q.client.client.ZRangeByScore(ctx, queueKey(channel, "active"), &redis.ZRangeBy{
		Min: "-inf",
		Max: nowMilli,
	}).Result()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to list stalled jobs: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil, nil
	}

	var requeued int64
	var dead []*domain.Job

	for _, id := range ids {
		payload, err := q.client.client.HGet(ctx, queueKey(channel, "jobs"), id).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				q.client.client.ZRem(ctx, queueKey(channel, "active"), id)
				continue
			}
			return requeued, dead, fmt.Errorf("failed to load stalled job: %w", err)
		}

		var job domain.Job
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			q.client.client.ZRem(ctx, queueKey(channel, "active"), id)
			q.client.client.HDel(ctx, queueKey(channel, "jobs"), id)
			continue
		}

		job.Stalls++
		if job.Stalls > q.cfg.MaxStalled {
			if err := q.bury(ctx, channel, &job, "job stalled"); err != nil {
				return requeued, dead, err
			}
			dead = append(dead, &job)
			continue
		}

		data, err := json.Marshal(&job)
		if err != nil {
			continue
		}
		seq, err := q.client.client.Incr(ctx, queueKey(channel, "seq")).Result()
		if err != nil {
			return requeued, dead, fmt.Errorf("failed to advance queue sequence: %w", err)
		}

		pipe := q.client.client.Pipeline()
		pipe.ZRem(ctx, queueKey(channel, "active"), id)
		pipe.HSet(ctx, queueKey(channel, "jobs"), id, data)
		pipe.ZAdd(ctx, queueKey(channel, "waiting"), redis.Z{
			Score:  waitingScore(job.Priority, seq),
			Member: id,
		})
		if _, err := pipe.Exec(ctx); err != nil {
			return requeued, dead, fmt.Errorf("failed to requeue stalled job: %w", err)
		}
		requeued++
	}

	return requeued, dead, nil
}

// Depth returns the queue sizes for one channel
func (q *Queue) Depth(ctx context.Context, channel domain.Channel) (domain.QueueDepth, error) {
	pipe := q.client.client.Pipeline()
	waiting := pipe.ZCard(ctx, queueKey(channel, "waiting"))
	delayed := pipe.ZCard(ctx, queueKey(channel, "delayed"))
	active := pipe.ZCard(ctx, queueKey(channel, "active"))
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.QueueDepth{}, fmt.Errorf("failed to get queue depth: %w", err)
	}

	return domain.QueueDepth{
		Waiting: waiting.Val(),
		Delayed: delayed.Val(),
		Active:  active.Val(),
	}, nil
}

// Depths returns queue sizes for all channels
func (q *Queue) Depths(ctx context.Context) (map[domain.Channel]domain.QueueDepth, error) {
	type cmds struct {
		waiting *redis.IntCmd
		delayed *redis.IntCmd
		active  *redis.IntCmd
	}

	pipe := q.client.client.Pipeline()
	perChannel := make(map[domain.Channel]cmds)
	for _, channel := range domain.AllChannels() {
		perChannel[channel] = cmds{
			waiting: pipe.ZCard(ctx, queueKey(channel, "waiting")),
			delayed: pipe.ZCard(ctx, queueKey(channel, "delayed")),
			active:  pipe.ZCard(ctx, queueKey(channel, "active")),
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get queue depths: %w", err)
	}

	depths := make(map[domain.Channel]domain.QueueDepth, len(perChannel))
	for channel, c := range perChannel {
		depths[channel] = domain.QueueDepth{
			Waiting: c.waiting.Val(),
			Delayed: c.delayed.Val(),
			Active:  c.active.Val(),
		}
	}

	return depths, nil
}
