package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/signalhouse/dispatch/internal/domain"
)

// SendRequest is the one entry shape every ingress path funnels into.
type SendRequest struct {
	UserID      string           `json:"user_id" validate:"required"`
	Type        domain.Type      `json:"type" validate:"required"`
	Title       string           `json:"title" validate:"required,max=200"`
	Message     string           `json:"message" validate:"required"`
	Channel     *domain.Channel  `json:"channel,omitempty"`
	Priority    *domain.Priority `json:"priority,omitempty"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
	ScheduledAt *time.Time       `json:"scheduled_at,omitempty"`
}

// Validate checks the request constraints. Unrecognised types pass and
// fall through to the default channel mapping.
func (r SendRequest) Validate() error {
	if r.UserID == "" {
		return domain.NewValidationError("user_id", "user_id is required")
	}
	if r.Type == "" {
		return domain.NewValidationError("type", "type is required")
	}
	if r.Title == "" {
		return domain.NewValidationError("title", "title is required")
	}
	if len(r.Title) > domain.TitleMaxLength {
		return domain.NewValidationError("title",
			fmt.Sprintf("title exceeds maximum length of %d characters", domain.TitleMaxLength))
	}
	if r.Message == "" {
		return domain.NewValidationError("message", "message is required")
	}
	if r.Channel != nil && !r.Channel.IsValid() {
		return domain.NewValidationError("channel", "invalid channel")
	}
	if r.Priority != nil && !r.Priority.IsValid() {
		return domain.NewValidationError("priority", "invalid priority")
	}
	return nil
}

// Dispatcher translates send requests into a persisted notification
// plus one queued job per target channel.
type Dispatcher struct {
	store    domain.NotificationRepository
	queue    domain.Queue
	resolver domain.Resolver
	logger   *slog.Logger
}

// New creates a new Dispatcher
func New(store domain.NotificationRepository, queue domain.Queue, resolver domain.Resolver, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		queue:    queue,
		resolver: resolver,
		logger:   logger,
	}
}

// Dispatch validates and persists the request, resolves its target
// channels and enqueues one job per target. Enqueue failures after the
// create do not fail the call; the row stays QUEUED and the retry scan
// recovers it.
func (d *Dispatcher) Dispatch(ctx context.Context, req SendRequest) (*domain.Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	notification := domain.NewNotification(req.UserID, req.Type, req.Title, req.Message)
	notification.Metadata = req.Metadata
	if req.Channel != nil {
		notification.Channel = *req.Channel
	}
	if req.Priority != nil {
		notification.Priority = *req.Priority
	}
	if req.ScheduledAt != nil {
		scheduledAt := req.ScheduledAt.UTC()
		notification.ScheduledAt = &scheduledAt
	}

	if err := d.store.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	// Persisted now; caller cancellation no longer aborts the dispatch.
	ctx = context.WithoutCancel(ctx)

	targets := d.targetChannels(ctx, req)
	if len(targets) == 0 {
		d.logger.Info("no enabled channels for notification",
			"notification_id", notification.ID,
			"user_id", notification.UserID,
			"type", notification.Type,
		)
		return notification, nil
	}

	delayUntil := time.Now().UTC()
	if notification.ScheduledAt != nil && notification.ScheduledAt.After(delayUntil) {
		delayUntil = *notification.ScheduledAt
	}

	for _, channel := range targets {
		job := &domain.Job{
			NotificationID: notification.ID,
			UserID:         notification.UserID,
			Type:           notification.Type,
			Title:          notification.Title,
			Message:        notification.Message,
			Metadata:       notification.Metadata,
			Priority:       notification.Priority.Weight(),
			DelayUntil:     delayUntil,
		}
		if err := d.queue.Enqueue(ctx, channel, job); err != nil {
			d.logger.Error("failed to enqueue notification",
				"notification_id", notification.ID,
				"channel", channel,
				"error", err,
			)
			continue
		}
	}

	d.logger.Info("notification dispatched",
		"notification_id", notification.ID,
		"user_id", notification.UserID,
		"type", notification.Type,
		"channels", targets,
		"priority", notification.Priority,
	)

	return notification, nil
}

// targetChannels applies the routing policy: a pinned channel wins
// outright; otherwise the type's default channels are intersected with
// the user's enabled set, unless the user has no preference rows at all.
func (d *Dispatcher) targetChannels(ctx context.Context, req SendRequest) []domain.Channel {
	if req.Channel != nil {
		return []domain.Channel{*req.Channel}
	}

	defaults := req.Type.DefaultChannels()

	enabled := domain.EnabledChannels(d.resolver.Preferences(ctx, req.UserID))
	if enabled == nil {
		return defaults
	}

	targets := make([]domain.Channel, 0, len(defaults))
	for _, channel := range defaults {
		if enabled[channel] {
			targets = append(targets, channel)
		}
	}
	return targets
}
