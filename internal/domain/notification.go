package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Channel represents the notification delivery channel
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelPush  Channel = "PUSH"
	ChannelSMS   Channel = "SMS"
)

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelPush, ChannelSMS:
		return true
	}
	return false
}

// AllChannels returns every delivery channel in stable order.
func AllChannels() []Channel {
	return []Channel{ChannelEmail, ChannelPush, ChannelSMS}
}

// Type is the semantic notification type
type Type string

const (
	TypeWelcome           Type = "WELCOME"
	TypePasswordReset     Type = "PASSWORD_RESET"
	TypeEmailVerification Type = "EMAIL_VERIFICATION"
	TypeOrderConfirmation Type = "ORDER_CONFIRMATION"
	TypeOrderShipped      Type = "ORDER_SHIPPED"
	TypeOrderDelivered    Type = "ORDER_DELIVERED"
	TypePaymentSuccess    Type = "PAYMENT_SUCCESS"
	TypePaymentFailed     Type = "PAYMENT_FAILED"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeWelcome, TypePasswordReset, TypeEmailVerification,
		TypeOrderConfirmation, TypeOrderShipped, TypeOrderDelivered,
		TypePaymentSuccess, TypePaymentFailed:
		return true
	}
	return false
}

var defaultChannels = map[Type][]Channel{
	TypeWelcome:           {ChannelEmail},
	TypeOrderConfirmation: {ChannelEmail, ChannelPush},
	TypeOrderShipped:      {ChannelPush, ChannelSMS},
	TypeOrderDelivered:    {ChannelPush},
	TypePaymentSuccess:    {ChannelEmail},
	TypePaymentFailed:     {ChannelEmail, ChannelPush},
	TypePasswordReset:     {ChannelEmail},
	TypeEmailVerification: {ChannelEmail},
}

// DefaultChannels returns the channels a type is routed to when the
// request does not pin one. Unrecognised types fall back to EMAIL.
func (t Type) DefaultChannels() []Channel {
	if chs, ok := defaultChannels[t]; ok {
		out := make([]Channel, len(chs))
		copy(out, chs)
		return out
	}
	return []Channel{ChannelEmail}
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Weight returns the priority weight for queue ordering (higher wins)
func (p Priority) Weight() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityNormal:
		return 5
	case PriorityHigh:
		return 10
	case PriorityUrgent:
		return 20
	}
	return 5 // default to normal
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusSent       Status = "SENT"
	StatusFailed     Status = "FAILED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusSent, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no worker will touch the notification again.
// FAILED is terminal only once the retry budget is spent.
func (s Status) IsTerminal(retryCount int) bool {
	return s == StatusSent || (s == StatusFailed && retryCount >= MaxRetries)
}

const (
	// MaxRetries bounds failed delivery attempts per notification.
	MaxRetries = 3

	// TitleMaxLength bounds the notification title on every ingress path.
	TitleMaxLength = 200

	// BulkMaxSize bounds the number of items in a single bulk request.
	BulkMaxSize = 10000
)

// Notification is the unit of work moving through the pipeline
type Notification struct {
	ID           uuid.UUID      `json:"id"`
	UserID       string         `json:"user_id"`
	Type         Type           `json:"type"`
	Channel      Channel        `json:"channel"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Priority     Priority       `json:"priority"`
	Status       Status         `json:"status"`
	ScheduledAt  *time.Time     `json:"scheduled_at,omitempty"`
	RetryCount   int            `json:"retry_count"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	FailedAt     *time.Time     `json:"failed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func NewNotification(userID string, typ Type, title, message string) *Notification {
	now := time.Now().UTC()
	return &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      typ,
		Channel:   ChannelEmail,
		Title:     title,
		Message:   message,
		Priority:  PriorityNormal,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkAsProcessing updates the notification status to processing
func (n *Notification) MarkAsProcessing() {
	n.Status = StatusProcessing
	n.UpdatedAt = time.Now().UTC()
}

// MarkAsSent updates the notification status to sent
func (n *Notification) MarkAsSent() {
	now := time.Now().UTC()
	n.Status = StatusSent
	n.SentAt = &now
	n.UpdatedAt = now
}

// MarkAsFailed updates the notification status to failed
func (n *Notification) MarkAsFailed(errorMsg string) {
	now := time.Now().UTC()
	n.Status = StatusFailed
	n.ErrorMessage = &errorMsg
	n.FailedAt = &now
	n.UpdatedAt = now
}

func (n *Notification) IncrementRetry() {
	n.RetryCount++
	n.UpdatedAt = time.Now().UTC()
}

// NotificationRepository defines the persistence contract for notifications
type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)

	// MarkProcessing claims the notification for a worker. It returns the
	// claimed row, or ErrAlreadyDelivered when the row is already SENT so
	// a redelivered job can be completed without a second send.
	MarkProcessing(ctx context.Context, id uuid.UUID) (*Notification, error)

	// UpdateStatus updates status atomically. It sets sentAt when status
	// is SENT, failedAt and errorMessage when status is FAILED, and always
	// touches updatedAt.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, errorMsg *string) error

	IncrementRetry(ctx context.Context, id uuid.UUID) error

	// FindFailedForRetry returns up to limit FAILED notifications with
	// retryCount < maxRetries, oldest failedAt first.
	FindFailedForRetry(ctx context.Context, limit, maxRetries int) ([]*Notification, error)

	// FindStuckQueued returns QUEUED notifications untouched for longer
	// than olderThan. Covers rows whose enqueue failed after create.
	FindStuckQueued(ctx context.Context, olderThan time.Duration, limit int) ([]*Notification, error)

	// DeleteOlderThan removes terminal notifications created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
