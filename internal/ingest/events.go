package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/signalhouse/dispatch/internal/dispatcher"
	"github.com/signalhouse/dispatch/internal/domain"
	"github.com/signalhouse/dispatch/internal/metrics"
)

// Topics consumed from the upstream services. Bulk carries batched send
// requests produced by this service itself.
const (
	TopicUser    = "user.events"
	TopicAuth    = "auth.events"
	TopicOrder   = "order.events"
	TopicPayment = "payment.events"
	TopicBulk    = "notification.bulk"
)

// Event is the envelope shared by the upstream topics. Producers write
// camelCase JSON; only the fields relevant to the eventType are set.
type Event struct {
	EventType      string  `json:"eventType"`
	UserID         string  `json:"userId"`
	UserName       string  `json:"userName,omitempty"`
	Email          *string `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	OrderID        string  `json:"orderId,omitempty"`
	TrackingNumber string  `json:"trackingNumber,omitempty"`
}

// Ingestor translates upstream events into notification dispatches.
type Ingestor struct {
	dispatcher *dispatcher.Dispatcher
	resolver   domain.Resolver
	collector  *metrics.Collector
	logger     *slog.Logger
	subBatch   int
}

// NewIngestor creates a new Ingestor. subBatch bounds how many bulk
// items one goroutine dispatches sequentially.
func NewIngestor(d *dispatcher.Dispatcher, resolver domain.Resolver, collector *metrics.Collector, logger *slog.Logger, subBatch int) *Ingestor {
	return &Ingestor{
		dispatcher: d,
		resolver:   resolver,
		collector:  collector,
		logger:     logger,
		subBatch:   subBatch,
	}
}

// HandleUserEvent reacts to account lifecycle events. Registration
// refreshes the recipient projection and greets the user; profile
// updates only refresh the projection.
func (i *Ingestor) HandleUserEvent(ctx context.Context, value []byte) error {
	event, ok := i.decode(TopicUser, value)
	if !ok {
		return nil
	}

	switch event.EventType {
	case "USER_REGISTERED":
		i.syncUser(ctx, event)
		return i.send(ctx, TopicUser, dispatcher.SendRequest{
			UserID:  event.UserID,
			Type:    domain.TypeWelcome,
			Title:   "Welcome!",
			Message: fmt.Sprintf("Welcome to our platform, %s!", event.UserName),
			Channel: channelPtr(domain.ChannelEmail),
		})
	case "USER_UPDATED":
		i.syncUser(ctx, event)
		return nil
	default:
		i.skipUnknown(TopicUser, event.EventType)
		return nil
	}
}

// HandleAuthEvent reacts to authentication flows.
func (i *Ingestor) HandleAuthEvent(ctx context.Context, value []byte) error {
	event, ok := i.decode(TopicAuth, value)
	if !ok {
		return nil
	}

	switch event.EventType {
	case "PASSWORD_RESET_REQUESTED":
		return i.send(ctx, TopicAuth, dispatcher.SendRequest{
			UserID:   event.UserID,
			Type:     domain.TypePasswordReset,
			Title:    "Password Reset",
			Message:  "We received a request to reset your password.",
			Channel:  channelPtr(domain.ChannelEmail),
			Priority: priorityPtr(domain.PriorityHigh),
		})
	case "EMAIL_VERIFICATION_REQUESTED":
		return i.send(ctx, TopicAuth, dispatcher.SendRequest{
			UserID:  event.UserID,
			Type:    domain.TypeEmailVerification,
			Title:   "Verify Your Email",
			Message: "Please confirm your email address to activate your account.",
			Channel: channelPtr(domain.ChannelEmail),
		})
	default:
		i.skipUnknown(TopicAuth, event.EventType)
		return nil
	}
}

// HandleOrderEvent reacts to order lifecycle events.
func (i *Ingestor) HandleOrderEvent(ctx context.Context, value []byte) error {
	event, ok := i.decode(TopicOrder, value)
	if !ok {
		return nil
	}

	switch event.EventType {
	case "ORDER_CREATED":
		return i.send(ctx, TopicOrder, dispatcher.SendRequest{
			UserID:   event.UserID,
			Type:     domain.TypeOrderConfirmation,
			Title:    "Order Confirmed",
			Message:  fmt.Sprintf("Your order %s has been received.", event.OrderID),
			Channel:  channelPtr(domain.ChannelEmail),
			Metadata: map[string]any{"orderId": event.OrderID},
		})
	case "ORDER_SHIPPED":
		return i.send(ctx, TopicOrder, dispatcher.SendRequest{
			UserID:  event.UserID,
			Type:    domain.TypeOrderShipped,
			Title:   "Order Shipped",
			Message: fmt.Sprintf("Your order %s is on its way.", event.OrderID),
			Channel: channelPtr(domain.ChannelPush),
			Metadata: map[string]any{
				"orderId":        event.OrderID,
				"trackingNumber": event.TrackingNumber,
			},
		})
	case "ORDER_DELIVERED":
		return i.send(ctx, TopicOrder, dispatcher.SendRequest{
			UserID:  event.UserID,
			Type:    domain.TypeOrderDelivered,
			Title:   "Order Delivered",
			Message: "Your order has been delivered. Enjoy!",
			Channel: channelPtr(domain.ChannelPush),
		})
	default:
		i.skipUnknown(TopicOrder, event.EventType)
		return nil
	}
}

// HandlePaymentEvent reacts to payment outcomes.
func (i *Ingestor) HandlePaymentEvent(ctx context.Context, value []byte) error {
	event, ok := i.decode(TopicPayment, value)
	if !ok {
		return nil
	}

	switch event.EventType {
	case "PAYMENT_SUCCESS":
		return i.send(ctx, TopicPayment, dispatcher.SendRequest{
			UserID:  event.UserID,
			Type:    domain.TypePaymentSuccess,
			Title:   "Payment Successful",
			Message: "Your payment was processed successfully.",
			Channel: channelPtr(domain.ChannelEmail),
		})
	case "PAYMENT_FAILED":
		return i.send(ctx, TopicPayment, dispatcher.SendRequest{
			UserID:   event.UserID,
			Type:     domain.TypePaymentFailed,
			Title:    "Payment Failed",
			Message:  "Your payment could not be processed. Please update your payment method.",
			Channel:  channelPtr(domain.ChannelEmail),
			Priority: priorityPtr(domain.PriorityHigh),
		})
	default:
		i.skipUnknown(TopicPayment, event.EventType)
		return nil
	}
}

// decode unmarshals the event envelope. Malformed payloads and payloads
// without a userId are counted, logged and skipped.
func (i *Ingestor) decode(topic string, value []byte) (Event, bool) {
	var event Event
	if err := json.Unmarshal(value, &event); err != nil {
		i.dropMalformed(topic, err)
		return Event{}, false
	}
	if event.EventType == "" || event.UserID == "" {
		i.dropMalformed(topic, domain.ErrEventMalformed)
		return Event{}, false
	}
	return event, true
}

func (i *Ingestor) dropMalformed(topic string, err error) {
	i.collector.RecordEventDropped(topic, domain.CodeEventMalformed)
	i.logger.Warn("malformed event skipped", "topic", topic, "error", err)
}

func (i *Ingestor) skipUnknown(topic, eventType string) {
	i.logger.Debug("ignoring event type", "topic", topic, "event_type", eventType)
}

// send dispatches one request. Failures are logged and counted, never
// returned, so a bad message cannot wedge its partition.
func (i *Ingestor) send(ctx context.Context, topic string, req dispatcher.SendRequest) error {
	if _, err := i.dispatcher.Dispatch(ctx, req); err != nil {
		i.collector.RecordEventDropped(topic, domain.CodeOf(err))
		i.logger.Error("failed to dispatch event notification",
			"topic", topic,
			"user_id", req.UserID,
			"type", req.Type,
			"error", err,
		)
	}
	return nil
}

// syncUser refreshes the recipient projection from the event payload.
func (i *Ingestor) syncUser(ctx context.Context, event Event) {
	user := &domain.User{
		ID:    event.UserID,
		Name:  event.UserName,
		Email: event.Email,
		Phone: event.Phone,
	}
	if err := i.resolver.SyncUser(ctx, user); err != nil {
		i.logger.Error("failed to sync user projection", "user_id", event.UserID, "error", err)
	}
}

func channelPtr(c domain.Channel) *domain.Channel    { return &c }
func priorityPtr(p domain.Priority) *domain.Priority { return &p }
