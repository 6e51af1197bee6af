package domain

import (
	"context"
)

// Recipient is the resolved delivery target for one channel. Exactly the
// fields relevant to the channel are populated.
type Recipient struct {
	UserID string        `json:"user_id"`
	Email  string        `json:"email,omitempty"`
	Phone  string        `json:"phone,omitempty"`
	Tokens []DeviceToken `json:"tokens,omitempty"`
}

// Empty reports whether the recipient has nothing to deliver to on the
// given channel.
func (r Recipient) Empty(channel Channel) bool {
	switch channel {
	case ChannelEmail:
		return r.Email == ""
	case ChannelSMS:
		return r.Phone == ""
	case ChannelPush:
		return len(r.Tokens) == 0
	}
	return true
}

// Message is the rendered content handed to a channel adapter.
type Message struct {
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	HTMLBody string         `json:"html_body,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ChannelAdapter is the external integration that actually delivers a
// message: an SMTP server, a push gateway, an SMS broker.
type ChannelAdapter interface {
	Channel() Channel

	// Send delivers the message. Failures should be reported as
	// *AdapterError so the worker can distinguish transient from
	// permanent causes.
	Send(ctx context.Context, recipient Recipient, msg Message) error
}
