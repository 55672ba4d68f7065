package notification

import "context"

// Channel is the delivery medium for a notification.
type Channel string

const (
	// ChannelInApp - dashboard notification row, read by administrators.
	ChannelInApp Channel = "in_app"

	// ChannelSMS - text message to a guardian phone number.
	ChannelSMS Channel = "sms"

	// ChannelEmail - email to a guardian or administrator address.
	ChannelEmail Channel = "email"
)

// IsValid checks that the channel is known.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelInApp, ChannelSMS, ChannelEmail:
		return true
	default:
		return false
	}
}

// Message is a channel-agnostic outbound payload.
type Message struct {
	// To is the channel-specific address: phone number for SMS, email
	// address for email. Unused for in-app.
	To string

	Subject string
	Body    string
}

// Sender delivers messages over one concrete channel. Implementations wrap
// the actual transports (SMS gateway HTTP client, SMTP relay).
type Sender interface {
	// Send delivers the message. Implementations must be safe for
	// concurrent use; guardian sends happen off the request path.
	Send(ctx context.Context, msg Message) error

	// Channel reports which channel this sender serves.
	Channel() Channel
}
