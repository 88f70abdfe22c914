package network

import (
	"context"

	"github.com/Kurubik/snake/logging"
)

const (
	// EventConnectionDropped is emitted when a connection is forcibly closed.
	EventConnectionDropped logging.EventType = "network.connection_dropped"
	// EventInputRateLimited is emitted when a player's inputs exceed the cap.
	EventInputRateLimited logging.EventType = "network.input_rate_limited"
	// EventInvalidMessage is emitted for unparseable or unknown envelopes.
	EventInvalidMessage logging.EventType = "network.invalid_message"
)

// DropPayload captures why a connection was closed.
type DropPayload struct {
	Reason string `json:"reason"`
}

// RateLimitPayload captures rate-limit counters for one window.
type RateLimitPayload struct {
	Dropped int `json:"dropped"`
	Limit   int `json:"limit"`
}

// InvalidMessagePayload captures the rejected message type.
type InvalidMessagePayload struct {
	MessageType string `json:"messageType,omitempty"`
	Code        string `json:"code"`
}

// ConnectionDropped publishes a forced-close event.
func ConnectionDropped(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload DropPayload) {
	publish(ctx, pub, EventConnectionDropped, actor, logging.SeverityInfo, payload)
}

// InputRateLimited publishes a debug event when inputs are shed.
func InputRateLimited(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload RateLimitPayload) {
	publish(ctx, pub, EventInputRateLimited, actor, logging.SeverityDebug, payload)
}

// InvalidMessage publishes a debug event for protocol taxonomy violations.
func InvalidMessage(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload InvalidMessagePayload) {
	publish(ctx, pub, EventInvalidMessage, actor, logging.SeverityDebug, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, actor logging.EntityRef, severity logging.Severity, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
