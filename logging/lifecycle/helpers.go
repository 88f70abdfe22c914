package lifecycle

import (
	"context"

	"github.com/Kurubik/snake/logging"
)

const (
	// EventPlayerJoined is emitted when a player enters a room.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerLeft is emitted when a player leaves or is disconnected.
	EventPlayerLeft logging.EventType = "lifecycle.player_left"
	// EventRoomCreated is emitted when a host opens a new room.
	EventRoomCreated logging.EventType = "lifecycle.room_created"
	// EventRoomRemoved is emitted when an empty room is reaped.
	EventRoomRemoved logging.EventType = "lifecycle.room_removed"
	// EventHostTransferred is emitted when host duties move to another player.
	EventHostTransferred logging.EventType = "lifecycle.host_transferred"
)

// PlayerJoinedPayload captures join metadata.
type PlayerJoinedPayload struct {
	RoomCode string `json:"roomCode"`
	Name     string `json:"name"`
}

// PlayerLeftPayload captures the reason a player left.
type PlayerLeftPayload struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}

// RoomPayload captures room identity details.
type RoomPayload struct {
	RoomCode string `json:"roomCode"`
	Players  int    `json:"players,omitempty"`
}

// PlayerJoined publishes a player join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload) {
	publish(ctx, pub, EventPlayerJoined, tick, actor, logging.SeverityInfo, payload)
}

// PlayerLeft publishes a player departure event.
func PlayerLeft(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerLeftPayload) {
	publish(ctx, pub, EventPlayerLeft, tick, actor, logging.SeverityInfo, payload)
}

// RoomCreated publishes a room creation event.
func RoomCreated(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload RoomPayload) {
	publish(ctx, pub, EventRoomCreated, 0, actor, logging.SeverityInfo, payload)
}

// RoomRemoved publishes a room removal event.
func RoomRemoved(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload RoomPayload) {
	publish(ctx, pub, EventRoomRemoved, 0, actor, logging.SeverityInfo, payload)
}

// HostTransferred publishes a host handover event.
func HostTransferred(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RoomPayload) {
	publish(ctx, pub, EventHostTransferred, tick, actor, logging.SeverityInfo, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, tick uint64, actor logging.EntityRef, severity logging.Severity, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}
