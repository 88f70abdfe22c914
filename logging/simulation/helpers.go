package simulation

import (
	"context"

	"github.com/Kurubik/snake/logging"
)

const (
	// EventMatchStarted is emitted when a room enters the playing state.
	EventMatchStarted logging.EventType = "simulation.match_started"
	// EventMatchEnded is emitted when a match resolves.
	EventMatchEnded logging.EventType = "simulation.match_ended"
	// EventStateDivergence is emitted when a client reports a hash mismatch.
	EventStateDivergence logging.EventType = "simulation.state_divergence"
	// EventTickOverrun is emitted when a step exceeds its tick budget.
	EventTickOverrun logging.EventType = "simulation.tick_overrun"
)

// MatchStartedPayload captures the parameters a match began with.
type MatchStartedPayload struct {
	RoomCode string `json:"roomCode"`
	Players  int    `json:"players"`
	Seed     int64  `json:"seed"`
	TickRate int    `json:"tickRate"`
}

// MatchEndedPayload captures the outcome of a match.
type MatchEndedPayload struct {
	RoomCode string `json:"roomCode"`
	WinnerID string `json:"winnerId,omitempty"`
	Ticks    uint64 `json:"ticks"`
}

// DivergencePayload captures the two hashes that disagreed.
type DivergencePayload struct {
	LocalHash  string `json:"localHash"`
	RemoteHash string `json:"remoteHash"`
}

// TickOverrunPayload captures tick timing in milliseconds.
type TickOverrunPayload struct {
	DurationMillis int64 `json:"durationMillis"`
	BudgetMillis   int64 `json:"budgetMillis"`
}

// MatchStarted publishes a match start event.
func MatchStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MatchStartedPayload) {
	publish(ctx, pub, EventMatchStarted, tick, actor, logging.SeverityInfo, payload)
}

// MatchEnded publishes a match resolution event.
func MatchEnded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MatchEndedPayload) {
	publish(ctx, pub, EventMatchEnded, tick, actor, logging.SeverityInfo, payload)
}

// StateDivergence publishes a warning when prediction and authority disagree.
func StateDivergence(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DivergencePayload) {
	publish(ctx, pub, EventStateDivergence, tick, actor, logging.SeverityWarn, payload)
}

// TickOverrun publishes a warning when the simulation misses its budget.
func TickOverrun(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload TickOverrunPayload) {
	publish(ctx, pub, EventTickOverrun, tick, actor, logging.SeverityWarn, payload)
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
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}
