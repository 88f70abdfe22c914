package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Kurubik/snake/internal/sim"
)

// Every wire message is a JSON envelope of the shape {type, data}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client message type identifiers.
const (
	TypeJoin       = "join"
	TypeCreateRoom = "createRoom"
	TypeReady      = "ready"
	TypeInput      = "input"
	TypeSpectate   = "spectate"
	TypePing       = "ping"
	TypeBoost      = "boost"
	TypeFire       = "fire"
)

// Server message type identifiers.
const (
	TypeRoomCreated = "roomCreated"
	TypeJoined      = "joined"
	TypeLobby       = "lobby"
	TypeStart       = "start"
	TypeState       = "state"
	TypeEnded       = "ended"
	TypeError       = "error"
	TypePong        = "pong"
)

// Protocol error codes. Taxonomy violations are recoverable: the server
// answers with an error envelope and keeps the connection open.
const (
	CodeInvalidMessage = "INVALID_MESSAGE"
	CodeUnknownMessage = "UNKNOWN_MESSAGE"
	CodeRoomNotFound   = "ROOM_NOT_FOUND"
	CodeRoomFull       = "ROOM_FULL"
)

var (
	// ErrMalformed marks an envelope that failed to parse.
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownType marks an envelope with an unrecognized type tag.
	ErrUnknownType = errors.New("unknown message type")
)

// ClientMessage is implemented by every decoded client payload, so handler
// code can switch exhaustively over the concrete types.
type ClientMessage interface {
	clientMessage()
}

// Join asks to enter a room, or the quick-play pool when RoomCode is empty.
type Join struct {
	Name     string `json:"name"`
	RoomCode string `json:"roomCode,omitempty"`
}

// CreateRoom opens a new room, optionally overriding default settings.
type CreateRoom struct {
	Settings *sim.Settings `json:"settings,omitempty"`
}

// Ready toggles the sender's lobby ready flag.
type Ready struct {
	Ready bool `json:"ready"`
}

// Input carries one direction change tagged with a client sequence number.
type Input struct {
	Seq       uint64 `json:"seq"`
	Direction string `json:"direction"`
	SentAt    int64  `json:"sentAt,omitempty"`
}

// Spectate marks the sender as a spectator.
type Spectate struct{}

// Ping is the liveness probe; the server echoes SentAt in the pong.
type Ping struct {
	SentAt int64 `json:"sentAt,omitempty"`
}

// Boost toggles double-speed movement while held (extended mode).
type Boost struct {
	Active bool `json:"active"`
}

// Fire requests a projectile shot (extended mode).
type Fire struct{}

func (Join) clientMessage()       {}
func (CreateRoom) clientMessage() {}
func (Ready) clientMessage()      {}
func (Input) clientMessage()      {}
func (Spectate) clientMessage()   {}
func (Ping) clientMessage()       {}
func (Boost) clientMessage()      {}
func (Fire) clientMessage()       {}

// DecodeClient parses a raw frame into its typed payload. Unparseable
// envelopes return ErrMalformed; unrecognized type tags return
// ErrUnknownType. Both leave the connection usable.
func DecodeClient(raw []byte) (ClientMessage, error) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	decode := func(into any) error {
		if len(envelope.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(envelope.Data, into); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return nil
	}

	switch envelope.Type {
	case TypeJoin:
		var msg Join
		if err := decode(&msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeCreateRoom:
		var msg CreateRoom
		if err := decode(&msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeReady:
		var msg Ready
		if err := decode(&msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeInput:
		var msg Input
		if err := decode(&msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeSpectate:
		return Spectate{}, nil
	case TypePing:
		var msg Ping
		if err := decode(&msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeBoost:
		var msg Boost
		if err := decode(&msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeFire:
		return Fire{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, envelope.Type)
	}
}

// Encode wraps a payload in its envelope and renders it.
func Encode(msgType string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return json.Marshal(Envelope{Type: msgType, Data: raw})
}

// RoomCreated answers a createRoom request.
type RoomCreated struct {
	RoomCode string `json:"roomCode"`
}

// Joined confirms entry to a room. Seed lets the client reconstruct server
// randomness for prediction.
type Joined struct {
	PlayerID string       `json:"playerId"`
	RoomCode string       `json:"roomCode"`
	Seed     int64        `json:"seed"`
	Settings sim.Settings `json:"settings"`
}

// LobbyPlayer is one row of the lobby roster.
type LobbyPlayer struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Ready      bool   `json:"ready"`
	Host       bool   `json:"host"`
	Spectating bool   `json:"spectating,omitempty"`
}

// Lobby broadcasts the roster and room status.
type Lobby struct {
	Players  []LobbyPlayer `json:"players"`
	Settings sim.Settings  `json:"settings"`
	Status   string        `json:"status"`
}

// Start announces the countdown result and when ticking begins.
type Start struct {
	StartAt  int64 `json:"startAt"`
	TickRate int   `json:"tickRate"`
}

// State is the per-tick authoritative broadcast. Ack echoes the highest
// input sequence the server has incorporated for this recipient.
type State struct {
	Tick        uint64           `json:"tick"`
	Ack         uint64           `json:"ack"`
	Self        *sim.Snake       `json:"self,omitempty"`
	Others      []sim.Snake      `json:"others"`
	Foods       []sim.Food       `json:"foods"`
	Projectiles []sim.Projectile `json:"projectiles,omitempty"`
	Events      []sim.Event      `json:"events,omitempty"`
	Resync      bool             `json:"resync,omitempty"`
	Hash        string           `json:"hash"`
}

// RankEntry is one leaderboard row, best rank first.
type RankEntry struct {
	PlayerID      string `json:"playerId"`
	Name          string `json:"name"`
	TicksSurvived uint64 `json:"ticksSurvived"`
	Score         int    `json:"score"`
}

// Ended reports the final ranking.
type Ended struct {
	Leaderboard []RankEntry `json:"leaderboard"`
	WinnerID    string      `json:"winnerId,omitempty"`
}

// Error reports a recoverable protocol violation.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Pong answers a ping.
type Pong struct {
	SentAt     int64 `json:"sentAt,omitempty"`
	ServerTime int64 `json:"serverTime"`
}
