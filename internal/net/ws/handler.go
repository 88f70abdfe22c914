package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Kurubik/snake/internal/net/proto"
	"github.com/Kurubik/snake/internal/room"
	"github.com/Kurubik/snake/logging"
	networklog "github.com/Kurubik/snake/logging/network"
)

// Handler upgrades websocket requests and routes decoded messages into
// the room layer. One goroutine per connection runs the read loop.
type Handler struct {
	sessions  *Sessions
	rooms     *room.Registry
	publisher logging.Publisher
	counters  *Counters

	upgrader websocket.Upgrader
}

// NewHandler wires the websocket entry point.
func NewHandler(sessions *Sessions, rooms *room.Registry, publisher logging.Publisher, counters *Counters) *Handler {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	if counters == nil {
		counters = NewCounters()
	}
	return &Handler{
		sessions:  sessions,
		rooms:     rooms,
		publisher: publisher,
		counters:  counters,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	session := newSession(uuid.NewString(), conn)
	h.sessions.add(session)
	go h.readLoop(session)
}

// readLoop is the only reader on the connection. It exits on any read
// error, including closes triggered by write failures or the idle sweep.
func (h *Handler) readLoop(session *Session) {
	// joined is the room this session belongs to, if any. Only the read
	// loop mutates it.
	var joined *room.Room

	defer func() {
		if h.sessions.remove(session.ID) {
			networklog.ConnectionDropped(context.Background(), h.publisher,
				logging.EntityRef{ID: session.ID, Kind: logging.EntityKindConnection},
				networklog.DropPayload{Reason: "read loop exit"})
		}
		if joined != nil {
			joined.Leave(session.ID, "disconnect")
		}
	}()

	for {
		_, payload, err := session.conn.ReadMessage()
		if err != nil {
			return
		}
		session.touch()
		h.counters.RecordReceive()

		msg, err := proto.DecodeClient(payload)
		if err != nil {
			h.rejectMessage(session, err)
			continue
		}

		switch m := msg.(type) {
		case proto.CreateRoom:
			created := h.rooms.Create(m.Settings)
			h.sessions.Send(session.ID, proto.TypeRoomCreated, proto.RoomCreated{RoomCode: created.Code()})

		case proto.Join:
			if joined != nil {
				joined.Leave(session.ID, "rejoined")
				joined = nil
			}
			target, err := h.resolveRoom(m.RoomCode)
			if err != nil {
				h.sendError(session, proto.CodeRoomNotFound, "room not found")
				continue
			}
			name := m.Name
			if name == "" {
				name = "snake-" + session.ID[:8]
			}
			if err := target.Join(session.ID, name); err != nil {
				h.sendError(session, proto.CodeRoomFull, err.Error())
				continue
			}
			joined = target
			h.sessions.Send(session.ID, proto.TypeJoined, proto.Joined{
				PlayerID: session.ID,
				RoomCode: target.Code(),
				Seed:     target.Seed(),
				Settings: target.Settings(),
			})

		case proto.Ready:
			if joined != nil {
				joined.SetReady(session.ID, m.Ready)
			}

		case proto.Input:
			if joined != nil {
				joined.HandleInput(session.ID, m.Seq, m.Direction)
			}

		case proto.Spectate:
			if joined != nil {
				joined.SetSpectating(session.ID)
			}

		case proto.Boost:
			if joined != nil {
				joined.HandleBoost(session.ID, m.Active)
			}

		case proto.Fire:
			if joined != nil {
				joined.HandleFire(session.ID)
			}

		case proto.Ping:
			h.sessions.Send(session.ID, proto.TypePong, proto.Pong{
				SentAt:     m.SentAt,
				ServerTime: time.Now().UnixMilli(),
			})
		}
	}
}

// resolveRoom maps a join request to a room. An empty code is quick play:
// any open room, or a fresh one.
func (h *Handler) resolveRoom(code string) (*room.Room, error) {
	if code == "" {
		if open := h.rooms.FindOpen(); open != nil {
			return open, nil
		}
		return h.rooms.Create(nil), nil
	}
	return h.rooms.Lookup(code)
}

// rejectMessage answers a taxonomy violation without dropping the
// connection.
func (h *Handler) rejectMessage(session *Session, err error) {
	h.counters.RecordInvalid()
	code := proto.CodeInvalidMessage
	if errors.Is(err, proto.ErrUnknownType) {
		code = proto.CodeUnknownMessage
	}
	networklog.InvalidMessage(context.Background(), h.publisher,
		logging.EntityRef{ID: session.ID, Kind: logging.EntityKindConnection},
		networklog.InvalidMessagePayload{Code: code})
	h.sendError(session, code, err.Error())
}

func (h *Handler) sendError(session *Session, code, message string) {
	h.sessions.Send(session.ID, proto.TypeError, proto.Error{Code: code, Message: message})
}
