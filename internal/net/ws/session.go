package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Kurubik/snake/internal/net/proto"
	"github.com/Kurubik/snake/logging"
	networklog "github.com/Kurubik/snake/logging/network"
)

const (
	// writeWait bounds how long one frame write may stall a connection.
	writeWait = 10 * time.Second
	// idleTimeout disconnects sessions with no traffic, pings included.
	idleTimeout = 30 * time.Second
)

// Session is one live websocket connection. Writes are serialized through
// the session mutex; the read loop is the only reader.
type Session struct {
	ID   string
	conn *websocket.Conn

	mu       sync.Mutex
	lastSeen time.Time
	closed   bool
}

func newSession(id string, conn *websocket.Conn) *Session {
	return &Session{ID: id, conn: conn, lastSeen: time.Now()}
}

// touch records inbound traffic for the liveness sweep.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// write sends one encoded frame under the write deadline.
func (s *Session) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return websocket.ErrCloseSent
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// close shuts the connection down once. The read loop unblocks with an
// error and runs its usual teardown.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.conn.Close()
}

// Sessions is the registry of live connections, keyed by player ID. It is
// the delivery side of room broadcasts.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session

	publisher logging.Publisher
	counters  *Counters
}

// NewSessions constructs an empty session registry.
func NewSessions(publisher logging.Publisher, counters *Counters) *Sessions {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	if counters == nil {
		counters = NewCounters()
	}
	return &Sessions{
		sessions:  make(map[string]*Session),
		publisher: publisher,
		counters:  counters,
	}
}

func (r *Sessions) add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	r.counters.RecordConnect()
}

// remove forgets a session. Reports whether it was still registered, so
// teardown runs exactly once per connection.
func (r *Sessions) remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.close()
	r.counters.RecordDisconnect()
	return true
}

func (r *Sessions) lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Count reports the number of live sessions.
func (r *Sessions) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Send encodes and delivers one message to one player. Delivery failures
// close the connection; the read loop handles the rest of the teardown.
func (r *Sessions) Send(playerID, msgType string, payload any) {
	s, ok := r.lookup(playerID)
	if !ok {
		return
	}
	data, err := proto.Encode(msgType, payload)
	if err != nil {
		return
	}
	if err := s.write(data); err != nil {
		s.close()
		return
	}
	r.counters.RecordSend(len(data))
}

// Run sweeps for idle sessions until the stop channel closes. Connections
// silent past the idle timeout are closed; their read loops then tear down
// room membership.
func (r *Sessions) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			r.sweep(now)
		}
	}
}

func (r *Sessions) sweep(now time.Time) {
	r.mu.Lock()
	stale := make([]*Session, 0)
	for _, s := range r.sessions {
		if now.Sub(s.idleSince()) >= idleTimeout {
			stale = append(stale, s)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		networklog.ConnectionDropped(context.Background(), r.publisher,
			logging.EntityRef{ID: s.ID, Kind: logging.EntityKindConnection},
			networklog.DropPayload{Reason: "idle timeout"})
		s.close()
	}
}
