package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Kurubik/snake/internal/net/proto"
	"github.com/Kurubik/snake/internal/sim"
	"github.com/Kurubik/snake/logging"
	lifecyclelog "github.com/Kurubik/snake/logging/lifecycle"
	networklog "github.com/Kurubik/snake/logging/network"
	"github.com/Kurubik/snake/logging/sinks"
)

type recordedMessage struct {
	playerID string
	msgType  string
	payload  any
}

type fakeSender struct {
	mu       sync.Mutex
	messages []recordedMessage
}

func (s *fakeSender) Send(playerID, msgType string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, recordedMessage{playerID: playerID, msgType: msgType, payload: payload})
}

func (s *fakeSender) byType(msgType string) []recordedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []recordedMessage
	for _, msg := range s.messages {
		if msg.msgType == msgType {
			out = append(out, msg)
		}
	}
	return out
}

func (s *fakeSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

func newTestRoom(t *testing.T, maxPlayers int) (*Room, *fakeSender) {
	t.Helper()
	settings := sim.DefaultSettings()
	settings.MaxPlayers = maxPlayers

	cfg := DefaultConfig()
	// Timers are driven by hand in tests.
	cfg.CountdownDelay = time.Hour
	cfg.RestartDelay = time.Hour

	sender := &fakeSender{}
	rm := New("TEST42", 7, settings, cfg, sender)
	t.Cleanup(rm.Shutdown)
	return rm, sender
}

// startMatch gets a two-player room into the playing state with the tick
// loop detached, so tests can step it deterministically.
func startMatch(t *testing.T, rm *Room) {
	t.Helper()
	if err := rm.Join("a", "alice"); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if err := rm.Join("b", "bob"); err != nil {
		t.Fatalf("join b: %v", err)
	}
	if err := rm.SetReady("a", true); err != nil {
		t.Fatalf("ready a: %v", err)
	}
	if err := rm.SetReady("b", true); err != nil {
		t.Fatalf("ready b: %v", err)
	}
	if got := rm.Status(); got != StatusStarting {
		t.Fatalf("status after all ready = %q, want %q", got, StatusStarting)
	}

	rm.mu.Lock()
	if rm.startTimer != nil {
		rm.startTimer.Stop()
	}
	rm.mu.Unlock()

	rm.beginPlaying()

	rm.mu.Lock()
	task := rm.task
	rm.task = nil
	rm.mu.Unlock()
	task.Stop()

	if got := rm.Status(); got != StatusPlaying {
		t.Fatalf("status after countdown = %q, want %q", got, StatusPlaying)
	}
}

func TestJoinAssignsHost(t *testing.T) {
	rm, sender := newTestRoom(t, 4)
	if err := rm.Join("a", "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := rm.Join("b", "bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if got := rm.HostID(); got != "a" {
		t.Fatalf("host = %q, want first joiner", got)
	}

	lobbies := sender.byType(proto.TypeLobby)
	if len(lobbies) == 0 {
		t.Fatal("no lobby broadcast after join")
	}
	lobby := lobbies[len(lobbies)-1].payload.(proto.Lobby)
	for _, player := range lobby.Players {
		if player.ID == "a" && !player.Host {
			t.Fatal("first joiner not flagged as host in lobby")
		}
		if player.ID == "b" && player.Host {
			t.Fatal("second joiner flagged as host")
		}
	}
}

func TestJoinRejectsWhenFull(t *testing.T) {
	rm, _ := newTestRoom(t, 2)
	if err := rm.Join("a", "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := rm.Join("b", "bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := rm.Join("c", "carol"); err != ErrRoomFull {
		t.Fatalf("join over capacity = %v, want ErrRoomFull", err)
	}
}

func TestJoinRejectsMidGame(t *testing.T) {
	rm, _ := newTestRoom(t, 4)
	startMatch(t, rm)
	if err := rm.Join("c", "carol"); err != ErrInProgress {
		t.Fatalf("join mid-game = %v, want ErrInProgress", err)
	}
}

func TestReadyRequiresTwoPlayers(t *testing.T) {
	rm, _ := newTestRoom(t, 4)
	if err := rm.Join("a", "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := rm.SetReady("a", true); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if got := rm.Status(); got != StatusWaiting {
		t.Fatalf("status with single ready player = %q, want %q", got, StatusWaiting)
	}
}

func TestAllReadyStartsCountdownAndSpawns(t *testing.T) {
	rm, _ := newTestRoom(t, 4)
	if err := rm.Join("a", "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := rm.Join("b", "bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	rm.SetReady("a", true)
	if got := rm.Status(); got != StatusWaiting {
		t.Fatalf("status with one of two ready = %q, want %q", got, StatusWaiting)
	}
	rm.SetReady("b", true)
	if got := rm.Status(); got != StatusStarting {
		t.Fatalf("status with all ready = %q, want %q", got, StatusStarting)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if len(rm.state.Snakes) != 2 {
		t.Fatalf("spawned %d snakes, want 2", len(rm.state.Snakes))
	}
	if len(rm.state.Foods) != rm.settings.FoodCount {
		t.Fatalf("spawned %d foods, want %d", len(rm.state.Foods), rm.settings.FoodCount)
	}
}

func TestSpectatorExcludedFromReadiness(t *testing.T) {
	rm, _ := newTestRoom(t, 4)
	for _, id := range []string{"a", "b", "c"} {
		if err := rm.Join(id, id); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	if err := rm.SetSpectating("c"); err != nil {
		t.Fatalf("spectate: %v", err)
	}
	rm.SetReady("a", true)
	rm.SetReady("b", true)

	if got := rm.Status(); got != StatusStarting {
		t.Fatalf("status = %q, want %q with spectators excluded", got, StatusStarting)
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if _, ok := rm.state.Snakes["c"]; ok {
		t.Fatal("spectator was given a snake")
	}
}

func TestStateBroadcastPerRecipient(t *testing.T) {
	rm, sender := newTestRoom(t, 4)
	startMatch(t, rm)
	sender.reset()

	rm.HandleInput("a", 3, string(sim.DirectionUp))
	rm.tickOnce(time.Now())

	states := sender.byType(proto.TypeState)
	if len(states) != 2 {
		t.Fatalf("got %d state messages, want one per player", len(states))
	}
	for _, msg := range states {
		state := msg.payload.(proto.State)
		if state.Tick != 1 {
			t.Fatalf("tick = %d, want 1", state.Tick)
		}
		if state.Hash == "" {
			t.Fatal("state broadcast missing hash")
		}
		if state.Self == nil || state.Self.PlayerID != msg.playerID {
			t.Fatalf("recipient %s got wrong self snake", msg.playerID)
		}
		if len(state.Others) != 1 {
			t.Fatalf("recipient %s got %d others, want 1", msg.playerID, len(state.Others))
		}
		switch msg.playerID {
		case "a":
			if state.Ack != 3 {
				t.Fatalf("ack for a = %d, want 3", state.Ack)
			}
		case "b":
			if state.Ack != 0 {
				t.Fatalf("ack for b = %d, want 0", state.Ack)
			}
		}
	}
}

func TestAckWaitsForTick(t *testing.T) {
	rm, _ := newTestRoom(t, 4)
	startMatch(t, rm)

	rm.HandleInput("a", 5, string(sim.DirectionUp))

	rm.mu.Lock()
	ack := rm.players["a"].snapshotAck()
	rm.mu.Unlock()
	if ack != 0 {
		t.Fatalf("ack before tick = %d, want 0", ack)
	}

	rm.tickOnce(time.Now())

	rm.mu.Lock()
	ack = rm.players["a"].snapshotAck()
	rm.mu.Unlock()
	if ack != 5 {
		t.Fatalf("ack after tick = %d, want 5", ack)
	}
}

func TestInputRateLimitShedsSilently(t *testing.T) {
	settings := sim.DefaultSettings()
	cfg := DefaultConfig()
	cfg.CountdownDelay = time.Hour
	cfg.RestartDelay = time.Hour
	cfg.InputRateLimit = 2
	sender := &fakeSender{}
	rm := New("TEST42", 7, settings, cfg, sender)
	t.Cleanup(rm.Shutdown)
	startMatch(t, rm)

	rm.HandleInput("a", 1, string(sim.DirectionUp))
	rm.HandleInput("a", 2, string(sim.DirectionDown))
	rm.HandleInput("a", 3, string(sim.DirectionUp))
	rm.tickOnce(time.Now())

	rm.mu.Lock()
	ack := rm.players["a"].snapshotAck()
	rm.mu.Unlock()
	if ack != 2 {
		t.Fatalf("ack = %d, want 2: over-limit input must be shed", ack)
	}
}

func TestInputRateLimitPublishesDropEvent(t *testing.T) {
	memory := sinks.NewMemorySink()
	router, err := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{{Name: "memory", Sink: memory}})
	if err != nil {
		t.Fatalf("construct router: %v", err)
	}

	settings := sim.DefaultSettings()
	cfg := DefaultConfig()
	cfg.CountdownDelay = time.Hour
	cfg.RestartDelay = time.Hour
	cfg.InputRateLimit = 2
	cfg.Publisher = router
	sender := &fakeSender{}
	rm := New("TEST42", 7, settings, cfg, sender)
	t.Cleanup(rm.Shutdown)
	startMatch(t, rm)

	rm.HandleInput("a", 1, string(sim.DirectionUp))
	rm.HandleInput("a", 2, string(sim.DirectionDown))
	rm.HandleInput("a", 3, string(sim.DirectionUp))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close router: %v", err)
	}

	event, ok := memory.LastOfType(networklog.EventInputRateLimited)
	if !ok {
		t.Fatal("shed input produced no rate-limit event")
	}
	if event.Actor.ID != "a" {
		t.Fatalf("rate-limit event actor = %q, want %q", event.Actor.ID, "a")
	}
	payload, ok := event.Payload.(networklog.RateLimitPayload)
	if !ok {
		t.Fatalf("unexpected rate-limit payload type %T", event.Payload)
	}
	if payload.Dropped != 1 || payload.Limit != 2 {
		t.Fatalf("rate-limit payload = %+v, want 1 dropped at limit 2", payload)
	}
	if joins := memory.OfType(lifecyclelog.EventPlayerJoined); len(joins) != 2 {
		t.Fatalf("expected 2 join events, got %d", len(joins))
	}
}

func TestMatchEndsWithRanking(t *testing.T) {
	rm, sender := newTestRoom(t, 4)
	startMatch(t, rm)
	sender.reset()

	rm.mu.Lock()
	rm.state.Snakes["b"].Alive = false
	rm.state.Snakes["b"].Score = 10
	rm.state.Snakes["a"].Score = 4
	rm.deathTicks["b"] = 0
	rm.mu.Unlock()

	rm.tickOnce(time.Now())

	if got := rm.Status(); got != StatusEnded {
		t.Fatalf("status = %q, want %q", got, StatusEnded)
	}
	endeds := sender.byType(proto.TypeEnded)
	if len(endeds) != 2 {
		t.Fatalf("got %d ended messages, want one per player", len(endeds))
	}
	ended := endeds[0].payload.(proto.Ended)
	if ended.WinnerID != "a" {
		t.Fatalf("winner = %q, want sole survivor a", ended.WinnerID)
	}
	if len(ended.Leaderboard) != 2 {
		t.Fatalf("leaderboard has %d rows, want 2", len(ended.Leaderboard))
	}
	if ended.Leaderboard[0].PlayerID != "a" {
		t.Fatalf("leaderboard[0] = %q, want survivor first", ended.Leaderboard[0].PlayerID)
	}
	if ended.Leaderboard[1].Score != 10 {
		t.Fatalf("leaderboard[1].Score = %d, want 10", ended.Leaderboard[1].Score)
	}
}

func TestLeaveTransfersHost(t *testing.T) {
	rm, _ := newTestRoom(t, 4)
	rm.Join("a", "alice")
	rm.Join("b", "bob")
	rm.Join("c", "carol")

	if empty := rm.Leave("a", "quit"); empty {
		t.Fatal("room reported empty with players remaining")
	}
	if got := rm.HostID(); got == "a" || got == "" {
		t.Fatalf("host = %q, want transfer to a remaining player", got)
	}
}

func TestLeaveMidGameKillsSnake(t *testing.T) {
	rm, sender := newTestRoom(t, 4)
	startMatch(t, rm)
	sender.reset()

	rm.Leave("a", "disconnect")

	rm.mu.Lock()
	snake := rm.state.Snakes["a"]
	rm.mu.Unlock()
	if snake == nil || snake.Alive {
		t.Fatal("leaving player's snake should die in place")
	}

	rm.tickOnce(time.Now())
	if got := rm.Status(); got != StatusEnded {
		t.Fatalf("status = %q, want %q after last opponent left", got, StatusEnded)
	}
	ended := sender.byType(proto.TypeEnded)
	if len(ended) != 1 {
		t.Fatalf("got %d ended messages, want 1 (only b remains)", len(ended))
	}
	if ended[0].payload.(proto.Ended).WinnerID != "b" {
		t.Fatal("remaining player should win")
	}
}

func TestResetToLobbyClearsMatchState(t *testing.T) {
	rm, sender := newTestRoom(t, 4)
	startMatch(t, rm)

	rm.mu.Lock()
	rm.state.Snakes["b"].Alive = false
	rm.mu.Unlock()
	rm.tickOnce(time.Now())
	if got := rm.Status(); got != StatusEnded {
		t.Fatalf("status = %q, want %q", got, StatusEnded)
	}

	sender.reset()
	rm.resetToLobby()

	if got := rm.Status(); got != StatusWaiting {
		t.Fatalf("status = %q, want %q after restart delay", got, StatusWaiting)
	}
	rm.mu.Lock()
	for id, player := range rm.players {
		if player.Ready {
			t.Fatalf("player %s still ready after reset", id)
		}
	}
	if rm.tick != 0 || len(rm.state.Snakes) != 0 {
		t.Fatal("match state not cleared on reset")
	}
	rm.mu.Unlock()

	if len(sender.byType(proto.TypeLobby)) == 0 {
		t.Fatal("no lobby broadcast after reset")
	}
}

func TestEmptyRoomTracksEmptySince(t *testing.T) {
	rm, _ := newTestRoom(t, 4)
	if _, empty := rm.EmptySince(); !empty {
		t.Fatal("fresh room should count as empty")
	}
	rm.Join("a", "alice")
	if _, empty := rm.EmptySince(); empty {
		t.Fatal("occupied room reported empty")
	}
	if empty := rm.Leave("a", "quit"); !empty {
		t.Fatal("Leave should report the room empty")
	}
	if _, empty := rm.EmptySince(); !empty {
		t.Fatal("room not tracked as empty after last player left")
	}
}

func TestBoostHeldAcrossTicks(t *testing.T) {
	rm, _ := newTestRoom(t, 4)
	startMatch(t, rm)

	// Pin a's geometry so movement deltas don't depend on spawn placement.
	rm.mu.Lock()
	snake := rm.state.Snakes["a"]
	snake.Direction = sim.DirectionRight
	snake.Body = []sim.Position{{X: 5, Y: 20}, {X: 4, Y: 20}, {X: 3, Y: 20}}
	rm.state.Foods = nil
	rm.mu.Unlock()

	rm.HandleBoost("a", true)

	headX := func() int {
		rm.mu.Lock()
		defer rm.mu.Unlock()
		return rm.state.Snakes["a"].Head().X
	}

	rm.tickOnce(time.Now())
	if got := headX(); got != 7 {
		t.Fatalf("head.X after boosted tick = %d, want 7", got)
	}
	rm.tickOnce(time.Now())
	if got := headX(); got != 9 {
		t.Fatalf("head.X after second boosted tick = %d, want 9: boost must persist until released", got)
	}

	rm.HandleBoost("a", false)
	rm.tickOnce(time.Now())
	if got := headX(); got != 10 {
		t.Fatalf("head.X after release = %d, want 10", got)
	}
}
