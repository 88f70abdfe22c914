package room

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Kurubik/snake/internal/net/proto"
	"github.com/Kurubik/snake/internal/sim"
	"github.com/Kurubik/snake/logging"
	lifecyclelog "github.com/Kurubik/snake/logging/lifecycle"
	networklog "github.com/Kurubik/snake/logging/network"
	simulationlog "github.com/Kurubik/snake/logging/simulation"
)

// Status tracks where a room is in its match lifecycle.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusStarting Status = "starting"
	StatusPlaying  Status = "playing"
	StatusEnded    Status = "ended"
)

var (
	// ErrRoomFull is returned when a join would exceed the player cap.
	ErrRoomFull = errors.New("room is full")
	// ErrInProgress is returned when a join arrives after the lobby closed.
	ErrInProgress = errors.New("game already in progress")
	// ErrUnknownPlayer is returned for operations on players not in the room.
	ErrUnknownPlayer = errors.New("unknown player")
)

// Sender delivers an encoded message to one connected player. The websocket
// session registry implements it; rooms never touch connections directly.
type Sender interface {
	Send(playerID string, msgType string, payload any)
}

// Config tunes lifecycle delays and input admission for a room.
type Config struct {
	CountdownDelay time.Duration
	RestartDelay   time.Duration
	EmptyTimeout   time.Duration
	// ResyncInterval is the tick cadence of full-resync broadcasts.
	ResyncInterval int
	// InputRateLimit caps accepted input messages per player per second.
	InputRateLimit int
	Publisher      logging.Publisher
}

// DefaultConfig mirrors production lifecycle timing.
func DefaultConfig() Config {
	return Config{
		CountdownDelay: 3 * time.Second,
		RestartDelay:   5 * time.Second,
		EmptyTimeout:   30 * time.Second,
		ResyncInterval: 30,
		InputRateLimit: 30,
		Publisher:      logging.NopPublisher(),
	}
}

func (c Config) normalized() Config {
	defaults := DefaultConfig()
	if c.CountdownDelay <= 0 {
		c.CountdownDelay = defaults.CountdownDelay
	}
	if c.RestartDelay <= 0 {
		c.RestartDelay = defaults.RestartDelay
	}
	if c.EmptyTimeout <= 0 {
		c.EmptyTimeout = defaults.EmptyTimeout
	}
	if c.ResyncInterval <= 0 {
		c.ResyncInterval = defaults.ResyncInterval
	}
	if c.InputRateLimit <= 0 {
		c.InputRateLimit = defaults.InputRateLimit
	}
	if c.Publisher == nil {
		c.Publisher = logging.NopPublisher()
	}
	return c
}

// outbound is a message staged under the lock and delivered after release.
type outbound struct {
	playerID string
	msgType  string
	payload  any
}

// Room owns one match: its players, settings, simulation state, and tick
// scheduling. All game-state mutation happens inside the tick callback;
// message handlers only buffer intents.
type Room struct {
	mu sync.Mutex

	code     string
	hostID   string
	settings sim.Settings
	seed     int64
	cfg      Config
	sender   Sender

	players     map[string]*Player
	joinCounter int

	state *sim.State
	rng   *sim.RNG

	status Status
	tick   uint64

	pendingDirections map[string]sim.Direction
	pendingFires      map[string]bool
	boosting          map[string]bool
	limiters          map[string]*rateWindow
	deathTicks        map[string]uint64

	task         *repeatingTask
	startTimer   *time.Timer
	restartTimer *time.Timer

	emptySince time.Time
	shutdown   bool
}

// New constructs an empty room in the waiting state.
func New(code string, seed int64, settings sim.Settings, cfg Config, sender Sender) *Room {
	return &Room{
		code:              code,
		seed:              seed,
		settings:          settings.Normalized(),
		cfg:               cfg.normalized(),
		sender:            sender,
		players:           make(map[string]*Player),
		state:             sim.NewState(),
		status:            StatusWaiting,
		emptySince:        time.Now(),
		pendingDirections: make(map[string]sim.Direction),
		pendingFires:      make(map[string]bool),
		boosting:          make(map[string]bool),
		limiters:          make(map[string]*rateWindow),
		deathTicks:        make(map[string]uint64),
	}
}

func (r *Room) Code() string { return r.code }

func (r *Room) Seed() int64 { return r.seed }

func (r *Room) Settings() sim.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Room) Tick() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tick
}

func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// EmptySince reports when the room lost its last player, if it is empty.
func (r *Room) EmptySince() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.players) > 0 || r.emptySince.IsZero() {
		return time.Time{}, false
	}
	return r.emptySince, true
}

// Join admits a player to the lobby. Joins are rejected once the lobby has
// closed or the room is at capacity.
func (r *Room) Join(playerID, name string) error {
	r.mu.Lock()
	if r.status != StatusWaiting {
		r.mu.Unlock()
		return ErrInProgress
	}
	if len(r.players) >= r.settings.MaxPlayers {
		r.mu.Unlock()
		return ErrRoomFull
	}

	player := &Player{ID: playerID, Name: name, joinOrder: r.joinCounter}
	r.joinCounter++
	r.players[playerID] = player
	r.limiters[playerID] = newRateWindow(r.cfg.InputRateLimit)
	if r.hostID == "" {
		r.hostID = playerID
	}
	r.emptySince = time.Time{}
	outbounds := r.buildLobbyLocked()
	r.mu.Unlock()

	lifecyclelog.PlayerJoined(context.Background(), r.cfg.Publisher, 0,
		logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
		lifecyclelog.PlayerJoinedPayload{RoomCode: r.code, Name: name})

	r.deliver(outbounds)
	return nil
}

// Leave removes a player. Mid-game their snake dies in place; if the host
// leaves, host duties transfer to an arbitrary remaining player. Returns
// true when the room is now empty.
func (r *Room) Leave(playerID, reason string) bool {
	r.mu.Lock()
	if _, ok := r.players[playerID]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.players, playerID)
	delete(r.limiters, playerID)
	delete(r.pendingDirections, playerID)
	delete(r.pendingFires, playerID)
	delete(r.boosting, playerID)

	if snake, ok := r.state.Snakes[playerID]; ok && snake.Alive {
		snake.Alive = false
		r.deathTicks[playerID] = r.tick
	}

	var transferred string
	if r.hostID == playerID {
		r.hostID = ""
		if remaining := r.sortedPlayerIDsLocked(); len(remaining) > 0 {
			r.hostID = remaining[0]
			transferred = r.hostID
		}
	}

	empty := len(r.players) == 0
	if empty {
		r.emptySince = time.Now()
	}

	var outbounds []outbound
	if !empty && r.status == StatusWaiting {
		outbounds = r.buildLobbyLocked()
		r.maybeStartLocked(&outbounds)
	}
	tick := r.tick
	r.mu.Unlock()

	lifecyclelog.PlayerLeft(context.Background(), r.cfg.Publisher, tick,
		logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
		lifecyclelog.PlayerLeftPayload{RoomCode: r.code, Reason: reason})
	if transferred != "" {
		lifecyclelog.HostTransferred(context.Background(), r.cfg.Publisher, tick,
			logging.EntityRef{ID: transferred, Kind: logging.EntityKindPlayer},
			lifecyclelog.RoomPayload{RoomCode: r.code})
	}

	r.deliver(outbounds)
	return empty
}

// SetReady toggles a player's ready flag and starts the countdown when
// every non-spectating player is ready and at least two are present.
func (r *Room) SetReady(playerID string, ready bool) error {
	r.mu.Lock()
	player, ok := r.players[playerID]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownPlayer
	}
	if r.status != StatusWaiting {
		r.mu.Unlock()
		return nil
	}
	player.Ready = ready
	outbounds := r.buildLobbyLocked()
	r.maybeStartLocked(&outbounds)
	r.mu.Unlock()

	r.deliver(outbounds)
	return nil
}

// SetSpectating flags a player as a spectator. Spectators keep receiving
// broadcasts but never get a snake and don't count toward readiness.
func (r *Room) SetSpectating(playerID string) error {
	r.mu.Lock()
	player, ok := r.players[playerID]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownPlayer
	}
	player.Spectating = true
	player.Ready = false
	var outbounds []outbound
	if r.status == StatusWaiting {
		outbounds = r.buildLobbyLocked()
		r.maybeStartLocked(&outbounds)
	}
	r.mu.Unlock()

	r.deliver(outbounds)
	return nil
}

// HandleInput buffers a direction change for the next tick. Over-rate and
// invalid-direction inputs are dropped silently; only the most recent input
// per player inside one tick window is honored.
func (r *Room) HandleInput(playerID string, seq uint64, direction string) {
	now := time.Now()

	r.mu.Lock()
	player, ok := r.players[playerID]
	if !ok {
		r.mu.Unlock()
		return
	}
	limiter := r.limiters[playerID]
	if limiter != nil && !limiter.allow(now) {
		dropped := limiter.takeDropped()
		limit := r.cfg.InputRateLimit
		r.mu.Unlock()
		networklog.InputRateLimited(context.Background(), r.cfg.Publisher,
			logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
			networklog.RateLimitPayload{Dropped: dropped, Limit: limit})
		return
	}

	if seq > player.stagedAck {
		player.stagedAck = seq
	}
	if dir, valid := sim.ParseDirection(direction); valid {
		r.pendingDirections[playerID] = dir
	}
	r.mu.Unlock()
}

// HandleBoost toggles the held boost flag for a player.
func (r *Room) HandleBoost(playerID string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[playerID]; !ok {
		return
	}
	if active {
		r.boosting[playerID] = true
	} else {
		delete(r.boosting, playerID)
	}
}

// HandleFire buffers a fire request for the next tick.
func (r *Room) HandleFire(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[playerID]; !ok {
		return
	}
	r.pendingFires[playerID] = true
}

// Shutdown cancels every scheduled task. Called by the registry when the
// room is removed; the room must not tick afterwards.
func (r *Room) Shutdown() {
	r.mu.Lock()
	r.shutdown = true
	task := r.task
	r.task = nil
	if r.startTimer != nil {
		r.startTimer.Stop()
		r.startTimer = nil
	}
	if r.restartTimer != nil {
		r.restartTimer.Stop()
		r.restartTimer = nil
	}
	r.mu.Unlock()
	task.Stop()
}

// maybeStartLocked begins the countdown when the lobby is fully ready.
func (r *Room) maybeStartLocked(outbounds *[]outbound) {
	if r.status != StatusWaiting {
		return
	}
	active := 0
	ready := 0
	for _, player := range r.players {
		if player.Spectating {
			continue
		}
		active++
		if player.Ready {
			ready++
		}
	}
	if active < 2 || ready != active {
		return
	}

	r.status = StatusStarting
	r.state = sim.NewState()
	r.rng = sim.NewRNG(r.seed)
	r.deathTicks = make(map[string]uint64)

	ids := r.sortedActivePlayerIDsLocked()
	sim.SpawnSnakes(r.state, ids, r.settings, r.rng)
	sim.SpawnFood(r.state, r.settings, r.rng)

	// Colors follow join order so they stay stable across rounds.
	for id, snake := range r.state.Snakes {
		if player, ok := r.players[id]; ok {
			snake.Color = sim.SnakeColor(player.joinOrder)
		}
	}

	*outbounds = append(*outbounds, r.buildLobbyLocked()...)

	r.startTimer = time.AfterFunc(r.cfg.CountdownDelay, r.beginPlaying)
}

// beginPlaying flips the room into the playing state and starts the tick
// loop.
func (r *Room) beginPlaying() {
	r.mu.Lock()
	if r.shutdown || r.status != StatusStarting {
		r.mu.Unlock()
		return
	}
	r.status = StatusPlaying
	r.tick = 0
	r.startTimer = nil

	interval := time.Second / time.Duration(r.settings.TickRate)
	r.task = startRepeatingTask(interval, r.tickOnce)

	start := proto.Start{StartAt: time.Now().UnixMilli(), TickRate: r.settings.TickRate}
	outbounds := r.broadcastLocked(proto.TypeStart, start)
	players := len(r.players)
	r.mu.Unlock()

	simulationlog.MatchStarted(context.Background(), r.cfg.Publisher, 0,
		logging.EntityRef{ID: r.code, Kind: logging.EntityKindRoom},
		simulationlog.MatchStartedPayload{
			RoomCode: r.code,
			Players:  players,
			Seed:     r.seed,
			TickRate: r.settings.TickRate,
		})

	r.deliver(outbounds)
}

// tickOnce runs one authoritative simulation step. Inputs buffered since
// the previous tick are drained here; broadcasts go out only after the step
// completes, so every recipient sees full state for the tick.
func (r *Room) tickOnce(now time.Time) {
	r.mu.Lock()
	if r.shutdown || r.status != StatusPlaying {
		r.mu.Unlock()
		return
	}

	inputs := sim.Inputs{
		Directions: r.pendingDirections,
		Fires:      r.pendingFires,
		Boosts:     make(map[string]bool, len(r.boosting)),
	}
	for id := range r.boosting {
		inputs.Boosts[id] = true
	}
	r.pendingDirections = make(map[string]sim.Direction)
	r.pendingFires = make(map[string]bool)
	for _, player := range r.players {
		if player.stagedAck > player.lastAck {
			player.lastAck = player.stagedAck
		}
	}

	stepStart := time.Now()
	sim.Step(r.state, inputs, r.settings, r.rng)
	r.tick++
	stepDuration := time.Since(stepStart)

	for id, snake := range r.state.Snakes {
		if !snake.Alive {
			if _, seen := r.deathTicks[id]; !seen {
				r.deathTicks[id] = r.tick
			}
		}
	}

	events := r.state.DrainEvents()
	resync := r.tick%uint64(r.cfg.ResyncInterval) == 0
	hash := sim.HashState(r.state)
	outbounds := r.buildStateLocked(events, resync, hash)

	tick := r.tick
	budget := time.Second / time.Duration(r.settings.TickRate)
	overrun := stepDuration > budget

	if r.state.LivingSnakes() <= 1 {
		outbounds = append(outbounds, r.endMatchLocked()...)
	}
	r.mu.Unlock()

	if overrun {
		simulationlog.TickOverrun(context.Background(), r.cfg.Publisher, tick,
			logging.EntityRef{ID: r.code, Kind: logging.EntityKindRoom},
			simulationlog.TickOverrunPayload{
				DurationMillis: stepDuration.Milliseconds(),
				BudgetMillis:   budget.Milliseconds(),
			})
	}

	r.deliver(outbounds)
}

// endMatchLocked resolves the match, stops the tick loop, and schedules the
// return to the lobby.
func (r *Room) endMatchLocked() []outbound {
	r.status = StatusEnded
	task := r.task
	r.task = nil
	if task != nil {
		task.Stop()
	}

	leaderboard := r.rankingLocked()
	winnerID := ""
	for id, snake := range r.state.Snakes {
		if snake.Alive {
			winnerID = id
			break
		}
	}

	ended := proto.Ended{Leaderboard: leaderboard, WinnerID: winnerID}
	outbounds := r.broadcastLocked(proto.TypeEnded, ended)

	tick := r.tick
	r.restartTimer = time.AfterFunc(r.cfg.RestartDelay, r.resetToLobby)

	simulationlog.MatchEnded(context.Background(), r.cfg.Publisher, tick,
		logging.EntityRef{ID: r.code, Kind: logging.EntityKindRoom},
		simulationlog.MatchEndedPayload{RoomCode: r.code, WinnerID: winnerID, Ticks: tick})

	return outbounds
}

// resetToLobby clears the match state so the room can host another round.
func (r *Room) resetToLobby() {
	r.mu.Lock()
	if r.shutdown || r.status != StatusEnded {
		r.mu.Unlock()
		return
	}
	r.status = StatusWaiting
	r.state = sim.NewState()
	r.tick = 0
	r.restartTimer = nil
	r.deathTicks = make(map[string]uint64)
	r.pendingDirections = make(map[string]sim.Direction)
	r.pendingFires = make(map[string]bool)
	r.boosting = make(map[string]bool)
	for _, player := range r.players {
		player.Ready = false
	}
	outbounds := r.buildLobbyLocked()
	r.mu.Unlock()

	r.deliver(outbounds)
}

// rankingLocked orders players by ticks survived, then score.
func (r *Room) rankingLocked() []proto.RankEntry {
	entries := make([]proto.RankEntry, 0, len(r.players))
	for id, player := range r.players {
		snake, ok := r.state.Snakes[id]
		if !ok {
			continue
		}
		survived := r.tick
		if deathTick, died := r.deathTicks[id]; died {
			survived = deathTick
		}
		entries = append(entries, proto.RankEntry{
			PlayerID:      id,
			Name:          player.Name,
			TicksSurvived: survived,
			Score:         snake.Score,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TicksSurvived != entries[j].TicksSurvived {
			return entries[i].TicksSurvived > entries[j].TicksSurvived
		}
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	return entries
}

// buildStateLocked renders one state broadcast per connected player. Each
// recipient gets their own snake split out and their own acknowledged
// sequence number.
func (r *Room) buildStateLocked(events []sim.Event, resync bool, hash string) []outbound {
	outbounds := make([]outbound, 0, len(r.players))
	for id, player := range r.players {
		var self *sim.Snake
		others := make([]sim.Snake, 0, len(r.state.Snakes))
		for snakeID, snake := range r.state.Snakes {
			if snakeID == id {
				self = snake.Clone()
				continue
			}
			others = append(others, *snake.Clone())
		}
		sort.Slice(others, func(i, j int) bool { return others[i].PlayerID < others[j].PlayerID })

		outbounds = append(outbounds, outbound{
			playerID: id,
			msgType:  proto.TypeState,
			payload: proto.State{
				Tick:        r.tick,
				Ack:         player.snapshotAck(),
				Self:        self,
				Others:      others,
				Foods:       append([]sim.Food(nil), r.state.Foods...),
				Projectiles: append([]sim.Projectile(nil), r.state.Projectiles...),
				Events:      events,
				Resync:      resync,
				Hash:        hash,
			},
		})
	}
	return outbounds
}

// buildLobbyLocked renders the lobby roster for every player.
func (r *Room) buildLobbyLocked() []outbound {
	players := make([]proto.LobbyPlayer, 0, len(r.players))
	for id, player := range r.players {
		players = append(players, proto.LobbyPlayer{
			ID:         id,
			Name:       player.Name,
			Ready:      player.Ready,
			Host:       id == r.hostID,
			Spectating: player.Spectating,
		})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })

	lobby := proto.Lobby{Players: players, Settings: r.settings, Status: string(r.status)}
	return r.broadcastLocked(proto.TypeLobby, lobby)
}

// broadcastLocked stages the same payload for every player in the room.
func (r *Room) broadcastLocked(msgType string, payload any) []outbound {
	outbounds := make([]outbound, 0, len(r.players))
	for id := range r.players {
		outbounds = append(outbounds, outbound{playerID: id, msgType: msgType, payload: payload})
	}
	return outbounds
}

func (r *Room) deliver(outbounds []outbound) {
	if r.sender == nil {
		return
	}
	for _, msg := range outbounds {
		r.sender.Send(msg.playerID, msg.msgType, msg.payload)
	}
}

func (r *Room) sortedPlayerIDsLocked() []string {
	ids := make([]string, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Room) sortedActivePlayerIDsLocked() []string {
	ids := make([]string, 0, len(r.players))
	for id, player := range r.players {
		if player.Spectating {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
