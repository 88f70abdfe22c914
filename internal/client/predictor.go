// Package client implements the game-state side of a client: local
// prediction of the player's own snake, reconciliation against
// authoritative broadcasts, and interpolation of remote snakes.
package client

import (
	"context"
	"sort"

	"github.com/Kurubik/snake/internal/net/proto"
	"github.com/Kurubik/snake/internal/sim"
	"github.com/Kurubik/snake/logging"
	simulationlog "github.com/Kurubik/snake/logging/simulation"
)

type pendingInput struct {
	seq       uint64
	direction sim.Direction
}

// Predictor runs the simulation locally so the player's own snake responds
// immediately. Each local input advances the predicted state one tick; the
// authoritative broadcast later confirms those ticks, and unconfirmed
// inputs are replayed on top of it.
type Predictor struct {
	playerID string
	settings sim.Settings
	seed     int64

	predicted *sim.State
	tick      uint64
	pending   []pendingInput
	nextSeq   uint64

	// adopted flips once the first broadcast lands; predictions made
	// before then start from an empty state and carry no usable hash.
	adopted         bool
	predictedHashes map[uint64]string

	diverged  bool
	publisher logging.Publisher
}

// NewPredictor seeds a predictor from the join handshake. The initial state
// arrives with the first broadcast.
func NewPredictor(playerID string, settings sim.Settings, seed int64, publisher logging.Publisher) *Predictor {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Predictor{
		playerID:        playerID,
		settings:        settings.Normalized(),
		seed:            seed,
		predicted:       sim.NewState(),
		nextSeq:         1,
		predictedHashes: map[uint64]string{},
		publisher:       publisher,
	}
}

// ApplyLocal registers a direction input, advances the predicted state one
// tick, and returns the message to send. The caller sends it as-is; the
// sequence number ties the prediction to the eventual acknowledgement.
func (p *Predictor) ApplyLocal(direction sim.Direction) proto.Input {
	seq := p.nextSeq
	p.nextSeq++
	p.pending = append(p.pending, pendingInput{seq: seq, direction: direction})
	p.stepPredicted(direction)
	return proto.Input{Seq: seq, Direction: string(direction)}
}

// AdvanceTick moves the predicted state forward one tick with no direction
// change, keeping the local snake in motion between inputs.
func (p *Predictor) AdvanceTick() {
	p.pending = append(p.pending, pendingInput{seq: 0})
	p.stepPredicted("")
}

// Reconcile adopts an authoritative broadcast. Inputs the server has
// incorporated are dropped; the remainder replay on top of the server
// state, so the predicted state stays ahead by exactly the in-flight
// inputs.
func (p *Predictor) Reconcile(msg proto.State) {
	base := stateFromBroadcast(msg)

	if msg.Hash != "" {
		if local, ok := p.predictedHashes[msg.Tick]; ok && local != msg.Hash {
			p.diverged = true
			simulationlog.StateDivergence(context.Background(), p.publisher, msg.Tick,
				logging.EntityRef{ID: p.playerID, Kind: logging.EntityKindPlayer},
				simulationlog.DivergencePayload{LocalHash: local, RemoteHash: msg.Hash})
		}
	}
	if msg.Resync {
		p.diverged = false
	}
	for tick := range p.predictedHashes {
		if tick <= msg.Tick {
			delete(p.predictedHashes, tick)
		}
	}

	// Drop inputs the server has applied. Untagged ticks older than the
	// broadcast are confirmed by the tick counter.
	kept := p.pending[:0]
	confirmed := uint64(0)
	for _, in := range p.pending {
		if in.seq != 0 && in.seq <= msg.Ack {
			confirmed++
			continue
		}
		if in.seq == 0 && p.tick+confirmed < msg.Tick {
			confirmed++
			continue
		}
		kept = append(kept, in)
	}
	p.pending = append([]pendingInput(nil), kept...)

	p.predicted = base
	p.tick = msg.Tick
	p.adopted = true
	replayRNG := sim.NewRNG(p.seed ^ int64(msg.Tick))
	for i, in := range p.pending {
		p.replayStep(in.direction, replayRNG)
		p.recordHash(msg.Tick + uint64(i) + 1)
	}
}

// Predicted returns the state to render for the local snake. Callers must
// treat it as read-only.
func (p *Predictor) Predicted() *sim.State {
	return p.predicted
}

// PredictedTick reports how far ahead of the last broadcast the predicted
// state sits.
func (p *Predictor) PredictedTick() uint64 {
	return p.tick + uint64(len(p.pending))
}

// Diverged reports whether a broadcast's hash disagreed with the hash the
// predictor computed for that tick and no resync has arrived since.
func (p *Predictor) Diverged() bool {
	return p.diverged
}

func (p *Predictor) stepPredicted(direction sim.Direction) {
	rng := sim.NewRNG(p.seed ^ int64(p.tick) ^ int64(len(p.pending)))
	p.replayStep(direction, rng)
	p.recordHash(p.PredictedTick())
}

func (p *Predictor) recordHash(tick uint64) {
	if !p.adopted {
		return
	}
	p.predictedHashes[tick] = sim.HashState(p.predicted)
}

func (p *Predictor) replayStep(direction sim.Direction, rng *sim.RNG) {
	inputs := sim.Inputs{
		Directions: map[string]sim.Direction{},
		Boosts:     map[string]bool{},
		Fires:      map[string]bool{},
	}
	if direction != "" {
		inputs.Directions[p.playerID] = direction
	}
	sim.Step(p.predicted, inputs, p.settings, rng)
}

// stateFromBroadcast rebuilds a full simulation state from one broadcast.
func stateFromBroadcast(msg proto.State) *sim.State {
	st := sim.NewState()
	if msg.Self != nil {
		snake := *msg.Self
		st.Snakes[snake.PlayerID] = &snake
	}
	for i := range msg.Others {
		snake := msg.Others[i]
		st.Snakes[snake.PlayerID] = &snake
	}
	st.Foods = append([]sim.Food(nil), msg.Foods...)
	st.Projectiles = append([]sim.Projectile(nil), msg.Projectiles...)
	sort.Slice(st.Foods, func(i, j int) bool {
		if st.Foods[i].Position.Y != st.Foods[j].Position.Y {
			return st.Foods[i].Position.Y < st.Foods[j].Position.Y
		}
		return st.Foods[i].Position.X < st.Foods[j].Position.X
	})
	return st
}
