package client

import (
	"testing"

	"github.com/Kurubik/snake/internal/net/proto"
	"github.com/Kurubik/snake/internal/sim"
)

const testSeed = 99

func testSettings() sim.Settings {
	s := sim.DefaultSettings()
	s.GridWidth = 20
	s.GridHeight = 20
	return s.Normalized()
}

// serverWorld drives an authoritative simulation alongside the predictor,
// the way the room does on the server.
type serverWorld struct {
	state    *sim.State
	settings sim.Settings
	rng      *sim.RNG
	tick     uint64
}

func newServerWorld(settings sim.Settings) *serverWorld {
	state := sim.NewState()
	state.Snakes["p1"] = &sim.Snake{
		PlayerID:  "p1",
		Body:      []sim.Position{{X: 10, Y: 10}, {X: 9, Y: 10}, {X: 8, Y: 10}},
		Direction: sim.DirectionRight,
		Alive:     true,
	}
	return &serverWorld{state: state, settings: settings, rng: sim.NewRNG(testSeed)}
}

func (w *serverWorld) step(direction sim.Direction) {
	inputs := sim.Inputs{
		Directions: map[string]sim.Direction{},
		Boosts:     map[string]bool{},
		Fires:      map[string]bool{},
	}
	if direction != "" {
		inputs.Directions["p1"] = direction
	}
	sim.Step(w.state, inputs, w.settings, w.rng)
	w.tick++
}

// broadcast renders the authoritative state the way the server does.
func (w *serverWorld) broadcast(ack uint64) proto.State {
	w.state.DrainEvents()
	self := w.state.Snakes["p1"].Clone()
	return proto.State{
		Tick:  w.tick,
		Ack:   ack,
		Self:  self,
		Foods: append([]sim.Food(nil), w.state.Foods...),
		Hash:  sim.HashState(w.state),
	}
}

func TestReconcileConvergesWhenAllInputsAcked(t *testing.T) {
	settings := testSettings()
	world := newServerWorld(settings)
	pred := NewPredictor("p1", settings, testSeed, nil)

	msg := pred.ApplyLocal(sim.DirectionUp)
	if msg.Seq != 1 {
		t.Fatalf("first input seq = %d, want 1", msg.Seq)
	}

	world.step(sim.DirectionUp)
	pred.Reconcile(world.broadcast(1))

	if pred.Diverged() {
		t.Fatal("prediction diverged on a faithful broadcast")
	}
	if got := sim.HashState(pred.Predicted()); got != sim.HashState(world.state) {
		t.Fatalf("predicted hash %s != server hash %s with no inputs in flight", got, sim.HashState(world.state))
	}
	if pred.PredictedTick() != 1 {
		t.Fatalf("predicted tick = %d, want 1", pred.PredictedTick())
	}
}

func TestReconcileReplaysUnackedInputs(t *testing.T) {
	settings := testSettings()
	world := newServerWorld(settings)
	pred := NewPredictor("p1", settings, testSeed, nil)

	pred.ApplyLocal(sim.DirectionUp)
	pred.ApplyLocal(sim.DirectionLeft)

	// The server has only seen the first input.
	world.step(sim.DirectionUp)
	broadcast := world.broadcast(1)
	pred.Reconcile(broadcast)

	if pred.PredictedTick() != 2 {
		t.Fatalf("predicted tick = %d, want server tick + 1 in-flight input", pred.PredictedTick())
	}

	serverHead := broadcast.Self.Head()
	wantHead := sim.Position{X: serverHead.X - 1, Y: serverHead.Y}
	gotHead := pred.Predicted().Snakes["p1"].Head()
	if gotHead != wantHead {
		t.Fatalf("replayed head = %+v, want %+v", gotHead, wantHead)
	}

	// The server catches up; the replayed input is confirmed and dropped.
	world.step(sim.DirectionLeft)
	pred.Reconcile(world.broadcast(2))
	if got := sim.HashState(pred.Predicted()); got != sim.HashState(world.state) {
		t.Fatal("predicted state did not converge once all inputs were acked")
	}
	if len(pred.pending) != 0 {
		t.Fatalf("pending = %d inputs after full ack, want 0", len(pred.pending))
	}
}

func TestAdvanceTickKeepsLocalSnakeMoving(t *testing.T) {
	settings := testSettings()
	world := newServerWorld(settings)
	pred := NewPredictor("p1", settings, testSeed, nil)

	world.step("")
	pred.Reconcile(world.broadcast(0))
	before := pred.Predicted().Snakes["p1"].Head()

	pred.AdvanceTick()
	after := pred.Predicted().Snakes["p1"].Head()
	if after == before {
		t.Fatal("AdvanceTick left the local snake in place")
	}
	if after.X != before.X+1 {
		t.Fatalf("head moved to %+v, want one cell along the current heading", after)
	}

	// The matching server tick confirms the untagged step.
	world.step("")
	pred.Reconcile(world.broadcast(0))
	if len(pred.pending) != 0 {
		t.Fatalf("pending = %d after tick confirmation, want 0", len(pred.pending))
	}
}

func TestReconcileFlagsDivergence(t *testing.T) {
	settings := testSettings()
	world := newServerWorld(settings)
	pred := NewPredictor("p1", settings, testSeed, nil)

	world.step("")
	pred.Reconcile(world.broadcast(0))
	if pred.Diverged() {
		t.Fatal("diverged before any prediction was made")
	}

	// The client predicts the snake carrying straight on, but the server
	// applies a turn the client never saw.
	pred.AdvanceTick()
	world.step(sim.DirectionDown)
	pred.Reconcile(world.broadcast(0))
	if !pred.Diverged() {
		t.Fatal("mismatched prediction not flagged")
	}

	// A resync broadcast clears the flag.
	world.step("")
	resync := world.broadcast(0)
	resync.Resync = true
	pred.Reconcile(resync)
	if pred.Diverged() {
		t.Fatal("divergence flag survived a resync")
	}
}

func TestOppositeInputPredictedAsDropped(t *testing.T) {
	settings := testSettings()
	world := newServerWorld(settings)
	pred := NewPredictor("p1", settings, testSeed, nil)

	// Heading right; a left input must be ignored on both ends.
	pred.ApplyLocal(sim.DirectionLeft)
	world.step(sim.DirectionLeft)
	pred.Reconcile(world.broadcast(1))

	if pred.Diverged() {
		t.Fatal("diverged on a dropped opposite input")
	}
	if got := sim.HashState(pred.Predicted()); got != sim.HashState(world.state) {
		t.Fatal("client predicted a reversal the server rejected")
	}
}
