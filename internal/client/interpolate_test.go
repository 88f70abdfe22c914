package client

import (
	"testing"

	"github.com/Kurubik/snake/internal/net/proto"
	"github.com/Kurubik/snake/internal/sim"
)

func remoteSnake(id string, head sim.Position) sim.Snake {
	return sim.Snake{
		PlayerID:  id,
		Body:      []sim.Position{head, {X: head.X - 1, Y: head.Y}},
		Direction: sim.DirectionRight,
		Alive:     true,
	}
}

func TestInterpolatorBlendsBetweenFrames(t *testing.T) {
	var ip Interpolator
	ip.Observe(proto.State{Tick: 1, Others: []sim.Snake{remoteSnake("r1", sim.Position{X: 4, Y: 7})}})
	ip.Observe(proto.State{Tick: 2, Others: []sim.Snake{remoteSnake("r1", sim.Position{X: 5, Y: 7})}})

	mid := ip.Positions(0.5)["r1"]
	if mid.X != 4.5 || mid.Y != 7 {
		t.Fatalf("midpoint = %+v, want (4.5, 7)", mid)
	}

	end := ip.Positions(1)["r1"]
	if end.X != 5 || end.Y != 7 {
		t.Fatalf("endpoint = %+v, want (5, 7)", end)
	}
}

func TestInterpolatorClampsAlpha(t *testing.T) {
	var ip Interpolator
	ip.Observe(proto.State{Tick: 1, Others: []sim.Snake{remoteSnake("r1", sim.Position{X: 4, Y: 7})}})
	ip.Observe(proto.State{Tick: 2, Others: []sim.Snake{remoteSnake("r1", sim.Position{X: 5, Y: 7})}})

	if got := ip.Positions(-1)["r1"]; got.X != 4 {
		t.Fatalf("alpha below zero produced %+v, want start position", got)
	}
	if got := ip.Positions(2)["r1"]; got.X != 5 {
		t.Fatalf("alpha above one produced %+v, want end position", got)
	}
}

func TestInterpolatorSnapsOnWrap(t *testing.T) {
	var ip Interpolator
	ip.Observe(proto.State{Tick: 1, Others: []sim.Snake{remoteSnake("r1", sim.Position{X: 19, Y: 7})}})
	ip.Observe(proto.State{Tick: 2, Others: []sim.Snake{remoteSnake("r1", sim.Position{X: 0, Y: 7})}})

	if got := ip.Positions(0.5)["r1"]; got.X != 0 {
		t.Fatalf("wrap jump was interpolated to %+v, want snap to (0, 7)", got)
	}
}

func TestInterpolatorIgnoresStaleFrames(t *testing.T) {
	var ip Interpolator
	ip.Observe(proto.State{Tick: 5, Others: []sim.Snake{remoteSnake("r1", sim.Position{X: 4, Y: 7})}})
	ip.Observe(proto.State{Tick: 6, Others: []sim.Snake{remoteSnake("r1", sim.Position{X: 5, Y: 7})}})
	ip.Observe(proto.State{Tick: 4, Others: []sim.Snake{remoteSnake("r1", sim.Position{X: 0, Y: 0})}})

	if got := ip.Positions(1)["r1"]; got.X != 5 || got.Y != 7 {
		t.Fatalf("stale frame replaced current target: %+v", got)
	}
}

func TestInterpolatorSnapsNewSnakes(t *testing.T) {
	var ip Interpolator
	ip.Observe(proto.State{Tick: 1, Others: []sim.Snake{remoteSnake("r1", sim.Position{X: 4, Y: 7})}})
	ip.Observe(proto.State{Tick: 2, Others: []sim.Snake{
		remoteSnake("r1", sim.Position{X: 5, Y: 7}),
		remoteSnake("r2", sim.Position{X: 9, Y: 3}),
	}})

	got := ip.Positions(0.5)["r2"]
	if got.X != 9 || got.Y != 3 {
		t.Fatalf("snake without history interpolated to %+v, want its latest cell", got)
	}
}
