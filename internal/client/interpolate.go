package client

import (
	"github.com/Kurubik/snake/internal/net/proto"
	"github.com/Kurubik/snake/internal/sim"
)

// RenderPosition is a grid coordinate blended between two ticks.
type RenderPosition struct {
	X float64
	Y float64
}

// Interpolator smooths remote snakes between authoritative broadcasts.
// The local snake comes from the predictor instead; remote snakes are
// rendered one tick behind, blended across the tick interval.
type Interpolator struct {
	previous proto.State
	current  proto.State
	haveTwo  bool
}

// Observe records an authoritative broadcast as the new interpolation
// target. Out-of-order broadcasts are ignored.
func (ip *Interpolator) Observe(msg proto.State) {
	if ip.haveTwo && msg.Tick <= ip.current.Tick {
		return
	}
	if ip.current.Tick != 0 || len(ip.current.Others) > 0 {
		ip.previous = ip.current
		ip.haveTwo = true
	}
	ip.current = msg
}

// Positions blends each remote snake's head between the two most recent
// broadcasts. alpha is the fraction of the tick interval elapsed, clamped
// to [0, 1]. Snakes absent from either frame snap to their latest cell.
func (ip *Interpolator) Positions(alpha float64) map[string]RenderPosition {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	out := make(map[string]RenderPosition, len(ip.current.Others))
	previous := headsByPlayer(ip.previous.Others)
	for _, snake := range ip.current.Others {
		if len(snake.Body) == 0 {
			continue
		}
		head := snake.Body[0]
		target := RenderPosition{X: float64(head.X), Y: float64(head.Y)}
		from, ok := previous[snake.PlayerID]
		if !ip.haveTwo || !ok || !snake.Alive || teleported(from, head) {
			out[snake.PlayerID] = target
			continue
		}
		out[snake.PlayerID] = RenderPosition{
			X: float64(from.X) + (float64(head.X)-float64(from.X))*alpha,
			Y: float64(from.Y) + (float64(head.Y)-float64(from.Y))*alpha,
		}
	}
	return out
}

func headsByPlayer(snakes []sim.Snake) map[string]sim.Position {
	heads := make(map[string]sim.Position, len(snakes))
	for _, snake := range snakes {
		if len(snake.Body) > 0 {
			heads[snake.PlayerID] = snake.Body[0]
		}
	}
	return heads
}

// teleported detects wrap-around jumps, which must snap instead of
// sliding across the grid.
func teleported(from, to sim.Position) bool {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx > 2 || dy > 2
}
