package sim

import "math"

// snakeColors is cycled through in join order so every snake gets a stable,
// distinct display color.
var snakeColors = []string{
	"#e74c3c", "#3498db", "#2ecc71", "#f1c40f",
	"#9b59b6", "#1abc9c", "#e67e22", "#ecf0f1",
}

// SnakeColor returns the display color for the nth player to join.
func SnakeColor(index int) string {
	if index < 0 {
		index = 0
	}
	return snakeColors[index%len(snakeColors)]
}

// SpawnSnakes places one snake per player, evenly distributed around a
// circle inscribed in the grid, each facing a random direction drawn from
// the RNG. Player ids must already be sorted so RNG consumption matches
// between server and replay.
func SpawnSnakes(st *State, playerIDs []string, cfg Settings, rng *RNG) {
	count := len(playerIDs)
	if count == 0 {
		return
	}

	centerX := float64(cfg.GridWidth) / 2
	centerY := float64(cfg.GridHeight) / 2
	radius := math.Min(centerX, centerY) - 2
	if radius < 1 {
		radius = 1
	}

	for i, id := range playerIDs {
		angle := 2 * math.Pi * float64(i) / float64(count)
		head := Position{
			X: clampCoord(int(math.Round(centerX+radius*math.Cos(angle))), cfg.GridWidth),
			Y: clampCoord(int(math.Round(centerY+radius*math.Sin(angle))), cfg.GridHeight),
		}
		direction := rng.PickDirection()

		// The body trails away from the facing direction. Trailing segments
		// that would leave the grid collapse onto the last valid cell; the
		// first movement tick stretches the body back out.
		dx, dy := direction.Opposite().Offset()
		body := make([]Position, 0, startingSnakeLength)
		body = append(body, head)
		prev := head
		for s := 1; s < startingSnakeLength; s++ {
			seg := Position{X: prev.X + dx, Y: prev.Y + dy}
			if cfg.WrapEnabled {
				seg.X = wrap(seg.X, cfg.GridWidth)
				seg.Y = wrap(seg.Y, cfg.GridHeight)
			} else if seg.X < 0 || seg.X >= cfg.GridWidth || seg.Y < 0 || seg.Y >= cfg.GridHeight {
				seg = prev
			}
			body = append(body, seg)
			prev = seg
		}

		st.Snakes[id] = &Snake{
			PlayerID:  id,
			Body:      body,
			Direction: direction,
			Alive:     true,
			Score:     0,
			Color:     SnakeColor(i),
		}
	}
}

func clampCoord(v, bound int) int {
	if v < 0 {
		return 0
	}
	if v >= bound {
		return bound - 1
	}
	return v
}

// SpawnFood seeds the initial food supply for a fresh match.
func SpawnFood(st *State, cfg Settings, rng *RNG) {
	replenishFood(st, cfg, rng)
}
