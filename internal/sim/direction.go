package sim

// Direction identifies the facing of a snake or projectile.
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Directions lists every cardinal direction in a fixed order. The order is
// load-bearing: spawn code draws starting directions through the RNG by
// index, so reordering changes replays.
var Directions = [4]Direction{DirectionUp, DirectionDown, DirectionLeft, DirectionRight}

// ParseDirection validates a wire-provided direction string.
func ParseDirection(raw string) (Direction, bool) {
	switch Direction(raw) {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return Direction(raw), true
	default:
		return "", false
	}
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionUp:
		return DirectionDown
	case DirectionDown:
		return DirectionUp
	case DirectionLeft:
		return DirectionRight
	case DirectionRight:
		return DirectionLeft
	default:
		return d
	}
}

// Offset returns the unit grid delta for one move in this direction.
func (d Direction) Offset() (dx, dy int) {
	switch d {
	case DirectionUp:
		return 0, -1
	case DirectionDown:
		return 0, 1
	case DirectionLeft:
		return -1, 0
	case DirectionRight:
		return 1, 0
	default:
		return 0, 0
	}
}
