package sim

import "sort"

// Position is a discrete grid cell.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Snake is one player's body on the grid. Body is ordered head first; the
// head cell drives every collision check. A living snake always has at
// least one segment.
type Snake struct {
	PlayerID  string     `json:"playerId"`
	Body      []Position `json:"body"`
	Direction Direction  `json:"direction"`
	Alive     bool       `json:"alive"`
	Score     int        `json:"score"`
	Color     string     `json:"color"`
}

// Head returns the leading segment. Only meaningful while the body is
// non-empty.
func (s *Snake) Head() Position {
	return s.Body[0]
}

// Clone deep-copies the snake.
func (s *Snake) Clone() *Snake {
	if s == nil {
		return nil
	}
	cloned := *s
	cloned.Body = append([]Position(nil), s.Body...)
	return &cloned
}

// FoodKind distinguishes ordinary pellets from high-value specials.
type FoodKind string

const (
	FoodNormal  FoodKind = "normal"
	FoodSpecial FoodKind = "special"
)

// Food is a consumable item on the grid.
type Food struct {
	Position Position `json:"position"`
	Kind     FoodKind `json:"kind"`
	Value    int      `json:"value"`
}

// Projectile is a fired shot travelling across the grid.
type Projectile struct {
	Position  Position  `json:"position"`
	Direction Direction `json:"direction"`
	OwnerID   string    `json:"ownerId"`
	Lifetime  int       `json:"lifetime"`
	Speed     int       `json:"speed"`
}

// EventKind tags a transient per-tick event.
type EventKind string

const (
	EventEat   EventKind = "eat"
	EventDeath EventKind = "death"
	EventSpawn EventKind = "spawn"
	EventHit   EventKind = "hit"
)

// Event records something that happened during the last step. Events are
// drained after one broadcast cycle and never persist.
type Event struct {
	Kind     EventKind `json:"kind"`
	PlayerID string    `json:"playerId,omitempty"`
	Position Position  `json:"position"`
	Value    int       `json:"value,omitempty"`
}

// State is the full simulation aggregate for one room.
type State struct {
	Snakes      map[string]*Snake `json:"snakes"`
	Foods       []Food            `json:"foods"`
	Projectiles []Projectile      `json:"projectiles"`
	Events      []Event           `json:"events,omitempty"`
}

// NewState returns an empty simulation state.
func NewState() *State {
	return &State{Snakes: make(map[string]*Snake)}
}

// Clone deep-copies the state so a caller can step it speculatively.
func (st *State) Clone() *State {
	if st == nil {
		return nil
	}
	cloned := &State{
		Snakes:      make(map[string]*Snake, len(st.Snakes)),
		Foods:       append([]Food(nil), st.Foods...),
		Projectiles: append([]Projectile(nil), st.Projectiles...),
		Events:      append([]Event(nil), st.Events...),
	}
	for id, snake := range st.Snakes {
		cloned.Snakes[id] = snake.Clone()
	}
	return cloned
}

// DrainEvents returns the buffered events and clears them.
func (st *State) DrainEvents() []Event {
	if len(st.Events) == 0 {
		return nil
	}
	events := st.Events
	st.Events = nil
	return events
}

// LivingSnakes counts snakes still alive.
func (st *State) LivingSnakes() int {
	count := 0
	for _, snake := range st.Snakes {
		if snake.Alive {
			count++
		}
	}
	return count
}

// SortedSnakeIDs returns snake ids in ascending order. Every loop that
// touches the RNG iterates in this order so two simulations fed the same
// seed consume randomness identically.
func (st *State) SortedSnakeIDs() []string {
	ids := make([]string, 0, len(st.Snakes))
	for id := range st.Snakes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// occupied reports whether any snake segment, food, or projectile sits on
// the cell.
func (st *State) occupied(pos Position) bool {
	for _, snake := range st.Snakes {
		if !snake.Alive {
			continue
		}
		for _, seg := range snake.Body {
			if seg == pos {
				return true
			}
		}
	}
	for _, food := range st.Foods {
		if food.Position == pos {
			return true
		}
	}
	for _, projectile := range st.Projectiles {
		if projectile.Position == pos {
			return true
		}
	}
	return false
}
