package sim

// Inputs carries everything buffered for one tick. Directions are
// last-writer-wins per player; boost and fire flags only matter when the
// matching extended-mode setting is enabled.
type Inputs struct {
	Directions map[string]Direction
	Boosts     map[string]bool
	Fires      map[string]bool
}

// Step advances the state by exactly one tick. It is pure and synchronous:
// given identical state, inputs, settings, and RNG state it produces a
// bit-identical result on every platform, which the reconciliation and
// hashing layers depend on.
//
// Phase order is part of the contract: direction updates, movement and
// eating, collision resolution, projectile spawn/advance, food
// replenishment. Snakes are always visited in sorted-id order so RNG
// consumption stays deterministic.
func Step(st *State, in Inputs, cfg Settings, rng *RNG) {
	ids := st.SortedSnakeIDs()

	applyDirections(st, ids, in.Directions)
	moveSnakes(st, ids, in.Boosts, cfg)
	resolveCollisions(st, ids)
	if cfg.ProjectilesEnabled {
		spawnProjectiles(st, ids, in.Fires, cfg)
		advanceProjectiles(st, ids, cfg)
	}
	replenishFood(st, cfg, rng)
}

// applyDirections adopts buffered direction changes, silently dropping any
// input that would reverse a snake onto itself.
func applyDirections(st *State, ids []string, directions map[string]Direction) {
	for _, id := range ids {
		snake := st.Snakes[id]
		if !snake.Alive {
			continue
		}
		input, ok := directions[id]
		if !ok {
			continue
		}
		if input == snake.Direction.Opposite() {
			continue
		}
		if _, valid := ParseDirection(string(input)); !valid {
			continue
		}
		snake.Direction = input
	}
}

func moveSnakes(st *State, ids []string, boosts map[string]bool, cfg Settings) {
	for _, id := range ids {
		snake := st.Snakes[id]
		if !snake.Alive {
			continue
		}
		moves := 1
		if cfg.BoostEnabled && boosts[id] {
			moves = 2
		}
		for i := 0; i < moves && snake.Alive; i++ {
			moveOnce(st, snake, cfg)
		}
	}
}

// moveOnce advances a snake by a single cell, handling wrap, out-of-bounds
// death, and food consumption.
func moveOnce(st *State, snake *Snake, cfg Settings) {
	dx, dy := snake.Direction.Offset()
	head := snake.Head()
	next := Position{X: head.X + dx, Y: head.Y + dy}

	if cfg.WrapEnabled {
		next.X = wrap(next.X, cfg.GridWidth)
		next.Y = wrap(next.Y, cfg.GridHeight)
	} else if next.X < 0 || next.X >= cfg.GridWidth || next.Y < 0 || next.Y >= cfg.GridHeight {
		killSnake(st, snake)
		return
	}

	snake.Body = append([]Position{next}, snake.Body...)

	if idx := foodAt(st, next); idx >= 0 {
		food := st.Foods[idx]
		st.Foods = append(st.Foods[:idx], st.Foods[idx+1:]...)
		snake.Score += food.Value
		st.Events = append(st.Events, Event{Kind: EventEat, PlayerID: snake.PlayerID, Position: next, Value: food.Value})
		// Growth happens entirely this tick: keep the tail and duplicate it
		// value-1 times, for value new segments total.
		tail := snake.Body[len(snake.Body)-1]
		for i := 0; i < food.Value-1; i++ {
			snake.Body = append(snake.Body, tail)
		}
		return
	}

	snake.Body = snake.Body[:len(snake.Body)-1]
}

func wrap(v, bound int) int {
	v %= bound
	if v < 0 {
		v += bound
	}
	return v
}

func foodAt(st *State, pos Position) int {
	for i, food := range st.Foods {
		if food.Position == pos {
			return i
		}
	}
	return -1
}

// resolveCollisions evaluates every still-living snake against the
// post-movement state. Deaths are collected first and applied afterwards so
// two snakes meeting head-on both die; neither gets priority.
func resolveCollisions(st *State, ids []string) {
	dead := make([]string, 0)
	for _, id := range ids {
		snake := st.Snakes[id]
		if !snake.Alive {
			continue
		}
		head := snake.Head()

		collided := false
		for _, seg := range snake.Body[1:] {
			if seg == head {
				collided = true
				break
			}
		}
		if !collided {
			for _, otherID := range ids {
				if otherID == id {
					continue
				}
				other := st.Snakes[otherID]
				if !other.Alive {
					continue
				}
				for _, seg := range other.Body {
					if seg == head {
						collided = true
						break
					}
				}
				if collided {
					break
				}
			}
		}
		if collided {
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		killSnake(st, st.Snakes[id])
	}
}

// spawnProjectiles turns buffered fire flags into shots. Firing costs tail
// segments; a snake too short to pay simply doesn't fire.
func spawnProjectiles(st *State, ids []string, fires map[string]bool, cfg Settings) {
	for _, id := range ids {
		if !fires[id] {
			continue
		}
		snake := st.Snakes[id]
		if snake == nil || !snake.Alive || len(snake.Body) < minFireLength {
			continue
		}
		snake.Body = snake.Body[:len(snake.Body)-fireSegmentCost]
		dx, dy := snake.Direction.Offset()
		head := snake.Head()
		origin := Position{X: head.X + dx, Y: head.Y + dy}
		if cfg.WrapEnabled {
			origin.X = wrap(origin.X, cfg.GridWidth)
			origin.Y = wrap(origin.Y, cfg.GridHeight)
		}
		st.Events = append(st.Events, Event{Kind: EventSpawn, PlayerID: id, Position: origin})
		// A shot spawned onto another snake impacts immediately; advancement
		// only checks cells after the origin.
		if target := snakeAt(st, ids, origin, id); target != nil {
			damageSnake(st, target, origin)
			continue
		}
		st.Projectiles = append(st.Projectiles, Projectile{
			Position:  origin,
			Direction: snake.Direction,
			OwnerID:   id,
			Lifetime:  projectileLifetime,
			Speed:     projectileSpeed,
		})
	}
}

// advanceProjectiles moves each shot cell by cell so a fast projectile
// cannot pass through a snake between cells. A projectile is consumed after
// at most one hit.
func advanceProjectiles(st *State, ids []string, cfg Settings) {
	kept := st.Projectiles[:0]
	for _, projectile := range st.Projectiles {
		projectile.Lifetime--
		removed := false
		dx, dy := projectile.Direction.Offset()
		for step := 0; step < projectile.Speed; step++ {
			projectile.Position.X += dx
			projectile.Position.Y += dy
			if cfg.WrapEnabled {
				projectile.Position.X = wrap(projectile.Position.X, cfg.GridWidth)
				projectile.Position.Y = wrap(projectile.Position.Y, cfg.GridHeight)
			} else if projectile.Position.X < 0 || projectile.Position.X >= cfg.GridWidth ||
				projectile.Position.Y < 0 || projectile.Position.Y >= cfg.GridHeight {
				removed = true
				break
			}
			if target := snakeAt(st, ids, projectile.Position, projectile.OwnerID); target != nil {
				damageSnake(st, target, projectile.Position)
				removed = true
				break
			}
		}
		if removed || projectile.Lifetime <= 0 {
			continue
		}
		kept = append(kept, projectile)
	}
	st.Projectiles = kept
}

func snakeAt(st *State, ids []string, pos Position, excludeID string) *Snake {
	for _, id := range ids {
		if id == excludeID {
			continue
		}
		snake := st.Snakes[id]
		if !snake.Alive {
			continue
		}
		for _, seg := range snake.Body {
			if seg == pos {
				return snake
			}
		}
	}
	return nil
}

// damageSnake shaves segments off the struck snake's tail, killing it when
// too little body remains to absorb the hit.
func damageSnake(st *State, snake *Snake, at Position) {
	st.Events = append(st.Events, Event{Kind: EventHit, PlayerID: snake.PlayerID, Position: at, Value: projectileDamage})
	if len(snake.Body) <= projectileDamage {
		killSnake(st, snake)
		return
	}
	snake.Body = snake.Body[:len(snake.Body)-projectileDamage]
}

// killSnake marks the snake dead, emits the death event, and converts up to
// three tail segments into food. Conversions landing on occupied cells are
// silently dropped rather than stacked.
func killSnake(st *State, snake *Snake) {
	if !snake.Alive {
		return
	}
	snake.Alive = false
	st.Events = append(st.Events, Event{Kind: EventDeath, PlayerID: snake.PlayerID, Position: snake.Head()})

	drops := deathFoodDrops
	if len(snake.Body) < drops {
		drops = len(snake.Body)
	}
	for i := 0; i < drops; i++ {
		pos := snake.Body[len(snake.Body)-1-i]
		if livingSnakeCovers(st, pos) || foodAt(st, pos) >= 0 {
			continue
		}
		st.Foods = append(st.Foods, Food{Position: pos, Kind: FoodNormal, Value: normalFoodValue})
	}
}

func livingSnakeCovers(st *State, pos Position) bool {
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
	return false
}

// replenishFood tops the food supply back up to the configured target,
// drawing uniformly from the currently empty cells. Stops early when the
// grid has no room left.
func replenishFood(st *State, cfg Settings, rng *RNG) {
	for len(st.Foods) < cfg.FoodCount {
		cell, ok := randomEmptyCell(st, cfg, rng)
		if !ok {
			return
		}
		food := Food{Position: cell, Kind: FoodNormal, Value: normalFoodValue}
		if rng.Float64() < cfg.SpecialFoodChance {
			food.Kind = FoodSpecial
			food.Value = specialFoodValue
		}
		st.Foods = append(st.Foods, food)
	}
}

// randomEmptyCell enumerates empty cells in row-major order and picks one by
// index, so the draw is uniform and replay-stable.
func randomEmptyCell(st *State, cfg Settings, rng *RNG) (Position, bool) {
	empty := make([]Position, 0, cfg.GridWidth*cfg.GridHeight)
	for y := 0; y < cfg.GridHeight; y++ {
		for x := 0; x < cfg.GridWidth; x++ {
			pos := Position{X: x, Y: y}
			if !st.occupied(pos) {
				empty = append(empty, pos)
			}
		}
	}
	if len(empty) == 0 {
		return Position{}, false
	}
	return empty[rng.Intn(len(empty))], true
}
