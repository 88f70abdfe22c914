package sim

import "testing"

func TestSpawnSnakesPlacesEveryPlayer(t *testing.T) {
	cfg := testSettings()
	cfg.GridWidth = 30
	cfg.GridHeight = 30

	st := NewState()
	ids := []string{"a", "b", "c", "d"}
	SpawnSnakes(st, ids, cfg, NewRNG(11))

	if len(st.Snakes) != len(ids) {
		t.Fatalf("expected %d snakes, got %d", len(ids), len(st.Snakes))
	}
	heads := make(map[Position]string)
	for _, id := range ids {
		snake := st.Snakes[id]
		if snake == nil || !snake.Alive {
			t.Fatalf("snake %s missing or dead", id)
		}
		if len(snake.Body) != startingSnakeLength {
			t.Fatalf("snake %s: expected length %d, got %d", id, startingSnakeLength, len(snake.Body))
		}
		head := snake.Head()
		if head.X < 0 || head.X >= cfg.GridWidth || head.Y < 0 || head.Y >= cfg.GridHeight {
			t.Fatalf("snake %s spawned off-grid at %+v", id, head)
		}
		if other, taken := heads[head]; taken {
			t.Fatalf("snakes %s and %s share head %+v", id, other, head)
		}
		heads[head] = id
		if snake.Color == "" {
			t.Fatalf("snake %s has no color", id)
		}
	}
}

func TestSpawnSnakesDeterministic(t *testing.T) {
	cfg := testSettings()
	ids := []string{"a", "b", "c"}

	first := NewState()
	SpawnSnakes(first, ids, cfg, NewRNG(21))
	second := NewState()
	SpawnSnakes(second, ids, cfg, NewRNG(21))

	if HashState(first) != HashState(second) {
		t.Fatalf("spawn is not deterministic for a fixed seed")
	}
}

func TestSpawnFoodRespectsTarget(t *testing.T) {
	cfg := testSettings()
	cfg.FoodCount = 7

	st := NewState()
	SpawnFood(st, cfg, NewRNG(3))
	if len(st.Foods) != cfg.FoodCount {
		t.Fatalf("expected %d foods, got %d", cfg.FoodCount, len(st.Foods))
	}
	seen := make(map[Position]bool)
	for _, food := range st.Foods {
		if seen[food.Position] {
			t.Fatalf("two foods share cell %+v", food.Position)
		}
		seen[food.Position] = true
	}
}
