package sim

// Settings fixes the rules for one match. Settings are part of the step
// contract: the same settings must be used on both ends of a replay.
type Settings struct {
	GridWidth          int     `json:"gridWidth"`
	GridHeight         int     `json:"gridHeight"`
	WrapEnabled        bool    `json:"wrapEnabled"`
	TickRate           int     `json:"tickRate"`
	MaxPlayers         int     `json:"maxPlayers"`
	FoodCount          int     `json:"foodCount"`
	SpecialFoodChance  float64 `json:"specialFoodChance"`
	BoostEnabled       bool    `json:"boostEnabled"`
	ProjectilesEnabled bool    `json:"projectilesEnabled"`
}

const (
	specialFoodValue = 5
	normalFoodValue  = 1

	// Death converts at most this many tail segments back into food.
	deathFoodDrops = 3

	// Projectile tuning for extended mode.
	projectileSpeed    = 2
	projectileLifetime = 32
	projectileDamage   = 3
	fireSegmentCost    = 1

	// Firing requires enough body to pay the cost and still live.
	minFireLength = fireSegmentCost + 1

	startingSnakeLength = 3
)

// DefaultSettings mirrors the values used when a host supplies no overrides.
func DefaultSettings() Settings {
	return Settings{
		GridWidth:          40,
		GridHeight:         30,
		WrapEnabled:        false,
		TickRate:           10,
		MaxPlayers:         8,
		FoodCount:          5,
		SpecialFoodChance:  0.1,
		BoostEnabled:       true,
		ProjectilesEnabled: true,
	}
}

// Normalized clamps nonsense values back to sane defaults. Hosts can only
// narrow a match within these bounds, never break the simulation.
func (s Settings) Normalized() Settings {
	defaults := DefaultSettings()
	if s.GridWidth < 10 || s.GridWidth > 200 {
		s.GridWidth = defaults.GridWidth
	}
	if s.GridHeight < 10 || s.GridHeight > 200 {
		s.GridHeight = defaults.GridHeight
	}
	if s.TickRate < 4 || s.TickRate > 30 {
		s.TickRate = defaults.TickRate
	}
	if s.MaxPlayers < 2 || s.MaxPlayers > 16 {
		s.MaxPlayers = defaults.MaxPlayers
	}
	if s.FoodCount < 1 || s.FoodCount > 64 {
		s.FoodCount = defaults.FoodCount
	}
	if s.SpecialFoodChance < 0 || s.SpecialFoodChance > 1 {
		s.SpecialFoodChance = defaults.SpecialFoodChance
	}
	return s
}
