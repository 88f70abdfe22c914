package sim

// RNG is a deterministic xorshift64* generator. The client reconstructs the
// server's randomness from the seed shared at join time, so the sequence
// must be bit-identical across platforms; math/rand is deliberately not
// used anywhere in the simulation.
type RNG struct {
	state uint64
}

// NewRNG seeds a generator. A zero seed is remapped because xorshift has a
// zero fixed point.
func NewRNG(seed int64) *RNG {
	state := uint64(seed)
	if state == 0 {
		state = 0x9E3779B97F4A7C15
	}
	return &RNG{state: state}
}

func (r *RNG) next() uint64 {
	x := r.state
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	r.state = x
	return x * 0x2545F4914F6CDD1D
}

// Float64 returns the next value in [0, 1).
func (r *RNG) Float64() float64 {
	// Top 53 bits give a uniform double without platform-dependent rounding.
	return float64(r.next()>>11) / (1 << 53)
}

// Intn returns a uniform value in [0, n). n must be positive.
func (r *RNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.next() % uint64(n))
}

// PickDirection draws one of the four cardinal directions.
func (r *RNG) PickDirection() Direction {
	return Directions[r.Intn(len(Directions))]
}
