package engine

import (
	"math"
	"math/rand/v2"
	"time"
)

// RNG is a thin convenience wrapper around math/rand/v2.
// Tests seed it for repeatable runs; the server seeds it from the clock.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a deterministic RNG using the provided seed.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(uint64(seed), 0))}
}

// NewClockRNG seeds from the current time.
func NewClockRNG() *RNG {
	return NewRNG(time.Now().UnixNano())
}

// Float64 returns a value in [0, 1).
func (r *RNG) Float64() float64 {
	return r.r.Float64()
}

// Range returns a value in [lo, hi).
func (r *RNG) Range(lo, hi float64) float64 {
	return lo + r.r.Float64()*(hi-lo)
}

// IntN returns a value in [0, n). It returns 0 when n <= 0.
func (r *RNG) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return r.r.IntN(n)
}

// Angle returns a heading in [0, 2π).
func (r *RNG) Angle() float64 {
	return r.r.Float64() * 2 * math.Pi
}

// Uint8 returns a random byte.
func (r *RNG) Uint8() uint8 {
	return uint8(r.r.IntN(256))
}
