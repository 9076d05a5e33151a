// Package rules contains the pure calculation logic for game mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

// MassDecayFactor is the fraction of mass a cell keeps per update pass
// before anti-teaming is applied.
func MassDecayFactor(rate, decayMod float64) float64 {
	return 1 - rate*decayMod*0.025
}

// TeamMultiplier maps a client's accumulated decay multiplier to the
// divisor applied to the decay factor. A neutral client (1) yields 1.
func TeamMultiplier(massDecayMult float64) float64 {
	return (massDecayMult-1)/1111 + 1
}

// TeamDecayFactor attenuates the global factor for a suspected teamer.
// A larger multiplier keeps less mass per pass, so the client decays faster.
func TeamDecayFactor(global, massDecayMult float64) float64 {
	return global * (1 / TeamMultiplier(massDecayMult))
}

// FoodSpawnCount is how many pellets to add this tick: the gap to the
// cap, limited by the per-tick batch. Never negative.
func FoodSpawnCount(maxAmount, current, batchCap int) int {
	n := min(maxAmount-current, batchCap)
	if n < 0 {
		return 0
	}
	return n
}

// VirusSpawnCount closes the gap to the minimum population exactly.
func VirusSpawnCount(minAmount, current int) int {
	if current >= minAmount {
		return 0
	}
	return minAmount - current
}
