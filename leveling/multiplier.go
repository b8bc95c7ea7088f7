package leveling

import "math"

// Multipliers maps a role ID to an XP multiplier.
type Multipliers map[string]float64

// For returns the largest multiplier among roleIDs, or 1.0 when none match.
func (m Multipliers) For(roleIDs []string) float64 {
	best, matched := 1.0, false
	for _, id := range roleIDs {
		v, ok := m[id]
		if !ok {
			continue
		}
		if !matched || v > best {
			best = v
			matched = true
		}
	}
	return best
}

// Scale returns floor(base * multiplier), never below zero.
func Scale(base int64, multiplier float64) int64 {
	scaled := math.Floor(float64(base) * multiplier)
	if scaled <= 0 || math.IsNaN(scaled) {
		return 0
	}
	return int64(scaled)
}
