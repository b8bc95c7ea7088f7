// Package leveling holds the pure XP arithmetic: the level threshold curve,
// tier-role targets and role multipliers.
package leveling

import "math"

// MaxLevel is the highest reachable level. XP is capped at MaxXP, the
// threshold of MaxLevel, so every stored value stays exact in a float64.
const (
	MaxLevel int64 = 100_000
	MaxXP    int64 = 5*MaxLevel*MaxLevel + 50*MaxLevel + 100
)

// XPForLevel returns the cumulative XP required to reach level. Levels above
// MaxLevel saturate at MaxXP.
func XPForLevel(level int64) int64 {
	if level <= 0 {
		return 0
	}
	if level >= MaxLevel {
		return MaxXP
	}
	return 5*level*level + 50*level + 100
}

// LevelForXP returns the largest level whose cumulative threshold is <= xp.
// Negative xp is treated as zero and xp above MaxXP as MaxXP.
func LevelForXP(xp int64) int64 {
	if xp < XPForLevel(1) {
		return 0
	}
	xp = min(xp, MaxXP)
	// Inverse of the quadratic, then nudged onto the exact integer boundary
	// so float rounding can never shift a stored level.
	level := int64((math.Sqrt(20*float64(xp)+500) - 50) / 10)
	level = max(0, min(level, MaxLevel))
	for level < MaxLevel && XPForLevel(level+1) <= xp {
		level++
	}
	for level > 0 && XPForLevel(level) > xp {
		level--
	}
	return level
}

// ClampXP bounds xp to [0, MaxXP].
func ClampXP(xp int64) int64 {
	return max(0, min(xp, MaxXP))
}

// Progress describes how far xp is into its current level.
type Progress struct {
	Level     int64
	IntoLevel int64
	Span      int64
}

// Fraction returns IntoLevel/Span in [0, 1), or 1 at MaxLevel.
func (p Progress) Fraction() float64 {
	if p.Span <= 0 {
		return 1
	}
	return float64(p.IntoLevel) / float64(p.Span)
}

// ProgressOf computes the progress toward the level after the one xp sits in.
func ProgressOf(xp int64) Progress {
	level := LevelForXP(xp)
	floor := XPForLevel(level)
	return Progress{
		Level:     level,
		IntoLevel: xp - floor,
		Span:      XPForLevel(level+1) - floor,
	}
}
