package progression

import "math"

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL FORMULA
// Pure bidirectional mapping between cumulative XP and level. Growth is
// quadratic: the XP gap between consecutive levels increases linearly, so
// progression decelerates as users climb.
// ══════════════════════════════════════════════════════════════════════════════

// LevelFor returns the level derived from cumulative XP.
// Formula: floor(0.1 * sqrt(xp)) + 1. Negative input is treated as zero.
func LevelFor(xp XP) Level {
	if xp < 0 {
		xp = 0
	}
	return Level(math.Floor(0.1*math.Sqrt(float64(xp)))) + 1
}

// XPFloorFor returns the minimum XP at which LevelFor yields exactly the given
// level. Inverse of LevelFor: floor(((level-1)/0.1)^2). Level 1 floors at 0.
func XPFloorFor(level Level) XP {
	if level <= 1 {
		return 0
	}
	return XP(math.Floor(math.Pow(float64(level-1)/0.1, 2)))
}

// XPToNextLevel returns how much XP is still needed to reach the next level.
func XPToNextLevel(xp XP) XP {
	next := XPFloorFor(LevelFor(xp) + 1)
	if next <= xp {
		return 0
	}
	return next - xp
}

// LevelProgress returns progress within the current level as a fraction in
// [0.0, 1.0).
func LevelProgress(xp XP) float64 {
	if xp < 0 {
		xp = 0
	}
	level := LevelFor(xp)
	floor := XPFloorFor(level)
	ceil := XPFloorFor(level + 1)
	if ceil <= floor {
		return 0
	}
	return float64(xp-floor) / float64(ceil-floor)
}
