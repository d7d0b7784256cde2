package progression

import "math"

// Base award bounds for a single qualifying activity event: an integer drawn
// uniformly from [BaseAwardMin, BaseAwardMax] inclusive.
const (
	BaseAwardMin = 5
	BaseAwardMax = 14
)

// DrawBaseAward converts a uniform draw in [0, BaseAwardMax-BaseAwardMin] into
// a base award. The caller owns the randomness source so the computation stays
// deterministic and testable.
func DrawBaseAward(draw int) XP {
	span := BaseAwardMax - BaseAwardMin
	if draw < 0 {
		draw = 0
	}
	if draw > span {
		draw = span
	}
	return XP(BaseAwardMin + draw)
}

// ScaleAward applies an effective multiplier to a base award and rounds
// half-up to the nearest integer. Rounding happens exactly once, after all
// multipliers are combined.
func ScaleAward(base XP, multiplier float64) XP {
	return XP(math.Floor(float64(base)*multiplier + 0.5))
}
