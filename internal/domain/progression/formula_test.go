package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFor_Baseline(t *testing.T) {
	assert.Equal(t, Level(1), LevelFor(0))
	assert.Equal(t, Level(1), LevelFor(99))
	assert.Equal(t, Level(2), LevelFor(100))
	assert.Equal(t, Level(2), LevelFor(101))
	assert.Equal(t, Level(3), LevelFor(400))
	assert.Equal(t, Level(11), LevelFor(10000))
}

func TestLevelFor_NegativeTreatedAsZero(t *testing.T) {
	assert.Equal(t, Level(1), LevelFor(-50))
}

func TestXPFloorFor_Baseline(t *testing.T) {
	assert.Equal(t, XP(0), XPFloorFor(1))
	assert.Equal(t, XP(100), XPFloorFor(2))
	assert.Equal(t, XP(400), XPFloorFor(3))
	assert.Equal(t, XP(900), XPFloorFor(4))
}

func TestFormula_RoundTripFloorLaw(t *testing.T) {
	for l := Level(1); l <= 1000; l++ {
		floor := XPFloorFor(l)
		require.Equal(t, l, LevelFor(floor), "xpFloorFor(%d) = %d must map back to level %d", l, floor, l)
	}
}

func TestFormula_FloorIsMinimal(t *testing.T) {
	// One XP below the floor must still be the previous level.
	for l := Level(2); l <= 200; l++ {
		floor := XPFloorFor(l)
		require.Equal(t, l-1, LevelFor(floor-1), "xp just below floor of level %d", l)
	}
}

func TestLevelFor_Monotonic(t *testing.T) {
	prev := LevelFor(0)
	for xp := XP(1); xp <= 50000; xp++ {
		cur := LevelFor(xp)
		require.GreaterOrEqual(t, cur, prev, "levelFor must be non-decreasing at xp=%d", xp)
		prev = cur
	}
}

func TestXPToNextLevel(t *testing.T) {
	assert.Equal(t, XP(100), XPToNextLevel(0))
	assert.Equal(t, XP(1), XPToNextLevel(99))
	assert.Equal(t, XP(300), XPToNextLevel(100))
}

func TestLevelProgress_Bounds(t *testing.T) {
	assert.Equal(t, 0.0, LevelProgress(0))
	assert.InDelta(t, 0.5, LevelProgress(50), 0.01)

	for _, xp := range []XP{0, 1, 99, 100, 399, 400, 12345} {
		p := LevelProgress(xp)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.Less(t, p, 1.0)
	}
}
