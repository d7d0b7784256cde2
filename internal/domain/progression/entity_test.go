package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUserScore_Defaults(t *testing.T) {
	s := NewUserScore("u1", "g1")
	assert.Equal(t, XP(0), s.XP)
	assert.Equal(t, Level(1), s.Level)
	assert.Empty(t, s.BackgroundRef)
	assert.False(t, s.HasBackground())
	assert.True(t, s.ConsistentLevel())
}

func TestNormalizeBackgroundRef(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare filename", "cat.png", "./data/backgrounds/cat.png"},
		{"already prefixed", "./data/backgrounds/cat.png", "./data/backgrounds/cat.png"},
		{"http url", "http://example.com/bg.png", "http://example.com/bg.png"},
		{"https url", "https://example.com/bg.png", "https://example.com/bg.png"},
		{"whitespace trimmed", "  cat.png ", "./data/backgrounds/cat.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeBackgroundRef(tt.in)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NormalizeBackgroundRef("   ")
	assert.ErrorIs(t, err, ErrInvalidBackgroundRef)
}

func TestDrawBaseAward_Bounds(t *testing.T) {
	assert.Equal(t, XP(5), DrawBaseAward(0))
	assert.Equal(t, XP(14), DrawBaseAward(9))
	// Out-of-range draws are clamped rather than producing invalid awards.
	assert.Equal(t, XP(5), DrawBaseAward(-3))
	assert.Equal(t, XP(14), DrawBaseAward(99))
}

func TestScaleAward_RoundHalfUp(t *testing.T) {
	assert.Equal(t, XP(20), ScaleAward(10, 2.0))
	assert.Equal(t, XP(13), ScaleAward(5, 2.5))  // 12.5 rounds up
	assert.Equal(t, XP(4), ScaleAward(7, 0.5))   // 3.5 rounds up
	assert.Equal(t, XP(3), ScaleAward(7, 0.49))  // 3.43 rounds down
	assert.Equal(t, XP(7), ScaleAward(7, 1.0))
}

func TestDefaultGuildSettings(t *testing.T) {
	s := DefaultGuildSettings("g1")
	assert.Equal(t, 1, s.XPRate)
	assert.True(t, s.LevelUpMessagesEnabled)
	assert.NoError(t, s.Validate())

	s.XPRate = 0
	assert.ErrorIs(t, s.Validate(), ErrInvalidAmount)
}
