package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMultiplier_Validation(t *testing.T) {
	tests := []struct {
		name       string
		guildID    GuildID
		targetType TargetType
		targetID   string
		value      float64
		wantErr    error
	}{
		{"valid role", "g1", TargetRole, "r1", 2.0, nil},
		{"valid channel", "g1", TargetChannel, "c1", 0.5, nil},
		{"lower bound", "g1", TargetRole, "r1", 0.1, nil},
		{"upper bound", "g1", TargetRole, "r1", 10.0, nil},
		{"below bound", "g1", TargetRole, "r1", 0.05, ErrMultiplierOutOfRange},
		{"above bound", "g1", TargetRole, "r1", 10.5, ErrMultiplierOutOfRange},
		{"zero value", "g1", TargetRole, "r1", 0, ErrMultiplierOutOfRange},
		{"bad type", "g1", TargetType("member"), "r1", 2.0, ErrInvalidTargetType},
		{"empty guild", "", TargetRole, "r1", 2.0, ErrInvalidGuildID},
		{"empty target", "g1", TargetRole, "", 2.0, ErrInvalidTargetID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMultiplier(tt.guildID, tt.targetType, tt.targetID, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, m)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.value, m.Value)
		})
	}
}

func TestEffectiveMultiplier_RolesDoNotStack(t *testing.T) {
	// Only the single highest role multiplier applies.
	got := EffectiveMultiplier(1.0, []float64{1.5, 3.0, 2.0})
	assert.InDelta(t, 3.0, got, 1e-9)
}

func TestEffectiveMultiplier_ChannelTimesMaxRole(t *testing.T) {
	got := EffectiveMultiplier(2.0, []float64{1.5})
	assert.InDelta(t, 3.0, got, 1e-9)
}

func TestEffectiveMultiplier_Defaults(t *testing.T) {
	assert.InDelta(t, 1.0, EffectiveMultiplier(0, nil), 1e-9)
	assert.InDelta(t, 2.0, EffectiveMultiplier(2.0, nil), 1e-9)
	assert.InDelta(t, 1.0, EffectiveMultiplier(1.0, []float64{}), 1e-9)
}

func TestEffectiveMultiplier_RoleBelowOneIgnoredByMax(t *testing.T) {
	// max(1.0, 0.5) = 1.0: a sub-1.0 role multiplier never lowers the award.
	got := EffectiveMultiplier(1.0, []float64{0.5})
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestEffectiveMultiplier_ClampsOutOfBoundValues(t *testing.T) {
	// Defense in depth: values written around validation are clamped.
	got := EffectiveMultiplier(50.0, []float64{100.0})
	assert.InDelta(t, MaxMultiplier*MaxMultiplier, got, 1e-9)

	got = EffectiveMultiplier(0.01, nil)
	assert.InDelta(t, MinMultiplier, got, 1e-9)
}

func TestClampMultiplier(t *testing.T) {
	assert.Equal(t, MinMultiplier, ClampMultiplier(0.0001))
	assert.Equal(t, MaxMultiplier, ClampMultiplier(11.0))
	assert.Equal(t, 2.5, ClampMultiplier(2.5))
}
