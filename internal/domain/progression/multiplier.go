package progression

// ══════════════════════════════════════════════════════════════════════════════
// MULTIPLIERS
// Per-guild, per-target XP multipliers. A target is either a channel or a
// role. Channel and role multipliers combine multiplicatively; among a user's
// roles only the single highest multiplier applies (role multipliers do not
// stack).
// ══════════════════════════════════════════════════════════════════════════════

// TargetType identifies what a multiplier is attached to.
type TargetType string

const (
	// TargetRole - multiplier attached to a role.
	TargetRole TargetType = "role"

	// TargetChannel - multiplier attached to a channel.
	TargetChannel TargetType = "channel"
)

// IsValid checks that the target type is one of the known kinds.
func (t TargetType) IsValid() bool {
	return t == TargetRole || t == TargetChannel
}

// Multiplier bounds enforced at write time and defensively at resolve time.
const (
	MinMultiplier = 0.1
	MaxMultiplier = 10.0

	// DefaultMultiplier is the effective value for targets with no row.
	DefaultMultiplier = 1.0
)

// Multiplier is a configured XP scale factor for a single target in a guild.
type Multiplier struct {
	GuildID    GuildID
	TargetType TargetType
	TargetID   string
	Value      float64
}

// NewMultiplier validates and constructs a multiplier row.
func NewMultiplier(guildID GuildID, targetType TargetType, targetID string, value float64) (*Multiplier, error) {
	if !guildID.IsValid() {
		return nil, ErrInvalidGuildID
	}
	if !targetType.IsValid() {
		return nil, ErrInvalidTargetType
	}
	if targetID == "" {
		return nil, ErrInvalidTargetID
	}
	if value < MinMultiplier || value > MaxMultiplier {
		return nil, ErrMultiplierOutOfRange
	}
	return &Multiplier{
		GuildID:    guildID,
		TargetType: targetType,
		TargetID:   targetID,
		Value:      value,
	}, nil
}

// ClampMultiplier forces a value into the configured bound. Used by the
// resolver so that a row written around validation can never distort awards
// beyond the allowed range.
func ClampMultiplier(v float64) float64 {
	if v < MinMultiplier {
		return MinMultiplier
	}
	if v > MaxMultiplier {
		return MaxMultiplier
	}
	return v
}

// EffectiveMultiplier combines a channel multiplier with a set of role
// multipliers: channel value times the maximum role value. Missing values
// default to 1.0. Both inputs are clamped.
func EffectiveMultiplier(channel float64, roles []float64) float64 {
	if channel == 0 {
		channel = DefaultMultiplier
	}
	maxRole := DefaultMultiplier
	for _, r := range roles {
		if r == 0 {
			continue
		}
		r = ClampMultiplier(r)
		if r > maxRole {
			maxRole = r
		}
	}
	return ClampMultiplier(channel) * maxRole
}
