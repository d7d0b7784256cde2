// Package progression contains the core leveling domain model: per-guild user
// scores, the XP/level formula, multipliers, and exclusion rules. This is the
// heart of the business logic - there are no external dependencies here.
package progression

import (
	"errors"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// UserID identifies a user on the chat platform. Opaque to the engine.
type UserID string

// IsValid checks that the UserID is non-empty and contains no whitespace.
func (u UserID) IsValid() bool {
	s := string(u)
	return len(s) > 0 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string form of the user ID.
func (u UserID) String() string {
	return string(u)
}

// GuildID identifies a guild (an isolated community). All progression state is
// scoped per guild; identical user IDs in different guilds are unrelated.
type GuildID string

// IsValid checks that the GuildID is non-empty and contains no whitespace.
func (g GuildID) IsValid() bool {
	s := string(g)
	return len(s) > 0 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string form of the guild ID.
func (g GuildID) String() string {
	return string(g)
}

// ChannelID identifies a channel within a guild.
type ChannelID string

// IsValid checks that the ChannelID is non-empty.
func (c ChannelID) IsValid() bool {
	return len(c) > 0
}

// RoleID identifies a role within a guild.
type RoleID string

// XP represents cumulative experience points. Never negative in stored state.
type XP int64

// IsValid checks that the XP value is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Level represents the level derived from XP. Always >= 1 in stored state.
type Level int

// IsValid checks that the level is at least 1.
func (l Level) IsValid() bool {
	return l >= 1
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidUserID - user ID is empty or malformed.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidGuildID - guild ID is empty or malformed.
	ErrInvalidGuildID = errors.New("invalid guild id")

	// ErrInvalidAmount - amount must be a positive integer.
	ErrInvalidAmount = errors.New("invalid amount: must be positive")

	// ErrInvalidLevel - level must be >= 1.
	ErrInvalidLevel = errors.New("invalid level: must be at least 1")

	// ErrMultiplierOutOfRange - multiplier outside the [0.1, 10.0] bound.
	ErrMultiplierOutOfRange = errors.New("multiplier out of range: must be between 0.1 and 10.0")

	// ErrInvalidTargetType - multiplier target must be role or channel.
	ErrInvalidTargetType = errors.New("invalid target type: must be role or channel")

	// ErrInvalidTargetID - target reference is empty or malformed.
	ErrInvalidTargetID = errors.New("invalid target id")

	// ErrInvalidExclusionKind - exclusion kind must be role, user, or channel.
	ErrInvalidExclusionKind = errors.New("invalid exclusion kind: must be role, user, or channel")

	// ErrInvalidBackgroundRef - background reference is empty.
	ErrInvalidBackgroundRef = errors.New("invalid background reference")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER SCORE
// ══════════════════════════════════════════════════════════════════════════════

// UserScore is the per-(user, guild) progression record. The invariant
// Level == LevelFor(XP) must hold after every mutation; the store is
// responsible for recomputing Level whenever XP changes (and for deriving XP
// from Level on direct level edits).
type UserScore struct {
	// UserID - the user this score belongs to.
	UserID UserID

	// GuildID - the guild this score is scoped to.
	GuildID GuildID

	// XP - cumulative experience points. Non-negative.
	XP XP

	// Level - level derived from XP via LevelFor.
	Level Level

	// BackgroundRef - optional opaque reference to a rank-card background:
	// either a locally stored path or a remote URL. Empty means unset.
	BackgroundRef string

	// UpdatedAt - time of the last mutation. Zero for default records that
	// have never been persisted.
	UpdatedAt time.Time
}

// NewUserScore returns the default record for a (user, guild) pair that has no
// persisted row yet. Reads never fail with "not found"; they return this.
func NewUserScore(userID UserID, guildID GuildID) *UserScore {
	return &UserScore{
		UserID:  userID,
		GuildID: guildID,
		XP:      0,
		Level:   1,
	}
}

// HasBackground returns true if a custom background is set.
func (s *UserScore) HasBackground() bool {
	return s.BackgroundRef != ""
}

// ConsistentLevel reports whether the stored level matches the formula.
func (s *UserScore) ConsistentLevel() bool {
	return s.Level == LevelFor(s.XP)
}

// Clone creates a copy of the record.
func (s *UserScore) Clone() *UserScore {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// BACKGROUND REFERENCE NORMALIZATION
// ══════════════════════════════════════════════════════════════════════════════

// backgroundsDir is the canonical prefix for locally stored background files.
const backgroundsDir = "./data/backgrounds/"

// NormalizeBackgroundRef canonicalizes a background reference before storage.
// Remote URLs pass through unchanged; anything else is treated as a local file
// name and prefixed with the backgrounds directory unless already prefixed.
func NormalizeBackgroundRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrInvalidBackgroundRef
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	if strings.HasPrefix(ref, backgroundsDir) {
		return ref, nil
	}
	return backgroundsDir + ref, nil
}
