package progression

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY PORTS
// Implemented by the persistence layer. All progression state is owned
// exclusively by these repositories; no other component touches storage.
// ══════════════════════════════════════════════════════════════════════════════

// DeltaResult is returned by ApplyXPDelta: the updated record plus whether the
// mutation crossed a level boundary upward.
type DeltaResult struct {
	Score     *UserScore
	OldLevel  Level
	LeveledUp bool
}

// ScoreRepository is the authoritative store for UserScore records.
//
// Concurrency contract: ApplyXPDelta must serialize read-modify-write per
// (user, guild) key. Concurrent awards for the same key must never produce a
// lost update. Cross-key operations carry no ordering guarantee.
type ScoreRepository interface {
	// GetUser returns the record for (userID, guildID). Never fails with
	// "not found": absent rows yield the default record (xp=0, level=1).
	GetUser(ctx context.Context, userID UserID, guildID GuildID) (*UserScore, error)

	// ApplyXPDelta atomically applies a delta to the user's XP and recomputes
	// the level. When floorAtZero is set the resulting XP is clamped at 0.
	// XP and level are persisted atomically with respect to each other.
	ApplyXPDelta(ctx context.Context, userID UserID, guildID GuildID, delta XP, floorAtZero bool) (*DeltaResult, error)

	// SetLevelDirectly sets the level and derives XP = XPFloorFor(level),
	// discarding any in-level progress. Administrative use only.
	SetLevelDirectly(ctx context.Context, userID UserID, guildID GuildID, newLevel Level) (*UserScore, error)

	// ResetUser deletes the row; subsequent reads revert to defaults.
	ResetUser(ctx context.Context, userID UserID, guildID GuildID) error

	// SetBackground stores a normalized background reference.
	SetBackground(ctx context.Context, userID UserID, guildID GuildID, ref string) error

	// ClearBackground removes the background reference.
	ClearBackground(ctx context.Context, userID UserID, guildID GuildID) error

	// ListTopByXP returns at most limit records ordered by XP descending.
	// Order among equal-XP records follows incidental storage order.
	ListTopByXP(ctx context.Context, guildID GuildID, limit int) ([]*UserScore, error)

	// RankOf returns 1 + count of guild rows with strictly greater XP. Users
	// with equal XP share a rank; the ranking is not dense.
	RankOf(ctx context.Context, userID UserID, guildID GuildID) (int, error)

	// CountInGuild returns the number of score rows in the guild.
	CountInGuild(ctx context.Context, guildID GuildID) (int, error)
}

// MultiplierRepository stores the per-guild multiplier table.
type MultiplierRepository interface {
	// SetMultiplier creates or replaces the row for (guild, type, target).
	SetMultiplier(ctx context.Context, m *Multiplier) error

	// RemoveMultiplier deletes the row. Removing an absent row is not an error.
	RemoveMultiplier(ctx context.Context, guildID GuildID, targetType TargetType, targetID string) error

	// ListMultipliers returns all multiplier rows for the guild.
	ListMultipliers(ctx context.Context, guildID GuildID) ([]Multiplier, error)

	// MultiplierFor returns the configured value for a target, or 1.0 when no
	// row exists.
	MultiplierFor(ctx context.Context, guildID GuildID, targetType TargetType, targetID string) (float64, error)

	// RoleMultipliers returns the configured values for the given roles in one
	// round trip. Roles without a row are absent from the result.
	RoleMultipliers(ctx context.Context, guildID GuildID, roleIDs []RoleID) (map[RoleID]float64, error)
}

// ExclusionRepository stores the per-guild blacklist.
type ExclusionRepository interface {
	// AddExclusion creates the row. Adding a duplicate is not an error.
	AddExclusion(ctx context.Context, e *ExclusionEntry) error

	// RemoveExclusion deletes the row. Removing an absent row is not an error.
	RemoveExclusion(ctx context.Context, guildID GuildID, kind ExclusionKind, targetID string) error

	// ListExclusions returns all blacklist rows for the guild.
	ListExclusions(ctx context.Context, guildID GuildID) ([]ExclusionEntry, error)

	// IsExcluded reports whether the user, the channel, or any of the roles is
	// blacklisted in the guild.
	IsExcluded(ctx context.Context, guildID GuildID, userID UserID, channelID ChannelID, roleIDs []RoleID) (bool, error)
}

// SettingsRepository stores per-guild settings.
type SettingsRepository interface {
	// GetSettings returns the guild's settings, or defaults when no row exists.
	GetSettings(ctx context.Context, guildID GuildID) (*GuildSettings, error)

	// UpdateSettings replaces the guild's settings row.
	UpdateSettings(ctx context.Context, s *GuildSettings) error
}

// LeaderboardCache is an optional read cache in front of ListTopByXP. The
// authoritative store stays the source of truth; cached pages only need
// snapshot consistency.
type LeaderboardCache interface {
	// GetCachedTop returns a cached top-N page, or nil on miss.
	GetCachedTop(ctx context.Context, guildID GuildID, limit int) ([]*UserScore, error)

	// SetCachedTop stores a top-N page under the requested limit with a TTL.
	SetCachedTop(ctx context.Context, guildID GuildID, limit int, entries []*UserScore, ttl time.Duration) error

	// Invalidate drops all cached pages for the guild.
	Invalidate(ctx context.Context, guildID GuildID) error
}
