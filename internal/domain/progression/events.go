package progression

import (
	"github.com/grindstone-bot/grindstone/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// XPAwardedEvent is emitted after an activity award has been persisted.
type XPAwardedEvent struct {
	shared.BaseEvent
	UserID  UserID  `json:"user_id"`
	GuildID GuildID `json:"guild_id"`
	Amount  XP      `json:"amount"`
	NewXP   XP      `json:"new_xp"`
}

// NewXPAwardedEvent creates an XPAwardedEvent.
func NewXPAwardedEvent(userID UserID, guildID GuildID, amount, newXP XP) XPAwardedEvent {
	return XPAwardedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventXPAwarded, string(userID)),
		UserID:    userID,
		GuildID:   guildID,
		Amount:    amount,
		NewXP:     newXP,
	}
}

// ScoreAdjustedEvent is emitted after an administrative XP or level edit.
type ScoreAdjustedEvent struct {
	shared.BaseEvent
	UserID   UserID  `json:"user_id"`
	GuildID  GuildID `json:"guild_id"`
	NewXP    XP      `json:"new_xp"`
	NewLevel Level   `json:"new_level"`
}

// NewScoreAdjustedEvent creates a ScoreAdjustedEvent.
func NewScoreAdjustedEvent(userID UserID, guildID GuildID, newXP XP, newLevel Level) ScoreAdjustedEvent {
	return ScoreAdjustedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventScoreAdjusted, string(userID)),
		UserID:    userID,
		GuildID:   guildID,
		NewXP:     newXP,
		NewLevel:  newLevel,
	}
}

// ScoreResetEvent is emitted after an administrative reset removed the row.
type ScoreResetEvent struct {
	shared.BaseEvent
	UserID  UserID  `json:"user_id"`
	GuildID GuildID `json:"guild_id"`
}

// NewScoreResetEvent creates a ScoreResetEvent.
func NewScoreResetEvent(userID UserID, guildID GuildID) ScoreResetEvent {
	return ScoreResetEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventScoreReset, string(userID)),
		UserID:    userID,
		GuildID:   guildID,
	}
}

// LevelUpEvent is emitted when a persisted award pushes a user to a higher
// level and the guild has level-up messages enabled. Exactly one event is
// emitted per level-up.
type LevelUpEvent struct {
	shared.BaseEvent
	UserID    UserID    `json:"user_id"`
	GuildID   GuildID   `json:"guild_id"`
	ChannelID ChannelID `json:"channel_id"`
	OldLevel  Level     `json:"old_level"`
	NewLevel  Level     `json:"new_level"`
}

// NewLevelUpEvent creates a LevelUpEvent.
func NewLevelUpEvent(userID UserID, guildID GuildID, channelID ChannelID, oldLevel, newLevel Level) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventLevelUp, string(userID)),
		UserID:    userID,
		GuildID:   guildID,
		ChannelID: channelID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}
