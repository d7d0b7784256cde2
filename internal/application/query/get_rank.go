// Package query contains read-side handlers. Queries never mutate progression
// state; they compose repository reads into view models for the interface
// layer.
package query

import (
	"context"

	"github.com/grindstone-bot/grindstone/internal/domain/progression"
	"github.com/grindstone-bot/grindstone/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET RANK QUERY
// ══════════════════════════════════════════════════════════════════════════════

// RankView is the rank-card view model for one user in one guild.
type RankView struct {
	UserID        string  `json:"user_id"`
	GuildID       string  `json:"guild_id"`
	XP            int64   `json:"xp"`
	Level         int     `json:"level"`
	Rank          int     `json:"rank"`
	TotalUsers    int     `json:"total_users"`
	XPToNextLevel int64   `json:"xp_to_next_level"`
	LevelProgress float64 `json:"level_progress"`
	BackgroundRef string  `json:"background_ref,omitempty"`
}

// GetRankHandler answers rank queries.
type GetRankHandler struct {
	scores progression.ScoreRepository
}

// NewGetRankHandler creates the handler.
func NewGetRankHandler(scores progression.ScoreRepository) *GetRankHandler {
	return &GetRankHandler{scores: scores}
}

// Handle returns the user's rank card. Users with no stored row appear with
// the default record and rank behind every user who has earned XP.
func (h *GetRankHandler) Handle(ctx context.Context, userID progression.UserID, guildID progression.GuildID) (*RankView, error) {
	if !userID.IsValid() {
		return nil, shared.WrapError("progression", "GetRank", shared.ErrValidation, "invalid user id", progression.ErrInvalidUserID)
	}
	if !guildID.IsValid() {
		return nil, shared.WrapError("progression", "GetRank", shared.ErrValidation, "invalid guild id", progression.ErrInvalidGuildID)
	}

	score, err := h.scores.GetUser(ctx, userID, guildID)
	if err != nil {
		return nil, shared.WrapError("progression", "GetRank", shared.ErrStorage, "failed to read score", err)
	}

	rank, err := h.scores.RankOf(ctx, userID, guildID)
	if err != nil {
		return nil, shared.WrapError("progression", "GetRank", shared.ErrStorage, "failed to compute rank", err)
	}

	total, err := h.scores.CountInGuild(ctx, guildID)
	if err != nil {
		return nil, shared.WrapError("progression", "GetRank", shared.ErrStorage, "failed to count users", err)
	}

	return &RankView{
		UserID:        string(score.UserID),
		GuildID:       string(score.GuildID),
		XP:            int64(score.XP),
		Level:         int(score.Level),
		Rank:          rank,
		TotalUsers:    total,
		XPToNextLevel: int64(progression.XPToNextLevel(score.XP)),
		LevelProgress: progression.LevelProgress(score.XP),
		BackgroundRef: score.BackgroundRef,
	}, nil
}
