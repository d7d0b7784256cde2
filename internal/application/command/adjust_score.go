package command

import (
	"context"

	"github.com/grindstone-bot/grindstone/internal/domain/progression"
	"github.com/grindstone-bot/grindstone/internal/domain/shared"
	"github.com/grindstone-bot/grindstone/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADJUST SCORE COMMANDS
// Administrative add/remove/reset operations on XP or level. These bypass
// exclusions and multipliers entirely: an admin edit always lands.
// ══════════════════════════════════════════════════════════════════════════════

// AdjustResult is the post-adjustment state reported back to the caller.
type AdjustResult struct {
	NewXP    progression.XP    `json:"new_xp"`
	NewLevel progression.Level `json:"new_level"`
}

// AdjustScoreHandler handles administrative score adjustments.
type AdjustScoreHandler struct {
	scores    progression.ScoreRepository
	cache     progression.LeaderboardCache
	publisher shared.EventPublisher
	log       *logger.Logger
}

// NewAdjustScoreHandler creates the handler. cache may be nil when no
// leaderboard cache is configured.
func NewAdjustScoreHandler(
	scores progression.ScoreRepository,
	cache progression.LeaderboardCache,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *AdjustScoreHandler {
	return &AdjustScoreHandler{
		scores:    scores,
		cache:     cache,
		publisher: publisher,
		log:       log,
	}
}

// AddXP adds a positive amount of XP to the user.
func (h *AdjustScoreHandler) AddXP(ctx context.Context, userID progression.UserID, guildID progression.GuildID, amount progression.XP) (*AdjustResult, error) {
	if err := validateTarget(userID, guildID); err != nil {
		return nil, err
	}
	if amount < 1 {
		return nil, shared.WrapError("progression", "AddXP", shared.ErrValidation, "amount must be positive", progression.ErrInvalidAmount)
	}

	res, err := h.scores.ApplyXPDelta(ctx, userID, guildID, amount, false)
	if err != nil {
		return nil, shared.WrapError("progression", "AddXP", shared.ErrStorage, "failed to apply xp delta", err)
	}

	h.afterAdjust(ctx, userID, guildID, res.Score.XP, res.Score.Level)
	return &AdjustResult{NewXP: res.Score.XP, NewLevel: res.Score.Level}, nil
}

// RemoveXP removes a positive amount of XP, flooring the result at zero.
func (h *AdjustScoreHandler) RemoveXP(ctx context.Context, userID progression.UserID, guildID progression.GuildID, amount progression.XP) (*AdjustResult, error) {
	if err := validateTarget(userID, guildID); err != nil {
		return nil, err
	}
	if amount < 1 {
		return nil, shared.WrapError("progression", "RemoveXP", shared.ErrValidation, "amount must be positive", progression.ErrInvalidAmount)
	}

	res, err := h.scores.ApplyXPDelta(ctx, userID, guildID, -amount, true)
	if err != nil {
		return nil, shared.WrapError("progression", "RemoveXP", shared.ErrStorage, "failed to apply xp delta", err)
	}

	h.afterAdjust(ctx, userID, guildID, res.Score.XP, res.Score.Level)
	return &AdjustResult{NewXP: res.Score.XP, NewLevel: res.Score.Level}, nil
}

// ResetXP deletes the user's row; subsequent reads revert to defaults.
func (h *AdjustScoreHandler) ResetXP(ctx context.Context, userID progression.UserID, guildID progression.GuildID) error {
	if err := validateTarget(userID, guildID); err != nil {
		return err
	}

	if err := h.scores.ResetUser(ctx, userID, guildID); err != nil {
		return shared.WrapError("progression", "ResetXP", shared.ErrStorage, "failed to reset user", err)
	}

	if h.publisher != nil {
		_ = h.publisher.Publish(progression.NewScoreResetEvent(userID, guildID))
	}
	h.invalidateCache(ctx, guildID)
	return nil
}

// AddLevels raises the user's level by count. XP is recomputed from the
// target level, discarding in-level progress.
func (h *AdjustScoreHandler) AddLevels(ctx context.Context, userID progression.UserID, guildID progression.GuildID, count int) (*AdjustResult, error) {
	if err := validateTarget(userID, guildID); err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, shared.WrapError("progression", "AddLevels", shared.ErrValidation, "count must be positive", progression.ErrInvalidAmount)
	}

	current, err := h.scores.GetUser(ctx, userID, guildID)
	if err != nil {
		return nil, shared.WrapError("progression", "AddLevels", shared.ErrStorage, "failed to read user", err)
	}

	score, err := h.scores.SetLevelDirectly(ctx, userID, guildID, current.Level+progression.Level(count))
	if err != nil {
		return nil, shared.WrapError("progression", "AddLevels", shared.ErrStorage, "failed to set level", err)
	}

	h.afterAdjust(ctx, userID, guildID, score.XP, score.Level)
	return &AdjustResult{NewXP: score.XP, NewLevel: score.Level}, nil
}

// RemoveLevels lowers the user's level by count, floored at level 1. XP is
// recomputed from the target level, which can decrease XP below what the user
// previously held.
func (h *AdjustScoreHandler) RemoveLevels(ctx context.Context, userID progression.UserID, guildID progression.GuildID, count int) (*AdjustResult, error) {
	if err := validateTarget(userID, guildID); err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, shared.WrapError("progression", "RemoveLevels", shared.ErrValidation, "count must be positive", progression.ErrInvalidAmount)
	}

	current, err := h.scores.GetUser(ctx, userID, guildID)
	if err != nil {
		return nil, shared.WrapError("progression", "RemoveLevels", shared.ErrStorage, "failed to read user", err)
	}

	newLevel := current.Level - progression.Level(count)
	if newLevel < 1 {
		newLevel = 1
	}

	score, err := h.scores.SetLevelDirectly(ctx, userID, guildID, newLevel)
	if err != nil {
		return nil, shared.WrapError("progression", "RemoveLevels", shared.ErrStorage, "failed to set level", err)
	}

	h.afterAdjust(ctx, userID, guildID, score.XP, score.Level)
	return &AdjustResult{NewXP: score.XP, NewLevel: score.Level}, nil
}

// afterAdjust publishes the admin event and drops stale leaderboard pages.
func (h *AdjustScoreHandler) afterAdjust(ctx context.Context, userID progression.UserID, guildID progression.GuildID, newXP progression.XP, newLevel progression.Level) {
	if h.publisher != nil {
		_ = h.publisher.Publish(progression.NewScoreAdjustedEvent(userID, guildID, newXP, newLevel))
	}
	h.invalidateCache(ctx, guildID)
}

func (h *AdjustScoreHandler) invalidateCache(ctx context.Context, guildID progression.GuildID) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, guildID); err != nil {
		h.log.Warn("leaderboard cache invalidation failed",
			logger.GuildID(string(guildID)),
			logger.Err(err),
		)
	}
}

func validateTarget(userID progression.UserID, guildID progression.GuildID) error {
	if !userID.IsValid() {
		return shared.WrapError("progression", "AdjustScore", shared.ErrValidation, "invalid user id", progression.ErrInvalidUserID)
	}
	if !guildID.IsValid() {
		return shared.WrapError("progression", "AdjustScore", shared.ErrValidation, "invalid guild id", progression.ErrInvalidGuildID)
	}
	return nil
}
