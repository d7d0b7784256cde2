package command

import (
	"context"

	"github.com/grindstone-bot/grindstone/internal/domain/progression"
	"github.com/grindstone-bot/grindstone/internal/domain/shared"
	"github.com/grindstone-bot/grindstone/pkg/logger"
)

// ManageBackgroundHandler handles rank-card background changes.
type ManageBackgroundHandler struct {
	scores progression.ScoreRepository
	log    *logger.Logger
}

// NewManageBackgroundHandler creates the handler.
func NewManageBackgroundHandler(scores progression.ScoreRepository, log *logger.Logger) *ManageBackgroundHandler {
	return &ManageBackgroundHandler{scores: scores, log: log}
}

// SetBackground normalizes and stores a background reference for the user.
// Bare file names are resolved under the local backgrounds directory; full
// URLs are stored as-is.
func (h *ManageBackgroundHandler) SetBackground(ctx context.Context, userID progression.UserID, guildID progression.GuildID, ref string) error {
	if !userID.IsValid() {
		return shared.WrapError("progression", "SetBackground", shared.ErrValidation, "invalid user id", progression.ErrInvalidUserID)
	}
	if !guildID.IsValid() {
		return shared.WrapError("progression", "SetBackground", shared.ErrValidation, "invalid guild id", progression.ErrInvalidGuildID)
	}

	normalized, err := progression.NormalizeBackgroundRef(ref)
	if err != nil {
		return shared.WrapError("progression", "SetBackground", shared.ErrValidation, "invalid background reference", err)
	}

	if err := h.scores.SetBackground(ctx, userID, guildID, normalized); err != nil {
		return shared.WrapError("progression", "SetBackground", shared.ErrStorage, "failed to persist background", err)
	}

	h.log.Info("background set",
		logger.UserID(string(userID)),
		logger.GuildID(string(guildID)),
	)
	return nil
}

// ClearBackground removes the user's background reference. Clearing an unset
// background is a no-op.
func (h *ManageBackgroundHandler) ClearBackground(ctx context.Context, userID progression.UserID, guildID progression.GuildID) error {
	if !userID.IsValid() {
		return shared.WrapError("progression", "ClearBackground", shared.ErrValidation, "invalid user id", progression.ErrInvalidUserID)
	}
	if !guildID.IsValid() {
		return shared.WrapError("progression", "ClearBackground", shared.ErrValidation, "invalid guild id", progression.ErrInvalidGuildID)
	}

	if err := h.scores.ClearBackground(ctx, userID, guildID); err != nil {
		return shared.WrapError("progression", "ClearBackground", shared.ErrStorage, "failed to clear background", err)
	}
	return nil
}
