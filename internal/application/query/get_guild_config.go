package query

import (
	"context"

	"github.com/grindstone-bot/grindstone/internal/domain/progression"
	"github.com/grindstone-bot/grindstone/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET GUILD CONFIG QUERY
// ══════════════════════════════════════════════════════════════════════════════

// MultiplierItem is one multiplier row in the config view.
type MultiplierItem struct {
	TargetType string  `json:"target_type"`
	TargetID   string  `json:"target_id"`
	Value      float64 `json:"value"`
}

// ExclusionItem is one blacklist row in the config view.
type ExclusionItem struct {
	Kind     string `json:"kind"`
	TargetID string `json:"target_id"`
}

// GuildConfigView is the full progression configuration of a guild.
type GuildConfigView struct {
	GuildID                string           `json:"guild_id"`
	XPRate                 int              `json:"xp_rate"`
	LevelUpMessagesEnabled bool             `json:"level_up_messages_enabled"`
	Multipliers            []MultiplierItem `json:"multipliers"`
	Exclusions             []ExclusionItem  `json:"exclusions"`
}

// GetGuildConfigHandler answers guild configuration queries.
type GetGuildConfigHandler struct {
	settings    progression.SettingsRepository
	multipliers progression.MultiplierRepository
	exclusions  progression.ExclusionRepository
}

// NewGetGuildConfigHandler creates the handler.
func NewGetGuildConfigHandler(
	settings progression.SettingsRepository,
	multipliers progression.MultiplierRepository,
	exclusions progression.ExclusionRepository,
) *GetGuildConfigHandler {
	return &GetGuildConfigHandler{settings: settings, multipliers: multipliers, exclusions: exclusions}
}

// Handle returns settings, multipliers, and blacklist for the guild. Guilds
// with no stored configuration come back with defaults and empty tables.
func (h *GetGuildConfigHandler) Handle(ctx context.Context, guildID progression.GuildID) (*GuildConfigView, error) {
	if !guildID.IsValid() {
		return nil, shared.WrapError("progression", "GetGuildConfig", shared.ErrValidation, "invalid guild id", progression.ErrInvalidGuildID)
	}

	settings, err := h.settings.GetSettings(ctx, guildID)
	if err != nil {
		return nil, shared.WrapError("progression", "GetGuildConfig", shared.ErrStorage, "failed to read settings", err)
	}

	multipliers, err := h.multipliers.ListMultipliers(ctx, guildID)
	if err != nil {
		return nil, shared.WrapError("progression", "GetGuildConfig", shared.ErrStorage, "failed to read multipliers", err)
	}

	exclusions, err := h.exclusions.ListExclusions(ctx, guildID)
	if err != nil {
		return nil, shared.WrapError("progression", "GetGuildConfig", shared.ErrStorage, "failed to read exclusions", err)
	}

	view := &GuildConfigView{
		GuildID:                string(guildID),
		XPRate:                 settings.XPRate,
		LevelUpMessagesEnabled: settings.LevelUpMessagesEnabled,
		Multipliers:            make([]MultiplierItem, 0, len(multipliers)),
		Exclusions:             make([]ExclusionItem, 0, len(exclusions)),
	}
	for _, m := range multipliers {
		view.Multipliers = append(view.Multipliers, MultiplierItem{
			TargetType: string(m.TargetType),
			TargetID:   m.TargetID,
			Value:      m.Value,
		})
	}
	for _, e := range exclusions {
		view.Exclusions = append(view.Exclusions, ExclusionItem{
			Kind:     string(e.Kind),
			TargetID: e.TargetID,
		})
	}
	return view, nil
}
