package command

import (
	"context"

	"github.com/grindstone-bot/grindstone/internal/domain/progression"
	"github.com/grindstone-bot/grindstone/internal/domain/shared"
	"github.com/grindstone-bot/grindstone/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURE GUILD COMMANDS
// Multiplier table, blacklist, and per-guild settings. The external command
// surface owns parsing and permissions; these handlers own the semantics.
// ══════════════════════════════════════════════════════════════════════════════

// ConfigureGuildHandler handles guild configuration changes.
type ConfigureGuildHandler struct {
	multipliers progression.MultiplierRepository
	exclusions  progression.ExclusionRepository
	settings    progression.SettingsRepository
	publisher   shared.EventPublisher
	log         *logger.Logger
}

// NewConfigureGuildHandler creates the handler.
func NewConfigureGuildHandler(
	multipliers progression.MultiplierRepository,
	exclusions progression.ExclusionRepository,
	settings progression.SettingsRepository,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *ConfigureGuildHandler {
	return &ConfigureGuildHandler{
		multipliers: multipliers,
		exclusions:  exclusions,
		settings:    settings,
		publisher:   publisher,
		log:         log,
	}
}

// SetMultiplier creates or replaces a multiplier for a role or channel.
// Values outside [0.1, 10.0] are rejected before any store mutation.
func (h *ConfigureGuildHandler) SetMultiplier(ctx context.Context, guildID progression.GuildID, targetType progression.TargetType, targetID string, value float64) error {
	m, err := progression.NewMultiplier(guildID, targetType, targetID, value)
	if err != nil {
		return shared.WrapError("progression", "SetMultiplier", shared.ErrValidation, "invalid multiplier", err)
	}

	if err := h.multipliers.SetMultiplier(ctx, m); err != nil {
		return shared.WrapError("progression", "SetMultiplier", shared.ErrStorage, "failed to persist multiplier", err)
	}

	h.publishConfigEvent(shared.EventMultiplierChanged, guildID)
	return nil
}

// RemoveMultiplier deletes a multiplier row. Absent rows are a no-op.
func (h *ConfigureGuildHandler) RemoveMultiplier(ctx context.Context, guildID progression.GuildID, targetType progression.TargetType, targetID string) error {
	if !guildID.IsValid() {
		return shared.WrapError("progression", "RemoveMultiplier", shared.ErrValidation, "invalid guild id", progression.ErrInvalidGuildID)
	}
	if !targetType.IsValid() {
		return shared.WrapError("progression", "RemoveMultiplier", shared.ErrValidation, "invalid target type", progression.ErrInvalidTargetType)
	}
	if targetID == "" {
		return shared.WrapError("progression", "RemoveMultiplier", shared.ErrValidation, "invalid target id", progression.ErrInvalidTargetID)
	}

	if err := h.multipliers.RemoveMultiplier(ctx, guildID, targetType, targetID); err != nil {
		return shared.WrapError("progression", "RemoveMultiplier", shared.ErrStorage, "failed to remove multiplier", err)
	}

	h.publishConfigEvent(shared.EventMultiplierChanged, guildID)
	return nil
}

// AddExclusion adds a user, role, or channel to the guild blacklist.
func (h *ConfigureGuildHandler) AddExclusion(ctx context.Context, guildID progression.GuildID, kind progression.ExclusionKind, targetID string) error {
	e, err := progression.NewExclusionEntry(guildID, kind, targetID)
	if err != nil {
		return shared.WrapError("progression", "AddExclusion", shared.ErrValidation, "invalid exclusion entry", err)
	}

	if err := h.exclusions.AddExclusion(ctx, e); err != nil {
		return shared.WrapError("progression", "AddExclusion", shared.ErrStorage, "failed to persist exclusion", err)
	}

	h.publishConfigEvent(shared.EventExclusionChanged, guildID)
	return nil
}

// RemoveExclusion removes a blacklist row. Absent rows are a no-op.
func (h *ConfigureGuildHandler) RemoveExclusion(ctx context.Context, guildID progression.GuildID, kind progression.ExclusionKind, targetID string) error {
	if !guildID.IsValid() {
		return shared.WrapError("progression", "RemoveExclusion", shared.ErrValidation, "invalid guild id", progression.ErrInvalidGuildID)
	}
	if !kind.IsValid() {
		return shared.WrapError("progression", "RemoveExclusion", shared.ErrValidation, "invalid exclusion kind", progression.ErrInvalidExclusionKind)
	}
	if targetID == "" {
		return shared.WrapError("progression", "RemoveExclusion", shared.ErrValidation, "invalid target id", progression.ErrInvalidTargetID)
	}

	if err := h.exclusions.RemoveExclusion(ctx, guildID, kind, targetID); err != nil {
		return shared.WrapError("progression", "RemoveExclusion", shared.ErrStorage, "failed to remove exclusion", err)
	}

	h.publishConfigEvent(shared.EventExclusionChanged, guildID)
	return nil
}

// ToggleLevelUpMessages enables or disables level-up notifications. The rest
// of the settings row is preserved.
func (h *ConfigureGuildHandler) ToggleLevelUpMessages(ctx context.Context, guildID progression.GuildID, enabled bool) error {
	if !guildID.IsValid() {
		return shared.WrapError("progression", "ToggleLevelUpMessages", shared.ErrValidation, "invalid guild id", progression.ErrInvalidGuildID)
	}

	settings, err := h.settings.GetSettings(ctx, guildID)
	if err != nil {
		return shared.WrapError("progression", "ToggleLevelUpMessages", shared.ErrStorage, "failed to read settings", err)
	}

	settings.LevelUpMessagesEnabled = enabled
	if err := h.settings.UpdateSettings(ctx, settings); err != nil {
		return shared.WrapError("progression", "ToggleLevelUpMessages", shared.ErrStorage, "failed to update settings", err)
	}

	h.publishConfigEvent(shared.EventSettingsChanged, guildID)
	return nil
}

// UpdateSettings replaces the guild settings row after validation.
func (h *ConfigureGuildHandler) UpdateSettings(ctx context.Context, settings *progression.GuildSettings) error {
	if err := settings.Validate(); err != nil {
		return shared.WrapError("progression", "UpdateSettings", shared.ErrValidation, "invalid settings", err)
	}

	if err := h.settings.UpdateSettings(ctx, settings); err != nil {
		return shared.WrapError("progression", "UpdateSettings", shared.ErrStorage, "failed to update settings", err)
	}

	h.publishConfigEvent(shared.EventSettingsChanged, settings.GuildID)
	return nil
}

func (h *ConfigureGuildHandler) publishConfigEvent(eventType shared.EventType, guildID progression.GuildID) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(shared.NewBaseEvent(eventType, string(guildID))); err != nil {
		h.log.Warn("config event publish failed",
			logger.GuildID(string(guildID)),
			logger.Err(err),
		)
	}
}
