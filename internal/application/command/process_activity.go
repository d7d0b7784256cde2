// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/grindstone-bot/grindstone/internal/domain/progression"
	"github.com/grindstone-bot/grindstone/internal/domain/shared"
	"github.com/grindstone-bot/grindstone/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROCESS ACTIVITY COMMAND
// Orchestrates one qualifying activity event: exclusion check, base award
// draw, multiplier application, persistence, level-up detection. One event in,
// at most one level-up notification out.
// ══════════════════════════════════════════════════════════════════════════════

// Rand is the randomness source for award draws. Injectable for tests.
type Rand interface {
	// Intn returns a uniform draw in [0, n).
	Intn(n int) int
}

// ActivityEvent carries the coordinates of one qualifying activity event as
// delivered by the upstream gateway. Automated senders are filtered upstream.
type ActivityEvent struct {
	UserID    progression.UserID
	GuildID   progression.GuildID
	ChannelID progression.ChannelID
	RoleIDs   []progression.RoleID
}

// Validate checks the event coordinates.
func (e *ActivityEvent) Validate() error {
	if !e.UserID.IsValid() {
		return progression.ErrInvalidUserID
	}
	if !e.GuildID.IsValid() {
		return progression.ErrInvalidGuildID
	}
	if !e.ChannelID.IsValid() {
		return progression.ErrInvalidTargetID
	}
	return nil
}

// ActivityResult describes what happened to one event.
type ActivityResult struct {
	// Excluded - the event matched a blacklist row; nothing was awarded.
	Excluded bool

	// Dropped - a storage failure swallowed the award (best effort, no retry).
	Dropped bool

	// Awarded - XP delta actually persisted.
	Awarded progression.XP

	// NewXP / NewLevel - state after the award.
	NewXP    progression.XP
	NewLevel progression.Level

	// LeveledUp - the award crossed a level boundary upward.
	LeveledUp bool
}

// ProcessActivityHandler handles activity events.
type ProcessActivityHandler struct {
	scores      progression.ScoreRepository
	multipliers progression.MultiplierRepository
	exclusions  progression.ExclusionRepository
	settings    progression.SettingsRepository
	publisher   shared.EventPublisher
	rng         Rand
	log         *logger.Logger
}

// NewProcessActivityHandler creates the handler.
func NewProcessActivityHandler(
	scores progression.ScoreRepository,
	multipliers progression.MultiplierRepository,
	exclusions progression.ExclusionRepository,
	settings progression.SettingsRepository,
	publisher shared.EventPublisher,
	rng Rand,
	log *logger.Logger,
) *ProcessActivityHandler {
	return &ProcessActivityHandler{
		scores:      scores,
		multipliers: multipliers,
		exclusions:  exclusions,
		settings:    settings,
		publisher:   publisher,
		rng:         rng,
		log:         log,
	}
}

// Handle processes one activity event.
//
// Failure semantics: validation errors are returned; storage failures drop
// the event silently (a lost award is accepted, a doubled award on retry is
// not). Only ApplyXPDelta mutates state, so a drop never leaves partial
// effects behind.
func (h *ProcessActivityHandler) Handle(ctx context.Context, event ActivityEvent) (*ActivityResult, error) {
	if err := event.Validate(); err != nil {
		return nil, shared.WrapError("progression", "ProcessActivity", shared.ErrValidation, "invalid activity event", err)
	}

	// Exclusion check short-circuits everything: no award, no persistence.
	excluded, err := h.exclusions.IsExcluded(ctx, event.GuildID, event.UserID, event.ChannelID, event.RoleIDs)
	if err != nil {
		h.dropEvent(event, "exclusion check failed", err)
		return &ActivityResult{Dropped: true}, nil
	}
	if excluded {
		return &ActivityResult{Excluded: true}, nil
	}

	award, err := h.computeAward(ctx, event)
	if err != nil {
		h.dropEvent(event, "multiplier lookup failed", err)
		return &ActivityResult{Dropped: true}, nil
	}

	res, err := h.scores.ApplyXPDelta(ctx, event.UserID, event.GuildID, award, false)
	if err != nil {
		h.dropEvent(event, "award persistence failed", err)
		return &ActivityResult{Dropped: true}, nil
	}

	result := &ActivityResult{
		Awarded:   award,
		NewXP:     res.Score.XP,
		NewLevel:  res.Score.Level,
		LeveledUp: res.LeveledUp,
	}

	h.publish(progression.NewXPAwardedEvent(event.UserID, event.GuildID, award, res.Score.XP))

	if res.LeveledUp {
		h.notifyLevelUp(ctx, event, res)
	}

	return result, nil
}

// computeAward draws the base award and applies the effective multiplier.
// Rounding happens once, after channel and role multipliers are combined.
func (h *ProcessActivityHandler) computeAward(ctx context.Context, event ActivityEvent) (progression.XP, error) {
	base := progression.DrawBaseAward(h.rng.Intn(progression.BaseAwardMax - progression.BaseAwardMin + 1))

	channelMult, err := h.multipliers.MultiplierFor(ctx, event.GuildID, progression.TargetChannel, string(event.ChannelID))
	if err != nil {
		return 0, err
	}

	roleValues, err := h.multipliers.RoleMultipliers(ctx, event.GuildID, event.RoleIDs)
	if err != nil {
		return 0, err
	}
	roles := make([]float64, 0, len(roleValues))
	for _, v := range roleValues {
		roles = append(roles, v)
	}

	effective := progression.EffectiveMultiplier(channelMult, roles)
	return progression.ScaleAward(base, effective), nil
}

// notifyLevelUp emits a single level-up event if the guild has level-up
// messages enabled. A settings read failure suppresses the notification but
// never the already-persisted award.
func (h *ProcessActivityHandler) notifyLevelUp(ctx context.Context, event ActivityEvent, res *progression.DeltaResult) {
	settings, err := h.settings.GetSettings(ctx, event.GuildID)
	if err != nil {
		h.log.Warn("level-up notification suppressed: settings read failed",
			logger.F("guild_id", event.GuildID),
			logger.F("error", err.Error()),
		)
		return
	}
	if !settings.LevelUpMessagesEnabled {
		return
	}

	h.publish(progression.NewLevelUpEvent(
		event.UserID,
		event.GuildID,
		event.ChannelID,
		res.OldLevel,
		res.Score.Level,
	))
}

func (h *ProcessActivityHandler) publish(event shared.Event) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(event); err != nil {
		h.log.Error("event publish failed",
			logger.F("event_type", event.EventType()),
			logger.F("error", err.Error()),
		)
	}
}

// dropEvent logs a swallowed activity event. The award is lost; callers see a
// dropped result, not an error, so nothing upstream is tempted to retry.
func (h *ProcessActivityHandler) dropEvent(event ActivityEvent, reason string, err error) {
	h.log.Warn("activity event dropped",
		logger.F("reason", reason),
		logger.F("user_id", event.UserID),
		logger.F("guild_id", event.GuildID),
		logger.F("error", err.Error()),
	)
}
