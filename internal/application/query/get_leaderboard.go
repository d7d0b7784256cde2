package query

import (
	"context"
	"time"

	"github.com/grindstone-bot/grindstone/internal/domain/progression"
	"github.com/grindstone-bot/grindstone/internal/domain/shared"
	"github.com/grindstone-bot/grindstone/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultLeaderboardLimit is used when the caller does not specify one.
	DefaultLeaderboardLimit = 10

	// MaxLeaderboardLimit caps the page size. Larger requests are clamped,
	// not rejected.
	MaxLeaderboardLimit = 25
)

// LeaderboardEntry is one row in the leaderboard view.
type LeaderboardEntry struct {
	Position int    `json:"position"`
	UserID   string `json:"user_id"`
	XP       int64  `json:"xp"`
	Level    int    `json:"level"`
}

// LeaderboardView holds a top-N page for a guild.
type LeaderboardView struct {
	GuildID string             `json:"guild_id"`
	Entries []LeaderboardEntry `json:"entries"`
}

// GetLeaderboardHandler answers leaderboard queries, reading through an
// optional cache in front of the authoritative store.
type GetLeaderboardHandler struct {
	scores   progression.ScoreRepository
	cache    progression.LeaderboardCache
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewGetLeaderboardHandler creates the handler. cache may be nil, in which
// case every query hits the authoritative store.
func NewGetLeaderboardHandler(scores progression.ScoreRepository, cache progression.LeaderboardCache, cacheTTL time.Duration, log *logger.Logger) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{scores: scores, cache: cache, cacheTTL: cacheTTL, log: log}
}

// Handle returns the guild's top users ordered by XP descending. limit <= 0
// falls back to the default; limits above the maximum are clamped.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, guildID progression.GuildID, limit int) (*LeaderboardView, error) {
	if !guildID.IsValid() {
		return nil, shared.WrapError("progression", "GetLeaderboard", shared.ErrValidation, "invalid guild id", progression.ErrInvalidGuildID)
	}

	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	scores, err := h.readTop(ctx, guildID, limit)
	if err != nil {
		return nil, shared.WrapError("progression", "GetLeaderboard", shared.ErrStorage, "failed to read leaderboard", err)
	}

	view := &LeaderboardView{
		GuildID: string(guildID),
		Entries: make([]LeaderboardEntry, 0, len(scores)),
	}
	for i, s := range scores {
		view.Entries = append(view.Entries, LeaderboardEntry{
			Position: i + 1,
			UserID:   string(s.UserID),
			XP:       int64(s.XP),
			Level:    int(s.Level),
		})
	}
	return view, nil
}

// readTop consults the cache first. Cache failures degrade to the store and
// are logged, never surfaced.
func (h *GetLeaderboardHandler) readTop(ctx context.Context, guildID progression.GuildID, limit int) ([]*progression.UserScore, error) {
	if h.cache != nil {
		cached, err := h.cache.GetCachedTop(ctx, guildID, limit)
		if err != nil {
			h.log.Warn("leaderboard cache read failed",
				logger.GuildID(string(guildID)),
				logger.Err(err),
			)
		} else if cached != nil {
			return cached, nil
		}
	}

	scores, err := h.scores.ListTopByXP(ctx, guildID, limit)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.SetCachedTop(ctx, guildID, limit, scores, h.cacheTTL); err != nil {
			h.log.Warn("leaderboard cache write failed",
				logger.GuildID(string(guildID)),
				logger.Err(err),
			)
		}
	}
	return scores, nil
}
