package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/grindstone-bot/grindstone/internal/application/command"
	"github.com/grindstone-bot/grindstone/internal/domain/progression"
	"github.com/grindstone-bot/grindstone/internal/domain/shared"
	"github.com/grindstone-bot/grindstone/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth checks storage backends and reports readiness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "healthy",
		"uptime": s.Uptime().String(),
		"time":   time.Now().UTC().Format(time.RFC3339),
	}

	if s.deps.HealthChecker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := s.deps.HealthChecker.Check(ctx); err != nil {
			status["status"] = "unhealthy"
			status["error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
	}

	writeJSON(w, http.StatusOK, status)
}

// handleLive is a trivial liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY INGEST
// ══════════════════════════════════════════════════════════════════════════════

type activityRequest struct {
	UserID    string   `json:"user_id"`
	GuildID   string   `json:"guild_id"`
	ChannelID string   `json:"channel_id"`
	RoleIDs   []string `json:"role_ids"`
}

// handleActivityEvent ingests a single activity event. Storage failures are
// absorbed by the processor, so the only client-visible errors are
// validation ones.
func (s *Server) handleActivityEvent(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	roles := make([]progression.RoleID, 0, len(req.RoleIDs))
	for _, id := range req.RoleIDs {
		roles = append(roles, progression.RoleID(id))
	}

	result, err := s.deps.ProcessActivity.Handle(r.Context(), command.ActivityEvent{
		UserID:    progression.UserID(req.UserID),
		GuildID:   progression.GuildID(req.GuildID),
		ChannelID: progression.ChannelID(req.ChannelID),
		RoleIDs:   roles,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// READ QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// handleGetRank returns a user's score card with guild rank.
func (s *Server) handleGetRank(w http.ResponseWriter, r *http.Request) {
	guildID := progression.GuildID(r.PathValue("guild"))
	userID := progression.UserID(r.PathValue("user"))

	view, err := s.deps.GetRank.Handle(r.Context(), userID, guildID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// handleGetLeaderboard returns the guild leaderboard. The limit parameter is
// clamped inside the query handler.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	guildID := progression.GuildID(r.PathValue("guild"))

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}

	view, err := s.deps.GetLeaderboard.Handle(r.Context(), guildID, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// handleGetGuildConfig returns settings, multipliers and blacklist entries.
func (s *Server) handleGetGuildConfig(w http.ResponseWriter, r *http.Request) {
	guildID := progression.GuildID(r.PathValue("guild"))

	view, err := s.deps.GetGuildConfig.Handle(r.Context(), guildID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORE ADJUSTMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type xpAdjustRequest struct {
	Amount int64 `json:"amount"`
}

type levelAdjustRequest struct {
	Count int `json:"count"`
}

func (s *Server) handleAddXP(w http.ResponseWriter, r *http.Request) {
	var req xpAdjustRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.AdjustScore.AddXP(r.Context(),
		progression.UserID(r.PathValue("user")),
		progression.GuildID(r.PathValue("guild")),
		progression.XP(req.Amount))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRemoveXP(w http.ResponseWriter, r *http.Request) {
	var req xpAdjustRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.AdjustScore.RemoveXP(r.Context(),
		progression.UserID(r.PathValue("user")),
		progression.GuildID(r.PathValue("guild")),
		progression.XP(req.Amount))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleResetXP(w http.ResponseWriter, r *http.Request) {
	err := s.deps.AdjustScore.ResetXP(r.Context(),
		progression.UserID(r.PathValue("user")),
		progression.GuildID(r.PathValue("guild")))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleAddLevels(w http.ResponseWriter, r *http.Request) {
	var req levelAdjustRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.AdjustScore.AddLevels(r.Context(),
		progression.UserID(r.PathValue("user")),
		progression.GuildID(r.PathValue("guild")),
		req.Count)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRemoveLevels(w http.ResponseWriter, r *http.Request) {
	var req levelAdjustRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.AdjustScore.RemoveLevels(r.Context(),
		progression.UserID(r.PathValue("user")),
		progression.GuildID(r.PathValue("guild")),
		req.Count)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// BACKGROUND HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type backgroundRequest struct {
	Ref string `json:"ref"`
}

func (s *Server) handleSetBackground(w http.ResponseWriter, r *http.Request) {
	var req backgroundRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.deps.ManageBackground.SetBackground(r.Context(),
		progression.UserID(r.PathValue("user")),
		progression.GuildID(r.PathValue("guild")),
		req.Ref)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleClearBackground(w http.ResponseWriter, r *http.Request) {
	err := s.deps.ManageBackground.ClearBackground(r.Context(),
		progression.UserID(r.PathValue("user")),
		progression.GuildID(r.PathValue("guild")))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// ══════════════════════════════════════════════════════════════════════════════
// GUILD CONFIGURATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type multiplierRequest struct {
	TargetType string  `json:"target_type"`
	TargetID   string  `json:"target_id"`
	Value      float64 `json:"value"`
}

func (s *Server) handleSetMultiplier(w http.ResponseWriter, r *http.Request) {
	var req multiplierRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.deps.ConfigureGuild.SetMultiplier(r.Context(),
		progression.GuildID(r.PathValue("guild")),
		progression.TargetType(req.TargetType),
		req.TargetID,
		req.Value)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleRemoveMultiplier(w http.ResponseWriter, r *http.Request) {
	err := s.deps.ConfigureGuild.RemoveMultiplier(r.Context(),
		progression.GuildID(r.PathValue("guild")),
		progression.TargetType(r.PathValue("type")),
		r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

type exclusionRequest struct {
	Kind     string `json:"kind"`
	TargetID string `json:"target_id"`
}

func (s *Server) handleAddExclusion(w http.ResponseWriter, r *http.Request) {
	var req exclusionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.deps.ConfigureGuild.AddExclusion(r.Context(),
		progression.GuildID(r.PathValue("guild")),
		progression.ExclusionKind(req.Kind),
		req.TargetID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

func (s *Server) handleRemoveExclusion(w http.ResponseWriter, r *http.Request) {
	err := s.deps.ConfigureGuild.RemoveExclusion(r.Context(),
		progression.GuildID(r.PathValue("guild")),
		progression.ExclusionKind(r.PathValue("kind")),
		r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

type settingsRequest struct {
	XPRate                 int  `json:"xp_rate"`
	LevelUpMessagesEnabled bool `json:"level_up_messages_enabled"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.deps.ConfigureGuild.UpdateSettings(r.Context(), &progression.GuildSettings{
		GuildID:                progression.GuildID(r.PathValue("guild")),
		XPRate:                 req.XPRate,
		LevelUpMessagesEnabled: req.LevelUpMessagesEnabled,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING AND REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain error kinds to HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		s.logger.Error("request failed",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return false
	}
	return true
}
