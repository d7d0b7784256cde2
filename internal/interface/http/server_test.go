package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/grindstone-bot/grindstone/internal/application/command"
	"github.com/grindstone-bot/grindstone/internal/application/query"
	"github.com/grindstone-bot/grindstone/internal/domain/progression"
	"github.com/grindstone-bot/grindstone/internal/infrastructure/persistence/memory"
	"github.com/grindstone-bot/grindstone/pkg/logger"
)

const testAdminToken = "test-admin-token"

type fixedRand struct{ n int }

func (r fixedRand) Intn(int) int { return r.n }

// newTestServer wires a full server over the in-memory store. The returned
// store can be used to seed and inspect state directly.
func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	log := logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminToken), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	cfg.AdminTokenHash = string(hash)

	// fixedRand{0} makes every base draw the minimum of 5.
	deps := Dependencies{
		ProcessActivity:  command.NewProcessActivityHandler(store, store, store, store, nil, fixedRand{0}, log),
		AdjustScore:      command.NewAdjustScoreHandler(store, nil, nil, log),
		ConfigureGuild:   command.NewConfigureGuildHandler(store, store, store, nil, log),
		ManageBackground: command.NewManageBackgroundHandler(store, log),
		GetRank:          query.NewGetRankHandler(store),
		GetLeaderboard:   query.NewGetLeaderboardHandler(store, nil, time.Minute, log),
		GetGuildConfig:   query.NewGetGuildConfigHandler(store, store, store),
		Logger:           log,
	}

	return NewServer(cfg, deps), store
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ─────────────────────────────────────────────────────────────────────────────
// Health
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/healthz", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResponse(t, rec).Success)
}

// ─────────────────────────────────────────────────────────────────────────────
// Activity ingest
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_ActivityEventAwardsXP(t *testing.T) {
	s, store := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/events/activity", map[string]interface{}{
		"user_id":    "u1",
		"guild_id":   "g1",
		"channel_id": "c1",
	}, "")

	assert.Equal(t, http.StatusAccepted, rec.Code)

	score, err := store.GetUser(context.Background(), "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, progression.XP(5), score.XP)
}

func TestServer_ActivityEventRejectsMissingFields(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/events/activity", map[string]interface{}{
		"guild_id":   "g1",
		"channel_id": "c1",
	}, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation_error", resp.Error.Code)
}

func TestServer_ActivityEventRejectsMalformedBody(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/activity", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Read queries
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_GetRank(t *testing.T) {
	s, store := newTestServer(t)

	_, err := store.ApplyXPDelta(context.Background(), "u1", "g1", 150, false)
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/users/u1/rank", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(150), data["xp"])
	assert.Equal(t, float64(2), data["level"])
	assert.Equal(t, float64(1), data["rank"])
}

func TestServer_GetLeaderboard(t *testing.T) {
	s, store := newTestServer(t)

	_, err := store.ApplyXPDelta(context.Background(), "u1", "g1", 300, false)
	require.NoError(t, err)
	_, err = store.ApplyXPDelta(context.Background(), "u2", "g1", 100, false)
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/leaderboard?limit=5", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	entries, ok := data["entries"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 2)

	first, ok := entries[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "u1", first["user_id"])
}

func TestServer_GetLeaderboardRejectsBadLimit(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/leaderboard?limit=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Admin auth
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_AdminRequiresToken(t *testing.T) {
	s, _ := newTestServer(t)

	body := map[string]interface{}{"amount": 100}

	rec := doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/users/u1/xp/add", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/users/u1/xp/add", body, "wrong-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/users/u1/xp/add", body, testAdminToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_AdminDisabledWithoutHash(t *testing.T) {
	s, _ := newTestServer(t)
	s.config.AdminTokenHash = ""

	rec := doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/users/u1/xp/reset", nil, testAdminToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Admin operations
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_AddXP(t *testing.T) {
	s, store := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/users/u1/xp/add",
		map[string]interface{}{"amount": 250}, testAdminToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	score, err := store.GetUser(context.Background(), "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, progression.XP(250), score.XP)
	assert.Equal(t, progression.Level(2), score.Level)
}

func TestServer_AddXPRejectsNonPositiveAmount(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/users/u1/xp/add",
		map[string]interface{}{"amount": 0}, testAdminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SetMultiplier(t *testing.T) {
	s, store := newTestServer(t)

	rec := doRequest(t, s, http.MethodPut, "/api/v1/guilds/g1/multipliers",
		map[string]interface{}{"target_type": "channel", "target_id": "c1", "value": 2.5}, testAdminToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	value, err := store.MultiplierFor(context.Background(), "g1", progression.TargetChannel, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2.5, value)
}

func TestServer_SetMultiplierRejectsOutOfBounds(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPut, "/api/v1/guilds/g1/multipliers",
		map[string]interface{}{"target_type": "channel", "target_id": "c1", "value": 50.0}, testAdminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_BlacklistLifecycle(t *testing.T) {
	s, store := newTestServer(t)

	rec := doRequest(t, s, http.MethodPut, "/api/v1/guilds/g1/blacklist",
		map[string]interface{}{"kind": "user", "target_id": "u1"}, testAdminToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	excluded, err := store.IsExcluded(context.Background(), "g1", "u1", "c1", nil)
	require.NoError(t, err)
	assert.True(t, excluded)

	rec = doRequest(t, s, http.MethodDelete, "/api/v1/guilds/g1/blacklist/user/u1", nil, testAdminToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	excluded, err = store.IsExcluded(context.Background(), "g1", "u1", "c1", nil)
	require.NoError(t, err)
	assert.False(t, excluded)
}

func TestServer_UpdateSettings(t *testing.T) {
	s, store := newTestServer(t)

	rec := doRequest(t, s, http.MethodPut, "/api/v1/guilds/g1/settings",
		map[string]interface{}{"xp_rate": 2, "level_up_messages_enabled": false}, testAdminToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	settings, err := store.GetSettings(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, settings.XPRate)
	assert.False(t, settings.LevelUpMessagesEnabled)
}

func TestServer_BackgroundLifecycle(t *testing.T) {
	s, store := newTestServer(t)

	rec := doRequest(t, s, http.MethodPut, "/api/v1/guilds/g1/users/u1/background",
		map[string]interface{}{"ref": "sunset.png"}, testAdminToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	score, err := store.GetUser(context.Background(), "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, "./data/backgrounds/sunset.png", score.BackgroundRef)

	rec = doRequest(t, s, http.MethodDelete, "/api/v1/guilds/g1/users/u1/background", nil, testAdminToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	score, err = store.GetUser(context.Background(), "u1", "g1")
	require.NoError(t, err)
	assert.Empty(t, score.BackgroundRef)
}
