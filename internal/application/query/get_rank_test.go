package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grindstone-bot/grindstone/internal/domain/progression"
	"github.com/grindstone-bot/grindstone/internal/domain/shared"
	"github.com/grindstone-bot/grindstone/internal/infrastructure/persistence/memory"
)

func TestGetRank_UnknownUserGetsDefaults(t *testing.T) {
	h := NewGetRankHandler(memory.NewStore())

	view, err := h.Handle(context.Background(), "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), view.XP)
	assert.Equal(t, 1, view.Level)
	assert.Equal(t, 1, view.Rank)
	assert.Equal(t, 0, view.TotalUsers)
}

func TestGetRank_ComputesRankAndProgress(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	_, err := store.ApplyXPDelta(ctx, "top", "g1", 500, false)
	require.NoError(t, err)
	_, err = store.ApplyXPDelta(ctx, "mid", "g1", 150, false)
	require.NoError(t, err)

	h := NewGetRankHandler(store)
	view, err := h.Handle(ctx, "mid", "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), view.XP)
	assert.Equal(t, 2, view.Level)
	assert.Equal(t, 2, view.Rank)
	assert.Equal(t, 2, view.TotalUsers)

	// Level 3 starts at 400, so 250 more XP is needed from 150.
	assert.Equal(t, int64(250), view.XPToNextLevel)
	assert.Greater(t, view.LevelProgress, 0.0)
	assert.Less(t, view.LevelProgress, 1.0)
}

func TestGetRank_InvalidInput(t *testing.T) {
	h := NewGetRankHandler(memory.NewStore())

	_, err := h.Handle(context.Background(), "", "g1")
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestGetGuildConfig_DefaultsForUnknownGuild(t *testing.T) {
	store := memory.NewStore()
	h := NewGetGuildConfigHandler(store, store, store)

	view, err := h.Handle(context.Background(), "g1")
	require.NoError(t, err)
	assert.True(t, view.LevelUpMessagesEnabled)
	assert.Equal(t, 1, view.XPRate)
	assert.Empty(t, view.Multipliers)
	assert.Empty(t, view.Exclusions)
}

func TestGetGuildConfig_ReturnsConfiguredRows(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	m, err := progression.NewMultiplier("g1", progression.TargetChannel, "ch1", 2.5)
	require.NoError(t, err)
	require.NoError(t, store.SetMultiplier(ctx, m))

	e, err := progression.NewExclusionEntry("g1", progression.ExcludeChannel, "spam")
	require.NoError(t, err)
	require.NoError(t, store.AddExclusion(ctx, e))

	h := NewGetGuildConfigHandler(store, store, store)
	view, err := h.Handle(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, view.Multipliers, 1)
	assert.Equal(t, "channel", view.Multipliers[0].TargetType)
	assert.Equal(t, 2.5, view.Multipliers[0].Value)
	require.Len(t, view.Exclusions, 1)
	assert.Equal(t, "spam", view.Exclusions[0].TargetID)
}
