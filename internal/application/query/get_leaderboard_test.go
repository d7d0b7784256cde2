package query

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grindstone-bot/grindstone/internal/domain/progression"
	"github.com/grindstone-bot/grindstone/internal/infrastructure/persistence/memory"
	"github.com/grindstone-bot/grindstone/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

// countingCache wraps a page in memory and counts hits and misses.
type countingCache struct {
	page   []*progression.UserScore
	reads  int
	writes int
}

func (c *countingCache) GetCachedTop(context.Context, progression.GuildID, int) ([]*progression.UserScore, error) {
	c.reads++
	return c.page, nil
}

func (c *countingCache) SetCachedTop(_ context.Context, _ progression.GuildID, _ int, entries []*progression.UserScore, _ time.Duration) error {
	c.writes++
	c.page = entries
	return nil
}

func (c *countingCache) Invalidate(context.Context, progression.GuildID) error {
	c.page = nil
	return nil
}

func seedGuild(t *testing.T, store *memory.Store, guildID progression.GuildID, users int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < users; i++ {
		userID := progression.UserID(string(rune('a' + i)))
		_, err := store.ApplyXPDelta(ctx, userID, guildID, progression.XP((i+1)*100), false)
		require.NoError(t, err)
	}
}

func TestGetLeaderboard_OrderedByXPDescending(t *testing.T) {
	store := memory.NewStore()
	seedGuild(t, store, "g1", 3)
	h := NewGetLeaderboardHandler(store, nil, 0, testLogger())

	view, err := h.Handle(context.Background(), "g1", 10)
	require.NoError(t, err)
	require.Len(t, view.Entries, 3)
	assert.Equal(t, "c", view.Entries[0].UserID)
	assert.Equal(t, int64(300), view.Entries[0].XP)
	assert.Equal(t, 1, view.Entries[0].Position)
	assert.Equal(t, "a", view.Entries[2].UserID)
	assert.Equal(t, 3, view.Entries[2].Position)
}

func TestGetLeaderboard_LimitDefaultsAndClamps(t *testing.T) {
	store := memory.NewStore()
	seedGuild(t, store, "g1", 26)
	h := NewGetLeaderboardHandler(store, nil, 0, testLogger())
	ctx := context.Background()

	view, err := h.Handle(ctx, "g1", 0)
	require.NoError(t, err)
	assert.Len(t, view.Entries, DefaultLeaderboardLimit)

	view, err = h.Handle(ctx, "g1", 100)
	require.NoError(t, err)
	assert.Len(t, view.Entries, MaxLeaderboardLimit)
}

func TestGetLeaderboard_ReadsThroughCache(t *testing.T) {
	store := memory.NewStore()
	seedGuild(t, store, "g1", 3)
	cache := &countingCache{}
	h := NewGetLeaderboardHandler(store, cache, time.Minute, testLogger())
	ctx := context.Background()

	// First query misses the cache and populates it.
	view, err := h.Handle(ctx, "g1", 10)
	require.NoError(t, err)
	assert.Len(t, view.Entries, 3)
	assert.Equal(t, 1, cache.reads)
	assert.Equal(t, 1, cache.writes)

	// Second query is served from the cache.
	view, err = h.Handle(ctx, "g1", 10)
	require.NoError(t, err)
	assert.Len(t, view.Entries, 3)
	assert.Equal(t, 2, cache.reads)
	assert.Equal(t, 1, cache.writes)
}

func TestGetLeaderboard_EmptyGuild(t *testing.T) {
	h := NewGetLeaderboardHandler(memory.NewStore(), nil, 0, testLogger())

	view, err := h.Handle(context.Background(), "g1", 10)
	require.NoError(t, err)
	assert.Empty(t, view.Entries)
}
