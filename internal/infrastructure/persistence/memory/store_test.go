package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grindstone-bot/grindstone/internal/domain/progression"
)

func TestStore_GetUser_DefaultOnMiss(t *testing.T) {
	store := NewStore()

	sc, err := store.GetUser(context.Background(), "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, progression.XP(0), sc.XP)
	assert.Equal(t, progression.Level(1), sc.Level)
	assert.True(t, sc.UpdatedAt.IsZero())
}

func TestStore_ApplyXPDelta_RecomputesLevel(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	res, err := store.ApplyXPDelta(ctx, "u1", "g1", 100, false)
	require.NoError(t, err)
	assert.Equal(t, progression.XP(100), res.Score.XP)
	assert.Equal(t, progression.Level(2), res.Score.Level)
	assert.Equal(t, progression.Level(1), res.OldLevel)
	assert.True(t, res.LeveledUp)

	// Small delta within the same level.
	res, err = store.ApplyXPDelta(ctx, "u1", "g1", 10, false)
	require.NoError(t, err)
	assert.Equal(t, progression.XP(110), res.Score.XP)
	assert.False(t, res.LeveledUp)
}

func TestStore_ApplyXPDelta_FloorAtZero(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.ApplyXPDelta(ctx, "u1", "g1", 50, false)
	require.NoError(t, err)

	res, err := store.ApplyXPDelta(ctx, "u1", "g1", -200, true)
	require.NoError(t, err)
	assert.Equal(t, progression.XP(0), res.Score.XP)
	assert.Equal(t, progression.Level(1), res.Score.Level)
}

func TestStore_ApplyXPDelta_Concurrent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	const workers = 64
	const perWorker = 25

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := store.ApplyXPDelta(ctx, "u1", "g1", 1, false)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	sc, err := store.GetUser(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, progression.XP(workers*perWorker), sc.XP)
	assert.True(t, sc.ConsistentLevel())
}

func TestStore_SetLevelDirectly_DerivesXP(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	sc, err := store.SetLevelDirectly(ctx, "u1", "g1", 5)
	require.NoError(t, err)
	assert.Equal(t, progression.Level(5), sc.Level)
	assert.Equal(t, progression.XPFloorFor(5), sc.XP)
	assert.True(t, sc.ConsistentLevel())

	_, err = store.SetLevelDirectly(ctx, "u1", "g1", 0)
	assert.ErrorIs(t, err, progression.ErrInvalidLevel)
}

func TestStore_ResetUser(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.ApplyXPDelta(ctx, "u1", "g1", 500, false)
	require.NoError(t, err)

	require.NoError(t, store.ResetUser(ctx, "u1", "g1"))

	sc, err := store.GetUser(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, progression.XP(0), sc.XP)
	assert.Equal(t, progression.Level(1), sc.Level)

	// Resetting again is a no-op.
	assert.NoError(t, store.ResetUser(ctx, "u1", "g1"))
}

func TestStore_Background(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.SetBackground(ctx, "u1", "g1", "./data/backgrounds/galaxy.png"))

	sc, err := store.GetUser(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, "./data/backgrounds/galaxy.png", sc.BackgroundRef)

	require.NoError(t, store.ClearBackground(ctx, "u1", "g1"))
	sc, err = store.GetUser(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Empty(t, sc.BackgroundRef)
}

func TestStore_ListTopByXP(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, _ = store.ApplyXPDelta(ctx, "a", "g1", 300, false)
	_, _ = store.ApplyXPDelta(ctx, "b", "g1", 100, false)
	_, _ = store.ApplyXPDelta(ctx, "c", "g1", 200, false)
	_, _ = store.ApplyXPDelta(ctx, "other", "g2", 999, false)

	top, err := store.ListTopByXP(ctx, "g1", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, progression.UserID("a"), top[0].UserID)
	assert.Equal(t, progression.UserID("c"), top[1].UserID)
}

func TestStore_RankOf_TiesShareRank(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, _ = store.ApplyXPDelta(ctx, "a", "g1", 300, false)
	_, _ = store.ApplyXPDelta(ctx, "b", "g1", 200, false)
	_, _ = store.ApplyXPDelta(ctx, "c", "g1", 200, false)
	_, _ = store.ApplyXPDelta(ctx, "d", "g1", 100, false)

	rank, err := store.RankOf(ctx, "a", "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, rank)

	// b and c tie at rank 2; d is pushed to rank 4, not 3.
	for _, u := range []progression.UserID{"b", "c"} {
		rank, err = store.RankOf(ctx, u, "g1")
		require.NoError(t, err)
		assert.Equal(t, 2, rank)
	}

	rank, err = store.RankOf(ctx, "d", "g1")
	require.NoError(t, err)
	assert.Equal(t, 4, rank)

	// Unknown users rank behind everyone with XP.
	rank, err = store.RankOf(ctx, "ghost", "g1")
	require.NoError(t, err)
	assert.Equal(t, 5, rank)
}

func TestStore_Multipliers(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	m, err := progression.NewMultiplier("g1", progression.TargetChannel, "ch1", 2.0)
	require.NoError(t, err)
	require.NoError(t, store.SetMultiplier(ctx, m))

	v, err := store.MultiplierFor(ctx, "g1", progression.TargetChannel, "ch1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	// Unknown target resolves to the default.
	v, err = store.MultiplierFor(ctx, "g1", progression.TargetChannel, "ch2")
	require.NoError(t, err)
	assert.Equal(t, progression.DefaultMultiplier, v)

	require.NoError(t, store.RemoveMultiplier(ctx, "g1", progression.TargetChannel, "ch1"))
	v, err = store.MultiplierFor(ctx, "g1", progression.TargetChannel, "ch1")
	require.NoError(t, err)
	assert.Equal(t, progression.DefaultMultiplier, v)
}

func TestStore_RoleMultipliers_BatchLookup(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	m1, _ := progression.NewMultiplier("g1", progression.TargetRole, "r1", 1.5)
	m2, _ := progression.NewMultiplier("g1", progression.TargetRole, "r2", 3.0)
	require.NoError(t, store.SetMultiplier(ctx, m1))
	require.NoError(t, store.SetMultiplier(ctx, m2))

	got, err := store.RoleMultipliers(ctx, "g1", []progression.RoleID{"r1", "r2", "r3"})
	require.NoError(t, err)
	assert.Equal(t, map[progression.RoleID]float64{"r1": 1.5, "r2": 3.0}, got)
}

func TestStore_Exclusions(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	e, err := progression.NewExclusionEntry("g1", progression.ExcludeUser, "u1")
	require.NoError(t, err)
	require.NoError(t, store.AddExclusion(ctx, e))

	excluded, err := store.IsExcluded(ctx, "g1", "u1", "ch1", nil)
	require.NoError(t, err)
	assert.True(t, excluded)

	// Other users in the same channel are unaffected.
	excluded, err = store.IsExcluded(ctx, "g1", "u2", "ch1", nil)
	require.NoError(t, err)
	assert.False(t, excluded)

	// Role exclusions match through role membership.
	re, err := progression.NewExclusionEntry("g1", progression.ExcludeRole, "muted")
	require.NoError(t, err)
	require.NoError(t, store.AddExclusion(ctx, re))

	excluded, err = store.IsExcluded(ctx, "g1", "u2", "ch1", []progression.RoleID{"muted"})
	require.NoError(t, err)
	assert.True(t, excluded)

	require.NoError(t, store.RemoveExclusion(ctx, "g1", progression.ExcludeUser, "u1"))
	excluded, err = store.IsExcluded(ctx, "g1", "u1", "ch1", nil)
	require.NoError(t, err)
	assert.False(t, excluded)
}

func TestStore_Settings_DefaultOnMiss(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	st, err := store.GetSettings(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, st.LevelUpMessagesEnabled)
	assert.Equal(t, 1, st.XPRate)

	st.LevelUpMessagesEnabled = false
	require.NoError(t, store.UpdateSettings(ctx, st))

	st, err = store.GetSettings(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, st.LevelUpMessagesEnabled)
}
