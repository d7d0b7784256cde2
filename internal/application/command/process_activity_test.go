package command

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grindstone-bot/grindstone/internal/domain/progression"
	"github.com/grindstone-bot/grindstone/internal/domain/shared"
	"github.com/grindstone-bot/grindstone/internal/infrastructure/persistence/memory"
	"github.com/grindstone-bot/grindstone/pkg/logger"
)

// fixedRand always returns the same draw, making awards deterministic.
type fixedRand struct{ n int }

func (r fixedRand) Intn(int) int { return r.n }

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	events []shared.Event
}

func (p *recordingPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) byType(t shared.EventType) []shared.Event {
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

// failingScores fails every mutation, simulating a storage outage.
type failingScores struct {
	progression.ScoreRepository
}

func (failingScores) ApplyXPDelta(context.Context, progression.UserID, progression.GuildID, progression.XP, bool) (*progression.DeltaResult, error) {
	return nil, errors.New("connection refused")
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

func newActivityHandler(store *memory.Store, pub *recordingPublisher, draw int) *ProcessActivityHandler {
	return NewProcessActivityHandler(store, store, store, store, pub, fixedRand{n: draw}, testLogger())
}

func TestProcessActivity_BaseAwardPersisted(t *testing.T) {
	store := memory.NewStore()
	pub := &recordingPublisher{}
	// Draw 0 makes the base award the minimum, 5.
	h := newActivityHandler(store, pub, 0)

	res, err := h.Handle(context.Background(), ActivityEvent{
		UserID: "u1", GuildID: "g1", ChannelID: "ch1",
	})
	require.NoError(t, err)
	assert.Equal(t, progression.XP(5), res.Awarded)
	assert.Equal(t, progression.XP(5), res.NewXP)
	assert.Equal(t, progression.Level(1), res.NewLevel)
	assert.False(t, res.LeveledUp)

	sc, err := store.GetUser(context.Background(), "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, progression.XP(5), sc.XP)

	assert.Len(t, pub.byType(shared.EventXPAwarded), 1)
}

func TestProcessActivity_ChannelMultiplierApplied(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	m, err := progression.NewMultiplier("g1", progression.TargetChannel, "ch1", 2.0)
	require.NoError(t, err)
	require.NoError(t, store.SetMultiplier(ctx, m))

	// Draw 5 makes the base award 10; doubled by the channel multiplier.
	h := newActivityHandler(store, &recordingPublisher{}, 5)

	res, err := h.Handle(ctx, ActivityEvent{UserID: "u1", GuildID: "g1", ChannelID: "ch1"})
	require.NoError(t, err)
	assert.Equal(t, progression.XP(20), res.Awarded)
	assert.Equal(t, progression.XP(20), res.NewXP)
}

func TestProcessActivity_RoleMultipliersDoNotStack(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	for role, value := range map[string]float64{"r1": 1.5, "r2": 3.0} {
		m, err := progression.NewMultiplier("g1", progression.TargetRole, role, value)
		require.NoError(t, err)
		require.NoError(t, store.SetMultiplier(ctx, m))
	}

	// Base 10 times the single highest role multiplier, 3.0.
	h := newActivityHandler(store, &recordingPublisher{}, 5)

	res, err := h.Handle(ctx, ActivityEvent{
		UserID: "u1", GuildID: "g1", ChannelID: "ch1",
		RoleIDs: []progression.RoleID{"r1", "r2"},
	})
	require.NoError(t, err)
	assert.Equal(t, progression.XP(30), res.Awarded)
}

func TestProcessActivity_RoundsOnceAfterCombining(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	mc, err := progression.NewMultiplier("g1", progression.TargetChannel, "ch1", 0.5)
	require.NoError(t, err)
	require.NoError(t, store.SetMultiplier(ctx, mc))
	mr, err := progression.NewMultiplier("g1", progression.TargetRole, "r1", 1.5)
	require.NoError(t, err)
	require.NoError(t, store.SetMultiplier(ctx, mr))

	// Base 5 times 0.5 times 1.5 = 3.75, rounded half-up once to 4. Rounding
	// per multiplier would give floor-then-scale artifacts instead.
	h := newActivityHandler(store, &recordingPublisher{}, 0)

	res, err := h.Handle(ctx, ActivityEvent{
		UserID: "u1", GuildID: "g1", ChannelID: "ch1",
		RoleIDs: []progression.RoleID{"r1"},
	})
	require.NoError(t, err)
	assert.Equal(t, progression.XP(4), res.Awarded)
}

func TestProcessActivity_ExcludedUserEarnsNothing(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	e, err := progression.NewExclusionEntry("g1", progression.ExcludeUser, "u1")
	require.NoError(t, err)
	require.NoError(t, store.AddExclusion(ctx, e))

	pub := &recordingPublisher{}
	h := newActivityHandler(store, pub, 0)

	res, err := h.Handle(ctx, ActivityEvent{UserID: "u1", GuildID: "g1", ChannelID: "ch1"})
	require.NoError(t, err)
	assert.True(t, res.Excluded)
	assert.Zero(t, res.Awarded)

	sc, err := store.GetUser(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, progression.XP(0), sc.XP)
	assert.Empty(t, pub.events)
}

func TestProcessActivity_StorageFailureDropsSilently(t *testing.T) {
	store := memory.NewStore()
	pub := &recordingPublisher{}
	h := NewProcessActivityHandler(
		failingScores{store}, store, store, store, pub, fixedRand{}, testLogger(),
	)

	res, err := h.Handle(context.Background(), ActivityEvent{
		UserID: "u1", GuildID: "g1", ChannelID: "ch1",
	})
	require.NoError(t, err)
	assert.True(t, res.Dropped)
	assert.Empty(t, pub.events)
}

func TestProcessActivity_LevelUpEmitsSingleEvent(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	// 96 XP: the next minimum award of 5 crosses the level 2 floor at 100.
	_, err := store.ApplyXPDelta(ctx, "u1", "g1", 96, false)
	require.NoError(t, err)

	pub := &recordingPublisher{}
	h := newActivityHandler(store, pub, 0)

	res, err := h.Handle(ctx, ActivityEvent{UserID: "u1", GuildID: "g1", ChannelID: "ch1"})
	require.NoError(t, err)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, progression.Level(2), res.NewLevel)

	ups := pub.byType(shared.EventLevelUp)
	require.Len(t, ups, 1)
	up, ok := ups[0].(progression.LevelUpEvent)
	require.True(t, ok)
	assert.Equal(t, progression.Level(1), up.OldLevel)
	assert.Equal(t, progression.Level(2), up.NewLevel)
	assert.Equal(t, progression.ChannelID("ch1"), up.ChannelID)
}

func TestProcessActivity_LevelUpSuppressedWhenDisabled(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	settings, err := store.GetSettings(ctx, "g1")
	require.NoError(t, err)
	settings.LevelUpMessagesEnabled = false
	require.NoError(t, store.UpdateSettings(ctx, settings))

	_, err = store.ApplyXPDelta(ctx, "u1", "g1", 96, false)
	require.NoError(t, err)

	pub := &recordingPublisher{}
	h := newActivityHandler(store, pub, 0)

	res, err := h.Handle(ctx, ActivityEvent{UserID: "u1", GuildID: "g1", ChannelID: "ch1"})
	require.NoError(t, err)

	// The award still lands; only the notification is suppressed.
	assert.True(t, res.LeveledUp)
	assert.Empty(t, pub.byType(shared.EventLevelUp))
	assert.Len(t, pub.byType(shared.EventXPAwarded), 1)
}

func TestProcessActivity_InvalidEventRejected(t *testing.T) {
	h := newActivityHandler(memory.NewStore(), &recordingPublisher{}, 0)

	_, err := h.Handle(context.Background(), ActivityEvent{UserID: "", GuildID: "g1", ChannelID: "ch1"})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}
