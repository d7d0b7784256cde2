// Package memory provides in-memory implementations of the progression
// repository ports. Used by tests and by local development without a
// database. All operations are safe for concurrent use.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/grindstone-bot/grindstone/internal/domain/progression"
)

// scoreKey identifies one (user, guild) record.
type scoreKey struct {
	userID  progression.UserID
	guildID progression.GuildID
}

// multiplierKey identifies one multiplier row.
type multiplierKey struct {
	guildID    progression.GuildID
	targetType progression.TargetType
	targetID   string
}

// exclusionKey identifies one blacklist row.
type exclusionKey struct {
	guildID  progression.GuildID
	kind     progression.ExclusionKind
	targetID string
}

// Store holds all progression state in process memory. One mutex guards
// everything, which also satisfies the per-(user, guild) read-modify-write
// serialization that ApplyXPDelta requires.
type Store struct {
	mu          sync.Mutex
	scores      map[scoreKey]*progression.UserScore
	multipliers map[multiplierKey]float64
	exclusions  map[exclusionKey]struct{}
	settings    map[progression.GuildID]*progression.GuildSettings
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		scores:      make(map[scoreKey]*progression.UserScore),
		multipliers: make(map[multiplierKey]float64),
		exclusions:  make(map[exclusionKey]struct{}),
		settings:    make(map[progression.GuildID]*progression.GuildSettings),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// ScoreRepository
// ──────────────────────────────────────────────────────────────────────────────

// GetUser returns the stored record or the default record for absent rows.
func (s *Store) GetUser(_ context.Context, userID progression.UserID, guildID progression.GuildID) (*progression.UserScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc, ok := s.scores[scoreKey{userID, guildID}]; ok {
		return sc.Clone(), nil
	}
	return progression.NewUserScore(userID, guildID), nil
}

// ApplyXPDelta applies the delta under the store lock and recomputes the
// level from the resulting XP.
func (s *Store) ApplyXPDelta(_ context.Context, userID progression.UserID, guildID progression.GuildID, delta progression.XP, floorAtZero bool) (*progression.DeltaResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc := s.getOrCreateLocked(userID, guildID)
	oldLevel := sc.Level

	newXP := sc.XP + delta
	if floorAtZero && newXP < 0 {
		newXP = 0
	}
	sc.XP = newXP
	sc.Level = progression.LevelFor(newXP)
	sc.UpdatedAt = time.Now().UTC()

	return &progression.DeltaResult{
		Score:     sc.Clone(),
		OldLevel:  oldLevel,
		LeveledUp: sc.Level > oldLevel,
	}, nil
}

// SetLevelDirectly sets the level and derives XP from the level floor.
func (s *Store) SetLevelDirectly(_ context.Context, userID progression.UserID, guildID progression.GuildID, newLevel progression.Level) (*progression.UserScore, error) {
	if !newLevel.IsValid() {
		return nil, progression.ErrInvalidLevel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sc := s.getOrCreateLocked(userID, guildID)
	sc.Level = newLevel
	sc.XP = progression.XPFloorFor(newLevel)
	sc.UpdatedAt = time.Now().UTC()
	return sc.Clone(), nil
}

// ResetUser deletes the row.
func (s *Store) ResetUser(_ context.Context, userID progression.UserID, guildID progression.GuildID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.scores, scoreKey{userID, guildID})
	return nil
}

// SetBackground stores the background reference, creating the row if needed.
func (s *Store) SetBackground(_ context.Context, userID progression.UserID, guildID progression.GuildID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc := s.getOrCreateLocked(userID, guildID)
	sc.BackgroundRef = ref
	sc.UpdatedAt = time.Now().UTC()
	return nil
}

// ClearBackground removes the background reference. Absent rows are a no-op.
func (s *Store) ClearBackground(_ context.Context, userID progression.UserID, guildID progression.GuildID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc, ok := s.scores[scoreKey{userID, guildID}]; ok {
		sc.BackgroundRef = ""
		sc.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// ListTopByXP returns at most limit records ordered by XP descending.
func (s *Store) ListTopByXP(_ context.Context, guildID progression.GuildID, limit int) ([]*progression.UserScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*progression.UserScore
	for k, sc := range s.scores {
		if k.guildID == guildID {
			all = append(all, sc.Clone())
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].XP > all[j].XP
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// RankOf computes 1 + count of rows with strictly greater XP.
func (s *Store) RankOf(_ context.Context, userID progression.UserID, guildID progression.GuildID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var own progression.XP
	if sc, ok := s.scores[scoreKey{userID, guildID}]; ok {
		own = sc.XP
	}

	rank := 1
	for k, sc := range s.scores {
		if k.guildID == guildID && k.userID != userID && sc.XP > own {
			rank++
		}
	}
	return rank, nil
}

// CountInGuild returns the number of stored rows in the guild.
func (s *Store) CountInGuild(_ context.Context, guildID progression.GuildID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for k := range s.scores {
		if k.guildID == guildID {
			count++
		}
	}
	return count, nil
}

// getOrCreateLocked returns the live row, creating the default row on miss.
// Caller holds s.mu.
func (s *Store) getOrCreateLocked(userID progression.UserID, guildID progression.GuildID) *progression.UserScore {
	key := scoreKey{userID, guildID}
	sc, ok := s.scores[key]
	if !ok {
		sc = progression.NewUserScore(userID, guildID)
		s.scores[key] = sc
	}
	return sc
}

// ──────────────────────────────────────────────────────────────────────────────
// MultiplierRepository
// ──────────────────────────────────────────────────────────────────────────────

// SetMultiplier creates or replaces the row.
func (s *Store) SetMultiplier(_ context.Context, m *progression.Multiplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.multipliers[multiplierKey{m.GuildID, m.TargetType, m.TargetID}] = m.Value
	return nil
}

// RemoveMultiplier deletes the row. Absent rows are a no-op.
func (s *Store) RemoveMultiplier(_ context.Context, guildID progression.GuildID, targetType progression.TargetType, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.multipliers, multiplierKey{guildID, targetType, targetID})
	return nil
}

// ListMultipliers returns all multiplier rows for the guild.
func (s *Store) ListMultipliers(_ context.Context, guildID progression.GuildID) ([]progression.Multiplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []progression.Multiplier
	for k, v := range s.multipliers {
		if k.guildID == guildID {
			out = append(out, progression.Multiplier{
				GuildID:    k.guildID,
				TargetType: k.targetType,
				TargetID:   k.targetID,
				Value:      v,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TargetType != out[j].TargetType {
			return out[i].TargetType < out[j].TargetType
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out, nil
}

// MultiplierFor returns the configured value, or the default 1.0.
func (s *Store) MultiplierFor(_ context.Context, guildID progression.GuildID, targetType progression.TargetType, targetID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.multipliers[multiplierKey{guildID, targetType, targetID}]; ok {
		return v, nil
	}
	return progression.DefaultMultiplier, nil
}

// RoleMultipliers returns configured values for the given roles. Roles with
// no row are absent from the result.
func (s *Store) RoleMultipliers(_ context.Context, guildID progression.GuildID, roleIDs []progression.RoleID) (map[progression.RoleID]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[progression.RoleID]float64)
	for _, r := range roleIDs {
		if v, ok := s.multipliers[multiplierKey{guildID, progression.TargetRole, string(r)}]; ok {
			out[r] = v
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ExclusionRepository
// ──────────────────────────────────────────────────────────────────────────────

// AddExclusion creates the row. Duplicates are a no-op.
func (s *Store) AddExclusion(_ context.Context, e *progression.ExclusionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exclusions[exclusionKey{e.GuildID, e.Kind, e.TargetID}] = struct{}{}
	return nil
}

// RemoveExclusion deletes the row. Absent rows are a no-op.
func (s *Store) RemoveExclusion(_ context.Context, guildID progression.GuildID, kind progression.ExclusionKind, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.exclusions, exclusionKey{guildID, kind, targetID})
	return nil
}

// ListExclusions returns all blacklist rows for the guild.
func (s *Store) ListExclusions(_ context.Context, guildID progression.GuildID) ([]progression.ExclusionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []progression.ExclusionEntry
	for k := range s.exclusions {
		if k.guildID == guildID {
			out = append(out, progression.ExclusionEntry{
				GuildID:  k.guildID,
				Kind:     k.kind,
				TargetID: k.targetID,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out, nil
}

// IsExcluded checks the user, the channel, and each role against the
// blacklist.
func (s *Store) IsExcluded(_ context.Context, guildID progression.GuildID, userID progression.UserID, channelID progression.ChannelID, roleIDs []progression.RoleID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.exclusions[exclusionKey{guildID, progression.ExcludeUser, string(userID)}]; ok {
		return true, nil
	}
	if _, ok := s.exclusions[exclusionKey{guildID, progression.ExcludeChannel, string(channelID)}]; ok {
		return true, nil
	}
	for _, r := range roleIDs {
		if _, ok := s.exclusions[exclusionKey{guildID, progression.ExcludeRole, string(r)}]; ok {
			return true, nil
		}
	}
	return false, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// SettingsRepository
// ──────────────────────────────────────────────────────────────────────────────

// GetSettings returns stored settings or defaults on miss.
func (s *Store) GetSettings(_ context.Context, guildID progression.GuildID) (*progression.GuildSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.settings[guildID]; ok {
		cp := *st
		return &cp, nil
	}
	return progression.DefaultGuildSettings(guildID), nil
}

// UpdateSettings replaces the settings row.
func (s *Store) UpdateSettings(_ context.Context, settings *progression.GuildSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *settings
	s.settings[settings.GuildID] = &cp
	return nil
}
