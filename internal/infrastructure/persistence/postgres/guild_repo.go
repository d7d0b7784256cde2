package postgres

import (
	"context"
	"fmt"

	"github.com/grindstone-bot/grindstone/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// MULTIPLIER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// MultiplierRepository implements progression.MultiplierRepository for
// PostgreSQL.
type MultiplierRepository struct {
	conn *Connection
}

// NewMultiplierRepository creates a new MultiplierRepository.
func NewMultiplierRepository(conn *Connection) *MultiplierRepository {
	return &MultiplierRepository{conn: conn}
}

// SetMultiplier creates or replaces the row for (guild, type, target).
func (r *MultiplierRepository) SetMultiplier(ctx context.Context, m *progression.Multiplier) error {
	query := `
		INSERT INTO multipliers (guild_id, target_type, target_id, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, target_type, target_id) DO UPDATE
		SET value = EXCLUDED.value
	`

	if _, err := r.conn.Exec(ctx, query,
		string(m.GuildID), string(m.TargetType), m.TargetID, m.Value,
	); err != nil {
		return fmt.Errorf("failed to set multiplier: %w", err)
	}
	return nil
}

// RemoveMultiplier deletes the row. Removing an absent row is not an error.
func (r *MultiplierRepository) RemoveMultiplier(ctx context.Context, guildID progression.GuildID, targetType progression.TargetType, targetID string) error {
	query := `
		DELETE FROM multipliers
		WHERE guild_id = $1 AND target_type = $2 AND target_id = $3
	`

	if _, err := r.conn.Exec(ctx, query, string(guildID), string(targetType), targetID); err != nil {
		return fmt.Errorf("failed to remove multiplier: %w", err)
	}
	return nil
}

// ListMultipliers returns all multiplier rows for the guild.
func (r *MultiplierRepository) ListMultipliers(ctx context.Context, guildID progression.GuildID) ([]progression.Multiplier, error) {
	query := `
		SELECT guild_id, target_type, target_id, value
		FROM multipliers
		WHERE guild_id = $1
		ORDER BY target_type, target_id
	`

	rows, err := r.conn.Query(ctx, query, string(guildID))
	if err != nil {
		return nil, fmt.Errorf("failed to query multipliers: %w", err)
	}
	defer rows.Close()

	var out []progression.Multiplier
	for rows.Next() {
		var (
			gid        string
			targetType string
			targetID   string
			value      float64
		)
		if err := rows.Scan(&gid, &targetType, &targetID, &value); err != nil {
			return nil, fmt.Errorf("failed to scan multiplier row: %w", err)
		}
		out = append(out, progression.Multiplier{
			GuildID:    progression.GuildID(gid),
			TargetType: progression.TargetType(targetType),
			TargetID:   targetID,
			Value:      value,
		})
	}
	return out, rows.Err()
}

// MultiplierFor returns the configured value, or 1.0 when no row exists.
func (r *MultiplierRepository) MultiplierFor(ctx context.Context, guildID progression.GuildID, targetType progression.TargetType, targetID string) (float64, error) {
	query := `
		SELECT value FROM multipliers
		WHERE guild_id = $1 AND target_type = $2 AND target_id = $3
	`

	var value float64
	err := r.conn.QueryRow(ctx, query, string(guildID), string(targetType), targetID).Scan(&value)
	if IsNoRows(err) {
		return progression.DefaultMultiplier, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get multiplier: %w", err)
	}
	return value, nil
}

// RoleMultipliers returns configured values for the given roles in one round
// trip. Roles without a row are absent from the result.
func (r *MultiplierRepository) RoleMultipliers(ctx context.Context, guildID progression.GuildID, roleIDs []progression.RoleID) (map[progression.RoleID]float64, error) {
	out := make(map[progression.RoleID]float64)
	if len(roleIDs) == 0 {
		return out, nil
	}

	ids := make([]string, len(roleIDs))
	for i, r := range roleIDs {
		ids[i] = string(r)
	}

	query := `
		SELECT target_id, value FROM multipliers
		WHERE guild_id = $1 AND target_type = 'role' AND target_id = ANY($2)
	`

	rows, err := r.conn.Query(ctx, query, string(guildID), ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query role multipliers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			targetID string
			value    float64
		)
		if err := rows.Scan(&targetID, &value); err != nil {
			return nil, fmt.Errorf("failed to scan role multiplier: %w", err)
		}
		out[progression.RoleID(targetID)] = value
	}
	return out, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// EXCLUSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ExclusionRepository implements progression.ExclusionRepository for
// PostgreSQL.
type ExclusionRepository struct {
	conn *Connection
}

// NewExclusionRepository creates a new ExclusionRepository.
func NewExclusionRepository(conn *Connection) *ExclusionRepository {
	return &ExclusionRepository{conn: conn}
}

// AddExclusion creates the row. Adding a duplicate is not an error.
func (r *ExclusionRepository) AddExclusion(ctx context.Context, e *progression.ExclusionEntry) error {
	query := `
		INSERT INTO blacklist (guild_id, kind, target_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, kind, target_id) DO NOTHING
	`

	if _, err := r.conn.Exec(ctx, query, string(e.GuildID), string(e.Kind), e.TargetID); err != nil {
		return fmt.Errorf("failed to add exclusion: %w", err)
	}
	return nil
}

// RemoveExclusion deletes the row. Removing an absent row is not an error.
func (r *ExclusionRepository) RemoveExclusion(ctx context.Context, guildID progression.GuildID, kind progression.ExclusionKind, targetID string) error {
	query := `
		DELETE FROM blacklist
		WHERE guild_id = $1 AND kind = $2 AND target_id = $3
	`

	if _, err := r.conn.Exec(ctx, query, string(guildID), string(kind), targetID); err != nil {
		return fmt.Errorf("failed to remove exclusion: %w", err)
	}
	return nil
}

// ListExclusions returns all blacklist rows for the guild.
func (r *ExclusionRepository) ListExclusions(ctx context.Context, guildID progression.GuildID) ([]progression.ExclusionEntry, error) {
	query := `
		SELECT guild_id, kind, target_id
		FROM blacklist
		WHERE guild_id = $1
		ORDER BY kind, target_id
	`

	rows, err := r.conn.Query(ctx, query, string(guildID))
	if err != nil {
		return nil, fmt.Errorf("failed to query blacklist: %w", err)
	}
	defer rows.Close()

	var out []progression.ExclusionEntry
	for rows.Next() {
		var gid, kind, targetID string
		if err := rows.Scan(&gid, &kind, &targetID); err != nil {
			return nil, fmt.Errorf("failed to scan blacklist row: %w", err)
		}
		out = append(out, progression.ExclusionEntry{
			GuildID:  progression.GuildID(gid),
			Kind:     progression.ExclusionKind(kind),
			TargetID: targetID,
		})
	}
	return out, rows.Err()
}

// IsExcluded reports whether the user, the channel, or any of the roles is
// blacklisted in the guild, in a single query.
func (r *ExclusionRepository) IsExcluded(ctx context.Context, guildID progression.GuildID, userID progression.UserID, channelID progression.ChannelID, roleIDs []progression.RoleID) (bool, error) {
	ids := make([]string, len(roleIDs))
	for i, role := range roleIDs {
		ids[i] = string(role)
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM blacklist
			WHERE guild_id = $1
			  AND (
				(kind = 'user' AND target_id = $2)
				OR (kind = 'channel' AND target_id = $3)
				OR (kind = 'role' AND target_id = ANY($4))
			  )
		)
	`

	var excluded bool
	if err := r.conn.QueryRow(ctx, query,
		string(guildID), string(userID), string(channelID), ids,
	).Scan(&excluded); err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return excluded, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SettingsRepository implements progression.SettingsRepository for PostgreSQL.
type SettingsRepository struct {
	conn *Connection
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(conn *Connection) *SettingsRepository {
	return &SettingsRepository{conn: conn}
}

// GetSettings returns the guild's settings, or defaults when no row exists.
func (r *SettingsRepository) GetSettings(ctx context.Context, guildID progression.GuildID) (*progression.GuildSettings, error) {
	query := `
		SELECT guild_id, xp_rate, level_up_messages_enabled
		FROM guild_settings
		WHERE guild_id = $1
	`

	var (
		gid     string
		xpRate  int
		enabled bool
	)
	err := r.conn.QueryRow(ctx, query, string(guildID)).Scan(&gid, &xpRate, &enabled)
	if IsNoRows(err) {
		return progression.DefaultGuildSettings(guildID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return &progression.GuildSettings{
		GuildID:                progression.GuildID(gid),
		XPRate:                 xpRate,
		LevelUpMessagesEnabled: enabled,
	}, nil
}

// UpdateSettings replaces the guild's settings row.
func (r *SettingsRepository) UpdateSettings(ctx context.Context, s *progression.GuildSettings) error {
	query := `
		INSERT INTO guild_settings (guild_id, xp_rate, level_up_messages_enabled)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id) DO UPDATE
		SET xp_rate = EXCLUDED.xp_rate,
		    level_up_messages_enabled = EXCLUDED.level_up_messages_enabled
	`

	if _, err := r.conn.Exec(ctx, query,
		string(s.GuildID), s.XPRate, s.LevelUpMessagesEnabled,
	); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}
