package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/grindstone-bot/grindstone/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ScoreRepository implements progression.ScoreRepository for PostgreSQL.
//
// Read-modify-write mutations take a row lock (SELECT ... FOR UPDATE) inside a
// transaction, which serializes concurrent awards per (user, guild) across all
// instances sharing the database.
type ScoreRepository struct {
	conn *Connection
}

// NewScoreRepository creates a new ScoreRepository.
func NewScoreRepository(conn *Connection) *ScoreRepository {
	return &ScoreRepository{conn: conn}
}

// GetUser returns the record for (userID, guildID), or the default record
// when no row exists.
func (r *ScoreRepository) GetUser(ctx context.Context, userID progression.UserID, guildID progression.GuildID) (*progression.UserScore, error) {
	query := `
		SELECT user_id, guild_id, xp, level, background_ref, updated_at
		FROM users
		WHERE user_id = $1 AND guild_id = $2
	`

	score, err := r.scanScore(r.conn.QueryRow(ctx, query, string(userID), string(guildID)))
	if IsNoRows(err) {
		return progression.NewUserScore(userID, guildID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return score, nil
}

// ApplyXPDelta applies the delta under a row lock and recomputes the level
// from the resulting XP. Absent rows start from the defaults.
func (r *ScoreRepository) ApplyXPDelta(ctx context.Context, userID progression.UserID, guildID progression.GuildID, delta progression.XP, floorAtZero bool) (*progression.DeltaResult, error) {
	var result *progression.DeltaResult

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if err := r.ensureRow(ctx, tx, userID, guildID); err != nil {
			return err
		}

		current, err := r.lockRow(ctx, tx, userID, guildID)
		if err != nil {
			return err
		}

		oldLevel := current.Level
		newXP := current.XP + delta
		if floorAtZero && newXP < 0 {
			newXP = 0
		}
		newLevel := progression.LevelFor(newXP)
		now := time.Now().UTC()

		update := `
			UPDATE users
			SET xp = $3, level = $4, updated_at = $5
			WHERE user_id = $1 AND guild_id = $2
		`
		if _, err := tx.Exec(ctx, update,
			string(userID), string(guildID), int64(newXP), int(newLevel), now,
		); err != nil {
			return fmt.Errorf("failed to update score: %w", err)
		}

		current.XP = newXP
		current.Level = newLevel
		current.UpdatedAt = now

		result = &progression.DeltaResult{
			Score:     current,
			OldLevel:  oldLevel,
			LeveledUp: newLevel > oldLevel,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetLevelDirectly sets the level and derives XP = XPFloorFor(level).
func (r *ScoreRepository) SetLevelDirectly(ctx context.Context, userID progression.UserID, guildID progression.GuildID, newLevel progression.Level) (*progression.UserScore, error) {
	if !newLevel.IsValid() {
		return nil, progression.ErrInvalidLevel
	}

	var result *progression.UserScore

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if err := r.ensureRow(ctx, tx, userID, guildID); err != nil {
			return err
		}

		current, err := r.lockRow(ctx, tx, userID, guildID)
		if err != nil {
			return err
		}

		newXP := progression.XPFloorFor(newLevel)
		now := time.Now().UTC()

		update := `
			UPDATE users
			SET xp = $3, level = $4, updated_at = $5
			WHERE user_id = $1 AND guild_id = $2
		`
		if _, err := tx.Exec(ctx, update,
			string(userID), string(guildID), int64(newXP), int(newLevel), now,
		); err != nil {
			return fmt.Errorf("failed to set level: %w", err)
		}

		current.XP = newXP
		current.Level = newLevel
		current.UpdatedAt = now
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResetUser deletes the row. Deleting an absent row is a no-op.
func (r *ScoreRepository) ResetUser(ctx context.Context, userID progression.UserID, guildID progression.GuildID) error {
	query := `DELETE FROM users WHERE user_id = $1 AND guild_id = $2`

	if _, err := r.conn.Exec(ctx, query, string(userID), string(guildID)); err != nil {
		return fmt.Errorf("failed to reset user: %w", err)
	}
	return nil
}

// SetBackground stores a background reference, creating the row if needed.
func (r *ScoreRepository) SetBackground(ctx context.Context, userID progression.UserID, guildID progression.GuildID, ref string) error {
	query := `
		INSERT INTO users (user_id, guild_id, background_ref, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, guild_id) DO UPDATE
		SET background_ref = EXCLUDED.background_ref, updated_at = NOW()
	`

	if _, err := r.conn.Exec(ctx, query, string(userID), string(guildID), ref); err != nil {
		return fmt.Errorf("failed to set background: %w", err)
	}
	return nil
}

// ClearBackground removes the background reference. Absent rows are a no-op.
func (r *ScoreRepository) ClearBackground(ctx context.Context, userID progression.UserID, guildID progression.GuildID) error {
	query := `
		UPDATE users SET background_ref = NULL, updated_at = NOW()
		WHERE user_id = $1 AND guild_id = $2
	`

	if _, err := r.conn.Exec(ctx, query, string(userID), string(guildID)); err != nil {
		return fmt.Errorf("failed to clear background: %w", err)
	}
	return nil
}

// ListTopByXP returns at most limit records ordered by XP descending.
func (r *ScoreRepository) ListTopByXP(ctx context.Context, guildID progression.GuildID, limit int) ([]*progression.UserScore, error) {
	query := `
		SELECT user_id, guild_id, xp, level, background_ref, updated_at
		FROM users
		WHERE guild_id = $1
		ORDER BY xp DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, string(guildID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var scores []*progression.UserScore
	for rows.Next() {
		score, err := r.scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

// RankOf computes 1 + count of guild rows with strictly greater XP. Users
// without a row rank from zero XP.
func (r *ScoreRepository) RankOf(ctx context.Context, userID progression.UserID, guildID progression.GuildID) (int, error) {
	query := `
		SELECT COUNT(*) + 1
		FROM users
		WHERE guild_id = $1
		  AND xp > COALESCE(
			(SELECT xp FROM users WHERE user_id = $2 AND guild_id = $1), 0)
	`

	var rank int
	if err := r.conn.QueryRow(ctx, query, string(guildID), string(userID)).Scan(&rank); err != nil {
		return 0, fmt.Errorf("failed to compute rank: %w", err)
	}
	return rank, nil
}

// CountInGuild returns the number of score rows in the guild.
func (r *ScoreRepository) CountInGuild(ctx context.Context, guildID progression.GuildID) (int, error) {
	var count int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE guild_id = $1`, string(guildID)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// ensureRow inserts the default record when none exists. FOR UPDATE on an
// absent row locks nothing, so every read-modify-write seeds the row first
// inside its transaction; otherwise two concurrent first awards would both
// read the defaults and the later commit would erase the earlier one.
func (r *ScoreRepository) ensureRow(ctx context.Context, tx pgx.Tx, userID progression.UserID, guildID progression.GuildID) error {
	query := `
		INSERT INTO users (user_id, guild_id, xp, level, updated_at)
		VALUES ($1, $2, 0, 1, $3)
		ON CONFLICT (user_id, guild_id) DO NOTHING
	`

	if _, err := tx.Exec(ctx, query, string(userID), string(guildID), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to seed score row: %w", err)
	}
	return nil
}

// lockRow reads the current row under FOR UPDATE, returning the default
// record when no row exists yet.
func (r *ScoreRepository) lockRow(ctx context.Context, tx pgx.Tx, userID progression.UserID, guildID progression.GuildID) (*progression.UserScore, error) {
	query := `
		SELECT user_id, guild_id, xp, level, background_ref, updated_at
		FROM users
		WHERE user_id = $1 AND guild_id = $2
		FOR UPDATE
	`

	score, err := r.scanScore(tx.QueryRow(ctx, query, string(userID), string(guildID)))
	if IsNoRows(err) {
		return progression.NewUserScore(userID, guildID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock score row: %w", err)
	}
	return score, nil
}

func (r *ScoreRepository) scanScore(row pgx.Row) (*progression.UserScore, error) {
	var (
		userID    string
		guildID   string
		xp        int64
		level     int
		ref       sql.NullString
		updatedAt time.Time
	)
	if err := row.Scan(&userID, &guildID, &xp, &level, &ref, &updatedAt); err != nil {
		return nil, err
	}

	return &progression.UserScore{
		UserID:        progression.UserID(userID),
		GuildID:       progression.GuildID(guildID),
		XP:            progression.XP(xp),
		Level:         progression.Level(level),
		BackgroundRef: ref.String,
		UpdatedAt:     updatedAt,
	}, nil
}
