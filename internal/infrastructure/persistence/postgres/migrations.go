// Package postgres implements the PostgreSQL persistence layer for the
// progression engine.
package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_users",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_guild_config",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE USERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create users table
-- Version: 001

-- Per-(user, guild) progression record. The level column is always derived
-- from xp; both are written in the same statement.
CREATE TABLE IF NOT EXISTS users (
    user_id VARCHAR(64) NOT NULL,
    guild_id VARCHAR(64) NOT NULL,
    xp BIGINT NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    background_ref TEXT,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, guild_id),

    CONSTRAINT valid_xp CHECK (xp >= 0),
    CONSTRAINT valid_level CHECK (level >= 1)
);

-- Leaderboard and rank queries scan per guild ordered by xp.
CREATE INDEX IF NOT EXISTS idx_users_guild_xp ON users(guild_id, xp DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE GUILD CONFIG
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create guild configuration tables
-- Version: 002

-- Per-guild settings, created lazily with defaults.
CREATE TABLE IF NOT EXISTS guild_settings (
    guild_id VARCHAR(64) PRIMARY KEY,
    xp_rate INTEGER NOT NULL DEFAULT 1,
    level_up_messages_enabled BOOLEAN NOT NULL DEFAULT TRUE,

    CONSTRAINT valid_xp_rate CHECK (xp_rate >= 1)
);

-- XP multipliers attached to roles or channels.
CREATE TABLE IF NOT EXISTS multipliers (
    guild_id VARCHAR(64) NOT NULL,
    target_type VARCHAR(10) NOT NULL,
    target_id VARCHAR(64) NOT NULL,
    value DOUBLE PRECISION NOT NULL,

    PRIMARY KEY (guild_id, target_type, target_id),

    CONSTRAINT valid_target_type CHECK (target_type IN ('role', 'channel')),
    CONSTRAINT valid_value CHECK (value >= 0.1 AND value <= 10.0)
);

CREATE INDEX IF NOT EXISTS idx_multipliers_guild ON multipliers(guild_id);

-- XP-earning blacklist: users, channels, and roles barred from earning.
CREATE TABLE IF NOT EXISTS blacklist (
    guild_id VARCHAR(64) NOT NULL,
    kind VARCHAR(10) NOT NULL,
    target_id VARCHAR(64) NOT NULL,

    PRIMARY KEY (guild_id, kind, target_id),

    CONSTRAINT valid_kind CHECK (kind IN ('role', 'user', 'channel'))
);

CREATE INDEX IF NOT EXISTS idx_blacklist_guild ON blacklist(guild_id);
`

const migration002Down = `
DROP TABLE IF EXISTS blacklist;
DROP TABLE IF EXISTS multipliers;
DROP TABLE IF EXISTS guild_settings;
`
