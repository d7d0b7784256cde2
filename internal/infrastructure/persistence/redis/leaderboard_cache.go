package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grindstone-bot/grindstone/internal/domain/progression"
)

// PrefixLeaderboard is the key prefix for cached leaderboard pages.
const PrefixLeaderboard = "leaderboard:"

// cachedScore is the wire form of one leaderboard row.
type cachedScore struct {
	UserID        string    `json:"user_id"`
	GuildID       string    `json:"guild_id"`
	XP            int64     `json:"xp"`
	Level         int       `json:"level"`
	BackgroundRef string    `json:"background_ref,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LeaderboardCache implements progression.LeaderboardCache on Redis. Pages
// are stored as JSON blobs keyed by guild and limit; invalidation deletes
// every page of the guild.
type LeaderboardCache struct {
	client *redis.Client
}

// NewLeaderboardCache creates the cache.
func NewLeaderboardCache(client *redis.Client) *LeaderboardCache {
	return &LeaderboardCache{client: client}
}

func pageKey(guildID progression.GuildID, limit int) string {
	return fmt.Sprintf("%s%s:top:%d", PrefixLeaderboard, guildID, limit)
}

// GetCachedTop returns a cached top-N page, or nil on miss.
func (c *LeaderboardCache) GetCachedTop(ctx context.Context, guildID progression.GuildID, limit int) ([]*progression.UserScore, error) {
	data, err := c.client.Get(ctx, pageKey(guildID, limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	var rows []cachedScore
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	scores := make([]*progression.UserScore, 0, len(rows))
	for _, row := range rows {
		scores = append(scores, &progression.UserScore{
			UserID:        progression.UserID(row.UserID),
			GuildID:       progression.GuildID(row.GuildID),
			XP:            progression.XP(row.XP),
			Level:         progression.Level(row.Level),
			BackgroundRef: row.BackgroundRef,
			UpdatedAt:     row.UpdatedAt,
		})
	}
	return scores, nil
}

// SetCachedTop stores a top-N page under the requested limit with a TTL.
func (c *LeaderboardCache) SetCachedTop(ctx context.Context, guildID progression.GuildID, limit int, entries []*progression.UserScore, ttl time.Duration) error {
	rows := make([]cachedScore, 0, len(entries))
	for _, s := range entries {
		rows = append(rows, cachedScore{
			UserID:        string(s.UserID),
			GuildID:       string(s.GuildID),
			XP:            int64(s.XP),
			Level:         int(s.Level),
			BackgroundRef: s.BackgroundRef,
			UpdatedAt:     s.UpdatedAt,
		})
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	if err := c.client.Set(ctx, pageKey(guildID, limit), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}
	return nil
}

// Invalidate drops all cached pages for the guild.
func (c *LeaderboardCache) Invalidate(ctx context.Context, guildID progression.GuildID) error {
	pattern := fmt.Sprintf("%s%s:top:*", PrefixLeaderboard, guildID)

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}
	return nil
}
