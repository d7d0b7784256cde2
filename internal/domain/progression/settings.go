package progression

// GuildSettings holds per-guild configuration. Created lazily with defaults;
// never deleted.
type GuildSettings struct {
	// GuildID - the guild these settings belong to.
	GuildID GuildID

	// XPRate - integer rate scalar. Persisted and configurable but not
	// currently applied to awards; kept for compatibility with the stored
	// schema.
	XPRate int

	// LevelUpMessagesEnabled - whether a notification is emitted when a user
	// levels up.
	LevelUpMessagesEnabled bool
}

// DefaultGuildSettings returns the settings used when a guild has no row.
func DefaultGuildSettings(guildID GuildID) *GuildSettings {
	return &GuildSettings{
		GuildID:                guildID,
		XPRate:                 1,
		LevelUpMessagesEnabled: true,
	}
}

// Validate checks settings invariants before persistence.
func (s *GuildSettings) Validate() error {
	if !s.GuildID.IsValid() {
		return ErrInvalidGuildID
	}
	if s.XPRate < 1 {
		return ErrInvalidAmount
	}
	return nil
}
