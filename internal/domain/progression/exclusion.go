package progression

// ══════════════════════════════════════════════════════════════════════════════
// EXCLUSIONS (BLACKLIST)
// A user, channel, or role explicitly barred from earning XP. An exclusion row
// has no payload beyond its existence.
// ══════════════════════════════════════════════════════════════════════════════

// ExclusionKind identifies what an exclusion entry targets.
type ExclusionKind string

const (
	// ExcludeRole - any user holding the role earns no XP.
	ExcludeRole ExclusionKind = "role"

	// ExcludeUser - the user earns no XP anywhere in the guild.
	ExcludeUser ExclusionKind = "user"

	// ExcludeChannel - no XP is earned for activity in the channel.
	ExcludeChannel ExclusionKind = "channel"
)

// IsValid checks that the kind is one of the known kinds.
func (k ExclusionKind) IsValid() bool {
	return k == ExcludeRole || k == ExcludeUser || k == ExcludeChannel
}

// ExclusionEntry is a single blacklist row scoped to a guild.
type ExclusionEntry struct {
	GuildID  GuildID
	Kind     ExclusionKind
	TargetID string
}

// NewExclusionEntry validates and constructs an exclusion row.
func NewExclusionEntry(guildID GuildID, kind ExclusionKind, targetID string) (*ExclusionEntry, error) {
	if !guildID.IsValid() {
		return nil, ErrInvalidGuildID
	}
	if !kind.IsValid() {
		return nil, ErrInvalidExclusionKind
	}
	if targetID == "" {
		return nil, ErrInvalidTargetID
	}
	return &ExclusionEntry{GuildID: guildID, Kind: kind, TargetID: targetID}, nil
}

// MatchesActivity reports whether this entry bars the given activity
// coordinates from earning XP.
func (e *ExclusionEntry) MatchesActivity(userID UserID, channelID ChannelID, roleIDs []RoleID) bool {
	switch e.Kind {
	case ExcludeUser:
		return e.TargetID == string(userID)
	case ExcludeChannel:
		return e.TargetID == string(channelID)
	case ExcludeRole:
		for _, r := range roleIDs {
			if e.TargetID == string(r) {
				return true
			}
		}
	}
	return false
}

// AnyExclusionMatches scans a guild's exclusion rows for a match against the
// activity coordinates.
func AnyExclusionMatches(entries []ExclusionEntry, userID UserID, channelID ChannelID, roleIDs []RoleID) bool {
	for i := range entries {
		if entries[i].MatchesActivity(userID, channelID, roleIDs) {
			return true
		}
	}
	return false
}
