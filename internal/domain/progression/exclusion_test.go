package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewExclusionEntry_Validation(t *testing.T) {
	e, err := NewExclusionEntry("g1", ExcludeUser, "u1")
	assert.NoError(t, err)
	assert.Equal(t, ExcludeUser, e.Kind)

	_, err = NewExclusionEntry("g1", ExclusionKind("bot"), "u1")
	assert.ErrorIs(t, err, ErrInvalidExclusionKind)

	_, err = NewExclusionEntry("", ExcludeUser, "u1")
	assert.ErrorIs(t, err, ErrInvalidGuildID)

	_, err = NewExclusionEntry("g1", ExcludeUser, "")
	assert.ErrorIs(t, err, ErrInvalidTargetID)
}

func TestExclusionEntry_MatchesActivity(t *testing.T) {
	roles := []RoleID{"r1", "r2"}

	userEntry := ExclusionEntry{GuildID: "g1", Kind: ExcludeUser, TargetID: "u1"}
	assert.True(t, userEntry.MatchesActivity("u1", "c1", roles))
	assert.False(t, userEntry.MatchesActivity("u2", "c1", roles))

	channelEntry := ExclusionEntry{GuildID: "g1", Kind: ExcludeChannel, TargetID: "c1"}
	assert.True(t, channelEntry.MatchesActivity("u2", "c1", roles))
	assert.False(t, channelEntry.MatchesActivity("u2", "c2", roles))

	roleEntry := ExclusionEntry{GuildID: "g1", Kind: ExcludeRole, TargetID: "r2"}
	assert.True(t, roleEntry.MatchesActivity("u2", "c2", roles))
	assert.False(t, roleEntry.MatchesActivity("u2", "c2", []RoleID{"r9"}))
}

func TestAnyExclusionMatches(t *testing.T) {
	entries := []ExclusionEntry{
		{GuildID: "g1", Kind: ExcludeChannel, TargetID: "spam"},
		{GuildID: "g1", Kind: ExcludeRole, TargetID: "muted"},
	}

	assert.True(t, AnyExclusionMatches(entries, "u1", "spam", nil))
	assert.True(t, AnyExclusionMatches(entries, "u1", "general", []RoleID{"muted"}))
	assert.False(t, AnyExclusionMatches(entries, "u1", "general", []RoleID{"member"}))
	assert.False(t, AnyExclusionMatches(nil, "u1", "general", nil))
}
