package permissions

import (
	"chatapp-client/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allow() *bool {
	v := true
	return &v
}

func deny() *bool {
	v := false
	return &v
}

const everyone = "everyone"

func TestCanViewChannel(t *testing.T) {
	tests := []struct {
		name       string
		overwrites map[string]models.Overwrite
		roles      []string
		expected   bool
	}{
		{
			name:       "no overwrites is public",
			overwrites: nil,
			roles:      []string{"mod"},
			expected:   true,
		},
		{
			name:       "empty overwrite map is public",
			overwrites: map[string]models.Overwrite{},
			roles:      nil,
			expected:   true,
		},
		{
			name: "allow on one held role beats deny on another",
			overwrites: map[string]models.Overwrite{
				"mod":    {View: allow()},
				"muted":  {View: deny()},
				everyone: {View: deny()},
			},
			roles:    []string{"muted", "mod"},
			expected: true,
		},
		{
			name: "deny on a held role hides",
			overwrites: map[string]models.Overwrite{
				"muted": {View: deny()},
			},
			roles:    []string{"muted", "member"},
			expected: false,
		},
		{
			name: "deny on held role hides even with allow on a role not held",
			overwrites: map[string]models.Overwrite{
				"muted": {View: deny()},
				"staff": {View: allow()},
			},
			roles:    []string{"muted"},
			expected: false,
		},
		{
			name: "neutral roles with allow elsewhere is implicit whitelist",
			overwrites: map[string]models.Overwrite{
				"staff": {View: allow()},
			},
			roles:    []string{"member"},
			expected: false,
		},
		{
			name: "neutral roles with only denies elsewhere stays visible",
			overwrites: map[string]models.Overwrite{
				"muted": {View: deny()},
			},
			roles:    []string{"member"},
			expected: true,
		},
		{
			name: "overwrite on other capability only is neutral for view",
			overwrites: map[string]models.Overwrite{
				"staff": {Speak: allow()},
			},
			roles:    []string{"member"},
			expected: true,
		},
		{
			name: "default role deny applies without being listed",
			overwrites: map[string]models.Overwrite{
				everyone: {View: deny()},
			},
			roles:    []string{"member"},
			expected: false,
		},
		{
			name: "default role allow applies without being listed",
			overwrites: map[string]models.Overwrite{
				everyone: {View: allow()},
				"staff":  {View: allow()},
			},
			roles:    nil,
			expected: true,
		},
		{
			name: "held allow beats default role deny",
			overwrites: map[string]models.Overwrite{
				everyone: {View: deny()},
				"staff":  {View: allow()},
			},
			roles:    []string{"staff"},
			expected: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			channel := models.Channel{ID: "c1", Name: "secret", Type: models.ChannelTypeText, PermissionOverwrites: tc.overwrites}
			got := CanViewChannel(channel, tc.roles, everyone)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCanSpeakNeedsConnectAndView(t *testing.T) {
	channel := models.Channel{
		ID:   "v1",
		Type: models.ChannelTypeVoice,
		PermissionOverwrites: map[string]models.Overwrite{
			everyone:   {Speak: deny()},
			"speakers": {Speak: allow()},
			"banned":   {Connect: deny()},
		},
	}

	assert.True(t, CanConnect(channel, nil, everyone))
	assert.False(t, CanSpeak(channel, nil, everyone))
	assert.True(t, CanSpeak(channel, []string{"speakers"}, everyone))
	assert.False(t, CanSpeak(channel, []string{"speakers", "banned"}, everyone))
}

func TestHasCapability(t *testing.T) {
	server := models.Server{ID: "s1", OwnerID: "owner", DefaultRoleID: everyone}
	roles := []models.Role{
		{ID: everyone, IsDefault: true},
		{ID: "mod", Permissions: []string{models.PermKickMembers}},
		{ID: "admin", Permissions: []string{models.PermAdministrator}},
	}

	assert.True(t, HasCapability(server, models.Member{UserID: "owner"}, roles, models.PermBanMembers))
	assert.True(t, HasCapability(server, models.Member{UserID: "u1", Roles: []string{"mod"}}, roles, models.PermKickMembers))
	assert.False(t, HasCapability(server, models.Member{UserID: "u1", Roles: []string{"mod"}}, roles, models.PermBanMembers))
	assert.True(t, HasCapability(server, models.Member{UserID: "u2", Roles: []string{"admin"}}, roles, models.PermManageRoles))
	assert.False(t, HasCapability(server, models.Member{UserID: "u3"}, roles, models.PermManageChannels))

	roles[0].Permissions = []string{models.PermCreateInvite}
	assert.True(t, HasCapability(server, models.Member{UserID: "u3"}, roles, models.PermCreateInvite))
}

func TestSortRolesAndChannels(t *testing.T) {
	roles := []models.Role{{ID: "a", Position: 0}, {ID: "b", Position: 5}, {ID: "c", Position: 2}, {ID: "d", Position: 5}}
	SortRoles(roles)
	assert.Equal(t, []string{"b", "d", "c", "a"}, []string{roles[0].ID, roles[1].ID, roles[2].ID, roles[3].ID})

	channels := []models.Channel{{ID: "x", Position: 3}, {ID: "y", Position: 0}, {ID: "z", Position: 10}}
	SortChannels(channels)
	assert.Equal(t, []string{"y", "x", "z"}, []string{channels[0].ID, channels[1].ID, channels[2].ID})
}

func TestHighestRole(t *testing.T) {
	roles := []models.Role{
		{ID: "everyone", Position: 0, IsDefault: true},
		{ID: "mods", Position: 1},
		{ID: "admins", Position: 2},
	}

	top, ok := HighestRole(models.Member{Roles: []string{"everyone", "mods"}}, roles)
	require.True(t, ok)
	assert.Equal(t, "mods", top.ID)

	top, ok = HighestRole(models.Member{Roles: []string{"admins", "everyone"}}, roles)
	require.True(t, ok)
	assert.Equal(t, "admins", top.ID)

	_, ok = HighestRole(models.Member{Roles: []string{"deleted"}}, roles)
	assert.False(t, ok)
}
