// Package permissions resolves what a member may do in a server. Nothing here
// does I/O; everything is computed from the records passed in.
package permissions

import (
	"chatapp-client/internal/models"
	"cmp"
	"slices"
)

type field func(models.Overwrite) *bool

func viewField(o models.Overwrite) *bool    { return o.View }
func speakField(o models.Overwrite) *bool   { return o.Speak }
func connectField(o models.Overwrite) *bool { return o.Connect }

// CanViewChannel reports whether a member holding userRoleIDs sees the channel.
//
// Resolution order: an explicit allow on any held role wins, then an explicit
// deny on any held role hides the channel. When every held role is neutral the
// channel is hidden if some other role is explicitly allowed (the channel is
// run as a whitelist) and visible otherwise. The default role always counts as
// held.
func CanViewChannel(channel models.Channel, userRoleIDs []string, defaultRoleID string) bool {
	return resolve(channel, userRoleIDs, defaultRoleID, viewField)
}

// CanConnect applies the same resolution to joining a voice channel. A member
// that can't see a channel can't connect to it either.
func CanConnect(channel models.Channel, userRoleIDs []string, defaultRoleID string) bool {
	return CanViewChannel(channel, userRoleIDs, defaultRoleID) &&
		resolve(channel, userRoleIDs, defaultRoleID, connectField)
}

// CanSpeak applies the same resolution to publishing audio.
func CanSpeak(channel models.Channel, userRoleIDs []string, defaultRoleID string) bool {
	return CanConnect(channel, userRoleIDs, defaultRoleID) &&
		resolve(channel, userRoleIDs, defaultRoleID, speakField)
}

func resolve(channel models.Channel, userRoleIDs []string, defaultRoleID string, get field) bool {
	overwrites := channel.PermissionOverwrites
	if len(overwrites) == 0 {
		return true
	}

	effective := make(map[string]struct{}, len(userRoleIDs)+1)
	for _, id := range userRoleIDs {
		effective[id] = struct{}{}
	}
	if defaultRoleID != "" {
		effective[defaultRoleID] = struct{}{}
	}

	denied := false
	for id := range effective {
		overwrite, ok := overwrites[id]
		if !ok {
			continue
		}
		value := get(overwrite)
		if value == nil {
			continue
		}
		if *value {
			return true
		}
		denied = true
	}

	if denied {
		return false
	}

	for _, overwrite := range overwrites {
		if value := get(overwrite); value != nil && *value {
			return false
		}
	}

	return true
}

// HasCapability reports whether member may use capability in server. The
// owner can do everything, and so can anyone holding ADMINISTRATOR.
func HasCapability(server models.Server, member models.Member, roles []models.Role, capability string) bool {
	if server.OwnerID != "" && server.OwnerID == member.UserID {
		return true
	}

	held := make(map[string]struct{}, len(member.Roles)+1)
	for _, id := range member.Roles {
		held[id] = struct{}{}
	}
	if server.DefaultRoleID != "" {
		held[server.DefaultRoleID] = struct{}{}
	}

	for _, role := range roles {
		if _, ok := held[role.ID]; !ok {
			continue
		}
		for _, perm := range role.Permissions {
			if perm == capability || perm == models.PermAdministrator {
				return true
			}
		}
	}

	return false
}

// SortRoles orders roles highest position first.
func SortRoles(roles []models.Role) {
	slices.SortStableFunc(roles, func(a, b models.Role) int {
		if c := cmp.Compare(b.Position, a.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortChannels orders channels lowest position first.
func SortChannels(channels []models.Channel) {
	slices.SortStableFunc(channels, func(a, b models.Channel) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// HighestRole returns the highest positioned role the member holds, if any.
func HighestRole(member models.Member, roles []models.Role) (models.Role, bool) {
	var best models.Role
	found := false
	for _, role := range roles {
		if !slices.Contains(member.Roles, role.ID) {
			continue
		}
		if !found || role.Position > best.Position {
			best = role
			found = true
		}
	}
	return best, found
}
