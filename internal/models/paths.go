package models

import "path"

const (
	ServersCollection     = "servers"
	UsersCollection       = "users"
	PresenceCollection    = "voicePresence"
	InviteCodesCollection = "inviteCodes"

	ChannelsCollection = "channels"
	RolesCollection    = "roles"
	MembersCollection  = "members"
	BadgesCollection   = "badges"
	InvitesCollection  = "invites"
	BansCollection     = "bans"
)

// ServerSubcollections are deleted, in this order, before the server document.
var ServerSubcollections = []string{
	ChannelsCollection,
	RolesCollection,
	MembersCollection,
	BadgesCollection,
	InvitesCollection,
	BansCollection,
}

func ServerPath(serverID string) string {
	return path.Join(ServersCollection, serverID)
}

func SubcollectionPath(serverID string, collection string) string {
	return path.Join(ServersCollection, serverID, collection)
}

func ChannelPath(serverID string, channelID string) string {
	return path.Join(ServersCollection, serverID, ChannelsCollection, channelID)
}

func RolePath(serverID string, roleID string) string {
	return path.Join(ServersCollection, serverID, RolesCollection, roleID)
}

func MemberPath(serverID string, userID string) string {
	return path.Join(ServersCollection, serverID, MembersCollection, userID)
}

func BadgePath(serverID string, badgeID string) string {
	return path.Join(ServersCollection, serverID, BadgesCollection, badgeID)
}

func InvitePath(serverID string, code string) string {
	return path.Join(ServersCollection, serverID, InvitesCollection, code)
}

func BanPath(serverID string, userID string) string {
	return path.Join(ServersCollection, serverID, BansCollection, userID)
}

func InviteCodePath(code string) string {
	return path.Join(InviteCodesCollection, code)
}

func UserPath(userID string) string {
	return path.Join(UsersCollection, userID)
}

func PresencePath(channelID string) string {
	return path.Join(PresenceCollection, channelID)
}
