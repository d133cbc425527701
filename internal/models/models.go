package models

import "time"

const (
	ChannelTypeText  = "text"
	ChannelTypeVoice = "voice"
)

// capabilities a role can carry
const (
	PermAdministrator  = "ADMINISTRATOR"
	PermManageServer   = "MANAGE_SERVER"
	PermManageChannels = "MANAGE_CHANNELS"
	PermManageRoles    = "MANAGE_ROLES"
	PermKickMembers    = "KICK_MEMBERS"
	PermBanMembers     = "BAN_MEMBERS"
	PermCreateInvite   = "CREATE_INVITE"
	PermManageBadges   = "MANAGE_BADGES"
)

var Capabilities = []string{
	PermAdministrator,
	PermManageServer,
	PermManageChannels,
	PermManageRoles,
	PermKickMembers,
	PermBanMembers,
	PermCreateInvite,
	PermManageBadges,
}

const UnknownUserName = "Unknown User"

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

type Server struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	OwnerID       string   `json:"ownerId"`
	Icon          string   `json:"icon,omitempty"`
	MemberIDs     []string `json:"memberIds"`
	DefaultRoleID string   `json:"defaultRoleId"`
}

// Overwrite is a per-role override on a channel. A nil field is neutral.
type Overwrite struct {
	View    *bool `json:"view,omitempty"`
	Speak   *bool `json:"speak,omitempty"`
	Connect *bool `json:"connect,omitempty"`
}

func (o Overwrite) IsNeutral() bool {
	return o.View == nil && o.Speak == nil && o.Connect == nil
}

type Channel struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	Type                 string               `json:"type"`
	Position             int                  `json:"position"`
	PermissionOverwrites map[string]Overwrite `json:"permissionOverwrites,omitempty"`
}

func (c Channel) IsVoice() bool {
	return c.Type == ChannelTypeVoice
}

type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	Position    int      `json:"position"`
	IsDefault   bool     `json:"isDefault"`
	Permissions []string `json:"permissions"`
}

type Member struct {
	ServerID    string    `json:"serverId"`
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	Roles       []string  `json:"roles"`
	JoinedAt    time.Time `json:"joinedAt"`
	Badges      []string  `json:"badges,omitempty"`
}

// Name is the display name with a placeholder for records that were never
// backfilled.
func (m Member) Name() string {
	if m.DisplayName == "" {
		return UnknownUserName
	}
	return m.DisplayName
}

type Badge struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Invite struct {
	Code      string     `json:"code"`
	ServerID  string     `json:"serverId"`
	CreatedBy string     `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	MaxUses   int        `json:"maxUses"`
	Uses      int        `json:"uses"`
}

type Ban struct {
	UserID   string    `json:"userId"`
	Reason   string    `json:"reason,omitempty"`
	BannedBy string    `json:"bannedBy"`
	BannedAt time.Time `json:"bannedAt"`
}

type PresenceEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// VoicePresence is the document stored per voice channel.
type VoicePresence struct {
	ID    string          `json:"id"`
	Users []PresenceEntry `json:"users"`
}

// Result is what every write action hands back to the UI.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	ID      string `json:"id,omitempty"`
}

type ConfigFile struct {
	Address           string
	Port              string
	PrintHttpRequests bool
	// dev server origins of the renderer, file:// is always allowed
	AllowedOrigins []string
	LogToFile         bool
	LogLevel          string
	SnowflakeWorkerID int64

	// firestore, mongo, sqlite or mysql
	Backend              string
	FirestoreProjectID   string
	FirestoreCredentials string
	MongoURI             string
	MongoDatabase        string
	SelfContained        bool
	SqlitePath           string
	DbUser               string
	DbPassword           string
	DbAddress            string
	DbPort               string
	DbDatabase           string
	RedisAddress         string
	RedisPassword        string
	DefaultRoleName      string
	DefaultTextChannel   string
	DefaultVoiceChannel  string
	PresenceFilterLimit  int
	ProfileCacheMinutes  int
	LiveKitURL           string
	LiveKitAPIKey        string
	LiveKitAPISecret     string
	VoiceTokenTTLMinutes int
}
