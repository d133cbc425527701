package hub

const (
	SessionUpdated  = "SessionUpdated"
	SettingsUpdated = "SettingsUpdated"
)
