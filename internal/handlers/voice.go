package handlers

import (
	"chatapp-client/internal/models"
	"chatapp-client/internal/permissions"
	"net/http"
)

type voiceAccess struct {
	member     models.Member
	channel    models.Channel
	canConnect bool
	canSpeak   bool
}

// resolveVoiceAccess answers the request itself when the channel can't be
// used for voice by this user.
func resolveVoiceAccess(w http.ResponseWriter, r *http.Request) (voiceAccess, bool) {
	var access voiceAccess

	params, ok := requireParams(w, r, "channelID")
	if !ok {
		return access, false
	}

	userID := userIDFrom(r)

	channel, found := sessionStore.Channel(params[0])
	if !found {
		http.Error(w, "Channel not found in the selected server", http.StatusNotFound)
		return access, false
	}
	if !channel.IsVoice() {
		http.Error(w, "Not a voice channel", http.StatusBadRequest)
		return access, false
	}

	member, found := sessionStore.Member(userID)
	if !found {
		http.Error(w, "Not a member of the selected server", http.StatusForbidden)
		return access, false
	}

	defaultRoleID := sessionStore.DefaultRoleID()
	access = voiceAccess{
		member:     member,
		channel:    channel,
		canConnect: permissions.CanConnect(channel, member.Roles, defaultRoleID),
		canSpeak:   permissions.CanSpeak(channel, member.Roles, defaultRoleID),
	}

	if !access.canConnect {
		sugar.Warnf("User ID [%s] tried to connect to voice channel ID [%s] they can't join", userID, channel.ID)
		http.Error(w, "You can't connect to this channel", http.StatusForbidden)
		return access, false
	}

	return access, true
}

func CreateVoiceToken(w http.ResponseWriter, r *http.Request) {
	if tokens == nil {
		http.Error(w, "Voice is not configured", http.StatusServiceUnavailable)
		return
	}

	access, ok := resolveVoiceAccess(w, r)
	if !ok {
		return
	}

	token, err := tokens.Issue(access.member.UserID, access.member.Name(), access.channel.ID, access.canSpeak)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Token      string `json:"token"`
		URL        string `json:"url"`
		ChannelID  string `json:"channelId"`
		CanPublish bool   `json:"canPublish"`
	}{
		Token:      token,
		URL:        liveKitURL,
		ChannelID:  access.channel.ID,
		CanPublish: access.canSpeak,
	})
}

func JoinVoice(w http.ResponseWriter, r *http.Request) {
	access, ok := resolveVoiceAccess(w, r)
	if !ok {
		return
	}

	entry := models.PresenceEntry{
		UserID:   access.member.UserID,
		Username: access.member.Name(),
		PhotoURL: access.member.PhotoURL,
	}

	if err := presence.Join(r.Context(), access.channel.ID, entry); err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func LeaveVoice(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "channelID")
	if !ok {
		return
	}

	if err := presence.Leave(r.Context(), params[0], userIDFrom(r)); err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
