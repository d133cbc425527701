package handlers

import (
	"chatapp-client/internal/session"
	"errors"
	"net/http"
)

func SelectServer(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ServerID string `json:"serverId"`
	}
	if !readJSON(w, r, &request) {
		return
	}

	err := sessionStore.SelectServer(r.Context(), request.ServerID)
	if errors.Is(err, session.ErrServerNotFound) {
		http.Error(w, "Server not found", http.StatusNotFound)
		return
	} else if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, sessionStore.State())
}

func GetSessionState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionStore.State())
}

func GetVisibleChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionStore.VisibleChannels(userIDFrom(r)))
}
