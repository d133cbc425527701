package handlers

import (
	"chatapp-client/internal/actions"
	"errors"
	"net/http"
)

func KickMember(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID", "userID")
	if !ok {
		return
	}

	writeResult(w, actionService.KickMember(r.Context(), userIDFrom(r), params[0], params[1]))
}

func BanMember(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID", "userID")
	if !ok {
		return
	}

	writeResult(w, actionService.BanMember(r.Context(), userIDFrom(r), params[0], params[1], r.URL.Query().Get("reason")))
}

func UnbanMember(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID", "userID")
	if !ok {
		return
	}

	writeResult(w, actionService.UnbanMember(r.Context(), userIDFrom(r), params[0], params[1]))
}

func GetBanList(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID")
	if !ok {
		return
	}

	bans, err := actionService.Bans(r.Context(), userIDFrom(r), params[0])
	if errors.Is(err, actions.ErrForbidden) {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	} else if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, bans)
}
