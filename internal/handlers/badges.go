package handlers

import (
	"chatapp-client/internal/actions"
	"net/http"
)

func CreateBadge(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID")
	if !ok {
		return
	}

	var input actions.BadgeInput
	if !readJSON(w, r, &input) {
		return
	}

	writeResult(w, actionService.CreateBadge(r.Context(), userIDFrom(r), params[0], input))
}

func DeleteBadge(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID", "badgeID")
	if !ok {
		return
	}

	writeResult(w, actionService.DeleteBadge(r.Context(), userIDFrom(r), params[0], params[1]))
}

func AwardBadge(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID", "userID", "badgeID")
	if !ok {
		return
	}

	writeResult(w, actionService.AwardBadge(r.Context(), userIDFrom(r), params[0], params[1], params[2]))
}

func RevokeBadge(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID", "userID", "badgeID")
	if !ok {
		return
	}

	writeResult(w, actionService.RevokeBadge(r.Context(), userIDFrom(r), params[0], params[1], params[2]))
}
