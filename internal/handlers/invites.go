package handlers

import (
	"chatapp-client/internal/actions"
	"errors"
	"net/http"
)

func CreateInvite(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID")
	if !ok {
		return
	}

	var input actions.InviteInput
	if !readJSON(w, r, &input) {
		return
	}

	writeResult(w, actionService.CreateInvite(r.Context(), userIDFrom(r), params[0], input))
}

func RedeemInvite(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "code")
	if !ok {
		return
	}

	writeResult(w, actionService.RedeemInvite(r.Context(), userIDFrom(r), params[0]))
}

func DeleteInvite(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID", "code")
	if !ok {
		return
	}

	writeResult(w, actionService.DeleteInvite(r.Context(), userIDFrom(r), params[0], params[1]))
}

func GetInviteList(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID")
	if !ok {
		return
	}

	invites, err := actionService.Invites(r.Context(), userIDFrom(r), params[0])
	if errors.Is(err, actions.ErrForbidden) {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	} else if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, invites)
}
