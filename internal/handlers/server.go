package handlers

import (
	"chatapp-client/internal/actions"
	"net/http"
)

func CreateServer(w http.ResponseWriter, r *http.Request) {
	var input actions.ServerInput
	if !readJSON(w, r, &input) {
		return
	}
	if input.Name == "" {
		input.Name = "My server"
	}

	writeResult(w, actionService.CreateServer(r.Context(), userIDFrom(r), input))
}

func UpdateServer(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID")
	if !ok {
		return
	}

	var input actions.ServerInput
	if !readJSON(w, r, &input) {
		return
	}

	writeResult(w, actionService.UpdateServer(r.Context(), userIDFrom(r), params[0], input))
}

func DeleteServer(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID")
	if !ok {
		return
	}

	userID := userIDFrom(r)
	serverID := params[0]

	result := actionService.DeleteServer(r.Context(), userID, serverID)
	if result.Success && sessionStore.State().SelectedServerID == serverID {
		if err := sessionStore.SelectServer(r.Context(), ""); err != nil {
			sugar.Error(err)
		}
	}
	writeResult(w, result)
}

func JoinServer(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID")
	if !ok {
		return
	}

	writeResult(w, actionService.JoinServer(r.Context(), userIDFrom(r), params[0]))
}

func LeaveServer(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID")
	if !ok {
		return
	}

	userID := userIDFrom(r)
	serverID := params[0]

	result := actionService.LeaveServer(r.Context(), userID, serverID)
	if result.Success && sessionStore.State().SelectedServerID == serverID {
		if err := sessionStore.SelectServer(r.Context(), ""); err != nil {
			sugar.Error(err)
		}
	}
	writeResult(w, result)
}
