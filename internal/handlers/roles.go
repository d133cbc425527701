package handlers

import (
	"chatapp-client/internal/actions"
	"net/http"
)

func CreateRole(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID")
	if !ok {
		return
	}

	var input actions.RoleInput
	if !readJSON(w, r, &input) {
		return
	}

	writeResult(w, actionService.CreateRole(r.Context(), userIDFrom(r), params[0], input))
}

func UpdateRole(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID", "roleID")
	if !ok {
		return
	}

	var input actions.RoleInput
	if !readJSON(w, r, &input) {
		return
	}

	writeResult(w, actionService.UpdateRole(r.Context(), userIDFrom(r), params[0], params[1], input))
}

func DeleteRole(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID", "roleID")
	if !ok {
		return
	}

	writeResult(w, actionService.DeleteRole(r.Context(), userIDFrom(r), params[0], params[1]))
}

func ReorderRoles(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID")
	if !ok {
		return
	}

	var roleIDs []string
	if !readJSON(w, r, &roleIDs) {
		return
	}

	writeResult(w, actionService.ReorderRoles(r.Context(), userIDFrom(r), params[0], roleIDs))
}

func AssignRole(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID", "userID", "roleID")
	if !ok {
		return
	}

	writeResult(w, actionService.AssignRole(r.Context(), userIDFrom(r), params[0], params[1], params[2]))
}

func RemoveRole(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID", "userID", "roleID")
	if !ok {
		return
	}

	writeResult(w, actionService.RemoveRole(r.Context(), userIDFrom(r), params[0], params[1], params[2]))
}
