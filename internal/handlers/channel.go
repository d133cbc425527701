package handlers

import (
	"chatapp-client/internal/actions"
	"chatapp-client/internal/models"
	"net/http"
)

func CreateChannel(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID")
	if !ok {
		return
	}

	var input actions.ChannelInput
	if !readJSON(w, r, &input) {
		return
	}
	if input.Name == "" {
		input.Name = "New Channel"
	}
	if input.Type == "" {
		input.Type = models.ChannelTypeText
	}

	writeResult(w, actionService.CreateChannel(r.Context(), userIDFrom(r), params[0], input))
}

func UpdateChannel(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID", "channelID", "name")
	if !ok {
		return
	}

	writeResult(w, actionService.UpdateChannel(r.Context(), userIDFrom(r), params[0], params[1], params[2]))
}

func DeleteChannel(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID", "channelID")
	if !ok {
		return
	}

	writeResult(w, actionService.DeleteChannel(r.Context(), userIDFrom(r), params[0], params[1]))
}

func SetChannelOverwrite(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID", "channelID", "roleID")
	if !ok {
		return
	}

	var overwrite models.Overwrite
	if !readJSON(w, r, &overwrite) {
		return
	}

	writeResult(w, actionService.SetChannelOverwrite(r.Context(), userIDFrom(r), params[0], params[1], params[2], overwrite))
}

func ReorderChannels(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "serverID")
	if !ok {
		return
	}

	var channelIDs []string
	if !readJSON(w, r, &channelIDs) {
		return
	}

	writeResult(w, actionService.ReorderChannels(r.Context(), userIDFrom(r), params[0], channelIDs))
}
