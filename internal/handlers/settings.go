package handlers

import (
	"chatapp-client/internal/hub"
	"net/http"
)

func GetSetting(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParams(w, r, "key")
	if !ok {
		return
	}

	value, err := settings.Get(r.Context(), userIDFrom(r), params[0])
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"key": params[0], "value": value})
}

func UpdateSetting(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if !readJSON(w, r, &request) {
		return
	}
	if request.Key == "" {
		http.Error(w, "Missing key", http.StatusBadRequest)
		return
	}

	userID := userIDFrom(r)

	if err := settings.Set(r.Context(), userID, request.Key, request.Value); err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	// other windows of the same user follow along
	if err := wsHub.SendToUser(userID, hub.SettingsUpdated, request); err != nil {
		sugar.Error(err)
	}

	w.WriteHeader(http.StatusOK)
}
