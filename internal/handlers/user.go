package handlers

import (
	"chatapp-client/internal/docstore"
	"chatapp-client/internal/validator"
	"errors"
	"net/http"
)

func GetUserInfo(w http.ResponseWriter, r *http.Request) {
	requestedUserID := r.URL.Query().Get("userID")
	if requestedUserID == "" || requestedUserID == "self" {
		requestedUserID = userIDFrom(r)
	}

	user, err := profiles.Lookup(r.Context(), requestedUserID)
	if errors.Is(err, docstore.ErrNotFound) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	} else if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func UpdateUserInfo(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	var request struct {
		DisplayName string `json:"displayName" validate:"required,max=64"`
		PhotoURL    string `json:"photoURL" validate:"omitempty,url"`
	}
	if !readJSON(w, r, &request) {
		return
	}
	if err := validator.Struct(request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := actionService.UpdateProfile(r.Context(), userID, request.DisplayName, request.PhotoURL)
	if result.Success {
		if err := profiles.Forget(r.Context(), userID); err != nil {
			sugar.Warnf("Couldn't drop cached profile of user ID [%s]: %v", userID, err)
		}
	}
	writeResult(w, result)
}
