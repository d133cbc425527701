package handlers

import (
	"chatapp-client/internal/models"
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		sugar.Error(err)
	}
}

// writeResult answers with the action result. Failed actions are still a
// well formed answer, the renderer shows the error.
func writeResult(w http.ResponseWriter, result models.Result) {
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "Malformed request body", http.StatusBadRequest)
		return false
	}
	return true
}

// requireParams reads required query parameters, answering 400 when one is
// missing.
func requireParams(w http.ResponseWriter, r *http.Request, names ...string) ([]string, bool) {
	values := make([]string, len(names))
	for i, name := range names {
		values[i] = r.URL.Query().Get(name)
		if values[i] == "" {
			http.Error(w, "Missing "+name, http.StatusBadRequest)
			return nil, false
		}
	}
	return values, true
}
