package handlers

import (
	"net/http"
)

func HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsHub.HandleClient(userIDFrom(r), w, r)
}
