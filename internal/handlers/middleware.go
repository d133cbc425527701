package handlers

import (
	"chatapp-client/internal/hub"
	"context"
	"net/http"
)

type UserIDKeyType struct{}

// AllowCors lets the renderer at file:// or a configured dev server call the
// api. Requests from any other page are refused outright, a simple request
// with a uid parameter would otherwise reach the handler.
func AllowCors(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if !hub.AllowedOrigin(origin, allowedOrigins) {
				sugar.Warnf("Refused request to [%s] from origin [%s]", r.URL.Path, origin)
				http.Error(w, "Origin not allowed", http.StatusForbidden)
				return
			}

			w.Header().Add("Vary", "Origin")
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID")
			}

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserIdentifier passes on the user id the auth provider gave the renderer.
// Websocket upgrades can't carry custom headers, so a uid query parameter is
// accepted too.
func UserIdentifier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			userID = r.URL.Query().Get("uid")
		}
		if userID == "" {
			sugar.Debugf("Request to [%s] without user id", r.URL.Path)
			http.Error(w, "Not signed in", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKeyType{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(r *http.Request) string {
	return r.Context().Value(UserIDKeyType{}).(string)
}
