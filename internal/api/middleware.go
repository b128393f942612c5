// Package api implements the tutordocs HTTP API using chi.
package api

import (
	"net/http"
	"strings"
)

// SessionHeader carries the admin session token.
const SessionHeader = "X-Session-Id"

// headerSession returns the session token sent in SessionHeader.
func headerSession(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}

// NoStore marks every API response as uncacheable so editors never see a
// stale page after a save.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
