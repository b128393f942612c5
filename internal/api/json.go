package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func errorBody(msg string) ErrorResponse {
	return ErrorResponse{Success: false, Error: msg}
}

// Error messages shared with the admin client.
const (
	msgPageNotFound       = "Page not found"
	msgUnauthorized       = "Unauthorized"
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidPage        = "Invalid page"
	msgMarkdownRequired   = "Markdown is required"
	msgInvalidJSON        = "Invalid JSON body"
	msgQueryRequired      = "Query parameter 'q' is required"
	msgInternal           = "internal error"
)
