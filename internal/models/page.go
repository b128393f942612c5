// Package models defines the domain types for tutordocs.
package models

import "time"

// Page is a Markdown document identified by its page key.
type Page struct {
	Key      string `json:"key"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
	Title    string `json:"title,omitempty"`
	Checksum string `json:"checksum"`
}

// PageMetadata is a lightweight representation returned by list operations.
type PageMetadata struct {
	Key       string    `json:"key"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is the server-side record behind a session token.
type Session struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
