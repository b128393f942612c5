package api

import (
	"github.com/starford/tutordocs/internal/content"
	"github.com/starford/tutordocs/internal/index"
)

// SaveContentRequest is the body of PUT /api/content/{page}.
type SaveContentRequest struct {
	Markdown  string `json:"markdown"`
	SessionID string `json:"sessionId,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ContentResponse is returned by GET /api/content/{page}.
type ContentResponse struct {
	Success  bool   `json:"success"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// SaveContentResponse is returned by a successful PUT /api/content/{page}.
type SaveContentResponse struct {
	Success bool   `json:"success"`
	HTML    string `json:"html"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
}

// VerifyResponse is returned by GET /api/auth/verify.
type VerifyResponse struct {
	Success       bool `json:"success"`
	Authenticated bool `json:"authenticated"`
}

// PagesResponse is returned by GET /api/pages.
type PagesResponse struct {
	Success bool                  `json:"success"`
	Pages   []content.PageSummary `json:"pages"`
}

// SearchResponse is returned by GET /api/search.
type SearchResponse struct {
	Success bool                 `json:"success"`
	Results []index.SearchResult `json:"results"`
}

// OKResponse is the body of operations that only report success.
type OKResponse struct {
	Success bool `json:"success"`
}
