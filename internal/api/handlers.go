package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tutordocs/internal/apperr"
	"github.com/starford/tutordocs/internal/content"
	"github.com/starford/tutordocs/internal/index"
	"github.com/starford/tutordocs/internal/session"
	"github.com/starford/tutordocs/internal/storage"
)

const maxBodyBytes = 2 << 20

// Handler holds API route handlers.
type Handler struct {
	svc      *content.Service
	sessions session.Registry
}

// NewHandler creates a new Handler.
func NewHandler(svc *content.Service, sessions session.Registry) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// GetContent handles GET /api/content/{page}.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "page")
	page, err := h.svc.Read(r.Context(), key)
	if err != nil {
		h.writeError(w, "get content", key, err)
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{Success: true, Markdown: page.Markdown, HTML: page.HTML})
}

// SaveContent handles PUT /api/content/{page}. The session token is taken
// from the body and falls back to the X-Session-Id header. Nothing is
// written unless the token is registered.
func (h *Handler) SaveContent(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "page")
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req SaveContentRequest
	decodeErr := json.NewDecoder(r.Body).Decode(&req)

	token := req.SessionID
	if token == "" {
		token = headerSession(r)
	}
	if token == "" || !h.sessions.Verify(token) {
		writeJSON(w, http.StatusUnauthorized, errorBody(msgUnauthorized))
		return
	}
	if decodeErr != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(msgInvalidJSON))
		return
	}

	page, err := h.svc.Write(r.Context(), key, req.Markdown)
	if err != nil {
		h.writeError(w, "save content", key, err)
		return
	}
	writeJSON(w, http.StatusOK, SaveContentResponse{Success: true, HTML: page.HTML})
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(msgInvalidJSON))
		return
	}

	token, err := h.sessions.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, errorBody(msgInvalidCredentials))
			return
		}
		slog.Error("login failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(msgInternal))
		return
	}
	slog.Info("admin logged in", slog.String("username", req.Username))
	writeJSON(w, http.StatusOK, LoginResponse{Success: true, SessionID: token})
}

// Verify handles GET /api/auth/verify. It never fails: an unknown or
// missing token simply reports authenticated=false.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	token := headerSession(r)
	ok := token != "" && h.sessions.Verify(token)
	writeJSON(w, http.StatusOK, VerifyResponse{Success: true, Authenticated: ok})
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := headerSession(r); token != "" {
		h.sessions.Logout(token)
	}
	writeJSON(w, http.StatusOK, OKResponse{Success: true})
}

// ListPages handles GET /api/pages.
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, "list pages", "", err)
		return
	}
	writeJSON(w, http.StatusOK, PagesResponse{Success: true, Pages: pages})
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, errorBody(msgQueryRequired))
			return
		}
		h.writeError(w, "search", "", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Success: true, Results: results})
}

// writeError maps service errors to status codes. Unexpected errors are
// logged and reported as 500 without detail.
func (h *Handler) writeError(w http.ResponseWriter, op, key string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(msgPageNotFound))
	case errors.Is(err, apperr.ErrValidation):
		if key != "" && storage.ValidateKey(key) != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(msgInvalidPage))
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody(msgMarkdownRequired))
		}
	default:
		slog.Error(op+" failed", slog.String("page", key), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(msgInternal))
	}
}
