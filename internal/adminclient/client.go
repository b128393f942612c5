// Package adminclient is an HTTP client for the tutordocs API. It carries
// the admin session token and maps API failures onto apperr sentinels.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/tutordocs/internal/apperr"
	"github.com/starford/tutordocs/internal/editor"
)

// SessionHeader carries the session token on auth calls.
const SessionHeader = "X-Session-Id"

// APIError is a non-2xx API response.
type APIError struct {
	Status  int
	Message string
	kind    error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: HTTP %d", e.Status)
	}
	return fmt.Sprintf("api: %s (HTTP %d)", e.Message, e.Status)
}

// Unwrap lets errors.Is match apperr sentinels by status code.
func (e *APIError) Unwrap() error { return e.kind }

// Page is a page as returned by GET /api/content/{page}.
type Page struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// PageSummary is one entry of GET /api/pages.
type PageSummary struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

// SearchResult is one hit of GET /api/search.
type SearchResult struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Client talks to one tutordocs server.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenStore
}

var _ editor.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenStore replaces the in-memory token store.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.tokens = s }
}

// New creates a client for the server at baseURL (e.g. http://localhost:3000).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("adminclient: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("adminclient: unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: 30 * time.Second},
		tokens: &MemoryTokenStore{},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Login exchanges credentials for a session token and stores it.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, "", &resp); err != nil {
		return err
	}
	return c.tokens.Save(resp.SessionID)
}

// Verify reports whether the stored token is still accepted. A rejected
// token is cleared from the store.
func (c *Client) Verify(ctx context.Context) (bool, error) {
	token, err := c.tokens.Load()
	if err != nil || token == "" {
		return false, err
	}
	var resp struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify", nil, token, &resp); err != nil {
		return false, err
	}
	if !resp.Authenticated {
		return false, c.tokens.Clear()
	}
	return true, nil
}

// Logout revokes the stored token on the server and forgets it locally.
// The local token is cleared even when the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	token, err := c.tokens.Load()
	if err != nil {
		return err
	}
	var reqErr error
	if token != "" {
		reqErr = c.do(ctx, http.MethodPost, "/api/auth/logout", nil, token, nil)
	}
	if err := c.tokens.Clear(); err != nil {
		return err
	}
	return reqErr
}

// GetContent implements editor.Backend.
func (c *Client) GetContent(ctx context.Context, key string) (string, string, error) {
	var p Page
	if err := c.do(ctx, http.MethodGet, "/api/content/"+url.PathEscape(key), nil, "", &p); err != nil {
		return "", "", err
	}
	return p.Markdown, p.HTML, nil
}

// SaveContent implements editor.Backend. The token travels in the body the
// way the browser editor sends it.
func (c *Client) SaveContent(ctx context.Context, key, markdown string) (string, error) {
	token, err := c.tokens.Load()
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("adminclient: not logged in: %w", apperr.ErrUnauthorized)
	}
	var resp struct {
		HTML string `json:"html"`
	}
	body := map[string]string{"markdown": markdown, "sessionId": token}
	if err := c.do(ctx, http.MethodPut, "/api/content/"+url.PathEscape(key), body, "", &resp); err != nil {
		return "", err
	}
	return resp.HTML, nil
}

// Pages lists pages in navigation order.
func (c *Client) Pages(ctx context.Context) ([]PageSummary, error) {
	var resp struct {
		Pages []PageSummary `json:"pages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/pages", nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Pages, nil
}

// Search runs a full-text query.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var resp struct {
		Results []SearchResult `json:"results"`
	}
	path := "/api/search?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("adminclient: bad path %q: %w", path, err)
	}
	target := c.base.ResolveReference(ref)
	if c.base.Path != "" && c.base.Path != "/" {
		target.Path = strings.TrimSuffix(c.base.Path, "/") + ref.Path
	}

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), r)
	if err != nil {
		return fmt.Errorf("adminclient: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(SessionHeader, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("adminclient: %s %s: %w", method, ref.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("adminclient: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("adminclient: decode response: %w", err)
	}
	return nil
}

func apiError(status int, data []byte) *APIError {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(data, &body)

	e := &APIError{Status: status, Message: body.Error}
	switch status {
	case http.StatusUnauthorized:
		e.kind = apperr.ErrUnauthorized
	case http.StatusNotFound:
		e.kind = apperr.ErrNotFound
	case http.StatusBadRequest:
		e.kind = apperr.ErrValidation
	}
	return e
}
