package adminclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/tutordocs/internal/api"
	"github.com/starford/tutordocs/internal/apperr"
	"github.com/starford/tutordocs/internal/editor"
	"github.com/starford/tutordocs/internal/render"
	"github.com/starford/tutordocs/internal/session"
	"github.com/starford/tutordocs/internal/storage"
	"github.com/starford/tutordocs/internal/testutil"
)

func testServer(t *testing.T) (*httptest.Server, storage.Provider) {
	t.Helper()
	svc, store, _ := testutil.TestService(t)
	sessions := session.NewMemory(session.Credentials{Username: "admin", Password: "admin123"})

	r := chi.NewRouter()
	r.Mount("/api", api.NewRouter(svc, sessions, nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func testClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c, err := New(baseURL, opts...)
	require.NoError(t, err)
	return c
}

func TestLoginVerifyLogout(t *testing.T) {
	srv, _ := testServer(t)
	tokens := &MemoryTokenStore{}
	c := testClient(t, srv.URL, WithTokenStore(tokens))
	ctx := context.Background()

	ok, err := c.Verify(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "no token yet")

	require.NoError(t, c.Login(ctx, "admin", "admin123"))
	token, _ := tokens.Load()
	assert.Len(t, token, 32)

	ok, err = c.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Logout(ctx))
	token, _ = tokens.Load()
	assert.Empty(t, token)
}

func TestVerifyClearsRejectedToken(t *testing.T) {
	srv, _ := testServer(t)
	tokens := &MemoryTokenStore{}
	require.NoError(t, tokens.Save("stale"))
	c := testClient(t, srv.URL, WithTokenStore(tokens))

	ok, err := c.Verify(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	token, _ := tokens.Load()
	assert.Empty(t, token)
}

func TestLoginInvalidCredentials(t *testing.T) {
	srv, _ := testServer(t)
	c := testClient(t, srv.URL)

	err := c.Login(context.Background(), "admin", "nope")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
}

func TestSaveAndGetContent(t *testing.T) {
	srv, store := testServer(t)
	c := testClient(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "admin", "admin123"))

	html, err := c.SaveContent(ctx, "index", "# Hi")
	require.NoError(t, err)
	assert.Equal(t, "<h1>Hi</h1>\n", html)

	md, html, err := c.GetContent(ctx, "index")
	require.NoError(t, err)
	assert.Equal(t, "# Hi", md)
	assert.Equal(t, "<h1>Hi</h1>\n", html)

	data, err := store.Read("index")
	require.NoError(t, err)
	assert.Equal(t, "# Hi", string(data))
}

func TestSaveWithoutLogin(t *testing.T) {
	srv, store := testServer(t)
	c := testClient(t, srv.URL)

	_, err := c.SaveContent(context.Background(), "index", "# Hi")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	tokens := &MemoryTokenStore{}
	require.NoError(t, tokens.Save("bogus"))
	c = testClient(t, srv.URL, WithTokenStore(tokens))
	_, err = c.SaveContent(context.Background(), "index", "# Hi")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = store.Read("index")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetContentNotFound(t *testing.T) {
	srv, _ := testServer(t)
	c := testClient(t, srv.URL)
	_, _, err := c.GetContent(context.Background(), "ghost")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, err.Error(), "Page not found")
}

func TestPagesAndSearch(t *testing.T) {
	srv, _ := testServer(t)
	c := testClient(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "admin", "admin123"))

	_, err := c.SaveContent(ctx, "step-2", "# Struktur Dasar\n\nuniquetoken")
	require.NoError(t, err)
	_, err = c.SaveContent(ctx, "index", "# Tentang")
	require.NoError(t, err)

	pages, err := c.Pages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PageSummary{{Key: "index", Title: "Tentang"}, {Key: "step-2", Title: "Struktur Dasar"}}, pages)

	hits, err := c.Search(ctx, "uniquetoken")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "step-2", hits[0].Key)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
	_, err = New("://bad")
	assert.Error(t, err)
}

func TestBasePathPrefix(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"pages":[]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL+"/docs/")
	_, err := c.Pages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/docs/api/pages", gotPath)
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewFileTokenStore(path)

	token, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.Save("abc123"))
	token, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"admin_session_id":"abc123"}`, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear(), "clear is idempotent")
	token, err = s.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestEditorOverHTTP(t *testing.T) {
	srv, store := testServer(t)
	c := testClient(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "admin", "admin123"))
	_, err := c.SaveContent(ctx, "index", "# Home")
	require.NoError(t, err)

	clock := editor.NewFakeClock()
	ed := editor.New(c, render.Default(), editor.WithClock(clock))
	defer ed.Close()

	require.NoError(t, ed.Open(ctx, "index"))
	for _, draft := range []string{"# H", "# Ha", "# Hal", "# Halo", "# Halo!"} {
		ed.Edit(draft)
		clock.Advance(editor.DebounceDelay / 4)
	}
	data, _ := store.Read("index")
	assert.Equal(t, "# Home", string(data), "still inside the debounce window")

	clock.Advance(editor.DebounceDelay)
	data, err = store.Read("index")
	require.NoError(t, err)
	assert.Equal(t, "# Halo!", string(data))
	assert.Equal(t, "<h1>Halo!</h1>\n", ed.Preview())
	assert.Equal(t, editor.Idle, ed.Status().State)

	// Server-side logout makes the next save fail as an expired session.
	require.NoError(t, c.Logout(ctx))
	ed.Edit("# After logout")
	err = ed.Save(ctx)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, "❌ "+editor.MsgSessionExpired, ed.Status().Message)
}
