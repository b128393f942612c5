package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/tutordocs/internal/apperr"
	"github.com/starford/tutordocs/internal/session"
	"github.com/starford/tutordocs/internal/sse"
	"github.com/starford/tutordocs/internal/storage"
	"github.com/starford/tutordocs/internal/testutil"
)

type env struct {
	router http.Handler
	store  storage.Provider
	broker *sse.Broker
}

// testEnv wires a temp content dir, index, session registry and broker
// behind the router.
func testEnv(t *testing.T) env {
	t.Helper()
	broker := sse.NewBroker()
	t.Cleanup(broker.Close)

	svc, store, _ := testutil.TestService(t)
	sessions := session.NewMemory(session.Credentials{Username: "admin", Password: "admin123"})
	return env{
		router: NewRouter(svc, sessions, broker),
		store:  store,
		broker: broker,
	}
}

func (e env) do(t *testing.T, method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e env) login(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/auth/login", LoginRequest{Username: "admin", Password: "admin123"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[LoginResponse](t, w)
	if !resp.Success || resp.SessionID == "" {
		t.Fatalf("login response = %+v", resp)
	}
	return resp.SessionID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, want, w.Body.String())
	}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	expectStatus(t, w, status)
	resp := decode[ErrorResponse](t, w)
	if resp.Success || resp.Error != msg {
		t.Errorf("error response = %+v, want error %q", resp, msg)
	}
}

func TestLoginSaveAndGet(t *testing.T) {
	e := testEnv(t)
	token := e.login(t)

	w := e.do(t, http.MethodPut, "/content/index", SaveContentRequest{Markdown: "# Hi", SessionID: token}, nil)
	expectStatus(t, w, http.StatusOK)
	saved := decode[SaveContentResponse](t, w)
	if !saved.Success || saved.HTML != "<h1>Hi</h1>\n" {
		t.Errorf("save response = %+v", saved)
	}

	w = e.do(t, http.MethodGet, "/content/index", nil, nil)
	expectStatus(t, w, http.StatusOK)
	got := decode[ContentResponse](t, w)
	if !got.Success || got.Markdown != "# Hi" || got.HTML != "<h1>Hi</h1>\n" {
		t.Errorf("get response = %+v", got)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q", cc)
	}
}

func TestSaveWithHeaderSession(t *testing.T) {
	e := testEnv(t)
	token := e.login(t)

	w := e.do(t, http.MethodPut, "/content/step-1", SaveContentRequest{Markdown: "## Persiapan"},
		map[string]string{SessionHeader: token})
	expectStatus(t, w, http.StatusOK)
	if html := decode[SaveContentResponse](t, w).HTML; html != "<h2>Persiapan</h2>\n" {
		t.Errorf("html = %q", html)
	}
}

func TestSaveUnauthorizedDoesNotMutate(t *testing.T) {
	e := testEnv(t)
	if err := e.store.Write("index", []byte("# Original")); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		body    any
		headers map[string]string
	}{
		{"missing session", SaveContentRequest{Markdown: "# Hacked"}, nil},
		{"bogus body session", SaveContentRequest{Markdown: "# Hacked", SessionID: "bogus"}, nil},
		{"bogus header session", SaveContentRequest{Markdown: "# Hacked"}, map[string]string{SessionHeader: "bogus"}},
		{"malformed body", "{not json", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(t, http.MethodPut, "/content/index", tc.body, tc.headers)
			expectError(t, w, http.StatusUnauthorized, "Unauthorized")

			data, err := e.store.Read("index")
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != "# Original" {
				t.Errorf("page mutated: %q", data)
			}
		})
	}
}

func TestSaveLoggedOutTokenRejected(t *testing.T) {
	e := testEnv(t)
	token := e.login(t)

	w := e.do(t, http.MethodPost, "/auth/logout", nil, map[string]string{SessionHeader: token})
	expectStatus(t, w, http.StatusOK)

	w = e.do(t, http.MethodPut, "/content/index", SaveContentRequest{Markdown: "# x", SessionID: token}, nil)
	expectStatus(t, w, http.StatusUnauthorized)
	if _, err := e.store.Read("index"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("page should not exist, err = %v", err)
	}
}

func TestSaveValidation(t *testing.T) {
	e := testEnv(t)
	token := e.login(t)
	auth := map[string]string{SessionHeader: token}

	w := e.do(t, http.MethodPut, "/content/index", SaveContentRequest{Markdown: "   "}, auth)
	expectError(t, w, http.StatusBadRequest, "Markdown is required")

	w = e.do(t, http.MethodPut, "/content/Bad_Key!", SaveContentRequest{Markdown: "# x"}, auth)
	expectError(t, w, http.StatusBadRequest, "Invalid page")

	w = e.do(t, http.MethodPut, "/content/index", "{not json", auth)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestGetContent_NotFound(t *testing.T) {
	e := testEnv(t)
	w := e.do(t, http.MethodGet, "/content/nope", nil, nil)
	expectError(t, w, http.StatusNotFound, "Page not found")
}

func TestGetContent_InvalidKey(t *testing.T) {
	e := testEnv(t)
	w := e.do(t, http.MethodGet, "/content/..%2Fsecret", nil, nil)
	if w.Code == http.StatusOK {
		t.Errorf("traversal key served: %s", w.Body.String())
	}

	w = e.do(t, http.MethodGet, "/content/UPPER", nil, nil)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	e := testEnv(t)
	w := e.do(t, http.MethodPost, "/auth/login", LoginRequest{Username: "admin", Password: "wrong"}, nil)
	expectError(t, w, http.StatusUnauthorized, "Invalid credentials")
}

func TestLogin_MalformedBody(t *testing.T) {
	e := testEnv(t)
	w := e.do(t, http.MethodPost, "/auth/login", "nope", nil)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestVerifyAndLogout(t *testing.T) {
	e := testEnv(t)
	token := e.login(t)
	auth := map[string]string{SessionHeader: token}

	w := e.do(t, http.MethodGet, "/auth/verify", nil, auth)
	expectStatus(t, w, http.StatusOK)
	if got := decode[VerifyResponse](t, w); got != (VerifyResponse{Success: true, Authenticated: true}) {
		t.Errorf("verify = %+v", got)
	}

	w = e.do(t, http.MethodPost, "/auth/logout", nil, auth)
	expectStatus(t, w, http.StatusOK)
	if !decode[OKResponse](t, w).Success {
		t.Error("logout success = false")
	}

	w = e.do(t, http.MethodGet, "/auth/verify", nil, auth)
	expectStatus(t, w, http.StatusOK)
	if decode[VerifyResponse](t, w).Authenticated {
		t.Error("token still authenticated after logout")
	}

	// Logout is idempotent and never fails.
	expectStatus(t, e.do(t, http.MethodPost, "/auth/logout", nil, auth), http.StatusOK)
	expectStatus(t, e.do(t, http.MethodPost, "/auth/logout", nil, nil), http.StatusOK)
}

func TestVerify_NoHeader(t *testing.T) {
	e := testEnv(t)
	w := e.do(t, http.MethodGet, "/auth/verify", nil, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[VerifyResponse](t, w); got != (VerifyResponse{Success: true, Authenticated: false}) {
		t.Errorf("verify = %+v", got)
	}
}

func TestListPages(t *testing.T) {
	e := testEnv(t)
	auth := map[string]string{SessionHeader: e.login(t)}

	for _, key := range []string{"step-1", "index", "extra"} {
		w := e.do(t, http.MethodPut, "/content/"+key, SaveContentRequest{Markdown: "# Page " + key}, auth)
		expectStatus(t, w, http.StatusOK)
	}

	w := e.do(t, http.MethodGet, "/pages", nil, nil)
	expectStatus(t, w, http.StatusOK)
	pages := decode[PagesResponse](t, w).Pages
	if len(pages) != 3 {
		t.Fatalf("pages = %+v", pages)
	}
	for i, want := range []string{"index", "step-1", "extra"} {
		if pages[i].Key != want {
			t.Errorf("pages[%d] = %q, want %q", i, pages[i].Key, want)
		}
	}
	if pages[2].Title != "Page extra" {
		t.Errorf("title = %q", pages[2].Title)
	}
}

func TestSearchEndpoint(t *testing.T) {
	e := testEnv(t)
	token := e.login(t)

	w := e.do(t, http.MethodPut, "/content/step-6", SaveContentRequest{Markdown: "# Deploy\n\nuniquetoken here"},
		map[string]string{SessionHeader: token})
	expectStatus(t, w, http.StatusOK)

	w = e.do(t, http.MethodGet, "/search?q=uniquetoken", nil, nil)
	expectStatus(t, w, http.StatusOK)
	results := decode[SearchResponse](t, w).Results
	if len(results) != 1 || results[0].Key != "step-6" {
		t.Fatalf("results = %+v", results)
	}

	w = e.do(t, http.MethodGet, "/search?q=absent", nil, nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"results":[]`) {
		t.Errorf("empty search body = %s", w.Body.String())
	}
}

func TestSearchMissingQuery(t *testing.T) {
	e := testEnv(t)
	expectStatus(t, e.do(t, http.MethodGet, "/search", nil, nil), http.StatusBadRequest)
}

func TestEventsStream(t *testing.T) {
	e := testEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		e.router.ServeHTTP(w, req)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	e.broker.PublishPageEvent("updated", "index")
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "event: page.updated") {
		t.Errorf("body = %s", w.Body.String())
	}
}
