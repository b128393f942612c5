// Package session implements the admin session registry.
//
// A Registry validates the configured admin credential pair and tracks the
// tokens it has issued. The in-memory implementation keeps no history: a
// token is either registered (valid) or not, and every token is forgotten
// when the process exits.
package session

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/tutordocs/internal/apperr"
	"github.com/starford/tutordocs/internal/models"
)

// Registry issues, checks and revokes session tokens.
type Registry interface {
	// Login returns a fresh token when username and password match the
	// configured pair, or apperr.ErrUnauthorized otherwise.
	Login(username, password string) (string, error)
	// Verify reports whether token is currently registered.
	Verify(token string) bool
	// Logout forgets token. Unknown tokens are ignored.
	Logout(token string)
}

// Credentials is the single admin username/password pair.
type Credentials struct {
	Username string
	Password string
}

// Memory is a thread-safe in-memory Registry.
type Memory struct {
	creds    Credentials
	now      func() time.Time
	newToken func() (string, error)

	mu       sync.RWMutex
	sessions map[string]models.Session
}

var _ Registry = (*Memory)(nil)

// Option configures a Memory registry.
type Option func(*Memory)

// WithClock overrides the time source used for session creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		m.now = now
	}
}

// WithTokenSource overrides token generation.
func WithTokenSource(fn func() (string, error)) Option {
	return func(m *Memory) {
		m.newToken = fn
	}
}

// NewMemory creates an empty in-memory registry for creds.
func NewMemory(creds Credentials, opts ...Option) *Memory {
	m := &Memory{
		creds:    creds,
		now:      time.Now,
		newToken: NewToken,
		sessions: make(map[string]models.Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewToken returns a UUIDv7 without dashes: a millisecond timestamp followed
// by random bits from crypto/rand.
func NewToken() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("session: generate token: %w", err)
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// Login validates the credential pair and registers a new token.
func (m *Memory) Login(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.creds.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.creds.Password)) == 1
	if !userOK || !passOK {
		return "", apperr.ErrUnauthorized
	}

	token, err := m.newToken()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.sessions[token] = models.Session{Username: username, CreatedAt: m.now()}
	m.mu.Unlock()
	return token, nil
}

// Verify reports whether token is registered.
func (m *Memory) Verify(token string) bool {
	if token == "" {
		return false
	}
	m.mu.RLock()
	_, ok := m.sessions[token]
	m.mu.RUnlock()
	return ok
}

// Logout removes token if present.
func (m *Memory) Logout(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// Lookup returns the session metadata behind token.
func (m *Memory) Lookup(token string) (models.Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()
	return s, ok
}

// Count returns the number of registered sessions.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
