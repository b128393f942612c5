// Package editor implements the admin editing session: load a page, track
// edits, debounce auto-saves, push them to the server and keep a live
// preview rendered with the same renderer the server uses.
//
// All delays run on an injectable Clock so the state machine can be driven
// deterministically.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/starford/tutordocs/internal/apperr"
	"github.com/starford/tutordocs/internal/render"
)

// Delays of the editing protocol.
const (
	DebounceDelay    = 2 * time.Second
	SavedClearDelay  = 3 * time.Second
	ErrorRevertDelay = 5 * time.Second
	RedirectDelay    = 2 * time.Second
)

// Status messages.
const (
	MsgUnsaved        = "Unsaved changes..."
	MsgSaving         = "Saving..."
	MsgSaved          = "✓ Saved!"
	MsgEmpty          = "Content cannot be empty"
	MsgSessionExpired = "Session expired. Please login again."
	MsgConfirmLeave   = "You have unsaved changes. Continue?"
)

// Connection indicator values.
const (
	ConnConnecting   = "Connecting..."
	ConnConnected    = "Connected"
	ConnSaving       = "Saving..."
	ConnDisconnected = "Disconnected"
)

var (
	// ErrNavigationCancelled is returned by Open when the user declines to
	// discard unsaved changes.
	ErrNavigationCancelled = errors.New("editor: navigation cancelled")
	// ErrNoPage is returned when saving before any page was opened.
	ErrNoPage = errors.New("editor: no page open")
)

// State is the editing state.
type State int

const (
	Idle State = iota
	Dirty
	Saving
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	case Error:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Status is what an editor UI shows besides the buffer.
type Status struct {
	Page       string
	State      State
	Dirty      bool
	Message    string
	Connection string
}

// Backend loads and stores pages. A 401 from the server must surface as an
// error wrapping apperr.ErrUnauthorized.
type Backend interface {
	GetContent(ctx context.Context, key string) (markdown, html string, err error)
	SaveContent(ctx context.Context, key, markdown string) (html string, err error)
}

// Editor is one client editing session. It is safe for concurrent use.
type Editor struct {
	backend  Backend
	renderer render.Renderer
	clock    Clock

	onStatus  func(Status)
	onPreview func(html string)
	onExpired func()
	confirm   func(msg string) bool

	mu         sync.Mutex
	key        string
	buffer     string
	preview    string
	dirty      bool
	state      State
	message    string
	connection string

	debounce    Timer
	debounceGen int
	msgTimer    Timer
	connTimer   Timer
	expiry      Timer
}

// Option configures an Editor.
type Option func(*Editor)

// WithClock replaces the real clock.
func WithClock(c Clock) Option {
	return func(e *Editor) { e.clock = c }
}

// WithStatusFunc is called after every status change.
func WithStatusFunc(f func(Status)) Option {
	return func(e *Editor) { e.onStatus = f }
}

// WithPreviewFunc is called with every new preview HTML.
func WithPreviewFunc(f func(html string)) Option {
	return func(e *Editor) { e.onPreview = f }
}

// WithSessionExpired is called RedirectDelay after a save is rejected as
// unauthorized; the caller should send the user back to login.
func WithSessionExpired(f func()) Option {
	return func(e *Editor) { e.onExpired = f }
}

// WithConfirm asks the user before unsaved changes are discarded. Without
// it, navigation away from a dirty buffer is always refused.
func WithConfirm(f func(msg string) bool) Option {
	return func(e *Editor) { e.confirm = f }
}

// New creates an editor with no page open.
func New(backend Backend, renderer render.Renderer, opts ...Option) *Editor {
	e := &Editor{
		backend:    backend,
		renderer:   renderer,
		clock:      RealClock{},
		connection: ConnConnecting,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Status returns the current status.
func (e *Editor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

// Buffer returns the current Markdown buffer.
func (e *Editor) Buffer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer
}

// Preview returns the current preview HTML.
func (e *Editor) Preview() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preview
}

// BeforeUnload reports whether leaving now would lose edits, with the
// warning to show.
func (e *Editor) BeforeUnload() (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dirty {
		return true, MsgConfirmLeave
	}
	return false, ""
}

// Open loads key into the buffer. A dirty buffer is only discarded when the
// confirm callback agrees; otherwise ErrNavigationCancelled is returned and
// nothing changes.
func (e *Editor) Open(ctx context.Context, key string) error {
	e.mu.Lock()
	dirty := e.dirty
	e.mu.Unlock()

	if dirty && (e.confirm == nil || !e.confirm(MsgConfirmLeave)) {
		return ErrNavigationCancelled
	}

	// The buffer is being left behind; no auto-save may fire during the load.
	e.mu.Lock()
	e.stopDebounceLocked()
	e.mu.Unlock()

	markdown, html, err := e.backend.GetContent(ctx, key)
	if err != nil {
		e.mu.Lock()
		e.showErrorLocked("Could not load content: " + err.Error())
		st := e.statusLocked()
		e.mu.Unlock()
		e.emitStatus(st)
		return err
	}

	e.mu.Lock()
	e.stopDebounceLocked()
	e.key = key
	e.buffer = markdown
	e.preview = html
	e.dirty = false
	e.state = Idle
	e.message = ""
	e.connection = ConnConnected
	st := e.statusLocked()
	e.mu.Unlock()

	e.emitPreview(html)
	e.emitStatus(st)
	return nil
}

// Edit replaces the buffer, re-renders the preview and restarts the
// auto-save debounce.
func (e *Editor) Edit(markdown string) {
	html, renderErr := e.renderer.Render([]byte(markdown))

	e.mu.Lock()
	e.buffer = markdown
	e.dirty = true
	if e.state != Saving {
		e.state = Dirty
		e.message = MsgUnsaved
	}
	if renderErr == nil {
		e.preview = html
	}
	e.armDebounceLocked()
	st := e.statusLocked()
	e.mu.Unlock()

	if renderErr == nil {
		e.emitPreview(html)
	}
	e.emitStatus(st)
}

// Save cancels any pending auto-save and saves the buffer now. A blank
// buffer is rejected with apperr.ErrValidation without contacting the
// server.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	e.stopDebounceLocked()
	e.mu.Unlock()
	return e.save(ctx)
}

// Flush saves the buffer if it has unsaved changes.
func (e *Editor) Flush(ctx context.Context) error {
	e.mu.Lock()
	dirty := e.dirty
	e.mu.Unlock()
	if !dirty {
		return nil
	}
	return e.Save(ctx)
}

// Close stops every pending timer.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopDebounceLocked()
	for _, t := range []Timer{e.msgTimer, e.connTimer, e.expiry} {
		if t != nil {
			t.Stop()
		}
	}
	e.msgTimer, e.connTimer, e.expiry = nil, nil, nil
}

func (e *Editor) save(ctx context.Context) error {
	e.mu.Lock()
	if e.key == "" {
		e.mu.Unlock()
		return ErrNoPage
	}
	if strings.TrimSpace(e.buffer) == "" {
		e.showErrorLocked(MsgEmpty)
		st := e.statusLocked()
		e.mu.Unlock()
		e.emitStatus(st)
		return fmt.Errorf("editor: %s: %w", MsgEmpty, apperr.ErrValidation)
	}
	key, snapshot := e.key, e.buffer
	e.state = Saving
	e.message = MsgSaving
	e.connection = ConnSaving
	st := e.statusLocked()
	e.mu.Unlock()
	e.emitStatus(st)

	html, err := e.backend.SaveContent(ctx, key, snapshot)

	e.mu.Lock()
	var preview string
	switch {
	case err == nil && e.key != key:
		// Navigated away while the request was in flight; the open page
		// keeps its own state.
		e.connection = ConnConnected
	case err == nil:
		if e.buffer == snapshot {
			e.dirty = false
			e.state = Idle
			e.preview = html
			preview = html
		} else {
			// Edited while the request was in flight; the debounce is armed.
			e.state = Dirty
		}
		e.message = MsgSaved
		e.connection = ConnConnected
		e.resetTimerLocked(&e.msgTimer, SavedClearDelay, func() {
			e.update(func() {
				if e.message == MsgSaved {
					e.message = ""
				}
			})
		})
	case errors.Is(err, apperr.ErrUnauthorized):
		e.showErrorLocked(MsgSessionExpired)
		e.resetTimerLocked(&e.expiry, RedirectDelay, func() {
			if e.onExpired != nil {
				e.onExpired()
			}
		})
	case e.key != key:
		e.connection = ConnConnected
	default:
		e.showErrorLocked("Failed to save: " + err.Error())
	}
	st = e.statusLocked()
	e.mu.Unlock()

	if preview != "" {
		e.emitPreview(preview)
	}
	e.emitStatus(st)
	return err
}

// showErrorLocked enters the Error state and schedules the connection
// indicator to revert. The buffer and dirty flag are left alone.
func (e *Editor) showErrorLocked(msg string) {
	e.state = Error
	e.message = "❌ " + msg
	e.connection = ConnDisconnected
	e.resetTimerLocked(&e.connTimer, ErrorRevertDelay, func() {
		e.update(func() {
			e.connection = ConnConnected
			if e.state == Error {
				if e.dirty {
					e.state = Dirty
				} else {
					e.state = Idle
				}
			}
		})
	})
}

func (e *Editor) armDebounceLocked() {
	e.stopDebounceLocked()
	gen := e.debounceGen
	e.debounce = e.clock.AfterFunc(DebounceDelay, func() { e.autoSave(gen) })
}

func (e *Editor) stopDebounceLocked() {
	e.debounceGen++
	if e.debounce != nil {
		e.debounce.Stop()
		e.debounce = nil
	}
}

func (e *Editor) autoSave(gen int) {
	e.mu.Lock()
	if gen != e.debounceGen || !e.dirty {
		e.mu.Unlock()
		return
	}
	e.debounce = nil
	if e.state == Saving {
		// One request at a time; try again after another quiet period.
		e.armDebounceLocked()
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	_ = e.save(context.Background())
}

func (e *Editor) resetTimerLocked(slot *Timer, d time.Duration, f func()) {
	if *slot != nil {
		(*slot).Stop()
	}
	*slot = e.clock.AfterFunc(d, f)
}

// update applies fn under the lock and publishes the resulting status.
func (e *Editor) update(fn func()) {
	e.mu.Lock()
	fn()
	st := e.statusLocked()
	e.mu.Unlock()
	e.emitStatus(st)
}

func (e *Editor) statusLocked() Status {
	return Status{
		Page:       e.key,
		State:      e.state,
		Dirty:      e.dirty,
		Message:    e.message,
		Connection: e.connection,
	}
}

func (e *Editor) emitStatus(st Status) {
	if e.onStatus != nil {
		e.onStatus(st)
	}
}

func (e *Editor) emitPreview(html string) {
	if e.onPreview != nil {
		e.onPreview(html)
	}
}
