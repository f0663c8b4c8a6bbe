// Package session hosts one editor with its observable wrapper and a change
// trace. The CLI replays scripts against a session; the HTTP server exposes
// one.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/obsedit/obsedit/internal/eventlog"
	"github.com/obsedit/obsedit/internal/snapshot"
	"github.com/obsedit/obsedit/pkg/editor"
	"github.com/obsedit/obsedit/pkg/lifecycle"
	"github.com/obsedit/obsedit/pkg/obseditor"
)

var (
	ErrInvalidAction = errors.New("session: invalid action")
	ErrClosed        = errors.New("session: closed")
)

// OperationRecorder wraps each applied action, typically in a span.
// The returned func is called with the action's error.
type OperationRecorder interface {
	StartOperation(ctx context.Context, command string, attrs ...attribute.KeyValue) (context.Context, func(err error))
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder reports every applied action to r.
func WithRecorder(r OperationRecorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

// WithEntrySink calls fn with every trace entry as it is logged. fn runs
// while the session is locked and must not block.
func WithEntrySink(fn func(entry string)) Option {
	return func(s *Session) {
		s.sink = fn
	}
}

// State is the observable state of a session.
type State struct {
	Text       string             `json:"text"`
	VersionID  int                `json:"versionId"`
	Selections []editor.Selection `json:"selections"`
	Cursor     editor.Position    `json:"cursor"`
	Focused    bool               `json:"focused"`
	Tracing    bool               `json:"tracing"`
}

// Session is safe for concurrent use; actions are applied one at a time.
type Session struct {
	mu       sync.Mutex
	logger   *slog.Logger
	recorder OperationRecorder
	sink     func(string)

	ed      *editor.Editor
	obs     *obseditor.ObservableCodeEditor
	log     *eventlog.Log
	trace   lifecycle.Disposable
	tracing bool
	store   *lifecycle.Store
	closed  bool
}

// New creates a session whose editor holds text and starts tracing.
// The initial trace entry is available from Entries.
func New(text string, opts ...Option) *Session {
	s := &Session{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.open(text)
	return s
}

// Restore creates a session from snap. Text, version id, cursors and focus
// are taken over silently; the trace starts from the restored state.
func Restore(snap snapshot.Snapshot, opts ...Option) *Session {
	s := &Session{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.open(snap.Text,
		editor.WithVersion(snap.VersionID),
		editor.WithSelections(snap.Selections),
		editor.WithFocus(snap.Focused),
	)
	return s
}

func (s *Session) open(text string, edOpts ...editor.Option) {
	s.store = lifecycle.NewStore()
	s.log = eventlog.New()
	if s.sink != nil {
		s.store.Add(lifecycle.Func("session.sink", s.log.Subscribe(s.sink)))
	}

	s.ed = editor.New(text, append([]editor.Option{editor.WithLogger(s.logger)}, edOpts...)...)
	s.obs = obseditor.New(s.ed)
	s.store.Add(s.obs)
	s.store.Add(s.ed)

	s.trace = obseditor.TraceChanges(s.obs, s.log.Log)
	s.tracing = true
}

// Apply runs a and returns the trace entries it produced.
func (s *Session) Apply(ctx context.Context, a Action) ([]string, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	name := a.Name()
	done := func(error) {}
	if s.recorder != nil {
		_, done = s.recorder.StartOperation(ctx, name,
			attribute.Int("obsedit.version_id", s.ed.Model().VersionID()))
	}
	err := a.apply(s.ed)
	done(err)

	entries := s.log.GetAndClearEntries()
	if err != nil {
		s.logger.Warn("session: action failed", "action", name, "error", err)
		return entries, fmt.Errorf("%s: %w", name, err)
	}
	s.logger.Debug("session: action applied", "action", name, "entries", len(entries))
	return entries, nil
}

// Entries drains the trace entries logged since the last drain.
func (s *Session) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.GetAndClearEntries()
}

// StopTracing disposes the trace subscription. Later actions log nothing.
// Calling it more than once has no effect.
func (s *Session) StopTracing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace.Dispose()
	s.tracing = false
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Text:       s.obs.Text.Get(),
		VersionID:  s.obs.VersionID.Get(),
		Selections: s.obs.Selections.Get(),
		Cursor:     s.obs.Cursor.Get(),
		Focused:    s.obs.Focused.Get(),
		Tracing:    s.tracing,
	}
}

// Snapshot captures the editor together with entries. The trace is not
// drained.
func (s *Session) Snapshot(entries []string) snapshot.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot.Capture(s.ed, entries)
}

// Reset replaces the editor with a fresh one holding text. Pending entries
// are discarded.
func (s *Session) Reset(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.release()
	s.open(text)
}

// Close releases the editor. Calling Close more than once has no effect.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.release()
}

// release disposes the trace before the wrapper and the editor.
func (s *Session) release() {
	s.trace.Dispose()
	s.tracing = false
	s.store.Dispose()
}
