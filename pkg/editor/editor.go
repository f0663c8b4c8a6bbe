package editor

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/obsedit/obsedit/pkg/lifecycle"
)

// Editor holds a model, its cursors and the listeners of its events.
// It is not safe for concurrent use.
type Editor struct {
	model      *Model
	selections []Selection
	focused    bool
	disposed   bool

	updateDepth int
	queue       []outgoingEvent

	logger *slog.Logger

	onBeginUpdate              emitter[struct{}]
	onEndUpdate                emitter[struct{}]
	onDidChangeModelContent    emitter[ModelContentChangedEvent]
	onDidChangeCursorSelection emitter[CursorSelectionChangedEvent]
	onDidType                  emitter[string]
	onDidChangeFocus           emitter[bool]
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger for command diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = l
	}
}

// WithVersion starts the model at version id v instead of 1. Values below 1
// are ignored.
func WithVersion(v int) Option {
	return func(e *Editor) {
		if v >= 1 {
			e.model.versionID = v
		}
	}
}

// WithSelections places the initial cursors. Positions are clamped to the
// text; an empty slice keeps the caret at (1,1). No event is raised.
func WithSelections(sels []Selection) Option {
	return func(e *Editor) {
		if len(sels) == 0 {
			return
		}
		out := make([]Selection, len(sels))
		for i, s := range sels {
			out[i] = Selection{Anchor: e.model.Validate(s.Anchor), Active: e.model.Validate(s.Active)}
		}
		e.selections = out
	}
}

// WithFocus sets the initial focus state without raising an event.
func WithFocus(focused bool) Option {
	return func(e *Editor) {
		e.focused = focused
	}
}

// New creates an editor over text with a single caret at (1,1).
func New(text string, opts ...Option) *Editor {
	e := &Editor{
		model:      NewModel(text),
		selections: []Selection{SelectionAt(Position{Line: 1, Column: 1})},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	e.onBeginUpdate.name = "Editor.onBeginUpdate"
	e.onEndUpdate.name = "Editor.onEndUpdate"
	e.onDidChangeModelContent.name = "Editor.onDidChangeModelContent"
	e.onDidChangeCursorSelection.name = "Editor.onDidChangeCursorSelection"
	e.onDidType.name = "Editor.onDidType"
	e.onDidChangeFocus.name = "Editor.onDidChangeFocus"

	lifecycle.Track(e, "Editor")
	return e
}

// Model returns the editor's text model.
func (e *Editor) Model() *Model { return e.model }

// Selections returns a copy of the current cursors, primary first.
func (e *Editor) Selections() []Selection {
	out := make([]Selection, len(e.selections))
	copy(out, e.selections)
	return out
}

// Position returns the active position of the primary cursor.
func (e *Editor) Position() Position {
	return e.selections[0].Active
}

// Focused reports whether the editor has focus.
func (e *Editor) Focused() bool { return e.focused }

// IsDisposed reports whether Dispose has been called.
func (e *Editor) IsDisposed() bool { return e.disposed }

// OnBeginUpdate fires when an update scope opens, before any queued event.
func (e *Editor) OnBeginUpdate(fn func()) lifecycle.Disposable {
	return e.onBeginUpdate.subscribe(func(struct{}) { fn() })
}

// OnEndUpdate fires after every event of an update scope was delivered.
func (e *Editor) OnEndUpdate(fn func()) lifecycle.Disposable {
	return e.onEndUpdate.subscribe(func(struct{}) { fn() })
}

// OnDidChangeModelContent fires once per applied batch of edits.
func (e *Editor) OnDidChangeModelContent(fn func(ModelContentChangedEvent)) lifecycle.Disposable {
	return e.onDidChangeModelContent.subscribe(fn)
}

// OnDidChangeCursorSelection fires when the cursors move.
func (e *Editor) OnDidChangeCursorSelection(fn func(CursorSelectionChangedEvent)) lifecycle.Disposable {
	return e.onDidChangeCursorSelection.subscribe(fn)
}

// OnDidType fires after the type command with the typed text.
func (e *Editor) OnDidType(fn func(text string)) lifecycle.Disposable {
	return e.onDidType.subscribe(fn)
}

// OnDidChangeFocus fires when the editor gains or loses focus.
func (e *Editor) OnDidChangeFocus(fn func(focused bool)) lifecycle.Disposable {
	return e.onDidChangeFocus.subscribe(fn)
}

// Dispose drops every listener. Later mutating calls return ErrDisposed.
func (e *Editor) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	e.queue = nil

	e.onBeginUpdate.clear()
	e.onEndUpdate.clear()
	e.onDidChangeModelContent.clear()
	e.onDidChangeCursorSelection.clear()
	e.onDidType.clear()
	e.onDidChangeFocus.clear()

	lifecycle.Untrack(e)
}

// update runs fn inside an update scope.
func (e *Editor) update(fn func() error) error {
	if e.disposed {
		return ErrDisposed
	}
	defer e.endUpdate()
	e.beginUpdate()
	return fn()
}

func (e *Editor) beginUpdate() {
	e.updateDepth++
	if e.updateDepth == 1 {
		e.onBeginUpdate.fire(struct{}{})
	}
}

// endUpdate closes a scope. Closing the outermost scope flushes the queue;
// events queued by listeners during the flush are delivered in the same pass.
// A listener panic is re-raised only after the scope is fully closed.
func (e *Editor) endUpdate() {
	if e.updateDepth > 1 {
		e.updateDepth--
		return
	}
	var failure any
	for len(e.queue) > 0 {
		ev := e.queue[0]
		e.queue = e.queue[1:]
		failure = firstPanic(failure, func() { ev.emit(e) })
	}
	e.queue = nil
	e.updateDepth = 0
	failure = firstPanic(failure, func() { e.onEndUpdate.fire(struct{}{}) })
	if failure != nil {
		panic(failure)
	}
}

// enqueue queues ev, merging it into an earlier event when possible.
func (e *Editor) enqueue(ev outgoingEvent) {
	for _, queued := range e.queue {
		if queued.absorb(ev) {
			return
		}
	}
	e.queue = append(e.queue, ev)
}

// setSelections replaces the cursors and queues a cursor event.
func (e *Editor) setSelections(source string, reason CursorChangeReason, sels []Selection) {
	e.selections = sels
	e.enqueue(&cursorEvent{ev: CursorSelectionChangedEvent{
		Selections: e.Selections(),
		Source:     source,
		Reason:     reason,
	}})
}

// applyCursorEdits applies edits, queues the content event and recovers the
// cursors through the edit with an unsourced cursor event.
func (e *Editor) applyCursorEdits(edits []Edit) error {
	ev, mapper, err := e.model.applyEdits(edits)
	if err != nil {
		return err
	}
	if mapper == nil {
		return nil
	}
	e.enqueue(&contentEvent{ev: ev})

	recovered := make([]Selection, len(e.selections))
	for i, s := range e.selections {
		recovered[i] = Selection{Anchor: mapper.Map(s.Anchor), Active: mapper.Map(s.Active)}
	}
	e.setSelections("", CursorReasonRecovered, recovered)
	return nil
}

// SetPosition places a single caret at pos with source "api".
func (e *Editor) SetPosition(pos Position) error {
	return e.SetSelections(SourceAPI, []Selection{SelectionAt(pos)})
}

// SetSelections replaces the cursors. Nothing is raised when they are
// unchanged.
func (e *Editor) SetSelections(source string, sels []Selection) error {
	if len(sels) == 0 {
		return fmt.Errorf("%w: no selections", ErrInvalidPosition)
	}
	for _, s := range sels {
		if !e.model.IsValid(s.Anchor) || !e.model.IsValid(s.Active) {
			return fmt.Errorf("%w: %s", ErrInvalidPosition, s)
		}
	}
	return e.update(func() error {
		if selectionsEqual(e.selections, sels) {
			return nil
		}
		e.setSelections(source, CursorReasonExplicit, append([]Selection(nil), sels...))
		return nil
	})
}

// ExecuteEdits applies edits and commits the carried-through cursors with
// source.
func (e *Editor) ExecuteEdits(source string, edits []Edit) error {
	return e.update(func() error {
		if err := e.applyCursorEdits(edits); err != nil {
			return err
		}
		e.setSelections(source, CursorReasonExplicit, e.Selections())
		return nil
	})
}

// Focus gives the editor focus.
func (e *Editor) Focus() error { return e.setFocus(true) }

// Blur removes focus from the editor.
func (e *Editor) Blur() error { return e.setFocus(false) }

func (e *Editor) setFocus(focused bool) error {
	return e.update(func() error {
		if e.focused == focused {
			return nil
		}
		e.focused = focused
		e.enqueue(&focusEvent{focused: focused})
		return nil
	})
}

func selectionsEqual(a, b []Selection) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
