package editor

import (
	"fmt"

	"github.com/obsedit/obsedit/pkg/lifecycle"
)

// CursorChangeReason says why the cursors moved.
type CursorChangeReason int

const (
	// CursorReasonNotSet is used for events raised without a reason.
	CursorReasonNotSet CursorChangeReason = iota
	// CursorReasonRecovered means the cursors were carried through an edit.
	CursorReasonRecovered
	// CursorReasonExplicit means a command or API call placed the cursors.
	CursorReasonExplicit
)

// String returns a human-readable name for the reason.
func (r CursorChangeReason) String() string {
	switch r {
	case CursorReasonRecovered:
		return "recovered"
	case CursorReasonExplicit:
		return "explicit"
	default:
		return "notSet"
	}
}

// CursorSelectionChangedEvent is raised when the cursors move.
type CursorSelectionChangedEvent struct {
	Selections []Selection
	// Source is the origin of the change, e.g. "api" or "keyboard". It is
	// empty for recoveries that happen as a side effect of an edit.
	Source string
	Reason CursorChangeReason
}

// emitter delivers values to listeners in subscription order.
type emitter[T any] struct {
	name      string
	listeners []*listener[T]
}

type listener[T any] struct {
	fn      func(T)
	removed bool
}

func (em *emitter[T]) subscribe(fn func(T)) lifecycle.Disposable {
	l := &listener[T]{fn: fn}
	em.listeners = append(em.listeners, l)
	return lifecycle.Func(em.name, func() {
		l.removed = true
		for i, existing := range em.listeners {
			if existing == l {
				em.listeners = append(em.listeners[:i], em.listeners[i+1:]...)
				return
			}
		}
	})
}

func (em *emitter[T]) fire(v T) {
	if len(em.listeners) == 0 {
		return
	}
	listeners := make([]*listener[T], len(em.listeners))
	copy(listeners, em.listeners)
	var failure any
	for _, l := range listeners {
		if !l.removed {
			failure = firstPanic(failure, func() { l.fn(v) })
		}
	}
	if failure != nil {
		panic(failure)
	}
}

// firstPanic runs fn and returns prev, or what fn panicked with if prev is
// nil.
func firstPanic(prev any, fn func()) (failure any) {
	failure = prev
	defer func() {
		if r := recover(); r != nil && failure == nil {
			failure = r
		}
	}()
	fn()
	return failure
}

func (em *emitter[T]) clear() {
	for _, l := range em.listeners {
		l.removed = true
	}
	em.listeners = nil
}

// outgoingEvent is an event queued during an update scope.
type outgoingEvent interface {
	emit(e *Editor)
	// absorb merges later into the receiver and reports whether it did.
	absorb(later outgoingEvent) bool
	fmt.Stringer
}

type contentEvent struct {
	ev ModelContentChangedEvent
}

func (c *contentEvent) emit(e *Editor)            { e.onDidChangeModelContent.fire(c.ev) }
func (c *contentEvent) absorb(outgoingEvent) bool { return false }
func (c *contentEvent) String() string            { return c.ev.String() }

type cursorEvent struct {
	ev CursorSelectionChangedEvent
}

func (c *cursorEvent) emit(e *Editor) { e.onDidChangeCursorSelection.fire(c.ev) }

func (c *cursorEvent) absorb(later outgoingEvent) bool {
	other, ok := later.(*cursorEvent)
	if !ok || other.ev.Source != c.ev.Source {
		return false
	}
	c.ev.Selections = other.ev.Selections
	c.ev.Reason = other.ev.Reason
	return true
}

func (c *cursorEvent) String() string {
	return fmt.Sprintf("cursor[%s]", c.ev.Source)
}

type typeEvent struct {
	text string
}

func (t *typeEvent) emit(e *Editor)            { e.onDidType.fire(t.text) }
func (t *typeEvent) absorb(outgoingEvent) bool { return false }
func (t *typeEvent) String() string            { return "type[" + t.text + "]" }

type focusEvent struct {
	focused bool
}

func (f *focusEvent) emit(e *Editor) { e.onDidChangeFocus.fire(f.focused) }

func (f *focusEvent) absorb(later outgoingEvent) bool {
	other, ok := later.(*focusEvent)
	if !ok {
		return false
	}
	f.focused = other.focused
	return true
}

func (f *focusEvent) String() string { return fmt.Sprintf("focus[%v]", f.focused) }
