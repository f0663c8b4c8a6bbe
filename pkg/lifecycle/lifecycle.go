package lifecycle

import (
	"sync"
	"sync/atomic"
)

// Disposable releases a resource. Dispose must be safe to call more than once.
type Disposable interface {
	Dispose()
}

// Tracker observes the creation and disposal of tracked disposables.
type Tracker interface {
	// Track is called when a disposable is created.
	Track(d Disposable, debugName string)

	// Untrack is called the first time a disposable is disposed.
	Untrack(d Disposable)
}

type trackerHolder struct {
	t Tracker
}

var currentTracker atomic.Pointer[trackerHolder]

// SetTracker installs t as the process-wide tracker and returns the previous
// one. Passing nil removes tracking.
func SetTracker(t Tracker) Tracker {
	var next *trackerHolder
	if t != nil {
		next = &trackerHolder{t: t}
	}
	prev := currentTracker.Swap(next)
	if prev == nil {
		return nil
	}
	return prev.t
}

// Track reports d to the installed tracker, if any. Types outside this package
// that implement Disposable call it from their constructors.
func Track(d Disposable, debugName string) {
	if h := currentTracker.Load(); h != nil {
		h.t.Track(d, debugName)
	}
}

// Untrack reports that d was disposed.
func Untrack(d Disposable) {
	if h := currentTracker.Load(); h != nil {
		h.t.Untrack(d)
	}
}

// funcDisposable runs a release function once.
type funcDisposable struct {
	fn       func()
	disposed atomic.Bool
}

// Func wraps fn in a tracked Disposable. fn runs on the first Dispose only.
func Func(debugName string, fn func()) Disposable {
	d := &funcDisposable{fn: fn}
	Track(d, debugName)
	return d
}

func (d *funcDisposable) Dispose() {
	if d.disposed.Swap(true) {
		return
	}
	Untrack(d)
	if d.fn != nil {
		d.fn()
	}
}

// None is a Disposable that does nothing. It is not tracked.
var None Disposable = noneDisposable{}

type noneDisposable struct{}

func (noneDisposable) Dispose() {}

// Store collects disposables and disposes them together.
// Disposables are released in the order they were added.
type Store struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// NewStore creates a tracked, empty Store.
func NewStore() *Store {
	s := &Store{}
	Track(s, "Store")
	return s
}

// Add registers d with the store and returns it. If the store has already
// been disposed, d is disposed immediately.
func (s *Store) Add(d Disposable) Disposable {
	if d == nil {
		return nil
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		d.Dispose()
		return d
	}
	s.items = append(s.items, d)
	s.mu.Unlock()
	return d
}

// Len returns the number of disposables currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// IsDisposed reports whether Dispose has been called.
func (s *Store) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Clear disposes every held disposable but keeps the store usable.
func (s *Store) Clear() {
	s.mu.Lock()
	items := s.items
	s.items = nil
	s.mu.Unlock()

	for _, d := range items {
		d.Dispose()
	}
}

// Dispose disposes every held disposable and marks the store as disposed.
func (s *Store) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	items := s.items
	s.items = nil
	s.mu.Unlock()

	Untrack(s)
	for _, d := range items {
		d.Dispose()
	}
}
