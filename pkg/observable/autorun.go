package observable

import (
	"fmt"
	"time"

	"github.com/obsedit/obsedit/pkg/lifecycle"
)

// maxReruns bounds how often an autorun may re-run in one settle loop when
// its own run keeps invalidating it.
const maxReruns = 100

// HandleChangeOptions configures AutorunHandleChanges.
type HandleChangeOptions[S any] struct {
	// DebugName names the autorun in String, logs and Hooks.
	DebugName string

	// CreateEmptyChangeSummary creates the summary handed to HandleChange and
	// then to the next run. If nil, the zero S is used.
	CreateEmptyChangeSummary func() S

	// HandleChange is called once per upstream change of a dependency, with
	// the summary that the next run will receive. It returns whether the
	// change requires a re-run. If nil, every change requires one.
	HandleChange func(ctx ChangeContext, summary *S) bool
}

// Autorun is a registered reactive subscription. It is also the Disposable
// that removes it.
type Autorun struct {
	id   uint64
	name string

	run    func(r Reader)
	handle func(ctx ChangeContext) bool

	deps dependencies

	stale       bool
	updateCount int
	running     bool
	disposed    bool
}

// NewAutorun registers fn and runs it immediately. fn runs again after every
// transaction that changed an observable it read during its last run.
func NewAutorun(name string, fn func(r Reader)) *Autorun {
	return AutorunHandleChanges(HandleChangeOptions[struct{}]{DebugName: name}, func(r Reader, _ struct{}) {
		fn(r)
	})
}

// AutorunHandleChanges registers fn with a change handler and runs fn once
// immediately.
//
// For each upstream change of a dependency read by the most recent run,
// opts.HandleChange is called synchronously with a ChangeContext. If any of
// those calls returns true, fn re-runs once every transaction that touched
// the autorun has committed.
func AutorunHandleChanges[S any](opts HandleChangeOptions[S], fn func(r Reader, summary S)) *Autorun {
	name := opts.DebugName
	if name == "" {
		name = "autorun"
	}

	a := &Autorun{
		id:   nextID(),
		name: name,
	}

	var summary S
	resetSummary := func() {
		if opts.CreateEmptyChangeSummary != nil {
			summary = opts.CreateEmptyChangeSummary()
			return
		}
		var zero S
		summary = zero
	}
	resetSummary()

	a.run = func(r Reader) {
		current := summary
		resetSummary()
		fn(r, current)
	}
	a.handle = func(ctx ChangeContext) bool {
		if opts.HandleChange == nil {
			return true
		}
		return opts.HandleChange(ctx, &summary)
	}

	lifecycle.Track(a, "autorun "+name)
	if h := hooks(); h != nil {
		h.AutorunCreated(name)
	}

	a.stale = true
	a.settle()
	return a
}

// ID returns the unique identifier for this autorun.
func (a *Autorun) ID() uint64 { return a.id }

// DebugName returns the autorun's name.
func (a *Autorun) DebugName() string { return a.name }

// String returns a short description for diagnostics.
func (a *Autorun) String() string {
	return fmt.Sprintf("Autorun<%s>", a.name)
}

// IsDisposed reports whether Dispose has been called.
func (a *Autorun) IsDisposed() bool { return a.disposed }

// Dependencies returns the observables read during the last run.
func (a *Autorun) Dependencies() []Observable {
	out := make([]Observable, len(a.deps.current))
	copy(out, a.deps.current)
	return out
}

// Dispose unregisters the autorun. Neither the handler nor the reader is
// called afterwards. Calling Dispose more than once has no effect.
func (a *Autorun) Dispose() {
	if a.disposed {
		return
	}
	a.disposed = true
	a.stale = false

	for _, o := range a.deps.clear() {
		o.removeObserver(a)
	}

	lifecycle.Untrack(a)
	if h := hooks(); h != nil {
		h.AutorunDisposed(a.name)
	}
}

// runOnce executes the reader and resubscribes to what it read.
func (a *Autorun) runOnce() {
	if a.disposed {
		return
	}
	a.stale = false
	a.running = true
	a.deps.begin()
	start := time.Now()

	defer func() {
		a.running = false
		for _, o := range a.deps.end() {
			o.removeObserver(a)
		}
		if r := recover(); r != nil {
			logger().Error("observable: autorun panicked", "autorun", a.name, "panic", r)
			panic(r)
		}
		if h := hooks(); h != nil {
			h.ReaderRan(a.name, time.Since(start))
		}
	}()

	a.run(a)
}

// track implements Reader.
func (a *Autorun) track(o Observable) {
	if a.disposed || !a.running {
		return
	}
	seen, isNew := a.deps.add(o)
	if !seen && isNew {
		o.addObserver(a)
	}
}

func (a *Autorun) beginUpdate(Observable) {
	a.updateCount++
}

func (a *Autorun) endUpdate(Observable) {
	if a.updateCount > 0 {
		a.updateCount--
	}
	if a.updateCount > 0 || a.running {
		return
	}
	a.settle()
}

// settle re-runs while the autorun is stale. A run that writes to its own
// dependencies makes it stale again; that is bounded by maxReruns.
func (a *Autorun) settle() {
	for i := 0; a.stale && !a.disposed; i++ {
		if i >= maxReruns {
			logger().Warn("observable: abandoning autorun",
				"autorun", a.name,
				"error", ErrRerunLimit,
			)
			a.stale = false
			return
		}
		a.runOnce()
	}
}

func (a *Autorun) handleChange(o Observable, change any) {
	if a.disposed {
		return
	}
	if !a.deps.has(o) && !(a.running && a.deps.nextSet != nil && hasID(a.deps.nextSet, o)) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger().Error("observable: change handler panicked",
				"autorun", a.name,
				"changed", o.DebugName(),
				"panic", r,
			)
			panic(r)
		}
	}()

	rerun := a.handle(ChangeContext{changed: o, change: change})
	if h := hooks(); h != nil {
		h.HandlerCalled(a.name, o.DebugName(), rerun)
	}
	if rerun {
		a.stale = true
	}
}

func hasID(set map[uint64]struct{}, o Observable) bool {
	_, ok := set[o.ID()]
	return ok
}
