package observable

import "fmt"

// Observable is a reactively tracked value. The set of implementations is
// closed: Value, Signal and Derived.
type Observable interface {
	fmt.Stringer

	// ID returns a unique identifier for this observable.
	ID() uint64

	// DebugName returns the name used in String and in diagnostics.
	DebugName() string

	addObserver(o observer)
	removeObserver(o observer)
}

// Reader records the observables read during one run of a reader function.
// Autoruns and derived values are the only readers. A nil Reader is valid
// everywhere and means the read is not tracked.
type Reader interface {
	track(o Observable)
}

// observer is notified about changes of the observables it depends on.
//
// Every change is bracketed by beginUpdate/endUpdate calls issued by the
// transaction the change belongs to. handleChange is called between them.
type observer interface {
	ID() uint64
	beginUpdate(o Observable)
	endUpdate(o Observable)
	handleChange(o Observable, change any)
}

// observerList is an ordered set of observers, deduplicated by ID.
type observerList struct {
	items []observer
}

func (l *observerList) add(o observer) bool {
	if o == nil {
		return false
	}
	id := o.ID()
	for _, existing := range l.items {
		if existing.ID() == id {
			return false
		}
	}
	l.items = append(l.items, o)
	return true
}

// remove deletes o and keeps the order of the remaining observers.
func (l *observerList) remove(o observer) bool {
	if o == nil {
		return false
	}
	id := o.ID()
	for i, existing := range l.items {
		if existing.ID() == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

func (l *observerList) len() int {
	return len(l.items)
}

// snapshot copies the list so observers can be notified while the list is
// modified by their reactions.
func (l *observerList) snapshot() []observer {
	if len(l.items) == 0 {
		return nil
	}
	out := make([]observer, len(l.items))
	copy(out, l.items)
	return out
}

// dependencies tracks the observables read by one reader across runs.
type dependencies struct {
	current    []Observable
	currentSet map[uint64]struct{}
	next       []Observable
	nextSet    map[uint64]struct{}
}

func (d *dependencies) begin() {
	d.next = nil
	d.nextSet = make(map[uint64]struct{})
}

// add records o for the current run. It reports whether o is new relative to
// the previous run, in which case the caller must subscribe to it.
func (d *dependencies) add(o Observable) (seen, isNew bool) {
	id := o.ID()
	if _, ok := d.nextSet[id]; ok {
		return true, false
	}
	d.nextSet[id] = struct{}{}
	d.next = append(d.next, o)
	_, old := d.currentSet[id]
	return false, !old
}

// end swaps in the dependencies of the run that just finished and returns the
// ones that were dropped.
func (d *dependencies) end() []Observable {
	var dropped []Observable
	for _, o := range d.current {
		if _, ok := d.nextSet[o.ID()]; !ok {
			dropped = append(dropped, o)
		}
	}
	d.current, d.currentSet = d.next, d.nextSet
	d.next, d.nextSet = nil, nil
	return dropped
}

func (d *dependencies) has(o Observable) bool {
	_, ok := d.currentSet[o.ID()]
	return ok
}

// clear returns every dependency and forgets them.
func (d *dependencies) clear() []Observable {
	all := d.current
	d.current, d.currentSet = nil, nil
	d.next, d.nextSet = nil, nil
	return all
}
