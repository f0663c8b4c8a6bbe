package observable

import "fmt"

// Derived is a cached computation over other observables.
//
// While it has observers it keeps its value and subscribes to what compute
// read; an upstream change recomputes it immediately, and observers are only
// notified when the result differs. Without observers, every Get recomputes.
type Derived[T any] struct {
	id   uint64
	name string

	compute func(r Reader) T

	value     T
	hasValue  bool
	observers observerList
	deps      dependencies
	computing bool

	updateCount int
	updating    []observer

	equal func(T, T) bool
}

// NewDerived creates a derived observable named name.
func NewDerived[T any](name string, compute func(r Reader) T) *Derived[T] {
	return &Derived[T]{
		id:      nextID(),
		name:    name,
		compute: compute,
	}
}

// WithEquals configures the equality function that decides whether a
// recomputation is a change.
func (d *Derived[T]) WithEquals(fn func(T, T) bool) *Derived[T] {
	d.equal = fn
	return d
}

// ID returns the unique identifier for this derived observable.
func (d *Derived[T]) ID() uint64 { return d.id }

// DebugName returns the derived observable's name.
func (d *Derived[T]) DebugName() string { return d.name }

// String returns "name: value".
func (d *Derived[T]) String() string {
	return fmt.Sprintf("%s: %v", d.name, d.Get())
}

// Get returns the current value without tracking.
func (d *Derived[T]) Get() T {
	if d.hasValue {
		return d.value
	}
	if d.computing {
		panic(fmt.Sprintf("observable: cycle while computing %s", d.name))
	}
	d.computing = true
	defer func() { d.computing = false }()
	return d.compute(nil)
}

// Read returns the current value and records d as a dependency of r.
func (d *Derived[T]) Read(r Reader) T {
	if r != nil {
		r.track(d)
	}
	return d.Get()
}

func (d *Derived[T]) addObserver(o observer) {
	wasIdle := d.observers.len() == 0
	if d.observers.add(o) && wasIdle {
		d.recompute()
	}
}

func (d *Derived[T]) removeObserver(o observer) {
	if d.observers.remove(o) && d.observers.len() == 0 {
		for _, dep := range d.deps.clear() {
			dep.removeObserver(d)
		}
		var zero T
		d.value = zero
		d.hasValue = false
	}
}

// recompute runs compute with d as the reader and reports whether the value
// changed.
func (d *Derived[T]) recompute() bool {
	if d.computing {
		panic(fmt.Sprintf("observable: cycle while computing %s", d.name))
	}
	d.computing = true
	d.deps.begin()

	old, hadValue := d.value, d.hasValue
	func() {
		defer func() {
			d.computing = false
			for _, dep := range d.deps.end() {
				dep.removeObserver(d)
			}
		}()
		d.value = d.compute(d)
		d.hasValue = true
	}()

	return !hadValue || !d.equals(old, d.value)
}

func (d *Derived[T]) equals(a, b T) bool {
	if d.equal != nil {
		return d.equal(a, b)
	}
	return defaultEquals(a, b)
}

func (d *Derived[T]) track(o Observable) {
	if !d.computing {
		return
	}
	seen, isNew := d.deps.add(o)
	if !seen && isNew {
		o.addObserver(d)
	}
}

// beginUpdate forwards the first nested update to d's own observers, so that
// they settle only after d has.
func (d *Derived[T]) beginUpdate(Observable) {
	d.updateCount++
	if d.updateCount != 1 {
		return
	}
	d.updating = d.observers.snapshot()
	for _, o := range d.updating {
		o.beginUpdate(d)
	}
}

func (d *Derived[T]) endUpdate(Observable) {
	if d.updateCount == 0 {
		return
	}
	d.updateCount--
	if d.updateCount != 0 {
		return
	}
	updating := d.updating
	d.updating = nil
	endUpdates(len(updating), func(i int) {
		updating[i].endUpdate(d)
	})
}

func (d *Derived[T]) handleChange(o Observable, _ any) {
	if !d.deps.has(o) || d.observers.len() == 0 {
		return
	}
	if !d.recompute() {
		return
	}
	for _, ob := range d.updating {
		ob.handleChange(d, nil)
	}
}
