package observable

import "fmt"

// Value is a settable observable whose writes carry a change payload of type C.
type Value[T, C any] struct {
	id   uint64
	name string

	value     T
	observers observerList

	// equal decides whether a write is a change. Ignored when alwaysNotify.
	equal        func(T, T) bool
	alwaysNotify bool
}

// ValueOption configures a Value.
type ValueOption func(*valueOptions)

type valueOptions struct {
	alwaysNotify bool
}

// AlwaysNotify makes every Set notify observers, even when the new value
// equals the old one. Use it for values whose writes are events in their own
// right, such as a document version set once per content change.
func AlwaysNotify() ValueOption {
	return func(o *valueOptions) {
		o.alwaysNotify = true
	}
}

// NewValue creates a value observable named name.
func NewValue[T, C any](name string, initial T, opts ...ValueOption) *Value[T, C] {
	var o valueOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Value[T, C]{
		id:           nextID(),
		name:         name,
		value:        initial,
		alwaysNotify: o.alwaysNotify,
	}
}

// WithEquals configures the equality function used by Set.
func (v *Value[T, C]) WithEquals(fn func(T, T) bool) *Value[T, C] {
	v.equal = fn
	return v
}

// ID returns the unique identifier for this value.
func (v *Value[T, C]) ID() uint64 { return v.id }

// DebugName returns the value's name.
func (v *Value[T, C]) DebugName() string { return v.name }

// String returns "name: value".
func (v *Value[T, C]) String() string {
	return fmt.Sprintf("%s: %v", v.name, v.value)
}

// Get returns the current value without tracking.
func (v *Value[T, C]) Get() T {
	return v.value
}

// Read returns the current value and records v as a dependency of r.
func (v *Value[T, C]) Read(r Reader) T {
	if r != nil {
		r.track(v)
	}
	return v.value
}

// Set writes value as part of tx, notifying each observer with change.
// A nil tx runs the write in its own transaction.
func (v *Value[T, C]) Set(value T, tx *Tx, change C) {
	if tx == nil {
		TransactionNamed(v.name+".set", func(tx *Tx) {
			v.Set(value, tx, change)
		})
		return
	}
	tx.ensureOpen()

	if !v.alwaysNotify && v.equals(v.value, value) {
		return
	}
	v.value = value

	for _, o := range v.observers.snapshot() {
		tx.updateObserver(o, v)
		o.handleChange(v, change)
	}
}

func (v *Value[T, C]) equals(a, b T) bool {
	if v.equal != nil {
		return v.equal(a, b)
	}
	return defaultEquals(a, b)
}

func (v *Value[T, C]) addObserver(o observer)    { v.observers.add(o) }
func (v *Value[T, C]) removeObserver(o observer) { v.observers.remove(o) }

func (v *Value[T, C]) changeOf(change any) (C, bool) {
	c, ok := change.(C)
	return c, ok
}
