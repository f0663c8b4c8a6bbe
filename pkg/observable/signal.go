package observable

// Signal is an observable without a value. Triggering it notifies observers
// with a change payload; reading it only records the dependency.
type Signal[C any] struct {
	id        uint64
	name      string
	observers observerList
}

// NewSignal creates a signal named name.
func NewSignal[C any](name string) *Signal[C] {
	return &Signal[C]{
		id:   nextID(),
		name: name,
	}
}

// ID returns the unique identifier for this signal.
func (s *Signal[C]) ID() uint64 { return s.id }

// DebugName returns the signal's name.
func (s *Signal[C]) DebugName() string { return s.name }

// String returns the signal's name.
func (s *Signal[C]) String() string { return s.name }

// Read records s as a dependency of r.
func (s *Signal[C]) Read(r Reader) {
	if r != nil {
		r.track(s)
	}
}

// Trigger notifies every observer with change as part of tx.
// A nil tx runs the trigger in its own transaction.
func (s *Signal[C]) Trigger(tx *Tx, change C) {
	if tx == nil {
		TransactionNamed(s.name+".trigger", func(tx *Tx) {
			s.Trigger(tx, change)
		})
		return
	}
	tx.ensureOpen()

	for _, o := range s.observers.snapshot() {
		tx.updateObserver(o, s)
		o.handleChange(s, change)
	}
}

func (s *Signal[C]) addObserver(o observer)    { s.observers.add(o) }
func (s *Signal[C]) removeObserver(o observer) { s.observers.remove(o) }

func (s *Signal[C]) changeOf(change any) (C, bool) {
	c, ok := change.(C)
	return c, ok
}
