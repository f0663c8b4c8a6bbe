package observable

import (
	"time"
)

// Tx groups writes into a single notification phase. Observers are told
// about each write as it happens; readers re-run once, on Commit.
type Tx struct {
	id        uint64
	name      string
	started   time.Time
	updating  []txUpdate
	committed bool
}

type txUpdate struct {
	observer   observer
	observable Observable
}

// NewTx opens a transaction. It must be committed exactly once.
func NewTx(name string) *Tx {
	tx := &Tx{
		id:      nextID(),
		name:    name,
		started: time.Now(),
	}
	if h := hooks(); h != nil {
		h.TransactionStarted(tx.id, name)
	}
	return tx
}

// Name returns the transaction's debug name.
func (tx *Tx) Name() string { return tx.name }

// Committed reports whether Commit has been called.
func (tx *Tx) Committed() bool { return tx.committed }

// updateObserver brackets the observer's update for the lifetime of tx.
func (tx *Tx) updateObserver(o observer, source Observable) {
	tx.updating = append(tx.updating, txUpdate{observer: o, observable: source})
	o.beginUpdate(source)
}

func (tx *Tx) ensureOpen() {
	if tx.committed {
		panic(ErrTxCommitted)
	}
}

// Commit ends every update started in tx. Readers whose dependencies changed
// re-run here, in the order the observers were first updated.
// Calling Commit more than once has no effect.
func (tx *Tx) Commit() {
	if tx.committed {
		return
	}
	tx.committed = true

	updates := tx.updating
	tx.updating = nil
	defer func() {
		elapsed := time.Since(tx.started)
		logger().Debug("observable: transaction committed",
			"tx", tx.name,
			"updates", len(updates),
			"elapsed", elapsed,
		)
		if h := hooks(); h != nil {
			h.TransactionCommitted(tx.id, tx.name, len(updates), elapsed)
		}
	}()

	endUpdates(len(updates), func(i int) {
		updates[i].observer.endUpdate(updates[i].observable)
	})
}

// endUpdates calls end for 0..n-1. A panic from one call does not skip the
// rest; the first one is re-raised once every call has returned.
func endUpdates(n int, end func(i int)) {
	var failure any
	for i := 0; i < n; i++ {
		func() {
			defer func() {
				if r := recover(); r != nil && failure == nil {
					failure = r
				}
			}()
			end(i)
		}()
	}
	if failure != nil {
		panic(failure)
	}
}

// Transaction runs fn in a new transaction and commits it when fn returns.
//
// Example:
//
//	Transaction(func(tx *Tx) {
//	    firstName.Set("John", tx, nil)
//	    lastName.Set("Doe", tx, nil)
//	})
//	// Readers of both values re-run once
func Transaction(fn func(tx *Tx)) {
	TransactionNamed("", fn)
}

// TransactionNamed is Transaction with a debug name, reported to Hooks and
// in debug logs.
func TransactionNamed(name string, fn func(tx *Tx)) {
	tx := NewTx(name)
	defer tx.Commit()
	fn(tx)
}

// SubTransaction runs fn as part of tx when tx is non-nil and still open,
// and in a fresh transaction otherwise.
func SubTransaction(tx *Tx, fn func(tx *Tx)) {
	if tx != nil && !tx.committed {
		fn(tx)
		return
	}
	Transaction(fn)
}
