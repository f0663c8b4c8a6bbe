// Package leakcheck asserts that tests release every tracked disposable.
//
//	func TestSomething(t *testing.T) {
//	    leakcheck.Ensure(t)
//	    ...
//	}
package leakcheck

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/obsedit/obsedit/pkg/lifecycle"
)

// Tracker records live disposables.
type Tracker struct {
	mu   sync.Mutex
	seq  int
	live map[lifecycle.Disposable]record
}

type record struct {
	seq  int
	name string
}

// NewTracker creates an empty tracker. It is not installed.
func NewTracker() *Tracker {
	return &Tracker{live: make(map[lifecycle.Disposable]record)}
}

// Track implements lifecycle.Tracker.
func (t *Tracker) Track(d lifecycle.Disposable, debugName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.live[d] = record{seq: t.seq, name: debugName}
}

// Untrack implements lifecycle.Tracker.
func (t *Tracker) Untrack(d lifecycle.Disposable) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.live, d)
}

// Leaked returns the debug names of live disposables in creation order.
func (t *Tracker) Leaked() []string {
	t.mu.Lock()
	records := make([]record, 0, len(t.live))
	for _, r := range t.live {
		records = append(records, r)
	}
	t.mu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.name
	}
	return names
}

// Err returns an error describing leaked disposables, or nil.
func (t *Tracker) Err() error {
	leaked := t.Leaked()
	if len(leaked) == 0 {
		return nil
	}
	return fmt.Errorf("leakcheck: %d disposable(s) leaked: %s", len(leaked), strings.Join(leaked, ", "))
}

// Ensure installs a fresh tracker for the duration of the test and fails the
// test at cleanup if any disposable created meanwhile is still live.
// Tests using Ensure must not run in parallel with each other.
func Ensure(tb testing.TB) *Tracker {
	tb.Helper()

	tr := NewTracker()
	prev := lifecycle.SetTracker(tr)
	tb.Cleanup(func() {
		lifecycle.SetTracker(prev)
		if err := tr.Err(); err != nil {
			tb.Error(err)
		}
	})
	return tr
}
