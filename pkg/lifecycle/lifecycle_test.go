package lifecycle

import "testing"

type recordingTracker struct {
	tracked   []string
	untracked int
}

func (r *recordingTracker) Track(d Disposable, name string) { r.tracked = append(r.tracked, name) }
func (r *recordingTracker) Untrack(d Disposable)            { r.untracked++ }

func TestFuncRunsOnce(t *testing.T) {
	calls := 0
	d := Func("test", func() { calls++ })

	d.Dispose()
	d.Dispose()

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestStoreDisposesInOrder(t *testing.T) {
	var order []int
	s := NewStore()
	s.Add(Func("a", func() { order = append(order, 1) }))
	s.Add(Func("b", func() { order = append(order, 2) }))

	if s.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", s.Len())
	}

	s.Dispose()
	s.Dispose()

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("unexpected dispose order: %v", order)
	}
	if !s.IsDisposed() {
		t.Error("store should report disposed")
	}
}

func TestStoreAddAfterDispose(t *testing.T) {
	s := NewStore()
	s.Dispose()

	ran := false
	s.Add(Func("late", func() { ran = true }))

	if !ran {
		t.Error("disposable added to a disposed store should be disposed immediately")
	}
	if s.Len() != 0 {
		t.Errorf("disposed store should stay empty, got %d", s.Len())
	}
}

func TestStoreClearKeepsStoreUsable(t *testing.T) {
	s := NewStore()
	defer s.Dispose()

	calls := 0
	s.Add(Func("a", func() { calls++ }))
	s.Clear()
	s.Add(Func("b", func() { calls++ }))

	if calls != 1 {
		t.Errorf("expected 1 call after clear, got %d", calls)
	}
	if s.IsDisposed() {
		t.Error("clear must not dispose the store")
	}
}

func TestTrackerSeesCreateAndDispose(t *testing.T) {
	rec := &recordingTracker{}
	prev := SetTracker(rec)
	defer SetTracker(prev)

	d := Func("watched", func() {})
	d.Dispose()
	d.Dispose()

	if len(rec.tracked) != 1 || rec.tracked[0] != "watched" {
		t.Errorf("unexpected tracked names: %v", rec.tracked)
	}
	if rec.untracked != 1 {
		t.Errorf("expected 1 untrack, got %d", rec.untracked)
	}
}

func TestNoneIsInert(t *testing.T) {
	None.Dispose()
	None.Dispose()
}
