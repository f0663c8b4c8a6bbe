package observable

import (
	"bytes"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/obsedit/obsedit/pkg/lifecycle"
	"github.com/obsedit/obsedit/pkg/lifecycle/leakcheck"
)

func TestAutorunRunsOnCreate(t *testing.T) {
	leakcheck.Ensure(t)

	count := NewValue[int, any]("count", 0)
	runs := 0
	a := NewAutorun("test", func(r Reader) {
		_ = count.Read(r)
		runs++
	})
	defer a.Dispose()

	if runs != 1 {
		t.Errorf("expected 1 run on create, got %d", runs)
	}
}

func TestAutorunRerunsAfterSet(t *testing.T) {
	leakcheck.Ensure(t)

	count := NewValue[int, any]("count", 0)
	var seen []int
	a := NewAutorun("test", func(r Reader) {
		seen = append(seen, count.Read(r))
	})
	defer a.Dispose()

	count.Set(1, nil, nil)
	count.Set(2, nil, nil)

	if !reflect.DeepEqual(seen, []int{0, 1, 2}) {
		t.Errorf("unexpected values: %v", seen)
	}
}

func TestAutorunSkipsEqualWrites(t *testing.T) {
	leakcheck.Ensure(t)

	count := NewValue[int, any]("count", 3)
	runs := 0
	a := NewAutorun("test", func(r Reader) {
		_ = count.Read(r)
		runs++
	})
	defer a.Dispose()

	count.Set(3, nil, nil)

	if runs != 1 {
		t.Errorf("equal write should not re-run, got %d runs", runs)
	}
}

func TestAlwaysNotifyReportsEqualWrites(t *testing.T) {
	leakcheck.Ensure(t)

	version := NewValue[int, string]("version", 1, AlwaysNotify())
	var changes []string
	a := AutorunHandleChanges(HandleChangeOptions[struct{}]{
		HandleChange: func(ctx ChangeContext, _ *struct{}) bool {
			changes = append(changes, fmt.Sprint(ctx.Change()))
			return true
		},
	}, func(r Reader, _ struct{}) {
		_ = version.Read(r)
	})
	defer a.Dispose()

	Transaction(func(tx *Tx) {
		version.Set(1, tx, "first")
		version.Set(1, tx, "second")
	})

	if !reflect.DeepEqual(changes, []string{"first", "second"}) {
		t.Errorf("unexpected changes: %v", changes)
	}
}

func TestHandlerFiresPerChangeAndReaderOncePerTransaction(t *testing.T) {
	leakcheck.Ensure(t)

	a := NewValue[int, string]("a", 0)
	b := NewValue[int, string]("b", 0)
	var log []string

	d := AutorunHandleChanges(HandleChangeOptions[struct{}]{
		HandleChange: func(ctx ChangeContext, _ *struct{}) bool {
			log = append(log, fmt.Sprintf("handle %s %v", ctx.ChangedObservable(), ctx.Change()))
			return true
		},
	}, func(r Reader, _ struct{}) {
		log = append(log, fmt.Sprintf("run a=%d b=%d", a.Read(r), b.Read(r)))
	})
	defer d.Dispose()

	Transaction(func(tx *Tx) {
		a.Set(1, tx, "x")
		b.Set(2, tx, "y")
		a.Set(3, tx, "z")
	})

	want := []string{
		"run a=0 b=0",
		"handle a: 1 x",
		"handle b: 2 y",
		"handle a: 3 z",
		"run a=3 b=2",
	}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("unexpected log:\n got %q\nwant %q", log, want)
	}
}

func TestHandlerReturningFalseSkipsRerun(t *testing.T) {
	leakcheck.Ensure(t)

	v := NewValue[int, any]("v", 0)
	runs := 0
	d := AutorunHandleChanges(HandleChangeOptions[struct{}]{
		HandleChange: func(ChangeContext, *struct{}) bool { return false },
	}, func(r Reader, _ struct{}) {
		_ = v.Read(r)
		runs++
	})
	defer d.Dispose()

	v.Set(1, nil, nil)
	if runs != 1 {
		t.Errorf("expected no re-run, got %d runs", runs)
	}
}

func TestChangeSummaryAccumulates(t *testing.T) {
	leakcheck.Ensure(t)

	v := NewValue[int, int]("v", 0)
	var summaries [][]int
	d := AutorunHandleChanges(HandleChangeOptions[[]int]{
		CreateEmptyChangeSummary: func() []int { return []int{} },
		HandleChange: func(ctx ChangeContext, summary *[]int) bool {
			if c, ok := ChangeOf[int](ctx, v); ok {
				*summary = append(*summary, c)
			}
			return true
		},
	}, func(r Reader, summary []int) {
		_ = v.Read(r)
		summaries = append(summaries, summary)
	})
	defer d.Dispose()

	Transaction(func(tx *Tx) {
		v.Set(1, tx, 10)
		v.Set(2, tx, 20)
	})
	v.Set(3, nil, 30)

	want := [][]int{{}, {10, 20}, {30}}
	if !reflect.DeepEqual(summaries, want) {
		t.Errorf("unexpected summaries: %v", summaries)
	}
}

func TestDisposeStopsNotifications(t *testing.T) {
	leakcheck.Ensure(t)

	v := NewValue[int, any]("v", 0)
	calls := 0
	d := AutorunHandleChanges(HandleChangeOptions[struct{}]{
		HandleChange: func(ChangeContext, *struct{}) bool {
			calls++
			return true
		},
	}, func(r Reader, _ struct{}) {
		_ = v.Read(r)
		calls++
	})

	d.Dispose()
	d.Dispose()
	v.Set(1, nil, nil)

	if calls != 1 {
		t.Errorf("expected only the initial run, got %d calls", calls)
	}
	if !d.IsDisposed() {
		t.Error("autorun should report disposed")
	}
	if v.observers.len() != 0 {
		t.Errorf("expected no observers after dispose, got %d", v.observers.len())
	}
}

func TestDisposeInsideTransactionSuppressesRerun(t *testing.T) {
	leakcheck.Ensure(t)

	v := NewValue[int, any]("v", 0)
	runs := 0
	d := NewAutorun("test", func(r Reader) {
		_ = v.Read(r)
		runs++
	})

	Transaction(func(tx *Tx) {
		v.Set(1, tx, nil)
		d.Dispose()
	})

	if runs != 1 {
		t.Errorf("disposed autorun must not re-run, got %d runs", runs)
	}
}

func TestAutorunTracksConditionalDependencies(t *testing.T) {
	leakcheck.Ensure(t)

	useA := NewValue[bool, any]("useA", true)
	a := NewValue[int, any]("a", 1)
	b := NewValue[int, any]("b", 2)
	var seen []int

	d := NewAutorun("test", func(r Reader) {
		if useA.Read(r) {
			seen = append(seen, a.Read(r))
		} else {
			seen = append(seen, b.Read(r))
		}
	})
	defer d.Dispose()

	useA.Set(false, nil, nil)
	a.Set(10, nil, nil)
	if len(seen) != 2 {
		t.Fatalf("a is no longer a dependency, got %v", seen)
	}

	b.Set(20, nil, nil)
	if !reflect.DeepEqual(seen, []int{1, 2, 20}) {
		t.Errorf("unexpected values: %v", seen)
	}
	if got := len(d.Dependencies()); got != 2 {
		t.Errorf("expected 2 dependencies, got %d", got)
	}
}

func TestAutorunWritingItsDependencySettles(t *testing.T) {
	leakcheck.Ensure(t)

	v := NewValue[int, any]("v", 0)
	var seen []int
	d := NewAutorun("clamp", func(r Reader) {
		n := v.Read(r)
		seen = append(seen, n)
		if n > 5 {
			v.Set(5, nil, nil)
		}
	})
	defer d.Dispose()

	v.Set(9, nil, nil)

	if !reflect.DeepEqual(seen, []int{0, 9, 5}) {
		t.Errorf("unexpected values: %v", seen)
	}
}

func TestAutorunRerunLimit(t *testing.T) {
	leakcheck.Ensure(t)

	v := NewValue[int, any]("v", 0)
	runs := 0
	d := NewAutorun("runaway", func(r Reader) {
		n := v.Read(r)
		runs++
		v.Set(n+1, nil, nil)
	})
	defer d.Dispose()

	if runs != maxReruns {
		t.Errorf("expected %d runs, got %d", maxReruns, runs)
	}
}

func TestSignalDeliversPayload(t *testing.T) {
	leakcheck.Ensure(t)

	typed := NewSignal[string]("onDidType")
	var log []string
	d := AutorunHandleChanges(HandleChangeOptions[struct{}]{
		HandleChange: func(ctx ChangeContext, _ *struct{}) bool {
			text, ok := ChangeOf[string](ctx, typed)
			log = append(log, fmt.Sprintf("%s %s %v", ctx.ChangedObservable(), text, ok))
			return true
		},
	}, func(r Reader, _ struct{}) {
		typed.Read(r)
		log = append(log, "run")
	})
	defer d.Dispose()

	typed.Trigger(nil, "abc")

	want := []string{"run", "onDidType abc true", "run"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("unexpected log: %q", log)
	}
}

func TestChangeOfOtherObservable(t *testing.T) {
	a := NewValue[int, string]("a", 0)
	b := NewValue[int, string]("b", 0)
	ctx := ChangeContext{changed: a, change: "x"}

	if _, ok := ChangeOf[string](ctx, b); ok {
		t.Error("change of a must not match b")
	}
	if c, ok := ChangeOf[string](ctx, a); !ok || c != "x" {
		t.Errorf("expected x, got %q %v", c, ok)
	}
	if !ctx.DidChange(a) || ctx.DidChange(b) {
		t.Error("DidChange mismatch")
	}
}

func TestCommittedTransactionPanics(t *testing.T) {
	v := NewValue[int, any]("v", 0)
	tx := NewTx("done")
	tx.Commit()
	tx.Commit()

	defer func() {
		if r := recover(); r != ErrTxCommitted {
			t.Errorf("expected ErrTxCommitted panic, got %v", r)
		}
	}()
	v.Set(1, tx, nil)
}

func TestSubTransactionJoinsOpenTransaction(t *testing.T) {
	leakcheck.Ensure(t)

	a := NewValue[int, any]("a", 0)
	b := NewValue[int, any]("b", 0)
	runs := 0
	d := NewAutorun("test", func(r Reader) {
		_ = a.Read(r) + b.Read(r)
		runs++
	})
	defer d.Dispose()

	Transaction(func(tx *Tx) {
		a.Set(1, tx, nil)
		SubTransaction(tx, func(tx *Tx) {
			b.Set(1, tx, nil)
		})
	})
	if runs != 2 {
		t.Errorf("expected one re-run, got %d runs", runs-1)
	}

	SubTransaction(nil, func(tx *Tx) {
		a.Set(2, tx, nil)
	})
	if runs != 3 {
		t.Errorf("expected a fresh transaction to re-run, got %d runs", runs)
	}
}

func TestValueString(t *testing.T) {
	v := NewValue[int, any]("ObservableCodeEditor._versionId", 4)
	if got := v.String(); got != "ObservableCodeEditor._versionId: 4" {
		t.Errorf("unexpected string: %q", got)
	}
	s := NewSignal[string]("ObservableCodeEditor.onDidType")
	if got := s.String(); got != "ObservableCodeEditor.onDidType" {
		t.Errorf("unexpected string: %q", got)
	}
}

func TestAutorunLeakIsReported(t *testing.T) {
	tr := leakcheck.NewTracker()
	prev := lifecycle.SetTracker(tr)
	defer lifecycle.SetTracker(prev)

	d := NewAutorun("leaky", func(Reader) {})
	if leaked := tr.Leaked(); len(leaked) != 1 || leaked[0] != "autorun leaky" {
		t.Fatalf("unexpected leaked list: %v", leaked)
	}
	d.Dispose()
	if err := tr.Err(); err != nil {
		t.Errorf("expected no leaks after dispose, got %v", err)
	}
}

// captureLog routes dispatcher diagnostics into a buffer for the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetLogger(nil) })
	return &buf
}

func TestReaderPanicKeepsOtherAutorunsLive(t *testing.T) {
	leakcheck.Ensure(t)
	buf := captureLog(t)

	x := NewValue[int, any]("x", 0)
	panicked := false
	var aSeen, bSeen []int
	a := NewAutorun("a", func(r Reader) {
		n := x.Read(r)
		if n == 1 && !panicked {
			panicked = true
			panic("boom")
		}
		aSeen = append(aSeen, n)
	})
	defer a.Dispose()
	b := NewAutorun("b", func(r Reader) {
		bSeen = append(bSeen, x.Read(r))
	})
	defer b.Dispose()

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("expected reader panic to propagate, got %v", r)
			}
		}()
		Transaction(func(tx *Tx) {
			x.Set(1, tx, nil)
		})
	}()

	x.Set(2, nil, nil)
	x.Set(3, nil, nil)

	if !reflect.DeepEqual(aSeen, []int{0, 2, 3}) {
		t.Errorf("autorun a: unexpected values %v", aSeen)
	}
	if !reflect.DeepEqual(bSeen, []int{0, 1, 2, 3}) {
		t.Errorf("autorun b: unexpected values %v", bSeen)
	}

	out := buf.String()
	if !strings.Contains(out, `"level":"ERROR"`) || !strings.Contains(out, "autorun panicked") {
		t.Errorf("expected an error record for the panic, got %s", out)
	}
	if !strings.Contains(out, `"autorun":"a"`) {
		t.Errorf("expected the record to name autorun a, got %s", out)
	}
}

func TestReaderPanicInsideDerivedChainKeepsSiblingsLive(t *testing.T) {
	leakcheck.Ensure(t)
	captureLog(t)

	x := NewValue[int, any]("x", 0)
	double := NewDerived("double", func(r Reader) int { return x.Read(r) * 2 })
	panicked := false
	var seen []int
	a := NewAutorun("a", func(r Reader) {
		if double.Read(r) == 2 && !panicked {
			panicked = true
			panic("boom")
		}
	})
	defer a.Dispose()
	b := NewAutorun("b", func(r Reader) {
		seen = append(seen, double.Read(r))
	})
	defer b.Dispose()

	func() {
		defer func() { _ = recover() }()
		x.Set(1, nil, nil)
	}()
	x.Set(2, nil, nil)

	if !reflect.DeepEqual(seen, []int{0, 2, 4}) {
		t.Errorf("unexpected values: %v", seen)
	}
}

func TestHandleChangePanicIsLoggedAndRaised(t *testing.T) {
	leakcheck.Ensure(t)
	buf := captureLog(t)

	x := NewValue[int, any]("x", 0)
	fail := true
	var seen []int
	a := AutorunHandleChanges(HandleChangeOptions[struct{}]{
		DebugName: "handler",
		HandleChange: func(ctx ChangeContext, _ *struct{}) bool {
			if fail {
				fail = false
				panic("handler")
			}
			return true
		},
	}, func(r Reader, _ struct{}) {
		seen = append(seen, x.Read(r))
	})
	defer a.Dispose()

	func() {
		defer func() {
			if r := recover(); r != "handler" {
				t.Errorf("expected handler panic to propagate, got %v", r)
			}
		}()
		x.Set(1, nil, nil)
	}()
	x.Set(2, nil, nil)

	if !reflect.DeepEqual(seen, []int{0, 2}) {
		t.Errorf("unexpected values: %v", seen)
	}
	out := buf.String()
	if !strings.Contains(out, "change handler panicked") || !strings.Contains(out, `"autorun":"handler"`) {
		t.Errorf("expected handler panic record, got %s", out)
	}
	if !strings.Contains(out, `"changed":"x"`) {
		t.Errorf("expected record to name the changed observable, got %s", out)
	}
}
