package observable

import (
	"reflect"
	"testing"

	"github.com/obsedit/obsedit/pkg/lifecycle/leakcheck"
)

func TestDerivedWithoutObserversRecomputes(t *testing.T) {
	v := NewValue[int, any]("v", 2)
	computes := 0
	doubled := NewDerived("doubled", func(r Reader) int {
		computes++
		return v.Read(r) * 2
	})

	if doubled.Get() != 4 || doubled.Get() != 4 {
		t.Fatal("unexpected derived value")
	}
	if computes != 2 {
		t.Errorf("expected 2 computes without observers, got %d", computes)
	}
	if v.observers.len() != 0 {
		t.Error("unobserved derived must not subscribe")
	}
}

func TestDerivedCachesWhileObserved(t *testing.T) {
	leakcheck.Ensure(t)

	v := NewValue[int, any]("v", 1)
	computes := 0
	doubled := NewDerived("doubled", func(r Reader) int {
		computes++
		return v.Read(r) * 2
	})

	var seen []int
	d := NewAutorun("test", func(r Reader) {
		seen = append(seen, doubled.Read(r))
	})

	_ = doubled.Get()
	v.Set(5, nil, nil)

	if !reflect.DeepEqual(seen, []int{2, 10}) {
		t.Errorf("unexpected values: %v", seen)
	}
	if computes != 2 {
		t.Errorf("expected 2 computes, got %d", computes)
	}

	d.Dispose()
	if v.observers.len() != 0 {
		t.Error("derived should unsubscribe once unobserved")
	}
}

func TestDerivedSuppressesUnchangedResults(t *testing.T) {
	leakcheck.Ensure(t)

	v := NewValue[int, any]("v", 1)
	parity := NewDerived("parity", func(r Reader) bool {
		return v.Read(r)%2 == 0
	})

	var handled []string
	runs := 0
	d := AutorunHandleChanges(HandleChangeOptions[struct{}]{
		HandleChange: func(ctx ChangeContext, _ *struct{}) bool {
			handled = append(handled, ctx.ChangedObservable().DebugName())
			return true
		},
	}, func(r Reader, _ struct{}) {
		_ = parity.Read(r)
		runs++
	})
	defer d.Dispose()

	v.Set(3, nil, nil)
	if runs != 1 || len(handled) != 0 {
		t.Fatalf("odd to odd should not notify, runs=%d handled=%v", runs, handled)
	}

	v.Set(4, nil, nil)
	if runs != 2 {
		t.Errorf("expected re-run after parity change, got %d runs", runs)
	}
	if !reflect.DeepEqual(handled, []string{"parity"}) {
		t.Errorf("unexpected handled list: %v", handled)
	}
}

func TestDerivedChainSettlesOncePerTransaction(t *testing.T) {
	leakcheck.Ensure(t)

	a := NewValue[int, any]("a", 1)
	b := NewValue[int, any]("b", 1)
	sum := NewDerived("sum", func(r Reader) int { return a.Read(r) + b.Read(r) })
	label := NewDerived("label", func(r Reader) string {
		if sum.Read(r) > 10 {
			return "big"
		}
		return "small"
	})

	var seen []string
	d := NewAutorun("test", func(r Reader) {
		seen = append(seen, label.Read(r))
	})
	defer d.Dispose()

	Transaction(func(tx *Tx) {
		a.Set(6, tx, nil)
		b.Set(6, tx, nil)
	})

	if !reflect.DeepEqual(seen, []string{"small", "big"}) {
		t.Errorf("unexpected values: %v", seen)
	}
	if got := sum.String(); got != "sum: 12" {
		t.Errorf("unexpected string: %q", got)
	}
}
