// Package observable provides the reactive core behind the observable editor.
//
// Dependencies are tracked explicitly: a reader function receives a Reader,
// and every observable read through it becomes a dependency of that run.
// When a dependency later changes, the owning autorun is notified.
//
// # Core Types
//
// Value[T, C] is a settable observable whose writes carry a change payload C:
//
//	sel := observable.NewValue[int, string]("sel", 0)
//	sel.Set(5, nil, "api")     // nil tx: a single-change transaction
//
// Signal[C] is a valueless observable that only carries change payloads:
//
//	typed := observable.NewSignal[string]("onDidType")
//	typed.Trigger(nil, "abc")
//
// Derived[T] caches a computation over other observables:
//
//	doubled := observable.NewDerived("doubled", func(r observable.Reader) int {
//	    return sel.Read(r) * 2
//	})
//
// # Autoruns
//
// Autorun runs its function immediately and again after any dependency
// changes. AutorunHandleChanges additionally calls a change handler once per
// upstream change, before the re-run, with a ChangeContext naming the
// observable that changed and the payload it changed with:
//
//	d := observable.AutorunHandleChanges(observable.HandleChangeOptions[struct{}]{
//	    HandleChange: func(ctx observable.ChangeContext, _ *struct{}) bool {
//	        if ctx.DidChange(sel) {
//	            fmt.Println("selection changed:", ctx.Change())
//	        }
//	        return true
//	    },
//	}, func(r observable.Reader, _ struct{}) {
//	    fmt.Println("selection:", sel.Read(r))
//	})
//	defer d.Dispose()
//
// # Transactions
//
// Writes that share a Tx are one batch: the handler fires once per write in
// write order, and readers re-run once when the transaction is committed.
//
//	observable.Transaction(func(tx *observable.Tx) {
//	    a.Set(1, tx, nil)
//	    b.Set(2, tx, nil)
//	})
//
// # Thread Safety
//
// Delivery is synchronous on the mutating goroutine and the graph is not
// guarded by locks. Callers that share observables between goroutines must
// serialise access themselves.
package observable
