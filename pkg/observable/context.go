package observable

// ChangeContext describes one upstream change delivered to a change handler.
type ChangeContext struct {
	changed Observable
	change  any
}

// ChangedObservable returns the observable that changed.
func (c ChangeContext) ChangedObservable() Observable {
	return c.changed
}

// Change returns the payload the observable changed with. It may be nil.
func (c ChangeContext) Change() any {
	return c.change
}

// DidChange reports whether this change concerns o.
func (c ChangeContext) DidChange(o Observable) bool {
	if c.changed == nil || o == nil {
		return false
	}
	return c.changed.ID() == o.ID()
}

// Changer is an observable whose change payloads have type C.
// Value and Signal implement it.
type Changer[C any] interface {
	Observable
	changeOf(change any) (C, bool)
}

// ChangeOf returns the typed payload of ctx if ctx concerns o.
// The second result is false when the change belongs to another observable.
func ChangeOf[C any](ctx ChangeContext, o Changer[C]) (C, bool) {
	if !ctx.DidChange(o) {
		var zero C
		return zero, false
	}
	c, _ := o.changeOf(ctx.change)
	return c, true
}
