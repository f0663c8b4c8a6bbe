// Package lifecycle provides scoped-resource release for the obsedit packages.
//
// A Disposable is anything that holds a registration (an event listener, an
// autorun subscription, an editor wrapper) and must be released exactly once:
//
//	store := lifecycle.NewStore()
//	store.Add(ed.OnDidType(func(text string) { ... }))
//	defer store.Dispose()
//
// # Leak Tracking
//
// A process-wide Tracker may be installed with SetTracker. Every disposable
// created through this package reports itself to the tracker on creation and
// again when it is disposed, so a test suite can assert that nothing was left
// registered. See the leakcheck subpackage.
package lifecycle
