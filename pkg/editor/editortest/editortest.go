// Package editortest provides helpers for tests that drive an editor.
package editortest

import (
	"testing"

	"github.com/obsedit/obsedit/pkg/editor"
)

// WithTestEditor creates an editor holding text, runs fn with it and
// disposes the editor when fn returns.
func WithTestEditor(tb testing.TB, text string, fn func(ed *editor.Editor)) {
	tb.Helper()

	ed := editor.New(text)
	defer ed.Dispose()
	fn(ed)
}

// MustTrigger runs a command and fails the test on error.
func MustTrigger(tb testing.TB, ed *editor.Editor, source, command string, payload any) {
	tb.Helper()
	if err := ed.Trigger(source, command, payload); err != nil {
		tb.Fatalf("trigger %s/%s: %v", source, command, err)
	}
}
