package obseditor

import (
	"github.com/obsedit/obsedit/pkg/editor"
	"github.com/obsedit/obsedit/pkg/observable"
)

// Kind identifies which editor observable a change belongs to.
type Kind int

const (
	KindOther Kind = iota
	KindSelections
	KindVersion
	KindTyped
	KindFocus
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindSelections:
		return "selections"
	case KindVersion:
		return "version"
	case KindTyped:
		return "typed"
	case KindFocus:
		return "focus"
	default:
		return "other"
	}
}

// Change is a change of one of the editor observables, as a closed variant.
// Only the fields of the matching Kind are set.
type Change struct {
	Kind Kind

	// Source and Reason are set for KindSelections.
	Source string
	Reason editor.CursorChangeReason

	// Content is set for KindVersion.
	Content editor.ModelContentChangedEvent

	// Text is set for KindTyped.
	Text string
}

// Classify turns a change context into a Change of o's observables.
// Changes of unrelated observables are KindOther.
func Classify(ctx observable.ChangeContext, o *ObservableCodeEditor) Change {
	if c, ok := observable.ChangeOf[SelectionChange](ctx, o.Selections); ok {
		return Change{Kind: KindSelections, Source: c.Source, Reason: c.Reason}
	}
	if c, ok := observable.ChangeOf[editor.ModelContentChangedEvent](ctx, o.VersionID); ok {
		return Change{Kind: KindVersion, Content: c}
	}
	if text, ok := observable.ChangeOf[string](ctx, o.OnDidType); ok {
		return Change{Kind: KindTyped, Text: text}
	}
	if ctx.DidChange(o.Focused) {
		return Change{Kind: KindFocus}
	}
	return Change{Kind: KindOther}
}
