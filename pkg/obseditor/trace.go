package obseditor

import (
	"fmt"
	"strings"

	"github.com/obsedit/obsedit/pkg/editor"
	"github.com/obsedit/obsedit/pkg/observable"
)

// TraceChanges registers an autorun that reports every change of o's
// selections, version and typed text to sink, followed by one line with the
// settled state per transaction:
//
//	handle selection change, source: api
//	selection: [1,2 -> 1,2], value: 1
//
// Selection changes without a source are reported with source "none".
func TraceChanges(o *ObservableCodeEditor, sink func(entry string)) *observable.Autorun {
	return observable.AutorunHandleChanges(observable.HandleChangeOptions[struct{}]{
		DebugName: "ObservableCodeEditor.trace",
		HandleChange: func(ctx observable.ChangeContext, _ *struct{}) bool {
			if c, ok := observable.ChangeOf[SelectionChange](ctx, o.Selections); ok {
				sink("handle selection change, source: " + SourceOrNone(c.Source))
			} else {
				sink(fmt.Sprintf("handle change %s %v", ctx.ChangedObservable(), ctx.Change()))
			}
			return true
		},
	}, func(r observable.Reader, _ struct{}) {
		sels := o.Selections.Read(r)
		version := o.VersionID.Read(r)
		o.OnDidType.Read(r)
		sink(fmt.Sprintf("selection: %s, value: %d", FormatSelections(sels), version))
	})
}

// SourceOrNone returns source, or "none" when it is empty.
func SourceOrNone(source string) string {
	if source == "" {
		return "none"
	}
	return source
}

// FormatSelections joins selections with ", ".
func FormatSelections(sels []editor.Selection) string {
	parts := make([]string, len(sels))
	for i, s := range sels {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}
