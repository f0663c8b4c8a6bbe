package obseditor

import (
	"github.com/obsedit/obsedit/pkg/editor"
	"github.com/obsedit/obsedit/pkg/lifecycle"
	"github.com/obsedit/obsedit/pkg/observable"
)

// SelectionChange is the change payload of ObservableCodeEditor.Selections.
type SelectionChange struct {
	// Source is the origin of the cursor change. Empty when the editor
	// recovered the cursors as a side effect of an edit.
	Source string
	Reason editor.CursorChangeReason
}

// FocusChange is the change payload of ObservableCodeEditor.Focused.
type FocusChange struct{}

// ObservableCodeEditor wraps an editor. It must be disposed to release the
// editor listeners.
type ObservableCodeEditor struct {
	editor *editor.Editor
	store  *lifecycle.Store

	// tx is open between the editor's OnBeginUpdate and OnEndUpdate.
	tx *observable.Tx

	Selections *observable.Value[[]editor.Selection, SelectionChange]
	VersionID  *observable.Value[int, editor.ModelContentChangedEvent]
	OnDidType  *observable.Signal[string]
	Focused    *observable.Value[bool, FocusChange]

	// Text is the model's text, recomputed when the version changes.
	Text *observable.Derived[string]

	// Cursor is the active position of the primary cursor.
	Cursor *observable.Derived[editor.Position]
}

// New wraps ed. The wrapper reflects state changes made from now on.
func New(ed *editor.Editor) *ObservableCodeEditor {
	o := &ObservableCodeEditor{
		editor: ed,
		store:  lifecycle.NewStore(),
	}

	o.Selections = observable.NewValue[[]editor.Selection, SelectionChange](
		"ObservableCodeEditor._selections", ed.Selections(), observable.AlwaysNotify())
	o.VersionID = observable.NewValue[int, editor.ModelContentChangedEvent](
		"ObservableCodeEditor._versionId", ed.Model().VersionID(), observable.AlwaysNotify())
	o.OnDidType = observable.NewSignal[string]("ObservableCodeEditor.onDidType")
	o.Focused = observable.NewValue[bool, FocusChange]("ObservableCodeEditor._focused", ed.Focused())

	o.Text = observable.NewDerived("ObservableCodeEditor.text", func(r observable.Reader) string {
		o.VersionID.Read(r)
		return ed.Model().Value()
	})
	o.Cursor = observable.NewDerived("ObservableCodeEditor.cursor", func(r observable.Reader) editor.Position {
		sels := o.Selections.Read(r)
		if len(sels) == 0 {
			return editor.Position{Line: 1, Column: 1}
		}
		return sels[0].Active
	})

	o.store.Add(ed.OnBeginUpdate(o.beginUpdate))
	o.store.Add(ed.OnEndUpdate(o.endUpdate))
	o.store.Add(ed.OnDidChangeModelContent(func(ev editor.ModelContentChangedEvent) {
		o.VersionID.Set(ed.Model().VersionID(), o.tx, ev)
	}))
	o.store.Add(ed.OnDidChangeCursorSelection(func(ev editor.CursorSelectionChangedEvent) {
		o.Selections.Set(ev.Selections, o.tx, SelectionChange{Source: ev.Source, Reason: ev.Reason})
	}))
	o.store.Add(ed.OnDidType(func(text string) {
		o.OnDidType.Trigger(o.tx, text)
	}))
	o.store.Add(ed.OnDidChangeFocus(func(focused bool) {
		o.Focused.Set(focused, o.tx, FocusChange{})
	}))

	lifecycle.Track(o, "ObservableCodeEditor")
	return o
}

// Editor returns the wrapped editor.
func (o *ObservableCodeEditor) Editor() *editor.Editor { return o.editor }

// Dispose releases every editor listener. Observables keep their last values.
func (o *ObservableCodeEditor) Dispose() {
	if o.store.IsDisposed() {
		return
	}
	o.store.Dispose()
	if o.tx != nil {
		tx := o.tx
		o.tx = nil
		tx.Commit()
	}
	lifecycle.Untrack(o)
}

func (o *ObservableCodeEditor) beginUpdate() {
	o.tx = observable.NewTx("ObservableCodeEditor.update")
}

func (o *ObservableCodeEditor) endUpdate() {
	tx := o.tx
	o.tx = nil
	if tx != nil {
		tx.Commit()
	}
}
