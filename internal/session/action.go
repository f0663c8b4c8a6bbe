package session

import (
	"fmt"

	"github.com/obsedit/obsedit/pkg/editor"
)

// Action is one editor operation. Exactly one field must be set.
type Action struct {
	SetPosition   *editor.Position `json:"setPosition,omitempty" yaml:"setPosition,omitempty"`
	SetSelections *SetSelections   `json:"setSelections,omitempty" yaml:"setSelections,omitempty"`
	Trigger       *Trigger         `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Edits         *Edits           `json:"edits,omitempty" yaml:"edits,omitempty"`
	Focus         bool             `json:"focus,omitempty" yaml:"focus,omitempty"`
	Blur          bool             `json:"blur,omitempty" yaml:"blur,omitempty"`
}

// SetSelections replaces the cursors.
type SetSelections struct {
	Source     string             `json:"source" yaml:"source"`
	Selections []editor.Selection `json:"selections" yaml:"selections"`
}

// Trigger runs an editor command.
type Trigger struct {
	Source  string `json:"source" yaml:"source"`
	Command string `json:"command" yaml:"command"`

	// Payload is passed to the command as decoded; the type command takes a
	// string or an object with a text field.
	Payload any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Edits applies raw edits.
type Edits struct {
	Source string        `json:"source" yaml:"source"`
	Edits  []editor.Edit `json:"edits" yaml:"edits"`
}

// Name returns the operation name used in logs, metrics and spans.
func (a Action) Name() string {
	switch {
	case a.SetPosition != nil:
		return "setPosition"
	case a.SetSelections != nil:
		return "setSelections"
	case a.Trigger != nil:
		return a.Trigger.Command
	case a.Edits != nil:
		return "executeEdits"
	case a.Focus:
		return "focus"
	case a.Blur:
		return "blur"
	}
	return ""
}

// Validate checks that exactly one operation is set.
func (a Action) Validate() error {
	n := 0
	for _, set := range []bool{
		a.SetPosition != nil,
		a.SetSelections != nil,
		a.Trigger != nil,
		a.Edits != nil,
		a.Focus,
		a.Blur,
	} {
		if set {
			n++
		}
	}
	switch {
	case n == 0:
		return fmt.Errorf("%w: no operation", ErrInvalidAction)
	case n > 1:
		return fmt.Errorf("%w: %d operations, want one", ErrInvalidAction, n)
	case a.Trigger != nil && a.Trigger.Command == "":
		return fmt.Errorf("%w: trigger without command", ErrInvalidAction)
	}
	return nil
}

// apply runs the action against ed.
func (a Action) apply(ed *editor.Editor) error {
	switch {
	case a.SetPosition != nil:
		return ed.SetPosition(*a.SetPosition)
	case a.SetSelections != nil:
		return ed.SetSelections(a.SetSelections.Source, a.SetSelections.Selections)
	case a.Trigger != nil:
		return ed.Trigger(a.Trigger.Source, a.Trigger.Command, a.Trigger.Payload)
	case a.Edits != nil:
		return ed.ExecuteEdits(a.Edits.Source, a.Edits.Edits)
	case a.Focus:
		return ed.Focus()
	case a.Blur:
		return ed.Blur()
	}
	return ErrInvalidAction
}
