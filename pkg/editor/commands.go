package editor

import "fmt"

// Well-known sources.
const (
	SourceAPI      = "api"
	SourceKeyboard = "keyboard"
)

// Commands understood by Trigger.
const (
	CommandType        = "type"
	CommandDeleteLeft  = "deleteLeft"
	CommandCursorLeft  = "cursorLeft"
	CommandCursorRight = "cursorRight"
	CommandCursorHome  = "cursorHome"
	CommandCursorEnd   = "cursorEnd"
)

// TypePayload is the payload of the type command.
type TypePayload struct {
	Text string `json:"text" yaml:"text"`
}

// Trigger runs command as if it came from source.
//
// The type command accepts a TypePayload, a *TypePayload, a string or a map
// with a "text" key. The other commands take no payload.
func (e *Editor) Trigger(source, command string, payload any) error {
	e.logger.Debug("editor: trigger", "source", source, "command", command)

	switch command {
	case CommandType:
		p, err := typePayload(payload)
		if err != nil {
			return err
		}
		return e.update(func() error { return e.typeText(source, p.Text) })
	case CommandDeleteLeft:
		return e.update(func() error { return e.deleteLeft(source) })
	case CommandCursorLeft, CommandCursorRight, CommandCursorHome, CommandCursorEnd:
		return e.update(func() error {
			e.moveCursors(source, command)
			return nil
		})
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
}

func typePayload(payload any) (TypePayload, error) {
	switch p := payload.(type) {
	case TypePayload:
		return p, nil
	case *TypePayload:
		if p == nil {
			return TypePayload{}, fmt.Errorf("%w: nil type payload", ErrBadPayload)
		}
		return *p, nil
	case string:
		return TypePayload{Text: p}, nil
	case map[string]any:
		text, ok := p["text"].(string)
		if !ok {
			return TypePayload{}, fmt.Errorf("%w: type payload needs a text string", ErrBadPayload)
		}
		return TypePayload{Text: text}, nil
	default:
		return TypePayload{}, fmt.Errorf("%w: unsupported type payload %T", ErrBadPayload, payload)
	}
}

// typeText inserts text one character at a time at every cursor, then
// commits the cursors with source and raises the did-type event.
func (e *Editor) typeText(source, text string) error {
	if text == "" {
		return nil
	}
	for _, r := range text {
		ch := string(r)
		edits := make([]Edit, len(e.selections))
		for i, s := range e.selections {
			edits[i] = Edit{Range: s.Range(), Text: ch}
		}
		if err := e.applyCursorEdits(edits); err != nil {
			return err
		}
	}
	e.setSelections(source, CursorReasonExplicit, e.Selections())
	e.enqueue(&typeEvent{text: text})
	return nil
}

// deleteLeft removes the selection, or the character before each caret.
func (e *Editor) deleteLeft(source string) error {
	var edits []Edit
	for _, s := range e.selections {
		if !s.Collapsed() {
			edits = append(edits, Edit{Range: s.Range()})
			continue
		}
		p := s.Active
		switch {
		case p.Column > 1:
			edits = append(edits, Edit{Range: Range{Start: Position{Line: p.Line, Column: p.Column - 1}, End: p}})
		case p.Line > 1:
			prev := Position{Line: p.Line - 1, Column: e.model.LineMaxColumn(p.Line - 1)}
			edits = append(edits, Edit{Range: Range{Start: prev, End: p}})
		}
	}
	if len(edits) == 0 {
		return nil
	}
	if err := e.applyCursorEdits(edits); err != nil {
		return err
	}
	e.setSelections(source, CursorReasonExplicit, e.Selections())
	return nil
}

func (e *Editor) moveCursors(source, command string) {
	moved := make([]Selection, len(e.selections))
	for i, s := range e.selections {
		moved[i] = SelectionAt(e.move(s, command))
	}
	if selectionsEqual(moved, e.selections) {
		return
	}
	e.setSelections(source, CursorReasonExplicit, moved)
}

func (e *Editor) move(s Selection, command string) Position {
	p := s.Active
	switch command {
	case CommandCursorLeft:
		if !s.Collapsed() {
			return s.Range().Start
		}
		if p.Column > 1 {
			return Position{Line: p.Line, Column: p.Column - 1}
		}
		if p.Line > 1 {
			return Position{Line: p.Line - 1, Column: e.model.LineMaxColumn(p.Line - 1)}
		}
	case CommandCursorRight:
		if !s.Collapsed() {
			return s.Range().End
		}
		if p.Column < e.model.LineMaxColumn(p.Line) {
			return Position{Line: p.Line, Column: p.Column + 1}
		}
		if p.Line < e.model.LineCount() {
			return Position{Line: p.Line + 1, Column: 1}
		}
	case CommandCursorHome:
		return Position{Line: p.Line, Column: 1}
	case CommandCursorEnd:
		return Position{Line: p.Line, Column: e.model.LineMaxColumn(p.Line)}
	}
	return p
}
