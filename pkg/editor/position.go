package editor

import "fmt"

// Position is a 1-based line and column in the model.
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// String returns "(line,column)".
func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Line, p.Column)
}

// Before reports whether p comes strictly before q.
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

// Range is the span between two positions, Start not after End.
type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// NewRange orders a and b into a Range.
func NewRange(a, b Position) Range {
	if b.Before(a) {
		a, b = b, a
	}
	return Range{Start: a, End: b}
}

// Empty reports whether the range covers no text.
func (r Range) Empty() bool {
	return r.Start == r.End
}

// String returns "[start -> end]".
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d -> %d,%d]", r.Start.Line, r.Start.Column, r.End.Line, r.End.Column)
}

// Selection is a cursor: the anchor where the selection started and the
// active position where the caret is.
type Selection struct {
	Anchor Position `json:"anchor" yaml:"anchor"`
	Active Position `json:"active" yaml:"active"`
}

// SelectionAt returns a collapsed selection at p.
func SelectionAt(p Position) Selection {
	return Selection{Anchor: p, Active: p}
}

// Collapsed reports whether the selection is a plain caret.
func (s Selection) Collapsed() bool {
	return s.Anchor == s.Active
}

// Range returns the ordered span covered by the selection.
func (s Selection) Range() Range {
	return NewRange(s.Anchor, s.Active)
}

// String returns "[anchorLine,anchorColumn -> activeLine,activeColumn]".
func (s Selection) String() string {
	return fmt.Sprintf("[%d,%d -> %d,%d]", s.Anchor.Line, s.Anchor.Column, s.Active.Line, s.Active.Column)
}
