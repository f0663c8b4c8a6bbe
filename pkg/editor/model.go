package editor

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Edit replaces the text in Range with Text.
type Edit struct {
	Range Range  `json:"range" yaml:"range"`
	Text  string `json:"text" yaml:"text"`
}

// Insert returns an edit inserting text at p.
func Insert(p Position, text string) Edit {
	return Edit{Range: Range{Start: p, End: p}, Text: text}
}

// ContentChange describes one replaced range, in pre-edit coordinates.
type ContentChange struct {
	Range Range  `json:"range"`
	Text  string `json:"text"`
}

// ModelContentChangedEvent is raised once per applied batch of edits.
type ModelContentChangedEvent struct {
	// VersionID is the model version right after the batch was applied.
	VersionID int             `json:"versionId"`
	Changes   []ContentChange `json:"changes"`
}

// String returns "content[vN]" for the version the event produced.
func (e ModelContentChangedEvent) String() string {
	return fmt.Sprintf("content[v%d]", e.VersionID)
}

// Model is a line-based text buffer with a version id that increases by one
// for every applied batch of edits. The first version is 1.
type Model struct {
	lines     [][]rune
	versionID int
}

// NewModel creates a model holding text. Lines are split on "\n".
func NewModel(text string) *Model {
	return &Model{
		lines:     splitLines(text),
		versionID: 1,
	}
}

func splitLines(text string) [][]rune {
	parts := strings.Split(text, "\n")
	lines := make([][]rune, len(parts))
	for i, p := range parts {
		lines[i] = []rune(p)
	}
	return lines
}

// VersionID returns the current version.
func (m *Model) VersionID() int { return m.versionID }

// LineCount returns the number of lines. An empty model has one line.
func (m *Model) LineCount() int { return len(m.lines) }

// LineContent returns line n (1-based), or "" when out of range.
func (m *Model) LineContent(n int) string {
	if n < 1 || n > len(m.lines) {
		return ""
	}
	return string(m.lines[n-1])
}

// LineMaxColumn returns the column after the last character of line n.
func (m *Model) LineMaxColumn(n int) int {
	if n < 1 || n > len(m.lines) {
		return 1
	}
	return len(m.lines[n-1]) + 1
}

// Value returns the full text.
func (m *Model) Value() string {
	var b strings.Builder
	for i, l := range m.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(l))
	}
	return b.String()
}

// IsValid reports whether p lies inside the model.
func (m *Model) IsValid(p Position) bool {
	return p.Line >= 1 && p.Line <= len(m.lines) && p.Column >= 1 && p.Column <= m.LineMaxColumn(p.Line)
}

// Validate clamps p into the model.
func (m *Model) Validate(p Position) Position {
	if p.Line < 1 {
		return Position{Line: 1, Column: 1}
	}
	if p.Line > len(m.lines) {
		last := len(m.lines)
		return Position{Line: last, Column: m.LineMaxColumn(last)}
	}
	if p.Column < 1 {
		p.Column = 1
	}
	if max := m.LineMaxColumn(p.Line); p.Column > max {
		p.Column = max
	}
	return p
}

// ApplyEdits applies a batch of non-overlapping edits as one version.
func (m *Model) ApplyEdits(edits []Edit) (ModelContentChangedEvent, error) {
	ev, _, err := m.applyEdits(edits)
	return ev, err
}

// applyEdits applies edits and also returns a mapper from pre-edit to
// post-edit positions.
func (m *Model) applyEdits(edits []Edit) (ModelContentChangedEvent, *positionMapper, error) {
	if len(edits) == 0 {
		return ModelContentChangedEvent{}, nil, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	for i := range sorted {
		r := NewRange(sorted[i].Range.Start, sorted[i].Range.End)
		if !m.IsValid(r.Start) || !m.IsValid(r.End) {
			return ModelContentChangedEvent{}, nil, fmt.Errorf("%w: %s", ErrInvalidPosition, r)
		}
		sorted[i].Range = r
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Range.Start.Before(sorted[j].Range.Start)
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Range.Start.Before(sorted[i-1].Range.End) {
			return ModelContentChangedEvent{}, nil, fmt.Errorf("%w: %s and %s", ErrOverlappingEdits, sorted[i-1].Range, sorted[i].Range)
		}
	}

	mapper := newPositionMapper(sorted)

	for i := len(sorted) - 1; i >= 0; i-- {
		m.replace(sorted[i].Range, sorted[i].Text)
	}
	m.versionID++

	changes := make([]ContentChange, len(sorted))
	for i, e := range sorted {
		changes[i] = ContentChange{Range: e.Range, Text: e.Text}
	}
	return ModelContentChangedEvent{VersionID: m.versionID, Changes: changes}, mapper, nil
}

func (m *Model) replace(r Range, text string) {
	startLine := m.lines[r.Start.Line-1]
	endLine := m.lines[r.End.Line-1]

	head := append([]rune(nil), startLine[:r.Start.Column-1]...)
	tail := append([]rune(nil), endLine[r.End.Column-1:]...)

	inserted := splitLines(text)
	inserted[0] = append(head, inserted[0]...)
	last := len(inserted) - 1
	inserted[last] = append(inserted[last], tail...)

	lines := make([][]rune, 0, len(m.lines)-(r.End.Line-r.Start.Line)+last)
	lines = append(lines, m.lines[:r.Start.Line-1]...)
	lines = append(lines, inserted...)
	lines = append(lines, m.lines[r.End.Line:]...)
	m.lines = lines
}

// positionMapper maps pre-edit positions through a sorted edit batch.
type positionMapper struct {
	edits []Edit
	ends  []Position
}

func newPositionMapper(sorted []Edit) *positionMapper {
	pm := &positionMapper{edits: sorted, ends: make([]Position, len(sorted))}
	var s shift
	for i, e := range sorted {
		start := s.apply(e.Range.Start)
		pm.ends[i] = textEnd(start, e.Text)
		s.advance(e, pm.ends[i])
	}
	return pm
}

// Map returns where p ends up. Positions inside a replaced range move to the
// end of the inserted text.
func (pm *positionMapper) Map(p Position) Position {
	var s shift
	for i, e := range pm.edits {
		if p.Before(e.Range.Start) {
			break
		}
		if !e.Range.End.Before(p) {
			return pm.ends[i]
		}
		s.advance(e, pm.ends[i])
	}
	return s.apply(p)
}

// shift accumulates the displacement caused by the edits seen so far.
type shift struct {
	lines    int
	lastLine int
	columns  int
}

func (s *shift) apply(p Position) Position {
	out := Position{Line: p.Line + s.lines, Column: p.Column}
	if p.Line == s.lastLine {
		out.Column += s.columns
	}
	return out
}

func (s *shift) advance(e Edit, newEnd Position) {
	inserted := strings.Count(e.Text, "\n")
	s.lines += inserted - (e.Range.End.Line - e.Range.Start.Line)
	s.lastLine = e.Range.End.Line
	s.columns = newEnd.Column - e.Range.End.Column
}

func textEnd(start Position, text string) Position {
	idx := strings.LastIndexByte(text, '\n')
	if idx < 0 {
		return Position{Line: start.Line, Column: start.Column + utf8.RuneCountInString(text)}
	}
	return Position{
		Line:   start.Line + strings.Count(text, "\n"),
		Column: 1 + utf8.RuneCountInString(text[idx+1:]),
	}
}
