package srcmap

import "fmt"

// Position is a location in a text. Lines are 1-based, columns are 0-based.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// Valid reports whether p can be used as a mapping endpoint.
func (p Position) Valid() bool { return p.Line >= 1 && p.Column >= 0 }

// Mapping is a single correspondence between a generated position and an
// optional original position.
//
// Source and Name are empty when absent. A nil Original marks a generated
// range without any source correspondence, e.g. code injected by the
// bundler itself.
type Mapping struct {
	Generated Position
	Original  *Position
	Source    string
	Name      string
}

// shifted returns a copy of m with the generated position moved by the
// given offsets. The original position is copied, never shared.
func (m Mapping) shifted(lineOffset, columnOffset int) Mapping {
	out := Mapping{
		Generated: Position{
			Line:   m.Generated.Line + lineOffset,
			Column: m.Generated.Column + columnOffset,
		},
		Source: m.Source,
		Name:   m.Name,
	}
	if m.Original != nil {
		orig := *m.Original
		out.Original = &orig
	}
	return out
}

// Clause identifies which part of the mapping invariant a ValidationError
// refers to.
type Clause int

const (
	ClauseMissingMapping Clause = iota
	ClauseMissingGenerated
	ClauseMissingSource
	ClauseMalformedOriginal
	ClauseMalformedGenerated
)

func (c Clause) String() string {
	switch c {
	case ClauseMissingMapping:
		return "mapping is nil"
	case ClauseMissingGenerated:
		return "generated position is missing"
	case ClauseMissingSource:
		return "source must be set when the original position is"
	case ClauseMalformedOriginal:
		return "invalid original position"
	case ClauseMalformedGenerated:
		return "invalid generated position"
	default:
		return fmt.Sprintf("Clause(%d)", int(c))
	}
}

// ValidationError is returned when a mapping handed to New (or merged as a
// Structured map) violates the mapping invariants.
type ValidationError struct {
	Index  int // Position of the offending mapping in the input slice.
	Clause Clause
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid mapping #%d: %s", e.Index, e.Clause)
}

func validate(i int, m *Mapping) error {
	if m == nil {
		return &ValidationError{Index: i, Clause: ClauseMissingMapping}
	}
	if m.Generated == (Position{}) {
		return &ValidationError{Index: i, Clause: ClauseMissingGenerated}
	}
	if m.Original != nil {
		if m.Source == "" {
			return &ValidationError{Index: i, Clause: ClauseMissingSource}
		}
		if !m.Original.Valid() {
			return &ValidationError{Index: i, Clause: ClauseMalformedOriginal}
		}
	}
	if !m.Generated.Valid() {
		return &ValidationError{Index: i, Clause: ClauseMalformedGenerated}
	}
	return nil
}
