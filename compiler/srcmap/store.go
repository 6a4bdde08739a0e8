// Package srcmap holds the positional mapping data produced by every stage of
// the bundling pipeline, merges stores from different stages and answers
// position queries against them.
//
// A Store is an ordered sequence of mappings plus a table of source contents.
// Queries keyed by generated position use binary search and require the
// sequence to be ascending by generated line. The store doesn't re-sort
// anything: appends that keep the order are the caller's responsibility,
// Sorted reports whether that still holds.
//
// A Store is not safe for concurrent use.
package srcmap

import "strings"

// Key selects which side of a mapping a position query is matched against.
type Key int

const (
	KeyGenerated Key = iota
	KeyOriginal
)

func (k Key) String() string {
	if k == KeyOriginal {
		return "original"
	}
	return "generated"
}

// Store is a mutable collection of mappings and source contents.
type Store struct {
	mappings []Mapping
	sorted   bool

	contents map[string]*string
	order    []string // Source names in insertion order.
}

// New creates a store from the given mappings and source contents.
//
// Every mapping is validated, the first violation is returned as a
// *ValidationError. A nil content means the source content is unknown.
func New(mappings []*Mapping, sources map[string]*string) (*Store, error) {
	s := NewEmpty()
	for i, m := range mappings {
		if err := validate(i, m); err != nil {
			return nil, err
		}
	}
	for _, m := range mappings {
		s.push(*m)
	}
	for _, name := range sortedKeys(sources) {
		s.setSource(name, sources[name])
	}
	return s, nil
}

// NewEmpty returns a store with no mappings and no sources.
func NewEmpty() *Store {
	return &Store{
		sorted:   true,
		contents: map[string]*string{},
	}
}

// Len returns the number of mappings in the store.
func (s *Store) Len() int { return len(s.mappings) }

// Mappings returns the mapping sequence. The returned slice is owned by the
// store and must not be modified.
func (s *Store) Mappings() []Mapping { return s.mappings }

// Sources returns the names of all sources with an entry in the content
// table, in the order they were first recorded.
func (s *Store) Sources() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Sorted reports whether the mappings are ascending by generated line, which
// is required for queries keyed by generated position.
func (s *Store) Sorted() bool { return s.sorted }

func (s *Store) push(m Mapping) {
	if n := len(s.mappings); n > 0 && m.Generated.Line < s.mappings[n-1].Generated.Line {
		s.sorted = false
	}
	s.mappings = append(s.mappings, m)
}

func (s *Store) checkSorted() bool {
	for i := 1; i < len(s.mappings); i++ {
		if s.mappings[i].Generated.Line < s.mappings[i-1].Generated.Line {
			return false
		}
	}
	return true
}

func (s *Store) hasSource(name string) bool {
	_, ok := s.contents[name]
	return ok
}

func (s *Store) setSource(name string, content *string) {
	if !s.hasSource(name) {
		s.order = append(s.order, name)
	}
	s.contents[name] = content
}

// addSourceIfMissing records content for name unless the store already has an
// entry for it. The first writer wins.
func (s *Store) addSourceIfMissing(name string, content *string) {
	if name == "" || s.hasSource(name) {
		return
	}
	s.setSource(name, content)
}

// AddMapping appends m with its generated position shifted by the offsets.
func (s *Store) AddMapping(m Mapping, lineOffset, columnOffset int) {
	s.push(m.shifted(lineOffset, columnOffset))
}

// ConsumerMapping is a single decoded record as produced by a Consumer.
type ConsumerMapping struct {
	Source          string
	GeneratedLine   int
	GeneratedColumn int
	OriginalLine    int
	OriginalColumn  int
	Name            string
}

// AddConsumerMapping appends a decoded record. Records without a well-formed
// original position become mappings with no original side and no source.
func (s *Store) AddConsumerMapping(raw ConsumerMapping, lineOffset, columnOffset int) {
	m := Mapping{
		Generated: Position{
			Line:   raw.GeneratedLine + lineOffset,
			Column: raw.GeneratedColumn + columnOffset,
		},
		Name: raw.Name,
	}
	if raw.OriginalLine > 0 && raw.OriginalColumn >= 0 {
		m.Original = &Position{Line: raw.OriginalLine, Column: raw.OriginalColumn}
		m.Source = raw.Source
	}
	s.push(m)
}

// GenerateEmptyMap records content for sourceName and adds one identity
// mapping at column 0 for each of its lines. A line break ending the content
// doesn't start another line.
func (s *Store) GenerateEmptyMap(sourceName, sourceContent string) *Store {
	content := sourceContent
	s.setSource(sourceName, &content)

	lines := strings.Count(strings.TrimSuffix(sourceContent, "\n"), "\n") + 1
	for line := 1; line <= lines; line++ {
		s.AddMapping(Mapping{
			Source:    sourceName,
			Original:  &Position{Line: line},
			Generated: Position{Line: line},
		}, 0, 0)
	}
	return s
}

// Offset shifts every generated position in place.
func (s *Store) Offset(lineOffset, columnOffset int) {
	for i := range s.mappings {
		s.mappings[i].Generated.Line += lineOffset
		s.mappings[i].Generated.Column += columnOffset
	}
}

// SourceContentFor returns the recorded content of the named source. The
// second result is false if there's no entry or the content is unknown.
func (s *Store) SourceContentFor(name string) (string, bool) {
	content := s.contents[name]
	if content == nil {
		return "", false
	}
	return *content, true
}

func (s *Store) keyPos(i int, key Key) *Position {
	if key == KeyGenerated {
		return &s.mappings[i].Generated
	}
	return s.mappings[i].Original
}

// FindClosest returns the index of the mapping closest to the given position
// on the side selected by key, or -1 if there is none.
//
// Once a mapping on the queried line is found, the result is the last mapping
// of that line whose column doesn't exceed the queried one. If the line has
// no mapping at or before the column, the first mapping of the line is
// returned.
//
// KeyGenerated uses binary search and requires the store to be ascending by
// generated line. When no mapping has the queried generated line, the index
// the search stopped at is returned. KeyOriginal scans linearly and returns
// -1 if no mapping has the queried original line.
func (s *Store) FindClosest(line, column int, key Key) (int, error) {
	if line < 1 || column < 0 {
		return -1, &ValueError{Line: line, Column: column}
	}
	n := len(s.mappings)
	if n == 0 {
		return -1, nil
	}

	idx := -1
	if key == KeyGenerated {
		start, stop := 0, n-1
		idx = (start + stop) >> 1
		for start < stop && s.mappings[idx].Generated.Line != line {
			if line < s.mappings[idx].Generated.Line {
				stop = idx - 1
			} else {
				start = idx + 1
			}
			idx = (start + stop) >> 1
		}
		if idx < 0 {
			idx = 0
		}
	} else {
		for i := range s.mappings {
			if orig := s.mappings[i].Original; orig != nil && orig.Line == line {
				idx = i
				break
			}
		}
		if idx < 0 {
			return -1, nil
		}
	}

	if p := s.keyPos(idx, key); p == nil || p.Line != line {
		return idx, nil
	}
	for idx > 0 {
		prev := s.keyPos(idx-1, key)
		if prev == nil || prev.Line != line {
			break
		}
		idx--
	}
	for idx < n-1 {
		next := s.keyPos(idx+1, key)
		if next == nil || next.Line != line || next.Column > column {
			break
		}
		idx++
	}
	return idx, nil
}

// Lookup is the result of a position query. Position is nil when the located
// mapping has no original side.
type Lookup struct {
	Source   string
	Name     string
	Position *Position
}

// OriginalPositionFor returns the original position the closest mapping to
// the generated position points at, or nil if the store is empty.
func (s *Store) OriginalPositionFor(generated Position) (*Lookup, error) {
	idx, err := s.FindClosest(generated.Line, generated.Column, KeyGenerated)
	if err != nil || idx < 0 {
		return nil, err
	}
	m := s.mappings[idx]
	l := &Lookup{Source: m.Source, Name: m.Name}
	if m.Original != nil {
		orig := *m.Original
		l.Position = &orig
	}
	return l, nil
}

// GeneratedPositionFor returns the generated position of the closest mapping
// to the original position, or nil if no mapping has that original line.
func (s *Store) GeneratedPositionFor(original Position) (*Lookup, error) {
	idx, err := s.FindClosest(original.Line, original.Column, KeyOriginal)
	if err != nil || idx < 0 {
		return nil, err
	}
	m := s.mappings[idx]
	gen := m.Generated
	return &Lookup{Source: m.Source, Name: m.Name, Position: &gen}, nil
}
