package srcmap

import (
	"slices"
	"sort"
)

// Input is anything AddMap and Extend can merge. It is a closed set:
//
//   - EncodedText: a serialized version-3 source map;
//   - *RawMap: a source map object whose mappings are still encoded;
//   - *Consumer: an already decoded source map handle;
//   - *Store: another store;
//   - Structured: a plain mapping list with a source table.
type Input interface {
	isInput()
}

// EncodedText is a serialized version-3 source map.
type EncodedText string

// Structured is a source map given as plain data. Both fields must be non-nil
// for the value to be recognized. The mappings are validated as in New.
type Structured struct {
	Mappings []*Mapping
	Sources  map[string]*string
}

func (EncodedText) isInput() {}
func (*RawMap) isInput()     {}
func (*Consumer) isInput()   {}
func (*Store) isInput()      {}
func (Structured) isInput()  {}

// AddMap merges the input into the store, shifting every merged generated
// position by the given offsets. Sources not yet known to the store get
// their content from the input, existing entries are never overwritten.
//
// Encoded inputs are decoded first, any decoding failure is returned as a
// *DecodeError. Inputs of no known shape fail with *MergeError.
func (s *Store) AddMap(in Input, lineOffset, columnOffset int) error {
	switch in := in.(type) {
	case EncodedText:
		c, err := Decode([]byte(in))
		if err != nil {
			return err
		}
		return s.addConsumer(c, lineOffset, columnOffset)
	case *RawMap:
		if in == nil {
			break
		}
		c, err := in.Consumer()
		if err != nil {
			return err
		}
		return s.addConsumer(c, lineOffset, columnOffset)
	case *Consumer:
		if in == nil {
			break
		}
		return s.addConsumer(in, lineOffset, columnOffset)
	case *Store:
		if in == nil {
			break
		}
		s.addStore(in, lineOffset, columnOffset)
		return nil
	case Structured:
		if in.Mappings == nil || in.Sources == nil {
			break
		}
		donor, err := New(in.Mappings, in.Sources)
		if err != nil {
			return err
		}
		s.addStore(donor, lineOffset, columnOffset)
		return nil
	}
	return &MergeError{Input: in}
}

func (s *Store) addConsumer(c *Consumer, lineOffset, columnOffset int) error {
	err := c.Each(func(m ConsumerMapping) {
		s.AddConsumerMapping(m, lineOffset, columnOffset)
		if m.Source != "" && !s.hasSource(m.Source) {
			s.setSource(m.Source, c.sourceContent(m.Source))
		}
	})
	if err != nil {
		return err
	}
	c.Close()
	return nil
}

func (s *Store) addStore(donor *Store, lineOffset, columnOffset int) {
	mappings := donor.mappings
	if lineOffset == 0 && columnOffset == 0 {
		for _, m := range mappings {
			s.push(m)
		}
	} else {
		for _, m := range mappings {
			s.AddMapping(m, lineOffset, columnOffset)
		}
	}
	for _, name := range donor.order {
		s.addSourceIfMissing(name, donor.contents[name])
	}
}

// Extend applies a later pipeline stage to the store: other describes how
// the text this store generates was transformed further.
//
// Each mapping of other with an original position is matched against this
// store's generated positions (see FindClosest). A matched entry takes the
// new generated position and keeps its original position and source; its
// name is only filled in when empty. Unmatched mappings are appended as-is.
func (s *Store) Extend(other Input) error {
	ext, ok := other.(*Store)
	if !ok || ext == nil {
		ext = NewEmpty()
		if err := ext.AddMap(other, 0, 0); err != nil {
			return err
		}
	}

	// Every lookup runs before the first write, so that the binary search
	// sees the store as it was.
	hits := make([]int, len(ext.mappings))
	for i, m := range ext.mappings {
		hits[i] = -1
		if m.Original == nil {
			continue
		}
		idx, err := s.FindClosest(m.Original.Line, m.Original.Column, KeyGenerated)
		if err != nil {
			return err
		}
		hits[i] = idx
	}

	var unmatched []Mapping
	for i, m := range ext.mappings {
		if idx := hits[i]; idx < 0 {
			unmatched = append(unmatched, m)
		} else {
			base := s.mappings[idx]
			name := base.Name
			if name == "" {
				name = m.Name
			}
			s.mappings[idx] = Mapping{
				Generated: m.Generated,
				Original:  base.Original,
				Source:    base.Source,
				Name:      name,
			}
		}

		if m.Source != "" && !s.hasSource(m.Source) {
			s.setSource(m.Source, ext.contents[m.Source])
		}
	}
	for _, m := range unmatched {
		s.AddMapping(m, 0, 0)
	}
	s.sorted = s.checkSorted()
	return nil
}

// Compose maps a later pipeline stage through the store and returns the
// result as a new store. Neither s nor stage is modified.
//
// A stage mapping whose original position has a mapping of s at or before it
// on the same generated line takes the original side of the closest such
// mapping. Its name is kept when that mapping has none. All other stage
// mappings lose their original side, so the text they start stays unmapped
// instead of inheriting an earlier position. Source contents come from s.
func (s *Store) Compose(stage *Store) (*Store, error) {
	base := s
	if !s.sorted {
		base = &Store{mappings: slices.Clone(s.mappings), contents: s.contents, order: s.order}
		sort.SliceStable(base.mappings, func(i, j int) bool {
			a, b := base.mappings[i].Generated, base.mappings[j].Generated
			return a.Line < b.Line || a.Line == b.Line && a.Column < b.Column
		})
	}

	out := NewEmpty()
	for _, m := range stage.mappings {
		composed := Mapping{Generated: m.Generated}
		if m.Original != nil {
			idx, err := base.FindClosest(m.Original.Line, m.Original.Column, KeyGenerated)
			if err != nil {
				return nil, err
			}
			if idx >= 0 {
				hit := base.mappings[idx]
				if hit.Original != nil && hit.Generated.Line == m.Original.Line && hit.Generated.Column <= m.Original.Column {
					orig := *hit.Original
					composed.Original = &orig
					composed.Source = hit.Source
					composed.Name = hit.Name
					if composed.Name == "" {
						composed.Name = m.Name
					}
				}
			}
		}
		out.push(composed)
	}
	for _, name := range s.order {
		out.addSourceIfMissing(name, s.contents[name])
	}
	return out, nil
}

func sortedKeys(m map[string]*string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
