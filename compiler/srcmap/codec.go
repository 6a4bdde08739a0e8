package srcmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/neelance/sourcemap"
)

// ErrConsumerClosed is returned when a Consumer is used after disposal.
var ErrConsumerClosed = errors.New("source map consumer is closed")

// RawMap is the version-3 source map wire object. Mappings stay in their
// base64 VLQ encoded form.
type RawMap struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	SourceRoot     string    `json:"sourceRoot,omitempty"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings"`
}

// Consumer is a decoded source map handle. It yields every record once via
// Each and must be disposed with Close afterwards.
type Consumer struct {
	mappings []*sourcemap.Mapping
	contents map[string]*string
	closed   bool
}

// Decode parses a serialized source map and decodes its mappings.
func Decode(data []byte) (*Consumer, error) {
	var raw RawMap
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return raw.Consumer()
}

// Consumer decodes the mappings of r. The source root is ignored, sources
// are used exactly as listed.
func (r *RawMap) Consumer() (c *Consumer, err error) {
	if r.Version != 3 {
		return nil, &DecodeError{Err: fmt.Errorf("unsupported version %d", r.Version)}
	}
	defer func() {
		// The codec indexes sources and names without bounds checks.
		if p := recover(); p != nil {
			c, err = nil, &DecodeError{Err: fmt.Errorf("malformed mappings: %v", p)}
		}
	}()

	// The codec loses a segment that ends the input, a trailing separator
	// keeps the last one.
	m := &sourcemap.Map{
		Version:  r.Version,
		File:     r.File,
		Sources:  r.Sources,
		Names:    r.Names,
		Mappings: r.Mappings + ",",
	}
	c = &Consumer{
		mappings: m.DecodedMappings(),
		contents: map[string]*string{},
	}
	for i, src := range r.Sources {
		if i < len(r.SourcesContent) {
			c.contents[src] = r.SourcesContent[i]
		}
	}
	return c, nil
}

// Each calls fn for every decoded record in encoding order.
func (c *Consumer) Each(fn func(ConsumerMapping)) error {
	if c.closed {
		return ErrConsumerClosed
	}
	for _, m := range c.mappings {
		fn(ConsumerMapping{
			Source:          m.OriginalFile,
			GeneratedLine:   m.GeneratedLine,
			GeneratedColumn: m.GeneratedColumn,
			OriginalLine:    m.OriginalLine,
			OriginalColumn:  m.OriginalColumn,
			Name:            m.OriginalName,
		})
	}
	return nil
}

// SourceContentFor returns the embedded content of the named source.
func (c *Consumer) SourceContentFor(source string) (string, bool) {
	content := c.sourceContent(source)
	if content == nil {
		return "", false
	}
	return *content, true
}

func (c *Consumer) sourceContent(source string) *string {
	if c.closed {
		return nil
	}
	return c.contents[source]
}

// Close releases the decoded data. Further calls are no-ops.
func (c *Consumer) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.mappings = nil
	c.contents = nil
}

// Stringify serializes the store into a version-3 source map.
//
// Mappings are encoded ascending by generated position. Mappings sharing a
// generated position keep their store order. Sources are listed in the order
// mappings reference them, sourcesContent is emitted when at least one of
// them has known content.
func (s *Store) Stringify(file, sourceRoot string) (string, error) {
	// The codec sorts with sort.Sort, which leaves sorted input in place.
	mappings := slices.Clone(s.mappings)
	sort.SliceStable(mappings, func(i, j int) bool {
		a, b := mappings[i].Generated, mappings[j].Generated
		return a.Line < b.Line || (a.Line == b.Line && a.Column < b.Column)
	})

	m := &sourcemap.Map{Version: 3, File: file, SourceRoot: sourceRoot}
	for _, mapping := range mappings {
		sm := &sourcemap.Mapping{
			GeneratedLine:   mapping.Generated.Line,
			GeneratedColumn: mapping.Generated.Column,
		}
		if mapping.Original != nil {
			sm.OriginalFile = mapping.Source
			sm.OriginalLine = mapping.Original.Line
			sm.OriginalColumn = mapping.Original.Column
			sm.OriginalName = mapping.Name
		}
		m.AddMapping(sm)
	}
	m.EncodeMappings()

	out := RawMap{
		Version:    3,
		File:       file,
		SourceRoot: sourceRoot,
		Sources:    m.Sources,
		Names:      m.Names,
		Mappings:   m.Mappings,
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	if out.Names == nil {
		out.Names = []string{}
	}
	contents := make([]*string, len(out.Sources))
	known := false
	for i, src := range out.Sources {
		contents[i] = s.contents[src]
		known = known || contents[i] != nil
	}
	if known {
		out.SourcesContent = contents
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to serialize source map: %w", err)
	}
	return string(b), nil
}
