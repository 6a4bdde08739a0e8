package sourcemapx

import (
	"fmt"
	"strings"
)

// Pos is a position in the text the printed code was parsed from. Lines are
// 1-based, columns 0-based. The zero Pos means no position.
type Pos struct {
	Line   int `msgpack:"l"`
	Column int `msgpack:"c"`
}

// IsValid reports whether p refers to an actual position.
func (p Pos) IsValid() bool { return p.Line > 0 }

// Identifier represents a printed identifier with the associated original
// identifier information, which can be used to produce a source map.
//
// This allows us to map an identifier rewritten by scope hoisting, such as
// an alias of a module export, back to the name it had before.
type Identifier struct {
	Name         string `msgpack:"n"`  // Identifier used in the printed code.
	OriginalName string `msgpack:"on"` // Identifier name at OriginalPos.
	OriginalPos  Pos    `msgpack:"op"` // Original identifier position.
}

// String returns printed identifier name.
func (i Identifier) String() string {
	return i.Name
}

// EncodeHint returns a string with an encoded source map hint. The hint can be
// inserted into the printed code to be later extracted by the Filter to
// produce a source map.
func (i Identifier) EncodeHint() string {
	buf := &strings.Builder{}
	h := Hint{}
	if err := h.Pack(i); err != nil {
		panic(fmt.Errorf("failed to pack identifier source map hint: %w", err))
	}
	if _, err := h.WriteTo(buf); err != nil {
		panic(fmt.Errorf("failed to write source map hint into a buffer: %w", err))
	}
	return buf.String()
}

// EncodeHint returns a string with an encoded source map hint for the code
// printed right after it.
func (p Pos) EncodeHint() string {
	buf := &strings.Builder{}
	h := Hint{}
	if err := h.Pack(p); err != nil {
		panic(fmt.Errorf("failed to pack position source map hint: %w", err))
	}
	if _, err := h.WriteTo(buf); err != nil {
		panic(fmt.Errorf("failed to write source map hint into a buffer: %w", err))
	}
	return buf.String()
}
