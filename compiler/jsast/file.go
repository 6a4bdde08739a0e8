// Package jsast is the JavaScript front end of the bundler. It parses text
// with tree-sitter into a concrete syntax tree, analyzes its lexical scopes
// and rewrites it by editing byte ranges of the original text, so that
// everything not edited, comments and formatting included, is kept as
// written.
package jsast

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// Node is a node of the concrete syntax tree.
type Node = sitter.Node

// Pos is a position in the parsed text. Lines are 1-based, columns are
// 0-based byte offsets into the line.
type Pos struct {
	Line   int
	Column int
}

// IsValid reports whether p is a position in the parsed text.
func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// File is a parsed text. It must be closed after use.
type File struct {
	src   []byte
	tree  *sitter.Tree
	root  *Node
	lines []int // Offsets of line starts.
}

// Parse parses src as a script. Syntax errors are returned as an
// errorList.ErrorList of *Error, together with no file.
func Parse(ctx context.Context, src string) (*File, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	b := []byte(src)
	tree, err := parser.ParseCtx(ctx, nil, b)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}

	f := &File{src: b, tree: tree, root: tree.RootNode(), lines: []int{0}}
	for i, c := range b {
		if c == '\n' {
			f.lines = append(f.lines, i+1)
		}
	}
	if err := f.syntaxErrors(); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Close releases the syntax tree.
func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
}

// Root returns the program node.
func (f *File) Root() *Node { return f.root }

// Source returns the parsed text.
func (f *File) Source() string { return string(f.src) }

// Text returns the source text of n.
func (f *File) Text(n *Node) string { return n.Content(f.src) }

// Pos returns the start position of n.
func (f *File) Pos(n *Node) Pos {
	p := n.StartPoint()
	return Pos{Line: int(p.Row) + 1, Column: int(p.Column)}
}

// PosAt returns the position of a byte offset.
func (f *File) PosAt(offset int) Pos {
	line := sort.SearchInts(f.lines, offset+1) - 1
	return Pos{Line: line + 1, Column: offset - f.lines[line]}
}

// Indent returns the white space the line of n starts with.
func (f *File) Indent(n *Node) string {
	start := f.lines[f.PosAt(int(n.StartByte())).Line-1]
	end := start
	for end < len(f.src) && (f.src[end] == ' ' || f.src[end] == '\t') {
		end++
	}
	return string(f.src[start:end])
}

// StartsLine reports whether only white space precedes n on its line.
func (f *File) StartsLine(n *Node) bool {
	start := int(n.StartByte())
	line := f.lines[f.PosAt(start).Line-1]
	return strings.TrimLeft(string(f.src[line:start]), " \t") == ""
}

// Inspect traverses the named nodes below and including n in depth-first
// order. Children of n are skipped when f returns false.
func Inspect(n *Node, f func(*Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		Inspect(n.NamedChild(i), f)
	}
}

// NamedChildren returns the named children of n, comments excluded.
func NamedChildren(n *Node) []*Node {
	var out []*Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c != nil && c.Type() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

// Same reports whether a and b are the same node of a tree.
func Same(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return keyOf(a) == keyOf(b)
}

// key identifies a node of a tree by value.
type key struct {
	start, end uint32
	typ        string
}

func keyOf(n *Node) key { return key{start: n.StartByte(), end: n.EndByte(), typ: n.Type()} }

// IsFunction reports whether n is a function, a method or an arrow function.
func IsFunction(n *Node) bool {
	switch n.Type() {
	case "function_declaration", "generator_function_declaration",
		"function", "function_expression", "generator_function",
		"arrow_function", "method_definition":
		return true
	}
	return false
}

// StringValue returns the value of a string literal node.
func (f *File) StringValue(n *Node) (string, bool) {
	if n == nil || n.Type() != "string" {
		return "", false
	}
	text := f.Text(n)
	if len(text) < 2 {
		return "", false
	}
	s := text[1 : len(text)-1]
	var b strings.Builder
	for len(s) > 0 {
		if s[0] != '\\' || len(s) == 1 {
			b.WriteByte(s[0])
			s = s[1:]
			continue
		}
		switch c := s[1]; c {
		case '\'', '"', '`', '\\', '/':
			b.WriteByte(c)
			s = s[2:]
		case '\n':
			s = s[2:]
		case '0':
			if len(s) == 2 || s[2] < '0' || s[2] > '9' {
				b.WriteByte(0)
				s = s[2:]
				continue
			}
			fallthrough
		case 'u':
			if len(s) > 2 && s[2] == '{' {
				if end := strings.IndexByte(s, '}'); end > 0 {
					if r, err := strconv.ParseUint(s[3:end], 16, 32); err == nil {
						b.WriteRune(rune(r))
						s = s[end+1:]
						continue
					}
				}
			}
			fallthrough
		case 'a', 'b', 'f', 'n', 'r', 't', 'v', 'x', '1', '2', '3', '4', '5', '6', '7':
			r, _, tail, err := strconv.UnquoteChar(s, '"')
			if err != nil {
				b.WriteByte(c)
				s = s[2:]
				continue
			}
			b.WriteRune(r)
			s = tail
		default:
			b.WriteByte(c)
			s = s[2:]
		}
	}
	return b.String(), true
}

// NumberValue returns the value of a number literal node.
func (f *File) NumberValue(n *Node) (float64, bool) {
	if n == nil || n.Type() != "number" {
		return 0, false
	}
	text := f.Text(n)
	if i, err := strconv.ParseInt(text, 0, 64); err == nil {
		return float64(i), true
	}
	v, err := strconv.ParseFloat(text, 64)
	return v, err == nil
}

// IsIdentifierName reports whether name can be written as a property name
// without quotes.
func IsIdentifierName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == utf8.RuneError {
			return false
		}
		if r == '$' || r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}
