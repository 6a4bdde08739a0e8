// Package srctesting contains common helpers for unit testing JavaScript
// analysis and transformation, and for building bundle projects on disk.
package srctesting

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hoistjs/hoist/compiler/jsast"
)

// Fixture provides utilities for parsing JavaScript and laying out files of a
// bundle project in tests.
type Fixture struct {
	T   *testing.T
	Dir string
}

// New creates a fresh Fixture rooted in a temporary directory.
func New(t *testing.T) *Fixture {
	return &Fixture{T: t, Dir: t.TempDir()}
}

// File writes content under the fixture directory and returns the absolute
// path of the file.
func (f *Fixture) File(name, content string) string {
	f.T.Helper()
	path := filepath.Join(f.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		f.T.Fatalf("Failed to create directory for %s: %s", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		f.T.Fatalf("Failed to write %s: %s", name, err)
	}
	return path
}

// ReadFile returns the content of a file under the fixture directory.
func (f *Fixture) ReadFile(name string) string {
	f.T.Helper()
	data, err := os.ReadFile(filepath.Join(f.Dir, filepath.FromSlash(name)))
	if err != nil {
		f.T.Fatalf("Failed to read %s: %s", name, err)
	}
	return string(data)
}

// Parse source from the string and return the parsed file. The file is
// closed when the test ends.
func Parse(t *testing.T, src string) *jsast.File {
	t.Helper()
	f, err := jsast.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("Failed to parse test source: %s", err)
	}
	t.Cleanup(f.Close)
	return f
}

// ParseFuncDecl parses source with a single function declared and returns
// the declaration.
//
// Fails the test if there isn't exactly one statement, a function
// declaration, in the source.
func ParseFuncDecl(t *testing.T, src string) (*jsast.File, *jsast.Node) {
	t.Helper()
	f := Parse(t, src)
	body := jsast.NamedChildren(f.Root())
	if l := len(body); l != 1 {
		t.Fatalf("Got %d statements in the source. Want: exactly one function declaration.", l)
	}
	if typ := body[0].Type(); typ != "function_declaration" {
		t.Fatalf("Got: %s. Want: function_declaration.", typ)
	}
	return f, body[0]
}

// Format returns the source text of a node.
func Format(f *jsast.File, n *jsast.Node) string {
	return f.Text(n)
}

// GetNodeAtLineNo returns the first node of the given type that starts on
// the given line. This helps lookup nodes that aren't named but are needed by
// a specific test.
func GetNodeAtLineNo(f *jsast.File, typ string, lineNo int) *jsast.Node {
	var node *jsast.Node
	jsast.Inspect(f.Root(), func(n *jsast.Node) bool {
		if node != nil {
			return false
		}
		if n.Type() == typ && f.Pos(n).Line == lineNo {
			node = n
			return false
		}
		return true
	})
	return node
}
