package jsast

import (
	"fmt"
	"strings"

	"github.com/hoistjs/hoist/internal/errorList"
)

// Error is a syntax error. Parse returns all of them as an
// errorList.ErrorList.
type Error struct {
	Pos Pos
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// maxErrors is the number of syntax errors reported before the rest is
// summarized as errorList.ErrTooManyErrors.
const maxErrors = 10

// syntaxErrors reports the nodes tree-sitter recovered from: ERROR nodes
// hold text that doesn't fit the grammar, missing nodes were made up where a
// token was expected.
func (f *File) syntaxErrors() error {
	if !f.root.HasError() {
		return nil
	}
	var errs errorList.ErrorList
	var visit func(n *Node)
	visit = func(n *Node) {
		switch {
		case n.IsMissing():
			errs = errs.AppendDistinct(&Error{Pos: f.Pos(n), Msg: "missing " + n.Type()})
			return
		case n.Type() == "ERROR":
			errs = errs.AppendDistinct(&Error{Pos: f.Pos(n), Msg: "unexpected " + snippet(f.Text(n))})
			return
		case !n.HasError():
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c != nil {
				visit(c)
			}
		}
	}
	visit(f.root)
	if len(errs) == 0 {
		// The tree has errors somewhere we can't point at.
		errs = errs.Append(&Error{Pos: Pos{Line: 1}, Msg: "syntax error"})
	}
	return errs.Trim(maxErrors)
}

// snippet quotes the beginning of an unexpected piece of text.
func snippet(text string) string {
	if text == "" {
		return "end of input"
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if len(text) > 20 {
		text = text[:20] + "..."
	}
	return fmt.Sprintf("%q", text)
}
