package jsast

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hoistjs/hoist/internal/sourcemapx"
)

type mapping struct {
	Line, Column int
	Orig         sourcemapx.Pos
	Name         string
}

func TestEditorString(t *testing.T) {
	src := "function m() {\n  use($2$exports); /* kept */\n}\n"
	f := mustParse(t, src)
	stmt := nodeAt(t, f, 2, ofType("expression_statement"))
	ref := nodeAt(t, f, 2, func(n *Node) bool { return n.Type() == "identifier" && f.Text(n) == "$2$exports" })

	e := NewEditor(f)
	e.Replace(ref, "ns")
	e.InsertBefore(stmt, "var ns = {};\n  ")
	e.InsertBefore(stmt, "var other;\n  ")
	e.InsertAfter(stmt, " // after")

	want := "function m() {\n  var ns = {};\n  var other;\n  use(ns); // after /* kept */\n}\n"
	if diff := cmp.Diff(want, e.String()); diff != "" {
		t.Errorf("String() returned diff (-want,+got):\n%s", diff)
	}
	if e.Len() != 4 {
		t.Errorf("Got: %d edits. Want: 4.", e.Len())
	}
	if got := f.Source(); got != src {
		t.Errorf("Got: file changed to %q. Want: untouched.", got)
	}
}

func TestEditorReplaceAtInsertion(t *testing.T) {
	f := mustParse(t, "x;\n")
	x := nodeAt(t, f, 1, ofType("identifier"))
	e := NewEditor(f)
	e.Replace(x, "y")
	e.InsertBefore(x, "/* before */ ")
	if got, want := e.String(), "/* before */ y;\n"; got != want {
		t.Errorf("Got: %q. Want: %q.", got, want)
	}
}

func TestEditorOverlap(t *testing.T) {
	f := mustParse(t, "a.b;\n")
	e := NewEditor(f)
	e.Replace(nodeAt(t, f, 1, ofType("member_expression")), "c")
	e.Replace(nodeAt(t, f, 1, ofType("identifier")), "d")
	defer func() {
		if err := recover(); err == nil || !strings.Contains(err.(error).Error(), "overlaps") {
			t.Errorf("Got: panic %v. Want: overlapping edits reported.", err)
		}
	}()
	_ = e.String()
}

func TestEditorHints(t *testing.T) {
	f := mustParse(t, "(function () {\n  use($1$export$x);\n})();\n")
	ref := nodeAt(t, f, 2, func(n *Node) bool { return n.Type() == "identifier" && f.Text(n) == "$1$export$x" })
	stmt := nodeAt(t, f, 2, ofType("expression_statement"))

	e := NewEditor(f)
	e.InsertBefore(stmt, "var $1$exports = {\n    x: x\n  };\n  ")
	e.Replace(ref, "x")

	code := &bytes.Buffer{}
	var got []mapping
	filter := &sourcemapx.Filter{
		Writer: code,
		MappingCallback: func(line, column int, orig sourcemapx.Pos, name string) {
			got = append(got, mapping{Line: line, Column: column, Orig: orig, Name: name})
		},
	}
	if err := e.Fprint(filter, true); err != nil {
		t.Fatalf("Got: Fprint() returned error: %s. Want: no error.", err)
	}

	wantCode := "(function () {\n  var $1$exports = {\n    x: x\n  };\n  use(x);\n})();\n"
	if diff := cmp.Diff(wantCode, code.String()); diff != "" {
		t.Errorf("Printed code diff (-want,+got):\n%s", diff)
	}
	want := []mapping{
		{Line: 1, Column: 0, Orig: sourcemapx.Pos{Line: 1, Column: 0}},
		{Line: 2, Column: 0, Orig: sourcemapx.Pos{Line: 2, Column: 0}},
		{Line: 2, Column: 2},
		{Line: 3, Column: 0},
		{Line: 4, Column: 0},
		{Line: 5, Column: 0},
		{Line: 5, Column: 2, Orig: sourcemapx.Pos{Line: 2, Column: 2}},
		{Line: 5, Column: 6, Orig: sourcemapx.Pos{Line: 2, Column: 6}, Name: "$1$export$x"},
		{Line: 5, Column: 7, Orig: sourcemapx.Pos{Line: 2, Column: 17}},
		{Line: 6, Column: 0, Orig: sourcemapx.Pos{Line: 3, Column: 0}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Mappings diff (-want,+got):\n%s", diff)
	}
}

func TestEditorRejectsMagicByte(t *testing.T) {
	f := mustParse(t, "var s = \"\b\";\n")
	e := NewEditor(f)
	if err := e.Fprint(&bytes.Buffer{}, true); err == nil {
		t.Errorf("Got: hints embedded into text with a raw magic byte. Want: error.")
	}
	if got := e.String(); got != "var s = \"\b\";\n" {
		t.Errorf("Got: %q. Want: the text without hints.", got)
	}
}
