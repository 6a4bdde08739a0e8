package concat

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hoistjs/hoist/compiler/jsast"
	"github.com/hoistjs/hoist/compiler/modgraph"
	"github.com/hoistjs/hoist/internal/srctesting"
)

func testGraph(t *testing.T, modules ...*modgraph.Module) *modgraph.Graph {
	t.Helper()
	g, err := modgraph.New(modules...)
	if err != nil {
		t.Fatalf("Failed to build module graph: %s", err)
	}
	return g
}

func TestConcat(t *testing.T) {
	tests := []struct {
		name    string
		modules []*modgraph.Module
		renames map[string]string
		src     string
		want    string
	}{
		{
			name:    "named export through nested wildcards",
			modules: []*modgraph.Module{
				{ID: 1, Deps: map[string]int{"./b": 2}, Wildcards: []string{"./b"}},
				{ID: 2, Deps: map[string]int{"./c": 3}, Wildcards: []string{"./c"}},
				{ID: 3, Exports: []string{"x"}},
			},
			src: `var $3$export$x = 1;
function m() {
  use($1$export$x);
}
`,
			want: `var $3$export$x = 1;
function m() {
  use($3$export$x);
}
`,
		},
		{
			name:    "renamed binding",
			modules: []*modgraph.Module{{ID: 2, Exports: []string{"x"}}},
			renames: map[string]string{"$2$export$x": "x"},
			src: `function m() {
  use($2$export$x);
}
`,
			want: `function m() {
  use(x);
}
`,
		},
		{
			name:    "namespace fallback",
			modules: []*modgraph.Module{{ID: 5}},
			src: `var $5$exports = {};
function m() {
  use($5$export$x);
}
`,
			want: `var $5$exports = {};
function m() {
  use($5$exports.x);
}
`,
		},
		{
			name:    "unresolved named export",
			modules: []*modgraph.Module{{ID: 5}},
			src: `function m() {
  use($5$export$nope);
}
`,
			want: `function m() {
  use($5$export$nope);
}
`,
		},
		{
			name:    "wildcard cycle",
			modules: []*modgraph.Module{
				{ID: 1, Deps: map[string]int{"./b": 2}, Wildcards: []string{"./b"}},
				{ID: 2, Deps: map[string]int{"./a": 1}, Wildcards: []string{"./a"}},
			},
			src: `function m() {
  use($1$export$x);
}
`,
			want: `function m() {
  use($1$export$x);
}
`,
		},
		{
			name:    "require call",
			modules: []*modgraph.Module{
				{ID: 1, Deps: map[string]int{"./b": 2}},
				{ID: 2},
			},
			src: `function m() {
  var b = $bundle$require(1, "./b");
}
`,
			want: `function m() {
  var $2$exports = {};
  var b = $2$exports;
}
`,
		},
		{
			name:    "namespace with constant and mutable exports",
			modules: []*modgraph.Module{{ID: 2, Exports: []string{"x", "y", "z"}}},
			src: `function m() {
  var $2$export$x = 1;
  var $2$export$y = 2;
  $2$export$y = 3;
  var a = $2$exports;
  var b = $2$exports;
}
`,
			want: `// bailout: mutates $2$export$y
function m() {
  var $2$export$x = 1;
  var $2$export$y = 2;
  $2$export$y = 3;
  var $2$exports = {
    x: $2$export$x,
    get y() {
      return $2$export$y;
    }
  };
  var a = $2$exports;
  var b = $2$exports;
}
`,
		},
		{
			name:    "namespace with renamed export",
			modules: []*modgraph.Module{{ID: 2, Exports: []string{"a-b"}}},
			renames: map[string]string{"$2$export$a-b": "ab"},
			src: `function m() {
  var ab = 1;
  use($2$exports);
}
`,
			want: `function m() {
  var ab = 1;
  var $2$exports = {
    "a-b": ab
  };
  use($2$exports);
}
`,
		},
		{
			name:    "namespace member read",
			modules: []*modgraph.Module{{ID: 2, Exports: []string{"x"}}},
			src: `var $2$export$x = 1;
function m() {
  use($2$exports.x, $2$exports.z);
}
`,
			want: `var $2$export$x = 1;
function m() {
  var $2$exports = {
    x: $2$export$x
  };
  use($2$export$x, $2$exports.z);
}
`,
		},
		{
			name:    "namespace member write",
			modules: []*modgraph.Module{{ID: 2, Exports: []string{"x"}}},
			src: `var $2$export$x = 1;
function m() {
  $2$exports.x = 2;
}
`,
			want: `var $2$export$x = 1;
function m() {
  var $2$exports = {
    x: $2$export$x
  };
  $2$exports.x = 2;
}
`,
		},
		{
			name:    "outer statement outside of a list",
			modules: []*modgraph.Module{{ID: 2}},
			src: `function m(c) {
  if (c)
    use($2$exports);
}
`,
			want: `function m(c) {
  if (c)
    { var $2$exports = {}; use($2$exports); }
}
`,
		},
		{
			name:    "nested reference",
			modules: []*modgraph.Module{{ID: 2}},
			src: `function m() {
  function inner() {
    use($2$exports);
  }
}
`,
			want: `function m() {
  var $2$exports = {};
  function inner() {
    use($2$exports);
  }
}
`,
		},
		{
			name:    "labels and comments kept",
			modules: []*modgraph.Module{{ID: 2}},
			src: `/*! license: MIT */
function m() {
  // scan
  outer: for (;;) {
    for (;;) {
      if (use($2$exports)) break outer;
    }
  }
}
`,
			want: `/*! license: MIT */
function m() {
  // scan
  var $2$exports = {};
  outer: for (;;) {
    for (;;) {
      if (use($2$exports)) break outer;
    }
  }
}
`,
		},
		{
			name:    "bound synthetic identifiers",
			modules: []*modgraph.Module{{ID: 2, Exports: []string{"x"}}},
			src: `var $2$exports = {}, $2$export$x = 1;
function m() {
  use($2$exports, $2$export$x);
}
`,
			want: `var $2$exports = {}, $2$export$x = 1;
function m() {
  use($2$exports, $2$export$x);
}
`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Concat(test.src, testGraph(t, test.modules...), test.renames)
			if err != nil {
				t.Fatalf("Got: Concat() returned error: %s. Want: no error.", err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Concat() returned diff (-want,+got):\n%s", diff)
			}
		})
	}
}

func TestConcatMutationAnnotatedOnce(t *testing.T) {
	g := testGraph(t, &modgraph.Module{ID: 2, Exports: []string{"y"}})
	src := `function m() {
  var $2$export$y = 2;
  function set() {
    $2$export$y = 3;
  }
  use($2$exports);
}
function n() {
  use($2$exports);
}
`
	got, err := Concat(src, g, nil)
	if err != nil {
		t.Fatalf("Got: Concat() returned error: %s. Want: no error.", err)
	}
	if n := strings.Count(got, "// bailout: mutates $2$export$y"); n != 1 {
		t.Errorf("Got: %d bailout comments in:\n%s\nWant: 1.", n, got)
	}
	if !strings.Contains(got, "  // bailout: mutates $2$export$y\n  function set() {") {
		t.Errorf("Got: bailout comment not on the mutating function:\n%s", got)
	}
}

func TestRewriteInvariants(t *testing.T) {
	modules := []*modgraph.Module{
		{ID: 1, Deps: map[string]int{"./b": 2}},
		{ID: 2},
	}
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "one argument",
			src:  `function m() { var a = $2$exports; var b = $bundle$require(1); }`,
			want: "invalid signature",
		},
		{
			name: "string module id",
			src:  `function m() { var a = $2$exports; var b = $bundle$require("1", "./b"); }`,
			want: "invalid signature",
		},
		{
			name: "fractional module id",
			src:  `function m() { var a = $2$exports; var b = $bundle$require(1.5, "./b"); }`,
			want: "invalid signature",
		},
		{
			name: "non-literal specifier",
			src:  `function m() { var a = $2$exports; var b = $bundle$require(1, b); }`,
			want: "invalid signature",
		},
		{
			name: "unknown specifier",
			src:  `function m() { var a = $2$exports; var b = $bundle$require(1, "./missing"); }`,
			want: `cannot find module "./missing" required by module 1`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := srctesting.Parse(t, test.src)
			ed, err := Rewrite(f, testGraph(t, modules...), nil)
			var inv *InvariantError
			if !errors.As(err, &inv) {
				t.Fatalf("Got: Rewrite() returned %v. Want: *InvariantError.", err)
			}
			if !strings.Contains(inv.Msg, test.want) {
				t.Errorf("Got: error message %q. Want: containing %q.", inv.Msg, test.want)
			}
			if ed != nil {
				t.Errorf("Got: %d edits along with the error. Want: none.", ed.Len())
			}
			if got := f.Source(); got != test.src {
				t.Errorf("Got: source changed to %q. Want: untouched.", got)
			}
		})
	}
}

func TestRewriteUnresolvableWildcard(t *testing.T) {
	g := testGraph(t, &modgraph.Module{ID: 3, Wildcards: []string{"./gone"}})
	_, err := Concat("function m() { use($3$export$x); }", g, nil)
	var inv *InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("Got: Concat() returned %v. Want: *InvariantError.", err)
	}
	if !strings.Contains(inv.Msg, `"./gone"`) {
		t.Errorf("Got: error message %q. Want: naming the re-exported specifier.", inv.Msg)
	}
}

func TestRewriteNoOuterStatement(t *testing.T) {
	g := testGraph(t, &modgraph.Module{ID: 2})
	_, err := Concat("use($2$exports);", g, nil)
	var inv *InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("Got: Concat() returned %v. Want: *InvariantError.", err)
	}
	if want := (jsast.Pos{Line: 1, Column: 4}); inv.Pos != want {
		t.Errorf("Got: error at %s. Want: %s.", inv.Pos, want)
	}
}

func TestConcatParseError(t *testing.T) {
	_, err := Concat("function m( {", testGraph(t), nil)
	if err == nil || !strings.HasPrefix(err.Error(), "failed to parse bundle: ") {
		t.Errorf("Got: Concat() returned %v. Want: parse error.", err)
	}
}

func TestNaming(t *testing.T) {
	if id, ok := ParseNamespaceName(NamespaceName(42)); !ok || id != 42 {
		t.Errorf("Got: ParseNamespaceName(NamespaceName(42)) = %d, %v. Want: 42, true.", id, ok)
	}
	id, name, ok := ParseExportName(ExportName(7, "default"))
	if !ok || id != 7 || name != "default" {
		t.Errorf("Got: ParseExportName(ExportName(7, default)) = %d, %q, %v. Want: 7, \"default\", true.", id, name, ok)
	}
	for _, s := range []string{"exports", "$x$exports", "$1$exports$", "$1$export$"} {
		if _, ok := ParseNamespaceName(s); ok {
			t.Errorf("Got: ParseNamespaceName(%q) succeeded. Want: failure.", s)
		}
		if _, _, ok := ParseExportName(s); ok {
			t.Errorf("Got: ParseExportName(%q) succeeded. Want: failure.", s)
		}
	}
}
