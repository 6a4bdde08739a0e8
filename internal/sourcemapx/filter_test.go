package sourcemapx

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type mapping struct {
	Line, Column int
	Orig         Pos
	Name         string
}

func newRecordingFilter(w io.Writer) (*Filter, *[]mapping) {
	mappings := &[]mapping{}
	return &Filter{
		Writer: w,
		MappingCallback: func(line, column int, orig Pos, name string) {
			*mappings = append(*mappings, mapping{Line: line, Column: column, Orig: orig, Name: name})
		},
	}, mappings
}

func TestFilter(t *testing.T) {
	code := &bytes.Buffer{}
	filter, got := newRecordingFilter(code)

	writeHint(t, filter, Pos{})
	fmt.Fprint(filter, "(function () {\n")
	fmt.Fprintf(filter, "  %svar a = 1;\n", Pos{Line: 2, Column: 5}.EncodeHint())

	ns := Identifier{Name: "$2$exports", OriginalName: "lib", OriginalPos: Pos{Line: 3, Column: 10}}
	fmt.Fprintf(filter, "  use(%s%s, a);\n", ns.EncodeHint(), ns)
	// Several hints on one line, in a single write.
	x := Identifier{Name: "$1$export$x", OriginalName: "x", OriginalPos: Pos{Line: 4, Column: 2}}
	fmt.Fprintf(filter, "  %s%s = %s%s;\n})();\n", x.EncodeHint(), x, ns.EncodeHint(), ns)

	wantCode := "(function () {\n" +
		"  var a = 1;\n" +
		"  use($2$exports, a);\n" +
		"  $1$export$x = $2$exports;\n" +
		"})();\n"
	if diff := cmp.Diff(wantCode, code.String()); diff != "" {
		t.Errorf("Filtered code differs from expected (-want,+got):\n%s", diff)
	}

	want := []mapping{
		{Line: 1},
		{Line: 2, Column: 2, Orig: Pos{Line: 2, Column: 5}},
		{Line: 3, Column: 6, Orig: Pos{Line: 3, Column: 10}, Name: "lib"},
		{Line: 4, Column: 2, Orig: Pos{Line: 4, Column: 2}, Name: "x"},
		{Line: 4, Column: 16, Orig: Pos{Line: 3, Column: 10}, Name: "lib"},
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("Mappings differ from expected (-want,+got):\n%s", diff)
	}
}

func TestFilterWithoutCallback(t *testing.T) {
	code := &bytes.Buffer{}
	filter := &Filter{Writer: code}
	writeHint(t, filter, Pos{Line: 1})
	n, err := fmt.Fprint(filter, "a;")
	if err != nil {
		t.Fatalf("Got: write error %s. Want: no error.", err)
	}
	if n != 2 {
		t.Errorf("Got: %d bytes reported written. Want: 2.", n)
	}
	if got := code.String(); got != "a;" {
		t.Errorf("Got: filtered output %q. Want: %q.", got, "a;")
	}
}

func writeHint(t *testing.T, w io.Writer, value any) {
	t.Helper()
	hint := Hint{}
	if err := hint.Pack(value); err != nil {
		t.Fatalf("Got: hint.Pack(%#v) returned error: %s. Want: no error.", value, err)
	}
	if _, err := hint.WriteTo(w); err != nil {
		t.Fatalf("Got: hint.WriteTo() returned error: %s. Want: no error.", err)
	}
}
