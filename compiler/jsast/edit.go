package jsast

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hoistjs/hoist/internal/sourcemapx"
)

// Editor collects edits of a File: byte ranges replaced by new text and
// text inserted at an offset. The text between edits is kept as written.
//
// Edits must not overlap. Insertions at the same offset keep the order they
// were made in and come before a replacement starting there.
type Editor struct {
	f     *File
	edits []edit
}

type edit struct {
	start, end int
	text       string
	// pos is the position the new text stands for, invalid for synthesized
	// text. name is the identifier it replaces, if any.
	pos  Pos
	name string
}

func (e edit) insertion() bool { return e.start == e.end }

// NewEditor returns an editor with no edits.
func NewEditor(f *File) *Editor { return &Editor{f: f} }

// Len returns the number of edits made.
func (e *Editor) Len() int { return len(e.edits) }

// Replace substitutes text for n. An identifier keeps its name in the source
// map.
func (e *Editor) Replace(n *Node, text string) {
	ed := edit{start: int(n.StartByte()), end: int(n.EndByte()), text: text, pos: e.f.Pos(n)}
	if n.Type() == "identifier" {
		ed.name = e.f.Text(n)
	}
	e.edits = append(e.edits, ed)
}

// InsertBefore inserts text right before n.
func (e *Editor) InsertBefore(n *Node, text string) { e.Insert(int(n.StartByte()), text) }

// InsertAfter inserts text right after n.
func (e *Editor) InsertAfter(n *Node, text string) { e.Insert(int(n.EndByte()), text) }

// Insert inserts text at a byte offset of the file.
func (e *Editor) Insert(offset int, text string) {
	e.edits = append(e.edits, edit{start: offset, end: offset, text: text})
}

func (e *Editor) sorted() []edit {
	edits := append([]edit(nil), e.edits...)
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		return edits[i].insertion() && !edits[j].insertion()
	})
	return edits
}

// String returns the edited text.
func (e *Editor) String() string {
	var b strings.Builder
	// Writes to a strings.Builder don't fail and no hints means no magic
	// byte check.
	_ = e.Fprint(&b, false)
	return b.String()
}

// Fprint writes the edited text to w.
//
// With hints, source map hints are embedded for a sourcemapx.Filter: kept
// text maps onto itself at the start of every line and after every edit,
// replaced text maps onto the node it replaces and inserted text maps
// nowhere. Text containing the hint magic byte can't carry hints.
func (e *Editor) Fprint(w io.Writer, hints bool) error {
	if hints && bytes.IndexByte(e.f.src, sourcemapx.HintMagic) >= 0 {
		p := e.f.PosAt(bytes.IndexByte(e.f.src, sourcemapx.HintMagic))
		return fmt.Errorf("%s: raw \\b byte in the source, source map hints can't be embedded", p)
	}
	p := &editPrinter{w: w, hints: hints}
	cursor := 0
	for _, ed := range e.sorted() {
		if ed.start < cursor {
			panic(fmt.Errorf("jsast: edit at %s overlaps the previous one", e.f.PosAt(ed.start)))
		}
		p.kept(e.f, cursor, ed.start)
		switch {
		case !ed.pos.IsValid():
			p.synthesized(ed.text)
		case ed.name != "":
			p.hint(sourcemapx.Identifier{
				Name:         ed.text,
				OriginalName: ed.name,
				OriginalPos:  sourcemapx.Pos{Line: ed.pos.Line, Column: ed.pos.Column},
			}.EncodeHint())
			p.print(ed.text)
		default:
			p.hint(sourcemapx.Pos{Line: ed.pos.Line, Column: ed.pos.Column}.EncodeHint())
			p.print(ed.text)
		}
		cursor = ed.end
	}
	p.kept(e.f, cursor, len(e.f.src))
	return p.err
}

type editPrinter struct {
	w     io.Writer
	hints bool
	err   error
}

func (p *editPrinter) print(s string) {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *editPrinter) hint(h string) {
	if p.hints {
		p.print(h)
	}
}

// kept writes src[start:end] mapped onto itself.
func (p *editPrinter) kept(f *File, start, end int) {
	for start < end {
		pos := f.PosAt(start)
		p.hint(sourcemapx.Pos{Line: pos.Line, Column: pos.Column}.EncodeHint())
		next := end
		if i := bytes.IndexByte(f.src[start:end], '\n'); i >= 0 {
			next = start + i + 1
		}
		p.print(string(f.src[start:next]))
		start = next
	}
}

// synthesized writes text with no original position on any of its lines.
func (p *editPrinter) synthesized(text string) {
	for text != "" {
		p.hint(sourcemapx.Pos{}.EncodeHint())
		next := len(text)
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			next = i + 1
		}
		p.print(text[:next])
		text = text[next:]
	}
}
