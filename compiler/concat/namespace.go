package concat

import (
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/hoistjs/hoist/compiler/jsast"
)

// synthesizeNamespace declares name, the export object of module mod, right
// before the outer statement of ref.
//
// Exports whose binding is never written become plain properties. The others
// become getters, so that reads keep seeing the current value, and every
// write to such a binding gets a comment noting that it prevents inlining.
func (r *rewriter) synthesizeNamespace(mod int, ref *jsast.Node, name string) {
	outer := r.outerStatement(ref)

	var props []string
	for _, export := range r.ctx.graph.ExportsOf(mod) {
		key := ExportName(mod, export)
		if renamed, ok := r.ctx.renames[key]; ok {
			key = renamed
		}
		b := r.scope.Lookup(key)
		if b == nil {
			continue
		}
		x := r.resolve(outer, mod, export, ref)
		if x == "" {
			continue
		}

		prop := export
		if !jsast.IsIdentifierName(export) {
			prop = strconv.Quote(export)
		}
		if b.Constant() {
			props = append(props, prop+": "+x)
		} else {
			r.annotate(b, x)
			props = append(props, "get "+prop+"() {\n  return "+x+";\n}")
		}
	}

	r.insertBefore(outer, objectDecl(name, props, r.ctx.file.Indent(outer.stmt)))
	outer.outer.HoistScope().Declare(name, jsast.BindVar, nil)

	log.Debugf("Synthesized export object %s with %d properties at %s", name, len(props), r.ctx.file.Pos(outer.stmt))
}

// objectDecl returns a var declaration of an object literal, one property per
// line, for a statement indented by indent.
func objectDecl(name string, props []string, indent string) string {
	if len(props) == 0 {
		return "var " + name + " = {};"
	}
	var b strings.Builder
	b.WriteString("var " + name + " = {")
	inner := indent + "  "
	for i, p := range props {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString("\n" + inner + strings.ReplaceAll(p, "\n", "\n"+inner))
	}
	b.WriteString("\n" + indent + "};")
	return b.String()
}

// annotate marks every function writing b, once per binding.
func (r *rewriter) annotate(b *jsast.Binding, x string) {
	if r.ctx.annotated[b] {
		return
	}
	r.ctx.annotated[b] = true

	comment := "bailout: mutates " + x
	f := r.ctx.file
	done := map[int]bool{}
	for _, v := range b.Violations {
		at := -1
		if v.Func != nil {
			at = int(v.Func.StartByte())
		}
		if done[at] {
			continue
		}
		done[at] = true
		switch {
		case v.Func == nil:
			r.ctx.ed.Insert(0, "// "+comment+"\n")
		case f.StartsLine(v.Func):
			r.ctx.ed.InsertBefore(v.Func, "// "+comment+"\n"+f.Indent(v.Func))
		default:
			r.ctx.ed.InsertBefore(v.Func, "/* "+comment+" */ ")
		}
	}
}

// insertBefore places decl right before the statement of f. A statement that
// isn't part of a list is put in braces together with it.
func (r *rewriter) insertBefore(f *frame, decl string) {
	switch {
	case f.inList:
		r.ctx.ed.InsertBefore(f.stmt, decl+"\n"+r.ctx.file.Indent(f.stmt))
	case f.wrapped:
		r.ctx.ed.InsertBefore(f.stmt, decl+" ")
	default:
		f.wrapped = true
		r.ctx.ed.InsertBefore(f.stmt, "{ "+decl+" ")
		r.ctx.ed.InsertAfter(f.stmt, " }")
	}
}
