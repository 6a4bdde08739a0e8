package concat

import (
	"strconv"

	"github.com/hoistjs/hoist/compiler/jsast"
)

// resolve returns the expression holding export name of module mod, as seen
// from the outer statement of the reference ref. It returns "" when neither
// the named export nor the namespace of mod can be found.
func (r *rewriter) resolve(outer *frame, mod int, name string, ref *jsast.Node) string {
	if id := r.lookup(outer.scope, mod, func(m int) string { return ExportName(m, name) }, ref, map[int]bool{}); id != "" {
		return id
	}
	if ns := r.lookup(outer.scope, mod, NamespaceName, ref, map[int]bool{}); ns != "" {
		if jsast.IsIdentifierName(name) {
			return ns + "." + name
		}
		return ns + "[" + strconv.Quote(name) + "]"
	}
	return ""
}

// lookup resolves the identifier symbol(mod) in scope, then through the
// renames table, then through the wildcard re-exports of mod in declaration
// order. The first hit wins. seen guards against re-export cycles.
func (r *rewriter) lookup(scope *jsast.Scope, mod int, symbol func(int) string, ref *jsast.Node, seen map[int]bool) string {
	name := symbol(mod)
	if scope.HasBinding(name) {
		return name
	}
	if renamed, ok := r.ctx.renames[name]; ok {
		return renamed
	}
	if seen[mod] {
		return ""
	}
	seen[mod] = true
	for _, spec := range r.ctx.graph.WildcardsOf(mod) {
		dep, ok := r.ctx.graph.ResolveDependency(mod, spec)
		if !ok {
			fail(r.ctx.file.Pos(ref), "cannot find module %q re-exported by module %d", spec, mod)
		}
		if id := r.lookup(scope, dep, symbol, ref, seen); id != "" {
			return id
		}
	}
	return ""
}
