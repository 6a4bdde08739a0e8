// Package concat removes the cross-module indirection from a bundle made of
// concatenated module wrappers.
//
// Modules refer to each other through synthetic identifiers: $<id>$exports
// for the export object of a module and $<id>$export$<name> for one of its
// exports, plus $bundle$require(<id>, "<specifier>") calls. Rewrite resolves
// them against the lexical scope of the bundle, so that a reference ends up
// at the binding that holds the value, and synthesizes export objects where
// a module is used as a whole.
package concat

import (
	"context"
	"fmt"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/hoistjs/hoist/compiler/jsast"
	"github.com/hoistjs/hoist/compiler/modgraph"
)

// Concat parses code, rewrites it and returns the edited text.
func Concat(code string, graph modgraph.Provider, renames map[string]string) (string, error) {
	f, err := jsast.Parse(context.Background(), code)
	if err != nil {
		return "", fmt.Errorf("failed to parse bundle: %w", err)
	}
	defer f.Close()
	ed, err := Rewrite(f, graph, renames)
	if err != nil {
		return "", err
	}
	return ed.String(), nil
}

// Rewrite performs one scope hoisting pass over f and returns the edits
// making up the result. f itself is never modified.
//
// renames maps synthetic export identifiers to the names the bindings were
// given in the bundle. Any *InvariantError, found while checking the require
// shim calls or later while following wildcard re-exports, discards all
// edits.
func Rewrite(f *jsast.File, graph modgraph.Provider, renames map[string]string) (ed *jsast.Editor, err error) {
	defer func() {
		e := recover()
		if e == nil {
			return
		}
		if b, ok := e.(bailout); ok {
			ed, err = nil, b.err
			return
		}
		panic(e)
	}()

	ctx := newPass(f, graph, renames)
	if err := ctx.checkRequires(); err != nil {
		return nil, err
	}
	r := &rewriter{ctx: ctx, scope: ctx.info.Program}
	r.children(f.Root())
	return ctx.ed, nil
}

// pass is the state of one Rewrite call.
type pass struct {
	file    *jsast.File
	graph   modgraph.Provider
	renames map[string]string
	info    *jsast.Info
	ed      *jsast.Editor

	// visited holds the synthetic identifiers already handled as bare
	// references.
	visited map[string]bool
	// annotated holds the bindings whose writes carry a bailout comment.
	annotated map[*jsast.Binding]bool
	// requires maps the start offset of each require shim call to the
	// module it loads.
	requires map[uint32]int
}

func newPass(f *jsast.File, graph modgraph.Provider, renames map[string]string) *pass {
	if renames == nil {
		renames = map[string]string{}
	}
	return &pass{
		file:      f,
		graph:     graph,
		renames:   renames,
		info:      jsast.Analyze(f),
		ed:        jsast.NewEditor(f),
		visited:   map[string]bool{},
		annotated: map[*jsast.Binding]bool{},
		requires:  map[uint32]int{},
	}
}

func (c *pass) isRequireShim(n *jsast.Node) bool {
	if n.Type() != "call_expression" {
		return false
	}
	fn := n.ChildByFieldName("function")
	return fn != nil && fn.Type() == "identifier" && c.file.Text(fn) == RequireShim
}

// checkRequires resolves every require shim call of the file.
func (c *pass) checkRequires() error {
	var err error
	jsast.Inspect(c.file.Root(), func(n *jsast.Node) bool {
		if err != nil {
			return false
		}
		if !c.isRequireShim(n) {
			return true
		}
		var target int
		if target, err = c.resolveRequire(n); err == nil {
			c.requires[n.StartByte()] = target
		}
		return err == nil
	})
	return err
}

func (c *pass) resolveRequire(call *jsast.Node) (int, error) {
	invalid := &InvariantError{
		Pos: c.file.Pos(call),
		Msg: fmt.Sprintf("invalid signature, expected: %s(number, string)", RequireShim),
	}
	args := call.ChildByFieldName("arguments")
	if args == nil || args.Type() != "arguments" {
		return 0, invalid
	}
	list := jsast.NamedChildren(args)
	if len(list) != 2 {
		return 0, invalid
	}
	num, ok := c.file.NumberValue(list[0])
	if !ok || num != math.Trunc(num) || math.Abs(num) > math.MaxInt32 {
		return 0, invalid
	}
	spec, ok := c.file.StringValue(list[1])
	if !ok {
		return 0, invalid
	}
	target, ok := c.graph.ResolveDependency(int(num), spec)
	if !ok {
		return 0, &InvariantError{
			Pos: c.file.Pos(call),
			Msg: fmt.Sprintf("cannot find module %q required by module %d", spec, int(num)),
		}
	}
	return target, nil
}

// frame is a statement on the path from the program to the node being
// rewritten.
type frame struct {
	stmt *jsast.Node
	// blocks is the number of block statements enclosing stmt.
	blocks int
	// inList is false when stmt is the body of a compound statement.
	// Declarations are then inserted inside braces put around stmt, and
	// wrapped is set once they are.
	inList  bool
	wrapped bool
	// scope is the scope references next to stmt are resolved in, outer the
	// one stmt itself is declared in.
	scope *jsast.Scope
	outer *jsast.Scope
}

type rewriter struct {
	ctx    *pass
	frames []*frame
	scope  *jsast.Scope
	blocks int
}

// statementOf reports whether n is a statement that gets a frame, and
// whether it sits in a statement list. The body of a labeled statement gets
// none, so that nothing is ever inserted between a label and its loop.
func statementOf(n, parent *jsast.Node) (ok, inList bool) {
	t := n.Type()
	if !strings.HasSuffix(t, "_statement") && !strings.HasSuffix(t, "_declaration") {
		return false, false
	}
	switch parent.Type() {
	case "program", "statement_block", "switch_case", "switch_default":
		return true, true
	case "if_statement":
		return jsast.Same(n, parent.ChildByFieldName("consequence")), false
	case "else_clause":
		return true, false
	case "for_statement", "for_in_statement", "while_statement", "do_statement", "with_statement":
		return jsast.Same(n, parent.ChildByFieldName("body")), false
	}
	return false, false
}

func (r *rewriter) push(n *jsast.Node, inList bool) {
	scope := r.ctx.info.Scope(n)
	if scope == nil {
		scope = r.scope
	}
	r.frames = append(r.frames, &frame{
		stmt:   n,
		blocks: r.blocks,
		inList: inList,
		scope:  scope,
		outer:  r.scope,
	})
}

func (r *rewriter) pop() { r.frames = r.frames[:len(r.frames)-1] }

// outerStatement returns the innermost enclosing statement that has exactly
// one block statement above it. In a bundle that is the statement of the
// bundle wrapper function a reference belongs to.
func (r *rewriter) outerStatement(ref *jsast.Node) *frame {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].blocks == 1 {
			return r.frames[i]
		}
	}
	fail(r.ctx.file.Pos(ref), "no statement one block below the top level encloses the reference")
	return nil
}

func (r *rewriter) children(n *jsast.Node) {
	for _, c := range jsast.NamedChildren(n) {
		r.node(c, n)
	}
}

func (r *rewriter) field(n *jsast.Node, name string) {
	if c := n.ChildByFieldName(name); c != nil {
		r.node(c, n)
	}
}

// node rewrites n, a child of parent. Declared names are never visited.
func (r *rewriter) node(n, parent *jsast.Node) {
	if ok, inList := statementOf(n, parent); ok {
		r.push(n, inList)
		defer r.pop()
	}
	if s := r.ctx.info.Scope(n); s != nil {
		old := r.scope
		r.scope = s
		defer func() { r.scope = old }()
	}

	switch t := n.Type(); {
	case t == "comment":
	case t == "statement_block":
		r.blocks++
		r.children(n)
		r.blocks--
	case jsast.IsFunction(n):
		r.field(n, "body")
	case r.ctx.isRequireShim(n):
		target := r.ctx.requires[n.StartByte()]
		name := NamespaceName(target)
		log.Debugf("Replacing require of module %d at %s", target, r.ctx.file.Pos(n))
		r.namespaceRef(n, target, name)
		r.ctx.ed.Replace(n, name)
	case t == "variable_declarator" || t == "pair":
		r.field(n, "value")
	case t == "for_in_statement":
		r.field(n, "right")
		r.field(n, "body")
	case t == "catch_clause" || t == "labeled_statement":
		r.field(n, "body")
	case t == "identifier":
		r.ident(n)
	case t == "member_expression":
		if name := r.collapse(n); name != "" {
			r.ctx.ed.Replace(n, name)
			return
		}
		r.children(n)
	case t == "assignment_expression" || t == "augmented_assignment_expression":
		// A member expression being written keeps its namespace access.
		if left := n.ChildByFieldName("left"); left != nil && left.Type() == "member_expression" {
			r.children(left)
		} else {
			r.field(n, "left")
		}
		r.field(n, "right")
	default:
		r.children(n)
	}
}

// collapse returns $<id>$export$<name> for a read of $<id>$exports.<name>
// when that binding is in scope.
func (r *rewriter) collapse(m *jsast.Node) string {
	obj, prop := m.ChildByFieldName("object"), m.ChildByFieldName("property")
	if obj == nil || prop == nil || obj.Type() != "identifier" || prop.Type() != "property_identifier" {
		return ""
	}
	id, ok := ParseNamespaceName(r.ctx.file.Text(obj))
	if !ok {
		return ""
	}
	name := ExportName(id, r.ctx.file.Text(prop))
	if !r.scope.HasBinding(name) {
		return ""
	}
	return name
}

// namespaceRef handles a reference to the export object of module mod.
func (r *rewriter) namespaceRef(ref *jsast.Node, mod int, name string) {
	if r.scope.HasBinding(name) || r.ctx.visited[name] {
		return
	}
	r.ctx.visited[name] = true
	r.synthesizeNamespace(mod, ref, name)
}

// ident handles a bare reference to a synthetic identifier.
func (r *rewriter) ident(id *jsast.Node) {
	name := r.ctx.file.Text(id)
	if mod, ok := ParseNamespaceName(name); ok {
		r.namespaceRef(id, mod, name)
		return
	}
	mod, export, ok := ParseExportName(name)
	if !ok || r.scope.HasBinding(name) || r.ctx.visited[name] {
		return
	}
	r.ctx.visited[name] = true
	if x := r.resolve(r.outerStatement(id), mod, export, id); x != "" {
		if x != name {
			r.ctx.ed.Replace(id, x)
		}
		return
	}
	log.Debugf("Export %q of module %d is unresolved at %s", export, mod, r.ctx.file.Pos(id))
}
