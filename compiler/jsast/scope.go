package jsast

import "sort"

// ScopeKind tells what kind of node introduced a scope.
type ScopeKind uint8

const (
	ProgramScope ScopeKind = iota
	FunctionScope
	BlockScope
)

// BindingKind is the way a name was declared.
type BindingKind uint8

const (
	BindVar BindingKind = iota
	BindLet
	BindConst
	BindFunction
	BindParam
	BindCatch
	BindLocal // Name of a function expression, visible inside the function only.
)

// Violation is a place where a binding is written after its declaration.
type Violation struct {
	// Site is an assignment_expression, augmented_assignment_expression,
	// update_expression, for_in_statement or variable_declarator node.
	Site *Node
	// Target is the written identifier.
	Target *Node
	// Func is the innermost function containing Site, nil at the top level.
	Func *Node
}

// Binding is a declared name.
type Binding struct {
	Name       string
	Kind       BindingKind
	Ident      *Node // Declaring identifier, nil for synthesized bindings.
	Scope      *Scope
	Violations []Violation
}

// Constant reports whether the binding is never written after declaration.
func (b *Binding) Constant() bool { return len(b.Violations) == 0 }

// Scope is a lexical scope.
type Scope struct {
	Kind   ScopeKind
	Node   *Node
	Parent *Scope

	bindings map[string]*Binding
}

func newScope(kind ScopeKind, node *Node, parent *Scope) *Scope {
	return &Scope{Kind: kind, Node: node, Parent: parent, bindings: map[string]*Binding{}}
}

// OwnBinding returns the binding declared directly in s.
func (s *Scope) OwnBinding(name string) *Binding { return s.bindings[name] }

// Lookup returns the binding name resolves to from s, or nil for globals.
func (s *Scope) Lookup(name string) *Binding {
	for ; s != nil; s = s.Parent {
		if b := s.bindings[name]; b != nil {
			return b
		}
	}
	return nil
}

// HasBinding reports whether name is declared in s or any enclosing scope.
func (s *Scope) HasBinding(name string) bool { return s.Lookup(name) != nil }

// HoistScope returns the nearest function or program scope, where var
// declarations end up.
func (s *Scope) HoistScope() *Scope {
	for s.Kind == BlockScope && s.Parent != nil {
		s = s.Parent
	}
	return s
}

// Declare adds a binding to s. Redeclaring an existing name returns the
// existing binding unchanged.
func (s *Scope) Declare(name string, kind BindingKind, id *Node) *Binding {
	if b := s.bindings[name]; b != nil {
		return b
	}
	b := &Binding{Name: name, Kind: kind, Ident: id, Scope: s}
	s.bindings[name] = b
	return b
}

// Names returns the names declared directly in s, sorted.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.bindings))
	for name := range s.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info is the result of scope analysis.
type Info struct {
	Program *Scope

	scopes map[key]*Scope
}

// Scope returns the scope introduced by n, or nil if n doesn't introduce one.
// The body of a function shares the scope of the function.
func (info *Info) Scope(n *Node) *Scope {
	if n == nil {
		return nil
	}
	return info.scopes[keyOf(n)]
}

// Analyze computes scopes and bindings of the file, including every write to
// a binding after its declaration.
func Analyze(f *File) *Info {
	info := &Info{scopes: map[key]*Scope{}}
	info.Program = newScope(ProgramScope, f.root, nil)
	info.scopes[keyOf(f.root)] = info.Program

	d := &declarer{f: f, info: info}
	d.children(f.root, info.Program)
	r := &resolver{f: f, info: info}
	r.children(f.root, info.Program, nil)
	return info
}

type declarer struct {
	f    *File
	info *Info
}

func (d *declarer) scope(kind ScopeKind, n *Node, parent *Scope) *Scope {
	s := newScope(kind, n, parent)
	d.info.scopes[keyOf(n)] = s
	return s
}

func (d *declarer) children(n *Node, s *Scope) {
	for _, c := range NamedChildren(n) {
		d.visit(c, s)
	}
}

func (d *declarer) visit(n *Node, s *Scope) {
	switch n.Type() {
	case "function_declaration", "generator_function_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			s.Declare(d.f.Text(name), BindFunction, name)
		}
		d.function(n, s)
	case "function", "function_expression", "generator_function", "arrow_function", "method_definition":
		d.function(n, s)
	case "class_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			s.Declare(d.f.Text(name), BindLet, name)
		}
		d.children(n, s)
	case "variable_declaration", "lexical_declaration":
		target, kind := s.HoistScope(), BindVar
		if n.Type() == "lexical_declaration" {
			target, kind = s, BindLet
			if k := n.ChildByFieldName("kind"); k != nil && d.f.Text(k) == "const" {
				kind = BindConst
			}
		}
		for _, decl := range NamedChildren(n) {
			if decl.Type() != "variable_declarator" {
				continue
			}
			d.pattern(decl.ChildByFieldName("name"), target, kind)
			if v := decl.ChildByFieldName("value"); v != nil {
				d.visit(v, s)
			}
		}
	case "statement_block", "for_statement", "switch_statement", "class_body":
		d.children(n, d.scope(BlockScope, n, s))
	case "for_in_statement":
		inner := d.scope(BlockScope, n, s)
		if k := n.ChildByFieldName("kind"); k != nil {
			target, kind := s.HoistScope(), BindVar
			switch d.f.Text(k) {
			case "let":
				target, kind = inner, BindLet
			case "const":
				target, kind = inner, BindConst
			}
			d.pattern(n.ChildByFieldName("left"), target, kind)
		}
		d.children(n, inner)
	case "catch_clause":
		inner := d.scope(BlockScope, n, s)
		d.pattern(n.ChildByFieldName("parameter"), inner, BindCatch)
		if body := n.ChildByFieldName("body"); body != nil {
			// The catch body shares the scope of its parameter.
			d.info.scopes[keyOf(body)] = inner
			d.children(body, inner)
		}
	default:
		d.children(n, s)
	}
}

func (d *declarer) function(n *Node, s *Scope) {
	inner := d.scope(FunctionScope, n, s)
	switch n.Type() {
	case "function", "function_expression", "generator_function":
		if name := n.ChildByFieldName("name"); name != nil {
			inner.Declare(d.f.Text(name), BindLocal, name)
		}
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for _, p := range NamedChildren(params) {
			d.pattern(p, inner, BindParam)
		}
	}
	if p := n.ChildByFieldName("parameter"); p != nil {
		d.pattern(p, inner, BindParam)
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	if body.Type() == "statement_block" {
		d.info.scopes[keyOf(body)] = inner
		d.children(body, inner)
		return
	}
	d.visit(body, inner)
}

// pattern declares the names bound by a declaration target. Default values
// inside the pattern are visited as expressions.
func (d *declarer) pattern(n *Node, s *Scope, kind BindingKind) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		s.Declare(d.f.Text(n), kind, n)
	case "assignment_pattern", "object_assignment_pattern":
		d.pattern(n.ChildByFieldName("left"), s, kind)
		if v := n.ChildByFieldName("right"); v != nil {
			d.visit(v, s)
		}
	case "pair_pattern":
		d.pattern(n.ChildByFieldName("value"), s, kind)
	case "object_pattern", "array_pattern", "rest_pattern":
		for _, c := range NamedChildren(n) {
			d.pattern(c, s, kind)
		}
	}
}

type resolver struct {
	f    *File
	info *Info
}

func (r *resolver) children(n *Node, s *Scope, fn *Node) {
	for _, c := range NamedChildren(n) {
		r.visit(c, s, fn)
	}
}

func (r *resolver) visit(n *Node, s *Scope, fn *Node) {
	if inner := r.info.Scope(n); inner != nil {
		s = inner
		if IsFunction(n) {
			fn = n
		}
	}
	switch n.Type() {
	case "assignment_expression", "augmented_assignment_expression":
		r.write(n, n.ChildByFieldName("left"), s, fn)
	case "update_expression":
		r.write(n, n.ChildByFieldName("argument"), s, fn)
	case "for_in_statement":
		r.write(n, n.ChildByFieldName("left"), s, fn)
	case "variable_declarator":
		// An initialized redeclaration writes the existing binding.
		name := n.ChildByFieldName("name")
		if name != nil && name.Type() == "identifier" && n.ChildByFieldName("value") != nil {
			if b := s.Lookup(r.f.Text(name)); b != nil && !Same(b.Ident, name) {
				b.Violations = append(b.Violations, Violation{Site: n, Target: name, Func: fn})
			}
		}
	}
	r.children(n, s, fn)
}

func (r *resolver) write(site, target *Node, s *Scope, fn *Node) {
	for target != nil && target.Type() == "parenthesized_expression" {
		target = target.NamedChild(0)
	}
	if target == nil || target.Type() != "identifier" {
		return
	}
	if b := s.Lookup(r.f.Text(target)); b != nil {
		b.Violations = append(b.Violations, Violation{Site: site, Target: target, Func: fn})
	}
}
