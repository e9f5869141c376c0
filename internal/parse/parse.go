// Package parse builds node graphs from JavaScript source using
// tree-sitter. The builder assigns node IDs in preorder and produces the
// access shapes the detectors walk: one member-expression node for a static
// property access, a wrapper+inner node pair for a computed one.
package parse

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/jward/snag/internal/ast"
)

// File parses src and returns its node graph. Syntax errors do not fail the
// parse: tree-sitter ERROR subtrees become ordinary nodes and analysis
// proceeds over whatever structure was recovered.
func File(ctx context.Context, path string, src []byte) (*ast.Graph, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	b := &builder{g: ast.NewGraph(path, src), src: src}
	b.node(tree.RootNode(), ast.NoNode)
	return b.g, nil
}

type builder struct {
	g   *ast.Graph
	src []byte
}

// add appends a graph node for a syntax node with all links absent.
func (b *builder) add(kind ast.Kind, ts *sitter.Node, parent ast.NodeID) ast.NodeID {
	return b.g.Add(ast.Node{
		Kind:   kind,
		Type:   ts.Type(),
		Parent: parent,
		Span:   spanOf(ts),
		Object: ast.NoNode,
		Key:    ast.NoNode,
		Callee: ast.NoNode,
	})
}

// children walks all named children of ts under parent.
func (b *builder) children(ts *sitter.Node, parent ast.NodeID) {
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		b.node(ts.NamedChild(i), parent)
	}
}

// node maps one syntax node (and its subtree) into the graph and returns
// the ID its parent should link to.
func (b *builder) node(ts *sitter.Node, parent ast.NodeID) ast.NodeID {
	switch ts.Type() {
	case "program":
		id := b.add(ast.KindProgram, ts, parent)
		b.children(ts, id)
		return id

	case "member_expression":
		id := b.add(ast.KindMemberExpression, ts, parent)
		// Build the child before fetching the parent node: mapping the
		// subtree grows the arena, which can move it.
		if object := ts.ChildByFieldName("object"); object != nil {
			objID := b.node(object, id)
			b.g.Get(id).Object = objID
		}
		if property := ts.ChildByFieldName("property"); property != nil {
			keyID := b.node(property, id)
			b.g.Get(id).Key = keyID
		}
		return id

	case "subscript_expression":
		// A computed access is two nodes: the wrapper the enclosing call
		// links to, and the inner computed node holding object and key.
		// Detector ancestor walks count on the extra level.
		wrapper := b.add(ast.KindMemberExpression, ts, parent)
		inner := b.add(ast.KindComputedMemberExpression, ts, wrapper)
		if object := ts.ChildByFieldName("object"); object != nil {
			objID := b.node(object, inner)
			b.g.Get(inner).Object = objID
		}
		if index := ts.ChildByFieldName("index"); index != nil {
			keyID := b.node(index, inner)
			b.g.Get(inner).Key = keyID
		}
		b.g.Get(wrapper).Object = b.g.Get(inner).Object
		b.g.Get(wrapper).Key = b.g.Get(inner).Key
		return wrapper

	case "call_expression":
		argList := ts.ChildByFieldName("arguments")
		if argList != nil && argList.Type() != "arguments" {
			// Tagged template: syntactically a call_expression, but the
			// "arguments" are a template string and nothing is invoked
			// through an argument list.
			id := b.add(ast.KindOther, ts, parent)
			if fn := ts.ChildByFieldName("function"); fn != nil {
				b.node(fn, id)
			}
			b.node(argList, id)
			return id
		}
		id := b.add(ast.KindCallExpression, ts, parent)
		if fn := ts.ChildByFieldName("function"); fn != nil {
			calleeID := b.node(fn, id)
			b.g.Get(id).Callee = calleeID
		}
		b.arguments(argList, id)
		return id

	case "new_expression":
		id := b.add(ast.KindNewExpression, ts, parent)
		if ctor := ts.ChildByFieldName("constructor"); ctor != nil {
			calleeID := b.node(ctor, id)
			b.g.Get(id).Callee = calleeID
		}
		b.arguments(ts.ChildByFieldName("arguments"), id)
		return id

	case "identifier":
		id := b.add(identifierKind(ts), ts, parent)
		n := b.g.Get(id)
		n.Name = ts.Content(b.src)
		n.Flags |= ast.FlagStaticName
		return id

	case "property_identifier", "private_property_identifier":
		id := b.add(ast.KindPropertyIdentifier, ts, parent)
		n := b.g.Get(id)
		n.Name = ts.Content(b.src)
		n.Flags |= ast.FlagStaticName
		return id

	case "shorthand_property_identifier":
		id := b.add(ast.KindIdentifierReference, ts, parent)
		n := b.g.Get(id)
		n.Name = ts.Content(b.src)
		n.Flags |= ast.FlagStaticName
		return id

	case "shorthand_property_identifier_pattern":
		id := b.add(ast.KindIdentifierBinding, ts, parent)
		n := b.g.Get(id)
		n.Name = ts.Content(b.src)
		n.Flags |= ast.FlagStaticName
		return id

	case "string":
		id := b.add(ast.KindStringLiteral, ts, parent)
		value, static := b.cookLiteral(ts, "")
		n := b.g.Get(id)
		n.Name = value
		if static {
			n.Flags |= ast.FlagStaticName
		}
		return id

	case "template_string":
		id := b.add(ast.KindTemplateString, ts, parent)
		value, static := b.cookLiteral(ts, "template_substitution")
		n := b.g.Get(id)
		n.Name = value
		if static {
			n.Flags |= ast.FlagStaticName
		}
		// Substitution expressions hang directly off the template node;
		// the literal fragments stay folded into it.
		for i := 0; i < int(ts.NamedChildCount()); i++ {
			if c := ts.NamedChild(i); c.Type() == "template_substitution" {
				b.children(c, id)
			}
		}
		return id

	case "number":
		return b.add(ast.KindNumericLiteral, ts, parent)

	case "function", "function_expression", "generator_function":
		id := b.add(ast.KindFunctionExpression, ts, parent)
		b.children(ts, id)
		return id

	case "arrow_function":
		id := b.add(ast.KindArrowFunction, ts, parent)
		b.children(ts, id)
		return id

	case "spread_element":
		id := b.add(ast.KindSpreadElement, ts, parent)
		b.children(ts, id)
		return id

	case "debugger_statement":
		return b.add(ast.KindDebuggerStatement, ts, parent)

	default:
		id := b.add(ast.KindOther, ts, parent)
		b.children(ts, id)
		return id
	}
}

// arguments flattens an argument list: each argument expression becomes a
// direct child of the call/new node, recorded in Args in source order.
func (b *builder) arguments(argList *sitter.Node, call ast.NodeID) {
	if argList == nil {
		return
	}
	for i := 0; i < int(argList.NamedChildCount()); i++ {
		argID := b.node(argList.NamedChild(i), call)
		n := b.g.Get(call)
		n.Args = append(n.Args, argID)
	}
}

// cookLiteral resolves the static value of a string or template literal:
// the concatenation of its plain fragments. The value does not count as
// static when a substitution (substType) or an escape sequence appears —
// escapes would need evaluation to cook, so they are conservatively treated
// as unresolvable.
func (b *builder) cookLiteral(ts *sitter.Node, substType string) (string, bool) {
	var buf strings.Builder
	static := true
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		c := ts.NamedChild(i)
		switch c.Type() {
		case "string_fragment":
			buf.WriteString(c.Content(b.src))
		case "escape_sequence":
			static = false
		case substType:
			static = false
		}
	}
	return buf.String(), static
}

// identifierKind classifies an identifier as a reference or a binding from
// its syntactic position. Binding positions are name fields, parameters,
// and destructuring patterns; everything else reads as a reference.
func identifierKind(ts *sitter.Node) ast.Kind {
	parent := ts.Parent()
	if parent == nil {
		return ast.KindIdentifierReference
	}
	switch parent.Type() {
	case "function_declaration", "generator_function_declaration",
		"function", "function_expression", "generator_function",
		"class_declaration", "class":
		if isField(parent, "name", ts) {
			return ast.KindIdentifierBinding
		}
	case "variable_declarator":
		if isField(parent, "name", ts) {
			return ast.KindIdentifierBinding
		}
	case "formal_parameters", "rest_pattern", "array_pattern", "object_pattern":
		return ast.KindIdentifierBinding
	case "assignment_pattern":
		if isField(parent, "left", ts) {
			return ast.KindIdentifierBinding
		}
	case "arrow_function", "catch_clause":
		if isField(parent, "parameter", ts) {
			return ast.KindIdentifierBinding
		}
	case "pair_pattern":
		if isField(parent, "value", ts) {
			return ast.KindIdentifierBinding
		}
	case "import_specifier", "namespace_import":
		return ast.KindIdentifierBinding
	}
	return ast.KindIdentifierReference
}

// isField reports whether child occupies the named field of parent.
func isField(parent *sitter.Node, field string, child *sitter.Node) bool {
	f := parent.ChildByFieldName(field)
	return f != nil && f.StartByte() == child.StartByte() && f.EndByte() == child.EndByte()
}

func spanOf(ts *sitter.Node) ast.Span {
	start, end := ts.StartPoint(), ts.EndPoint()
	return ast.Span{
		Start:      ts.StartByte(),
		End:        ts.EndByte(),
		StartPoint: ast.Point{Row: start.Row, Col: start.Column},
		EndPoint:   ast.Point{Row: end.Row, Col: end.Column},
	}
}
