package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildAccessGraph constructs the graph for `arguments.map` by hand:
// program -> member -> (identifier, property).
func buildAccessGraph(t *testing.T) (*Graph, NodeID, NodeID, NodeID) {
	t.Helper()
	src := []byte("arguments.map")
	g := NewGraph("test.js", src)

	root := g.Add(Node{Kind: KindProgram, Type: "program", Parent: NoNode,
		Span: Span{Start: 0, End: 13}})
	member := g.Add(Node{Kind: KindMemberExpression, Type: "member_expression", Parent: root,
		Span: Span{Start: 0, End: 13}, Object: NoNode, Key: NoNode, Callee: NoNode})
	obj := g.Add(Node{Kind: KindIdentifierReference, Type: "identifier", Parent: member,
		Span: Span{Start: 0, End: 9}, Name: "arguments", Flags: FlagStaticName,
		Object: NoNode, Key: NoNode, Callee: NoNode})
	prop := g.Add(Node{Kind: KindPropertyIdentifier, Type: "property_identifier", Parent: member,
		Span: Span{Start: 10, End: 13}, Name: "map", Flags: FlagStaticName,
		Object: NoNode, Key: NoNode, Callee: NoNode})
	g.Get(member).Object = obj
	g.Get(member).Key = prop

	return g, member, obj, prop
}

func TestGraph_AddAssignsSequentialIDs(t *testing.T) {
	g := NewGraph("a.js", nil)
	first := g.Add(Node{Kind: KindProgram, Parent: NoNode})
	second := g.Add(Node{Kind: KindOther, Parent: first})

	assert.Equal(t, NodeID(0), first)
	assert.Equal(t, NodeID(1), second)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, first, g.Root())
}

func TestGraph_GetOutOfRange(t *testing.T) {
	g := NewGraph("a.js", nil)
	g.Add(Node{Kind: KindProgram, Parent: NoNode})

	assert.Nil(t, g.Get(NoNode))
	assert.Nil(t, g.Get(5))
	assert.Equal(t, KindOther, g.Kind(5))
}

func TestGraph_ParentOfRootIsAbsent(t *testing.T) {
	g, _, obj, _ := buildAccessGraph(t)

	_, ok := g.Parent(g.Root())
	assert.False(t, ok)

	parent, ok := g.Parent(obj)
	require.True(t, ok)
	assert.Equal(t, KindMemberExpression, g.Kind(parent))
}

func TestGraph_AncestorWalk(t *testing.T) {
	g, member, obj, _ := buildAccessGraph(t)

	self, ok := g.Ancestor(obj, 0)
	require.True(t, ok)
	assert.Equal(t, obj, self)

	first, ok := g.Ancestor(obj, 1)
	require.True(t, ok)
	assert.Equal(t, member, first)

	root, ok := g.Ancestor(obj, 2)
	require.True(t, ok)
	assert.Equal(t, g.Root(), root)

	// Walking past the root is absence, not an error.
	_, ok = g.Ancestor(obj, 3)
	assert.False(t, ok)

	_, ok = g.Ancestor(NoNode, 1)
	assert.False(t, ok)
}

func TestGraph_Text(t *testing.T) {
	g, member, obj, prop := buildAccessGraph(t)

	assert.Equal(t, "arguments.map", g.NodeText(member))
	assert.Equal(t, "arguments", g.NodeText(obj))
	assert.Equal(t, "map", g.NodeText(prop))
	assert.Equal(t, "", g.NodeText(99))

	// Out-of-bounds spans degrade to empty text.
	assert.Equal(t, "", g.Text(Span{Start: 5, End: 999}))
	assert.Equal(t, "test.js", g.Path())
}

func TestGraph_IsIdentifierNamed(t *testing.T) {
	g, _, obj, prop := buildAccessGraph(t)

	assert.True(t, g.IsIdentifierNamed(obj, "arguments"))
	assert.False(t, g.IsIdentifierNamed(obj, "Array"))
	// Property identifiers are not references.
	assert.False(t, g.IsIdentifierNamed(prop, "map"))
	assert.False(t, g.IsIdentifierNamed(NoNode, "arguments"))
}

func TestGraph_StaticPropertyName_StaticAccess(t *testing.T) {
	g, member, _, _ := buildAccessGraph(t)

	name, ok := g.StaticPropertyName(member)
	require.True(t, ok)
	assert.Equal(t, "map", name)
}

func TestGraph_StaticPropertyName_ComputedAccess(t *testing.T) {
	src := []byte("arguments['map']")
	g := NewGraph("test.js", src)
	root := g.Add(Node{Kind: KindProgram, Parent: NoNode})
	wrapper := g.Add(Node{Kind: KindMemberExpression, Type: "subscript_expression", Parent: root,
		Object: NoNode, Key: NoNode, Callee: NoNode})
	inner := g.Add(Node{Kind: KindComputedMemberExpression, Type: "subscript_expression", Parent: wrapper,
		Object: NoNode, Key: NoNode, Callee: NoNode})
	obj := g.Add(Node{Kind: KindIdentifierReference, Parent: inner, Name: "arguments",
		Flags: FlagStaticName, Object: NoNode, Key: NoNode, Callee: NoNode})
	key := g.Add(Node{Kind: KindStringLiteral, Parent: inner, Name: "map",
		Flags: FlagStaticName, Object: NoNode, Key: NoNode, Callee: NoNode})
	g.Get(inner).Object = obj
	g.Get(inner).Key = key
	g.Get(wrapper).Object = obj
	g.Get(wrapper).Key = key

	name, ok := g.StaticPropertyName(inner)
	require.True(t, ok)
	assert.Equal(t, "map", name)

	// The wrapper resolves the same way.
	name, ok = g.StaticPropertyName(wrapper)
	require.True(t, ok)
	assert.Equal(t, "map", name)
}

func TestGraph_StaticPropertyName_Unresolvable(t *testing.T) {
	g := NewGraph("test.js", []byte("arguments[m]"))
	root := g.Add(Node{Kind: KindProgram, Parent: NoNode})
	inner := g.Add(Node{Kind: KindComputedMemberExpression, Parent: root,
		Object: NoNode, Key: NoNode, Callee: NoNode})
	key := g.Add(Node{Kind: KindIdentifierReference, Parent: inner, Name: "m",
		Flags: FlagStaticName, Object: NoNode, Key: NoNode, Callee: NoNode})
	g.Get(inner).Key = key

	// An identifier key is never a static property name.
	_, ok := g.StaticPropertyName(inner)
	assert.False(t, ok)

	// Nor is a template with substitutions (no FlagStaticName).
	g.Get(key).Kind = KindTemplateString
	g.Get(key).Flags = 0
	_, ok = g.StaticPropertyName(inner)
	assert.False(t, ok)

	// Non-access nodes resolve to nothing.
	_, ok = g.StaticPropertyName(root)
	assert.False(t, ok)
	_, ok = g.StaticPropertyName(NoNode)
	assert.False(t, ok)
}

func TestKindNames(t *testing.T) {
	tests := []struct {
		kind Kind
		name string
	}{
		{KindProgram, "program"},
		{KindIdentifierReference, "identifier-reference"},
		{KindMemberExpression, "member-expression"},
		{KindComputedMemberExpression, "computed-member-expression"},
		{KindCallExpression, "call-expression"},
		{KindNewExpression, "new-expression"},
		{KindDebuggerStatement, "debugger-statement"},
		{KindOther, "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.name, tt.kind.String())

		k, ok := KindByName(tt.name)
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.kind, k)
	}

	_, ok := KindByName("no-such-kind")
	assert.False(t, ok)

	assert.Equal(t, "other", Kind(200).String())
}
