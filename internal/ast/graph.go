// Package ast holds the immutable node graph the analysis engine runs
// over: an arena of nodes with stable integer identities, single parent
// links, and bounded ancestor walks. A graph is built once per file by the
// parser and is read-only afterwards.
package ast

// Graph is the arena of nodes for one source file. Node zero is the root
// (the program node). The graph owns the source bytes so spans can be
// turned back into text without the original file.
type Graph struct {
	path  string
	src   []byte
	nodes []Node
}

// NewGraph returns an empty graph for the given file. Only builders append
// to it; once handed to the engine it is treated as read-only.
func NewGraph(path string, src []byte) *Graph {
	return &Graph{path: path, src: src}
}

// Add appends a node and returns its identity. Append-only: nodes are never
// removed or renumbered.
func (g *Graph) Add(n Node) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, n)
	return id
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Root returns the root node's identity. Valid once the graph is non-empty.
func (g *Graph) Root() NodeID {
	return 0
}

// Path returns the file path the graph was built from.
func (g *Graph) Path() string {
	return g.path
}

// Source returns the source bytes the graph was built from.
func (g *Graph) Source() []byte {
	return g.src
}

// Get returns the node for id, or nil when id is not in the graph. Graph
// lookups never fail: absence is a nil, not an error.
func (g *Graph) Get(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return &g.nodes[id]
}

// Kind returns the kind of id, or KindOther when id is not in the graph.
func (g *Graph) Kind(id NodeID) Kind {
	if n := g.Get(id); n != nil {
		return n.Kind
	}
	return KindOther
}

// Parent returns the parent of id. The second result is false for the root
// and for ids not in the graph.
func (g *Graph) Parent(id NodeID) (NodeID, bool) {
	n := g.Get(id)
	if n == nil || n.Parent == NoNode {
		return NoNode, false
	}
	return n.Parent, true
}

// Ancestor walks k parent links from id. It reports false when the walk
// runs past the root — absence, not an error. Ancestor(id, 0) is id itself.
func (g *Graph) Ancestor(id NodeID, k int) (NodeID, bool) {
	if g.Get(id) == nil {
		return NoNode, false
	}
	for ; k > 0; k-- {
		next, ok := g.Parent(id)
		if !ok {
			return NoNode, false
		}
		id = next
	}
	return id, true
}

// Text returns the source text covered by a span.
func (g *Graph) Text(sp Span) string {
	start, end := int(sp.Start), int(sp.End)
	if start < 0 || end > len(g.src) || start > end {
		return ""
	}
	return string(g.src[start:end])
}

// NodeText returns the source text of a node, "" for unknown ids.
func (g *Graph) NodeText(id NodeID) string {
	n := g.Get(id)
	if n == nil {
		return ""
	}
	return g.Text(n.Span)
}

// IsIdentifierNamed reports whether id is an identifier reference with
// exactly the given name.
func (g *Graph) IsIdentifierNamed(id NodeID, name string) bool {
	n := g.Get(id)
	return n != nil && n.Kind == KindIdentifierReference && n.Name == name
}

// StaticPropertyName resolves the property name of a property-access node
// without evaluation. For a static access it is the property identifier's
// text; for a computed access it is the key's value when the key is a
// string literal or a substitution-free template string. Reports false when
// the name is not statically known.
func (g *Graph) StaticPropertyName(accessID NodeID) (string, bool) {
	access := g.Get(accessID)
	if access == nil {
		return "", false
	}
	if access.Kind != KindMemberExpression && access.Kind != KindComputedMemberExpression {
		return "", false
	}
	key := g.Get(access.Key)
	if key == nil {
		return "", false
	}
	switch key.Kind {
	case KindPropertyIdentifier, KindStringLiteral, KindTemplateString:
		if key.Flags&FlagStaticName != 0 {
			return key.Name, true
		}
	}
	return "", false
}
