package ast

// NodeID is a node's stable identity within one Graph. IDs are assigned in
// preorder during construction and never reused for the graph's lifetime.
type NodeID int32

// NoNode marks the absence of a node link (no parent, no callee, ...).
const NoNode NodeID = -1

// Point is a zero-based row/column position.
type Point struct {
	Row uint32
	Col uint32
}

// Span is a half-open byte range [Start, End) with row/column endpoints.
type Span struct {
	Start      uint32
	End        uint32
	StartPoint Point
	EndPoint   Point
}

// NodeFlags carries boolean per-node facts.
type NodeFlags uint8

const (
	// FlagStaticName marks nodes whose Name field holds a statically known
	// string: identifiers and properties always, string and template
	// literals only when their value is resolvable without evaluation.
	FlagStaticName NodeFlags = 1 << iota
)

// Node is one syntactic construct. Link fields (Parent, Object, Key,
// Callee, Args) hold NodeIDs within the same graph, NoNode when absent.
//
// A computed property access produces two nodes: an inner
// KindComputedMemberExpression holding Object and Key, whose parent is an
// outer KindMemberExpression wrapper with the same span. A static access is
// a single KindMemberExpression whose Key is the property node. Detector
// ancestor walks depend on this shape.
type Node struct {
	Kind  Kind
	Type  string // concrete syntax type, e.g. "member_expression"
	Flags NodeFlags

	Parent NodeID
	Span   Span

	// Name holds identifier/property text, or the resolved value of a
	// string/template literal when FlagStaticName is set.
	Name string

	Object NodeID // property accesses: the accessed object
	Key    NodeID // property accesses: property node or key expression
	Callee NodeID // calls and constructions
	Args   []NodeID
}
