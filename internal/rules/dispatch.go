package rules

import (
	"github.com/jward/snag/internal/ast"
	"github.com/jward/snag/internal/report"
)

// Dispatcher runs an ordered rule list over node graphs. The kind-interest
// table is built once at construction; a Dispatcher is read-only afterwards
// and safe for concurrent use by any number of workers.
type Dispatcher struct {
	rules  []Rule
	byKind [ast.KindCount][]int
}

// NewDispatcher builds a dispatcher over the given rules. Rule order is
// preserved: when several rules are interested in the same kind they run in
// registration order at each node.
func NewDispatcher(rs []Rule) *Dispatcher {
	d := &Dispatcher{rules: rs}
	for i, r := range rs {
		for _, k := range r.Kinds {
			if k < ast.KindCount {
				d.byKind[k] = append(d.byKind[k], i)
			}
		}
	}
	return d
}

// Rules returns the registered rules in order.
func (d *Dispatcher) Rules() []Rule {
	return d.rules
}

// Run visits every node exactly once in document order (node IDs are
// assigned in preorder, so ID order is a single left-to-right depth-first
// walk) and invokes each interested rule. Diagnostics come back in
// insertion order.
func (d *Dispatcher) Run(g *ast.Graph) []report.Diagnostic {
	var sink report.Sink
	for id := ast.NodeID(0); int(id) < g.Len(); id++ {
		for _, i := range d.byKind[g.Kind(id)] {
			d.rules[i].Run(g, id, &sink)
		}
	}
	return sink.Diagnostics()
}
