// Package rules holds the detector contract, the built-in detectors, and
// the dispatcher that drives them over a node graph.
package rules

import (
	"github.com/jward/snag/internal/ast"
	"github.com/jward/snag/internal/report"
)

// Rule is one detector. Run is invoked once per node whose kind appears in
// Kinds; it must be stateless across invocations and communicate only
// through the sink. Name and Category identify the rule for configuration
// and suppression.
type Rule struct {
	Name     string
	Category string
	Doc      string
	Kinds    []ast.Kind
	Run      func(g *ast.Graph, id ast.NodeID, sink *report.Sink)
}

// Default returns the built-in rules in their fixed registration order.
func Default() []Rule {
	return []Rule{
		BadArrayMethodOnArguments(),
		UninvokedArrayCallback(),
	}
}
