package rules

import (
	"github.com/jward/snag/internal/ast"
	"github.com/jward/snag/internal/report"
)

// UninvokedArrayCallback flags callback-taking array methods invoked on an
// array constructed with a single numeric length. Such an array has only
// empty slots, so iteration callbacks never run.
func UninvokedArrayCallback() Rule {
	return Rule{
		Name:     "uninvoked-array-callback",
		Category: "correctness",
		Doc:      "Disallow passing callbacks to array methods of an array constructed with a bare length.",
		Kinds:    []ast.Kind{ast.KindNewExpression},
		Run:      runUninvokedCallback,
	}
}

func uninvokedCallbackDiagnostic(cbSpan, arrSpan report.Span) report.Diagnostic {
	return report.Warn("uninvoked-array-callback", "Uninvoked array callback", cbSpan).
		WithCategory("correctness").
		WithHelp("consider filling the array with `undefined` values using `Array.prototype.fill()`").
		WithLabel(cbSpan, "this callback will not be invoked").
		WithLabel(arrSpan, "because this is an array with only empty slots")
}

func runUninvokedCallback(g *ast.Graph, id ast.NodeID, sink *report.Sink) {
	node := g.Get(id)
	if !g.IsIdentifierNamed(node.Callee, "Array") {
		return
	}
	// A single numeric argument constructs empty slots; anything else
	// constructs elements.
	if len(node.Args) != 1 || g.Kind(node.Args[0]) != ast.KindNumericLiteral {
		return
	}

	accessID, ok := g.Parent(id)
	if !ok {
		return
	}
	access := g.Get(accessID)

	// Same wrapper asymmetry as the access walk in bad_array_method: the
	// call is the grandparent for a static access, one level further for a
	// computed one.
	var callID ast.NodeID
	switch access.Kind {
	case ast.KindMemberExpression:
		callID, ok = g.Ancestor(id, 2)
	case ast.KindComputedMemberExpression:
		callID, ok = g.Ancestor(id, 3)
	default:
		return
	}
	if !ok {
		return
	}
	call := g.Get(callID)
	if call.Kind != ast.KindCallExpression || len(call.Args) == 0 {
		return
	}
	switch g.Kind(call.Args[0]) {
	case ast.KindFunctionExpression, ast.KindArrowFunction:
	default:
		return
	}

	key := g.Get(access.Key)
	if key == nil {
		return
	}
	sink.Report(uninvokedCallbackDiagnostic(report.SpanOf(key.Span), report.SpanOf(node.Span)))
}
