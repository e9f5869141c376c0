package rules

import (
	"fmt"

	"github.com/jward/snag/internal/ast"
	"github.com/jward/snag/internal/report"
)

// BadArrayMethodOnArguments flags array methods called directly on the
// arguments object. The arguments object is array-like, not an array, so
// the call throws at runtime.
func BadArrayMethodOnArguments() Rule {
	return Rule{
		Name:     "bad-array-method-on-arguments",
		Category: "correctness",
		Doc:      "Disallow calling array methods directly on the arguments object.",
		Kinds:    []ast.Kind{ast.KindIdentifierReference},
		Run:      runBadArrayMethod,
	}
}

func badArrayMethodDiagnostic(methodName string, span report.Span) report.Diagnostic {
	return report.Warn("bad-array-method-on-arguments", "Bad array method on arguments", span).
		WithCategory("correctness").
		WithHelp(fmt.Sprintf("The 'arguments' object does not have a '%s()' method. "+
			"If you intended to use an array method, consider converting the 'arguments' object "+
			"to an array or using an ES6 rest parameter instead.", methodName))
}

func runBadArrayMethod(g *ast.Graph, id ast.NodeID, sink *report.Sink) {
	if !g.IsIdentifierNamed(id, "arguments") {
		return
	}
	accessID, ok := g.Parent(id)
	if !ok {
		return
	}
	access := g.Get(accessID)

	// The enclosing call sits at a different depth for the two access
	// forms: a computed access carries a wrapper node between itself and
	// the call, so the walk goes one level further than the static case.
	switch access.Kind {
	case ast.KindMemberExpression:
		callID, ok := g.Ancestor(id, 2)
		if !ok || !calleeIs(g, callID, accessID) {
			return
		}
	case ast.KindComputedMemberExpression:
		wrapperID, _ := g.Ancestor(id, 2)
		callID, ok := g.Ancestor(id, 3)
		if !ok || !calleeIs(g, callID, wrapperID) {
			return
		}
	default:
		return
	}

	name, ok := g.StaticPropertyName(accessID)
	if !ok || !isArrayMethod(name) {
		return
	}
	key := g.Get(access.Key)
	sink.Report(badArrayMethodDiagnostic(name, report.SpanOf(key.Span)))
}

// calleeIs reports whether callID is a call expression whose callee is
// exactly the given node.
func calleeIs(g *ast.Graph, callID, calleeID ast.NodeID) bool {
	call := g.Get(callID)
	return call != nil && call.Kind == ast.KindCallExpression && call.Callee == calleeID
}
