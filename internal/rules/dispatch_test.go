package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/snag/internal/ast"
	"github.com/jward/snag/internal/parse"
	"github.com/jward/snag/internal/report"
)

// parseJS builds a graph from JavaScript source for dispatcher tests.
func parseJS(t *testing.T, src string) *ast.Graph {
	t.Helper()
	g, err := parse.File(context.Background(), "test.js", []byte(src))
	require.NoError(t, err)
	return g
}

func TestDispatcher_InvokesOnlyInterestedRules(t *testing.T) {
	var idents, calls int
	d := NewDispatcher([]Rule{
		{
			Name:  "count-identifiers",
			Kinds: []ast.Kind{ast.KindIdentifierReference},
			Run:   func(g *ast.Graph, id ast.NodeID, sink *report.Sink) { idents++ },
		},
		{
			Name:  "count-calls",
			Kinds: []ast.Kind{ast.KindCallExpression},
			Run:   func(g *ast.Graph, id ast.NodeID, sink *report.Sink) { calls++ },
		},
	})

	d.Run(parseJS(t, "foo(bar, baz)"))

	assert.Equal(t, 3, idents) // foo, bar, baz
	assert.Equal(t, 1, calls)
}

func TestDispatcher_VisitsEveryNodeOnce(t *testing.T) {
	g := parseJS(t, "function fn(a) { return a + 1 }")

	visited := make(map[ast.NodeID]int)
	kinds := make([]ast.Kind, 0, ast.KindCount)
	for k := ast.Kind(0); k < ast.KindCount; k++ {
		kinds = append(kinds, k)
	}
	d := NewDispatcher([]Rule{{
		Name:  "count-visits",
		Kinds: kinds,
		Run:   func(g *ast.Graph, id ast.NodeID, sink *report.Sink) { visited[id]++ },
	}})
	d.Run(g)

	require.Len(t, visited, g.Len())
	for id, n := range visited {
		assert.Equal(t, 1, n, "node %d visited %d times", id, n)
	}
}

func TestDispatcher_DocumentOrder(t *testing.T) {
	// Two findings in one file come out in source order.
	src := `function a() {arguments.map(() => {})}
function b() {arguments.pop()}`

	diags := NewDispatcher(Default()).Run(parseJS(t, src))
	require.Len(t, diags, 2)
	assert.Less(t, diags[0].Span.Start, diags[1].Span.Start)
}

func TestDispatcher_RegistrationOrderAtSameNode(t *testing.T) {
	mk := func(name string) Rule {
		return Rule{
			Name:  name,
			Kinds: []ast.Kind{ast.KindProgram},
			Run: func(g *ast.Graph, id ast.NodeID, sink *report.Sink) {
				sink.Report(report.Warn(name, name, report.Span{}))
			},
		}
	}
	d := NewDispatcher([]Rule{mk("first"), mk("second")})

	diags := d.Run(parseJS(t, "1"))
	require.Len(t, diags, 2)
	assert.Equal(t, "first", diags[0].Rule)
	assert.Equal(t, "second", diags[1].Rule)
}

func TestDispatcher_Idempotent(t *testing.T) {
	g := parseJS(t, "function fn() {arguments.map(() => {})}\nnew Array(5).map(_ => {})")
	d := NewDispatcher(Default())

	first := d.Run(g)
	second := d.Run(g)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestDefault_FixedOrder(t *testing.T) {
	rs := Default()
	require.Len(t, rs, 2)
	assert.Equal(t, "bad-array-method-on-arguments", rs[0].Name)
	assert.Equal(t, "uninvoked-array-callback", rs[1].Name)
	for _, r := range rs {
		assert.Equal(t, "correctness", r.Category)
		assert.NotEmpty(t, r.Doc)
		assert.NotEmpty(t, r.Kinds)
		assert.NotNil(t, r.Run)
	}
}
