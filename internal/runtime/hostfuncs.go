package runtime

import (
	"context"
	"log/slog"

	"github.com/risor-io/risor/object"

	"github.com/jward/snag/internal/ast"
	"github.com/jward/snag/internal/report"
)

// runState is everything one script invocation can see: the graph under
// analysis, the sink, and a child index built once per run (the graph only
// stores parent links).
type runState struct {
	rule     string
	g        *ast.Graph
	sink     *report.Sink
	children [][]ast.NodeID
}

func newRunState(rule string, g *ast.Graph, sink *report.Sink) *runState {
	st := &runState{
		rule:     rule,
		g:        g,
		sink:     sink,
		children: make([][]ast.NodeID, g.Len()),
	}
	for id := ast.NodeID(0); int(id) < g.Len(); id++ {
		if parent, ok := g.Parent(id); ok {
			st.children[parent] = append(st.children[parent], id)
		}
	}
	return st
}

// buildGlobals constructs the full set of globals exposed to a rule script.
func buildGlobals(st *runState, logger *slog.Logger) map[string]any {
	return map[string]any{
		"file_path":   makeFilePathFn(st),
		"source":      makeSourceFn(st),
		"nodes":       makeNodesFn(st),
		"node_kind":   makeNodeKindFn(st),
		"node_type":   makeNodeTypeFn(st),
		"node_text":   makeNodeTextFn(st),
		"node_name":   makeNodeNameFn(st),
		"node_parent": makeNodeParentFn(st),
		"node_span":   makeNodeSpanFn(st),
		"child_count": makeChildCountFn(st),
		"child":       makeChildFn(st),
		"report":      makeReportFn(st),
		"log":         mustProxy(&logObject{logger: logger}),
	}
}

// nodeArg resolves an integer argument to a node, reporting nil for ids
// outside the graph (absence, not an error — scripts walk like detectors).
func nodeArg(st *runState, arg object.Object) (ast.NodeID, *ast.Node, bool) {
	i, ok := arg.(*object.Int)
	if !ok {
		return ast.NoNode, nil, false
	}
	id := ast.NodeID(i.Value())
	return id, st.g.Get(id), true
}

// makeFilePathFn creates "file_path".
//
// file_path() → string
func makeFilePathFn(st *runState) *object.Builtin {
	return object.NewBuiltin("file_path", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("file_path", 0, len(args))
		}
		return object.NewString(st.g.Path())
	})
}

// makeSourceFn creates "source".
//
// source() → string
func makeSourceFn(st *runState) *object.Builtin {
	return object.NewBuiltin("source", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("source", 0, len(args))
		}
		return object.NewString(string(st.g.Source()))
	})
}

// makeNodesFn creates "nodes" — the entry point for script traversal.
//
// nodes(kind) → []int, node ids of that kind in document order
func makeNodesFn(st *runState) *object.Builtin {
	return object.NewBuiltin("nodes", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("nodes", 1, len(args))
		}
		kindStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("nodes: kind must be a string, got %s", args[0].Type())
		}
		kind, ok := ast.KindByName(kindStr.Value())
		if !ok {
			return object.Errorf("nodes: unknown kind %q", kindStr.Value())
		}

		ids := []object.Object{}
		for id := ast.NodeID(0); int(id) < st.g.Len(); id++ {
			if st.g.Kind(id) == kind {
				ids = append(ids, object.NewInt(int64(id)))
			}
		}
		return object.NewList(ids)
	})
}

// makeNodeKindFn creates "node_kind".
//
// node_kind(id) → string, e.g. "call-expression"
func makeNodeKindFn(st *runState) *object.Builtin {
	return object.NewBuiltin("node_kind", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_kind", 1, len(args))
		}
		_, n, ok := nodeArg(st, args[0])
		if !ok {
			return object.Errorf("node_kind: id must be an int, got %s", args[0].Type())
		}
		if n == nil {
			return object.Nil
		}
		return object.NewString(n.Kind.String())
	})
}

// makeNodeTypeFn creates "node_type".
//
// node_type(id) → string, the concrete syntax type, e.g. "member_expression"
func makeNodeTypeFn(st *runState) *object.Builtin {
	return object.NewBuiltin("node_type", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_type", 1, len(args))
		}
		_, n, ok := nodeArg(st, args[0])
		if !ok {
			return object.Errorf("node_type: id must be an int, got %s", args[0].Type())
		}
		if n == nil {
			return object.Nil
		}
		return object.NewString(n.Type)
	})
}

// makeNodeTextFn creates "node_text".
//
// node_text(id) → string, the source text the node covers
func makeNodeTextFn(st *runState) *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		id, n, ok := nodeArg(st, args[0])
		if !ok {
			return object.Errorf("node_text: id must be an int, got %s", args[0].Type())
		}
		if n == nil {
			return object.Nil
		}
		return object.NewString(st.g.NodeText(id))
	})
}

// makeNodeNameFn creates "node_name".
//
// node_name(id) → string or nil; identifier/property text, or the resolved
// value of a string/template literal when it is statically known
func makeNodeNameFn(st *runState) *object.Builtin {
	return object.NewBuiltin("node_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_name", 1, len(args))
		}
		_, n, ok := nodeArg(st, args[0])
		if !ok {
			return object.Errorf("node_name: id must be an int, got %s", args[0].Type())
		}
		if n == nil || n.Flags&ast.FlagStaticName == 0 {
			return object.Nil
		}
		return object.NewString(n.Name)
	})
}

// makeNodeParentFn creates "node_parent".
//
// node_parent(id) → int or nil (the root has no parent)
func makeNodeParentFn(st *runState) *object.Builtin {
	return object.NewBuiltin("node_parent", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_parent", 1, len(args))
		}
		id, _, ok := nodeArg(st, args[0])
		if !ok {
			return object.Errorf("node_parent: id must be an int, got %s", args[0].Type())
		}
		parent, ok := st.g.Parent(id)
		if !ok {
			return object.Nil
		}
		return object.NewInt(int64(parent))
	})
}

// makeNodeSpanFn creates "node_span".
//
// node_span(id) → map with start/end byte offsets and 1-based line/col
func makeNodeSpanFn(st *runState) *object.Builtin {
	return object.NewBuiltin("node_span", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_span", 1, len(args))
		}
		_, n, ok := nodeArg(st, args[0])
		if !ok {
			return object.Errorf("node_span: id must be an int, got %s", args[0].Type())
		}
		if n == nil {
			return object.Nil
		}
		sp := report.SpanOf(n.Span)
		return object.NewMap(map[string]object.Object{
			"start":      object.NewInt(int64(sp.Start)),
			"end":        object.NewInt(int64(sp.End)),
			"start_line": object.NewInt(int64(sp.StartLine)),
			"start_col":  object.NewInt(int64(sp.StartCol)),
			"end_line":   object.NewInt(int64(sp.EndLine)),
			"end_col":    object.NewInt(int64(sp.EndCol)),
		})
	})
}

// makeChildCountFn creates "child_count".
//
// child_count(id) → int
func makeChildCountFn(st *runState) *object.Builtin {
	return object.NewBuiltin("child_count", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("child_count", 1, len(args))
		}
		id, n, ok := nodeArg(st, args[0])
		if !ok {
			return object.Errorf("child_count: id must be an int, got %s", args[0].Type())
		}
		if n == nil {
			return object.NewInt(0)
		}
		return object.NewInt(int64(len(st.children[id])))
	})
}

// makeChildFn creates "child".
//
// child(id, i) → int or nil
func makeChildFn(st *runState) *object.Builtin {
	return object.NewBuiltin("child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("child", 2, len(args))
		}
		id, n, ok := nodeArg(st, args[0])
		if !ok {
			return object.Errorf("child: id must be an int, got %s", args[0].Type())
		}
		idx, ok := args[1].(*object.Int)
		if !ok {
			return object.Errorf("child: index must be an int, got %s", args[1].Type())
		}
		if n == nil {
			return object.Nil
		}
		kids := st.children[id]
		i := int(idx.Value())
		if i < 0 || i >= len(kids) {
			return object.Nil
		}
		return object.NewInt(int64(kids[i]))
	})
}

// makeReportFn creates "report" — the only way a script produces output.
//
//	report({
//	    "node":    id,       // required: primary span
//	    "message": "...",    // required
//	    "help":    "...",    // optional
//	    "labels":  [{"node": id, "message": "..."}],  // optional
//	})
func makeReportFn(st *runState) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("report", 1, len(args))
		}
		m, ok := args[0].(*object.Map)
		if !ok {
			return object.Errorf("report: expected a map, got %s", args[0].Type())
		}
		fields := m.Value()

		_, n, ok := nodeArg(st, fields["node"])
		if !ok || n == nil {
			return object.Errorf("report: 'node' must be a valid node id")
		}
		msg, ok := fields["message"].(*object.String)
		if !ok {
			return object.Errorf("report: 'message' must be a string")
		}

		d := report.Warn(st.rule, msg.Value(), report.SpanOf(n.Span)).WithCategory("script")
		if help, ok := fields["help"].(*object.String); ok {
			d = d.WithHelp(help.Value())
		}
		if labels, ok := fields["labels"].(*object.List); ok {
			for _, item := range labels.Value() {
				lm, ok := item.(*object.Map)
				if !ok {
					return object.Errorf("report: labels must be maps")
				}
				lv := lm.Value()
				_, ln, ok := nodeArg(st, lv["node"])
				if !ok || ln == nil {
					return object.Errorf("report: label 'node' must be a valid node id")
				}
				lmsg, ok := lv["message"].(*object.String)
				if !ok {
					return object.Errorf("report: label 'message' must be a string")
				}
				d = d.WithLabel(report.SpanOf(ln.Span), lmsg.Value())
			}
		}

		st.sink.Report(d)
		return object.Nil
	})
}

// logObject provides log.info/warn/error methods for rule scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string)  { l.logger.Info(msg) }
func (l *logObject) Warn(msg string)  { l.logger.Warn(msg) }
func (l *logObject) Error(msg string) { l.logger.Error(msg) }

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic("runtime: proxy error: " + err.Error())
	}
	return p
}
