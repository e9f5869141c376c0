// Package snag detects semantically broken JavaScript constructs: code that
// parses cleanly but cannot do what it says, like calling an array method
// on the arguments object or mapping over an array that has only empty
// slots.
//
// # Pipeline
//
// For each file, snag parses the source with tree-sitter, builds an
// immutable node graph with stable identities and parent links, and runs
// every registered rule over the graph in document order. Rules classify a
// node's syntactic role by walking a bounded number of ancestor links and
// push findings into a diagnostic sink. Files are analyzed in parallel;
// each file's run is strictly sequential and self-contained.
//
// # Usage
//
//	engine, err := snag.New(snag.WithCache(".snag/cache.db"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	result, err := engine.CheckDirectory(ctx, ".")
//	for _, file := range result.Files {
//		for _, d := range file.Diagnostics {
//			fmt.Printf("%s:%d:%d %s\n", file.Path, d.Span.StartLine, d.Span.StartCol, d.Message)
//		}
//	}
//
// Custom rules can be written as Risor scripts; see the scripts/rules
// directory for the bundled examples.
package snag
