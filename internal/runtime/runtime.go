// Package runtime embeds a Risor VM so custom rules can be written as
// scripts instead of Go code. Each .risor script becomes one engine rule:
// it is invoked at the program node, traverses the node graph through host
// functions, and reports findings through the shared sink.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"

	"github.com/jward/snag/internal/ast"
	"github.com/jward/snag/internal/report"
	"github.com/jward/snag/internal/rules"
)

// Runtime loads Risor rule scripts and wraps them as engine rules.
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
	logger     *slog.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithFS configures the Runtime to load scripts from an fs.FS instead of
// from disk. This enables embedding scripts via go:embed.
func WithFS(fsys fs.FS) Option {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger sets the logger script runtime failures are reported through.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// New creates a Runtime that loads scripts from scriptsDir, or from the
// fs.FS when WithFS is given. scriptsDir may be empty in that case.
func New(scriptsDir string, opts ...Option) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadScript reads a .risor file and returns its source code. When an fs.FS
// is configured, uses fs.ReadFile on it; otherwise os.ReadFile with
// scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// ScriptPaths lists every .risor script the Runtime can see, sorted by path
// so rule registration order is stable.
func (r *Runtime) ScriptPaths() []string {
	var paths []string
	if r.fsys != nil {
		fs.WalkDir(r.fsys, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				paths = append(paths, path)
			}
			return nil
		})
	} else if r.scriptsDir != "" {
		filepath.WalkDir(r.scriptsDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				rel, _ := filepath.Rel(r.scriptsDir, path)
				paths = append(paths, rel)
			}
			return nil
		})
	}
	sort.Strings(paths)
	return paths
}

// Rules loads every script and returns one engine rule per script, in path
// order. Script names derive from filenames: rules/no-debugger.risor
// registers as "no-debugger". Load errors surface here, at construction,
// not mid-analysis.
func (r *Runtime) Rules() ([]rules.Rule, error) {
	var out []rules.Rule
	for _, path := range r.ScriptPaths() {
		src, err := r.LoadScript(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), ".risor")
		out = append(out, r.scriptRule(name, path, src))
	}
	return out, nil
}

// scriptRule wraps one script as a rule interested in the program node. A
// script runtime failure is logged and yields no diagnostics: the analysis
// run itself never fails.
func (r *Runtime) scriptRule(name, path, src string) rules.Rule {
	return rules.Rule{
		Name:     name,
		Category: "script",
		Doc:      fmt.Sprintf("Scripted rule from %s.", path),
		Kinds:    []ast.Kind{ast.KindProgram},
		Run: func(g *ast.Graph, _ ast.NodeID, sink *report.Sink) {
			if err := r.run(name, src, g, sink); err != nil {
				r.logger.Warn("rule script failed", "rule", name, "file", g.Path(), "error", err)
			}
		},
	}
}

// run evaluates a script against one file's graph. The dispatch path has no
// cancellation, so the VM gets a background context.
func (r *Runtime) run(name, src string, g *ast.Graph, sink *report.Sink) error {
	globals := buildGlobals(newRunState(name, g, sink), r.logger)

	var opts []risor.Option
	for gname, val := range globals {
		opts = append(opts, risor.WithGlobal(gname, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(context.Background(), src, opts...); err != nil {
		return fmt.Errorf("runtime: script %s: %w", name, err)
	}
	return nil
}

// buildImporter returns a Risor importer for the Runtime's script source so
// scripts can share helper modules. Returns nil when neither fs.FS nor
// scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}
