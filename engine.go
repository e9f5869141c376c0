package snag

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/jward/snag/internal/cache"
	"github.com/jward/snag/internal/config"
	"github.com/jward/snag/internal/parse"
	"github.com/jward/snag/internal/report"
	"github.com/jward/snag/internal/rules"
	snagrt "github.com/jward/snag/internal/runtime"
)

// Engine orchestrates the snag pipeline: file discovery, change detection
// against the result cache, per-file parse and rule dispatch, and result
// assembly.
type Engine struct {
	rules      []rules.Rule
	dispatcher *rules.Dispatcher

	// severities holds per-rule severity overrides applied to diagnostics
	// after dispatch, so the detectors stay stateless.
	severities map[string]report.Severity

	cache  *cache.Cache
	logger *slog.Logger

	// useParallel enables the parallel per-file pipeline.
	useParallel bool
	jobs        int

	scriptsDir string
	scriptsFS  fs.FS

	// scriptSrcs carries loaded script sources into the cache fingerprint.
	scriptSrcs []string

	cachePath string
	cfg       *config.Config
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the built-in rule set. The default is rules.Default().
func WithRules(rs []Rule) Option {
	return func(e *Engine) {
		e.rules = rs
	}
}

// WithScriptsFS loads Risor rule scripts from the given filesystem, which
// enables embedding scripts via go:embed. Every .risor file becomes one
// rule named after its filename.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithScriptsDir loads Risor rule scripts from a directory on disk.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithCache enables the SQLite result cache at dbPath. Unchanged files
// replay their stored diagnostics without re-analysis.
func WithCache(dbPath string) Option {
	return func(e *Engine) {
		e.cachePath = dbPath
	}
}

// WithParallel controls parallel analysis. When true (default), CheckFiles
// uses a worker pool for parsing and dispatch, with serial preparation and
// commit phases around it. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithJobs sets the worker count for parallel analysis. Zero means one
// worker per CPU.
func WithJobs(n int) Option {
	return func(e *Engine) {
		e.jobs = n
	}
}

// WithLogger sets the logger for engine progress and skip events. The
// default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConfig applies a loaded snag.json: rule severity overrides, worker
// count, cache and script-rule toggles. Unknown rule names are rejected at
// construction.
func WithConfig(cfg *Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// New creates an Engine. Script rules are loaded and configuration applied
// here, so a broken script or config surfaces at construction rather than
// mid-analysis.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		rules:       rules.Default(),
		severities:  make(map[string]report.Severity),
		logger:      slog.New(slog.DiscardHandler),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	// Config toggles that gate construction come first; rule overrides wait
	// until script rules exist so they can target those too.
	if e.cfg != nil {
		if e.cfg.ScriptRules != nil && !*e.cfg.ScriptRules {
			e.scriptsFS = nil
			e.scriptsDir = ""
		}
		if e.cfg.Cache != nil && !*e.cfg.Cache {
			e.cachePath = ""
		}
		if e.jobs == 0 {
			e.jobs = e.cfg.Jobs
		}
	}

	if e.scriptsFS != nil || e.scriptsDir != "" {
		if err := e.loadScriptRules(); err != nil {
			return nil, err
		}
	}

	if e.cfg != nil {
		if err := e.applyRuleOverrides(e.cfg.Rules); err != nil {
			return nil, err
		}
	}

	e.dispatcher = rules.NewDispatcher(e.rules)

	if e.cachePath != "" {
		c, err := cache.Open(e.cachePath)
		if err != nil {
			return nil, fmt.Errorf("snag: open cache: %w", err)
		}
		reset, err := c.EnsureFingerprint(e.rulesFingerprint())
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("snag: verify cache: %w", err)
		}
		if reset {
			e.logger.Info("rule set changed, cache reset", "path", e.cachePath)
		}
		e.cache = c
	}

	return e, nil
}

// loadScriptRules appends one rule per Risor script to the rule list.
func (e *Engine) loadScriptRules() error {
	rtOpts := []snagrt.Option{snagrt.WithLogger(e.logger)}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, snagrt.WithFS(e.scriptsFS))
	}
	rt := snagrt.New(e.scriptsDir, rtOpts...)

	scriptRules, err := rt.Rules()
	if err != nil {
		return fmt.Errorf("snag: load rule scripts: %w", err)
	}
	e.rules = append(e.rules, scriptRules...)

	for _, path := range rt.ScriptPaths() {
		src, err := rt.LoadScript(path)
		if err != nil {
			return fmt.Errorf("snag: load rule scripts: %w", err)
		}
		e.scriptSrcs = append(e.scriptSrcs, path+"\x00"+src)
	}
	return nil
}

// applyRuleOverrides rewrites the rule list per config: "off" removes a
// rule, "warn" and "error" set the severity its diagnostics carry.
func (e *Engine) applyRuleOverrides(overrides map[string]string) error {
	for name, sev := range overrides {
		idx := -1
		for i, r := range e.rules {
			if r.Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("snag: unknown rule %q in config", name)
		}
		switch sev {
		case "off":
			e.rules = append(e.rules[:idx], e.rules[idx+1:]...)
		case "warn":
			e.severities[name] = report.SeverityWarning
		case "error":
			e.severities[name] = report.SeverityError
		default:
			return fmt.Errorf("snag: invalid severity %q for rule %q", sev, name)
		}
	}
	return nil
}

// Close releases the Engine's cache resources.
func (e *Engine) Close() error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Close()
}

// Rules returns the registered rules in dispatch order.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// rulesFingerprint computes a SHA-256 hash over everything that can change
// an analysis result: rule identities, severity overrides, the array-method
// vocabulary, and script sources. Stored in the cache's metadata so a rule
// change never replays stale diagnostics.
func (e *Engine) rulesFingerprint() string {
	h := sha256.New()
	for _, r := range e.rules {
		fmt.Fprintf(h, "rule\x00%s\x00%s\x00%s\n", r.Name, r.Category, r.Doc)
	}

	overridden := make([]string, 0, len(e.severities))
	for name := range e.severities {
		overridden = append(overridden, name)
	}
	sort.Strings(overridden)
	for _, name := range overridden {
		fmt.Fprintf(h, "severity\x00%s\x00%s\n", name, e.severities[name])
	}

	for _, m := range rules.ArrayMethods() {
		fmt.Fprintf(h, "vocab\x00%s\n", m)
	}
	for _, s := range e.scriptSrcs {
		fmt.Fprintf(h, "script\x00%s\n", s)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// applySeverities stamps configured severity overrides onto fresh
// diagnostics. Cached results already carry their final severities.
func (e *Engine) applySeverities(diags []report.Diagnostic) []report.Diagnostic {
	if len(e.severities) == 0 {
		return diags
	}
	for i, d := range diags {
		if sev, ok := e.severities[d.Rule]; ok {
			diags[i] = d.WithSeverity(sev)
		}
	}
	return diags
}

// analyze runs the full per-file pipeline over in-memory source: parse,
// dispatch, severity overrides.
func (e *Engine) analyze(ctx context.Context, path string, src []byte) ([]report.Diagnostic, error) {
	g, err := parse.File(ctx, path, src)
	if err != nil {
		return nil, err
	}
	return e.applySeverities(e.dispatcher.Run(g)), nil
}

// CheckSource analyzes one in-memory file. The cache is not consulted.
func (e *Engine) CheckSource(ctx context.Context, path string, src []byte) ([]Diagnostic, error) {
	return e.analyze(ctx, path, src)
}

// FileResult holds one file's findings in document order.
type FileResult struct {
	Path        string       `json:"path"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	// Cached reports whether the diagnostics were replayed from the result
	// cache instead of re-analyzed.
	Cached bool `json:"cached,omitempty"`
}

// Result is the outcome of one batch. File order is input order.
type Result struct {
	Files []FileResult `json:"files"`
}

// Diagnostics flattens all findings in file order.
func (r *Result) Diagnostics() []Diagnostic {
	var out []Diagnostic
	for _, f := range r.Files {
		out = append(out, f.Diagnostics...)
	}
	return out
}

// Count returns the number of diagnostics at the given severity.
func (r *Result) Count(sev Severity) int {
	n := 0
	for _, f := range r.Files {
		for _, d := range f.Diagnostics {
			if d.Severity == sev {
				n++
			}
		}
	}
	return n
}

// CacheHits returns how many files were served from the cache.
func (r *Result) CacheHits() int {
	n := 0
	for _, f := range r.Files {
		if f.Cached {
			n++
		}
	}
	return n
}

// CheckFiles analyzes the given paths. When WithParallel is enabled, a
// worker pool runs parse and dispatch concurrently between serial prepare
// and commit phases; otherwise files run one at a time. Errors on
// individual files are collected, not fatal: the returned Result covers
// every file that could be analyzed.
func (e *Engine) CheckFiles(ctx context.Context, paths []string) (*Result, error) {
	if e.useParallel {
		return e.checkFilesParallel(ctx, paths)
	}
	return e.checkFilesSerial(ctx, paths)
}

func (e *Engine) checkFilesSerial(ctx context.Context, paths []string) (*Result, error) {
	res := &Result{}
	var errs []error
	for _, path := range paths {
		fr, err := e.checkFile(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("check %s: %w", path, err))
			continue
		}
		res.Files = append(res.Files, fr)
	}
	if len(errs) > 0 {
		return res, fmt.Errorf("checking had %d error(s): %w", len(errs), errs[0])
	}
	return res, nil
}

func (e *Engine) checkFile(ctx context.Context, path string) (FileResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("read file: %w", err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	if e.cache != nil {
		diags, hit, err := e.cache.Lookup(path, hash)
		if err != nil {
			return FileResult{}, fmt.Errorf("cache lookup: %w", err)
		}
		if hit {
			e.logger.Debug("cache hit", "file", path)
			return FileResult{Path: path, Diagnostics: diags, Cached: true}, nil
		}
	}

	diags, err := e.analyze(ctx, path, content)
	if err != nil {
		return FileResult{}, err
	}
	if e.cache != nil {
		if err := e.cache.Store(path, hash, diags); err != nil {
			return FileResult{}, fmt.Errorf("cache store: %w", err)
		}
	}
	return FileResult{Path: path, Diagnostics: diags}, nil
}

// jsExtensions are the file extensions CheckDirectory considers.
var jsExtensions = map[string]bool{
	".js":  true,
	".jsx": true,
	".mjs": true,
	".cjs": true,
}

func isJSFile(path string) bool {
	return jsExtensions[strings.ToLower(filepath.Ext(path))]
}

// skipDirs are directories the filesystem walk excludes outright.
var skipDirs = map[string]bool{
	"node_modules":     true,
	"bower_components": true,
}

// CheckDirectory discovers JavaScript files under root and analyzes them.
// If root is inside a git repository, uses git ls-files to respect
// .gitignore. Falls back to a filesystem walk (skipping hidden dirs,
// node_modules, bower_components, and .gitignore matches) if git is
// unavailable.
func (e *Engine) CheckDirectory(ctx context.Context, root string) (*Result, error) {
	paths, err := e.gitListFiles(root)
	if err != nil {
		// Not a git repo or git not available — fall back to walk.
		paths, err = e.walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	return e.CheckFiles(ctx, paths)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to JavaScript extensions.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isJSFile(line) {
			paths = append(paths, filepath.Join(root, line))
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a
// fallback when git is not available. Honors a root .gitignore when one
// exists.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var matcher *ignore.GitIgnore
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		matcher = gi
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if d.IsDir() {
			name := d.Name()
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return filepath.SkipDir
			}
			if matcher != nil && matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}
		if isJSFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
