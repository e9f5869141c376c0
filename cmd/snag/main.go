package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/snag"
	"github.com/jward/snag/scripts"
)

var flagFormat string

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// exitCode is the findings exit status: 0 clean, 1 when diagnostics at or
// above the --fail-on threshold exist. Operational errors exit 2.
var exitCode int

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(2)
	}
	os.Exit(exitCode)
}

var rootCmd = &cobra.Command{
	Use:           "snag",
	Short:         "Detect semantically broken JavaScript constructs",
	Long:          "Snag analyzes JavaScript syntax trees for code that parses but cannot work, like array methods called on the arguments object, and reports diagnostics with precise spans.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagScriptsDir, "scripts-dir", "", "load rule scripts from disk path instead of embedded")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(rulesCmd)
}

var (
	flagNoCache    bool
	flagJobs       int
	flagConfig     string
	flagFailOn     string
	flagScriptsDir string
)

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Analyze JavaScript files and print diagnostics",
	Long:  "Discovers JavaScript files under the given path (default: current directory), analyzes them, and prints diagnostics. Unchanged files replay results from the cache.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "disable the result cache")
	checkCmd.Flags().IntVar(&flagJobs, "jobs", 0, "worker count for parallel analysis (0: one per CPU)")
	checkCmd.Flags().StringVar(&flagConfig, "config", "", "config file path (default: nearest snag.json)")
	checkCmd.Flags().StringVar(&flagFailOn, "fail-on", "warning", "exit 1 when diagnostics at or above this severity exist: warning|error|never")
}

func runCheck(cmd *cobra.Command, args []string) error {
	start := time.Now()

	if err := validateFailOn(flagFailOn); err != nil {
		return outputError("check", err)
	}

	target, isDir, err := resolveTarget(args)
	if err != nil {
		return outputError("check", err)
	}

	configDir := target
	if !isDir {
		configDir = filepath.Dir(target)
	}

	opts, err := buildEngineOptions(configDir)
	if err != nil {
		return outputError("check", err)
	}

	engine, err := snag.New(opts...)
	if err != nil {
		return outputError("check", fmt.Errorf("creating engine: %w", err))
	}
	defer engine.Close()

	ctx := context.Background()
	var result *snag.Result
	if isDir {
		result, err = engine.CheckDirectory(ctx, target)
	} else {
		result, err = engine.CheckFiles(ctx, []string{target})
	}
	if err != nil {
		return outputError("check", fmt.Errorf("checking: %w", err))
	}

	warnings := result.Count(snag.SeverityWarning)
	errors := result.Count(snag.SeverityError)
	fmt.Fprintf(os.Stderr, "Checked %d file(s) in %s (%d from cache): %d warning(s), %d error(s)\n",
		len(result.Files),
		time.Since(start).Round(time.Millisecond),
		result.CacheHits(),
		warnings, errors,
	)

	total := len(result.Diagnostics())
	if err := outputResult(CLIResult{
		Command:    "check",
		Results:    result.Files,
		TotalCount: &total,
	}); err != nil {
		return outputError("check", err)
	}

	switch flagFailOn {
	case "warning":
		if warnings+errors > 0 {
			exitCode = 1
		}
	case "error":
		if errors > 0 {
			exitCode = 1
		}
	}
	return nil
}

// buildEngineOptions assembles engine options from flags and the config
// file resolved for configDir.
func buildEngineOptions(configDir string) ([]snag.Option, error) {
	var opts []snag.Option

	// Script source: --scripts-dir overrides embedded FS.
	if flagScriptsDir != "" {
		opts = append(opts, snag.WithScriptsDir(flagScriptsDir))
	} else {
		opts = append(opts, snag.WithScriptsFS(scripts.FS))
	}

	configPath := flagConfig
	if configPath == "" {
		configPath = snag.FindConfig(configDir)
	}
	if configPath != "" {
		cfg, err := snag.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, snag.WithConfig(cfg))
	}

	if flagJobs > 0 {
		opts = append(opts, snag.WithJobs(flagJobs))
	}

	if !flagNoCache {
		dbPath := filepath.Join(findRepoRoot(configDir), ".snag", "cache.db")
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
		}
		opts = append(opts, snag.WithCache(dbPath))
	}

	return opts, nil
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List registered rules",
	Long:  "Lists every registered rule with its name, category, and description, including rules loaded from scripts.",
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

func runRules(cmd *cobra.Command, args []string) error {
	var opts []snag.Option
	if flagScriptsDir != "" {
		opts = append(opts, snag.WithScriptsDir(flagScriptsDir))
	} else {
		opts = append(opts, snag.WithScriptsFS(scripts.FS))
	}

	engine, err := snag.New(opts...)
	if err != nil {
		return outputError("rules", fmt.Errorf("creating engine: %w", err))
	}
	defer engine.Close()

	var out []CLIRule
	for _, r := range engine.Rules() {
		out = append(out, CLIRule{Name: r.Name, Category: r.Category, Doc: r.Doc})
	}
	total := len(out)
	return outputResult(CLIResult{Command: "rules", Results: out, TotalCount: &total})
}

// resolveTarget returns the absolute path to check and whether it is a
// directory.
func resolveTarget(args []string) (string, bool, error) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", false, fmt.Errorf("resolving path %q: %w", target, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", false, fmt.Errorf("path not found: %s", abs)
	}
	return abs, info.IsDir(), nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

func validateFailOn(v string) error {
	switch v {
	case "warning", "error", "never":
		return nil
	}
	return fmt.Errorf("invalid --fail-on value %q (expected warning|error|never)", v)
}
