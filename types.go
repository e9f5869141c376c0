package snag

import (
	"github.com/jward/snag/internal/config"
	"github.com/jward/snag/internal/report"
	"github.com/jward/snag/internal/rules"
)

// Public type aliases for internal types used in the Engine API. These are
// Go type aliases (=) — identical to the internal types at compile time.
// External consumers use these names; no conversion is needed.

type Diagnostic = report.Diagnostic
type Span = report.Span
type Label = report.Label
type Severity = report.Severity
type Rule = rules.Rule
type Config = config.Config

const (
	SeverityWarning = report.SeverityWarning
	SeverityError   = report.SeverityError
)

// DefaultRules returns the built-in rules in registration order.
func DefaultRules() []Rule {
	return rules.Default()
}

// LoadConfig reads and validates a snag.json file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// FindConfig returns the nearest snag.json on the ancestor path of
// startDir, or "" when there is none.
func FindConfig(startDir string) string {
	return config.Find(startDir)
}
