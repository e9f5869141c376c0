// Package report defines the diagnostic contract between detectors and the
// output layer: immutable findings with spans, labels, and help text, plus
// the sink detectors push into during one analysis run.
package report

import (
	"fmt"

	"github.com/jward/snag/internal/ast"
)

// Severity classifies how a diagnostic should be treated downstream.
type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	default:
		return "warning"
	}
}

// MarshalText implements encoding.TextMarshaler for JSON output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Accepts the short form
// "warn" used in configuration files alongside the canonical names.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "warning", "warn":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Span is a self-contained source range: byte offsets plus 1-based
// line/column endpoints. Diagnostics carry these rather than graph spans so
// they survive the graph (the cache stores and replays them).
type Span struct {
	Start     uint32 `json:"start"`
	End       uint32 `json:"end"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// SpanOf converts a graph span (zero-based points) to a diagnostic span.
func SpanOf(sp ast.Span) Span {
	return Span{
		Start:     sp.Start,
		End:       sp.End,
		StartLine: int(sp.StartPoint.Row) + 1,
		StartCol:  int(sp.StartPoint.Col) + 1,
		EndLine:   int(sp.EndPoint.Row) + 1,
		EndCol:    int(sp.EndPoint.Col) + 1,
	}
}

// Label attaches free-text meaning to a secondary span.
type Label struct {
	Span    Span   `json:"span"`
	Message string `json:"message"`
}

// Diagnostic is one finding. Values are immutable once constructed: the
// With* methods return modified copies, never mutate the receiver.
type Diagnostic struct {
	Rule     string   `json:"rule"`
	Category string   `json:"category,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Span     Span     `json:"span"`
	Labels   []Label  `json:"labels,omitempty"`
	Help     string   `json:"help,omitempty"`
}

// Warn constructs a warning-severity diagnostic with a primary span.
func Warn(rule, message string, span Span) Diagnostic {
	return Diagnostic{Rule: rule, Severity: SeverityWarning, Message: message, Span: span}
}

// WithSeverity returns a copy with the given severity.
func (d Diagnostic) WithSeverity(s Severity) Diagnostic {
	d.Severity = s
	return d
}

// WithCategory returns a copy with the given category label.
func (d Diagnostic) WithCategory(category string) Diagnostic {
	d.Category = category
	return d
}

// WithHelp returns a copy with remediation help attached.
func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.Help = help
	return d
}

// WithLabel returns a copy with an additional labeled span. The label slice
// is copied so earlier values stay unchanged.
func (d Diagnostic) WithLabel(span Span, message string) Diagnostic {
	labels := make([]Label, len(d.Labels), len(d.Labels)+1)
	copy(labels, d.Labels)
	d.Labels = append(labels, Label{Span: span, Message: message})
	return d
}

// Sink collects diagnostics for one analysis run of one file, preserving
// insertion order. It does not deduplicate or reorder. The zero value is
// ready to use.
type Sink struct {
	diags []Diagnostic
}

// Report appends a diagnostic.
func (s *Sink) Report(d Diagnostic) {
	s.diags = append(s.diags, d)
}

// Len returns the number of collected diagnostics.
func (s *Sink) Len() int {
	return len(s.diags)
}

// Diagnostics returns the collected findings in insertion order.
func (s *Sink) Diagnostics() []Diagnostic {
	return s.diags
}
