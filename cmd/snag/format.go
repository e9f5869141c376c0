package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jward/snag"
)

// validateFormat checks the --format flag value.
func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	}
	return fmt.Errorf("invalid format %q (expected json or text)", format)
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// propagates a non-zero exit.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []snag.FileResult:
		formatDiagnosticsText(w, v)
	case []CLIRule:
		formatRulesText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// formatDiagnosticsText formats diagnostics as "file:line:col severity
// message [rule]" lines, with labels and help indented beneath.
func formatDiagnosticsText(w io.Writer, files []snag.FileResult) {
	for _, f := range files {
		for _, d := range f.Diagnostics {
			fmt.Fprintf(w, "%s:%d:%d %s %s [%s]\n",
				f.Path, d.Span.StartLine, d.Span.StartCol,
				d.Severity, d.Message, d.Rule)
			for _, l := range d.Labels {
				fmt.Fprintf(w, "  %d:%d note: %s\n",
					l.Span.StartLine, l.Span.StartCol, l.Message)
			}
			if d.Help != "" {
				fmt.Fprintf(w, "  help: %s\n", d.Help)
			}
		}
	}
}

// formatRulesText formats CLIRule results as aligned columns.
func formatRulesText(w io.Writer, rules []CLIRule) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tDOC")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Category, r.Doc)
	}
	tw.Flush()
}
