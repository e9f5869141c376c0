package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIRule is a JSON-friendly rule listing entry.
type CLIRule struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Doc      string `json:"doc,omitempty"`
}
