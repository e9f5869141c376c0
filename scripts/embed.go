// Package scripts embeds the bundled Risor rule scripts so the snag binary
// ships self-contained.
package scripts

import "embed"

//go:embed all:rules
var FS embed.FS
