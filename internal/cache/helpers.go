package cache

import (
	"encoding/json"

	"github.com/jward/snag/internal/report"
)

// marshalLabels converts labeled spans to JSON text for storage.
func marshalLabels(labels []report.Label) string {
	if len(labels) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(labels)
	return string(b)
}

// unmarshalLabels converts JSON text back to labeled spans.
func unmarshalLabels(s string) []report.Label {
	if s == "" || s == "null" || s == "[]" {
		return nil
	}
	var labels []report.Label
	_ = json.Unmarshal([]byte(s), &labels)
	return labels
}
