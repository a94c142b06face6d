package vectordb

import (
	"fmt"
	"strings"
)

// FormatResults renders search results as human-readable text.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("--- Result %d (distance: %.4f) ---\n", i+1, r.Distance))
		location := r.Chunk.Source
		if r.Chunk.Page > 0 {
			location += fmt.Sprintf(", page %d", r.Chunk.Page)
		}
		sb.WriteString(fmt.Sprintf("Document: %s\n", location))
		sb.WriteString("\n")
		sb.WriteString(r.Chunk.Text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
