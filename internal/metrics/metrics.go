// Package metrics implements the metrics collaborators that measure file snapshots.
package metrics

import (
	"strings"
	"unicode"

	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/schema"
)

// tabWidth is the number of spaces a tab counts for in indentation sums.
const tabWidth = 4

// New returns the metrics collaborator for a backend.
func New(backend schema.MetricsBackend) contract.MetricsCounter {
	if backend == schema.ClocMetricsBackend {
		return NewClocCounter()
	}
	return NewNativeCounter()
}

// leadingWidth returns the leading whitespace width of a line with tabs expanded.
func leadingWidth(line string) int64 {
	line = strings.ReplaceAll(line, "\t", strings.Repeat(" ", tabWidth))
	var width int64
	for _, r := range line {
		if !unicode.IsSpace(r) {
			break
		}
		width++
	}
	return width
}

// splitLines splits content on newlines, tolerating CRLF endings.
func splitLines(content []byte) []string {
	lines := strings.Split(string(content), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
