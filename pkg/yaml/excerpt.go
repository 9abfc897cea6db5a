package yaml

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

const (
	excerptStyle     = "monokai"
	excerptFormatter = "terminal256"
)

// Excerpt renders the lines of source around line (1-based), with a gutter
// of line numbers and a caret under col. When color is true the source is
// highlighted with chroma.
func Excerpt(source []byte, line, col, context int, color bool) string {
	if line <= 0 || len(source) == 0 {
		return ""
	}

	lines := strings.Split(strings.TrimRight(string(source), "\n"), "\n")
	if line > len(lines) {
		return ""
	}

	first := max(line-context, 1)
	last := min(line+context, len(lines))
	window := lines[first-1 : last]

	rendered := window
	if color {
		rendered = highlight(window)
	}

	width := len(fmt.Sprint(last))

	var sb strings.Builder
	for i, text := range rendered {
		n := first + i
		marker := " "
		if n == line {
			marker = ">"
		}

		fmt.Fprintf(&sb, "%s %*d | %s\n", marker, width, n, text)

		if n == line && col > 0 {
			fmt.Fprintf(&sb, "  %s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", col-1))
		}
	}

	return sb.String()
}

// highlight returns window highlighted as YAML. The plain lines are
// returned if chroma fails or changes the line count.
func highlight(window []string) []string {
	var buf bytes.Buffer

	err := quick.Highlight(&buf, strings.Join(window, "\n"), "yaml", excerptFormatter, excerptStyle)
	if err != nil {
		return window
	}

	out := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(out) != len(window) {
		return window
	}

	return out
}
