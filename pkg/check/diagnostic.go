package check

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

// Severity is the level a [Diagnostic] is reported at.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

var (
	ErrUnknownSeverity = errors.New("unknown severity")

	AllSeverities = []string{
		string(SeverityError),
		string(SeverityWarning),
		string(SeverityInfo),
	}
)

// ParseSeverity parses a severity name, case insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(s)) {
	case SeverityError:
		return SeverityError, nil
	case SeverityWarning, "warn":
		return SeverityWarning, nil
	case SeverityInfo:
		return SeverityInfo, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
}

// Rank orders severities, higher is more severe. Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}

	return 0
}

// AtLeast reports whether s is at least as severe as threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.Rank() >= threshold.Rank()
}

// Diagnostic is a single lint finding.
type Diagnostic struct {
	yamlPath *yaml.Path

	ID       ID       `json:"id"`
	Severity Severity `json:"severity"`
	File     string   `json:"file,omitempty"`
	// Path is the YAML path of the offending node, if the finding came from
	// a YAML document.
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// New creates a [Diagnostic] at path with the default severity of id.
func New(id ID, path *yaml.Path, format string, args ...any) Diagnostic {
	d := Diagnostic{
		ID:       id,
		Severity: id.DefaultSeverity(),
		Message:  fmt.Sprintf(format, args...),
	}
	if path != nil {
		d.yamlPath = path
		d.Path = path.String()
	}

	return d
}

// NewAt creates a [Diagnostic] at a line and column, for documents that
// are not YAML.
func NewAt(id ID, line, col int, format string, args ...any) Diagnostic {
	return Diagnostic{
		ID:       id,
		Severity: id.DefaultSeverity(),
		Line:     line,
		Column:   col,
		Message:  fmt.Sprintf(format, args...),
	}
}

// YAMLPath returns the path the diagnostic was created with, or nil.
func (d Diagnostic) YAMLPath() *yaml.Path {
	if d.yamlPath == nil && d.Path != "" {
		p, err := yaml.PathString(d.Path)
		if err == nil {
			return p
		}
	}

	return d.yamlPath
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	if d.File != "" {
		sb.WriteString(d.File)
		if d.Line > 0 {
			fmt.Fprintf(&sb, ":%d:%d", d.Line, d.Column)
		}

		sb.WriteString(": ")
	}

	fmt.Fprintf(&sb, "%s [%s] %s", d.Severity, d.ID, d.Message)
	if d.Path != "" {
		fmt.Fprintf(&sb, " (%s)", d.Path)
	}

	return sb.String()
}

// Compare orders diagnostics by file, position, path and then ID.
func Compare(a, b Diagnostic) int {
	return cmp.Or(
		cmp.Compare(a.File, b.File),
		cmp.Compare(a.Line, b.Line),
		cmp.Compare(a.Column, b.Column),
		cmp.Compare(a.Path, b.Path),
		cmp.Compare(a.ID, b.ID),
		cmp.Compare(a.Message, b.Message),
	)
}

// Sort sorts diagnostics in place with [Compare].
func Sort(diags []Diagnostic) {
	slices.SortStableFunc(diags, Compare)
}
