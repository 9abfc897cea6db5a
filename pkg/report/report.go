// Package report collects lint results and renders them for people and
// for machines.
package report

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/macropower/rbplint/pkg/check"
)

var (
	ErrUnknownFailOn = errors.New("unknown fail-on threshold")
	ErrUnknownFormat = errors.New("unknown report format")
)

// FailOn is the lowest severity that makes a lint run fail.
type FailOn string

const (
	FailOnError   FailOn = "error"
	FailOnWarning FailOn = "warning"
	FailOnNever   FailOn = "never"
)

// AllFailOn lists the accepted [FailOn] values.
var AllFailOn = []string{
	string(FailOnError),
	string(FailOnWarning),
	string(FailOnNever),
}

// ParseFailOn parses a [FailOn] value, case insensitively.
func ParseFailOn(s string) (FailOn, error) {
	switch f := FailOn(strings.ToLower(s)); f {
	case FailOnError, FailOnWarning, FailOnNever:
		return f, nil
	case "warn":
		return FailOnWarning, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFailOn, s)
}

// File holds the results for one linted file.
type File struct {
	// Error is set when the file could not be linted at all.
	Error       string             `json:"error,omitempty"`
	Path        string             `json:"path"`
	Kind        string             `json:"kind"`
	Diagnostics []check.Diagnostic `json:"diagnostics"`

	source []byte
}

// NewFile creates a [File]. Source is kept for rendering excerpts.
func NewFile(path, kind string, source []byte, diags []check.Diagnostic) *File {
	if diags == nil {
		diags = []check.Diagnostic{}
	}

	check.Sort(diags)

	return &File{
		Path:        path,
		Kind:        kind,
		Diagnostics: diags,
		source:      source,
	}
}

// NewFileError creates a [File] for a file that could not be linted.
func NewFileError(path, kind string, err error) *File {
	f := NewFile(path, kind, nil, nil)
	f.Error = err.Error()

	return f
}

// Source returns the file contents the diagnostics refer to.
func (f *File) Source() []byte {
	return f.source
}

// Count returns the number of diagnostics with the given severity.
func (f *File) Count(sev check.Severity) int {
	n := 0
	for _, d := range f.Diagnostics {
		if d.Severity == sev {
			n++
		}
	}

	return n
}

// Summary counts the findings of a [Report].
type Summary struct {
	Files    int `json:"files"`
	Failed   int `json:"failed"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// Problems returns the number of diagnostics plus unreadable files.
func (s Summary) Problems() int {
	return s.Errors + s.Warnings + s.Infos + s.Failed
}

// Report is the result of a lint run.
type Report struct {
	Files []*File `json:"files"`
}

// New creates a [Report] with the files sorted by path.
func New(files ...*File) *Report {
	r := &Report{Files: []*File{}}
	r.Add(files...)

	return r
}

// Add adds files to the report, keeping it sorted by path.
func (r *Report) Add(files ...*File) {
	r.Files = append(r.Files, files...)
	slices.SortStableFunc(r.Files, func(a, b *File) int {
		return cmp.Compare(a.Path, b.Path)
	})
}

// Diagnostics returns every diagnostic in file and position order.
func (r *Report) Diagnostics() []check.Diagnostic {
	var out []check.Diagnostic
	for _, f := range r.Files {
		out = append(out, f.Diagnostics...)
	}

	check.Sort(out)

	return out
}

// Summary counts the findings of the report.
func (r *Report) Summary() Summary {
	s := Summary{Files: len(r.Files)}
	for _, f := range r.Files {
		if f.Error != "" {
			s.Failed++
		}

		s.Errors += f.Count(check.SeverityError)
		s.Warnings += f.Count(check.SeverityWarning)
		s.Infos += f.Count(check.SeverityInfo)
	}

	return s
}

// Failed reports whether the report has a finding at or above threshold.
// Files that could not be linted fail unless threshold is [FailOnNever].
func (r *Report) Failed(threshold FailOn) bool {
	var lowest check.Severity

	switch threshold {
	case FailOnNever:
		return false
	case FailOnWarning:
		lowest = check.SeverityWarning
	default:
		lowest = check.SeverityError
	}

	for _, f := range r.Files {
		if f.Error != "" {
			return true
		}

		for _, d := range f.Diagnostics {
			if d.Severity.AtLeast(lowest) {
				return true
			}
		}
	}

	return false
}
