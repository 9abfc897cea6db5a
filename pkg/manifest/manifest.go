// Package manifest parses and validates Python dependency manifests
// (requirements files), including the manifests they reference with
// `-r` and `-c`.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// LineKind classifies a logical line of a manifest.
type LineKind string

const (
	KindBlank       LineKind = "blank"
	KindComment     LineKind = "comment"
	KindReference   LineKind = "reference"
	KindOption      LineKind = "option"
	KindRequirement LineKind = "requirement"
)

var ErrBinary = errors.New("manifest is not a text file")

// Reference is a `-r` or `-c` line pointing at another manifest.
type Reference struct {
	// Path is the referenced path as written.
	Path string `json:"path"`
	// Constraint is true for `-c`/`--constraint` references.
	Constraint bool `json:"constraint,omitempty"`
}

// Line is a logical line of a manifest. Continuation lines are joined into
// the line they continue.
type Line struct {
	Reference   *Reference   `json:"reference,omitempty"`
	Requirement *Requirement `json:"requirement,omitempty"`
	// Err is set for requirement lines that do not parse.
	Err     error    `json:"-"`
	Kind    LineKind `json:"kind"`
	Raw     string   `json:"raw"`
	Comment string   `json:"comment,omitempty"`
	// Number is the 1-based number of the first physical line.
	Number int `json:"number"`
}

// Content returns the line without its comment and surrounding space.
func (l Line) Content() string {
	content, _ := splitComment(l.Raw)

	return content
}

// Manifest is a parsed requirements file.
type Manifest struct {
	Path  string `json:"path"`
	Lines []Line `json:"lines"`
}

// Requirements returns the requirement lines that parsed.
func (m *Manifest) Requirements() []Line {
	var out []Line
	for _, l := range m.Lines {
		if l.Kind == KindRequirement && l.Err == nil {
			out = append(out, l)
		}
	}

	return out
}

// References returns the reference lines.
func (m *Manifest) References() []Line {
	var out []Line
	for _, l := range m.Lines {
		if l.Kind == KindReference {
			out = append(out, l)
		}
	}

	return out
}

// Parse parses data as the manifest at path.
func Parse(path string, data []byte) (*Manifest, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrBinary)
	}

	m := &Manifest{Path: path}

	physical := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if n := len(physical); n > 0 && physical[n-1] == "" {
		physical = physical[:n-1]
	}

	for i := 0; i < len(physical); i++ {
		number := i + 1
		raw := physical[i]

		// A trailing backslash continues the line, unless it is inside a
		// comment.
		for {
			content, _ := splitComment(raw)
			if !strings.HasSuffix(content, `\`) || i+1 >= len(physical) {
				break
			}

			i++
			raw = strings.TrimSuffix(content, `\`) + physical[i]
		}

		m.Lines = append(m.Lines, parseLine(number, raw))
	}

	return m, nil
}

func parseLine(number int, raw string) Line {
	line := Line{Number: number, Raw: raw}

	content, comment := splitComment(raw)
	line.Comment = comment

	switch {
	case content == "" && comment == "":
		line.Kind = KindBlank
	case content == "":
		line.Kind = KindComment
	case strings.HasPrefix(content, "-"):
		if ref, ok := parseReference(content); ok {
			line.Kind = KindReference
			line.Reference = ref
		} else {
			line.Kind = KindOption
		}
	default:
		line.Kind = KindRequirement

		req, err := ParseRequirement(content)
		if err != nil {
			line.Err = err
		} else {
			line.Requirement = &req
		}
	}

	return line
}

// splitComment splits raw into its trimmed content and comment. A comment
// starts with `#` at the start of the line or after whitespace.
func splitComment(raw string) (string, string) {
	for i, r := range raw {
		if r != '#' {
			continue
		}
		if i == 0 || raw[i-1] == ' ' || raw[i-1] == '\t' {
			return strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+1:])
		}
	}

	return strings.TrimSpace(raw), ""
}

var referenceFlags = []struct {
	flag       string
	constraint bool
}{
	{"--requirement", false},
	{"--constraint", true},
	{"-r", false},
	{"-c", true},
}

func parseReference(content string) (*Reference, bool) {
	for _, rf := range referenceFlags {
		rest, ok := strings.CutPrefix(content, rf.flag)
		if !ok {
			continue
		}

		switch {
		case rest == "":
			return &Reference{Constraint: rf.constraint}, true
		case rest[0] == '=' && strings.HasPrefix(rf.flag, "--"):
			rest = rest[1:]
		case rest[0] == ' ' || rest[0] == '\t':
		case strings.HasPrefix(rf.flag, "--"):
			// e.g. --requirements, a different option.
			continue
		}

		return &Reference{Path: strings.TrimSpace(rest), Constraint: rf.constraint}, true
	}

	return nil, false
}
