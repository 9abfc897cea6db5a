package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize/english"
	"github.com/muesli/termenv"

	"github.com/macropower/rbplint/pkg/check"
	"github.com/macropower/rbplint/pkg/yaml"
)

// Format is an output format of a [Printer].
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// AllFormats lists the accepted [Format] values.
var AllFormats = []string{
	string(FormatText),
	string(FormatJSON),
	string(FormatYAML),
}

// ParseFormat parses a [Format] value, case insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Printer writes a [Report] in a [Format].
type Printer struct {
	format      Format
	sourceLines int
	color       bool
}

// PrinterOpt configures a [Printer].
type PrinterOpt func(p *Printer)

// WithColor enables ANSI styling and excerpt highlighting in text output.
func WithColor(color bool) PrinterOpt {
	return func(p *Printer) {
		p.color = color
	}
}

// WithSourceLines sets the number of lines shown around each finding in
// text output. Zero or less disables excerpts.
func WithSourceLines(n int) PrinterOpt {
	return func(p *Printer) {
		p.sourceLines = n
	}
}

// NewPrinter creates a [Printer] for format.
func NewPrinter(format Format, opts ...PrinterOpt) *Printer {
	p := &Printer{
		format:      format,
		sourceLines: 1,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

type document struct {
	Files   []*File `json:"files"`
	Summary Summary `json:"summary"`
}

// Print writes r to w.
func (p *Printer) Print(w io.Writer, r *Report) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(document{Files: r.Files, Summary: r.Summary()})
		if err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}

		return nil

	case FormatYAML:
		enc := yaml.NewEncoder(w)

		err := enc.Encode(document{Files: r.Files, Summary: r.Summary()})
		if err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}

		err = enc.Close()
		if err != nil {
			return fmt.Errorf("close yaml encoder: %w", err)
		}

		return nil

	case FormatText, "":
		return p.printText(w, r)
	}

	return fmt.Errorf("%w: %q", ErrUnknownFormat, p.format)
}

type styles struct {
	file    lipgloss.Style
	kind    lipgloss.Style
	pos     lipgloss.Style
	id      lipgloss.Style
	path    lipgloss.Style
	ok      lipgloss.Style
	errText lipgloss.Style
	levels  map[check.Severity]lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	re := lipgloss.NewRenderer(w)
	if color {
		re.SetColorProfile(termenv.ColorProfile())
	} else {
		re.SetColorProfile(termenv.Ascii)
	}

	return styles{
		file:    re.NewStyle().Bold(true).Underline(true),
		kind:    re.NewStyle().Faint(true),
		pos:     re.NewStyle().Faint(true),
		id:      re.NewStyle().Foreground(lipgloss.Color("6")),
		path:    re.NewStyle().Faint(true).Italic(true),
		ok:      re.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		errText: re.NewStyle().Foreground(lipgloss.Color("1")),
		levels: map[check.Severity]lipgloss.Style{
			check.SeverityError:   re.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
			check.SeverityWarning: re.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
			check.SeverityInfo:    re.NewStyle().Foreground(lipgloss.Color("4")),
		},
	}
}

func (p *Printer) printText(w io.Writer, r *Report) error {
	st := newStyles(w, p.color)

	var sb strings.Builder
	for _, f := range r.Files {
		if f.Error == "" && len(f.Diagnostics) == 0 {
			continue
		}

		fmt.Fprintf(&sb, "%s %s\n", st.file.Render(f.Path), st.kind.Render("("+f.Kind+")"))

		if f.Error != "" {
			fmt.Fprintf(&sb, "  %s\n", st.errText.Render(f.Error))
		}

		for _, d := range f.Diagnostics {
			p.writeDiagnostic(&sb, st, f, d)
		}

		sb.WriteString("\n")
	}

	sb.WriteString(summaryLine(st, r.Summary()))
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

func (p *Printer) writeDiagnostic(sb *strings.Builder, st styles, f *File, d check.Diagnostic) {
	pos := "-"
	if d.Line > 0 {
		pos = fmt.Sprintf("%d:%d", d.Line, d.Column)
	}

	level := st.levels[d.Severity].Render(fmt.Sprintf("%-7s", d.Severity))

	fmt.Fprintf(sb, "  %s  %s %s  %s", st.pos.Render(fmt.Sprintf("%-7s", pos)), level, st.id.Render(string(d.ID)), d.Message)
	if d.Path != "" {
		fmt.Fprintf(sb, " %s", st.path.Render(d.Path))
	}

	sb.WriteString("\n")

	if p.sourceLines <= 0 || d.Line <= 0 || len(f.source) == 0 {
		return
	}

	excerpt := yaml.Excerpt(f.source, d.Line, d.Column, p.sourceLines, p.color && f.Kind == "profiler")
	for line := range strings.SplitSeq(strings.TrimRight(excerpt, "\n"), "\n") {
		if line == "" {
			continue
		}

		fmt.Fprintf(sb, "    %s\n", line)
	}
}

func summaryLine(st styles, s Summary) string {
	if s.Problems() == 0 {
		return st.ok.Render(s.String())
	}

	style := st.levels[check.SeverityWarning]
	if s.Errors > 0 || s.Failed > 0 {
		style = st.levels[check.SeverityError]
	}

	return style.Render(s.String())
}

// String returns the summary as a sentence, e.g.
// "Found 1 error and 2 warnings in 3 files.".
func (s Summary) String() string {
	files := english.Plural(s.Files, "file", "")
	if s.Problems() == 0 {
		return fmt.Sprintf("No problems found in %s.", files)
	}

	var parts []string
	for _, c := range []struct {
		singular string
		plural   string
		n        int
	}{
		{"error", "", s.Errors},
		{"warning", "", s.Warnings},
		{"info", "info", s.Infos},
		{"unreadable file", "", s.Failed},
	} {
		if c.n > 0 {
			parts = append(parts, english.Plural(c.n, c.singular, c.plural))
		}
	}

	return fmt.Sprintf("Found %s in %s.", english.OxfordWordSeries(parts, "and"), files)
}
