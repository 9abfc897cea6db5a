package report_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rbplint/pkg/check"
	"github.com/macropower/rbplint/pkg/report"
)

const source = `name: p
config_version: 1.0
rules:
  r:
    domain_builder:
      class_name: ColumnDomainBuilder
`

func diag(id check.ID, sev check.Severity, line int) check.Diagnostic {
	return check.Diagnostic{
		ID:       id,
		Severity: sev,
		File:     "p.yaml",
		Message:  "message for " + string(id),
		Path:     "$.rules.r",
		Line:     line,
		Column:   3,
	}
}

func newReport() *report.Report {
	return report.New(
		report.NewFile("p.yaml", "profiler", []byte(source), []check.Diagnostic{
			diag(check.UnusedVariable, check.SeverityWarning, 4),
			diag(check.UnresolvedVariable, check.SeverityError, 3),
		}),
		report.NewFile("clean.yaml", "profiler", []byte(source), nil),
		report.NewFileError("requirements.txt", "manifest", errors.New("read: permission denied")),
	)
}

func TestParseFailOn(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input string
		want  report.FailOn
		err   bool
	}{
		"error":        {input: "error", want: report.FailOnError},
		"warning":      {input: "WARNING", want: report.FailOnWarning},
		"warn alias":   {input: "warn", want: report.FailOnWarning},
		"never":        {input: "never", want: report.FailOnNever},
		"unknown fail": {input: "sometimes", err: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := report.ParseFailOn(tc.input)
			if tc.err {
				require.ErrorIs(t, err, report.ErrUnknownFailOn)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReport_Failed(t *testing.T) {
	t.Parallel()

	warnOnly := report.New(report.NewFile("p.yaml", "profiler", nil, []check.Diagnostic{
		diag(check.UnusedVariable, check.SeverityWarning, 1),
	}))
	infoOnly := report.New(report.NewFile("p.yaml", "profiler", nil, []check.Diagnostic{
		diag(check.MissingModuleName, check.SeverityInfo, 1),
	}))
	unreadable := report.New(report.NewFileError("x.txt", "manifest", errors.New("boom")))

	tcs := map[string]struct {
		report    *report.Report
		threshold report.FailOn
		want      bool
	}{
		"warning below error threshold": {report: warnOnly, threshold: report.FailOnError, want: false},
		"warning at warning threshold":  {report: warnOnly, threshold: report.FailOnWarning, want: true},
		"info never fails":              {report: infoOnly, threshold: report.FailOnWarning, want: false},
		"unreadable file fails":         {report: unreadable, threshold: report.FailOnError, want: true},
		"never":                         {report: newReport(), threshold: report.FailOnNever, want: false},
		"empty report":                  {report: report.New(), threshold: report.FailOnWarning, want: false},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.report.Failed(tc.threshold))
		})
	}
}

func TestReport_Summary(t *testing.T) {
	t.Parallel()

	r := newReport()

	assert.Equal(t, report.Summary{Files: 3, Failed: 1, Errors: 1, Warnings: 1}, r.Summary())
	assert.Equal(t, []string{"clean.yaml", "p.yaml", "requirements.txt"},
		[]string{r.Files[0].Path, r.Files[1].Path, r.Files[2].Path})

	diags := r.Diagnostics()
	require.Len(t, diags, 2)
	assert.Equal(t, check.UnresolvedVariable, diags[0].ID)
	assert.Equal(t, check.UnusedVariable, diags[1].ID)
}

func TestPrinter_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := report.NewPrinter(report.FormatText, report.WithColor(false)).Print(&buf, newReport())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "p.yaml (profiler)")
	assert.Contains(t, out, "3:3      error   RF002  message for RF002 $.rules.r")
	assert.Contains(t, out, "4:3      warning RF006  message for RF006 $.rules.r")
	assert.Contains(t, out, "> 3 | rules:")
	assert.Contains(t, out, "requirements.txt (manifest)")
	assert.Contains(t, out, "read: permission denied")
	assert.NotContains(t, out, "clean.yaml")
	assert.Contains(t, out, "Found 1 error, 1 warning, and 1 unreadable file in 3 files.")
	assert.NotContains(t, out, "\x1b[")
}

func TestPrinter_TextClean(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	r := report.New(report.NewFile("clean.yaml", "profiler", nil, nil))

	err := report.NewPrinter(report.FormatText).Print(&buf, r)
	require.NoError(t, err)
	assert.Equal(t, "No problems found in 1 file.\n", buf.String())
}

func TestPrinter_TextWithoutExcerpts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := report.NewPrinter(report.FormatText, report.WithSourceLines(0)).Print(&buf, newReport())
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), " | ")
}

func TestPrinter_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := report.NewPrinter(report.FormatJSON).Print(&buf, newReport())
	require.NoError(t, err)

	var got struct {
		Files []struct {
			Path        string             `json:"path"`
			Kind        string             `json:"kind"`
			Error       string             `json:"error"`
			Diagnostics []check.Diagnostic `json:"diagnostics"`
		} `json:"files"`
		Summary report.Summary `json:"summary"`
	}

	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Files, 3)
	assert.Empty(t, got.Files[0].Diagnostics)
	assert.Equal(t, "p.yaml", got.Files[1].Path)
	require.Len(t, got.Files[1].Diagnostics, 2)
	assert.Equal(t, check.UnresolvedVariable, got.Files[1].Diagnostics[0].ID)
	assert.Equal(t, 3, got.Files[1].Diagnostics[0].Line)
	assert.Equal(t, "read: permission denied", got.Files[2].Error)
	assert.Equal(t, 1, got.Summary.Errors)
}

func TestPrinter_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := report.NewPrinter(report.FormatYAML).Print(&buf, newReport())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "id: RF002")
	assert.Contains(t, out, "severity: error")
	assert.Contains(t, out, "warnings: 1")
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := report.ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, report.FormatJSON, f)

	_, err = report.ParseFormat("xml")
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}
