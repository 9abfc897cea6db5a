// Package lint runs the profiler and manifest checks over files and
// directories and collects the results in a [report.Report].
package lint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/macropower/rbplint/api/v1beta1/lintconfigs"
	"github.com/macropower/rbplint/pkg/check"
	"github.com/macropower/rbplint/pkg/log"
	"github.com/macropower/rbplint/pkg/manifest"
	"github.com/macropower/rbplint/pkg/profiler"
	"github.com/macropower/rbplint/pkg/report"
	"github.com/macropower/rbplint/pkg/yaml"
)

// Kind selects the checks a file is linted with.
type Kind string

const (
	KindAuto     Kind = "auto"
	KindProfiler Kind = "profiler"
	KindManifest Kind = "manifest"
)

var (
	ErrUnknownKind = errors.New("unknown kind")

	// AllKinds lists the accepted [Kind] values.
	AllKinds = []string{
		string(KindAuto),
		string(KindProfiler),
		string(KindManifest),
	}
)

// ParseKind parses a [Kind] value, case insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindAuto, KindProfiler, KindManifest:
		return k, nil
	case "":
		return KindAuto, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Linter lints profiler documents and dependency manifests.
type Linter struct {
	config   *lintconfigs.LintConfig
	tracer   trace.Tracer
	kind     Kind
	jobs     int
	debounce time.Duration
}

// Opt configures a [Linter].
type Opt func(l *Linter)

// WithConfig sets the lint configuration.
func WithConfig(cfg *lintconfigs.LintConfig) Opt {
	return func(l *Linter) {
		if cfg != nil {
			l.config = cfg
		}
	}
}

// WithJobs sets the number of files linted concurrently. Values below one
// use the number of CPUs.
func WithJobs(jobs int) Opt {
	return func(l *Linter) {
		l.jobs = jobs
	}
}

// WithKind forces every file to be linted as kind.
func WithKind(kind Kind) Opt {
	return func(l *Linter) {
		l.kind = kind
	}
}

// WithTracer sets the tracer used for per-file spans.
func WithTracer(tracer trace.Tracer) Opt {
	return func(l *Linter) {
		l.tracer = tracer
	}
}

// WithDebounce sets how long [Linter.Watch] waits for further changes
// before linting again.
func WithDebounce(d time.Duration) Opt {
	return func(l *Linter) {
		l.debounce = d
	}
}

// New creates a [Linter].
func New(opts ...Opt) *Linter {
	l := &Linter{
		config:   lintconfigs.New(),
		tracer:   otel.Tracer("lint"),
		kind:     KindAuto,
		debounce: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.jobs < 1 {
		l.jobs = runtime.NumCPU()
	}

	return l
}

// Config returns the lint configuration in use.
func (l *Linter) Config() *lintconfigs.LintConfig {
	return l.config
}

// LintPaths lints every file named by paths. Directories are walked and
// their files selected by the configured patterns.
func (l *Linter) LintPaths(ctx context.Context, paths []string) (*report.Report, error) {
	targets, err := l.expand(paths)
	if err != nil {
		return nil, err
	}

	log.WithContext(ctx).DebugContext(ctx, "linting files",
		slog.Int("count", len(targets)),
		slog.Int("jobs", l.jobs),
	)

	results := make([]*report.File, len(targets))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.jobs)

	for i, t := range targets {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err //nolint:wrapcheck // Context error.
			}

			results[i] = l.lintTarget(gCtx, t)

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return nil, fmt.Errorf("lint files: %w", err)
	}

	r := report.New()
	for _, f := range results {
		if f != nil {
			r.Add(f)
		}
	}

	return r, nil
}

// LintFile lints a single file as kind. [KindAuto] detects the kind from
// the file name.
func (l *Linter) LintFile(ctx context.Context, path string, kind Kind) *report.File {
	if kind == KindAuto {
		kind = l.kind
	}
	if kind == KindAuto {
		kind = l.detect(path, true)
	}

	return l.lintTarget(ctx, target{path: path, kind: kind})
}

// LintContent lints data as if it was read from path. Manifest references
// are resolved relative to path.
func (l *Linter) LintContent(ctx context.Context, kind Kind, path string, data []byte) (*report.File, error) {
	switch kind {
	case KindProfiler, KindManifest:
	case KindAuto:
		kind = l.detect(path, true)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	ctx, span := l.startSpan(ctx, path, kind)
	defer span.End()

	f := l.lintData(ctx, target{path: path, kind: kind}, data)
	if f == nil {
		f = report.NewFile(path, string(kind), data, nil)
	}

	l.endSpan(span, f)

	return f, nil
}

func (l *Linter) lintTarget(ctx context.Context, t target) *report.File {
	ctx, span := l.startSpan(ctx, t.path, t.kind)
	defer span.End()

	logger := log.WithContext(ctx)

	data, err := os.ReadFile(t.path)
	if err != nil {
		logger.ErrorContext(ctx, "read file", slog.String("path", t.path), slog.Any("err", err))
		span.RecordError(err)

		return report.NewFileError(t.path, string(t.kind), fmt.Errorf("read file: %w", err))
	}

	f := l.lintData(ctx, t, data)
	if f == nil {
		logger.DebugContext(ctx, "skipped file", slog.String("path", t.path))
		return nil
	}

	l.endSpan(span, f)

	return f
}

func (l *Linter) startSpan(ctx context.Context, path string, kind Kind) (context.Context, trace.Span) {
	return l.tracer.Start(ctx, "lint file", trace.WithAttributes(
		attribute.String("path", path),
		attribute.String("kind", string(kind)),
	))
}

func (l *Linter) endSpan(span trace.Span, f *report.File) {
	span.SetAttributes(attribute.Int("diagnostics", len(f.Diagnostics)))
	if f.Error != "" {
		span.RecordError(errors.New(f.Error))
	}
}

// lintData returns nil when t was found by walking a directory and data
// is not a profiler document.
func (l *Linter) lintData(ctx context.Context, t target, data []byte) *report.File {
	var (
		diags []check.Diagnostic
		err   error
	)

	switch t.kind {
	case KindManifest:
		diags, err = l.lintManifest(t.path, data)
	default:
		var skip bool

		diags, skip = l.lintProfiler(t, data)
		if skip {
			return nil
		}
	}

	if err != nil {
		return report.NewFileError(t.path, string(t.kind), err)
	}

	diags = l.config.Settings().Apply(diags)
	for i := range diags {
		diags[i].File = t.path
	}

	log.WithContext(ctx).DebugContext(ctx, "linted file",
		slog.String("path", t.path),
		slog.String("kind", string(t.kind)),
		slog.Int("diagnostics", len(diags)),
	)

	return report.NewFile(t.path, string(t.kind), data, diags)
}

func (l *Linter) lintManifest(path string, data []byte) ([]check.Diagnostic, error) {
	set, err := manifest.LoadBytes(path, data)
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	return set.Validate(l.config.ManifestOptions()), nil
}

func (l *Linter) lintProfiler(t target, data []byte) ([]check.Diagnostic, bool) {
	var doc any

	err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc)
	if err != nil && !errors.Is(err, io.EOF) {
		if t.sniff {
			return nil, true
		}

		return []check.Diagnostic{decodeDiagnostic(err)}, false
	}

	if t.sniff && !isProfilerDocument(doc) {
		return nil, true
	}

	var diags []check.Diagnostic

	v, err := profiler.Validator()
	if err != nil {
		diags = append(diags, check.New(check.SchemaViolation, nil, "%v", err))
	} else {
		for _, verr := range v.ValidateAll(doc) {
			diags = append(diags, check.New(check.SchemaViolation, verr.Path, "%v", verr.Err))
		}
	}

	diags = append(diags, l.config.ProfilerChecks().Check(doc)...)
	for _, r := range l.config.Checks.Custom {
		diags = append(diags, r.Check(t.path, doc)...)
	}

	locate(diags, data)

	return diags, false
}

// decodeDiagnostic converts a YAML syntax error into a diagnostic at the
// failing token.
func decodeDiagnostic(err error) check.Diagnostic {
	var yamlErr *yaml.Error
	if errors.As(err, &yamlErr) {
		line, col, perr := yamlErr.Position()
		if perr == nil {
			return check.NewAt(check.SchemaViolation, line, col, "invalid YAML: %v", yamlErr.Err)
		}
	}

	return check.New(check.SchemaViolation, nil, "invalid YAML: %v", err)
}

// locate fills in the line and column of diagnostics that only carry a
// YAML path.
func locate(diags []check.Diagnostic, data []byte) {
	var doc *yaml.Document

	for i, d := range diags {
		if d.Line > 0 {
			continue
		}

		path := d.YAMLPath()
		if path == nil {
			continue
		}

		if doc == nil {
			var err error

			doc, err = yaml.ParseDocument(data)
			if err != nil {
				return
			}
		}

		diags[i].Line, diags[i].Column = doc.Position(path)
	}
}

func isProfilerDocument(doc any) bool {
	m, ok := doc.(map[string]any)
	if !ok {
		return false
	}

	_, hasRules := m["rules"]
	_, hasVersion := m["config_version"]

	return hasRules || hasVersion
}
