package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/macropower/rbplint/api/v1beta1/lintconfigs"
	"github.com/macropower/rbplint/pkg/config"
	"github.com/macropower/rbplint/pkg/lint"
	"github.com/macropower/rbplint/pkg/report"
)

// ErrLintFailed is returned when a lint run reaches the --fail-on threshold.
var ErrLintFailed = errors.New("lint failed")

const (
	lintExamples = `  # Lint the current directory:
  rbplint

  # Lint specific files and directories:
  rbplint profilers/ requirements.txt

  # Lint files matching a glob:
  rbplint 'profilers/*.yaml'

  # Watch for changes and lint again:
  rbplint profilers/ --watch

  # Only fail on errors, print JSON:
  rbplint --fail-on error --format json

  # Lint stdin as a profiler config:
  cat profiler.yaml | rbplint --kind profiler -`
)

type LintArgs struct {
	*RootArgs

	ConfigPath string
	Format     string
	FailOn     string
	Kind       string
	Paths      []string
	Jobs       int
	Watch      bool
}

func NewLintArgs(rootArgs *RootArgs) *LintArgs {
	return &LintArgs{
		RootArgs: rootArgs,
	}
}

func (la *LintArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&la.ConfigPath, "config", "", "Path to the rbplint configuration file")
	cmd.Flags().StringVar(&la.Format, "format", string(report.FormatText),
		fmt.Sprintf("Output format, one of: %s", report.AllFormats))
	cmd.Flags().StringVar(&la.FailOn, "fail-on", string(report.FailOnError),
		fmt.Sprintf("Lowest severity that fails the run, one of: %s", report.AllFailOn))
	cmd.Flags().StringVar(&la.Kind, "kind", string(lint.KindAuto),
		fmt.Sprintf("Kind of the linted files, one of: %s", lint.AllKinds))
	cmd.Flags().IntVarP(&la.Jobs, "jobs", "j", 0, "Number of files linted in parallel, defaults to the number of CPUs")
	cmd.Flags().BoolVarP(&la.Watch, "watch", "w", false, "Watch for changes and lint again")

	must(cmd.MarkFlagFilename("config", "yaml", "yml"))
	must(cmd.RegisterFlagCompletionFunc("format",
		cobra.FixedCompletions(report.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	))
	must(cmd.RegisterFlagCompletionFunc("fail-on",
		cobra.FixedCompletions(report.AllFailOn, cobra.ShellCompDirectiveNoFileComp),
	))
	must(cmd.RegisterFlagCompletionFunc("kind",
		cobra.FixedCompletions(lint.AllKinds, cobra.ShellCompDirectiveNoFileComp),
	))
}

func NewLintCmd(la *LintArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "lint [paths...]",
		Short:   "Lint profiler configs and manifests (default command)",
		Example: lintExamples,
		Args:    cobra.ArbitraryArgs,
		ValidArgsFunction: func(_ *cobra.Command, _ []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			la.Paths = args

			return runLint(cmd, la)
		},
	}
	la.AddFlags(cmd)

	return cmd
}

func runLint(cmd *cobra.Command, la *LintArgs) error {
	ctx := cmd.Context()

	kind, err := lint.ParseKind(la.Kind)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	format, err := report.ParseFormat(la.Format)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	failOn, err := report.ParseFailOn(la.FailOn)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	cfg, err := loadLintConfig(cmd.ErrOrStderr(), la.ConfigPath, la.Paths)
	if err != nil {
		return err
	}

	printer := report.NewPrinter(format, report.WithColor(isTerminal(cmd.OutOrStdout())))
	linter := lint.New(
		lint.WithConfig(cfg),
		lint.WithJobs(la.Jobs),
		lint.WithKind(kind),
	)

	if len(la.Paths) == 1 && la.Paths[0] == "-" {
		return lintStdin(cmd, linter, printer, kind, failOn)
	}

	if la.Watch {
		err := linter.Watch(ctx, la.Paths, func(r *report.Report, err error) {
			if err != nil {
				slog.ErrorContext(ctx, "lint", slog.Any("error", err))
				return
			}

			err = printer.Print(cmd.OutOrStdout(), r)
			if err != nil {
				slog.ErrorContext(ctx, "print report", slog.Any("error", err))
			}
		})
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}

		return nil
	}

	r, err := linter.LintPaths(ctx, la.Paths)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	return printReport(cmd.OutOrStdout(), printer, r, failOn)
}

func lintStdin(cmd *cobra.Command, linter *lint.Linter, printer *report.Printer, kind lint.Kind, failOn report.FailOn) error {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	if kind == lint.KindAuto {
		kind = lint.KindProfiler
	}

	f, err := linter.LintContent(cmd.Context(), kind, "<stdin>", data)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	return printReport(cmd.OutOrStdout(), printer, report.New(f), failOn)
}

func printReport(w io.Writer, printer *report.Printer, r *report.Report, failOn report.FailOn) error {
	err := printer.Print(w, r)
	if err != nil {
		return fmt.Errorf("print report: %w", err)
	}

	if r.Failed(failOn) {
		return fmt.Errorf("%w: %s", ErrLintFailed, r.Summary())
	}

	return nil
}

// loadLintConfig loads the config at path, or the one found next to the
// first linted path. Without either, the built-in defaults are used.
func loadLintConfig(stderr io.Writer, path string, paths []string) (*lintconfigs.LintConfig, error) {
	if path == "" {
		target := "."
		if len(paths) > 0 && paths[0] != "-" {
			target = paths[0]
		}

		found, err := lintconfigs.Find(target)
		if err != nil {
			slog.Debug("no lint config found", slog.String("target", target), slog.Any("error", err))
		}

		path = found
	}

	if path == "" {
		return lintconfigs.New(), nil
	}

	slog.Debug("load lint config", slog.String("path", path))

	cfg, err := lintconfigs.Load(path, config.WithColor(isTerminal(stderr)))
	if err != nil {
		return nil, err //nolint:wrapcheck // Already wrapped with the path.
	}

	return cfg, nil
}
