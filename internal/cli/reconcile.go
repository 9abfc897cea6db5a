package cli

import (
	"bytes"
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/spf13/cobra"

	"github.com/macropower/rbplint/pkg/config"
	"github.com/macropower/rbplint/pkg/profiler"
	"github.com/macropower/rbplint/pkg/reconcile"
)

type ReconcileArgs struct {
	ConfigPath                       string
	Variables                        string
	DomainBuilder                    string
	ParameterBuilders                string
	ExpectationConfigurationBuilders string
	Diff                             bool
}

func (ra *ReconcileArgs) AddFlags(cmd *cobra.Command) {
	d := reconcile.DefaultDirectives()
	usage := fmt.Sprintf("one of: %s", reconcile.AllStrategies)

	cmd.Flags().StringVar(&ra.ConfigPath, "config", "", "Path to the rbplint configuration file")
	cmd.Flags().StringVar(&ra.Variables, "variables", string(d.Variables), "Strategy for variables, "+usage)
	cmd.Flags().StringVar(&ra.DomainBuilder, "domain-builder", string(d.DomainBuilder),
		"Strategy for domain builders, "+usage)
	cmd.Flags().StringVar(&ra.ParameterBuilders, "parameter-builders", string(d.ParameterBuilders),
		"Strategy for parameter builders, "+usage)
	cmd.Flags().StringVar(&ra.ExpectationConfigurationBuilders, "expectation-configuration-builders",
		string(d.ExpectationConfigurationBuilders), "Strategy for expectation configuration builders, "+usage)
	cmd.Flags().BoolVar(&ra.Diff, "diff", false, "Print a unified diff against the base instead of the result")

	must(cmd.MarkFlagFilename("config", "yaml", "yml"))
	for _, name := range []string{
		"variables",
		"domain-builder",
		"parameter-builders",
		"expectation-configuration-builders",
	} {
		must(cmd.RegisterFlagCompletionFunc(name,
			cobra.FixedCompletions(reconcile.AllStrategies, cobra.ShellCompDirectiveNoFileComp),
		))
	}
}

// Directives parses the strategy flags.
func (ra *ReconcileArgs) Directives() (reconcile.Directives, error) {
	var (
		d   reconcile.Directives
		err error
	)

	for _, f := range []struct {
		dst *reconcile.Strategy
		val string
	}{
		{&d.Variables, ra.Variables},
		{&d.DomainBuilder, ra.DomainBuilder},
		{&d.ParameterBuilders, ra.ParameterBuilders},
		{&d.ExpectationConfigurationBuilders, ra.ExpectationConfigurationBuilders},
	} {
		*f.dst, err = reconcile.ParseStrategy(f.val)
		if err != nil {
			return d, err //nolint:wrapcheck // Already descriptive.
		}
	}

	return d, nil
}

func NewReconcileCmd() *cobra.Command {
	ra := &ReconcileArgs{}

	cmd := &cobra.Command{
		Use:   "reconcile <base> <overrides>",
		Short: "Apply variable and rule overrides to a profiler config",
		Example: `  # Print the effective config:
  rbplint reconcile profiler.yaml overrides.yaml

  # Merge nested builder attributes and show what changes:
  rbplint reconcile profiler.yaml overrides.yaml --parameter-builders nested_update --diff`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, ra, args[0], args[1])
		},
	}
	ra.AddFlags(cmd)

	return cmd
}

func runReconcile(cmd *cobra.Command, ra *ReconcileArgs, basePath, overridesPath string) error {
	d, err := ra.Directives()
	if err != nil {
		return err
	}

	lintCfg, err := loadLintConfig(cmd.ErrOrStderr(), ra.ConfigPath, []string{basePath})
	if err != nil {
		return err
	}

	base, err := profiler.LoadFile(basePath, config.WithColor(isTerminal(cmd.ErrOrStderr())))
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped with the path.
	}

	overrides, err := reconcile.LoadOverrides(overridesPath)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped with the path.
	}

	result := reconcile.Config(base, overrides, d, lintCfg.Registry())

	w := cmd.OutOrStdout()
	color := isTerminal(w)

	if ra.Diff {
		diff, err := reconcile.Diff(basePath, base, result)
		if err != nil {
			return err //nolint:wrapcheck // Already wrapped.
		}

		return writeHighlighted(w, diff, "diff", color)
	}

	out, err := profiler.Marshal(result)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	return writeHighlighted(w, string(out), "yaml", color)
}

// writeHighlighted writes src, highlighted as lexer when color is set.
func writeHighlighted(w io.Writer, src, lexer string, color bool) error {
	if color {
		var buf bytes.Buffer

		err := quick.Highlight(&buf, src, lexer, "terminal256", "monokai")
		if err == nil {
			src = buf.String()
		}
	}

	_, err := io.WriteString(w, src)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}
