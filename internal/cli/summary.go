package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macropower/rbplint/pkg/anonymize"
	"github.com/macropower/rbplint/pkg/config"
	"github.com/macropower/rbplint/pkg/profiler"
	"github.com/macropower/rbplint/pkg/report"
	"github.com/macropower/rbplint/pkg/yaml"
)

type SummaryArgs struct {
	Salt   string
	Format string
}

func (sa *SummaryArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sa.Salt, "salt", "", "Salt for the name hashes, a random UUID when empty")
	cmd.Flags().StringVar(&sa.Format, "format", string(report.FormatJSON),
		fmt.Sprintf("Output format, one of: %s, %s", report.FormatJSON, report.FormatYAML))

	must(cmd.RegisterFlagCompletionFunc("format",
		cobra.FixedCompletions([]string{string(report.FormatJSON), string(report.FormatYAML)},
			cobra.ShellCompDirectiveNoFileComp),
	))
}

func NewSummaryCmd() *cobra.Command {
	sa := &SummaryArgs{}

	cmd := &cobra.Command{
		Use:   "summary <path>",
		Short: "Print an anonymized usage summary of a profiler config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(sa.Format)
			if err != nil {
				return err //nolint:wrapcheck // Already descriptive.
			}

			cfg, err := profiler.LoadFile(args[0], config.WithColor(isTerminal(cmd.ErrOrStderr())))
			if err != nil {
				return err //nolint:wrapcheck // Already wrapped with the path.
			}

			run := anonymize.New(sa.Salt).ProfilerRun(cfg)

			w := cmd.OutOrStdout()

			switch format {
			case report.FormatYAML:
				enc := yaml.NewEncoder(w)
				err = enc.Encode(run)
				if err == nil {
					err = enc.Close()
				}
			default:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				err = enc.Encode(run)
			}
			if err != nil {
				return fmt.Errorf("write summary: %w", err)
			}

			return nil
		},
	}
	sa.AddFlags(cmd)

	return cmd
}
