package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/macropower/rbplint/pkg/log"
	"github.com/macropower/rbplint/pkg/telemetry"
)

const (
	cmdName = "rbplint"
	cmdDesc = `Linter for rule-based profiler configurations and Python requirements manifests.`
)

type RootArgs struct {
	shutdown telemetry.ShutdownFunc

	LogLevel     string
	LogFormat    string
	OTLPEndpoint string
	OTLPInsecure bool
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVar(&ra.LogLevel, "log-level", "info", fmt.Sprintf("Log level, one of: %s", log.AllLevels))
	cmd.PersistentFlags().
		StringVar(&ra.LogFormat, "log-format", "text", fmt.Sprintf("Log format, one of: %s", log.AllFormats))
	cmd.PersistentFlags().
		StringVar(&ra.OTLPEndpoint, "otlp-endpoint", "", "OTLP/gRPC endpoint to export traces to, disabled when empty")
	cmd.PersistentFlags().
		BoolVar(&ra.OTLPInsecure, "otlp-insecure", false, "Disable TLS for the OTLP endpoint")

	var err error

	err = cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(log.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(log.AllLevels, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}
}

func NewRootCmd() *cobra.Command {
	args := NewRootArgs()
	lintArgs := NewLintArgs(args)

	lintCmd := NewLintCmd(lintArgs)
	env := newEnvBinder(os.LookupEnv)
	cmd := &cobra.Command{
		Use:                cmdName + " [paths...]",
		Short:              cmdDesc,
		Example:            lintExamples,
		PersistentPreRunE:  setup(args, env),
		PersistentPostRunE: teardown(args),
		ValidArgsFunction:  lintCmd.ValidArgsFunction,
		Args:               lintCmd.Args,
		RunE:               lintCmd.RunE,
	}

	args.AddFlags(cmd)
	lintArgs.AddFlags(cmd)

	cmd.AddCommand(
		lintCmd,
		NewReconcileCmd(),
		NewSummaryCmd(),
		NewSchemaCmd(),
		NewMCPCmd(),
		NewInitCmd(),
		NewVersionCmd(),
	)

	env.Bind(cmd)

	return cmd
}

func setup(ra *RootArgs, env *envBinder) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		err := env.Err(cmd)
		if err != nil {
			return err
		}

		_, err = log.Setup(cmd.ErrOrStderr(), ra.LogLevel, ra.LogFormat)
		if err != nil {
			return fmt.Errorf("setup logging: %w", err)
		}

		ra.shutdown, err = telemetry.Setup(cmd.Context(), ra.OTLPEndpoint,
			telemetry.WithInsecure(ra.OTLPInsecure),
		)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}

		return nil
	}
}

func teardown(ra *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if ra.shutdown == nil {
			return nil
		}

		err := ra.shutdown(context.WithoutCancel(cmd.Context()))
		if err != nil {
			slog.WarnContext(cmd.Context(), "flush traces", slog.Any("error", err))
		}

		return nil
	}
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd())) //nolint:gosec // File descriptors fit in an int.
}
