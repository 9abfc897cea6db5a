package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macropower/rbplint/pkg/version"
)

func NewVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if short {
				mustN(fmt.Fprintln(cmd.OutOrStdout(), version.GetVersion()))
				return nil
			}

			mustN(fmt.Fprint(cmd.OutOrStdout(), version.GetInfo()))

			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version")

	return cmd
}
