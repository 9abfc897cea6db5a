package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macropower/rbplint/api/v1beta1/lintconfigs"
)

func NewInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default " + lintconfigs.FileNames[0] + " to the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := lintconfigs.FileNames[0]

			wrote, err := lintconfigs.WriteDefault(path, force)
			if err != nil {
				return err //nolint:wrapcheck // Already wrapped.
			}

			if !wrote {
				mustN(fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, use --force to replace it\n", path))
				return nil
			}

			mustN(fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path))

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Back up and replace an existing config")

	return cmd
}
