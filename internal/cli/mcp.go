package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/macropower/rbplint/pkg/lint"
	"github.com/macropower/rbplint/pkg/mcp"
)

type MCPArgs struct {
	Address    string
	ConfigPath string
}

func (ma *MCPArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ma.Address, "address", "", "Serve streamable HTTP at this address instead of stdio")
	cmd.Flags().StringVar(&ma.ConfigPath, "config", "", "Path to the rbplint configuration file")

	must(cmd.MarkFlagFilename("config", "yaml", "yml"))
}

func NewMCPCmd() *cobra.Command {
	ma := &MCPArgs{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the lint tools over the Model Context Protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}

			cfg, err := loadLintConfig(cmd.ErrOrStderr(), ma.ConfigPath, []string{root})
			if err != nil {
				return err
			}

			server := mcp.NewServer(ma.Address, lint.New(lint.WithConfig(cfg)), root)

			err = server.Serve(cmd.Context())
			if err != nil {
				return fmt.Errorf("serve MCP: %w", err)
			}

			return nil
		},
	}
	ma.AddFlags(cmd)

	return cmd
}
