package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macropower/rbplint/api/v1beta1/lintconfigs"
	"github.com/macropower/rbplint/pkg/profiler"
)

// ErrUnknownDocument is returned for an unknown schema document type.
var ErrUnknownDocument = errors.New("unknown document type")

var schemas = map[string]func() ([]byte, error){
	"profiler":   profiler.Schema,
	"lintconfig": lintconfigs.Schema,
}

func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema [profiler|lintconfig]",
		Short:     "Print the JSON schema of a document type",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []cobra.Completion{"profiler", "lintconfig"},
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := "profiler"
			if len(args) > 0 {
				doc = args[0]
			}

			schemaFn, ok := schemas[doc]
			if !ok {
				return fmt.Errorf("%w: %q", ErrUnknownDocument, doc)
			}

			b, err := schemaFn()
			if err != nil {
				return fmt.Errorf("generate %s schema: %w", doc, err)
			}

			mustN(fmt.Fprintln(cmd.OutOrStdout(), string(b)))

			return nil
		},
	}
}
