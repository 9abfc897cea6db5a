//go:generate go run ../../internal/schemagen -root ../.. -o ../../schemas

package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/macropower/rbplint/internal/cli"
	"github.com/macropower/rbplint/pkg/version"
)

func main() {
	err := fang.Execute(context.Background(), cli.NewRootCmd(),
		fang.WithVersion(version.GetVersion()),
		fang.WithErrorHandler(cli.ErrorHandler),
		fang.WithColorSchemeFunc(cli.ColorScheme),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err != nil {
		os.Exit(1)
	}
}
