package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ErrInvalidEnv is returned when an environment variable cannot be parsed
// as the value of its flag.
var ErrInvalidEnv = errors.New("invalid environment variable")

// envBinder sets flags from RBPLINT_<FLAG> environment variables, where the
// flag name is upper-cased and dashes become underscores. Flags given on
// the command line keep their value.
//
// Values that do not parse are collected and returned by [envBinder.Err],
// so that they fail the command once it runs.
type envBinder struct {
	lookup  func(key string) (string, bool)
	seen    map[*pflag.Flag]bool
	invalid []envError
}

type envError struct {
	flag *pflag.Flag
	err  error
}

func newEnvBinder(lookup func(key string) (string, bool)) *envBinder {
	return &envBinder{
		lookup: lookup,
		seen:   map[*pflag.Flag]bool{},
	}
}

// Bind binds the flags of cmd and of all its subcommands.
func (b *envBinder) Bind(cmd *cobra.Command) {
	cmd.PersistentFlags().VisitAll(b.bindFlag)
	cmd.Flags().VisitAll(b.bindFlag)

	for _, sub := range cmd.Commands() {
		b.Bind(sub)
	}
}

// Err returns the parse failures of variables bound to the flags of cmd,
// skipping flags that were given on the command line.
func (b *envBinder) Err(cmd *cobra.Command) error {
	var errs []error
	for _, e := range b.invalid {
		if e.flag.Changed || cmd.Flags().Lookup(e.flag.Name) != e.flag {
			continue
		}

		errs = append(errs, e.err)
	}

	return errors.Join(errs...)
}

func (b *envBinder) bindFlag(flag *pflag.Flag) {
	if b.seen[flag] {
		return
	}

	b.seen[flag] = true

	key := envName(flag.Name)
	if !strings.Contains(flag.Usage, key) {
		flag.Usage = fmt.Sprintf("%s ($%s)", flag.Usage, key)
	}

	if flag.Changed {
		return
	}

	value, ok := b.lookup(key)
	if !ok {
		return
	}

	err := flag.Value.Set(value)
	if err != nil {
		b.invalid = append(b.invalid, envError{
			flag: flag,
			err:  fmt.Errorf("%w %s=%q: %w", ErrInvalidEnv, key, value, err),
		})
	}
}

// envName returns the environment variable for a flag, e.g. "fail-on"
// becomes "RBPLINT_FAIL_ON".
func envName(flagName string) string {
	return strings.ToUpper(cmdName + "_" + strings.ReplaceAll(flagName, "-", "_"))
}
