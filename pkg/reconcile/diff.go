package reconcile

import (
	"fmt"

	"github.com/aymanbagabas/go-udiff"

	"github.com/macropower/rbplint/pkg/profiler"
)

// Diff returns a unified diff between the YAML renderings of base and
// reconciled. It is empty when the two render identically.
func Diff(label string, base, reconciled *profiler.Config) (string, error) {
	before, err := profiler.Marshal(base)
	if err != nil {
		return "", fmt.Errorf("marshal base: %w", err)
	}

	after, err := profiler.Marshal(reconciled)
	if err != nil {
		return "", fmt.Errorf("marshal reconciled: %w", err)
	}

	return udiff.Unified(label, label+" (reconciled)", string(before), string(after)), nil
}
