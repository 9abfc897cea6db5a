package manifest

import (
	"errors"
	"strings"

	"github.com/macropower/rbplint/pkg/check"
)

// Options configures [Validate].
type Options struct {
	// AllowedComparators narrows [Comparators]. Empty allows all.
	AllowedComparators []string
	// RequirePins reports packages not pinned with `==`.
	RequirePins bool
	// RequireBase reports manifests without a `-r` reference.
	RequireBase bool
}

// Validate checks the lines of a single manifest.
func Validate(m *Manifest, opts Options) []check.Diagnostic {
	var (
		diags   []check.Diagnostic
		seen    = map[string]int{}
		hasBase bool
	)

	report := func(id check.ID, l Line, format string, args ...any) {
		d := check.NewAt(id, l.Number, column(l.Raw), format, args...)
		d.File = m.Path
		diags = append(diags, d)
	}

	for _, l := range m.Lines {
		switch l.Kind {
		case KindReference:
			if l.Reference.Path == "" {
				report(check.InvalidRequirement, l, "reference has no path")
				continue
			}
			if !l.Reference.Constraint {
				hasBase = true
			}

		case KindRequirement:
			if l.Err != nil {
				report(check.InvalidRequirement, l, "%v", l.Err)
				continue
			}

			req := l.Requirement
			for _, spec := range req.Specifiers {
				err := spec.Validate(opts.AllowedComparators)
				switch {
				case err == nil:
				case errors.Is(err, ErrUnknownComparator):
					report(check.UnknownComparator, l, "%s: %v", req.Name, err)
				default:
					report(check.InvalidVersion, l, "%s: %v", req.Name, err)
				}
			}

			name := req.NormalizedName()
			if first, ok := seen[name]; ok {
				report(check.DuplicatePackage, l, "%s is already listed on line %d", req.Name, first)
			} else {
				seen[name] = l.Number
			}

			if opts.RequirePins && req.URL == "" && !req.Pinned() {
				report(check.UnpinnedPackage, l, "%s is not pinned to a single version with ==", req.Name)
			}
		}
	}

	if opts.RequireBase && !hasBase {
		d := check.NewAt(check.MissingBaseReference, 1, 1, "manifest does not reference a base manifest with -r")
		d.File = m.Path
		diags = append(diags, d)
	}

	return diags
}

// column returns the 1-based column of the first non-space character.
func column(raw string) int {
	return len(raw) - len(strings.TrimLeft(raw, " \t")) + 1
}
