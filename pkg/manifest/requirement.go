package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	ErrInvalidRequirement = errors.New("invalid requirement")
	ErrUnknownComparator  = errors.New("unknown comparator")
	ErrInvalidVersion     = errors.New("invalid version")
)

// Comparators lists the PEP 440 version comparators.
var Comparators = []string{"==", "!=", "<=", ">=", "<", ">", "~=", "==="}

var (
	// nameRe matches a PEP 508 name, optional extras and the remainder.
	nameRe = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)\s*(?:\[([^\]]*)\])?\s*(.*)$`)

	extraRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)

	// specifierRe matches any run of comparator characters followed by a
	// version, so that unknown comparators can be told apart from syntax
	// errors.
	specifierRe = regexp.MustCompile(`^([<>=!~]+)\s*(\S+)$`)

	// versionRe matches a PEP 440 public version.
	versionRe = regexp.MustCompile(`(?i)^v?(?:[0-9]+!)?[0-9]+(?:\.[0-9]+)*` +
		`(?:[-_.]?(?:a|b|c|rc|alpha|beta|pre|preview)[-_.]?[0-9]*)?` +
		`(?:-[0-9]+|[-_.]?(?:post|rev|r)[-_.]?[0-9]*)?` +
		`(?:[-_.]?dev[-_.]?[0-9]*)?$`)

	// localRe matches a PEP 440 local version label such as `+cu118`.
	localRe = regexp.MustCompile(`(?i)^[a-z0-9]+(?:[-_.][a-z0-9]+)*$`)

	// prefixRe matches a release prefix used with a trailing `.*`.
	prefixRe = regexp.MustCompile(`^v?(?:[0-9]+!)?[0-9]+(?:\.[0-9]+)*$`)

	normalizeRe = regexp.MustCompile(`[-_.]+`)
)

// Specifier is a single version constraint such as `>=1.2`.
type Specifier struct {
	Comparator string `json:"comparator"`
	Version    string `json:"version"`
}

func (s Specifier) String() string {
	return s.Comparator + s.Version
}

// Requirement is a parsed PEP 508 requirement.
type Requirement struct {
	Name       string      `json:"name"`
	URL        string      `json:"url,omitempty"`
	Marker     string      `json:"marker,omitempty"`
	Extras     []string    `json:"extras,omitempty"`
	Specifiers []Specifier `json:"specifiers,omitempty"`
}

// NormalizedName returns the name in PEP 503 normalized form.
func (r Requirement) NormalizedName() string {
	return NormalizeName(r.Name)
}

// Pinned reports whether the requirement is pinned to a single version
// with `==` or `===`.
func (r Requirement) Pinned() bool {
	if len(r.Specifiers) != 1 {
		return false
	}

	s := r.Specifiers[0]

	return (s.Comparator == "==" && !strings.HasSuffix(s.Version, ".*")) || s.Comparator == "==="
}

func (r Requirement) String() string {
	var sb strings.Builder
	sb.WriteString(r.Name)

	if len(r.Extras) > 0 {
		fmt.Fprintf(&sb, "[%s]", strings.Join(r.Extras, ","))
	}

	specs := make([]string, len(r.Specifiers))
	for i, s := range r.Specifiers {
		specs[i] = s.String()
	}

	sb.WriteString(strings.Join(specs, ","))

	if r.URL != "" {
		fmt.Fprintf(&sb, " @ %s", r.URL)
	}
	if r.Marker != "" {
		fmt.Fprintf(&sb, "; %s", r.Marker)
	}

	return sb.String()
}

// NormalizeName lowercases name and collapses runs of `-`, `_` and `.`
// into a single `-`.
func NormalizeName(name string) string {
	return normalizeRe.ReplaceAllString(strings.ToLower(name), "-")
}

// ParseRequirement parses a requirement line without its comment. Only the
// syntax is checked; comparators and versions are checked by
// [Specifier.Validate].
func ParseRequirement(s string) (Requirement, error) {
	var req Requirement

	// Per-requirement options such as --hash are not part of the
	// requirement.
	if i := strings.Index(s, " --"); i >= 0 {
		s = s[:i]
	}

	s, marker, _ := strings.Cut(s, ";")
	req.Marker = strings.TrimSpace(marker)

	matches := nameRe.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return req, fmt.Errorf("%w: %q: invalid package name", ErrInvalidRequirement, strings.TrimSpace(s))
	}

	req.Name = matches[1]

	if matches[2] != "" {
		for extra := range strings.SplitSeq(matches[2], ",") {
			extra = strings.TrimSpace(extra)
			if !extraRe.MatchString(extra) {
				return req, fmt.Errorf("%w: invalid extra %q", ErrInvalidRequirement, extra)
			}

			req.Extras = append(req.Extras, extra)
		}
	}

	rest := strings.TrimSpace(matches[3])
	if url, ok := strings.CutPrefix(rest, "@"); ok {
		req.URL = strings.TrimSpace(url)
		if req.URL == "" {
			return req, fmt.Errorf("%w: empty url", ErrInvalidRequirement)
		}

		return req, nil
	}

	if strings.HasPrefix(rest, "(") {
		if !strings.HasSuffix(rest, ")") {
			return req, fmt.Errorf("%w: unbalanced parentheses", ErrInvalidRequirement)
		}

		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}

	if rest == "" {
		return req, nil
	}

	for part := range strings.SplitSeq(rest, ",") {
		part = strings.TrimSpace(part)

		m := specifierRe.FindStringSubmatch(part)
		if m == nil {
			return req, fmt.Errorf("%w: invalid version specifier %q", ErrInvalidRequirement, part)
		}

		req.Specifiers = append(req.Specifiers, Specifier{Comparator: m[1], Version: m[2]})
	}

	return req, nil
}

// Validate checks the comparator against allowed, or against all of
// [Comparators] when allowed is empty, and the version against the
// comparator's rules.
func (s Specifier) Validate(allowed []string) error {
	if !slices.Contains(Comparators, s.Comparator) {
		return fmt.Errorf("%w %q", ErrUnknownComparator, s.Comparator)
	}
	if len(allowed) > 0 && !slices.Contains(allowed, s.Comparator) {
		return fmt.Errorf("%w: %q is not allowed, use one of %s",
			ErrUnknownComparator, s.Comparator, strings.Join(allowed, ", "))
	}

	switch s.Comparator {
	case "===":
		return nil

	case "==", "!=":
		if prefix, ok := strings.CutSuffix(s.Version, ".*"); ok {
			if !prefixRe.MatchString(prefix) {
				return fmt.Errorf("%w %q", ErrInvalidVersion, s.Version)
			}

			return nil
		}

		public, local, ok := strings.Cut(s.Version, "+")
		if !ok {
			break
		}
		if !versionRe.MatchString(public) || !localRe.MatchString(local) {
			return fmt.Errorf("%w %q", ErrInvalidVersion, s.Version)
		}

		return nil

	case "~=":
		if !versionRe.MatchString(s.Version) {
			return fmt.Errorf("%w %q", ErrInvalidVersion, s.Version)
		}
		if release := releaseSegments(s.Version); release < 2 {
			return fmt.Errorf("%w %q: ~= needs at least two release segments", ErrInvalidVersion, s.Version)
		}

		return nil
	}

	if strings.Contains(s.Version, "+") {
		return fmt.Errorf("%w %q: local versions are only allowed with ==, != and ===",
			ErrInvalidVersion, s.Version)
	}
	if !versionRe.MatchString(s.Version) {
		return fmt.Errorf("%w %q", ErrInvalidVersion, s.Version)
	}

	return nil
}

// releaseSegments counts the dot-separated numbers of the release part of
// a valid version.
func releaseSegments(version string) int {
	v := strings.TrimPrefix(strings.ToLower(version), "v")
	if _, after, ok := strings.Cut(v, "!"); ok {
		v = after
	}

	n := 0
	for part := range strings.SplitSeq(v, ".") {
		digits := len(part) - len(strings.TrimLeft(part, "0123456789"))
		if digits == 0 {
			break
		}

		n++

		if digits < len(part) {
			break
		}
	}

	return n
}
