// Package reference parses and resolves the `$` indirection strings used in
// profiler configuration documents, such as `$variables.quantiles` or
// `$parameter.my_metric.value[0]`.
package reference

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Root is the namespace a [Reference] points into.
type Root string

const (
	RootVariables Root = "variables"
	RootParameter Root = "parameter"
	RootDomain    Root = "domain"

	// Prefix marks a string as a reference.
	Prefix = "$"
)

var (
	ErrMalformed   = errors.New("malformed reference")
	ErrUnknownRoot = errors.New("unknown reference root")
	ErrNotFound    = errors.New("path not found")

	// ParameterFields are the fields a parameter builder result exposes.
	ParameterFields = []string{"value", "details"}

	// DomainFields are the top-level fields of a domain.
	DomainFields = []string{"domain_kwargs", "id", "domain_type", "rule_name"}
)

// Segment is one dotted element of a reference path, with any index
// suffixes that follow it.
type Segment struct {
	Key     string
	Indices []int
}

func (s Segment) String() string {
	var sb strings.Builder
	sb.WriteString(s.Key)

	for _, i := range s.Indices {
		fmt.Fprintf(&sb, "[%d]", i)
	}

	return sb.String()
}

// Reference is a parsed `$root.path` string.
type Reference struct {
	Raw  string
	Root Root
	Path []Segment
}

func (r Reference) String() string {
	return r.Raw
}

// Name returns the first path key, which is the parameter name for
// parameter references.
func (r Reference) Name() string {
	if len(r.Path) == 0 {
		return ""
	}

	return r.Path[0].Key
}

// Is reports whether s uses reference syntax.
func Is(s string) bool {
	return strings.HasPrefix(s, Prefix)
}

// Parse parses s as a reference. It returns false when s is not a
// reference at all, and an error when it is one but is malformed.
func Parse(s string) (Reference, bool, error) {
	if !Is(s) {
		return Reference{}, false, nil
	}

	ref := Reference{Raw: s}

	parts := strings.Split(strings.TrimPrefix(s, Prefix), ".")
	switch root := Root(parts[0]); root {
	case RootVariables, RootParameter, RootDomain:
		ref.Root = root
	case "":
		return ref, true, fmt.Errorf("%w: %q: missing root", ErrMalformed, s)
	default:
		return ref, true, fmt.Errorf("%w: %q in %q", ErrUnknownRoot, parts[0], s)
	}

	for _, part := range parts[1:] {
		seg, err := parseSegment(part)
		if err != nil {
			return ref, true, fmt.Errorf("%w: %q: %w", ErrMalformed, s, err)
		}

		ref.Path = append(ref.Path, seg)
	}

	if len(ref.Path) == 0 {
		return ref, true, fmt.Errorf("%w: %q: empty path", ErrMalformed, s)
	}

	return ref, true, nil
}

func parseSegment(part string) (Segment, error) {
	key, rest, _ := strings.Cut(part, "[")
	if key == "" {
		return Segment{}, errors.New("empty segment")
	}
	if strings.ContainsAny(key, "]$ ") {
		return Segment{}, fmt.Errorf("invalid segment %q", part)
	}

	seg := Segment{Key: key}
	if rest == "" && !strings.Contains(part, "[") {
		return seg, nil
	}

	// rest is everything after the first '[', e.g. `0][1]`.
	for rest != "" {
		idx, after, ok := strings.Cut(rest, "]")
		if !ok {
			return Segment{}, fmt.Errorf("unterminated index in %q", part)
		}

		n, err := strconv.Atoi(idx)
		if err != nil || n < 0 {
			return Segment{}, fmt.Errorf("invalid index %q in %q", idx, part)
		}

		seg.Indices = append(seg.Indices, n)

		if after == "" {
			break
		}
		if !strings.HasPrefix(after, "[") {
			return Segment{}, fmt.Errorf("unexpected %q after index in %q", after, part)
		}

		rest = after[1:]
	}

	if len(seg.Indices) == 0 {
		return Segment{}, fmt.Errorf("empty index in %q", part)
	}

	return seg, nil
}

// Lookup walks tree along path. Mappings are indexed by key and sequences
// by the segment's indices.
func Lookup(tree any, path []Segment) (any, error) {
	cur := tree

	for i, seg := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a mapping", ErrNotFound, joinPath(path[:i]))
		}

		next, ok := m[seg.Key]
		if !ok {
			return nil, fmt.Errorf("%w: no key %q at %s", ErrNotFound, seg.Key, joinPath(path[:i]))
		}

		for _, idx := range seg.Indices {
			list, ok := next.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s is not a sequence", ErrNotFound, joinPath(path[:i+1]))
			}
			if idx >= len(list) {
				return nil, fmt.Errorf("%w: index %d out of range for %s (length %d)",
					ErrNotFound, idx, joinPath(path[:i+1]), len(list))
			}

			next = list[idx]
		}

		cur = next
	}

	return cur, nil
}

func joinPath(path []Segment) string {
	if len(path) == 0 {
		return "root"
	}

	parts := make([]string, len(path))
	for i, seg := range path {
		parts[i] = seg.String()
	}

	return strings.Join(parts, ".")
}

// Collect returns every string in v, at any depth, that uses reference
// syntax. Mapping keys are visited in sorted order.
func Collect(v any) []string {
	var refs []string

	Walk(v, func(s string) {
		if Is(s) {
			refs = append(refs, s)
		}
	})

	return refs
}

// Walk calls fn for every string scalar in v.
func Walk(v any, fn func(string)) {
	switch t := v.(type) {
	case string:
		fn(t)
	case []any:
		for _, item := range t {
			Walk(item, fn)
		}
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(t)) {
			Walk(t[k], fn)
		}
	}
}
