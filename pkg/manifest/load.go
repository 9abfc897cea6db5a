package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/macropower/rbplint/pkg/check"
)

// Set is a root manifest together with every manifest it references,
// directly or indirectly.
type Set struct {
	Root *Manifest
	// Manifests holds every loaded manifest in load order, Root first.
	Manifests []*Manifest

	constraints map[*Manifest]bool
	problems    []check.Diagnostic
}

// Load reads the manifest at path and the manifests it references.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return LoadBytes(path, data)
}

// LoadBytes parses data as the manifest at path, and reads the manifests
// it references relative to the directory of path.
func LoadBytes(path string, data []byte) (*Set, error) {
	root, err := Parse(path, data)
	if err != nil {
		return nil, err
	}

	s := &Set{
		Root:        root,
		Manifests:   []*Manifest{root},
		constraints: map[*Manifest]bool{},
	}

	loaded := map[string]bool{filepath.Clean(path): true}

	for _, l := range root.References() {
		s.follow(l, root, l, []string{filepath.Clean(path)}, loaded)
	}

	return s, nil
}

// follow loads the manifest referenced by l, which is a line of from.
// Problems are reported on via, the line of the root manifest that led
// here. stack holds the chain of manifests being loaded.
func (s *Set) follow(l Line, from *Manifest, via Line, stack []string, loaded map[string]bool) {
	if l.Reference.Path == "" {
		return
	}

	target := l.Reference.Path
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(from.Path), target)
	}

	target = filepath.Clean(target)

	if slices.Contains(stack, target) {
		chain := append(slices.Clone(stack), target)
		s.problem(check.CyclicReference, via, "cyclic reference: %s", joinChain(chain))

		return
	}
	if loaded[target] {
		return
	}

	loaded[target] = true

	data, err := os.ReadFile(target)
	if err != nil {
		s.problem(check.MissingReference, via, "%s references %s: %v", from.Path, l.Reference.Path, err)
		return
	}

	m, err := Parse(target, data)
	if err != nil {
		s.problem(check.MissingReference, via, "%s references %s: %v", from.Path, l.Reference.Path, err)
		return
	}

	s.Manifests = append(s.Manifests, m)
	if l.Reference.Constraint || s.constraints[from] {
		s.constraints[m] = true
	}

	next := append(slices.Clip(stack), target)
	for _, ref := range m.References() {
		s.follow(ref, m, via, next, loaded)
	}
}

func (s *Set) problem(id check.ID, via Line, format string, args ...any) {
	d := check.NewAt(id, via.Number, column(via.Raw), format, args...)
	d.File = s.Root.Path
	s.problems = append(s.problems, d)
}

// Validate checks the root manifest, reports problems found while loading
// referenced manifests, and reports root packages that a referenced
// (non-constraint) manifest already lists.
func (s *Set) Validate(opts Options) []check.Diagnostic {
	diags := Validate(s.Root, opts)
	diags = append(diags, s.problems...)

	type origin struct {
		path string
		line int
	}

	listed := map[string]origin{}
	for _, m := range s.Manifests[1:] {
		if s.constraints[m] {
			continue
		}

		for _, l := range m.Requirements() {
			name := l.Requirement.NormalizedName()
			if _, ok := listed[name]; !ok {
				listed[name] = origin{path: m.Path, line: l.Number}
			}
		}
	}

	for _, l := range s.Root.Requirements() {
		o, ok := listed[l.Requirement.NormalizedName()]
		if !ok {
			continue
		}

		d := check.NewAt(check.DuplicatePackage, l.Number, column(l.Raw),
			"%s is already listed in %s:%d", l.Requirement.Name, o.path, o.line)
		d.File = s.Root.Path
		diags = append(diags, d)
	}

	return diags
}

func joinChain(chain []string) string {
	names := make([]string, len(chain))
	for i, p := range chain {
		names[i] = filepath.Base(p)
	}

	return strings.Join(names, " -> ")
}
