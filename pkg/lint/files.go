package lint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/macropower/rbplint/api/v1beta1/lintconfigs"
)

// ErrNoFiles is returned when the given paths select no files.
var ErrNoFiles = errors.New("no files to lint")

// target is a file to lint.
type target struct {
	path string
	kind Kind
	// sniff is set for profiler files found by walking a directory, which
	// are skipped when they turn out not to be profiler documents.
	sniff bool
}

// expand resolves paths into lint targets. Files named explicitly are
// always linted; directories are walked and filtered by the configured
// patterns. Paths that do not exist are expanded as globs.
func (l *Linter) expand(paths []string) ([]target, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var (
		targets []target
		seen    = map[string]bool{}
	)

	add := func(t target) {
		key := filepath.Clean(t.path)
		if seen[key] {
			return
		}

		seen[key] = true
		targets = append(targets, t)
	}

	for _, p := range paths {
		matches, isGlob, err := glob(p)
		if err != nil {
			return nil, err
		}
		if isGlob {
			for _, m := range matches {
				add(target{path: m, kind: l.kindFor(m, true)})
			}

			continue
		}

		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", p, err)
		}

		if !info.IsDir() {
			add(target{path: p, kind: l.kindFor(p, true)})
			continue
		}

		err = l.walk(p, add)
		if err != nil {
			return nil, err
		}
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, strings.Join(paths, ", "))
	}

	return targets, nil
}

// glob expands p when it does not exist and contains glob metacharacters.
// Otherwise isGlob is false and p is a plain path.
func glob(p string) (matches []string, isGlob bool, err error) {
	if !hasMeta(p) {
		return nil, false, nil
	}
	if _, err := os.Stat(p); !errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}

	matches, err = filepath.Glob(p)
	if err != nil {
		return nil, true, fmt.Errorf("expand %q: %w", p, err)
	}

	return matches, true, nil
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[")
}

func (l *Linter) walk(root string, add func(target)) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}

			return nil
		}

		if slices.Contains(lintconfigs.FileNames, name) {
			return nil
		}

		kind := l.kindFor(path, false)
		if kind == "" {
			return nil
		}

		add(target{
			path:  path,
			kind:  kind,
			sniff: kind == KindProfiler && l.kind == KindAuto,
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %q: %w", root, err)
	}

	return nil
}

func (l *Linter) kindFor(path string, explicit bool) Kind {
	if l.kind != KindAuto {
		return l.kind
	}

	return l.detect(path, explicit)
}

// detect picks the kind of path from its base name. Manifest patterns are
// tried first. When nothing matches, explicit files fall back to their
// extension and other files are skipped with an empty kind.
func (l *Linter) detect(path string, explicit bool) Kind {
	name := filepath.Base(path)
	files := l.config.Files

	if matchAny(files.Manifest, name) {
		return KindManifest
	}
	if matchAny(files.Profiler, name) {
		return KindProfiler
	}
	if !explicit {
		return ""
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".in":
		return KindManifest
	}

	return KindProfiler
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		ok, err := filepath.Match(pattern, name)
		if err == nil && ok {
			return true
		}
	}

	return false
}
