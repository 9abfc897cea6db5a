package lint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/macropower/rbplint/pkg/log"
	"github.com/macropower/rbplint/pkg/report"
)

// Watch lints paths, then lints them again after every change to a
// watched file, passing each result to fn. Lint failures are passed to fn
// as well. It blocks until ctx is done.
func (l *Linter) Watch(ctx context.Context, paths []string, fn func(*report.Report, error)) error {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	defer func() {
		err := watcher.Close()
		if err != nil {
			slog.Error("close watcher", slog.Any("err", err))
		}
	}()

	w := &watch{
		linter:  l,
		watcher: watcher,
		files:   map[string]struct{}{},
		dirs:    map[string]struct{}{},
	}

	for _, p := range paths {
		err := w.add(p)
		if err != nil {
			return err
		}
	}

	logger := log.WithContext(ctx)
	logger.DebugContext(ctx, "added file watchers",
		slog.Int("dirs", len(w.dirs)),
		slog.Int("files", len(w.files)),
	)

	run := func() {
		fn(l.LintPaths(ctx, paths))
	}

	run()

	timer := time.NewTimer(l.debounce)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Ignore events that are not related to file content changes.
			if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
				continue
			}

			if evt.Has(fsnotify.Create) {
				w.addCreatedDir(ctx, evt.Name)
			}

			if !w.relevant(evt.Name) {
				continue
			}

			logger.DebugContext(ctx, "file changed", slog.String("event", evt.String()))
			timer.Reset(l.debounce)

		case <-timer.C:
			run()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			fn(nil, fmt.Errorf("watch: %w", err))
		}
	}
}

type watch struct {
	linter  *Linter
	watcher *fsnotify.Watcher

	// Absolute paths of files named explicitly.
	files map[string]struct{}

	// Absolute paths of watched directories. Files in these are relevant
	// when their names select a kind.
	dirs map[string]struct{}

	// Absolute glob patterns. Matching files are relevant.
	patterns []string
}

func (w *watch) add(path string) error {
	matches, isGlob, err := glob(path)
	if err != nil {
		return err
	}
	if isGlob {
		return w.addGlob(path, matches)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat %q: %w", path, err)
	}

	if !info.IsDir() {
		// Watch the parent so that editors replacing the file are seen.
		err = w.watcher.Add(filepath.Dir(abs))
		if err != nil {
			return fmt.Errorf("add path to watcher: %w", err)
		}

		w.files[abs] = struct{}{}

		return nil
	}

	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != abs && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		err = w.watcher.Add(p)
		if err != nil {
			return fmt.Errorf("add path to watcher: %w", err)
		}

		w.dirs[p] = struct{}{}

		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %q: %w", path, err)
	}

	return nil
}

// addGlob watches the directories of the current matches, and the
// pattern's own directory when it is literal, so that new matches are seen.
func (w *watch) addGlob(pattern string, matches []string) error {
	abs, err := filepath.Abs(pattern)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", pattern, err)
	}

	w.patterns = append(w.patterns, abs)

	dirs := map[string]struct{}{}
	if dir := filepath.Dir(abs); !hasMeta(dir) {
		dirs[dir] = struct{}{}
	}

	for _, m := range matches {
		am, err := filepath.Abs(m)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", m, err)
		}

		dirs[filepath.Dir(am)] = struct{}{}
	}

	for dir := range dirs {
		err := w.watcher.Add(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("add path to watcher: %w", err)
		}
	}

	return nil
}

// addCreatedDir starts watching a directory created inside a watched
// directory.
func (w *watch) addCreatedDir(ctx context.Context, path string) {
	if _, ok := w.dirs[filepath.Dir(path)]; !ok {
		return
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	err = w.add(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithContext(ctx).ErrorContext(ctx, "watch new directory",
			slog.String("path", path),
			slog.Any("err", err),
		)
	}
}

func (w *watch) relevant(path string) bool {
	if _, ok := w.files[path]; ok {
		return true
	}
	for _, p := range w.patterns {
		if ok, _ := filepath.Match(p, path); ok {
			return true
		}
	}
	if _, ok := w.dirs[filepath.Dir(path)]; !ok {
		return false
	}

	return w.linter.kindFor(path, false) != ""
}
