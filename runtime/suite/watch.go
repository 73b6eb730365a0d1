package suite

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long Watch waits for further changes before
// reconverting.
const DefaultDebounce = 300 * time.Millisecond

// ChangeFunc receives the tests whose transcripts changed.
type ChangeFunc func(ctx context.Context, idx *Index) error

// Watch watches the transcripts below root/Root, which must be the directory
// fsys reads from, and calls onChange with the complete tests touched by each
// burst of changes. It returns when ctx is done or onChange fails.
func (s *Suite) Watch(ctx context.Context, root string, debounce time.Duration, onChange ChangeFunc, patterns ...string) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addRecursive(w, filepath.Join(root, Root)); err != nil {
		return err
	}
	s.logger.Info("watching transcripts", zap.String("root", root), zap.Duration("debounce", debounce))

	pending := make(map[string]bool)
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", zap.Error(err))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addRecursive(w, ev.Name); err != nil {
						s.logger.Warn("watch directory", zap.String("dir", ev.Name), zap.Error(err))
					}
					continue
				}
			}
			testPath, ok := watchedTestPath(root, ev.Name)
			if !ok || ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			pending[testPath] = true
			timer.Reset(debounce)

		case <-timer.C:
			idx, err := Discover(s.fsys, patterns...)
			if err != nil {
				return err
			}
			changed := idx.Only(pending)
			clear(pending)
			if len(changed.Complete) == 0 {
				continue
			}
			s.logger.Info("transcripts changed", zap.Int("tests", len(changed.Complete)))
			if err := onChange(ctx, changed); err != nil {
				return err
			}
		}
	}
}

// watchedTestPath maps a file name reported by the watcher to its test path.
func watchedTestPath(root, name string) (string, bool) {
	rel, err := filepath.Rel(root, name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, Root+"/") {
		return "", false
	}
	switch ext := path.Ext(rel); ext {
	case ".test", ".rb", ".expected":
		return strings.TrimSuffix(rel, ext), true
	}
	return "", false
}

func addRecursive(w *fsnotify.Watcher, dir string) error {
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.Add(p)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
