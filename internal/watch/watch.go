// Package watch reports debounced batches of file changes for continuous
// builds.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("watcher closed")

// Filter reports whether a change to path is relevant.
type Filter func(path string) bool

// Watcher watches directory trees and groups relevant changes.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	filter   Filter
}

// New watches every directory under roots. Hidden directories are skipped.
// A nil filter accepts every path.
func New(ctx context.Context, roots []string, debounce time.Duration, filter Filter) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}
	w := &Watcher{fs: fsw, debounce: debounce, filter: filter}
	for _, root := range roots {
		if err := w.addRecursive(ctx, root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// addRecursive adds a directory and all its subdirectories to the watch list.
func (w *Watcher) addRecursive(ctx context.Context, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("failed to watch %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			ctxlog.FromContext(ctx).Warn("Failed to watch directory.", "path", path, "error", err)
		}
		return nil
	})
}

// Next blocks until at least one relevant change happened and no further
// change arrived for the debounce interval. It returns the changed paths,
// sorted.
func (w *Watcher) Next(ctx context.Context) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil, ErrClosed
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(ctx, event.Name)
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.filter(event.Name) {
				continue
			}
			logger.Debug("File change detected.", "path", event.Name, "op", event.Op.String())
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil, ErrClosed
			}
			logger.Warn("File watcher error.", "error", err)

		case <-fire:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			return changed, nil
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// UnderAny returns a filter accepting paths equal to, below, or matching
// (as a glob) any of the given absolute patterns.
func UnderAny(patterns []string) Filter {
	return func(path string) bool {
		for _, p := range patterns {
			if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
				return true
			}
			if ok, _ := filepath.Match(p, path); ok {
				return true
			}
		}
		return false
	}
}
