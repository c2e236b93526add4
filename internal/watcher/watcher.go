// Package watcher reports external changes to the content directory.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Event kinds passed to Callback.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// Callback is called for every document change. kind is one of Created,
// Updated or Deleted.
type Callback func(kind, id string)

// Resolver maps file names in the content directory to article ids.
type Resolver interface {
	Root() string
	IDFromFilename(name string) (string, bool)
}

// Watch starts an fsnotify watcher on the content directory and reports
// document changes until ctx is cancelled. Only files the resolver accepts
// are reported; subdirectories are ignored.
//
// A file replaced through rename (as the store writes it) arrives as a
// Create on the final name, so a set of known ids decides between Created
// and Updated.
func Watch(ctx context.Context, res Resolver, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := res.Root()
	if err := w.Add(root); err != nil {
		return err
	}

	known := scan(root, res)
	logger.Info("watcher: started", slog.String("root", root), slog.Int("documents", len(known)))

	emit := func(kind, id string) {
		logger.Debug("watcher: change", slog.String("id", id), slog.String("op", kind))
		if cb != nil {
			cb(kind, id)
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Dir(ev.Name) != filepath.Clean(root) {
				continue
			}
			id, ok := res.IDFromFilename(filepath.Base(ev.Name))
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				info, statErr := os.Stat(ev.Name)
				if statErr != nil || info.IsDir() {
					continue
				}
				kind := Updated
				if _, seen := known[id]; !seen {
					kind = Created
					known[id] = struct{}{}
				}
				emit(kind, id)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old name only; the new name arrives
				// as its own Create.
				if _, statErr := os.Stat(ev.Name); statErr == nil {
					continue
				}
				if _, seen := known[id]; !seen {
					continue
				}
				delete(known, id)
				emit(Deleted, id)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func scan(root string, res Resolver) map[string]struct{} {
	known := make(map[string]struct{})
	entries, err := os.ReadDir(root)
	if err != nil {
		return known
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := res.IDFromFilename(e.Name()); ok {
			known[id] = struct{}{}
		}
	}
	return known
}
