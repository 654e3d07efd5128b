package manifest

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/obsidianstack/hekaconf/internal/plugin"
)

// Watch monitors path for changes and calls onChange with the newly loaded
// definitions each time the file is written. It runs until ctx is cancelled.
//
// If a reload fails (e.g., invalid YAML), the error is logged and onChange is
// not called.
func Watch(ctx context.Context, path string, onChange func([]plugin.Definition)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the parent directory; atomic saves replace the file's inode.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	slog.Info("manifest: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			defs, err := Load(path)
			if err != nil {
				slog.Error("manifest: reload failed, keeping previous definitions",
					"path", path, "err", err)
				continue
			}

			slog.Info("manifest: reloaded", "path", path, "definitions", len(defs))
			onChange(defs)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("manifest: watcher error", "err", err)
		}
	}
}
