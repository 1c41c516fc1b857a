package server

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"airflow-mcp/pkg/logging"
)

// WatchRegistryFile watches the registry file and logs a warning when it
// changes on disk. The registry is loaded once and immutable for the process
// lifetime, so a change only takes effect after a restart; the warning makes
// that visible instead of silently serving stale configuration.
//
// The parent directory is watched rather than the file itself because most
// editors and config management tools replace the file, which drops a watch
// placed directly on it.
func WatchRegistryFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				logging.Warn("Registry", "instances file %s changed on disk; restart to apply the new configuration", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Error("Registry", err, "instances file watcher error")
			}
		}
	}()
	return nil
}
