package server

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/oshokin/latmon/internal/logger"
)

// reloadOps are the events that may leave a new snapshot behind. The file
// is replaced by rename, so the directory is watched rather than the file.
const reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename

// watchResults calls reload whenever the snapshot at path changes, until the
// context is canceled.
func watchResults(ctx context.Context, path string, reload func(context.Context)) error {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(path)
	if err = watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	logger.InfoKV(ctx, "Watching results", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != path || event.Op&reloadOps == 0 {
				continue
			}

			logger.DebugKV(ctx, "Results changed", "op", event.Op.String())
			reload(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.WarnKV(ctx, "Results watcher error", "error", err)
		}
	}
}
