package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounce groups the burst of events an editor produces for one save.
const debounce = 100 * time.Millisecond

// watchAndProve runs run once, then again after every change to one of
// files, until ctx is done. Watching is per directory; events for other
// files are ignored.
func watchAndProve(ctx context.Context, logger *zap.Logger, files []string, run func(context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	targets := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		targets[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
		dirs[dir] = true
	}

	run(ctx)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, targets) {
				continue
			}
			if logger != nil {
				logger.Info("input changed", zap.String("file", event.Name), zap.Stringer("op", event.Op))
			}
			pending = time.After(debounce)
		case <-pending:
			pending = nil
			run(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if logger != nil {
				logger.Error("watch error", zap.Error(err))
			}
		}
	}
}

// limited bounds every call of run by limit.
func limited(run func(context.Context), limit time.Duration) func(context.Context) {
	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, limit)
		defer cancel()
		run(ctx)
	}
}

func relevant(event fsnotify.Event, targets map[string]bool) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return targets[abs]
}
