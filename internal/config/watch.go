package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/dshills/coasters/internal/log"
	"github.com/dshills/coasters/internal/vfs"
	"github.com/dshills/coasters/internal/watcher"
)

// Watch re-reads the settings file at path whenever it changes and passes
// the result to apply, until ctx is canceled. A file that fails to parse is
// logged and the previous settings stay in effect. A removed file applies
// the defaults.
func Watch(ctx context.Context, v vfs.VFS, path string, delay time.Duration, apply func(Settings)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	logger := log.Default().Named("config")

	fw, err := watcher.NewFSNotifyWatcher(watcher.WithFilter(func(e watcher.Event) bool {
		return filepath.Clean(e.Path) == abs
	}))
	if err != nil {
		return err
	}
	w := watcher.NewDebouncedWatcher(fw, delay)
	defer w.Close()

	// Editors often replace the file by renaming over it, which drops a
	// watch on the file itself.
	if err := w.Watch(filepath.Dir(abs)); err != nil {
		return err
	}

	watcher.Listen(ctx, w, func(e watcher.Event) {
		s, err := LoadSettings(v, path)
		if err != nil {
			logger.Warn("keeping previous settings", log.String("path", path), log.ErrorField(err))
			return
		}
		logger.Info("settings reloaded", log.String("path", path), log.String("op", e.Op.String()))
		apply(s)
	}, func(err error) {
		logger.Warn("settings watcher error", log.ErrorField(err))
	})
	return nil
}
