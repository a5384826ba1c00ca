package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/coasters/internal/app"
	"github.com/dshills/coasters/internal/config"
	"github.com/dshills/coasters/internal/log"
	"github.com/dshills/coasters/internal/persist"
	"github.com/dshills/coasters/internal/vfs"
	"github.com/dshills/coasters/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the world and reload coasters and settings changed on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Background saves would trigger reloads of our own writes.
			opts := appOptions()
			opts.AutosaveInterval = 0
			return openApp(opts, func(a *app.Application) error {
				return watch(cmd.Context(), a, delay)
			})
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", 200*time.Millisecond,
		"quiet time before a changed file is reloaded")
	return cmd
}

// watch runs the tick loop and reloads coasters and settings changed on
// disk until ctx is canceled.
func watch(ctx context.Context, a *app.Application, delay time.Duration) error {
	logger := log.Default().Named("watch")
	dir := a.World().Store.Dir()

	fw, err := watcher.NewFSNotifyWatcher(watcher.WithFilter(func(e watcher.Event) bool {
		_, ok := persist.CoasterName(filepath.Base(e.Path))
		return ok
	}))
	if err != nil {
		return err
	}
	// A save writes name.csv.tmp then renames it; both belong to one coaster.
	w := watcher.NewDebouncedWatcher(fw, delay, watcher.WithKey(func(path string) string {
		name, _ := persist.CoasterName(filepath.Base(path))
		return name
	}))
	defer w.Close()
	if err := w.Watch(dir); err != nil {
		return err
	}
	logger.Info("watching coaster files", log.String("dir", dir))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(ctx) })
	g.Go(func() error {
		watcher.Listen(ctx, w, func(e watcher.Event) {
			name, ok := persist.CoasterName(filepath.Base(e.Path))
			if !ok {
				return
			}
			if _, err := a.Reload(name); err != nil {
				logger.Warn("reload failed", log.String("coaster", name), log.ErrorField(err))
			}
		}, func(err error) {
			logger.Warn("coaster watcher error", log.ErrorField(err))
		})
		return nil
	})
	g.Go(func() error {
		if err := config.Watch(ctx, vfs.NewOSFS(), settingsPath(), delay, a.ApplySettings); err != nil {
			logger.Warn("settings are not watched", log.String("path", settingsPath()), log.ErrorField(err))
		}
		return nil
	})
	return g.Wait()
}
