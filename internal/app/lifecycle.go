package app

import (
	"errors"
	"fmt"

	"github.com/dshills/coasters/internal/config"
	"github.com/dshills/coasters/internal/log"
	"github.com/dshills/coasters/internal/persist"
)

// Save writes the coasters of the world. Without force only dirty coasters
// are written. Files of coasters removed since the last save are deleted.
func (app *Application) Save(force bool) error {
	return app.Do(func(wc *WorldContext) error {
		if err := wc.Autosaver.Wait(); err != nil {
			app.log.Warn("previous autosave failed", log.ErrorField(err))
		}
		return wc.Store.SaveAll(wc.World, force)
	})
}

// Reload replaces one coaster with its file on disk. A coaster whose file
// is gone is removed from the world.
func (app *Application) Reload(name string) (*persist.LoadResult, error) {
	var res *persist.LoadResult
	err := app.Do(func(wc *WorldContext) error {
		var err error
		res, err = wc.Store.Load(wc.World, name)
		if errors.Is(err, persist.ErrMissing) {
			if wc.World.Coaster(name) != nil {
				if rerr := wc.World.RemoveCoaster(name); rerr != nil {
					return rerr
				}
			}
			app.log.Info("coaster removed on disk", log.String("coaster", name))
			return nil
		}
		if err != nil {
			return err
		}
		wc.World.Refresh()
		app.log.Info("coaster reloaded", log.String("coaster", name), log.Int("skipped", res.Skipped))
		return nil
	})
	return res, err
}

// ApplySettings replaces the interaction settings of the world and of
// every joined session.
func (app *Application) ApplySettings(s config.Settings) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.settings = s
	for _, p := range app.players {
		p.Session.SetSettings(s)
	}
	if app.world != nil {
		app.world.Markers.SetOffset(s.Junction.MarkerOffset)
	}
	app.log.Info("settings applied")
}

// Shutdown stops the tick loop, saves every session selection and flushes
// pending coaster saves. It is safe to call Shutdown multiple times; later
// calls return nil.
func (app *Application) Shutdown() error {
	var err error
	app.stopOnce.Do(func() {
		app.mu.Lock()
		defer app.mu.Unlock()
		app.closed = true
		close(app.done)

		var errs []error
		for len(app.order) > 0 {
			if lerr := app.leave(app.order[0]); lerr != nil {
				errs = append(errs, lerr)
			}
		}

		wc := app.world
		if ferr := wc.Autosaver.Flush(wc.World); ferr != nil {
			errs = append(errs, &ComponentError{Component: "persist", Action: "flush", Err: ferr})
		}
		wc.Markers.Detach(wc.World)
		wc.Notifier.Close()

		err = errors.Join(errs...)
		if err != nil {
			app.log.Error("shutdown finished with errors", log.ErrorField(err))
		} else {
			app.log.Info("shutdown complete", log.String("world", wc.World.Name()))
		}
	})
	return err
}

// String describes the application for logs.
func (app *Application) String() string {
	return fmt.Sprintf("coasters(%s, %s)", app.opts.WorldName, app.opts.DataDir)
}
