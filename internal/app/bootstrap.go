package app

import (
	"github.com/dshills/coasters/internal/config"
	"github.com/dshills/coasters/internal/log"
	"github.com/dshills/coasters/internal/notify"
	"github.com/dshills/coasters/internal/persist"
	"github.com/dshills/coasters/internal/rails"
	"github.com/dshills/coasters/internal/track"
)

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Settings; a broken file falls back to defaults.
	if app.opts.SettingsFile != "" {
		s, err := config.LoadSettings(app.fs, app.opts.SettingsFile)
		if err != nil {
			app.log.Warn("using default settings", log.String("path", app.opts.SettingsFile), log.ErrorField(err))
		}
		app.settings = s
	}

	// 2. Graph and everything derived from it
	notifier := notify.New()
	index := rails.NewIndex()
	world := track.NewWorld(app.opts.WorldName,
		track.WithNotifier(notifier),
		track.WithRailIndex(index),
	)
	markers := NewMarkerView(app.settings.Junction.MarkerOffset)
	markers.Attach(world)

	// 3. Persistence
	store := persist.NewStore(app.fs, app.opts.DataDir,
		persist.WithLogger(app.log.Named("persist")),
	)
	app.world = &WorldContext{
		World:     world,
		Index:     index,
		Notifier:  notifier,
		Markers:   markers,
		Store:     store,
		Autosaver: persist.NewAutosaver(store, app.opts.AutosaveInterval),
	}

	// 4. Initial load
	if !app.opts.SkipLoad {
		res, err := store.LoadAll(world)
		if err != nil {
			notifier.Close()
			return &InitError{Component: "persist", Err: err}
		}
		for _, name := range res.Recovered {
			app.log.Warn("coaster recovered from interrupted save", log.String("coaster", name))
		}
	}
	world.Refresh()
	markers.Sync(world)

	app.log.Info("world ready",
		log.String("world", world.Name()),
		log.Int("coasters", len(world.Coasters())),
		log.Int("nodes", world.NodeCount()),
	)
	return nil
}
