package app

import (
	"context"
	"time"

	"github.com/dshills/coasters/internal/log"
)

// Run drives the tick loop until ctx is canceled or Shutdown is called.
// It does not shut the application down on return.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	select {
	case <-app.done:
		return ErrShutdown
	default:
	}

	ticker := time.NewTicker(app.opts.TickRate)
	defer ticker.Stop()

	app.log.Debug("tick loop started", log.Duration("rate", app.opts.TickRate))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-app.done:
			return nil
		case <-ticker.C:
			app.Tick()
		}
	}
}

// Tick advances the world by one tick: every session is updated in join
// order, pending graph changes are applied to the rail index, markers are
// redrawn and the autosaver gets a chance to start a background save.
func (app *Application) Tick() {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.closed {
		return
	}

	start := time.Now()
	for _, id := range app.order {
		app.players[id].Session.Update()
	}

	wc := app.world
	refreshed := wc.World.Refresh()
	wc.Markers.Sync(wc.World)
	if wc.Autosaver.Tick(app.clock(), wc.World) {
		app.metrics.RecordAutosave()
	}

	app.metrics.RecordTick(time.Since(start), app.opts.TickRate, refreshed)
}
