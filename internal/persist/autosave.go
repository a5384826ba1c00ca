package persist

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/coasters/internal/log"
	"github.com/dshills/coasters/internal/track"
)

// Autosaver periodically saves the dirty coasters of a world. Tick must be
// called from the goroutine that owns the world; the file writes happen in
// the background.
type Autosaver struct {
	store    *Store
	interval time.Duration

	mu       sync.Mutex
	last     time.Time
	inflight *errgroup.Group
	lastErr  error
	saves    int
}

// NewAutosaver creates an autosaver. A non-positive interval disables
// periodic saves; Flush still works.
func NewAutosaver(store *Store, interval time.Duration) *Autosaver {
	return &Autosaver{store: store, interval: interval}
}

// Interval returns the autosave period.
func (a *Autosaver) Interval() time.Duration { return a.interval }

// Tick starts a background save of the dirty coasters of w when the
// interval elapsed since the last one and no save is running. It reports
// whether a save was started.
func (a *Autosaver) Tick(now time.Time, w *track.World) bool {
	if a.interval <= 0 {
		return false
	}

	a.mu.Lock()
	if a.last.IsZero() {
		a.last = now
	}
	if now.Sub(a.last) < a.interval || a.inflight != nil {
		a.mu.Unlock()
		return false
	}
	a.last = now
	a.mu.Unlock()

	a.start(w, false)
	return true
}

// Flush saves every dirty coaster of w and waits for the result.
func (a *Autosaver) Flush(w *track.World) error {
	if err := a.Wait(); err != nil {
		a.store.log.Warn("previous autosave failed", log.ErrorField(err))
	}
	a.start(w, false)
	return a.Wait()
}

func (a *Autosaver) start(w *track.World, force bool) {
	g := a.store.SaveAllAsync(w, force)

	a.mu.Lock()
	a.inflight = g
	a.saves++
	a.mu.Unlock()

	go func() {
		err := g.Wait()
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.inflight == g {
			a.inflight = nil
			a.lastErr = err
		}
	}()
}

// Wait blocks until the running save, if any, has finished and returns
// the error of the most recent save.
func (a *Autosaver) Wait() error {
	a.mu.Lock()
	g := a.inflight
	a.mu.Unlock()
	if g != nil {
		err := g.Wait()
		a.mu.Lock()
		if a.inflight == g {
			a.inflight = nil
			a.lastErr = err
		}
		a.mu.Unlock()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Saves returns the number of saves started.
func (a *Autosaver) Saves() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saves
}
