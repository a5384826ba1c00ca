package app

import (
	"slices"

	"github.com/google/uuid"

	"github.com/dshills/coasters/internal/editor"
	"github.com/dshills/coasters/internal/log"
)

// Join starts an edit session for user, restoring the selection the user
// had when leaving last time.
func (app *Application) Join(user string, viewer editor.Viewer) (*Player, error) {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.closed {
		return nil, ErrShutdown
	}

	logger := app.log.Named("editor").With(log.String("user", user))
	s := editor.NewSession(user, app.world.World, viewer,
		editor.WithSettings(app.settings),
		editor.WithClock(app.clock),
		editor.WithLogger(logger),
	)
	if err := s.Load(app.world.Store); err != nil {
		logger.Warn("failed to restore selection", log.ErrorField(err))
	}

	p := &Player{ID: uuid.New(), Name: user, Session: s}
	app.players[p.ID] = p
	app.order = append(app.order, p.ID)
	logger.Info("joined", log.String("session", p.ID.String()), log.String("mode", s.Mode().String()))
	return p, nil
}

// Leave ends a session and saves its selection.
func (app *Application) Leave(id uuid.UUID) error {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.leave(id)
}

func (app *Application) leave(id uuid.UUID) error {
	p, ok := app.players[id]
	if !ok {
		return ErrUnknownSession
	}
	delete(app.players, id)
	app.order = slices.DeleteFunc(app.order, func(o uuid.UUID) bool { return o == id })

	var err error
	if serr := p.Session.Save(app.world.Store); serr != nil {
		err = &ComponentError{Component: "selection", Action: "save " + p.Name, Err: serr}
	}
	// Markers must stop showing the selection of a user who left.
	p.Session.ClearSelection()
	app.log.Named("editor").Info("left", log.String("user", p.Name), log.String("session", id.String()))
	return err
}

// Player returns the player with the given session id.
func (app *Application) Player(id uuid.UUID) (*Player, bool) {
	app.mu.Lock()
	defer app.mu.Unlock()
	p, ok := app.players[id]
	return p, ok
}

// Players returns the joined players in join order.
func (app *Application) Players() []*Player {
	app.mu.Lock()
	defer app.mu.Unlock()
	out := make([]*Player, 0, len(app.order))
	for _, id := range app.order {
		out = append(out, app.players[id])
	}
	return out
}
