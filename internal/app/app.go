// Package app provides the main application structure and coordination
// for a coasters world. It wires the track graph, rail index, persistence
// and edit sessions together and drives them from a single tick loop.
package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/coasters/internal/config"
	"github.com/dshills/coasters/internal/editor"
	"github.com/dshills/coasters/internal/log"
	"github.com/dshills/coasters/internal/vfs"
)

// Application is the central coordinator of one world.
//
// All graph access is serialized by the application lock: the tick loop
// holds it while updating sessions, and other goroutines go through Do.
type Application struct {
	mu sync.Mutex

	opts     Options
	fs       vfs.VFS
	log      *log.Logger
	clock    func() time.Time
	settings config.Settings

	world   *WorldContext
	players map[uuid.UUID]*Player
	order   []uuid.UUID
	metrics *Metrics

	running  atomic.Bool
	closed   bool
	done     chan struct{}
	stopOnce sync.Once
}

// Options configures the application.
type Options struct {
	// DataDir is the directory holding the coaster files of the world.
	DataDir string

	// WorldName names the world.
	WorldName string

	// SettingsFile is the TOML interaction settings file. Empty uses defaults.
	SettingsFile string

	// AutosaveInterval is the time between background saves; zero disables them.
	AutosaveInterval time.Duration

	// TickRate is the tick loop period.
	TickRate time.Duration

	// SkipLoad starts with an empty world instead of loading DataDir.
	SkipLoad bool

	// FS is the file system; defaults to the OS file system.
	FS vfs.VFS

	// Logger defaults to log.Default().
	Logger *log.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Player is a user joined to the world with an edit session.
type Player struct {
	ID      uuid.UUID
	Name    string
	Session *editor.Session
}

// New creates the application and loads the world.
func New(opts Options) (*Application, error) {
	if opts.WorldName == "" {
		opts.WorldName = config.DefaultWorldName
	}
	if opts.TickRate <= 0 {
		opts.TickRate = config.DefaultTickRate
	}
	app := &Application{
		opts:     opts,
		fs:       opts.FS,
		log:      opts.Logger,
		clock:    opts.Clock,
		settings: config.DefaultSettings(),
		players:  make(map[uuid.UUID]*Player),
		metrics:  NewMetrics(),
		done:     make(chan struct{}),
	}
	if app.fs == nil {
		app.fs = vfs.NewOSFS()
	}
	if app.log == nil {
		app.log = log.Default()
	}
	if app.clock == nil {
		app.clock = time.Now
	}

	if err := app.bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// World returns the world context. Callers outside the tick goroutine must
// access the graph through Do.
func (app *Application) World() *WorldContext { return app.world }

// Settings returns the active interaction settings.
func (app *Application) Settings() config.Settings {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.settings
}

// Metrics returns the tick loop metrics.
func (app *Application) Metrics() *Metrics { return app.metrics }

// Logger returns the application logger.
func (app *Application) Logger() *log.Logger { return app.log }

// IsRunning reports whether the tick loop is running.
func (app *Application) IsRunning() bool { return app.running.Load() }

// Do runs fn with exclusive access to the world.
func (app *Application) Do(fn func(wc *WorldContext) error) error {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.closed {
		return ErrShutdown
	}
	return fn(app.world)
}
