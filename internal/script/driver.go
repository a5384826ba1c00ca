package script

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/coasters/internal/app"
	"github.com/dshills/coasters/internal/editor"
	"github.com/dshills/coasters/internal/log"
	"github.com/dshills/coasters/internal/track"
)

// Viewer is the scripted stand-in for a user's view.
type Viewer struct {
	Pos, Dir mgl64.Vec3
	Holding  bool
	Sneaking bool
}

// Eye returns the eye position and look direction.
func (v *Viewer) Eye() (mgl64.Vec3, mgl64.Vec3) { return v.Pos, v.Dir }

// IsHoldingTool reports whether the edit tool is in hand.
func (v *Viewer) IsHoldingTool() bool { return v.Holding }

// IsSneaking reports whether the multi-select modifier is held.
func (v *Viewer) IsSneaking() bool { return v.Sneaking }

// Driver runs scripts against an application as one user.
type Driver struct {
	app     *app.Application
	user    string
	viewer  *Viewer
	player  *app.Player
	log     *log.Logger
	timeout time.Duration
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithTimeout aborts scripts running longer than d.
func WithTimeout(timeout time.Duration) DriverOption {
	return func(d *Driver) { d.timeout = timeout }
}

// NewDriver creates a driver acting as user. The viewer starts at the
// origin looking along +z with the tool in hand.
func NewDriver(a *app.Application, user string, opts ...DriverOption) *Driver {
	d := &Driver{
		app:    a,
		user:   user,
		viewer: &Viewer{Dir: mgl64.Vec3{0, 0, 1}, Holding: true},
		log:    a.Logger().Named("script").With(log.String("user", user)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Viewer returns the scripted viewer.
func (d *Driver) Viewer() *Viewer { return d.viewer }

// RunFile executes the script at path.
func (d *Driver) RunFile(ctx context.Context, path string) error {
	return d.run(ctx, func(s *State) error { return s.DoFile(ctx, path) })
}

// RunString executes Lua code.
func (d *Driver) RunString(ctx context.Context, code string) error {
	return d.run(ctx, func(s *State) error { return s.DoString(ctx, code) })
}

// run joins the session, executes the script and leaves again, saving the
// selection of the user.
func (d *Driver) run(ctx context.Context, exec func(*State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := d.app.Join(d.user, d.viewer)
	if err != nil {
		return err
	}
	d.player = p

	s := NewState(WithExecutionTimeout(d.timeout))
	defer s.Close()
	s.Register(d.api())

	runErr := exec(s)
	if err := d.app.Leave(p.ID); err != nil && runErr == nil {
		runErr = err
	}
	d.player = nil
	return runErr
}

func (d *Driver) api() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"eye":      d.luaEye,
		"hold":     d.luaHold,
		"sneak":    d.luaSneak,
		"mode":     d.luaMode,
		"right":    d.luaRight,
		"left":     d.luaLeft,
		"tick":     d.luaTick,
		"save":     d.luaSave,
		"nodes":    d.luaNodes,
		"selected": d.luaSelected,
		"log":      d.luaLog,
		"print":    d.luaLog,
	}
}

// session runs fn with exclusive access to the session.
func (d *Driver) session(L *lua.LState, fn func(s *editor.Session)) {
	err := d.app.Do(func(*app.WorldContext) error {
		fn(d.player.Session)
		return nil
	})
	if err != nil {
		L.RaiseError("%v", err)
	}
}

// eye(x, y, z [, dx, dy, dz])
func (d *Driver) luaEye(L *lua.LState) int {
	d.viewer.Pos = mgl64.Vec3{float64(L.CheckNumber(1)), float64(L.CheckNumber(2)), float64(L.CheckNumber(3))}
	if L.GetTop() >= 6 {
		dir := mgl64.Vec3{float64(L.CheckNumber(4)), float64(L.CheckNumber(5)), float64(L.CheckNumber(6))}
		if dir.Len() == 0 {
			L.ArgError(4, "look direction must not be zero")
			return 0
		}
		d.viewer.Dir = dir
	}
	return 0
}

// hold(bool) puts the tool in hand or away.
func (d *Driver) luaHold(L *lua.LState) int {
	d.viewer.Holding = L.OptBool(1, true)
	return 0
}

// sneak(bool)
func (d *Driver) luaSneak(L *lua.LState) int {
	d.viewer.Sneaking = L.OptBool(1, true)
	return 0
}

// mode([name]) sets the mode when a name is given and returns the current
// mode name. An unknown name raises an error.
func (d *Driver) luaMode(L *lua.LState) int {
	name := L.OptString(1, "")
	var current string
	var bad bool
	d.session(L, func(s *editor.Session) {
		if name != "" {
			m, ok := editor.ParseMode(name)
			if !ok {
				bad = true
				return
			}
			s.SetMode(m)
		}
		current = s.Mode().String()
	})
	if bad {
		L.ArgError(1, fmt.Sprintf("unknown mode %q", name))
		return 0
	}
	L.Push(lua.LString(current))
	return 1
}

// right() starts or extends a hold.
func (d *Driver) luaRight(L *lua.LState) int {
	d.session(L, func(s *editor.Session) { s.OnRightClick() })
	return 0
}

// left() clicks and returns whether the click was used.
func (d *Driver) luaLeft(L *lua.LState) int {
	var used bool
	d.session(L, func(s *editor.Session) { used = s.OnLeftClick() })
	L.Push(lua.LBool(used))
	return 1
}

// tick([n]) advances the world n ticks, 1 by default.
func (d *Driver) luaTick(L *lua.LState) int {
	n := L.OptInt(1, 1)
	if n < 0 {
		L.ArgError(1, "tick count must not be negative")
		return 0
	}
	for i := 0; i < n; i++ {
		if ctx := L.Context(); ctx != nil && ctx.Err() != nil {
			L.RaiseError("%v", ctx.Err())
			return 0
		}
		d.app.Tick()
	}
	return 0
}

// save() writes the dirty coasters.
func (d *Driver) luaSave(L *lua.LState) int {
	if err := d.app.Save(false); err != nil {
		L.RaiseError("save: %v", err)
	}
	return 0
}

// nodes() returns every node as {id, coaster, x, y, z, links}.
func (d *Driver) luaNodes(L *lua.LState) int {
	out := L.NewTable()
	err := d.app.Do(func(wc *app.WorldContext) error {
		for _, n := range wc.World.Nodes() {
			out.Append(nodeTable(L, n))
		}
		return nil
	})
	if err != nil {
		L.RaiseError("%v", err)
	}
	L.Push(out)
	return 1
}

func nodeTable(L *lua.LState, n *track.Node) *lua.LTable {
	t := L.NewTable()
	pos := n.Position()
	t.RawSetString("id", lua.LNumber(n.ID()))
	t.RawSetString("coaster", lua.LString(n.Coaster().Name()))
	t.RawSetString("x", lua.LNumber(pos.X()))
	t.RawSetString("y", lua.LNumber(pos.Y()))
	t.RawSetString("z", lua.LNumber(pos.Z()))
	links := L.NewTable()
	for _, nb := range n.Neighbors() {
		links.Append(lua.LNumber(nb))
	}
	t.RawSetString("links", links)
	return t
}

// selected() returns the ids of the selected nodes in selection order.
func (d *Driver) luaSelected(L *lua.LState) int {
	out := L.NewTable()
	d.session(L, func(s *editor.Session) {
		for _, id := range s.Selected() {
			out.Append(lua.LNumber(id))
		}
	})
	L.Push(out)
	return 1
}

// log(msg, ...) writes an info entry. print is an alias.
func (d *Driver) luaLog(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	d.log.Info(strings.Join(parts, " "))
	return 0
}
