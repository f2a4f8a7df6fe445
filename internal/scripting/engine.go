package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/tileworld/engine/internal/sprite"
)

// Engine wraps a single gopher-lua VM holding per-type hit reaction
// overrides. Single-goroutine access only (simulation loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every .lua file of scriptsDir and
// its policies/ subdirectory. A missing directory loads nothing.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("BLOCK", lua.LString(sprite.ReactBlock.String()))
	vm.SetGlobal("BOUNCE", lua.LString(sprite.ReactBounce.String()))
	vm.SetGlobal("KO", lua.LString(sprite.ReactKnockout.String()))
	vm.SetGlobal("NONE", lua.LString("none"))

	e := &Engine{vm: vm, log: log}
	for _, dir := range []string{scriptsDir, filepath.Join(scriptsDir, "policies")} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// NewEngineFromSource builds an engine from an in-memory chunk.
func NewEngineFromSource(src string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	e, err := NewEngine("", log)
	if err != nil {
		return nil, err
	}
	if err := e.vm.DoString(src); err != nil {
		e.Close()
		return nil, fmt.Errorf("load script source: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory, in name order.
func (e *Engine) loadDir(dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// Has reports whether a global Lua function with that name exists.
func (e *Engine) Has(fn string) bool {
	_, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	return ok
}

func (e *Engine) spriteTable(s *sprite.Sprite) *lua.LTable {
	t := e.vm.NewTable()
	mov, dir := s.State.Split()
	t.RawSetString("id", lua.LString(s.ID))
	t.RawSetString("name", lua.LString(s.Name))
	t.RawSetString("kind", lua.LString(s.Kind()))
	t.RawSetString("state", lua.LString(s.State))
	t.RawSetString("movement", lua.LString(mov))
	t.RawSetString("dir", lua.LString(dir))
	t.RawSetString("x", lua.LNumber(s.X))
	t.RawSetString("y", lua.LNumber(s.Y))
	t.RawSetString("velocity", lua.LNumber(s.Velocity))
	t.RawSetString("y_velocity", lua.LNumber(s.YVelocity))
	t.RawSetString("collision", lua.LBool(s.Collision))
	t.RawSetString("hero", lua.LBool(s.IsHero()))
	t.RawSetString("shelled", lua.LBool(s.Type.Shelled))
	t.RawSetString("spiky", lua.LBool(s.Type.Spiky))
	return t
}

// HitReaction calls the Lua function fn(ctx) where ctx holds self, other and
// side. The function returns "block", "bounce", "ko", "none", or nil to
// defer. ok is false when the script deferred or failed.
func (e *Engine) HitReaction(fn string, self, other *sprite.Sprite, side sprite.Side) (r sprite.Reaction, ok bool) {
	f := e.vm.GetGlobal(fn)
	if f == lua.LNil {
		e.log.Error("lua function not found", zap.String("fn", fn))
		return sprite.ReactNone, false
	}

	ctx := e.vm.NewTable()
	ctx.RawSetString("self", e.spriteTable(self))
	ctx.RawSetString("other", e.spriteTable(other))
	ctx.RawSetString("side", lua.LString(side))

	if err := e.vm.CallByParam(lua.P{
		Fn:      f,
		NRet:    1,
		Protect: true,
	}, ctx); err != nil {
		e.log.Error("lua hit reaction error", zap.String("fn", fn), zap.Error(err))
		return sprite.ReactNone, false
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)

	switch v := result.(type) {
	case *lua.LNilType:
		return sprite.ReactNone, false
	case lua.LString:
		if v == "none" {
			return sprite.ReactNone, true
		}
		if r := sprite.ParseReaction(string(v)); r != sprite.ReactNone {
			return r, true
		}
	}
	e.log.Error("lua hit reaction returned an unknown value",
		zap.String("fn", fn), zap.String("value", result.String()))
	return sprite.ReactNone, false
}

// Policy overrides the reaction of a base policy with a Lua function. Hits
// are still handled by the base.
type Policy struct {
	base   sprite.Policy
	engine *Engine
	fn     string
}

// Policy wraps base with the Lua function fn.
func (e *Engine) Policy(fn string, base sprite.Policy) (*Policy, error) {
	if !e.Has(fn) {
		return nil, fmt.Errorf("lua function %q not found", fn)
	}
	return &Policy{base: base, engine: e, fn: fn}, nil
}

func (p *Policy) HitReaction(self, other *sprite.Sprite, side sprite.Side) sprite.Reaction {
	if r, ok := p.engine.HitReaction(p.fn, self, other, side); ok {
		return r
	}
	return p.base.HitReaction(self, other, side)
}

func (p *Policy) Hit(h sprite.Host, self, other *sprite.Sprite, side sprite.Side) {
	p.base.Hit(h, self, other, side)
}
