package catalog

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tileworld/engine/internal/character"
	"github.com/tileworld/engine/internal/data"
	"github.com/tileworld/engine/internal/scripting"
	"github.com/tileworld/engine/internal/sprite"
)

var (
	ErrUnknownType   = errors.New("unknown sprite type")
	ErrInvalidConfig = errors.New("invalid sprite type config")
)

// Registry maps type names to immutable sprite types and builds sprites from
// persisted records. It is populated once at startup.
type Registry struct {
	types map[string]*sprite.Type
	order []string
	log   *zap.Logger
}

// NewRegistry validates every spec of table and resolves its hit policy.
// scripts may be nil when no spec names a script.
func NewRegistry(table *data.TypeTable, scripts *scripting.Engine, log *zap.Logger) (*Registry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{types: make(map[string]*sprite.Type, table.Count()), log: log}
	for _, name := range table.Names() {
		t, err := build(table.Get(name), scripts)
		if err != nil {
			return nil, err
		}
		r.types[name] = t
		r.order = append(r.order, name)
	}
	log.Info("sprite types loaded", zap.Int("count", len(r.order)))
	return r, nil
}

func invalid(name, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, name, fmt.Sprintf(format, args...))
}

func build(spec *data.TypeSpec, scripts *scripting.Engine) (*sprite.Type, error) {
	name := spec.Name
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, invalid(name, "size %gx%g", spec.Width, spec.Height)
	}
	t := &sprite.Type{
		Name:           name,
		Kind:           spec.Kind,
		Width:          spec.Width,
		Height:         spec.Height,
		Static:         spec.Static,
		Collision:      spec.Collision,
		Padding:        spec.Padding,
		State:          sprite.State(spec.State),
		Behavior:       spec.Behavior,
		Shelled:        spec.Shelled,
		Spiky:          spec.Spiky,
		BounceVelocity: spec.BounceVelocity,
		SaveMotion:     spec.SaveMotion,
		Animations:     make(map[sprite.State]*sprite.Animation, len(spec.Animations)),
	}
	for st, a := range spec.Animations {
		if a == nil {
			return nil, invalid(name, "animation %s is empty", st)
		}
		cp := *a
		cp.Frames = append([]int(nil), a.Frames...)
		t.Animations[sprite.State(st)] = &cp
	}

	switch t.Kind {
	case sprite.KindTile:
		if t.Behavior == "" {
			t.Behavior = sprite.BehaviorStatic
		}
		if !t.Static {
			return nil, invalid(name, "tiles must be static")
		}
	case sprite.KindCharacter:
		if t.Static {
			return nil, invalid(name, "characters cannot be static")
		}
		if t.Behavior == "" {
			t.Behavior = sprite.BehaviorWalker
		}
	default:
		return nil, invalid(name, "kind %q", t.Kind)
	}
	if err := checkAnimations(t, spec.Policy); err != nil {
		return nil, err
	}

	policy, ok := character.PolicyByName(spec.Policy)
	if !ok {
		return nil, invalid(name, "policy %q", spec.Policy)
	}
	if spec.Script != "" {
		if scripts == nil {
			return nil, invalid(name, "script %q but scripting is disabled", spec.Script)
		}
		p, err := scripts.Policy(spec.Script, policy)
		if err != nil {
			return nil, invalid(name, "%v", err)
		}
		policy = p
	}
	t.Policy = policy
	return t, nil
}

// checkAnimations makes sure every state the simulation can put a sprite of
// this type in has an animation.
func checkAnimations(t *sprite.Type, policy string) error {
	if !t.Has(t.State) {
		return invalid(t.Name, "no animation for default state %s", t.State)
	}
	if t.Kind != sprite.KindCharacter {
		return nil
	}
	movs := []sprite.Movement{sprite.MoveIdle, sprite.MoveWalk, sprite.MoveFall, sprite.MoveKO}
	if t.Behavior == sprite.BehaviorHero {
		movs = append(movs, sprite.MoveRun, sprite.MoveSkid, sprite.MoveRelease, sprite.MoveJump)
	}
	if t.Shelled {
		movs = append(movs, sprite.MoveSquished, sprite.MoveWake, sprite.MoveSlide)
	}
	if policy == character.PolicyMushroom {
		movs = append(movs, sprite.MoveSquished)
	}
	for _, m := range movs {
		for _, d := range []sprite.Dir{sprite.Left, sprite.Right} {
			st := sprite.MakeState(m, d)
			a := t.Animation(st)
			if a == nil {
				return invalid(t.Name, "no animation for state %s", st)
			}
			if m.Airborne() && a.YEndVelocity <= 0 {
				return invalid(t.Name, "state %s needs a positive y_end_velocity", st)
			}
		}
	}
	return nil
}

// Type returns the type registered under name.
func (r *Registry) Type(name string) (*sprite.Type, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Names returns the registered type names in load order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Spawn builds a sprite from a persisted record. An empty state means the
// type's default state.
func (r *Registry) Spawn(rec sprite.Record) (*sprite.Sprite, error) {
	t, ok := r.types[rec.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, rec.Name)
	}
	st := sprite.State(rec.State)
	if st == "" {
		st = t.State
	}
	if !t.Has(st) {
		return nil, invalid(t.Name, "no animation for state %s", st)
	}
	next := sprite.State(rec.NextState)
	if next != "" && !t.Has(next) {
		return nil, invalid(t.Name, "no animation for next state %s", next)
	}
	s := &sprite.Sprite{
		Name:      t.Name,
		Type:      t,
		X:         rec.X,
		Y:         rec.Y,
		State:     st,
		NextState: next,
		Velocity:  rec.Velocity,
		YVelocity: rec.YVelocity,
		Collision: t.Collision,
	}
	switch st.Mov() {
	case sprite.MoveKO:
		s.Collision = false
	case sprite.MoveSquished:
		if !t.Shelled {
			s.Collision = false
		}
	}
	return s, nil
}
