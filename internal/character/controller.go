package character

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/tileworld/engine/internal/core/event"
	"github.com/tileworld/engine/internal/input"
	"github.com/tileworld/engine/internal/sprite"
	"github.com/tileworld/engine/internal/world"
)

// Controller runs the per-tick movement, collision and state machine update
// of the characters of one world. It also acts as the sprite.Host handed to
// hit policies.
type Controller struct {
	world *world.World
	input input.Source
	log   *zap.Logger

	// Strict panics on an invariant violation instead of logging and repairing it.
	Strict bool

	prev map[*sprite.Sprite]input.Snapshot
	// height above which a held jump button stops easing the ascent, set at takeoff
	holdLimit map[*sprite.Sprite]float64
	order     []*sprite.Sprite
	// reused between updates
	bottom, top, side map[string]*world.Probe
}

func New(w *world.World, src input.Source, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		world:     w,
		input:     src,
		log:       log,
		prev:      make(map[*sprite.Sprite]input.Snapshot),
		holdLimit: make(map[*sprite.Sprite]float64),
		bottom:    probeSet(bottomProbes),
		top:       probeSet(topProbes),
		side:      probeSet(sideProbes),
	}
}

func probeSet(names [2]string) map[string]*world.Probe {
	m := make(map[string]*world.Probe, len(names))
	for _, n := range names {
		m[n] = &world.Probe{}
	}
	return m
}

func (c *Controller) World() *world.World { return c.world }

// SetWorld points the controller at another world, after a rebuild.
func (c *Controller) SetWorld(w *world.World) {
	c.world = w
	clear(c.prev)
	clear(c.holdLimit)
}

func (c *Controller) SetInput(src input.Source) { c.input = src }

// Tick updates every character once, in insertion order. Sprites removed
// earlier in the same tick are skipped.
func (c *Controller) Tick(dt time.Duration) {
	c.order = append(c.order[:0], c.world.Characters()...)
	for _, s := range c.order {
		if c.world.Contains(s) {
			c.Update(s, dt)
		}
	}
	for s := range c.prev {
		if !c.world.Contains(s) {
			delete(c.prev, s)
			delete(c.holdLimit, s)
		}
	}
}

// motion is the tentative result of one update.
type motion struct {
	s      *sprite.Sprite
	anim   *sprite.Animation
	in     input.Snapshot
	secs   float64
	x, y   float64
	landed bool
}

var noAnimation = &sprite.Animation{}

func (m *motion) refresh() {
	m.anim = m.s.Animation()
	if m.anim == nil {
		m.anim = noAnimation
	}
}

// Update advances one character by dt. Returns false once the sprite has
// left the world.
func (c *Controller) Update(s *sprite.Sprite, dt time.Duration) bool {
	w := c.world
	if !w.Contains(s) {
		return false
	}
	if s.Static() {
		return true
	}
	if w.Editing() {
		s.Redraw = s.Frame != 0
		s.ResetFrame()
		return true
	}

	before := *s
	frameChanged := s.Advance(dt)
	m := &motion{s: s, secs: dt.Seconds()}

	if s.IsHero() {
		m.in = input.Read(c.input)
		c.intents(s, m.in)
	}
	m.refresh()

	c.horizontal(m)
	c.vertical(m)
	m.x = s.X + s.Velocity*m.secs
	m.y = s.Y + s.YVelocity*m.secs

	if s.State.Mov() == sprite.MoveKO {
		if m.y >= w.Height() {
			w.Evict(s)
			return false
		}
		c.commit(m, &before, frameChanged)
		return true
	}

	if alive, done := c.collideBelow(m); done {
		if alive {
			c.commit(m, &before, frameChanged)
		}
		return alive
	}
	if done := c.collideAbove(m); done {
		c.commit(m, &before, frameChanged)
		return true
	}
	v := s.Velocity
	if v <= 0 && c.collideSide(m, sprite.SideLeft) {
		c.commit(m, &before, frameChanged)
		return true
	}
	if v >= 0 && c.collideSide(m, sprite.SideRight) {
		c.commit(m, &before, frameChanged)
		return true
	}

	c.commit(m, &before, frameChanged)
	if w.RemoveOutOfBounds(s) {
		return false
	}
	return true
}

// commit writes the tentative position in one step and flags the sprite for
// redraw when anything visible changed.
func (c *Controller) commit(m *motion, before *sprite.Sprite, frameChanged bool) {
	s := m.s
	if c.world.Contains(s) {
		c.world.Move(s, m.x, m.y)
	}
	s.Redraw = frameChanged || s.X != before.X || s.Y != before.Y ||
		s.State != before.State || s.Collision != before.Collision
}

// horizontal integrates horizontal velocity. Walkers move at exactly their
// animation velocity; heroes accelerate toward it.
func (c *Controller) horizontal(m *motion) {
	s := m.s
	mov := s.State.Mov()
	if !s.IsHero() {
		s.Velocity = m.anim.Velocity
		return
	}
	switch {
	case mov == sprite.MoveKO:
		s.Velocity = 0
	case mov == sprite.MoveIdle:
		if s.Velocity != 0 {
			switch {
			case m.in.Right:
				c.dirToggled(s, sprite.Right, m.in)
			case m.in.Left:
				c.dirToggled(s, sprite.Left, m.in)
			default:
				err := &InvariantError{ID: s.ID, State: s.State, Velocity: s.Velocity}
				if c.Strict {
					panic(err)
				}
				c.log.Warn("state machine invariant violated", zap.Error(err))
				s.Velocity = 0
			}
			m.refresh()
			if s.State.Mov() != sprite.MoveIdle {
				c.ramp(m)
			}
		}
	case mov.Airborne():
		limit := math.Abs(m.anim.Velocity)
		step := math.Abs(m.anim.Acceleration) * m.secs
		if m.in.Left && s.Velocity > -limit {
			s.Velocity = math.Max(s.Velocity-step, -limit)
		} else if m.in.Right && s.Velocity < limit {
			s.Velocity = math.Min(s.Velocity+step, limit)
		}
	default:
		c.ramp(m)
	}
}

// ramp moves velocity linearly toward the animation velocity. Once there, a
// queued next state takes over, with its minimum velocity as a floor.
func (c *Controller) ramp(m *motion) {
	s := m.s
	target := m.anim.Velocity
	step := m.anim.Acceleration * m.secs
	switch {
	case m.anim.Acceleration == 0:
		s.Velocity = target
	case s.Velocity < target:
		s.Velocity = math.Min(s.Velocity+step, target)
	case s.Velocity > target:
		s.Velocity = math.Max(s.Velocity-step, target)
	}
	if s.Velocity != target || s.NextState == "" {
		return
	}
	setState(s, s.NextState)
	s.NextState = ""
	m.refresh()
	if floor := m.anim.MinVelocity; floor != 0 && math.Abs(s.Velocity) < math.Abs(floor) {
		s.Velocity = floor
	}
}

// vertical integrates vertical velocity while airborne.
func (c *Controller) vertical(m *motion) {
	s := m.s
	mov := s.State.Mov()
	if !mov.Airborne() {
		return
	}
	a := m.anim
	if s.YVelocity < a.YEndVelocity {
		acc := a.YDescentAcceleration
		if s.YVelocity < 0 {
			acc = a.YAscentAcceleration
			if mov == sprite.MoveJump && m.in.Jump && a.YHoldAscentAcceleration != 0 && c.belowHoldLimit(s) {
				acc = a.YHoldAscentAcceleration
			}
		}
		s.YVelocity += acc * m.secs
	}
	if s.YVelocity >= a.YEndVelocity {
		s.YVelocity = a.YEndVelocity
	}
}

func (c *Controller) belowHoldLimit(s *sprite.Sprite) bool {
	limit, ok := c.holdLimit[s]
	return !ok || s.Y > limit
}

// nearest returns the probe hit with the nearest edge along the probes'
// direction, and that edge.
func nearest(probes map[string]*world.Probe, names [2]string) (*sprite.Sprite, float64) {
	var best *sprite.Sprite
	var bestEdge float64
	for _, n := range names {
		p := probes[n]
		if p.Sprite == nil {
			continue
		}
		e := edgeOf(p.Sprite, p.Dir)
		if best == nil || closer(p.Dir, e, bestEdge) {
			best, bestEdge = p.Sprite, e
		}
	}
	return best, bestEdge
}

func edgeOf(s *sprite.Sprite, dir sprite.Side) float64 {
	switch dir {
	case sprite.SideBottom:
		return s.Top(true)
	case sprite.SideTop:
		return s.Bottom(true)
	case sprite.SideLeft:
		return s.Right(true)
	default:
		return s.Left(true)
	}
}

func closer(dir sprite.Side, a, b float64) bool {
	if dir == sprite.SideTop || dir == sprite.SideLeft {
		return a > b
	}
	return a < b
}

// distinct returns the sprites hit by the named probes, without duplicates.
func distinct(probes map[string]*world.Probe, names [2]string) []*sprite.Sprite {
	var out []*sprite.Sprite
	for _, n := range names {
		if s := probes[n].Sprite; s != nil && (len(out) == 0 || out[0] != s) {
			out = append(out, s)
		}
	}
	return out
}

var (
	bottomProbes = [2]string{"bottom-left", "bottom-right"}
	topProbes    = [2]string{"top-left", "top-right"}
	sideProbes   = [2]string{"upper", "lower"}
)

func placeProbes(probes map[string]*world.Probe, names [2]string, dir sprite.Side, a, b [2]float64) {
	for i, at := range [2][2]float64{a, b} {
		p := probes[names[i]]
		p.X, p.Y, p.Dir = at[0], at[1], dir
	}
}

// collideBelow resolves landing, standing and falling. done is true when the
// update ended here; alive is false when the sprite left the world.
func (c *Controller) collideBelow(m *motion) (alive, done bool) {
	s, w := m.s, c.world
	if s.YVelocity < 0 {
		return true, false
	}
	width, height := s.Width(), s.Height()
	feet := m.y + height
	placeProbes(c.bottom, bottomProbes, sprite.SideBottom,
		[2]float64{m.x + width/4, feet}, [2]float64{m.x + width*3/4, feet})

	floor := w.Height() + height
	surface := floor
	if s.Floor != nil {
		surface = math.Min(surface, *s.Floor)
	}
	w.FindCollisions(c.bottom, world.TileQuery(s))
	if tile, top := nearest(c.bottom, bottomProbes); tile != nil {
		surface = math.Min(surface, top)
	}

	if feet >= surface {
		if feet >= floor {
			w.Evict(s)
			return false, true
		}
		c.land(m, surface)
		return true, false
	}

	if s.Collision {
		w.FindCollisions(c.bottom, world.CharacterQuery(s))
		if other, top := nearest(c.bottom, bottomProbes); other != nil && top < surface {
			switch c.reaction(s, other, sprite.SideBottom) {
			case sprite.ReactBlock:
				c.land(m, top)
			case sprite.ReactBounce:
				m.y = top - height
				s.YVelocity = -s.Type.BounceVelocity
				if s.State.Mov() != sprite.MoveJump {
					if s.State.Mov() != sprite.MoveFall {
						s.NextState = s.State
					}
					setState(s, s.State.With(sprite.MoveJump))
					m.refresh()
				}
			case sprite.ReactKnockout:
				c.Knockout(s, other)
				return true, true
			}
			for _, o := range distinct(c.bottom, bottomProbes) {
				c.notify(o, s, sprite.SideTop)
			}
			if s.State.Mov() == sprite.MoveKO {
				return true, true
			}
			if m.landed || s.YVelocity < 0 {
				return true, false
			}
		}
	}

	if mov := s.State.Mov(); !mov.Airborne() {
		s.NextState = s.State
		setState(s, s.State.With(sprite.MoveFall))
		s.YVelocity = 0
		m.refresh()
	}
	return true, false
}

// land puts the sprite to rest on a surface and leaves jump or fall for the
// queued state.
func (c *Controller) land(m *motion, surface float64) {
	s := m.s
	m.y = surface - s.Height()
	m.landed = true
	s.YVelocity = 0
	mov, dir := s.State.Split()
	if !mov.Airborne() {
		return
	}
	next := s.NextState
	if !s.IsHero() {
		if next == "" {
			next = sprite.MakeState(sprite.MoveWalk, dir)
		} else {
			next = next.Facing(dir)
		}
	} else if next == "" {
		next = sprite.MakeState(sprite.MoveIdle, dir)
	}
	setState(s, next)
	s.NextState = ""
	nmov, ndir := next.Split()
	switch nmov {
	case sprite.MoveSkid:
		s.NextState = sprite.MakeState(gait(m.in), ndir)
	case sprite.MoveRelease:
		s.NextState = sprite.MakeState(sprite.MoveIdle, ndir)
	}
	m.refresh()
	c.log.Debug("landed", zap.String("id", s.ID), zap.Float64("y", m.y), zap.String("state", string(s.State)))
	if bus := c.world.Bus(); bus != nil {
		event.Emit(bus, event.Landed{ID: s.ID, Name: s.Name, Y: m.y, State: string(s.State)})
	}
}

// collideAbove stops an ascending sprite under tiles and characters.
func (c *Controller) collideAbove(m *motion) bool {
	s, w := m.s, c.world
	if s.YVelocity >= 0 {
		return false
	}
	width := s.Width()
	pad := s.Type.Padding.Top
	head := m.y + pad
	placeProbes(c.top, topProbes, sprite.SideTop,
		[2]float64{m.x + width/4, head}, [2]float64{m.x + width*3/4, head})

	w.FindCollisions(c.top, world.TileQuery(s))
	if tile, bottom := nearest(c.top, topProbes); tile != nil && head < bottom {
		s.YVelocity = 0
		m.y = bottom - pad
		// the tile on the facing side takes the bump
		first, second := topProbes[1], topProbes[0]
		if s.State.Dir() == sprite.Left {
			first, second = second, first
		}
		bumped := c.top[first].Sprite
		if bumped == nil {
			bumped = c.top[second].Sprite
		}
		c.notify(bumped, s, sprite.SideBottom)
		return false
	}

	if !s.Collision {
		return false
	}
	w.FindCollisions(c.top, world.CharacterQuery(s))
	other, bottom := nearest(c.top, topProbes)
	if other == nil {
		return false
	}
	switch c.reaction(s, other, sprite.SideTop) {
	case sprite.ReactBlock:
		s.YVelocity = 0
		m.y = bottom - pad
	case sprite.ReactBounce:
		s.YVelocity = -s.YVelocity
		m.y = bottom - pad
	case sprite.ReactKnockout:
		c.Knockout(s, other)
		return true
	}
	for _, o := range distinct(c.top, topProbes) {
		c.notify(o, s, sprite.SideBottom)
	}
	return s.State.Mov() == sprite.MoveKO
}

// collideSide checks the side the sprite moves toward. Terrain and the world
// edges are walls: a hero stops, a walker turns around. The position is
// clamped to the wall, so resolving the same wall twice lands on the same x.
// Returns true when the update must stop here.
func (c *Controller) collideSide(m *motion, side sprite.Side) bool {
	s, w := m.s, c.world
	width := s.Width()
	pad := s.Type.Padding
	bodyTop := m.y + pad.Top
	bodyHeight := s.Height() - pad.Top - pad.Bottom
	x := m.x
	if side == sprite.SideRight {
		x = m.x + width
	}
	placeProbes(c.side, sideProbes, side,
		[2]float64{x, bodyTop + bodyHeight/4}, [2]float64{x, bodyTop + bodyHeight*3/4})

	wall := 0.0
	if side == sprite.SideRight {
		wall = w.Width()
	}
	w.FindCollisions(c.side, world.TileQuery(s))
	if tile, e := nearest(c.side, sideProbes); tile != nil && closer(side, e, wall) {
		wall = e
	}
	if c.blockedBy(x, wall, side) {
		c.block(m, side, wall)
		return false
	}

	if !s.Collision {
		return false
	}
	w.FindCollisions(c.side, world.CharacterQuery(s))
	other, e := nearest(c.side, sideProbes)
	if other == nil {
		return false
	}
	switch c.reaction(s, other, side) {
	case sprite.ReactBlock:
		c.block(m, side, e)
	case sprite.ReactBounce:
		v := s.Velocity
		c.block(m, side, e)
		if s.IsHero() {
			s.Velocity = -v / 2
		}
	case sprite.ReactKnockout:
		c.Knockout(s, other)
		return true
	}
	c.notify(s, other, side)
	c.notify(other, s, side.Opposite())
	return s.State.Mov() == sprite.MoveKO
}

func (c *Controller) blockedBy(x, wall float64, side sprite.Side) bool {
	if side == sprite.SideLeft {
		return x <= wall
	}
	return x >= wall
}

// block clamps the sprite against a wall edge. Heroes stop; moving walkers
// turn around.
func (c *Controller) block(m *motion, side sprite.Side, wall float64) {
	s := m.s
	if side == sprite.SideLeft {
		m.x = wall
	} else {
		m.x = wall - s.Width()
	}
	if s.IsHero() {
		s.Velocity = 0
		return
	}
	if s.Velocity == 0 {
		return
	}
	s.Velocity = -s.Velocity
	if side == sprite.SideLeft {
		s.State = s.State.Facing(sprite.Right)
	} else {
		s.State = s.State.Facing(sprite.Left)
	}
	if s.NextState != "" {
		s.NextState = s.NextState.Facing(s.State.Dir())
	}
}

func (c *Controller) reaction(s, other *sprite.Sprite, side sprite.Side) sprite.Reaction {
	if s.Type.Policy == nil {
		return sprite.ReactBlock
	}
	return s.Type.Policy.HitReaction(s, other, side)
}

// notify tells target it was hit on side by another sprite.
func (c *Controller) notify(target, by *sprite.Sprite, side sprite.Side) {
	if target == nil || target.Type.Policy == nil || !c.world.Contains(target) {
		return
	}
	target.Type.Policy.Hit(c, target, by, side)
}

// After schedules fn on the world timer wheel.
func (c *Controller) After(delay time.Duration, fn func()) (cancel func()) {
	return c.world.After(delay, fn)
}

// Knockout sends a character into its ko fall: no more collisions, removed
// once it drops out of the world.
func (c *Controller) Knockout(s, by *sprite.Sprite) {
	if s.State.Mov() == sprite.MoveKO {
		return
	}
	s.CancelDeferred()
	dir := s.State.Dir()
	if dir == "" {
		dir = sprite.Right
	}
	setState(s, sprite.MakeState(sprite.MoveKO, dir))
	s.NextState = ""
	s.Collision = false
	s.Velocity = 0
	if a := s.Animation(); a != nil {
		s.YVelocity = a.YStartVelocity
	}
	byID := ""
	if by != nil {
		byID = by.ID
	}
	c.log.Debug("knocked out", zap.String("id", s.ID), zap.String("by", byID))
	if bus := c.world.Bus(); bus != nil {
		event.Emit(bus, event.KnockedOut{ID: s.ID, Name: s.Name, By: byID})
	}
}

// Bumped reports a tile hit from below.
func (c *Controller) Bumped(tile, by *sprite.Sprite) {
	if bus := c.world.Bus(); bus != nil {
		event.Emit(bus, event.TileBumped{TileID: tile.ID, Tile: tile.Name, ByID: by.ID})
	}
}

func setState(s *sprite.Sprite, st sprite.State) {
	if s.State != st {
		s.State = st
		s.ResetFrame()
	}
}
