package character

import (
	"math"

	"github.com/tileworld/engine/internal/input"
	"github.com/tileworld/engine/internal/sprite"
	"github.com/tileworld/engine/internal/world"
)

// lowCeilingVelocity replaces the jump impulse when a tile sits right above
// the hero's head.
const lowCeilingVelocity = -120

func gait(in input.Snapshot) sprite.Movement {
	if in.Run {
		return sprite.MoveRun
	}
	return sprite.MoveWalk
}

func pressed(in input.Snapshot, d sprite.Dir) bool {
	if d == sprite.Left {
		return in.Left
	}
	return in.Right
}

// intents turns input edges since the previous tick into state changes.
func (c *Controller) intents(s *sprite.Sprite, in input.Snapshot) {
	prev := c.prev[s]
	c.prev[s] = in
	if in.Right != prev.Right {
		c.dirToggled(s, sprite.Right, in)
	}
	if in.Left != prev.Left {
		c.dirToggled(s, sprite.Left, in)
	}
	if in.Run != prev.Run {
		runToggled(s, in)
	}
	if in.Jump && !prev.Jump {
		c.jump(s, in)
	}
}

// dirToggled handles a press or release of direction d.
func (c *Controller) dirToggled(s *sprite.Sprite, d sprite.Dir, in input.Snapshot) {
	mov, dir := s.State.Split()
	if mov == sprite.MoveKO {
		return
	}
	switch {
	case pressed(in, d):
		target := sprite.MakeState(gait(in), d)
		switch {
		case mov.Airborne():
			if d != dir && s.Velocity != 0 {
				s.NextState = sprite.MakeState(sprite.MoveSkid, d)
			} else {
				s.NextState = target
			}
		case mov == sprite.MoveSkid && dir == d && s.Velocity != 0:
			// already braking toward d
			s.NextState = target
		case dir == d || mov == sprite.MoveIdle || s.Velocity == 0:
			setState(s, target)
			s.NextState = ""
			if a := s.Animation(); a != nil && a.MinVelocity != 0 && math.Abs(s.Velocity) < math.Abs(a.MinVelocity) {
				s.Velocity = a.MinVelocity
			}
		default:
			// brake before turning around
			setState(s, sprite.MakeState(sprite.MoveSkid, d))
			s.NextState = target
		}
	case pressed(in, d.Opposite()):
		c.dirToggled(s, d.Opposite(), in)
	default:
		if mov.Airborne() {
			s.NextState = sprite.MakeState(sprite.MoveRelease, d)
			return
		}
		setState(s, sprite.MakeState(sprite.MoveRelease, d))
		s.NextState = sprite.MakeState(sprite.MoveIdle, d)
	}
}

func runToggled(s *sprite.Sprite, in input.Snapshot) {
	mov, dir := s.State.Split()
	switch {
	case in.Run && mov == sprite.MoveWalk:
		setState(s, sprite.MakeState(sprite.MoveRun, dir))
	case !in.Run && mov == sprite.MoveRun:
		setState(s, sprite.MakeState(sprite.MoveWalk, dir))
	}
}

// jump starts a jump from any grounded state, remembering that state for
// the landing. The impulse grows with horizontal speed.
func (c *Controller) jump(s *sprite.Sprite, in input.Snapshot) {
	mov, dir := s.State.Split()
	if mov.Airborne() {
		return
	}
	st := sprite.MakeState(sprite.MoveJump, dir)
	anim := s.Type.Animation(st)
	if anim == nil {
		return
	}
	walkV, runV := 0.0, 0.0
	if a := s.Type.Animation(sprite.MakeState(sprite.MoveWalk, sprite.Right)); a != nil {
		walkV = a.Velocity
	}
	if a := s.Type.Animation(sprite.MakeState(sprite.MoveRun, sprite.Right)); a != nil {
		runV = a.Velocity
	}
	ratio := 1.0
	if runV != 0 {
		ratio = math.Abs(math.Max(math.Abs(s.Velocity), walkV) / runV)
	}

	s.NextState = s.State
	setState(s, st)
	s.YVelocity = math.Round(anim.YStartVelocity * (ratio + (1-ratio)/2))
	// a held button stops helping once the hero has risen this far
	c.holdLimit[s] = (s.Y - c.world.Height()) * ratio

	head := s.Top(true) - 4
	if head > 0 {
		q := world.TileQuery(s)
		if c.world.FindAt(s.X+s.Width()/4, head, q) != nil ||
			c.world.FindAt(s.X+s.Width()*3/4, head, q) != nil {
			s.YVelocity = lowCeilingVelocity
		}
	}
}
