package character

import (
	"time"

	"github.com/tileworld/engine/internal/sprite"
)

// ShellWakeDelay is how long a squished shell stays put before waking, and
// how long it wakes before walking again.
const ShellWakeDelay = 5 * time.Second

// Policy names as used in sprite type tables.
const (
	PolicyBase     = "base"
	PolicyHero     = "hero"
	PolicyMushroom = "mushroom"
	PolicyTurtle   = "turtle"
	PolicySpike    = "spike"
	PolicyTile     = "tile"
)

var policies = map[string]sprite.Policy{
	PolicyBase:     Base{},
	PolicyHero:     Hero{},
	PolicyMushroom: Mushroom{},
	PolicyTurtle:   Turtle{},
	PolicySpike:    Spike{},
	PolicyTile:     Tile{},
}

// PolicyByName returns the built-in policy with the given name. An empty
// name is the base policy.
func PolicyByName(name string) (sprite.Policy, bool) {
	if name == "" {
		name = PolicyBase
	}
	p, ok := policies[name]
	return p, ok
}

func sliding(s *sprite.Sprite) bool {
	return s.Type.Shelled && s.State.Mov() == sprite.MoveSlide
}

// struckByShell knocks self out when other is a sliding shell.
func struckByShell(h sprite.Host, self, other *sprite.Sprite) bool {
	if other == nil || other == self || !sliding(other) || sliding(self) {
		return false
	}
	h.Knockout(self, other)
	return true
}

// Base blocks on anything that collides. A sliding shell passes through
// characters; they are knocked out when notified.
type Base struct{}

func (Base) HitReaction(self, other *sprite.Sprite, _ sprite.Side) sprite.Reaction {
	if !other.Collision {
		return sprite.ReactNone
	}
	if sliding(self) && other.IsCharacter() {
		return sprite.ReactNone
	}
	return sprite.ReactBlock
}

func (Base) Hit(h sprite.Host, self, other *sprite.Sprite, _ sprite.Side) {
	struckByShell(h, self, other)
}

// Hero dies running into enemies from the side and landing on spikes, and
// bounces off anything else it lands on.
type Hero struct{}

func (Hero) HitReaction(self, other *sprite.Sprite, side sprite.Side) sprite.Reaction {
	if !other.Collision {
		return sprite.ReactNone
	}
	if !other.IsCharacter() {
		return sprite.ReactBlock
	}
	switch {
	case (side == sprite.SideLeft || side == sprite.SideRight) && !other.Type.Shelled:
		return sprite.ReactKnockout
	case side == sprite.SideBottom && other.Type.Spiky:
		return sprite.ReactKnockout
	case side == sprite.SideBottom:
		return sprite.ReactBounce
	}
	return sprite.ReactBlock
}

func (Hero) Hit(h sprite.Host, self, other *sprite.Sprite, side sprite.Side) {
	if other == nil || !other.IsCharacter() {
		return
	}
	switch other.State.Mov() {
	case sprite.MoveSquished, sprite.MoveWake, sprite.MoveKO:
		return
	}
	if side == sprite.SideTop && !other.Type.Spiky {
		return
	}
	h.Knockout(self, other)
}

// Mushroom is squished flat by a hero landing on it.
type Mushroom struct{ Base }

func (Mushroom) Hit(h sprite.Host, self, other *sprite.Sprite, side sprite.Side) {
	if other == nil || struckByShell(h, self, other) || !other.IsHero() {
		return
	}
	if side == sprite.SideTop && self.State.Mov() != sprite.MoveSquished {
		setState(self, self.State.With(sprite.MoveSquished))
		self.NextState = ""
		self.Velocity = 0
		self.Collision = false
	}
}

// Turtle hides in its shell when landed on, wakes up after a while, and
// slides away when kicked while hiding.
type Turtle struct{ Base }

func (Turtle) Hit(h sprite.Host, self, other *sprite.Sprite, side sprite.Side) {
	if other == nil || struckByShell(h, self, other) || !other.IsHero() {
		return
	}
	mov := self.State.Mov()
	switch side {
	case sprite.SideBottom:
		return
	case sprite.SideTop:
		if mov != sprite.MoveSquished {
			squish(h, self)
			return
		}
		// landed on an empty shell: kick it away from the hero
		if other.X+other.Width()/2 < self.X+self.Width()/2 {
			side = sprite.SideLeft
		} else {
			side = sprite.SideRight
		}
	default:
		if mov != sprite.MoveSquished && mov != sprite.MoveWake {
			return
		}
	}
	self.CancelDeferred()
	self.NextState = ""
	if side == sprite.SideLeft {
		setState(self, sprite.MakeState(sprite.MoveSlide, sprite.Right))
	} else {
		setState(self, sprite.MakeState(sprite.MoveSlide, sprite.Left))
	}
}

func squish(h sprite.Host, self *sprite.Sprite) {
	setState(self, self.State.With(sprite.MoveSquished))
	self.NextState = ""
	self.Velocity = 0
	self.Defer(h.After(ShellWakeDelay, func() { wake(h, self) }))
}

func wake(h sprite.Host, self *sprite.Sprite) {
	switch self.State.Mov() {
	case sprite.MoveSquished:
		setState(self, self.State.With(sprite.MoveWake))
		self.Defer(h.After(ShellWakeDelay, func() { wake(h, self) }))
	case sprite.MoveWake:
		setState(self, self.State.With(sprite.MoveWalk))
	}
}

// Spike cannot be squished. Heroes landing on it are knocked out by their
// own reaction.
type Spike struct{ Base }

// Tile reports being bumped from below.
type Tile struct{}

func (Tile) HitReaction(_, other *sprite.Sprite, _ sprite.Side) sprite.Reaction {
	if !other.Collision {
		return sprite.ReactNone
	}
	return sprite.ReactBlock
}

func (Tile) Hit(h sprite.Host, self, other *sprite.Sprite, side sprite.Side) {
	if side == sprite.SideBottom && other != nil {
		h.Bumped(self, other)
	}
}

// Resume re-arms the wake timers of hiding shells, which are not part of a
// saved world. Call it after a world is restored.
func (c *Controller) Resume() int {
	n := 0
	for _, s := range c.world.Characters() {
		if !s.Type.Shelled {
			continue
		}
		switch s.State.Mov() {
		case sprite.MoveSquished, sprite.MoveWake:
			s.Defer(c.After(ShellWakeDelay, func() { wake(c, s) }))
			n++
		}
	}
	return n
}
