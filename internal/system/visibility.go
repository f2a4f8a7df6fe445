package system

import (
	"time"

	coresys "github.com/tileworld/engine/internal/core/system"
	"github.com/tileworld/engine/internal/sprite"
	"github.com/tileworld/engine/internal/world"
)

// Frame is what a renderer receives for one tick.
type Frame struct {
	X, Y          float64 // viewport origin
	Width, Height float64
	Background    bool // tiles must be redrawn
	Sprites       []*sprite.Sprite
}

// Renderer draws a frame. Nothing in the engine depends on what it does.
type Renderer interface {
	Draw(f Frame)
}

// VisibilitySystem culls the world to a viewport that follows the hero and
// hands the result to the renderer. Phase 4 (Output).
type VisibilitySystem struct {
	world    *world.World
	renderer Renderer
	width    float64
	height   float64
	x        float64
	last     Frame
}

func NewVisibilitySystem(w *world.World, r Renderer, width, height float64) *VisibilitySystem {
	return &VisibilitySystem{world: w, renderer: r, width: width, height: height}
}

func (s *VisibilitySystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *VisibilitySystem) Update(_ time.Duration) {
	background := s.world.BackgroundDirty()
	if x := s.follow(); x != s.x {
		s.x = x
		background = true
	}
	y := max(s.world.Height()-s.height, 0)
	s.last = Frame{
		X:          s.x,
		Y:          y,
		Width:      s.width,
		Height:     s.height,
		Background: background,
		Sprites:    s.world.Visible(s.x, y, s.x+s.width, y+s.height, background),
	}
	if s.renderer != nil {
		s.renderer.Draw(s.last)
	}
}

// follow centers the viewport on the hero, clamped to the world.
func (s *VisibilitySystem) follow() float64 {
	hero := s.world.Hero()
	if hero == nil {
		return s.x
	}
	x := hero.X + hero.Width()/2 - s.width/2
	return max(0, min(x, s.world.Width()-s.width))
}

// Last returns the most recent frame.
func (s *VisibilitySystem) Last() Frame { return s.last }
