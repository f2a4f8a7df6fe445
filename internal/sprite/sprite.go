package sprite

import "time"

// Sprite is one positioned entity in a world: a terrain tile or a character.
// Width, height, kind and the static flag come from its Type and never change.
type Sprite struct {
	ID   string
	Name string
	Type *Type

	X, Y      float64
	Velocity  float64
	YVelocity float64
	State     State
	NextState State
	Collision bool

	// Floor, when set, is an explicit landing height overriding terrain below it.
	Floor *float64

	Frame  int
	Redraw bool

	frameElapsed time.Duration
	pending      func()
}

func (s *Sprite) Kind() Kind        { return s.Type.Kind }
func (s *Sprite) Static() bool      { return s.Type.Static }
func (s *Sprite) Width() float64    { return s.Type.Width }
func (s *Sprite) Height() float64   { return s.Type.Height }
func (s *Sprite) IsCharacter() bool { return s.Type.Kind == KindCharacter }
func (s *Sprite) IsHero() bool      { return s.Type.Behavior == BehaviorHero }

func (s *Sprite) Left(padded bool) float64 {
	if padded {
		return s.X + s.Type.Padding.Left
	}
	return s.X
}

func (s *Sprite) Right(padded bool) float64 {
	if padded {
		return s.X + s.Type.Width - s.Type.Padding.Right
	}
	return s.X + s.Type.Width
}

func (s *Sprite) Top(padded bool) float64 {
	if padded {
		return s.Y + s.Type.Padding.Top
	}
	return s.Y
}

func (s *Sprite) Bottom(padded bool) float64 {
	if padded {
		return s.Y + s.Type.Height - s.Type.Padding.Bottom
	}
	return s.Y + s.Type.Height
}

// Overlaps reports whether the point lies in the padded box, edges included.
func (s *Sprite) Overlaps(x, y float64) bool {
	return x >= s.Left(true) && x <= s.Right(true) &&
		y >= s.Top(true) && y <= s.Bottom(true)
}

// OverlapsSprite reports whether the padded boxes of s and o intersect.
func (s *Sprite) OverlapsSprite(o *Sprite) bool {
	return !(s.Left(true) > o.Right(true) || s.Right(true) < o.Left(true) ||
		s.Top(true) > o.Bottom(true) || s.Bottom(true) < o.Top(true))
}

// Animation returns the animation of the current state.
func (s *Sprite) Animation() *Animation {
	return s.Type.Animation(s.State)
}

// Advance moves the frame index forward once the animation's frame delay has
// elapsed. The delay shortens as the sprite moves faster than the animation's
// nominal velocity. Returns true when the frame changed.
func (s *Sprite) Advance(dt time.Duration) bool {
	anim := s.Animation()
	if anim == nil || len(anim.Frames) == 0 || s.Frame >= len(anim.Frames) {
		changed := s.Frame != 0
		s.Frame = 0
		s.frameElapsed = 0
		return changed
	}
	delay := anim.FrameDelay
	if delay <= 0 {
		return false
	}
	if anim.Velocity != 0 && s.Velocity != 0 {
		delay = time.Duration(float64(delay) * abs(anim.Velocity/s.Velocity))
	}
	s.frameElapsed += dt
	if s.frameElapsed < delay {
		return false
	}
	s.frameElapsed = 0
	s.Frame = (s.Frame + 1) % len(anim.Frames)
	return true
}

// ResetFrame restarts the animation, used when the state changes.
func (s *Sprite) ResetFrame() {
	s.Frame = 0
	s.frameElapsed = 0
}

// Defer records a cancel function for a pending delayed action, cancelling
// any action recorded before it.
func (s *Sprite) Defer(cancel func()) {
	s.CancelDeferred()
	s.pending = cancel
}

// CancelDeferred cancels the pending delayed action, if any.
func (s *Sprite) CancelDeferred() {
	if s.pending != nil {
		s.pending()
		s.pending = nil
	}
}

// Record is the persisted subset of a sprite.
type Record struct {
	Name      string  `yaml:"name" msgpack:"name"`
	X         float64 `yaml:"x" msgpack:"x"`
	Y         float64 `yaml:"y" msgpack:"y"`
	State     string  `yaml:"state,omitempty" msgpack:"state,omitempty"`
	NextState string  `yaml:"next_state,omitempty" msgpack:"next_state,omitempty"`
	Velocity  float64 `yaml:"velocity,omitempty" msgpack:"velocity,omitempty"`
	YVelocity float64 `yaml:"y_velocity,omitempty" msgpack:"y_velocity,omitempty"`
}

// Record returns the save attributes of the sprite. Motion fields are only
// kept for types that persist them.
func (s *Sprite) Record() Record {
	r := Record{Name: s.Name, X: s.X, Y: s.Y, State: string(s.State)}
	if s.Type.SaveMotion {
		r.NextState = string(s.NextState)
		r.Velocity = s.Velocity
		r.YVelocity = s.YVelocity
	}
	return r
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
