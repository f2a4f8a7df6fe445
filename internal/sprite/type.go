package sprite

import "time"

// Animation is the authored physics and frame data for one state.
// Velocities are pixels/second, accelerations pixels/second².
type Animation struct {
	Velocity                float64       `yaml:"velocity"`
	Acceleration            float64       `yaml:"acceleration"`
	MinVelocity             float64       `yaml:"min_velocity,omitempty"`
	YStartVelocity          float64       `yaml:"y_start_velocity,omitempty"`
	YEndVelocity            float64       `yaml:"y_end_velocity,omitempty"`
	YAscentAcceleration     float64       `yaml:"y_ascent_acceleration,omitempty"`
	YHoldAscentAcceleration float64       `yaml:"y_hold_ascent_acceleration,omitempty"`
	YDescentAcceleration    float64       `yaml:"y_descent_acceleration,omitempty"`
	Frames                  []int         `yaml:"frames"`
	FrameDelay              time.Duration `yaml:"frame_delay,omitempty"`
}

// Padding shrinks the collision box inside the drawn box.
type Padding struct {
	Top    float64 `yaml:"top,omitempty"`
	Right  float64 `yaml:"right,omitempty"`
	Bottom float64 `yaml:"bottom,omitempty"`
	Left   float64 `yaml:"left,omitempty"`
}

// Type is the immutable per-name configuration shared by every sprite of that name.
type Type struct {
	Name           string
	Kind           Kind
	Width          float64
	Height         float64
	Static         bool
	Collision      bool
	Padding        Padding
	State          State
	Behavior       Behavior
	Shelled        bool // squished shells can be kicked into a slide
	Spiky          bool // hurts whatever lands on it
	BounceVelocity float64
	SaveMotion     bool
	Policy         Policy
	Animations     map[State]*Animation
}

// Animation returns the animation for st, or nil when the type has none.
func (t *Type) Animation(st State) *Animation {
	return t.Animations[st]
}

func (t *Type) Has(st State) bool {
	_, ok := t.Animations[st]
	return ok
}

// Policy is a type's collision strategy: how its sprites react when they run
// into something, and what happens to them when something runs into them.
type Policy interface {
	HitReaction(self, other *Sprite, side Side) Reaction
	Hit(h Host, self, other *Sprite, side Side)
}

// Host is the part of the simulation a Policy may act on while handling a hit.
type Host interface {
	After(delay time.Duration, fn func()) (cancel func())
	Knockout(s, by *Sprite)
	Bumped(tile, by *Sprite)
}
