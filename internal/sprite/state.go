package sprite

import "strings"

// Kind separates terrain from moving characters.
type Kind string

const (
	KindTile      Kind = "tile"
	KindCharacter Kind = "character"
)

// Movement is the first half of a state string.
type Movement string

const (
	MoveIdle     Movement = "idle"
	MoveWalk     Movement = "walk"
	MoveRun      Movement = "run"
	MoveSkid     Movement = "skid"
	MoveRelease  Movement = "release"
	MoveJump     Movement = "jump"
	MoveFall     Movement = "fall"
	MoveKO       Movement = "ko"
	MoveSquished Movement = "squished"
	MoveWake     Movement = "wake"
	MoveSlide    Movement = "slide"
)

// Airborne reports whether vertical velocity is integrated in this movement.
func (m Movement) Airborne() bool {
	return m == MoveJump || m == MoveFall || m == MoveKO
}

// Dir is the facing direction of a character.
type Dir string

const (
	Left  Dir = "left"
	Right Dir = "right"
)

func (d Dir) Opposite() Dir {
	if d == Left {
		return Right
	}
	return Left
}

// Sign is -1 for left and +1 for right.
func (d Dir) Sign() float64 {
	if d == Left {
		return -1
	}
	return 1
}

// State is "<movement>-<direction>", or a bare movement for tiles.
type State string

func MakeState(m Movement, d Dir) State {
	if d == "" {
		return State(m)
	}
	return State(string(m) + "-" + string(d))
}

func (s State) Split() (Movement, Dir) {
	mov, dir, ok := strings.Cut(string(s), "-")
	if !ok {
		return Movement(s), ""
	}
	return Movement(mov), Dir(dir)
}

func (s State) Mov() Movement {
	m, _ := s.Split()
	return m
}

func (s State) Dir() Dir {
	_, d := s.Split()
	return d
}

// With returns the state with its movement replaced, keeping the direction.
func (s State) With(m Movement) State {
	return MakeState(m, s.Dir())
}

// Facing returns the state with its direction replaced.
func (s State) Facing(d Dir) State {
	return MakeState(s.Mov(), d)
}

// Side is the edge of a sprite where a contact happens.
type Side string

const (
	SideLeft   Side = "left"
	SideRight  Side = "right"
	SideTop    Side = "top"
	SideBottom Side = "bottom"
)

func (s Side) Opposite() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	case SideTop:
		return SideBottom
	default:
		return SideTop
	}
}

// Reaction is how a moving character responds to touching another sprite.
type Reaction uint8

const (
	ReactNone Reaction = iota
	ReactBlock
	ReactBounce
	ReactKnockout
)

var reactionNames = [...]string{"", "block", "bounce", "ko"}

func (r Reaction) String() string {
	if int(r) < len(reactionNames) {
		return reactionNames[r]
	}
	return ""
}

// ParseReaction maps "block", "bounce" and "ko" to reactions; anything else is ReactNone.
func ParseReaction(s string) Reaction {
	for i, name := range reactionNames {
		if i > 0 && name == s {
			return Reaction(i)
		}
	}
	return ReactNone
}

// Behavior selects which per-tick algorithm drives a sprite.
type Behavior string

const (
	BehaviorStatic Behavior = "static"
	BehaviorWalker Behavior = "walker"
	BehaviorHero   Behavior = "hero"
)
