package data

import (
	"time"

	"github.com/tileworld/engine/internal/sprite"
)

// Hero physics, pixels/second and pixels/second².
const (
	heroWalkVelocity      = 160
	heroWalkMinVelocity   = 60
	heroWalkAcceleration  = 150
	heroRunVelocity       = 220
	heroRunMinVelocity    = 100
	heroRunAcceleration   = 400
	heroReleaseDecel      = 200
	heroSkidDecel         = 400
	heroJumpVelocity      = 650
	heroJumpDecel         = 1400
	heroJumpHoldDecel     = 900
	heroAirTurnDecel      = 400
	heroWalkDelay         = 100 * time.Millisecond
	heroRunDelay          = 50 * time.Millisecond
	fallAcceleration      = 1200
	fallVelocity          = 600
	knockoutStartVelocity = -400
)

// Enemy physics.
const (
	enemyWalkVelocity  = 50
	enemySlideVelocity = 300
	enemyFrameDelay    = 300 * time.Millisecond
)

type animSet map[string]*sprite.Animation

// both registers the same animation for -left and -right, mirroring the
// sign of horizontal velocities.
func (a animSet) both(mov sprite.Movement, anim sprite.Animation) {
	right := anim
	left := anim
	left.Velocity = -anim.Velocity
	left.MinVelocity = -anim.MinVelocity
	left.Frames = append([]int(nil), anim.Frames...)
	right.Frames = append([]int(nil), anim.Frames...)
	a[string(sprite.MakeState(mov, sprite.Left))] = &left
	a[string(sprite.MakeState(mov, sprite.Right))] = &right
}

func heroAnimations(idle, walk1, walk2, walk3, skid, jump, ko int) animSet {
	a := animSet{}
	walkFrames := []int{walk1, walk2, walk3, walk2}
	a.both(sprite.MoveIdle, sprite.Animation{Frames: []int{idle}})
	a.both(sprite.MoveWalk, sprite.Animation{
		Velocity: heroWalkVelocity, MinVelocity: heroWalkMinVelocity,
		Acceleration: heroWalkAcceleration, Frames: walkFrames, FrameDelay: heroWalkDelay,
	})
	a.both(sprite.MoveRun, sprite.Animation{
		Velocity: heroRunVelocity, MinVelocity: heroRunMinVelocity,
		Acceleration: heroRunAcceleration, Frames: walkFrames, FrameDelay: heroRunDelay,
	})
	a.both(sprite.MoveRelease, sprite.Animation{
		Acceleration: heroReleaseDecel, Frames: walkFrames, FrameDelay: heroWalkDelay,
	})
	a.both(sprite.MoveSkid, sprite.Animation{Acceleration: heroSkidDecel, Frames: []int{skid}})
	a.both(sprite.MoveJump, sprite.Animation{
		Velocity: heroWalkVelocity, Acceleration: heroAirTurnDecel,
		YStartVelocity: -heroJumpVelocity, YEndVelocity: fallVelocity,
		YAscentAcceleration: heroJumpDecel, YHoldAscentAcceleration: heroJumpHoldDecel,
		YDescentAcceleration: fallAcceleration, Frames: []int{jump},
	})
	a.both(sprite.MoveFall, sprite.Animation{
		Velocity: heroWalkVelocity, Acceleration: heroAirTurnDecel,
		YEndVelocity: fallVelocity, YAscentAcceleration: heroJumpDecel,
		YDescentAcceleration: fallAcceleration, Frames: []int{jump},
	})
	a.both(sprite.MoveKO, sprite.Animation{
		YStartVelocity: knockoutStartVelocity, YEndVelocity: 2 * fallVelocity,
		YAscentAcceleration: fallAcceleration, YDescentAcceleration: fallAcceleration,
		Frames: []int{ko},
	})
	return a
}

func heroSpec(name string, a animSet) TypeSpec {
	return TypeSpec{
		Name: name, Kind: sprite.KindCharacter, Width: 32, Height: 64,
		Collision: true, State: "idle-right", Behavior: sprite.BehaviorHero,
		Policy: "hero", BounceVelocity: heroJumpVelocity / 4.0, SaveMotion: true,
		Animations: a,
	}
}

// enemyAnimations builds the walker table. shell, when >= 0, adds the
// squished, wake and slide states used by shelled enemies.
func enemyAnimations(walk1, walk2, squished, shell, wake int) animSet {
	a := animSet{}
	a.both(sprite.MoveIdle, sprite.Animation{Frames: []int{walk1}})
	a.both(sprite.MoveWalk, sprite.Animation{
		Velocity: enemyWalkVelocity, Frames: []int{walk2, walk1}, FrameDelay: enemyFrameDelay,
	})
	a.both(sprite.MoveFall, sprite.Animation{
		Velocity: enemyWalkVelocity, YEndVelocity: fallVelocity,
		YDescentAcceleration: fallAcceleration, Frames: []int{walk1},
	})
	a.both(sprite.MoveKO, sprite.Animation{
		YStartVelocity: knockoutStartVelocity * 3 / 4, YEndVelocity: 2 * fallVelocity,
		YAscentAcceleration: fallAcceleration, YDescentAcceleration: fallAcceleration,
		Frames: []int{squished},
	})
	a.both(sprite.MoveSquished, sprite.Animation{Frames: []int{squished}})
	if shell >= 0 {
		a.both(sprite.MoveWake, sprite.Animation{Frames: []int{shell, wake}, FrameDelay: enemyFrameDelay})
		a.both(sprite.MoveSlide, sprite.Animation{Velocity: enemySlideVelocity, Frames: []int{shell}})
	}
	return a
}

func enemySpec(name, policy string, a animSet) TypeSpec {
	return TypeSpec{
		Name: name, Kind: sprite.KindCharacter, Width: 32, Height: 64,
		Collision: true, Padding: sprite.Padding{Top: 32}, State: "walk-left",
		Behavior: sprite.BehaviorWalker, Policy: policy, Shelled: policy == "turtle",
		Spiky: policy == "spike", SaveMotion: true, Animations: a,
	}
}

func tileSpec(name string, frames ...int) TypeSpec {
	return TypeSpec{
		Name: name, Kind: sprite.KindTile, Width: 32, Height: 32,
		Static: true, Collision: true, State: "idle", Behavior: sprite.BehaviorStatic,
		Policy: "tile",
		Animations: map[string]*sprite.Animation{
			"idle": {Frames: frames, FrameDelay: enemyFrameDelay},
		},
	}
}

// DefaultTypes returns the built-in sprite types. Every call builds a fresh table.
func DefaultTypes() *TypeTable {
	specs := []TypeSpec{
		heroSpec("hero", heroAnimations(21, 22, 23, 24, 25, 26, 27)),
		heroSpec("mario", heroAnimations(21, 22, 23, 24, 25, 26, 27)),
		heroSpec("luigi", heroAnimations(63, 64, 65, 66, 67, 68, 69)),
		enemySpec("mushroom", "mushroom", enemyAnimations(0, 1, 2, -1, -1)),
		enemySpec("turtle", "turtle", enemyAnimations(6, 7, 10, 10, 11)),
		enemySpec("flying-turtle", "turtle", enemyAnimations(8, 9, 10, 10, 11)),
		enemySpec("red-turtle", "turtle", enemyAnimations(108, 109, 112, 112, 113)),
		enemySpec("beetle", "turtle", enemyAnimations(33, 32, 34, 34, 34)),
		enemySpec("spike", "spike", enemyAnimations(133, 132, 133, -1, -1)),
		tileSpec("ground", 0),
		tileSpec("brick", 1),
		tileSpec("question-block", 24, 25, 26, 25),
	}
	t, err := newTypeTable(specs)
	if err != nil {
		panic(err) // names above are unique
	}
	return t
}
