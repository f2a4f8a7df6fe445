package character_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileworld/engine/internal/catalog"
	"github.com/tileworld/engine/internal/character"
	"github.com/tileworld/engine/internal/core/event"
	"github.com/tileworld/engine/internal/data"
	"github.com/tileworld/engine/internal/input"
	"github.com/tileworld/engine/internal/sprite"
	"github.com/tileworld/engine/internal/world"
)

const dt = 16 * time.Millisecond

type sim struct {
	t    *testing.T
	w    *world.World
	reg  *catalog.Registry
	bus  *event.Bus
	ctrl *character.Controller
	in   *input.Snapshot

	removed []event.SpriteRemoved
	kos     []event.KnockedOut
	bumps   []event.TileBumped
	landed  []event.Landed
}

// newSim builds a 30x17 world with ground on the bottom row of the first
// groundCols columns.
func newSim(t *testing.T, groundCols int) *sim {
	t.Helper()
	reg, err := catalog.NewRegistry(data.DefaultTypes(), nil, nil)
	require.NoError(t, err)
	s := &sim{t: t, reg: reg, bus: event.NewBus(), in: &input.Snapshot{}}
	event.Subscribe(s.bus, func(e event.SpriteRemoved) { s.removed = append(s.removed, e) })
	event.Subscribe(s.bus, func(e event.KnockedOut) { s.kos = append(s.kos, e) })
	event.Subscribe(s.bus, func(e event.TileBumped) { s.bumps = append(s.bumps, e) })
	event.Subscribe(s.bus, func(e event.Landed) { s.landed = append(s.landed, e) })

	s.w, err = world.New(world.Config{Level: "test", TileWidth: 32, TileHeight: 32, Width: 30, Height: 17}, reg, s.bus, nil)
	require.NoError(t, err)
	for col := 0; col < groundCols; col++ {
		s.spawn("ground", float64(col*32), 512, "")
	}
	s.ctrl = character.New(s.w, s.in, nil)
	return s
}

func (s *sim) spawn(name string, x, y float64, state string) *sprite.Sprite {
	s.t.Helper()
	sp, err := s.reg.Spawn(sprite.Record{Name: name, X: x, Y: y, State: state})
	require.NoError(s.t, err)
	s.w.Add(sp)
	return sp
}

func (s *sim) step(n int) {
	for i := 0; i < n; i++ {
		s.ctrl.Tick(dt)
		s.w.AdvanceTimers(dt)
		s.bus.SwapBuffers()
		s.bus.DispatchAll()
	}
}

// until steps until cond holds, failing after limit ticks.
func (s *sim) until(limit int, cond func() bool) {
	s.t.Helper()
	for i := 0; i < limit; i++ {
		if cond() {
			return
		}
		s.step(1)
	}
	require.True(s.t, cond(), "condition not met after %d ticks", limit)
}

func TestFallAndLand(t *testing.T) {
	s := newSim(t, 30)
	hero := s.spawn("mario", 64, 300, "idle-right")

	s.step(1)
	assert.Equal(t, sprite.State("fall-right"), hero.State)
	assert.Equal(t, sprite.State("idle-right"), hero.NextState)

	s.step(100)
	assert.Equal(t, 448.0, hero.Y)
	assert.Equal(t, sprite.State("idle-right"), hero.State)
	assert.Zero(t, hero.YVelocity)
	require.Len(t, s.landed, 1)
	assert.Equal(t, hero.ID, s.landed[0].ID)
	require.NoError(t, s.w.Verify())
}

func TestSimulationIsDeterministic(t *testing.T) {
	run := func() *data.Level {
		s := newSim(t, 30)
		s.spawn("mushroom", 400, 448, "walk-left")
		s.spawn("turtle", 600, 300, "walk-right")
		s.spawn("mario", 64, 448, "idle-right")
		s.in.Right = true
		s.step(40)
		s.in.Jump = true
		s.step(60)
		s.in.Right, s.in.Jump = false, false
		s.step(60)
		return s.w.Snapshot()
	}
	assert.Equal(t, run(), run())
}

func TestWalkerTurnsAtWorldEdge(t *testing.T) {
	s := newSim(t, 30)
	m := s.spawn("mushroom", 40, 448, "walk-left")

	s.step(60)
	assert.Equal(t, sprite.State("walk-right"), m.State)
	assert.Equal(t, 50.0, m.Velocity)
	assert.GreaterOrEqual(t, m.X, 0.0)
	assert.Less(t, m.X, 40.0)
}

func TestWalkerTurnsAtTile(t *testing.T) {
	s := newSim(t, 30)
	s.spawn("brick", 160, 480, "")
	m := s.spawn("mushroom", 100, 448, "walk-right")

	s.until(100, func() bool { return m.State == "walk-left" })
	assert.Equal(t, 128.0, m.X, "clamped against the brick")
	assert.Equal(t, 448.0, m.Y)
}

func TestFallingOutOfTheWorld(t *testing.T) {
	s := newSim(t, 0)
	m := s.spawn("mushroom", 100, 448, "walk-left")

	s.step(1)
	assert.Equal(t, sprite.State("fall-left"), m.State)
	s.step(100)

	assert.False(t, s.w.Contains(m))
	require.Len(t, s.removed, 1)
	assert.Equal(t, event.RemovedOutOfBounds, s.removed[0].Reason)
	assert.Equal(t, m.ID, s.removed[0].ID)
}

func TestSideHitClampsTheSameWithOneOrTwoContacts(t *testing.T) {
	run := func(brickY float64) *sprite.Sprite {
		s := newSim(t, 30)
		s.spawn("brick", 160, brickY, "")
		m := s.spawn("mushroom", 100, 448, "walk-right")
		s.until(100, func() bool { return m.State == "walk-left" })
		require.NoError(t, s.w.Verify())
		return m
	}
	// the mushroom body spans y 480..512; sampled at 488 and 504
	both := run(480)
	lower := run(496)

	assert.Equal(t, 128.0, both.X)
	assert.Equal(t, both.X, lower.X)
	assert.Equal(t, both.Y, lower.Y)
	assert.Equal(t, both.Velocity, lower.Velocity)
}

func TestRemovedOnTheTickItCrossesTheFloor(t *testing.T) {
	s := newSim(t, 0)
	m := s.spawn("mushroom", 300, 300, "walk-left")
	secs := dt.Seconds()

	for i := 0; i < 200; i++ {
		yv := m.YVelocity
		if m.State.Mov().Airborne() {
			if yv < 600 {
				yv += 1200 * secs
			}
			if yv >= 600 {
				yv = 600
			}
		}
		gone := m.Y+yv*secs >= s.w.Height()

		s.step(1)
		require.Equal(t, !gone, s.w.Contains(m), "tick %d at y %.2f", i, m.Y)
		if gone {
			require.Len(t, s.removed, 1)
			assert.Equal(t, m.ID, s.removed[0].ID)
			assert.Equal(t, event.RemovedOutOfBounds, s.removed[0].Reason)
			return
		}
		require.Empty(t, s.removed, "tick %d", i)
	}
	t.Fatal("mushroom never left the world")
}

func TestJumpAboveTheTopStaysInPlay(t *testing.T) {
	s := newSim(t, 30)
	for col := 0; col < 6; col++ {
		s.spawn("brick", float64(col*32), 96, "")
	}
	hero := s.spawn("mario", 64, 32, "idle-right")
	s.in.Jump = true

	top := hero.Y
	for i := 0; i < 200 && len(s.landed) == 0; i++ {
		s.step(1)
		require.True(t, s.w.Contains(hero), "tick %d at y %.2f", i, hero.Y)
		top = math.Min(top, hero.Y)
	}
	assert.Less(t, top, -hero.Height(), "whole sprite went above the top edge")
	assert.Empty(t, s.removed)
	require.Len(t, s.landed, 1)
	assert.Equal(t, 32.0, hero.Y)
	assert.Equal(t, sprite.State("idle-right"), hero.State)
	require.NoError(t, s.w.Verify())
}

func TestHeldJumpStopsHelpingNearTheTop(t *testing.T) {
	s := newSim(t, 0)
	var err error
	s.w, err = world.New(world.Config{Level: "short", TileWidth: 32, TileHeight: 32, Width: 30, Height: 4}, s.reg, s.bus, nil)
	require.NoError(t, err)
	s.ctrl = character.New(s.w, s.in, nil)
	for col := 0; col < 6; col++ {
		s.spawn("brick", float64(col*32), 96, "")
	}
	hero := s.spawn("mario", 64, 32, "idle-right")
	s.in.Jump = true

	// takeoff from rest scales the limit by walk/run velocity
	limit := (hero.Y - s.w.Height()) * (160.0 / 220.0)
	secs := dt.Seconds()
	held, capped := 0, 0
	for i := 0; i < 200 && len(s.landed) == 0; i++ {
		y, v := hero.Y, hero.YVelocity
		s.step(1)
		if v >= 0 || hero.State.Mov() != sprite.MoveJump {
			continue
		}
		acc := 900.0
		if y <= limit {
			acc = 1400
			capped++
		} else {
			held++
		}
		assert.InDelta(t, v+acc*secs, hero.YVelocity, 1e-9, "tick %d at y %.2f", i, y)
	}
	assert.Positive(t, held)
	assert.Positive(t, capped)
	require.Len(t, s.landed, 1)
	assert.Equal(t, 32.0, hero.Y)
}

func TestHeroWalkAndRelease(t *testing.T) {
	s := newSim(t, 30)
	hero := s.spawn("mario", 64, 448, "idle-right")

	s.in.Right = true
	s.step(1)
	assert.Equal(t, sprite.State("walk-right"), hero.State)
	assert.InDelta(t, 62.4, hero.Velocity, 1e-9, "minimum velocity plus one step")

	s.step(60)
	assert.Equal(t, 160.0, hero.Velocity)

	s.in.Right = false
	s.step(1)
	assert.Equal(t, sprite.State("release-right"), hero.State)
	assert.Equal(t, sprite.State("idle-right"), hero.NextState)

	s.step(60)
	assert.Equal(t, sprite.State("idle-right"), hero.State)
	assert.Zero(t, hero.Velocity)
	assert.Equal(t, 448.0, hero.Y)
}

func TestHeroSkidsBeforeTurning(t *testing.T) {
	s := newSim(t, 30)
	hero := s.spawn("mario", 300, 448, "walk-right")
	hero.Velocity = 160

	s.in.Right = true
	s.step(1)
	s.in.Right, s.in.Left = false, true
	s.step(1)
	assert.Equal(t, sprite.State("skid-left"), hero.State)
	assert.Equal(t, sprite.State("walk-left"), hero.NextState)
	assert.Greater(t, hero.Velocity, 0.0, "still moving right while braking")

	s.step(40)
	assert.Equal(t, sprite.State("walk-left"), hero.State)
	assert.Less(t, hero.Velocity, -60.0)
}

func TestHeroJumpsAndLands(t *testing.T) {
	s := newSim(t, 30)
	hero := s.spawn("mario", 300, 448, "idle-right")

	s.in.Jump = true
	s.step(1)
	assert.Equal(t, sprite.State("jump-right"), hero.State)
	assert.Equal(t, sprite.State("idle-right"), hero.NextState)
	assert.InDelta(t, -561+900*dt.Seconds(), hero.YVelocity, 1e-9, "held jump decelerates slower")
	assert.Less(t, hero.Y, 448.0)

	peak := hero.Y
	for i := 0; i < 150; i++ {
		s.step(1)
		peak = min(peak, hero.Y)
	}
	assert.Less(t, peak, 448.0-100)
	assert.Equal(t, sprite.State("idle-right"), hero.State)
	assert.Equal(t, 448.0, hero.Y)
}

func TestLowCeilingBump(t *testing.T) {
	s := newSim(t, 30)
	brick := s.spawn("brick", 64, 416, "")
	hero := s.spawn("mario", 64, 448, "idle-right")

	s.in.Jump = true
	s.step(1)
	assert.Equal(t, 448.0, hero.Y, "stopped under the brick")
	assert.Zero(t, hero.YVelocity)
	require.Len(t, s.bumps, 1)
	assert.Equal(t, brick.ID, s.bumps[0].TileID)
	assert.Equal(t, hero.ID, s.bumps[0].ByID)

	s.step(1)
	assert.Equal(t, sprite.State("idle-right"), hero.State)
	assert.Equal(t, 448.0, hero.Y)
}

func TestStompSquishesMushroom(t *testing.T) {
	s := newSim(t, 30)
	m := s.spawn("mushroom", 200, 448, "idle-left")
	hero := s.spawn("mario", 200, 300, "idle-right")

	s.until(100, func() bool { return m.State == "squished-left" })
	assert.False(t, m.Collision)
	assert.Equal(t, sprite.State("jump-right"), hero.State)
	assert.Equal(t, -hero.Type.BounceVelocity, hero.YVelocity)

	s.step(100)
	assert.Equal(t, sprite.State("idle-right"), hero.State)
	assert.Equal(t, 448.0, hero.Y)
	assert.True(t, s.w.Contains(m))
	assert.Equal(t, 200.0, m.X)
	assert.Empty(t, s.kos)
}

func TestSideHitKnocksHeroOut(t *testing.T) {
	s := newSim(t, 30)
	hero := s.spawn("mario", 100, 448, "idle-right")
	m := s.spawn("mushroom", 140, 448, "idle-left")

	s.in.Right = true
	s.until(30, func() bool { return hero.State == "ko-right" })
	assert.False(t, hero.Collision)
	require.Len(t, s.kos, 1)
	assert.Equal(t, hero.ID, s.kos[0].ID)
	assert.Equal(t, m.ID, s.kos[0].By)

	s.step(200)
	assert.False(t, s.w.Contains(hero))
	assert.Nil(t, s.w.Hero())
	assert.True(t, s.w.Contains(m))
}

func TestLandingOnSpikeKnocksHeroOut(t *testing.T) {
	s := newSim(t, 30)
	spike := s.spawn("spike", 200, 448, "idle-left")
	hero := s.spawn("mario", 200, 300, "idle-right")

	s.until(100, func() bool { return hero.State == "ko-right" })
	require.Len(t, s.kos, 1)
	assert.Equal(t, spike.ID, s.kos[0].By)
	assert.Equal(t, sprite.State("idle-left"), spike.State)
}

func TestShellWakesUp(t *testing.T) {
	s := newSim(t, 30)
	hero := s.spawn("mario", 64, 448, "idle-right")
	turtle := s.spawn("turtle", 300, 448, "walk-left")

	character.Turtle{}.Hit(s.ctrl, turtle, hero, sprite.SideTop)
	assert.Equal(t, sprite.State("squished-left"), turtle.State)
	assert.Zero(t, turtle.Velocity)
	assert.Equal(t, 1, s.w.PendingTimers())

	s.w.AdvanceTimers(character.ShellWakeDelay)
	assert.Equal(t, sprite.State("wake-left"), turtle.State)
	assert.Equal(t, 1, s.w.PendingTimers())

	s.w.AdvanceTimers(character.ShellWakeDelay)
	assert.Equal(t, sprite.State("walk-left"), turtle.State)
	assert.Zero(t, s.w.PendingTimers())
}

func TestKickedShellSlides(t *testing.T) {
	s := newSim(t, 30)
	hero := s.spawn("mario", 64, 448, "idle-right")
	turtle := s.spawn("turtle", 300, 448, "walk-left")

	character.Turtle{}.Hit(s.ctrl, turtle, hero, sprite.SideTop)
	character.Turtle{}.Hit(s.ctrl, turtle, hero, sprite.SideLeft)
	assert.Equal(t, sprite.State("slide-right"), turtle.State)
	assert.Zero(t, s.w.PendingTimers(), "kicking cancels the wake timer")

	// a hero walking into a walking turtle does nothing to it
	walker := s.spawn("turtle", 500, 448, "walk-left")
	character.Turtle{}.Hit(s.ctrl, walker, hero, sprite.SideLeft)
	assert.Equal(t, sprite.State("walk-left"), walker.State)
}

func TestSlidingShellKnocksOutCharacters(t *testing.T) {
	s := newSim(t, 30)
	shell := s.spawn("turtle", 100, 448, "slide-right")
	m := s.spawn("mushroom", 160, 448, "idle-left")

	s.until(30, func() bool { return m.State == "ko-left" })
	require.NotEmpty(t, s.kos)
	assert.Equal(t, m.ID, s.kos[0].ID)
	assert.Equal(t, shell.ID, s.kos[0].By)
	assert.Equal(t, sprite.State("slide-right"), shell.State, "the shell keeps going")
}

func TestResumeRearmsShellTimers(t *testing.T) {
	s := newSim(t, 30)
	s.spawn("turtle", 100, 448, "squished-left")
	s.spawn("beetle", 200, 448, "wake-right")
	s.spawn("mushroom", 300, 448, "squished-left")
	s.spawn("turtle", 400, 448, "walk-left")

	assert.Equal(t, 2, s.ctrl.Resume())
	assert.Equal(t, 2, s.w.PendingTimers())
}

func TestIdleWithVelocityInvariant(t *testing.T) {
	s := newSim(t, 30)
	hero := s.spawn("mario", 300, 448, "idle-right")
	hero.Velocity = 50

	s.ctrl.Strict = true
	assert.Panics(t, func() { s.step(1) })

	s = newSim(t, 30)
	hero = s.spawn("mario", 300, 448, "idle-right")
	hero.Velocity = 50
	s.step(1)
	assert.Zero(t, hero.Velocity, "repaired")
	assert.Equal(t, 300.0, hero.X)
}

func TestEditModeFreezesCharacters(t *testing.T) {
	s := newSim(t, 30)
	m := s.spawn("mushroom", 300, 448, "walk-left")

	s.w.SetState(world.ModeEdit)
	s.step(10)
	assert.Equal(t, 300.0, m.X)
	assert.Zero(t, m.Frame)

	s.w.SetState(world.ModePlay)
	s.step(10)
	assert.Less(t, m.X, 300.0)
}

func TestPolicyByName(t *testing.T) {
	p, ok := character.PolicyByName("")
	require.True(t, ok)
	assert.Equal(t, character.Base{}, p)

	_, ok = character.PolicyByName("turtle")
	assert.True(t, ok)
	_, ok = character.PolicyByName("dragon")
	assert.False(t, ok)
}
