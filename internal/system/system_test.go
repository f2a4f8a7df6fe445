package system_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tileworld/engine/internal/catalog"
	"github.com/tileworld/engine/internal/character"
	"github.com/tileworld/engine/internal/core/event"
	coresys "github.com/tileworld/engine/internal/core/system"
	"github.com/tileworld/engine/internal/data"
	"github.com/tileworld/engine/internal/input"
	"github.com/tileworld/engine/internal/persist"
	"github.com/tileworld/engine/internal/sprite"
	"github.com/tileworld/engine/internal/system"
	"github.com/tileworld/engine/internal/world"
)

const dt = 16 * time.Millisecond

type recorder struct{ frames []system.Frame }

func (r *recorder) Draw(f system.Frame) { r.frames = append(r.frames, f) }

func newWorld(t *testing.T, width int, bus *event.Bus) (*world.World, *catalog.Registry) {
	t.Helper()
	reg, err := catalog.NewRegistry(data.DefaultTypes(), nil, nil)
	require.NoError(t, err)
	w, err := world.New(world.Config{Level: "test", TileWidth: 32, TileHeight: 32, Width: width, Height: 17}, reg, bus, nil)
	require.NoError(t, err)
	for col := 0; col < width; col++ {
		spawn(t, w, reg, "ground", float64(col*32), 512)
	}
	return w, reg
}

func spawn(t *testing.T, w *world.World, reg *catalog.Registry, name string, x, y float64) *sprite.Sprite {
	t.Helper()
	s, err := reg.Spawn(sprite.Record{Name: name, X: x, Y: y})
	require.NoError(t, err)
	w.Add(s)
	return s
}

func openStore(t *testing.T) *persist.SQLiteStore {
	t.Helper()
	store, err := persist.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "world.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPersistenceSkipsUnchangedWorld(t *testing.T) {
	ctx := context.Background()
	w, reg := newWorld(t, 10, nil)
	m := spawn(t, w, reg, "mushroom", 100, 448)
	store := openStore(t)
	ps := system.NewPersistenceSystem(w, store, nil, time.Second, 2)
	assert.Equal(t, coresys.PhasePersist, ps.Phase())

	saved, err := ps.Save(ctx)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = ps.Save(ctx)
	require.NoError(t, err)
	assert.False(t, saved, "nothing changed")

	for i := 1; i <= 3; i++ {
		w.Move(m, 100+float64(i), 448)
		saved, err = ps.Save(ctx)
		require.NoError(t, err)
		assert.True(t, saved)
	}
	assert.Equal(t, 4, ps.Saves())

	metas, err := store.List(ctx, "test")
	require.NoError(t, err)
	assert.Len(t, metas, 2, "pruned to the newest two")

	lvl, _, err := store.Latest(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, w.Snapshot(), lvl)
}

func TestPersistenceAutosaveInterval(t *testing.T) {
	w, reg := newWorld(t, 10, nil)
	m := spawn(t, w, reg, "mushroom", 100, 448)
	ps := system.NewPersistenceSystem(w, openStore(t), nil, time.Second, 0)

	ps.Update(600 * time.Millisecond)
	assert.Zero(t, ps.Saves())
	ps.Update(400 * time.Millisecond)
	assert.Equal(t, 1, ps.Saves())

	w.Move(m, 120, 448)
	ps.Update(999 * time.Millisecond)
	assert.Equal(t, 1, ps.Saves(), "interval restarts after a save")
	ps.Update(time.Millisecond)
	assert.Equal(t, 2, ps.Saves())
}

func TestPersistenceRemember(t *testing.T) {
	w, _ := newWorld(t, 10, nil)
	ps := system.NewPersistenceSystem(w, openStore(t), nil, time.Second, 0)

	payload, err := persist.Encode(w.Snapshot())
	require.NoError(t, err)
	ps.Remember(persist.Digest(payload))

	saved, err := ps.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestPersistenceWithoutStore(t *testing.T) {
	w, _ := newWorld(t, 10, nil)
	ps := system.NewPersistenceSystem(w, nil, nil, time.Second, 0)
	ps.Update(time.Hour)
	saved, err := ps.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestVisibilityFollowsHero(t *testing.T) {
	w, reg := newWorld(t, 60, nil)
	hero := spawn(t, w, reg, "mario", 600, 448)
	r := &recorder{}
	vis := system.NewVisibilitySystem(w, r, 640, 480)
	cleanup := system.NewCleanupSystem(w)

	vis.Update(dt)
	require.Len(t, r.frames, 1)
	f := vis.Last()
	assert.Equal(t, 296.0, f.X, "hero centered")
	assert.Equal(t, 64.0, f.Y, "bottom of the world")
	assert.True(t, f.Background)
	assert.Contains(t, f.Sprites, hero)

	cleanup.Update(dt)
	assert.False(t, hero.Redraw)
	assert.False(t, w.BackgroundDirty())

	vis.Update(dt)
	f = vis.Last()
	assert.False(t, f.Background, "nothing moved")
	assert.Empty(t, f.Sprites)

	w.Move(hero, 10, 448)
	vis.Update(dt)
	f = vis.Last()
	assert.Equal(t, 0.0, f.X, "clamped to the left edge")
	assert.True(t, f.Background, "scrolling redraws tiles")

	w.Move(hero, 1900, 448)
	vis.Update(dt)
	assert.Equal(t, 60*32.0-640, vis.Last().X, "clamped to the right edge")
}

func TestBoundarySweep(t *testing.T) {
	w, reg := newWorld(t, 10, nil)
	lost := spawn(t, w, reg, "mushroom", 100, 448)
	w.Move(lost, -200, 448)
	high := spawn(t, w, reg, "mario", 64, 300)
	w.Move(high, 64, -120)
	core, logs := observer.New(zapcore.DebugLevel)
	b := system.NewBoundarySystem(w, zap.New(core))

	b.Update(dt)
	assert.Equal(t, 1, b.Removed())
	assert.False(t, w.Contains(lost))
	assert.True(t, w.Contains(high), "above the top is still in play")

	entries := logs.FilterMessage("swept sprites out of play").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["count"])

	b.Update(dt)
	assert.Equal(t, 1, b.Removed())
	assert.Equal(t, 1, logs.Len(), "nothing swept, nothing logged")
}

func TestBoundarySystemWithoutLogger(t *testing.T) {
	w, reg := newWorld(t, 10, nil)
	lost := spawn(t, w, reg, "mushroom", 100, 448)
	w.Move(lost, 100, 600)

	b := system.NewBoundarySystem(w, nil)
	assert.NotPanics(t, func() { b.Update(dt) })
	assert.Equal(t, 1, b.Removed())
}

func TestPipeline(t *testing.T) {
	bus := event.NewBus()
	var landed []event.Landed
	event.Subscribe(bus, func(e event.Landed) { landed = append(landed, e) })

	w, reg := newWorld(t, 30, bus)
	hero := spawn(t, w, reg, "mario", 64, 300)
	script := input.NewScripted(
		input.Step{At: 500 * time.Millisecond, Snapshot: input.Snapshot{Right: true}},
		input.Step{At: 1500 * time.Millisecond},
	)
	ctrl := character.New(w, script, nil)
	r := &recorder{}
	timers := system.NewTimerSystem(w)

	runner := coresys.NewRunner()
	runner.Register(system.NewCleanupSystem(w))
	runner.Register(system.NewVisibilitySystem(w, r, 640, 480))
	runner.Register(system.NewMotionSystem(ctrl))
	runner.Register(system.NewBoundarySystem(w, nil))
	runner.Register(timers)
	runner.Register(system.NewEventSystem(bus))
	runner.Register(system.NewInputSystem(script))

	for i := 0; i < 180; i++ {
		runner.Tick(dt)
	}

	assert.Equal(t, uint64(180), runner.Ticks())
	assert.Len(t, r.frames, 180)
	assert.Equal(t, 448.0, hero.Y)
	assert.Greater(t, hero.X, 64.0+100)
	assert.Equal(t, sprite.State("idle-right"), hero.State)
	assert.Equal(t, 180*dt, w.Clock())
	require.Len(t, landed, 1)
	assert.Equal(t, hero.ID, landed[0].ID)
	require.NoError(t, w.Verify())
}
