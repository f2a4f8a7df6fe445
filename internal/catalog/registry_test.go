package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileworld/engine/internal/catalog"
	"github.com/tileworld/engine/internal/data"
	"github.com/tileworld/engine/internal/scripting"
	"github.com/tileworld/engine/internal/sprite"
)

func defaultRegistry(t *testing.T) *catalog.Registry {
	t.Helper()
	reg, err := catalog.NewRegistry(data.DefaultTypes(), nil, nil)
	require.NoError(t, err)
	return reg
}

func TestDefaultRegistry(t *testing.T) {
	reg := defaultRegistry(t)
	assert.Equal(t, data.DefaultTypes().Names(), reg.Names())

	mario, ok := reg.Type("mario")
	require.True(t, ok)
	assert.Equal(t, sprite.BehaviorHero, mario.Behavior)
	assert.NotNil(t, mario.Policy)

	ground, ok := reg.Type("ground")
	require.True(t, ok)
	assert.True(t, ground.Static)

	_, ok = reg.Type("koopa")
	assert.False(t, ok)
}

func TestSpawn(t *testing.T) {
	reg := defaultRegistry(t)

	s, err := reg.Spawn(sprite.Record{Name: "turtle", X: 10, Y: 20})
	require.NoError(t, err)
	assert.Equal(t, sprite.State("walk-left"), s.State, "default state")
	assert.True(t, s.Collision)
	assert.Equal(t, 10.0, s.X)

	s, err = reg.Spawn(sprite.Record{Name: "mario", State: "walk-right", NextState: "idle-right", Velocity: 80})
	require.NoError(t, err)
	assert.Equal(t, sprite.State("idle-right"), s.NextState)
	assert.Equal(t, 80.0, s.Velocity)

	_, err = reg.Spawn(sprite.Record{Name: "koopa"})
	assert.ErrorIs(t, err, catalog.ErrUnknownType)

	_, err = reg.Spawn(sprite.Record{Name: "ground", State: "walk-left"})
	assert.ErrorIs(t, err, catalog.ErrInvalidConfig)

	_, err = reg.Spawn(sprite.Record{Name: "mario", NextState: "fly-right"})
	assert.ErrorIs(t, err, catalog.ErrInvalidConfig)
}

func TestSpawnCollisionFollowsState(t *testing.T) {
	reg := defaultRegistry(t)
	cases := []struct {
		name, state string
		collision   bool
	}{
		{"mario", "ko-left", false},
		{"mushroom", "squished-left", false},
		{"turtle", "squished-left", true},
		{"turtle", "ko-right", false},
	}
	for _, tc := range cases {
		s, err := reg.Spawn(sprite.Record{Name: tc.name, State: tc.state})
		require.NoError(t, err)
		assert.Equal(t, tc.collision, s.Collision, "%s %s", tc.name, tc.state)
	}
}

func TestInvalidSpecs(t *testing.T) {
	cases := map[string]string{
		"dynamic tile": `
types:
- {name: rock, kind: tile, width: 32, height: 32, state: idle, policy: tile,
   animations: {idle: {frames: [1]}}}`,
		"zero size": `
types:
- {name: rock, kind: tile, width: 0, height: 32, static: true, state: idle,
   animations: {idle: {frames: [1]}}}`,
		"missing default animation": `
types:
- {name: rock, kind: tile, width: 32, height: 32, static: true, state: idle,
   animations: {shiny: {frames: [1]}}}`,
		"missing walker state": `
types:
- {name: blob, kind: character, width: 32, height: 32, state: idle-left,
   animations: {idle-left: {frames: [1]}, idle-right: {frames: [1]}}}`,
		"unknown policy": `
types:
- {name: rock, kind: tile, width: 32, height: 32, static: true, state: idle, policy: lava,
   animations: {idle: {frames: [1]}}}`,
		"script without engine": `
types:
- {name: rock, kind: tile, width: 32, height: 32, static: true, state: idle, policy: tile,
   script: rock_reaction, animations: {idle: {frames: [1]}}}`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			table, err := data.ParseTypeTable([]byte(src))
			require.NoError(t, err)
			_, err = catalog.NewRegistry(table, nil, nil)
			assert.ErrorIs(t, err, catalog.ErrInvalidConfig)
		})
	}
}

func TestBundledTypesWithScripts(t *testing.T) {
	engine, err := scripting.NewEngine("../../scripts", nil)
	require.NoError(t, err)
	defer engine.Close()

	table, err := data.LoadTypeTable("../../data/yaml/sprite_types.yaml")
	require.NoError(t, err)
	reg, err := catalog.NewRegistry(table, engine, nil)
	require.NoError(t, err)

	beetle, err := reg.Spawn(sprite.Record{Name: "beetle"})
	require.NoError(t, err)
	spike, err := reg.Spawn(sprite.Record{Name: "spike"})
	require.NoError(t, err)
	mushroom, err := reg.Spawn(sprite.Record{Name: "mushroom"})
	require.NoError(t, err)

	p := beetle.Type.Policy
	assert.Equal(t, sprite.ReactNone, p.HitReaction(beetle, spike, sprite.SideLeft), "walks through spikes")
	assert.Equal(t, sprite.ReactBlock, p.HitReaction(beetle, mushroom, sprite.SideLeft))
	assert.Equal(t, sprite.ReactBlock, p.HitReaction(beetle, spike, sprite.SideTop))

	_, err = catalog.NewRegistry(table, nil, nil)
	assert.ErrorIs(t, err, catalog.ErrInvalidConfig, "beetle needs the script engine")
}
