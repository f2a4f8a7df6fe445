package data

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileworld/engine/internal/sprite"
)

func TestParseTypeTable(t *testing.T) {
	table, err := ParseTypeTable([]byte(`
types:
  - name: ground
    kind: tile
    width: 32
    height: 32
    static: true
    collision: true
    state: idle
    behavior: static
    policy: tile
    animations:
      idle: {velocity: 0, acceleration: 0, frames: [0, 1], frame_delay: 300ms}
  - name: goomba
    kind: character
    width: 32
    height: 64
    padding: {top: 32}
    state: walk-left
    behavior: walker
    policy: mushroom
    animations:
      walk-left: {velocity: -50, acceleration: 0, frames: [1, 0]}
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"ground", "goomba"}, table.Names())
	assert.Equal(t, 2, table.Count())

	ground := table.Get("ground")
	require.NotNil(t, ground)
	assert.Equal(t, sprite.KindTile, ground.Kind)
	assert.Equal(t, 300*time.Millisecond, ground.Animations["idle"].FrameDelay)

	goomba := table.Get("goomba")
	assert.Equal(t, 32.0, goomba.Padding.Top)
	assert.Equal(t, -50.0, goomba.Animations["walk-left"].Velocity)
	assert.Nil(t, table.Get("koopa"))
}

func TestParseTypeTableRejectsDuplicates(t *testing.T) {
	_, err := ParseTypeTable([]byte("types:\n  - name: a\n  - name: a\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = ParseTypeTable([]byte("types:\n  - kind: tile\n"))
	assert.ErrorContains(t, err, "no name")
}

func TestDefaultTypesSaveAndReload(t *testing.T) {
	table := DefaultTypes()
	path := filepath.Join(t.TempDir(), "sprite_types.yaml")
	require.NoError(t, table.Save(path))

	loaded, err := LoadTypeTable(path)
	require.NoError(t, err)
	assert.Equal(t, table.Names(), loaded.Names())

	hero := loaded.Get("mario")
	walk := hero.Animations["walk-left"]
	assert.Equal(t, -160.0, walk.Velocity)
	assert.Equal(t, -60.0, walk.MinVelocity)
	assert.Equal(t, 100*time.Millisecond, walk.FrameDelay)
	assert.True(t, loaded.Get("turtle").Shelled)
	assert.True(t, loaded.Get("spike").Spiky)
}

func TestBundledTypeTable(t *testing.T) {
	table, err := LoadTypeTable("../../data/yaml/sprite_types.yaml")
	require.NoError(t, err)

	assert.Equal(t, "beetle_reaction", table.Get("beetle").Script)
	for _, name := range table.Names() {
		spec := table.Get(name)
		if spec.Kind == sprite.KindCharacter {
			assert.Contains(t, spec.Animations, "ko-left", name)
			assert.Contains(t, spec.Animations, "ko-right", name)
		}
	}
}

func TestLevelSaveAndLoad(t *testing.T) {
	lvl := &Level{
		Name: "1-1", TileWidth: 32, TileHeight: 32, Width: 30, Height: 17,
		Sprites: []sprite.Record{
			{Name: "ground", X: 0, Y: 512, State: "idle"},
			{Name: "mario", X: 64, Y: 448, State: "jump-right", NextState: "walk-right", Velocity: 160, YVelocity: -300},
		},
	}
	path := filepath.Join(t.TempDir(), "level.yaml")
	require.NoError(t, SaveLevel(path, lvl))

	got, err := LoadLevel(path)
	require.NoError(t, err)
	assert.Equal(t, lvl, got)
}

func TestBundledLevel(t *testing.T) {
	lvl, err := LoadLevel("../../data/yaml/levels/level1.yaml")
	require.NoError(t, err)
	assert.Equal(t, "level1", lvl.Name)
	assert.Equal(t, 17, lvl.Height)
	assert.NotEmpty(t, lvl.Sprites)
}
