package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileworld/engine/internal/data"
	"github.com/tileworld/engine/internal/sprite"
)

func testLevel() *data.Level {
	return &data.Level{
		Name: "level1", TileWidth: 32, TileHeight: 32, Width: 30, Height: 17,
		Sprites: []sprite.Record{
			{Name: "ground", X: 0, Y: 512, State: "idle"},
			{Name: "mario", X: 64, Y: 448, State: "walk-right", Velocity: 160},
		},
	}
}

func TestEncodeDecode(t *testing.T) {
	lvl := testLevel()
	payload, err := Encode(lvl)
	require.NoError(t, err)

	got, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, lvl, got)
}

func TestDigestTracksContent(t *testing.T) {
	a, err := Encode(testLevel())
	require.NoError(t, err)
	b, err := Encode(testLevel())
	require.NoError(t, err)
	assert.Equal(t, Digest(a), Digest(b))
	assert.Len(t, Digest(a), 64)

	moved := testLevel()
	moved.Sprites[1].X++
	c, err := Encode(moved)
	require.NoError(t, err)
	assert.NotEqual(t, Digest(a), Digest(c))
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte{0xc1})
	assert.Error(t, err)
}
