package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tileworld/engine/internal/sprite"
)

// Level is a stored world: its fixed dimensions and the save attributes of
// every sprite. It is also the snapshot shape written by the persistence layer.
type Level struct {
	Name       string          `yaml:"name" msgpack:"name"`
	TileWidth  float64         `yaml:"tile_width" msgpack:"tile_width"`
	TileHeight float64         `yaml:"tile_height" msgpack:"tile_height"`
	Width      int             `yaml:"width" msgpack:"width"`   // in tiles
	Height     int             `yaml:"height" msgpack:"height"` // in tiles
	Sprites    []sprite.Record `yaml:"sprites" msgpack:"sprites"`
}

func LoadLevel(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level %s: %w", path, err)
	}
	var lvl Level
	if err := yaml.Unmarshal(data, &lvl); err != nil {
		return nil, fmt.Errorf("parse level %s: %w", path, err)
	}
	return &lvl, nil
}

func SaveLevel(path string, lvl *Level) error {
	out, err := yaml.Marshal(lvl)
	if err != nil {
		return fmt.Errorf("encode level: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write level %s: %w", path, err)
	}
	return nil
}
