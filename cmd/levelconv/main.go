// levelconv converts a browser world export (JSON) to a level YAML.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tileworld/engine/internal/data"
	"github.com/tileworld/engine/internal/sprite"
)

// exportedWorld is the JSON shape of a saved world: shallow attributes plus
// the save attributes of every sprite.
type exportedWorld struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	TileWidth  float64          `json:"tileWidth"`
	TileHeight float64          `json:"tileHeight"`
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	Sprites    []exportedSprite `json:"sprites"`
}

type exportedSprite struct {
	Name      string  `json:"name"`
	State     string  `json:"state"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	NextState string  `json:"nextState"`
	Velocity  float64 `json:"velocity"`
	YVelocity float64 `json:"yVelocity"`
}

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: levelconv <world.json> <output.yaml> [sprite_types.yaml]")
		os.Exit(1)
	}

	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var in exportedWorld
	if err := json.Unmarshal(raw, &in); err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}

	table := data.DefaultTypes()
	if len(os.Args) > 3 {
		if table, err = data.LoadTypeTable(os.Args[3]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	lvl, skipped := convert(in, table)
	if err := data.SaveLevel(os.Args[2], lvl); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("Converted %d sprites → %s\n", len(lvl.Sprites), os.Args[2])
	if len(skipped) > 0 {
		fmt.Printf("Skipped unknown types: %s\n", strings.Join(skipped, ", "))
	}
}

// convert maps an export to a level. Missing dimensions take the browser
// defaults. Sprites of unknown types are dropped and reported.
func convert(in exportedWorld, table *data.TypeTable) (*data.Level, []string) {
	lvl := &data.Level{
		Name:       in.Name,
		TileWidth:  in.TileWidth,
		TileHeight: in.TileHeight,
		Width:      in.Width,
		Height:     in.Height,
	}
	if lvl.Name == "" {
		lvl.Name = in.ID
	}
	if lvl.Name == "" {
		lvl.Name = "untitled"
	}
	if lvl.TileWidth <= 0 {
		lvl.TileWidth = 32
	}
	if lvl.TileHeight <= 0 {
		lvl.TileHeight = 32
	}
	if lvl.Width <= 0 {
		lvl.Width = 30
	}
	if lvl.Height <= 0 {
		lvl.Height = 17
	}

	unknown := make(map[string]bool)
	for _, s := range in.Sprites {
		if table.Get(s.Name) == nil {
			unknown[s.Name] = true
			continue
		}
		lvl.Sprites = append(lvl.Sprites, sprite.Record{
			Name:      s.Name,
			X:         s.X,
			Y:         s.Y,
			State:     s.State,
			NextState: s.NextState,
			Velocity:  s.Velocity,
			YVelocity: s.YVelocity,
		})
	}

	skipped := make([]string, 0, len(unknown))
	for name := range unknown {
		skipped = append(skipped, name)
	}
	sort.Strings(skipped)
	return lvl, skipped
}
