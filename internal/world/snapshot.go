package world

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tileworld/engine/internal/core/event"
	"github.com/tileworld/engine/internal/data"
	"github.com/tileworld/engine/internal/sprite"
)

// Snapshot returns the level record of the world: its dimensions and the
// save attributes of every sprite, tiles first, each in insertion order.
func (w *World) Snapshot() *data.Level {
	static, dynamic := w.set.Len()
	lvl := &data.Level{
		Name:       w.cfg.Level,
		TileWidth:  w.cfg.TileWidth,
		TileHeight: w.cfg.TileHeight,
		Width:      w.cfg.Width,
		Height:     w.cfg.Height,
		Sprites:    make([]sprite.Record, 0, static+dynamic),
	}
	for _, s := range w.set.Static() {
		lvl.Sprites = append(lvl.Sprites, s.Record())
	}
	for _, s := range w.set.Dynamic() {
		lvl.Sprites = append(lvl.Sprites, s.Record())
	}
	return lvl
}

// Restore replaces every sprite with the ones of lvl. The dimensions of lvl
// must match the world's; resizing goes through Rebuild. Pending timers are
// dropped. On error the world is left unchanged.
func (w *World) Restore(lvl *data.Level) error {
	if lvl.TileWidth != w.cfg.TileWidth || lvl.TileHeight != w.cfg.TileHeight ||
		lvl.Width != w.cfg.Width || lvl.Height != w.cfg.Height {
		return fmt.Errorf("%w: level %s is %dx%d tiles of %gx%g, world is %dx%d of %gx%g",
			ErrInvalidConfig, lvl.Name, lvl.Width, lvl.Height, lvl.TileWidth, lvl.TileHeight,
			w.cfg.Width, w.cfg.Height, w.cfg.TileWidth, w.cfg.TileHeight)
	}
	if w.factory == nil {
		return fmt.Errorf("restore level %s: world has no sprite factory", lvl.Name)
	}
	sprites := make([]*sprite.Sprite, 0, len(lvl.Sprites))
	for i, rec := range lvl.Sprites {
		s, err := w.factory.Spawn(rec)
		if err != nil {
			return fmt.Errorf("restore level %s: sprite #%d: %w", lvl.Name, i, err)
		}
		sprites = append(sprites, s)
	}

	for _, s := range w.byID {
		s.CancelDeferred()
	}
	w.byID = make(map[string]*sprite.Sprite, len(sprites))
	w.counter = make(map[string]int)
	w.timers = timerWheel{}
	kept := sprites[:0]
	for _, s := range sprites {
		s.ID = w.buildID(s)
		if old, ok := w.byID[s.ID]; ok {
			// Later tiles win a shared cell, as with Add.
			kept = removeSprite(kept, old)
		}
		w.byID[s.ID] = s
		s.Redraw = true
		kept = append(kept, s)
	}
	w.set.Reset(kept)
	w.backgroundDirty = true
	w.log.Info("world restored",
		zap.String("level", lvl.Name),
		zap.Int("tiles", len(w.set.Static())),
		zap.Int("characters", len(w.set.Dynamic())))
	return nil
}

func removeSprite(list []*sprite.Sprite, s *sprite.Sprite) []*sprite.Sprite {
	for i, o := range list {
		if o == s {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Rebuild returns a new world of the given size in tiles holding the sprites
// of w. Rows are added or removed at the top, so every sprite moves down by
// the height difference. Sprites left fully outside the new bounds are dropped.
func Rebuild(w *World, width, height int) (*World, error) {
	cfg := w.cfg
	cfg.Width, cfg.Height = width, height
	nw, err := New(cfg, w.factory, w.bus, w.log)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", cfg.Level, err)
	}
	lvl := w.Snapshot()
	dy := float64(height-w.cfg.Height) * cfg.TileHeight
	lvl.Width, lvl.Height = width, height
	for i := range lvl.Sprites {
		lvl.Sprites[i].Y += dy
	}
	if err := nw.Restore(lvl); err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", cfg.Level, err)
	}
	nw.mode = w.mode
	if n := nw.ClearBeyondBoundaries(); n > 0 {
		nw.log.Info("rebuild dropped sprites outside the new bounds", zap.Int("count", n))
	}
	return nw, nil
}

// Place is the editor drop: put a sprite of the named type at (x, y), snapped
// to the grid with its bottom on the cell under the point.
//   - an empty name removes whatever is at the point;
//   - a different sprite at the point is replaced;
//   - the same character turns around once, then is removed on the next drop;
//   - a hero is a singleton: placing one removes any other.
//
// Returns the placed or toggled sprite, nil when the drop removed something.
func (w *World) Place(name string, x, y float64) (*sprite.Sprite, error) {
	existing := w.FindAt(x, y, Query{})
	if name == "" {
		if existing != nil {
			w.remove(existing, event.RemovedExplicit)
		}
		return nil, nil
	}
	if w.factory == nil {
		return nil, fmt.Errorf("place %s: world has no sprite factory", name)
	}
	typ, ok := w.factory.Type(name)
	if !ok {
		return nil, fmt.Errorf("place %s: unknown sprite type", name)
	}

	if existing != nil {
		if existing.Name != name {
			w.remove(existing, event.RemovedReplaced)
		} else {
			dir := existing.State.Dir()
			removeOn := sprite.Right
			if existing.IsHero() {
				removeOn = sprite.Left
			}
			if !existing.IsCharacter() || dir == "" || dir == removeOn {
				w.remove(existing, event.RemovedExplicit)
				return nil, nil
			}
			existing.State = existing.State.Facing(dir.Opposite())
			existing.Velocity = -existing.Velocity
			existing.NextState = ""
			existing.Redraw = true
			return existing, nil
		}
	}

	col := w.grid.Col(x)
	row := w.grid.Row(y - typ.Height + w.cfg.TileHeight)
	px, py := w.grid.Origin(col, row)
	s, err := w.factory.Spawn(sprite.Record{Name: name, X: px, Y: py})
	if err != nil {
		return nil, fmt.Errorf("place %s: %w", name, err)
	}
	if s.IsHero() {
		for _, old := range append([]*sprite.Sprite(nil), w.set.Dynamic()...) {
			if old.IsHero() {
				w.remove(old, event.RemovedReplaced)
			}
		}
	}
	w.Add(s)
	return s, nil
}
