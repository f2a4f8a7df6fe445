package world

import (
	"math"

	"go.uber.org/zap"

	"github.com/tileworld/engine/internal/core/event"
	"github.com/tileworld/engine/internal/spatial"
	"github.com/tileworld/engine/internal/sprite"
)

// Query narrows a lookup. The zero value matches any sprite.
type Query struct {
	Kind          sprite.Kind    // "" for any
	Exclude       *sprite.Sprite // usually the asking sprite
	CollisionOnly bool
}

func (q Query) filter() spatial.Filter {
	return spatial.Filter{Kind: q.Kind, Exclude: q.Exclude, Collision: q.CollisionOnly}
}

// TileQuery and CharacterQuery are the common query shapes of a moving sprite.
func TileQuery(exclude *sprite.Sprite) Query {
	return Query{Kind: sprite.KindTile, Exclude: exclude, CollisionOnly: true}
}

func CharacterQuery(exclude *sprite.Sprite) Query {
	return Query{Kind: sprite.KindCharacter, Exclude: exclude, CollisionOnly: true}
}

// InBounds reports whether the point lies inside the world, edges included.
func (w *World) InBounds(x, y float64) bool {
	return x >= 0 && y >= 0 && x <= w.Width() && y <= w.Height()
}

// FindAt returns the first sprite overlapping (x, y). Tiles are matched by
// their exact cell; characters by a scan of the neighbouring cells, and are
// preferred over tiles. Points outside the world find nothing.
func (w *World) FindAt(x, y float64, q Query) *sprite.Sprite {
	if !w.InBounds(x, y) {
		return nil
	}
	return w.set.QueryAt(x, y, q.filter())
}

// FilterAt returns every sprite overlapping (x, y), characters first.
func (w *World) FilterAt(x, y float64, q Query) []*sprite.Sprite {
	if !w.InBounds(x, y) {
		return nil
	}
	return w.set.QueryAllAt(x, y, q.filter())
}

// Probe is one named lookup point of a batched collision query. Dir is the
// lookout direction: Sprite is the hit whose edge facing the probe is
// nearest in that direction. Sprites holds every hit in scan order.
type Probe struct {
	X, Y float64
	Dir  sprite.Side

	Sprite  *sprite.Sprite
	Sprites []*sprite.Sprite
}

// edge returns the edge of s facing a probe looking in dir, and whether a
// larger value is nearer.
func edge(s *sprite.Sprite, dir sprite.Side) (v float64, higherIsNearer bool) {
	switch dir {
	case sprite.SideBottom:
		return s.Top(true), false
	case sprite.SideTop:
		return s.Bottom(true), true
	case sprite.SideLeft:
		return s.Right(true), true
	default:
		return s.Left(true), false
	}
}

// FindCollisions fills every probe with the sprites overlapping its point and
// picks the nearest one along the probe's direction. All probes share one
// neighbourhood scan. Returns the total number of hits.
func (w *World) FindCollisions(probes map[string]*Probe, q Query) int {
	if len(probes) == 0 {
		return 0
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range probes {
		p.Sprite, p.Sprites = nil, p.Sprites[:0]
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	count := 0
	w.set.Scan(minX, minY, maxX, maxY, q.filter(), func(s *sprite.Sprite) bool {
		for _, p := range probes {
			if !w.InBounds(p.X, p.Y) || !s.Overlaps(p.X, p.Y) {
				continue
			}
			p.Sprites = append(p.Sprites, s)
			count++
			if p.Sprite == nil {
				p.Sprite = s
				continue
			}
			cur, higher := edge(p.Sprite, p.Dir)
			cand, _ := edge(s, p.Dir)
			if (higher && cand > cur) || (!higher && cand < cur) {
				p.Sprite = s
			}
		}
		return true
	})
	return count
}

// Visible returns the sprites to draw for a viewport rectangle: every tile in
// the viewed columns when background is set, plus characters flagged for
// redraw. A one-tile margin catches sprites straddling the viewport edge.
func (w *World) Visible(x1, y1, x2, y2 float64, background bool) []*sprite.Sprite {
	colFrom, colTo, rowFrom, rowTo := w.grid.Span(
		x1-w.cfg.TileWidth, y1-w.cfg.TileHeight, x2+w.cfg.TileWidth, y2+w.cfg.TileHeight)
	var out []*sprite.Sprite
	if background {
		w.set.Each(true, colFrom, colTo, rowFrom, rowTo, func(s *sprite.Sprite) {
			out = append(out, s)
		})
	}
	w.set.Each(false, colFrom, colTo, rowFrom, rowTo, func(s *sprite.Sprite) {
		if s.Redraw || background {
			out = append(out, s)
		}
	})
	return out
}

// Outside reports whether the sprite's box lies fully outside the world, on
// any side. Used when the world itself changes: resize and editor sweeps.
func (w *World) Outside(s *sprite.Sprite) bool {
	return s.Y+s.Height() < 0 || w.LeftPlay(s)
}

// LeftPlay reports whether a moving sprite is gone for good: fallen below
// the bottom or fully past either side. Rising above the top is not leaving,
// a jump may peak there.
func (w *World) LeftPlay(s *sprite.Sprite) bool {
	return s.Y > w.Height() || s.X+s.Width() < 0 || s.X > w.Width()
}

// RemoveOutOfBounds removes s when it left play.
func (w *World) RemoveOutOfBounds(s *sprite.Sprite) bool {
	if !w.LeftPlay(s) {
		return false
	}
	return w.remove(s, event.RemovedOutOfBounds)
}

// Evict removes s as having left the world, whatever its position.
func (w *World) Evict(s *sprite.Sprite) bool {
	return w.remove(s, event.RemovedOutOfBounds)
}

// ClearFallen removes every character that left play. Returns the number
// removed.
func (w *World) ClearFallen() int {
	var gone []*sprite.Sprite
	for _, s := range w.set.Dynamic() {
		if w.LeftPlay(s) {
			gone = append(gone, s)
		}
	}
	for _, s := range gone {
		w.remove(s, event.RemovedOutOfBounds)
	}
	return len(gone)
}

// ClearBeyondBoundaries removes every sprite whose box lies fully outside the
// world. Returns the number removed.
func (w *World) ClearBeyondBoundaries() int {
	var gone []*sprite.Sprite
	for _, list := range [][]*sprite.Sprite{w.set.Static(), w.set.Dynamic()} {
		for _, s := range list {
			if w.Outside(s) {
				gone = append(gone, s)
			}
		}
	}
	for _, s := range gone {
		w.remove(s, event.RemovedOutOfBounds)
	}
	if len(gone) > 0 {
		w.log.Debug("cleared sprites beyond boundaries", zap.Int("count", len(gone)))
	}
	return len(gone)
}
