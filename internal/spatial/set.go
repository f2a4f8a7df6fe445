package spatial

import (
	"fmt"
	"math"
	"slices"

	"github.com/tileworld/engine/internal/grid"
	"github.com/tileworld/engine/internal/sprite"
)

// DefaultRadius is the neighbourhood, in cells, scanned around a query point.
// Sprites are bucketed by their top-left corner, so a point near the bottom
// of a two-tile-tall character is two rows away from its bucket.
const DefaultRadius = 2

// bucket is one subset (static or dynamic) with its cell lookup table.
// members keeps insertion order; lookup maps cell id → sprites in that cell.
type bucket struct {
	members []*sprite.Sprite
	lookup  map[int][]*sprite.Sprite
	cells   map[*sprite.Sprite]int
}

func newBucket() *bucket {
	return &bucket{
		lookup: make(map[int][]*sprite.Sprite),
		cells:  make(map[*sprite.Sprite]int),
	}
}

func (b *bucket) add(s *sprite.Sprite, cell int) {
	b.members = append(b.members, s)
	b.lookup[cell] = append(b.lookup[cell], s)
	b.cells[s] = cell
}

func (b *bucket) remove(s *sprite.Sprite) bool {
	cell, ok := b.cells[s]
	if !ok {
		return false
	}
	b.unlink(s, cell)
	delete(b.cells, s)
	if i := slices.Index(b.members, s); i >= 0 {
		b.members = slices.Delete(b.members, i, i+1)
	}
	return true
}

func (b *bucket) unlink(s *sprite.Sprite, cell int) {
	list := b.lookup[cell]
	if i := slices.Index(list, s); i >= 0 {
		list = slices.Delete(list, i, i+1)
	}
	if len(list) == 0 {
		delete(b.lookup, cell)
	} else {
		b.lookup[cell] = list
	}
}

// move relinks s when its cell changed. Returns true on a cell change.
func (b *bucket) move(s *sprite.Sprite, cell int) bool {
	old, ok := b.cells[s]
	if !ok || old == cell {
		return false
	}
	b.unlink(s, old)
	b.lookup[cell] = append(b.lookup[cell], s)
	b.cells[s] = cell
	return true
}

// Set partitions sprites into a static subset (terrain, one per cell, rarely
// moves) and a dynamic subset (characters, moved every tick), each indexed by
// grid cell. Accessed only from the simulation goroutine, no locks.
type Set struct {
	grid    grid.Index
	radius  int
	static  *bucket
	dynamic *bucket
}

func New(g grid.Index) *Set {
	return &Set{
		grid:    g,
		radius:  DefaultRadius,
		static:  newBucket(),
		dynamic: newBucket(),
	}
}

func (s *Set) Grid() grid.Index { return s.grid }

// Radius returns the current neighbourhood radius in cells.
func (s *Set) Radius() int { return s.radius }

// cellAt returns the bucket cell of a point. Rows are clamped to the grid,
// so a sprite poking out above the top or below the bottom is kept in the
// edge row of its own column instead of aliasing into a neighbouring one.
func (s *Set) cellAt(x, y float64) int {
	row := min(max(s.grid.Row(y), 0), s.grid.Rows-1)
	return s.grid.CellOf(s.grid.Col(x), row)
}

func (s *Set) bucketFor(sp *sprite.Sprite) *bucket {
	if sp.Static() {
		return s.static
	}
	return s.dynamic
}

// widen grows the scan radius so a sprite larger than the default
// neighbourhood can still be found from any point of its box.
func (s *Set) widen(sp *sprite.Sprite) {
	cols := int(math.Ceil(sp.Width() / s.grid.TileWidth))
	rows := int(math.Ceil(sp.Height() / s.grid.TileHeight))
	s.radius = max(s.radius, cols, rows)
}

// Add inserts a sprite in its subset and cell bucket.
func (s *Set) Add(sp *sprite.Sprite) {
	b := s.bucketFor(sp)
	if _, ok := b.cells[sp]; ok {
		return
	}
	s.widen(sp)
	b.add(sp, s.cellAt(sp.X, sp.Y))
}

// Remove takes a sprite out of its subset. Removing a non-member is a no-op.
func (s *Set) Remove(sp *sprite.Sprite) bool {
	return s.bucketFor(sp).remove(sp)
}

// OnMove recomputes the cell of a sprite after its position changed.
func (s *Set) OnMove(sp *sprite.Sprite) bool {
	return s.bucketFor(sp).move(sp, s.cellAt(sp.X, sp.Y))
}

func (s *Set) Contains(sp *sprite.Sprite) bool {
	_, ok := s.bucketFor(sp).cells[sp]
	return ok
}

// Len returns the number of static and dynamic members.
func (s *Set) Len() (static, dynamic int) {
	return len(s.static.members), len(s.dynamic.members)
}

// Static returns the static members in insertion order. The slice is shared.
func (s *Set) Static() []*sprite.Sprite { return s.static.members }

// Dynamic returns the dynamic members in insertion order. The slice is shared.
func (s *Set) Dynamic() []*sprite.Sprite { return s.dynamic.members }

// Reset rebuilds both subsets from scratch.
func (s *Set) Reset(sprites []*sprite.Sprite) {
	s.static = newBucket()
	s.dynamic = newBucket()
	s.radius = DefaultRadius
	for _, sp := range sprites {
		s.Add(sp)
	}
}

// Filter narrows a query. Zero values match everything.
type Filter struct {
	Kind      sprite.Kind
	Exclude   *sprite.Sprite
	Collision bool
}

func (f Filter) match(sp *sprite.Sprite) bool {
	if sp == f.Exclude {
		return false
	}
	if f.Kind != "" && sp.Kind() != f.Kind {
		return false
	}
	if f.Collision && !sp.Collision {
		return false
	}
	return true
}

// QueryTileAt is the O(1) terrain lookup: the static sprite bucketed in the
// exact cell of (x, y) whose box contains the point.
func (s *Set) QueryTileAt(x, y float64) *sprite.Sprite {
	return s.tileAt(x, y, Filter{Kind: sprite.KindTile})
}

func (s *Set) tileAt(x, y float64, f Filter) *sprite.Sprite {
	for _, sp := range s.static.lookup[s.cellAt(x, y)] {
		if f.match(sp) && sp.Overlaps(x, y) {
			return sp
		}
	}
	return nil
}

// QueryAt returns the first sprite containing (x, y). Dynamic sprites are
// scanned in the neighbourhood of the point first, then static sprites in its
// exact cell. A tile-only filter skips the dynamic scan.
func (s *Set) QueryAt(x, y float64, f Filter) *sprite.Sprite {
	if f.Kind == sprite.KindTile {
		return s.tileAt(x, y, f)
	}
	var found *sprite.Sprite
	s.scanDynamic(x, y, x, y, func(sp *sprite.Sprite) bool {
		if f.match(sp) && sp.Overlaps(x, y) {
			found = sp
			return false
		}
		return true
	})
	if found != nil || f.Kind == sprite.KindCharacter {
		return found
	}
	return s.tileAt(x, y, f)
}

// QueryAllAt returns every sprite containing (x, y), dynamic ones first.
func (s *Set) QueryAllAt(x, y float64, f Filter) []*sprite.Sprite {
	var result []*sprite.Sprite
	if f.Kind != sprite.KindTile {
		s.scanDynamic(x, y, x, y, func(sp *sprite.Sprite) bool {
			if f.match(sp) && sp.Overlaps(x, y) {
				result = append(result, sp)
			}
			return true
		})
	}
	if f.Kind == sprite.KindCharacter {
		return result
	}
	for _, sp := range s.static.lookup[s.cellAt(x, y)] {
		if f.match(sp) && sp.Overlaps(x, y) {
			result = append(result, sp)
		}
	}
	return result
}

// Scan visits the sprites bucketed in the neighbourhood of the rectangle:
// dynamic first, then static, each in column-major cell order. fn returns
// false to stop.
func (s *Set) Scan(x1, y1, x2, y2 float64, f Filter, fn func(*sprite.Sprite) bool) {
	stopped := false
	visit := func(sp *sprite.Sprite) bool {
		if !f.match(sp) {
			return true
		}
		if !fn(sp) {
			stopped = true
			return false
		}
		return true
	}
	if f.Kind != sprite.KindTile {
		s.scanDynamic(x1, y1, x2, y2, visit)
	}
	if stopped || f.Kind == sprite.KindCharacter {
		return
	}
	s.scanBucket(s.static, x1, y1, x2, y2, s.radius, visit)
}

func (s *Set) scanDynamic(x1, y1, x2, y2 float64, fn func(*sprite.Sprite) bool) {
	s.scanBucket(s.dynamic, x1, y1, x2, y2, s.radius, fn)
}

func (s *Set) scanBucket(b *bucket, x1, y1, x2, y2 float64, radius int, fn func(*sprite.Sprite) bool) {
	if len(b.members) == 0 {
		return
	}
	colFrom, colTo, rowFrom, rowTo := s.grid.Span(x1, y1, x2, y2)
	for col := colFrom - radius; col <= colTo+radius; col++ {
		for row := rowFrom - radius; row <= rowTo+radius; row++ {
			if row < 0 || row >= s.grid.Rows {
				continue
			}
			for _, sp := range b.lookup[s.grid.CellOf(col, row)] {
				if !fn(sp) {
					return
				}
			}
		}
	}
}

// Each visits the sprites bucketed in an inclusive column/row range with no
// neighbourhood padding. Used for draw culling, one contiguous id range per column.
func (s *Set) Each(static bool, colFrom, colTo, rowFrom, rowTo int, fn func(*sprite.Sprite)) {
	b := s.dynamic
	if static {
		b = s.static
	}
	rowFrom = max(rowFrom, 0)
	rowTo = min(rowTo, s.grid.Rows-1)
	for col := colFrom; col <= colTo; col++ {
		for row := rowFrom; row <= rowTo; row++ {
			for _, sp := range b.lookup[s.grid.CellOf(col, row)] {
				fn(sp)
			}
		}
	}
}

// Verify checks that every member sits in exactly one cell bucket and that
// the bucket matches its current position.
func (s *Set) Verify() error {
	for name, b := range map[string]*bucket{"static": s.static, "dynamic": s.dynamic} {
		seen := make(map[*sprite.Sprite]int, len(b.members))
		for cell, list := range b.lookup {
			for _, sp := range list {
				seen[sp]++
				if want := s.cellAt(sp.X, sp.Y); want != cell {
					return fmt.Errorf("%s sprite %s in cell %d, position says %d", name, sp.ID, cell, want)
				}
			}
		}
		for _, sp := range b.members {
			if seen[sp] != 1 {
				return fmt.Errorf("%s sprite %s found in %d cells", name, sp.ID, seen[sp])
			}
		}
		if len(seen) != len(b.members) {
			return fmt.Errorf("%s lookup holds %d sprites, %d members", name, len(seen), len(b.members))
		}
	}
	return nil
}
