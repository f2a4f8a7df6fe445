package world

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/tileworld/engine/internal/core/event"
	"github.com/tileworld/engine/internal/data"
	"github.com/tileworld/engine/internal/grid"
	"github.com/tileworld/engine/internal/spatial"
	"github.com/tileworld/engine/internal/sprite"
)

// ErrInvalidConfig is returned when a world cannot be built from its dimensions.
var ErrInvalidConfig = errors.New("invalid world config")

// Mode is the play/edit switch. Edit freezes characters in place.
type Mode string

const (
	ModePlay Mode = "play"
	ModeEdit Mode = "edit"
)

// Config holds the dimensions of a world, fixed for its lifetime.
type Config struct {
	Level      string
	TileWidth  float64
	TileHeight float64
	Width      int // tiles
	Height     int // tiles
}

func (c Config) validate() error {
	if c.TileWidth <= 0 || c.TileHeight <= 0 {
		return fmt.Errorf("%w: tile size %gx%g", ErrInvalidConfig, c.TileWidth, c.TileHeight)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: world size %dx%d tiles", ErrInvalidConfig, c.Width, c.Height)
	}
	return nil
}

// Factory builds sprites from persisted records. The type registry implements it.
type Factory interface {
	Spawn(rec sprite.Record) (*sprite.Sprite, error)
	Type(name string) (*sprite.Type, bool)
}

// World owns every sprite of one level and the spatial index over them.
// It is driven from a single goroutine.
type World struct {
	cfg     Config
	grid    grid.Index
	set     *spatial.Set
	byID    map[string]*sprite.Sprite
	counter map[string]int
	mode    Mode
	timers  timerWheel
	factory Factory
	bus     *event.Bus
	log     *zap.Logger

	backgroundDirty bool
}

// New builds an empty world. bus may be nil when nobody listens for world events.
func New(cfg Config, factory Factory, bus *event.Bus, log *zap.Logger) (*World, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	g := grid.New(cfg.TileWidth, cfg.TileHeight, cfg.Height)
	return &World{
		cfg:             cfg,
		grid:            g,
		set:             spatial.New(g),
		byID:            make(map[string]*sprite.Sprite),
		counter:         make(map[string]int),
		mode:            ModePlay,
		factory:         factory,
		bus:             bus,
		log:             log,
		backgroundDirty: true,
	}, nil
}

// FromLevel builds a world sized and populated from a stored level.
func FromLevel(lvl *data.Level, factory Factory, bus *event.Bus, log *zap.Logger) (*World, error) {
	w, err := New(Config{
		Level:      lvl.Name,
		TileWidth:  lvl.TileWidth,
		TileHeight: lvl.TileHeight,
		Width:      lvl.Width,
		Height:     lvl.Height,
	}, factory, bus, log)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", lvl.Name, err)
	}
	if err := w.Restore(lvl); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *World) Config() Config      { return w.cfg }
func (w *World) Level() string       { return w.cfg.Level }
func (w *World) Grid() grid.Index    { return w.grid }
func (w *World) TileWidth() float64  { return w.cfg.TileWidth }
func (w *World) TileHeight() float64 { return w.cfg.TileHeight }
func (w *World) Factory() Factory    { return w.factory }
func (w *World) Logger() *zap.Logger { return w.log }

// Width is the world extent in pixels.
func (w *World) Width() float64 { return float64(w.cfg.Width) * w.cfg.TileWidth }

// Height is the world extent in pixels.
func (w *World) Height() float64 { return float64(w.cfg.Height) * w.cfg.TileHeight }

func (w *World) State() Mode { return w.mode }

func (w *World) SetState(m Mode) {
	if m != ModePlay && m != ModeEdit {
		return
	}
	if m != w.mode {
		w.log.Info("world mode changed", zap.String("level", w.cfg.Level), zap.String("mode", string(m)))
	}
	w.mode = m
}

// Editing reports whether the simulation is frozen for editing.
func (w *World) Editing() bool { return w.mode == ModeEdit }

// buildID returns the id a sprite gets when added: the cell of its bottom
// tile for terrain, name.N for characters.
func (w *World) buildID(s *sprite.Sprite) string {
	if s.Kind() == sprite.KindTile {
		cell := w.grid.Cell(s.X, s.Y-s.Height()+w.cfg.TileHeight)
		return strconv.Itoa(cell)
	}
	w.counter[s.Name]++
	return s.Name + "." + strconv.Itoa(w.counter[s.Name])
}

// Add assigns the sprite its id and inserts it. A tile added on an occupied
// cell replaces the tile already there.
func (w *World) Add(s *sprite.Sprite) string {
	if w.set.Contains(s) {
		return s.ID
	}
	s.ID = w.buildID(s)
	if old, ok := w.byID[s.ID]; ok {
		w.remove(old, event.RemovedReplaced)
	}
	w.byID[s.ID] = s
	w.set.Add(s)
	s.Redraw = true
	if s.Static() {
		w.backgroundDirty = true
	}
	w.log.Debug("sprite added", zap.String("id", s.ID), zap.Float64("x", s.X), zap.Float64("y", s.Y))
	return s.ID
}

// Remove takes a sprite out of the world. Removing a non-member is a no-op
// and returns false.
func (w *World) Remove(s *sprite.Sprite) bool {
	return w.remove(s, event.RemovedExplicit)
}

func (w *World) remove(s *sprite.Sprite, reason event.RemovalReason) bool {
	if s == nil || w.byID[s.ID] != s {
		return false
	}
	w.set.Remove(s)
	delete(w.byID, s.ID)
	s.CancelDeferred()
	if s.Static() {
		w.backgroundDirty = true
	}
	w.log.Debug("sprite removed", zap.String("id", s.ID), zap.String("reason", string(reason)))
	w.publish(s, reason)
	return true
}

func (w *World) publish(s *sprite.Sprite, reason event.RemovalReason) {
	if w.bus == nil {
		return
	}
	event.Emit(w.bus, event.SpriteRemoved{ID: s.ID, Name: s.Name, X: s.X, Y: s.Y, Reason: reason})
}

// Bus returns the event bus, nil when the world publishes nothing.
func (w *World) Bus() *event.Bus { return w.bus }

// Move commits a new position and keeps the index current.
// Returns false when the position did not change.
func (w *World) Move(s *sprite.Sprite, x, y float64) bool {
	if s.X == x && s.Y == y {
		return false
	}
	s.X, s.Y = x, y
	if w.set.OnMove(s) && s.Static() {
		w.backgroundDirty = true
	}
	return true
}

// Get returns the sprite with the given id, or nil.
func (w *World) Get(id string) *sprite.Sprite { return w.byID[id] }

// Contains reports whether s is a member of this world.
func (w *World) Contains(s *sprite.Sprite) bool {
	return s != nil && w.byID[s.ID] == s
}

// Len returns the number of sprites in the world.
func (w *World) Len() int { return len(w.byID) }

// Tiles returns the static sprites in insertion order.
func (w *World) Tiles() []*sprite.Sprite { return w.set.Static() }

// Characters returns the dynamic sprites in insertion order, which is also
// the update order. Callers must copy before mutating the world while iterating.
func (w *World) Characters() []*sprite.Sprite { return w.set.Dynamic() }

// Hero returns the first hero in the world, or nil.
func (w *World) Hero() *sprite.Sprite {
	for _, s := range w.set.Dynamic() {
		if s.IsHero() {
			return s
		}
	}
	return nil
}

// Verify checks the spatial index against sprite positions.
func (w *World) Verify() error {
	if err := w.set.Verify(); err != nil {
		return err
	}
	static, dynamic := w.set.Len()
	if static+dynamic != len(w.byID) {
		return fmt.Errorf("index holds %d sprites, world %d", static+dynamic, len(w.byID))
	}
	return nil
}

// BackgroundDirty reports whether terrain changed since the last
// ClearBackgroundDirty.
func (w *World) BackgroundDirty() bool { return w.backgroundDirty }

func (w *World) ClearBackgroundDirty() { w.backgroundDirty = false }
