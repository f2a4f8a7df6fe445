package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/tileworld/engine/internal/core/system"
	"github.com/tileworld/engine/internal/world"
)

// BoundarySystem removes characters that fell out of the world or went past
// either side, for anything the controller did not already evict. Sprites
// above the top stay. Phase 3 (PostUpdate).
type BoundarySystem struct {
	world   *world.World
	log     *zap.Logger
	removed int
}

func NewBoundarySystem(w *world.World, log *zap.Logger) *BoundarySystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &BoundarySystem{world: w, log: log}
}

func (s *BoundarySystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *BoundarySystem) Update(_ time.Duration) {
	n := s.world.ClearFallen()
	if n == 0 {
		return
	}
	s.removed += n
	s.log.Debug("swept sprites out of play", zap.String("level", s.world.Level()), zap.Int("count", n))
}

// Removed returns the number of sprites swept so far.
func (s *BoundarySystem) Removed() int { return s.removed }

// CleanupSystem resets the per-tick redraw flags once the frame was drawn.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	world *world.World
}

func NewCleanupSystem(w *world.World) *CleanupSystem {
	return &CleanupSystem{world: w}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	for _, c := range s.world.Characters() {
		c.Redraw = false
	}
	s.world.ClearBackgroundDirty()
}
