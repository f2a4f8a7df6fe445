package system

import (
	"time"

	coresys "github.com/tileworld/engine/internal/core/system"
	"github.com/tileworld/engine/internal/world"
)

// TimerSystem advances the world clock and fires due timeouts. The world
// ignores the advance while editing. Phase 1 (PreUpdate).
type TimerSystem struct {
	world *world.World
	fired int
}

func NewTimerSystem(w *world.World) *TimerSystem {
	return &TimerSystem{world: w}
}

func (s *TimerSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *TimerSystem) Update(dt time.Duration) {
	s.fired += s.world.AdvanceTimers(dt)
}

// Fired returns the number of timeouts run so far.
func (s *TimerSystem) Fired() int { return s.fired }
