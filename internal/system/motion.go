package system

import (
	"time"

	"github.com/tileworld/engine/internal/character"
	coresys "github.com/tileworld/engine/internal/core/system"
)

// MotionSystem moves every character once. Phase 2 (Update).
type MotionSystem struct {
	ctrl *character.Controller
}

func NewMotionSystem(ctrl *character.Controller) *MotionSystem {
	return &MotionSystem{ctrl: ctrl}
}

func (s *MotionSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MotionSystem) Update(dt time.Duration) {
	s.ctrl.Tick(dt)
}
