package system

import (
	"time"

	coresys "github.com/tileworld/engine/internal/core/system"
	"github.com/tileworld/engine/internal/input"
)

// InputSystem advances a scripted intent timeline so the controller samples
// this tick's intents. Phase 0 (Input).
type InputSystem struct {
	script *input.Scripted
}

func NewInputSystem(script *input.Scripted) *InputSystem {
	return &InputSystem{script: script}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(dt time.Duration) {
	if s.script == nil {
		return
	}
	s.script.Advance(dt)
}
