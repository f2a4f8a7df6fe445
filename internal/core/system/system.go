package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: sample input sources
	PhasePreUpdate               // 1: deliver last tick's events, fire world timers
	PhaseUpdate                  // 2: character motion and collision
	PhasePostUpdate              // 3: out-of-bounds sweep
	PhaseOutput                  // 4: redraw bookkeeping
	PhasePersist                 // 5: autosave
	PhaseCleanup                 // 6: reset per-tick flags
)

var phaseNames = [...]string{"input", "pre_update", "update", "post_update", "output", "persist", "cleanup"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// System is one stage of the tick pipeline.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
