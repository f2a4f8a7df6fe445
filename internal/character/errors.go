package character

import (
	"fmt"

	"github.com/tileworld/engine/internal/sprite"
)

// InvariantError reports a state machine bug: a grounded idle sprite with
// horizontal velocity and no input explaining it.
type InvariantError struct {
	ID       string
	State    sprite.State
	Velocity float64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("sprite %s is %s with velocity %g and no direction pressed", e.ID, e.State, e.Velocity)
}
