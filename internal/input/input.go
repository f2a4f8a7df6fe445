package input

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Source supplies the intents a hero reads each tick.
type Source interface {
	LeftPressed() bool
	RightPressed() bool
	JumpPressed() bool
	RunPressed() bool
}

// Snapshot is a fixed set of intents. It is also the value the controller
// compares between ticks to detect presses and releases.
type Snapshot struct {
	Left  bool `yaml:"left,omitempty"`
	Right bool `yaml:"right,omitempty"`
	Jump  bool `yaml:"jump,omitempty"`
	Run   bool `yaml:"run,omitempty"`
}

func (s Snapshot) LeftPressed() bool  { return s.Left }
func (s Snapshot) RightPressed() bool { return s.Right }
func (s Snapshot) JumpPressed() bool  { return s.Jump }
func (s Snapshot) RunPressed() bool   { return s.Run }

// Read samples a source. A nil source reads as nothing pressed.
func Read(src Source) Snapshot {
	if src == nil {
		return Snapshot{}
	}
	return Snapshot{
		Left:  src.LeftPressed(),
		Right: src.RightPressed(),
		Jump:  src.JumpPressed(),
		Run:   src.RunPressed(),
	}
}

// Step holds the intents from At until the next step.
type Step struct {
	At       time.Duration `yaml:"at"`
	Snapshot `yaml:",inline"`
}

// Scripted replays a timeline of intents, used by the headless driver and tests.
type Scripted struct {
	steps   []Step
	elapsed time.Duration
	cur     Snapshot
}

func NewScripted(steps ...Step) *Scripted {
	s := &Scripted{steps: append([]Step(nil), steps...)}
	sort.SliceStable(s.steps, func(i, j int) bool { return s.steps[i].At < s.steps[j].At })
	s.seek()
	return s
}

type scriptFile struct {
	Steps []Step `yaml:"steps"`
}

// LoadScript reads a YAML timeline of intents.
func LoadScript(path string) (*Scripted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input script: %w", err)
	}
	var f scriptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse input script: %w", err)
	}
	return NewScripted(f.Steps...), nil
}

// Advance moves the timeline forward by dt.
func (s *Scripted) Advance(dt time.Duration) {
	s.elapsed += dt
	s.seek()
}

func (s *Scripted) seek() {
	s.cur = Snapshot{}
	for _, st := range s.steps {
		if st.At > s.elapsed {
			break
		}
		s.cur = st.Snapshot
	}
}

// Done reports whether the last step has been reached.
func (s *Scripted) Done() bool {
	return len(s.steps) == 0 || s.steps[len(s.steps)-1].At <= s.elapsed
}

func (s *Scripted) LeftPressed() bool  { return s.cur.Left }
func (s *Scripted) RightPressed() bool { return s.cur.Right }
func (s *Scripted) JumpPressed() bool  { return s.cur.Jump }
func (s *Scripted) RunPressed() bool   { return s.cur.Run }
