package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tileworld/engine/internal/sprite"
)

// TypeSpec is the authored configuration of one sprite type, loaded from YAML.
type TypeSpec struct {
	Name           string                       `yaml:"name"`
	Kind           sprite.Kind                  `yaml:"kind"`
	Width          float64                      `yaml:"width"`
	Height         float64                      `yaml:"height"`
	Static         bool                         `yaml:"static"`
	Collision      bool                         `yaml:"collision"`
	Padding        sprite.Padding               `yaml:"padding,omitempty"`
	State          string                       `yaml:"state"`
	Behavior       sprite.Behavior              `yaml:"behavior"`
	Policy         string                       `yaml:"policy"` // base, hero, mushroom, turtle, spike, tile
	Script         string                       `yaml:"script,omitempty"`
	Shelled        bool                         `yaml:"shelled,omitempty"`
	Spiky          bool                         `yaml:"spiky,omitempty"`
	BounceVelocity float64                      `yaml:"bounce_velocity,omitempty"`
	SaveMotion     bool                         `yaml:"save_motion,omitempty"`
	Animations     map[string]*sprite.Animation `yaml:"animations"`
}

type typeListFile struct {
	Types []TypeSpec `yaml:"types"`
}

// TypeTable holds sprite type specs indexed by name, in file order.
type TypeTable struct {
	specs map[string]*TypeSpec
	order []string
}

func newTypeTable(specs []TypeSpec) (*TypeTable, error) {
	t := &TypeTable{specs: make(map[string]*TypeSpec, len(specs))}
	for i := range specs {
		spec := &specs[i]
		if spec.Name == "" {
			return nil, fmt.Errorf("type #%d has no name", i)
		}
		if _, dup := t.specs[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate type %q", spec.Name)
		}
		t.specs[spec.Name] = spec
		t.order = append(t.order, spec.Name)
	}
	return t, nil
}

// LoadTypeTable loads sprite type specs from a YAML file.
func LoadTypeTable(path string) (*TypeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sprite_types: %w", err)
	}
	return ParseTypeTable(data)
}

func ParseTypeTable(data []byte) (*TypeTable, error) {
	var f typeListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sprite_types: %w", err)
	}
	t, err := newTypeTable(f.Types)
	if err != nil {
		return nil, fmt.Errorf("parse sprite_types: %w", err)
	}
	return t, nil
}

// Save writes the table as YAML.
func (t *TypeTable) Save(path string) error {
	f := typeListFile{Types: make([]TypeSpec, 0, len(t.order))}
	for _, name := range t.order {
		f.Types = append(f.Types, *t.specs[name])
	}
	out, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encode sprite_types: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write sprite_types: %w", err)
	}
	return nil
}

// Get returns the spec for a type name, or nil.
func (t *TypeTable) Get(name string) *TypeSpec {
	return t.specs[name]
}

// Names returns the type names in load order.
func (t *TypeTable) Names() []string {
	return append([]string(nil), t.order...)
}

func (t *TypeTable) Count() int {
	return len(t.specs)
}
