package models

import "fmt"

// ComponentType classifies an inventory component in data-flow-diagram terms.
type ComponentType string

// Component types.
const (
	ComponentExternalEntity ComponentType = "external_entity"
	ComponentProcess        ComponentType = "process"
	ComponentDataStore      ComponentType = "data_store"
	ComponentDataFlow       ComponentType = "data_flow"
)

// Component is a single entry in the system component inventory. It is
// read-only for the duration of a refinement run.
type Component struct {
	CanonicalName string        `json:"canonical_name" yaml:"canonical_name"`
	Type          ComponentType `json:"type" yaml:"type"`
	Description   string        `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate checks that a component record has the fields the pipeline needs.
func (c *Component) Validate() error {
	if c.CanonicalName == "" {
		return fmt.Errorf("component missing required field: canonical_name")
	}
	switch c.Type {
	case ComponentExternalEntity, ComponentProcess, ComponentDataStore, ComponentDataFlow:
		return nil
	default:
		return fmt.Errorf("component %s has invalid type: %q", c.CanonicalName, c.Type)
	}
}

// ComponentIndex maps canonical names to components for constant-time lookup
// during risk calculation and statement rendering.
func ComponentIndex(inventory []Component) map[string]Component {
	idx := make(map[string]Component, len(inventory))
	for _, c := range inventory {
		idx[c.CanonicalName] = c
	}
	return idx
}
