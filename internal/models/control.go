package models

// GlobalScope is the applies_to value a control uses to cover every
// component in the inventory.
const GlobalScope = "global"

// Control describes an already-implemented security control. Controls are
// read-only side input for a refinement run.
type Control struct {
	Name      string           `json:"name" yaml:"name"`
	Category  string           `json:"category,omitempty" yaml:"category,omitempty"`
	Coverage  []StrideCategory `json:"coverage" yaml:"coverage"`
	AppliesTo []string         `json:"applies_to" yaml:"applies_to"`
}

// Covers reports whether the control mitigates the given STRIDE category.
func (c *Control) Covers(category StrideCategory) bool {
	for _, cov := range c.Coverage {
		if cov == category {
			return true
		}
	}
	return false
}

// AppliesToComponent reports whether the control scopes to the given
// canonical component name, either directly or via the global scope.
func (c *Control) AppliesToComponent(canonicalName string) bool {
	for _, target := range c.AppliesTo {
		if target == GlobalScope || target == canonicalName {
			return true
		}
	}
	return false
}

// AppliesDirectly reports whether the control names the component
// explicitly, as opposed to reaching it through the global scope.
func (c *Control) AppliesDirectly(canonicalName string) bool {
	for _, target := range c.AppliesTo {
		if target == canonicalName {
			return true
		}
	}
	return false
}

// IsGlobal reports whether the control applies to every component.
func (c *Control) IsGlobal() bool {
	for _, target := range c.AppliesTo {
		if target == GlobalScope {
			return true
		}
	}
	return false
}
