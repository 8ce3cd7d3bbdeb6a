package simulation

import "fmt"

// SimulationConfig is the descriptor a simulation ships as simulation.yaml
type SimulationConfig struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Version     string      `yaml:"version"`
	Category    string      `yaml:"category"`
	Parameters  []Parameter `yaml:"parameters"`
}

// Parameter is one prompted value. Names double as config override keys.
type Parameter struct {
	Name        string      `yaml:"name"`
	Type        string      `yaml:"type"` // integer, float, string, duration, boolean
	Description string      `yaml:"description"`
	Default     interface{} `yaml:"default"`
	Required    bool        `yaml:"required"`
	Min         interface{} `yaml:"min,omitempty"`
	Max         interface{} `yaml:"max,omitempty"`
	Options     []string    `yaml:"options,omitempty"`
}

var parameterTypes = map[string]bool{
	"integer":  true,
	"float":    true,
	"string":   true,
	"duration": true,
	"boolean":  true,
}

// Validate rejects descriptors the prompt layer cannot handle
func (c SimulationConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("simulation name is required")
	}
	seen := make(map[string]bool, len(c.Parameters))
	for _, p := range c.Parameters {
		if p.Name == "" {
			return fmt.Errorf("simulation %s: parameter name is required", c.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("simulation %s: duplicate parameter %s", c.Name, p.Name)
		}
		seen[p.Name] = true
		if !parameterTypes[p.Type] {
			return fmt.Errorf("simulation %s: parameter %s has unsupported type %q", c.Name, p.Name, p.Type)
		}
		if len(p.Options) > 0 && p.Type != "string" {
			return fmt.Errorf("simulation %s: options are only valid on string parameter %s", c.Name, p.Name)
		}
	}
	return nil
}
