// Package scenario defines YAML simulation scenarios: a world spec to run
// and assertions over the finished run.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is one simulation test case.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// World is the path to the CUE world spec directory, relative to the
	// scenario file.
	World string `yaml:"world"`

	// Assertions validate the finished run.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a finished run.
type Assertion struct {
	// Type selects the assertion:
	//   - "contracts": Company won exactly Count contracts
	//   - "deliveries": Company fulfilled exactly Count contracts
	//   - "vessel_at": Vessel ends the run moored at Port
	//   - "event_count": events of Kind occurred exactly Count times
	Type string `yaml:"type"`

	Company string `yaml:"company,omitempty"`
	Vessel  string `yaml:"vessel,omitempty"`
	Port    string `yaml:"port,omitempty"`
	Kind    string `yaml:"kind,omitempty"`
	Count   int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertContracts  = "contracts"
	AssertDeliveries = "deliveries"
	AssertVesselAt   = "vessel_at"
	AssertEventCount = "event_count"
)

// Load reads and parses a scenario file. The world path is resolved
// relative to the scenario file's directory. Unknown YAML fields are
// rejected, so typos fail loudly.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if !filepath.IsAbs(sc.World) && sc.World != "" {
		sc.World = filepath.Join(filepath.Dir(path), sc.World)
	}

	if err := validate(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

func validate(sc *Scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if sc.Description == "" {
		return fmt.Errorf("description is required")
	}
	if sc.World == "" {
		return fmt.Errorf("world is required")
	}
	if info, err := os.Stat(sc.World); err != nil || !info.IsDir() {
		return fmt.Errorf("world directory not found: %s", sc.World)
	}

	for i, a := range sc.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertContracts, AssertDeliveries:
		if a.Company == "" {
			return fmt.Errorf("assertions[%d]: company is required for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertVesselAt:
		if a.Vessel == "" || a.Port == "" {
			return fmt.Errorf("assertions[%d]: vessel and port are required for vessel_at", index)
		}
	case AssertEventCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
