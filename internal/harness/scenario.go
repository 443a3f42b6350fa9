package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a multi-replica conformance scenario: a set of replicas,
// a step sequence of operations and sync points, and final-state
// expectations for every replica that matters.
type Scenario struct {
	// Name uniquely identifies this scenario; it doubles as the golden
	// snapshot file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Replicas lists the client ids participating in the scenario. Each id
	// becomes an independent document replica.
	Replicas []uint64 `yaml:"replicas"`

	// Steps is the ordered mix of operations and sync exchanges.
	Steps []Step `yaml:"steps"`

	// Expect validates final rendered state after the last step.
	Expect []Expectation `yaml:"expect"`
}

// Step is either one operation on one replica, or a sync point. Exactly one
// of the two shapes must be filled in.
type Step struct {
	// Sync lists replica ids to exchange updates between, pairwise in list
	// order and in both directions. When set, all other fields must be zero.
	Sync []uint64 `yaml:"sync,omitempty"`

	// Replica is the client id the operation runs on.
	Replica uint64 `yaml:"replica,omitempty"`

	// Type is the container type: text, array, map or xml.
	Type string `yaml:"type,omitempty"`

	// Container is the root container name.
	Container string `yaml:"container,omitempty"`

	// Op names the operation; the valid set depends on Type.
	Op string `yaml:"op,omitempty"`

	// Index and Length address sequence operations.
	Index  int `yaml:"index,omitempty"`
	Length int `yaml:"length,omitempty"`

	// Text carries text to insert, or the tag for xml element inserts.
	Text string `yaml:"text,omitempty"`

	// Key and Value address map sets/removes and xml attributes.
	Key   string `yaml:"key,omitempty"`
	Value string `yaml:"value,omitempty"`

	// Values carries the items of an array insert.
	Values []string `yaml:"values,omitempty"`
}

// Expectation is a final-state assertion against one replica's container.
type Expectation struct {
	Replica   uint64 `yaml:"replica"`
	Type      string `yaml:"type"`
	Container string `yaml:"container"`

	// Equals is the expected render: the visible text for text, the XML
	// rendering for xml, sorted key=value pairs for map, comma-joined items
	// for array.
	Equals string `yaml:"equals"`
}

// Container types.
const (
	TypeText  = "text"
	TypeArray = "array"
	TypeMap   = "map"
	TypeXml   = "xml"
)

// LoadScenario reads and parses a scenario YAML file. Returns an error if
// the file doesn't exist, is malformed, contains unknown fields (typos), or
// is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Replicas) == 0 {
		return fmt.Errorf("replicas list is required and must be non-empty")
	}
	known := make(map[uint64]bool, len(s.Replicas))
	for _, r := range s.Replicas {
		if r == 0 {
			return fmt.Errorf("replica id 0 is reserved")
		}
		if known[r] {
			return fmt.Errorf("duplicate replica id %d", r)
		}
		known[r] = true
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if err := validateStep(i, &step, known); err != nil {
			return err
		}
	}

	if len(s.Expect) == 0 {
		return fmt.Errorf("expect list is required and must be non-empty")
	}
	for i, exp := range s.Expect {
		if !known[exp.Replica] {
			return fmt.Errorf("expect[%d]: unknown replica %d", i, exp.Replica)
		}
		if err := validType(exp.Type); err != nil {
			return fmt.Errorf("expect[%d]: %w", i, err)
		}
		if exp.Container == "" {
			return fmt.Errorf("expect[%d]: container is required", i)
		}
	}
	return nil
}

func validateStep(i int, step *Step, known map[uint64]bool) error {
	if len(step.Sync) > 0 {
		if step.Replica != 0 || step.Type != "" || step.Op != "" {
			return fmt.Errorf("steps[%d]: sync steps carry no operation fields", i)
		}
		if len(step.Sync) < 2 {
			return fmt.Errorf("steps[%d]: sync needs at least two replicas", i)
		}
		for _, r := range step.Sync {
			if !known[r] {
				return fmt.Errorf("steps[%d]: unknown replica %d in sync", i, r)
			}
		}
		return nil
	}

	if !known[step.Replica] {
		return fmt.Errorf("steps[%d]: unknown replica %d", i, step.Replica)
	}
	if err := validType(step.Type); err != nil {
		return fmt.Errorf("steps[%d]: %w", i, err)
	}
	if step.Container == "" {
		return fmt.Errorf("steps[%d]: container is required", i)
	}

	valid := map[string][]string{
		TypeText:  {"insert", "remove"},
		TypeArray: {"insert", "remove"},
		TypeMap:   {"set", "remove"},
		TypeXml:   {"element", "attr", "remove"},
	}
	for _, op := range valid[step.Type] {
		if step.Op == op {
			return nil
		}
	}
	return fmt.Errorf("steps[%d]: op %q not valid for type %q", i, step.Op, step.Type)
}

func validType(t string) error {
	switch t {
	case TypeText, TypeArray, TypeMap, TypeXml:
		return nil
	}
	return fmt.Errorf("unknown container type %q", t)
}
