package dependency

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Graph holds the directed depends_on relationships between compose
// services. The rollback core uses it only to sequence the start phase:
// dependencies start before their dependents. Stops remain unordered, all
// services are stopped together.
type Graph struct {
	// Services maps a service to the services it depends on.
	Services map[string][]string
}

// NewGraphFromComposeFile parses depends_on entries out of a compose file.
// Both the list form and the condition-map form are understood.
func NewGraphFromComposeFile(composeFile string) (*Graph, error) {
	data, err := os.ReadFile(composeFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}
	return NewGraphFromComposeBytes(data)
}

// NewGraphFromComposeBytes builds the graph from raw compose YAML.
func NewGraphFromComposeBytes(data []byte) (*Graph, error) {
	var compose struct {
		Services map[string]struct {
			DependsOn interface{} `yaml:"depends_on"`
		} `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &compose); err != nil {
		return nil, fmt.Errorf("failed to unmarshal compose file: %w", err)
	}

	graph := &Graph{Services: make(map[string][]string)}
	for svc, def := range compose.Services {
		var deps []string
		switch v := def.DependsOn.(type) {
		case []interface{}:
			for _, dep := range v {
				if depStr, ok := dep.(string); ok {
					deps = append(deps, depStr)
				}
			}
		case map[string]interface{}:
			for dep := range v {
				deps = append(deps, dep)
			}
		}
		graph.Services[svc] = deps
	}
	return graph, nil
}

// StartOrder returns the services topologically sorted so every dependency
// precedes its dependents, restricted to the requested set. Dependencies
// outside the set are still visited for ordering but not returned. A cycle
// is an error.
func (g *Graph) StartOrder(services []string) ([]string, error) {
	requested := make(map[string]bool, len(services))
	for _, svc := range services {
		requested[svc] = true
	}

	visited := make(map[string]bool)
	tempMark := make(map[string]bool)
	var result []string
	var visit func(string) error

	visit = func(n string) error {
		if tempMark[n] {
			return fmt.Errorf("circular dependency detected at service: %s", n)
		}
		if !visited[n] {
			tempMark[n] = true
			// Sort dependencies for deterministic output
			deps := append([]string{}, g.Services[n]...)
			sort.Strings(deps)
			for _, dep := range deps {
				if err := visit(dep); err != nil {
					return err
				}
			}
			tempMark[n] = false
			visited[n] = true
			if requested[n] {
				result = append(result, n)
			}
		}
		return nil
	}

	// Sort input services for deterministic output
	input := append([]string{}, services...)
	sort.Strings(input)
	for _, svc := range input {
		if err := visit(svc); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Dependencies returns the direct depends_on entries for a service.
func (g *Graph) Dependencies(service string) []string {
	return append([]string(nil), g.Services[service]...)
}
