package linear

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed mapping.yaml
var defaultMapping []byte

// Mapping holds the static lookup tables between Linear values and local
// task status, project status and priority.
type Mapping struct {
	StateNames    map[string]string `yaml:"state_names"`
	StateTypes    map[string]string `yaml:"state_types"`
	Priorities    map[int]string    `yaml:"priorities"`
	ProjectStates map[string]string `yaml:"project_states"`
}

// DefaultMapping returns the built-in tables.
func DefaultMapping() *Mapping {
	m, err := parseMapping(defaultMapping)
	if err != nil {
		panic(fmt.Sprintf("linear: embedded mapping is invalid: %v", err))
	}
	return m
}

// LoadMapping returns the built-in tables overlaid with the entries of the
// YAML file at path. An empty path returns the defaults.
func LoadMapping(path string) (*Mapping, error) {
	m := DefaultMapping()
	if path == "" {
		return m, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read linear mapping: %w", err)
	}
	over, err := parseMapping(b)
	if err != nil {
		return nil, fmt.Errorf("parse linear mapping %s: %w", path, err)
	}
	for k, v := range over.StateNames {
		m.StateNames[k] = v
	}
	for k, v := range over.StateTypes {
		m.StateTypes[k] = v
	}
	for k, v := range over.Priorities {
		m.Priorities[k] = v
	}
	for k, v := range over.ProjectStates {
		m.ProjectStates[k] = v
	}
	return m, nil
}

func parseMapping(b []byte) (*Mapping, error) {
	var raw Mapping
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	m := &Mapping{
		StateNames:    map[string]string{},
		StateTypes:    map[string]string{},
		Priorities:    map[int]string{},
		ProjectStates: map[string]string{},
	}
	for k, v := range raw.StateNames {
		m.StateNames[key(k)] = v
	}
	for k, v := range raw.StateTypes {
		m.StateTypes[key(k)] = v
	}
	for k, v := range raw.Priorities {
		m.Priorities[k] = v
	}
	for k, v := range raw.ProjectStates {
		m.ProjectStates[key(k)] = v
	}
	return m, nil
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TaskStatus maps a Linear workflow state onto a local task status, trying
// the state name first and the state type second.
func (m *Mapping) TaskStatus(stateName, stateType string) (string, bool) {
	if v, ok := m.StateNames[key(stateName)]; ok {
		return v, true
	}
	if v, ok := m.StateTypes[key(stateType)]; ok {
		return v, true
	}
	return "", false
}

// Priority maps a Linear priority onto a local priority.
func (m *Mapping) Priority(p int) (string, bool) {
	v, ok := m.Priorities[p]
	return v, ok
}

// LinearPriority maps a local priority back to Linear's numeric scale.
// Unknown values map to 0 (no priority).
func (m *Mapping) LinearPriority(local string) int {
	best := -1
	for k, v := range m.Priorities {
		if v == local && (best < 0 || k < best) {
			best = k
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// ProjectStatus maps a Linear project state onto a local project status.
func (m *Mapping) ProjectStatus(state string) (string, bool) {
	v, ok := m.ProjectStates[key(state)]
	return v, ok
}

// LinearProjectState maps a local project status back to a Linear project
// state. When several states map to the same status the later one in
// Linear's lifecycle wins (planned over backlog).
func (m *Mapping) LinearProjectState(local string) string {
	order := []string{"backlog", "planned", "started", "paused", "completed", "canceled"}
	out := ""
	for _, s := range order {
		if m.ProjectStates[s] == local {
			out = s
		}
	}
	if out != "" {
		return out
	}
	for k, v := range m.ProjectStates {
		if v == local {
			return k
		}
	}
	return ""
}

// PickState chooses the workflow state to send for a local task status.
// A state whose name maps to the status is preferred over one that only
// matches by type.
func (m *Mapping) PickState(states []WorkflowState, status string) (WorkflowState, bool) {
	for _, st := range states {
		if v, ok := m.StateNames[key(st.Name)]; ok && v == status {
			return st, true
		}
	}
	for _, st := range states {
		if v, ok := m.StateTypes[key(st.Type)]; ok && v == status {
			return st, true
		}
	}
	return WorkflowState{}, false
}
