package dagflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options are used to configure a workflow.
type Options struct {
	Name        string         `json:"name" yaml:"name"`
	Steps       []*Step        `json:"steps" yaml:"steps"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	State       map[string]any `json:"state,omitempty" yaml:"state,omitempty"`
}

// Workflow defines a repeatable process as a dependency graph of steps.
// Workflows are immutable once built; validation happens up front, so a
// Workflow in hand is always executable.
type Workflow struct {
	name         string
	description  string
	dag          *DAG
	initialState map[string]any
}

// New returns a new Workflow configured with the given options. The step
// set is validated as a DAG; validation failures come back as the typed
// errors documented on NewDAG.
func New(opts Options) (*Workflow, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("workflow name required")
	}
	dag, err := NewDAG(opts.Steps)
	if err != nil {
		return nil, fmt.Errorf("workflow validation failed: %w", err)
	}
	return &Workflow{
		name:         opts.Name,
		description:  opts.Description,
		dag:          dag,
		initialState: opts.State,
	}, nil
}

// Name returns the workflow name
func (w *Workflow) Name() string {
	return w.name
}

// Description returns the workflow description
func (w *Workflow) Description() string {
	return w.description
}

// Steps returns the workflow steps in declaration order
func (w *Workflow) Steps() []*Step {
	return w.dag.Steps()
}

// DAG returns the workflow's validated dependency graph
func (w *Workflow) DAG() *DAG {
	return w.dag
}

// InitialState returns the workflow initial state
func (w *Workflow) InitialState() map[string]any {
	return w.initialState
}

// GetStep returns a step by id
func (w *Workflow) GetStep(id string) (*Step, bool) {
	return w.dag.Step(id)
}

// LoadFile loads a workflow from a YAML file
func LoadFile(path string) (*Workflow, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	var opts Options
	if err := yaml.Unmarshal(yamlData, &opts); err != nil {
		return nil, fmt.Errorf("failed to parse workflow file: %w", err)
	}
	return New(opts)
}

// LoadString loads a workflow from a YAML string
func LoadString(data string) (*Workflow, error) {
	var opts Options
	if err := yaml.Unmarshal([]byte(data), &opts); err != nil {
		return nil, fmt.Errorf("failed to parse workflow: %w", err)
	}
	return New(opts)
}
