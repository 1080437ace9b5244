package dagflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrEmptyWorkflow is returned when a workflow is built with no steps.
var ErrEmptyWorkflow = errors.New("workflow must have at least one step")

// DuplicateStepIDError indicates two steps share an id.
type DuplicateStepIDError struct {
	ID string
}

func (e *DuplicateStepIDError) Error() string {
	return fmt.Sprintf("duplicate step id %q", e.ID)
}

// MissingDependencyError indicates a step depends on an id that does not
// exist in the workflow.
type MissingDependencyError struct {
	StepID       string
	DependencyID string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("step %q depends on unknown step %q", e.StepID, e.DependencyID)
}

// CycleError indicates the dependency relation is not acyclic. StepIDs holds
// the steps participating in at least one cycle, in declaration order.
type CycleError struct {
	StepIDs []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle involving steps: %s", strings.Join(e.StepIDs, ", "))
}

// DAG is a validated dependency graph over a set of workflow steps. It is
// immutable after construction and never mutates the step definitions.
type DAG struct {
	steps []*Step
	byID  map[string]*Step
	index map[string]int // declaration order, for deterministic tie-breaks
	order []string       // cached topological order
}

// NewDAG validates a step set and builds its dependency graph. Validation
// failures are reported with typed errors: ErrEmptyWorkflow,
// DuplicateStepIDError, MissingDependencyError, CycleError.
func NewDAG(steps []*Step) (*DAG, error) {
	if len(steps) == 0 {
		return nil, ErrEmptyWorkflow
	}
	byID := make(map[string]*Step, len(steps))
	index := make(map[string]int, len(steps))
	for i, step := range steps {
		if err := step.Validate(); err != nil {
			return nil, err
		}
		if _, exists := byID[step.ID]; exists {
			return nil, &DuplicateStepIDError{ID: step.ID}
		}
		byID[step.ID] = step
		index[step.ID] = i
	}
	for _, step := range steps {
		for _, dep := range step.Dependencies {
			if _, exists := byID[dep]; !exists {
				return nil, &MissingDependencyError{StepID: step.ID, DependencyID: dep}
			}
		}
	}
	d := &DAG{steps: steps, byID: byID, index: index}
	order, err := d.sort()
	if err != nil {
		return nil, err
	}
	d.order = order
	return d, nil
}

// sort runs Kahn's algorithm. If fewer nodes are processed than exist, the
// remainder forms at least one cycle.
func (d *DAG) sort() ([]string, error) {
	inDegree := make(map[string]int, len(d.steps))
	dependents := make(map[string][]string, len(d.steps))
	for _, step := range d.steps {
		inDegree[step.ID] = len(step.Dependencies)
		for _, dep := range step.Dependencies {
			dependents[dep] = append(dependents[dep], step.ID)
		}
	}

	var ready []string
	for _, step := range d.steps {
		if inDegree[step.ID] == 0 {
			ready = append(ready, step.ID)
		}
	}

	order := make([]string, 0, len(d.steps))
	for len(ready) > 0 {
		// Pick the earliest-declared ready step for determinism.
		next := 0
		for i := 1; i < len(ready); i++ {
			if d.index[ready[i]] < d.index[ready[next]] {
				next = i
			}
		}
		id := ready[next]
		ready = append(ready[:next], ready[next+1:]...)
		order = append(order, id)
		for _, dependent := range dependents[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) < len(d.steps) {
		var cycle []string
		for _, step := range d.steps {
			if inDegree[step.ID] > 0 {
				cycle = append(cycle, step.ID)
			}
		}
		return nil, &CycleError{StepIDs: cycle}
	}
	return order, nil
}

// TopologicalOrder returns a dependency-consistent ordering of step ids.
// Ties are broken by declaration order, so the result is deterministic.
func (d *DAG) TopologicalOrder() []string {
	order := make([]string, len(d.order))
	copy(order, d.order)
	return order
}

// ReadySteps returns the ids of steps whose full dependency set is contained
// in done and which are not themselves in done, in declaration order. The
// done set holds steps in a terminal success state (completed or skipped).
func (d *DAG) ReadySteps(done map[string]bool) []string {
	var ready []string
	for _, step := range d.steps {
		if done[step.ID] {
			continue
		}
		satisfied := true
		for _, dep := range step.Dependencies {
			if !done[dep] {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, step.ID)
		}
	}
	return ready
}

// Step returns a step definition by id.
func (d *DAG) Step(id string) (*Step, bool) {
	step, ok := d.byID[id]
	return step, ok
}

// Steps returns the step definitions in declaration order.
func (d *DAG) Steps() []*Step {
	return d.steps
}

// StepIDs returns all step ids, sorted.
func (d *DAG) StepIDs() []string {
	ids := make([]string, 0, len(d.byID))
	for id := range d.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of steps.
func (d *DAG) Len() int {
	return len(d.steps)
}
