package dagflow

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// StepType categorizes how the engine treats a step. Most steps are plain
// actions; Approval steps park the execution until a human decision arrives,
// and Condition steps let the engine skip one of two branches.
type StepType string

const (
	StepTypeAction    StepType = "action"
	StepTypeCondition StepType = "condition"
	StepTypeApproval  StepType = "approval"
	StepTypeParallel  StepType = "parallel"
	StepTypeWait      StepType = "wait"
)

// ActionType discriminates the Action union.
type ActionType string

const (
	ActionTypeCommand     ActionType = "command"
	ActionTypeScript      ActionType = "script"
	ActionTypeHTTPRequest ActionType = "http_request"
	ActionTypeAgentInvoke ActionType = "agent_invoke"
	ActionTypeCondition   ActionType = "condition"
	ActionTypeWait        ActionType = "wait"
	ActionTypeCustom      ActionType = "custom"
)

// CommandAction runs an executable with arguments and extra environment
// variables. Command, arguments, and environment values may contain ${...}
// template expressions evaluated against the execution context.
type CommandAction struct {
	Command string            `json:"command" yaml:"command"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// ScriptAction evaluates a block of code. Only the "risor" language is
// supported by the default executor.
type ScriptAction struct {
	Language string `json:"language" yaml:"language"`
	Code     string `json:"code" yaml:"code"`
}

// HTTPRequestAction makes an HTTP call. URL, headers, and body may contain
// ${...} template expressions.
type HTTPRequestAction struct {
	Method  string            `json:"method" yaml:"method"`
	URL     string            `json:"url" yaml:"url"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    string            `json:"body,omitempty" yaml:"body,omitempty"`
}

// AgentInvokeAction calls out to an external agent through the executor's
// configured AgentClient.
type AgentInvokeAction struct {
	AgentID    string         `json:"agent_id" yaml:"agent_id"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// ConditionAction evaluates an expression against the execution context.
// The engine marks the steps of the branch that was not chosen as Skipped.
type ConditionAction struct {
	Expression string   `json:"expression" yaml:"expression"`
	TrueSteps  []string `json:"true_steps,omitempty" yaml:"true_steps,omitempty"`
	FalseSteps []string `json:"false_steps,omitempty" yaml:"false_steps,omitempty"`
}

// WaitAction sleeps for a duration given in seconds.
type WaitAction struct {
	Duration float64 `json:"duration" yaml:"duration"`
}

// CustomAction dispatches to a Handler registered with the executor.
type CustomAction struct {
	Handler    string         `json:"handler" yaml:"handler"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Action is a closed tagged union over the seven supported action variants.
// Exactly one variant field is set, matching Type.
type Action struct {
	Type        ActionType
	Command     *CommandAction
	Script      *ScriptAction
	HTTPRequest *HTTPRequestAction
	AgentInvoke *AgentInvokeAction
	Condition   *ConditionAction
	Wait        *WaitAction
	Custom      *CustomAction
}

// Validate confirms that the variant matching Type is populated.
func (a *Action) Validate() error {
	var ok bool
	switch a.Type {
	case ActionTypeCommand:
		ok = a.Command != nil
	case ActionTypeScript:
		ok = a.Script != nil
	case ActionTypeHTTPRequest:
		ok = a.HTTPRequest != nil
	case ActionTypeAgentInvoke:
		ok = a.AgentInvoke != nil
	case ActionTypeCondition:
		ok = a.Condition != nil
	case ActionTypeWait:
		ok = a.Wait != nil
	case ActionTypeCustom:
		ok = a.Custom != nil
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	if !ok {
		return fmt.Errorf("action type %q has no %s configuration", a.Type, a.Type)
	}
	return nil
}

// variant returns the populated variant struct for serialization.
func (a *Action) variant() any {
	switch a.Type {
	case ActionTypeCommand:
		return a.Command
	case ActionTypeScript:
		return a.Script
	case ActionTypeHTTPRequest:
		return a.HTTPRequest
	case ActionTypeAgentInvoke:
		return a.AgentInvoke
	case ActionTypeCondition:
		return a.Condition
	case ActionTypeWait:
		return a.Wait
	case ActionTypeCustom:
		return a.Custom
	}
	return nil
}

// MarshalJSON flattens the active variant and adds a "type" discriminator.
// The zero Action (used by approval steps) marshals as null.
func (a Action) MarshalJSON() ([]byte, error) {
	if a.Type == "" {
		return []byte("null"), nil
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(a.variant())
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	fields["type"] = a.Type
	return json.Marshal(fields)
}

// UnmarshalJSON reads the "type" discriminator and decodes the matching
// variant from the same object.
func (a *Action) UnmarshalJSON(data []byte) error {
	var head struct {
		Type ActionType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if head.Type == "" {
		return nil
	}
	a.Type = head.Type
	target, err := a.allocate()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML workflow definitions.
func (a *Action) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Type ActionType `yaml:"type"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	if head.Type == "" {
		return nil
	}
	a.Type = head.Type
	target, err := a.allocate()
	if err != nil {
		return err
	}
	return node.Decode(target)
}

// MarshalYAML flattens the active variant with a "type" discriminator.
func (a Action) MarshalYAML() (any, error) {
	if a.Type == "" {
		return nil, nil
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(a.variant())
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	fields["type"] = string(a.Type)
	return fields, nil
}

func (a *Action) allocate() (any, error) {
	switch a.Type {
	case ActionTypeCommand:
		a.Command = &CommandAction{}
		return a.Command, nil
	case ActionTypeScript:
		a.Script = &ScriptAction{}
		return a.Script, nil
	case ActionTypeHTTPRequest:
		a.HTTPRequest = &HTTPRequestAction{}
		return a.HTTPRequest, nil
	case ActionTypeAgentInvoke:
		a.AgentInvoke = &AgentInvokeAction{}
		return a.AgentInvoke, nil
	case ActionTypeCondition:
		a.Condition = &ConditionAction{}
		return a.Condition, nil
	case ActionTypeWait:
		a.Wait = &WaitAction{}
		return a.Wait, nil
	case ActionTypeCustom:
		a.Custom = &CustomAction{}
		return a.Custom, nil
	}
	return nil, fmt.Errorf("unknown action type %q", a.Type)
}

// DefaultMaxRetries is applied when a step enables retries without a bound.
const DefaultMaxRetries = 3

// Step is the immutable definition of one unit of work within a workflow.
// Use NewStep to get the documented defaults (fail_on_error true,
// max_retries 3); zero-value construction leaves FailOnError false.
type Step struct {
	ID           string
	Name         string
	Type         StepType
	Action       Action
	Dependencies []string
	Timeout      time.Duration
	RetryEnabled bool
	MaxRetries   int
	FailOnError  bool
	Metadata     map[string]any
}

// NewStep creates a step with defaults applied. The ID defaults to the name;
// override it with WithID when the display name is not a stable identifier.
func NewStep(name string, stepType StepType, action Action) *Step {
	return &Step{
		ID:          name,
		Name:        name,
		Type:        stepType,
		Action:      action,
		MaxRetries:  DefaultMaxRetries,
		FailOnError: true,
	}
}

// WithID sets the step identifier.
func (s *Step) WithID(id string) *Step {
	s.ID = id
	return s
}

// WithDependencies replaces the dependency list.
func (s *Step) WithDependencies(deps ...string) *Step {
	s.Dependencies = deps
	return s
}

// WithTimeout bounds one execution attempt.
func (s *Step) WithTimeout(d time.Duration) *Step {
	s.Timeout = d
	return s
}

// WithRetry enables retries with the given bound.
func (s *Step) WithRetry(maxRetries int) *Step {
	s.RetryEnabled = true
	s.MaxRetries = maxRetries
	return s
}

// WithFailOnError controls whether this step's terminal failure fails the
// whole workflow.
func (s *Step) WithFailOnError(fail bool) *Step {
	s.FailOnError = fail
	return s
}

// WithMetadata attaches a free-form annotation. Metadata is not interpreted
// by the engine.
func (s *Step) WithMetadata(key string, value any) *Step {
	if s.Metadata == nil {
		s.Metadata = map[string]any{}
	}
	s.Metadata[key] = value
	return s
}

// Validate checks the step definition in isolation. Cross-step checks
// (duplicate ids, unknown dependencies) belong to the DAG.
func (s *Step) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("step id required")
	}
	switch s.Type {
	case StepTypeAction, StepTypeCondition, StepTypeApproval, StepTypeParallel, StepTypeWait:
	case "":
		return fmt.Errorf("step %q: step type required", s.ID)
	default:
		return fmt.Errorf("step %q: unknown step type %q", s.ID, s.Type)
	}
	// Approval steps carry no action; the engine resolves them directly.
	if s.Type == StepTypeApproval {
		return nil
	}
	if err := s.Action.Validate(); err != nil {
		return fmt.Errorf("step %q: %w", s.ID, err)
	}
	return nil
}

// stepWire is the serialized form of a Step. Timeout travels as a duration
// string ("30s") and fail_on_error defaults to true when omitted.
type stepWire struct {
	ID           string         `json:"id" yaml:"id"`
	Name         string         `json:"name" yaml:"name"`
	Type         StepType       `json:"step_type" yaml:"step_type"`
	Action       Action         `json:"action" yaml:"action"`
	Dependencies []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Timeout      string         `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RetryEnabled bool           `json:"retry_enabled,omitempty" yaml:"retry_enabled,omitempty"`
	MaxRetries   *int           `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	FailOnError  *bool          `json:"fail_on_error,omitempty" yaml:"fail_on_error,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func (s *Step) fromWire(w *stepWire) error {
	s.ID = w.ID
	s.Name = w.Name
	s.Type = w.Type
	s.Action = w.Action
	s.Dependencies = w.Dependencies
	s.RetryEnabled = w.RetryEnabled
	s.Metadata = w.Metadata
	if w.ID == "" {
		s.ID = w.Name
	}
	if w.Timeout != "" {
		d, err := time.ParseDuration(w.Timeout)
		if err != nil {
			return fmt.Errorf("step %q: invalid timeout: %w", s.ID, err)
		}
		s.Timeout = d
	}
	s.MaxRetries = DefaultMaxRetries
	if w.MaxRetries != nil {
		s.MaxRetries = *w.MaxRetries
	}
	s.FailOnError = true
	if w.FailOnError != nil {
		s.FailOnError = *w.FailOnError
	}
	return nil
}

func (s *Step) toWire() *stepWire {
	w := &stepWire{
		ID:           s.ID,
		Name:         s.Name,
		Type:         s.Type,
		Action:       s.Action,
		Dependencies: s.Dependencies,
		RetryEnabled: s.RetryEnabled,
		Metadata:     s.Metadata,
	}
	if s.Timeout > 0 {
		w.Timeout = s.Timeout.String()
	}
	maxRetries := s.MaxRetries
	w.MaxRetries = &maxRetries
	failOnError := s.FailOnError
	w.FailOnError = &failOnError
	return w
}

func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.toWire())
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var w stepWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return s.fromWire(&w)
}

func (s Step) MarshalYAML() (any, error) {
	return s.toWire(), nil
}

func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	var w stepWire
	if err := node.Decode(&w); err != nil {
		return err
	}
	return s.fromWire(&w)
}
