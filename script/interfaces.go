// Package script provides expression evaluation for condition steps, script
// actions, and ${...} parameter templates.
package script

import "context"

// Value is the result of a script evaluation.
type Value interface {

	// Value returns the result as a plain Go value.
	Value() any

	// String returns the string representation of the result.
	String() string

	// IsTruthy reports whether the result counts as true in a condition.
	IsTruthy() bool
}

// Script is compiled code that can be evaluated repeatedly.
type Script interface {
	Evaluate(ctx context.Context, globals map[string]any) (Value, error)
}

// Compiler compiles source code into a Script.
type Compiler interface {
	Compile(ctx context.Context, code string) (Script, error)
}
