package script

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var templateExprRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// Template is a string with embedded ${...} expressions, compiled once and
// evaluated against a set of globals.
type Template struct {
	raw   string
	parts []string
	codes []Script
}

// NewTemplate compiles the ${...} expressions in raw using the given
// compiler. A string with no expressions evaluates to itself.
func NewTemplate(engine Compiler, raw string) (*Template, error) {
	if strings.Count(raw, "${") > strings.Count(raw, "}") {
		return nil, fmt.Errorf("unclosed template expression in string: %q", raw)
	}

	matches := templateExprRe.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return &Template{raw: raw}, nil
	}

	var lastEnd int
	var parts []string
	var codes []Script
	for _, match := range matches {
		if match[0] > lastEnd {
			parts = append(parts, raw[lastEnd:match[0]])
		}
		expr := raw[match[2]:match[3]]
		code, err := engine.Compile(context.Background(), expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile template expression %q: %w", expr, err)
		}
		codes = append(codes, code)
		parts = append(parts, "") // placeholder for the evaluated result
		lastEnd = match[1]
	}
	if lastEnd < len(raw) {
		parts = append(parts, raw[lastEnd:])
	}

	return &Template{raw: raw, parts: parts, codes: codes}, nil
}

// Eval evaluates the template's expressions and joins the result.
func (t *Template) Eval(ctx context.Context, globals map[string]any) (string, error) {
	if len(t.codes) == 0 {
		return t.raw, nil
	}
	parts := make([]string, len(t.parts))
	copy(parts, t.parts)

	next := 0
	for _, code := range t.codes {
		result, err := code.Evaluate(ctx, globals)
		if err != nil {
			return "", fmt.Errorf("failed to evaluate template expression: %w", err)
		}
		for next < len(parts) && parts[next] != "" {
			next++
		}
		if next < len(parts) {
			parts[next] = result.String()
			next++
		}
	}
	return strings.Join(parts, ""), nil
}

// EvalString is a convenience that compiles and evaluates raw in one call.
func EvalString(ctx context.Context, engine Compiler, raw string, globals map[string]any) (string, error) {
	template, err := NewTemplate(engine, raw)
	if err != nil {
		return "", err
	}
	return template.Eval(ctx, globals)
}
