package dagflow

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// executeCommand runs an executable and captures its output. A non-zero exit
// code is not an error by itself; callers read exit_code and success from
// the outputs. Command, args, and env values are rendered as templates.
func (e *DefaultStepExecutor) executeCommand(ctx context.Context, action *CommandAction, execCtx *ExecutionContext) (map[string]any, error) {
	if action.Command == "" {
		return nil, Fatalf("command cannot be empty")
	}
	globals := e.scriptGlobals(execCtx)

	command, err := e.render(ctx, action.Command, globals)
	if err != nil {
		return nil, fmt.Errorf("failed to render command: %w", err)
	}
	args := make([]string, len(action.Args))
	for i, arg := range action.Args {
		if args[i], err = e.render(ctx, arg, globals); err != nil {
			return nil, fmt.Errorf("failed to render command argument: %w", err)
		}
	}

	cmd := exec.CommandContext(ctx, command, args...)
	if len(action.Env) > 0 {
		cmd.Env = os.Environ()
		for key, value := range action.Env {
			rendered, err := e.render(ctx, value, globals)
			if err != nil {
				return nil, fmt.Errorf("failed to render environment variable %s: %w", key, err)
			}
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, rendered))
		}
	}

	stdout, err := cmd.Output()
	var stderr []byte
	var exitCode int
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		exitError, ok := err.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("failed to execute command: %w", err)
		}
		stderr = exitError.Stderr
		if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
			exitCode = status.ExitStatus()
		}
	}

	return map[string]any{
		"stdout":    strings.TrimSpace(string(stdout)),
		"stderr":    strings.TrimSpace(string(stderr)),
		"exit_code": exitCode,
		"success":   exitCode == 0,
	}, nil
}
