package agent

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultInvokeTimeout bounds a single subprocess invocation when the
// request doesn't carry its own timeout.
const DefaultInvokeTimeout = 5 * time.Minute

// CommandAgent runs an external command for each invocation. The rendered
// prompt is written to the command's stdin and the produced artifact is
// read from stdout. Stderr is captured for error reporting only.
type CommandAgent struct {
	command string
	args    []string
	modelID string
	dir     string
	env     []string
}

// NewCommandAgent creates an agent backed by an external command.
func NewCommandAgent(command string, args ...string) *CommandAgent {
	return &CommandAgent{
		command: command,
		args:    args,
		modelID: command,
	}
}

// SetModelID overrides the model identifier recorded in results.
func (a *CommandAgent) SetModelID(id string) { a.modelID = id }

// SetDir sets the working directory for the command.
func (a *CommandAgent) SetDir(dir string) { a.dir = dir }

// SetEnv sets additional environment variables (KEY=VALUE form).
func (a *CommandAgent) SetEnv(env []string) { a.env = env }

func (a *CommandAgent) Initialize(ctx context.Context) error {
	if _, err := exec.LookPath(a.command); err != nil {
		return fmt.Errorf("agent command not found: %w", err)
	}
	return nil
}

func (a *CommandAgent) Shutdown(ctx context.Context) error { return nil }

func (a *CommandAgent) Invoke(ctx context.Context, req *InvocationRequest) (*InvocationResult, error) {
	timeout := DefaultInvokeTimeout
	if req.TimeoutSec > 0 {
		timeout = time.Duration(req.TimeoutSec) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.command, a.args...)
	cmd.Stdin = strings.NewReader(req.RenderPrompt())
	cmd.Dir = a.dir
	if len(a.env) > 0 {
		cmd.Env = append(cmd.Environ(), a.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("agent command timed out after %s", timeout)
	}
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("agent command failed: %w: %s", err, detail)
		}
		return nil, fmt.Errorf("agent command failed: %w", err)
	}

	return &InvocationResult{
		Output:     stdout.String(),
		ModelID:    a.modelID,
		DurationMs: elapsed.Milliseconds(),
	}, nil
}
