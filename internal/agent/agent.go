// Package agent defines the boundary to the black-box agent under
// evaluation. The engine only ever sees a task description, constraints,
// and optional context additions in; a textual artifact out. Timeouts and
// malformed output are evaluation inputs, not crashes.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/dlai-sd/dojo/internal/models"
)

// Agent is the interface for the task-performing agent being trained.
type Agent interface {
	// Initialize sets up the agent.
	Initialize(ctx context.Context) error

	// Invoke asks the agent to attempt one task.
	Invoke(ctx context.Context, req *InvocationRequest) (*InvocationResult, error)

	// Shutdown cleans up resources.
	Shutdown(ctx context.Context) error
}

// InvocationRequest carries one task to the agent.
type InvocationRequest struct {
	ScenarioID      string
	TaskDescription string
	Constraints     models.Constraints

	// ContextAdditions holds feedback text from prior failed attempts,
	// appended to the agent's context on retries.
	ContextAdditions []string

	TimeoutSec int
}

// InvocationResult is the agent's artifact for one attempt.
type InvocationResult struct {
	Output     string
	ModelID    string
	DurationMs int64
}

// RenderPrompt flattens the request into the plain-text prompt handed to
// prompt-driven agent implementations.
func (r *InvocationRequest) RenderPrompt() string {
	var b strings.Builder
	b.WriteString(r.TaskDescription)
	b.WriteString("\n")

	c := r.Constraints
	if c.MinWords > 0 || c.MaxWords > 0 {
		b.WriteString("\nLength: ")
		switch {
		case c.MinWords > 0 && c.MaxWords > 0:
			fmt.Fprintf(&b, "%d-%d words", c.MinWords, c.MaxWords)
		case c.MinWords > 0:
			fmt.Fprintf(&b, "at least %d words", c.MinWords)
		default:
			fmt.Fprintf(&b, "at most %d words", c.MaxWords)
		}
		b.WriteString("\n")
	}
	if len(c.RequiredSections) > 0 {
		b.WriteString("Required sections: " + strings.Join(c.RequiredSections, ", ") + "\n")
	}
	if c.TargetAudience != "" {
		b.WriteString("Target audience: " + c.TargetAudience + "\n")
	}

	for _, addition := range r.ContextAdditions {
		b.WriteString("\nFeedback on your previous attempt:\n")
		b.WriteString(addition)
		b.WriteString("\n")
	}
	return b.String()
}
