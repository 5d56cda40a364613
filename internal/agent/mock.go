package agent

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockAgent is a scripted agent implementation for tests and dry runs.
// Each scenario can carry an ordered script of outputs, indexed by attempt
// number, so retry behavior ("fails twice, then passes") is reproducible.
type MockAgent struct {
	modelID string

	mu       sync.Mutex
	scripts  map[string][]string
	attempts map[string]int
	requests []InvocationRequest
	fallback func(req *InvocationRequest) string
}

// NewMockAgent creates a mock agent.
func NewMockAgent(modelID string) *MockAgent {
	return &MockAgent{
		modelID:  modelID,
		scripts:  make(map[string][]string),
		attempts: make(map[string]int),
	}
}

// Script sets the ordered outputs for a scenario. The final entry repeats
// once the script is exhausted.
func (m *MockAgent) Script(scenarioID string, outputs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[scenarioID] = outputs
}

// SetFallback sets the output function used for unscripted scenarios.
func (m *MockAgent) SetFallback(fn func(req *InvocationRequest) string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = fn
}

// Requests returns a copy of every invocation seen so far.
func (m *MockAgent) Requests() []InvocationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]InvocationRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockAgent) Initialize(ctx context.Context) error { return nil }
func (m *MockAgent) Shutdown(ctx context.Context) error   { return nil }

func (m *MockAgent) Invoke(ctx context.Context, req *InvocationRequest) (*InvocationResult, error) {
	start := time.Now()

	m.mu.Lock()
	attempt := m.attempts[req.ScenarioID]
	m.attempts[req.ScenarioID] = attempt + 1
	script := m.scripts[req.ScenarioID]
	fallback := m.fallback
	m.requests = append(m.requests, *req)
	m.mu.Unlock()

	var output string
	switch {
	case len(script) > 0 && attempt < len(script):
		output = script[attempt]
	case len(script) > 0:
		output = script[len(script)-1]
	case fallback != nil:
		output = fallback(req)
	default:
		output = fmt.Sprintf("Mock response for scenario %s (attempt %d)", req.ScenarioID, attempt+1)
	}

	return &InvocationResult{
		Output:     output,
		ModelID:    m.modelID,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}
