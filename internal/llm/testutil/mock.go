// Package testutil provides test doubles for the llm package.
package testutil

import (
	"context"
	"sync"
)

// MockGenerator is a thread-safe llm.Generator for tests.
//
// Usage:
//
//	// Fixed narrative
//	mock := &MockGenerator{Response: "Low risk"}
//
//	// Narrative derived from the prompt
//	mock := &MockGenerator{Func: func(p string) (string, error) { return "len " + strconv.Itoa(len(p)), nil }}
//
//	// Always fail
//	mock := &MockGenerator{Err: &llm.GenerationError{Kind: llm.KindTransport}}
type MockGenerator struct {
	Response string
	Err      error                               // takes precedence over Response
	Func     func(prompt string) (string, error) // takes precedence over Err and Response

	mu      sync.Mutex
	prompts []string
}

// Generate implements llm.Generator.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Func != nil {
		return m.Func(prompt)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns a copy of every prompt received, in call order.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
