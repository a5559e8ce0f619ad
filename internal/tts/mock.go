package tts

import (
	"context"
	"strings"
	"sync"
)

// MockEngine is used in tests and when no real engine is configured. It
// returns the input text as the "audio" payload so assertions can see what
// would have been spoken, and can be scripted to fail per sentence.
type MockEngine struct {
	mu sync.Mutex

	// FailText makes Synthesize fail for inputs containing this substring.
	FailText string
	// Err overrides the failure returned when FailText matches.
	Err error

	calls []string
}

func NewMockEngine() *MockEngine { return &MockEngine{} }

func (e *MockEngine) Name() string { return "mock" }

func (e *MockEngine) Synthesize(_ context.Context, text string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, text)

	if strings.TrimSpace(text) == "" {
		return nil, synthErr(e.Name(), ErrEmptyInput)
	}
	if e.FailText != "" && strings.Contains(text, e.FailText) {
		cause := e.Err
		if cause == nil {
			cause = errMockFailure
		}
		return nil, synthErr(e.Name(), cause)
	}
	return []byte(text), nil
}

// Calls returns every input Synthesize has received, in order.
func (e *MockEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

var errMockFailure = &mockFailure{}

type mockFailure struct{}

func (*mockFailure) Error() string { return "scripted mock failure" }
