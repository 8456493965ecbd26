package brain

import (
	"context"
	"sync"
)

// MockAdapter answers with a canned reply and records received prompts.
// Used by tests and by dev setups without a Gemini key.
type MockAdapter struct {
	mu      sync.Mutex
	reply   string
	prompts []string
	err     error
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{reply: "I heard you."}
}

func (m *MockAdapter) SetReply(reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reply = reply
}

func (m *MockAdapter) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Prompts returns every prompt received, in call order.
func (m *MockAdapter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

func (m *MockAdapter) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.prompts = append(m.prompts, prompt)
	return m.reply, nil
}
