package speech

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/vdtran/voicebox/internal/audio"
)

// MockProvider implements both Transcriber and Synthesizer for dev setups and
// tests. Transcripts are served from a configurable queue; synthesis writes a
// short silence WAV so the artifact path is real and playable.
type MockProvider struct {
	mu          sync.Mutex
	transcripts []string
	failSTT     bool
	synthesized []string
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// QueueTranscript appends a canned transcript; each Transcribe call consumes
// one. With an empty queue the mock returns a fixed greeting.
func (m *MockProvider) QueueTranscript(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcripts = append(m.transcripts, text)
}

// FailTranscription makes subsequent Transcribe calls return an error,
// exercising the recognition-miss fallback.
func (m *MockProvider) FailTranscription(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSTT = fail
}

// Synthesized returns the texts passed to Synthesize, in call order.
func (m *MockProvider) Synthesized() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.synthesized))
	copy(out, m.synthesized)
	return out
}

func (m *MockProvider) Transcribe(_ context.Context, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSTT {
		return "", errors.New("mock recognition failure")
	}
	if len(m.transcripts) == 0 {
		return "hello there", nil
	}
	text := m.transcripts[0]
	m.transcripts = m.transcripts[1:]
	return text, nil
}

func (m *MockProvider) AudioExt() string { return ".wav" }

func (m *MockProvider) Synthesize(_ context.Context, text, outPath string) error {
	m.mu.Lock()
	m.synthesized = append(m.synthesized, text)
	m.mu.Unlock()
	return os.WriteFile(outPath, audio.SilenceWAV(250*time.Millisecond, 16000), 0o644)
}
