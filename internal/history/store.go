package history

import "sync"

// Turn is one user-utterance/assistant-reply exchange. Immutable once appended.
type Turn struct {
	UserUtterance  string `json:"user_utterance"`
	AssistantReply string `json:"assistant_reply"`
}

// Store keeps per-caller conversation history in insertion order. Each key is
// bounded to maxTurns entries; when the bound is hit the oldest turns are
// evicted so the remaining sequence stays chronological.
type Store struct {
	mu       sync.Mutex
	maxTurns int
	turns    map[string][]Turn
	keyLocks map[string]*sync.Mutex
}

// NewStore creates a history store. maxTurns of 0 means unbounded.
func NewStore(maxTurns int) *Store {
	if maxTurns < 0 {
		maxTurns = 0
	}
	return &Store{
		maxTurns: maxTurns,
		turns:    make(map[string][]Turn),
		keyLocks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the per-key mutex and returns its unlock func. Holding it
// across the read-compose-append sequence serializes concurrent requests from
// the same caller.
func (s *Store) Lock(key string) func() {
	s.mu.Lock()
	kl, ok := s.keyLocks[key]
	if !ok {
		kl = &sync.Mutex{}
		s.keyLocks[key] = kl
	}
	s.mu.Unlock()

	kl.Lock()
	return kl.Unlock
}

// Append records one completed turn for key, evicting the oldest turn when the
// per-key bound is exceeded.
func (s *Store) Append(key string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	arr := append(s.turns[key], turn)
	if s.maxTurns > 0 && len(arr) > s.maxTurns {
		arr = arr[len(arr)-s.maxTurns:]
	}
	s.turns[key] = arr
}

// Snapshot returns a chronological copy of the history for key.
func (s *Store) Snapshot(key string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	arr := s.turns[key]
	if len(arr) == 0 {
		return nil
	}
	out := make([]Turn, len(arr))
	copy(out, arr)
	return out
}

// Len reports the number of retained turns for key.
func (s *Store) Len(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns[key])
}

// TotalTurns reports retained turns across all callers.
func (s *Store) TotalTurns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, arr := range s.turns {
		total += len(arr)
	}
	return total
}
