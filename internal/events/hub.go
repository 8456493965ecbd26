package events

import (
	"sync"
	"time"
)

// Event is one completed interaction, published for live observers.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	CallerKey      string    `json:"caller_key"`
	RecognizedText string    `json:"recognized_text"`
	ReplyText      string    `json:"reply_text"`
	AudioURL       string    `json:"audio_url"`
	Fallback       bool      `json:"fallback"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

// Hub fans events out to subscribers. Slow subscribers lose events rather
// than stall the pipeline.
type Hub struct {
	mu          sync.Mutex
	subscribers map[int]chan Event
	nextSubID   int
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[int]chan Event)}
}

// Subscribe returns an event channel and its cancel func. Cancel closes the
// channel and releases the subscription.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	h.mu.Lock()
	h.nextSubID++
	id := h.nextSubID
	h.subscribers[id] = ch
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(c)
		}
	}
}

// Publish delivers evt to every subscriber, dropping it for any whose buffer
// is full.
func (h *Hub) Publish(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// SubscriberCount reports current subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
