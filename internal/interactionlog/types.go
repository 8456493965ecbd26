package interactionlog

import (
	"context"
	"time"
)

// Record is one completed request: what was heard, what was answered, and how
// long the whole exchange took. Write-only from the pipeline's perspective.
type Record struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	RecognizedText string    `json:"recognized_text"`
	ReplyText      string    `json:"reply_text"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

// Sink appends interaction records to a durable tabular store.
type Sink interface {
	Append(ctx context.Context, record Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}
