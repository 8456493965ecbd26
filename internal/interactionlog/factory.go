package interactionlog

import (
	"context"
	"path/filepath"
	"strings"
)

// NewSink creates a postgres-backed sink when configured, otherwise a CSV file
// under dir.
func NewSink(ctx context.Context, databaseURL, dir string) (Sink, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewCSVSink(filepath.Join(dir, "logs.csv"))
	}
	return NewPostgresSink(ctx, databaseURL)
}
