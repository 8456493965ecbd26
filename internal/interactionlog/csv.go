package interactionlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

var csvHeader = []string{"id", "timestamp", "recognized_text", "reply_text", "elapsed_seconds"}

// CSVSink appends interaction records to a local CSV file. The default sink
// when no database is configured.
type CSVSink struct {
	mu   sync.Mutex
	path string
}

func NewCSVSink(path string) (*CSVSink, error) {
	s := &CSVSink{path: path}

	info, err := os.Stat(path)
	if err == nil && info.Size() > 0 {
		return s, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write log header: %w", err)
	}
	w.Flush()
	return s, w.Error()
}

func (s *CSVSink) Append(_ context.Context, record Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	err = w.Write([]string{
		record.ID,
		record.Timestamp.UTC().Format(time.RFC3339),
		record.RecognizedText,
		record.ReplyText,
		strconv.FormatFloat(record.ElapsedSeconds, 'f', 2, 64),
	})
	if err != nil {
		return fmt.Errorf("write log row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush log row: %w", err)
	}
	return nil
}

func (s *CSVSink) Recent(_ context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)

	var items []Record
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read log row: %w", err)
		}
		if first {
			first = false
			continue
		}

		ts, _ := time.Parse(time.RFC3339, row[1])
		elapsed, _ := strconv.ParseFloat(row[4], 64)
		items = append(items, Record{
			ID:             row[0],
			Timestamp:      ts,
			RecognizedText: row[2],
			ReplyText:      row[3],
			ElapsedSeconds: elapsed,
		})
	}

	if len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items, nil
}

func (s *CSVSink) Close() error { return nil }
