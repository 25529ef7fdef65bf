// Package sink defines where finished records go. The engine writes
// through this interface; storage schema is somebody else's problem.
package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/jshin42/highschooltrends/internal/schema"
)

// Sink receives finished records.
type Sink interface {
	Write(rec schema.SchoolRecord) error
	Close() error
}

// JSONL appends records to a JSON-lines file, one record per line.
type JSONL struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewJSONL opens (or creates) the target file for appending.
func NewJSONL(path string) (*JSONL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open sink file: %w", err)
	}
	return &JSONL{f: f, enc: json.NewEncoder(f)}, nil
}

// Write appends one record.
func (s *JSONL) Write(rec schema.SchoolRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode record %s: %w", rec.Slug, err)
	}
	return nil
}

// Close flushes and closes the file.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// Discard drops every record; used when no output is wanted.
type Discard struct{}

func (Discard) Write(schema.SchoolRecord) error { return nil }
func (Discard) Close() error                    { return nil }
