package schema

import "time"

// CaptureRecord is the input contract: metadata for one captured snapshot
// document. The engine reads bytes by file reference and never fetches.
type CaptureRecord struct {
	Slug        string    `json:"slug"`
	SourceYear  int       `json:"source_year"`
	FilePath    string    `json:"file_path"`
	CapturedAt  time.Time `json:"captured_at"`
	ByteLength  int64     `json:"byte_length"`
	ContentHash string    `json:"content_hash"`
}

// ExtractionResult pairs the assembled record with its error list and the
// acceptance verdict from the confidence threshold.
type ExtractionResult struct {
	Record   SchoolRecord      `json:"record"`
	Errors   []ExtractionError `json:"errors,omitempty"`
	Accepted bool              `json:"accepted"`
	Elapsed  time.Duration     `json:"elapsed"`
}
