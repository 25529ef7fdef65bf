// Package debug provides per-run extraction session logging for
// troubleshooting and analysis. When full capture is enabled it also keeps
// a markdown rendering of each document's ranking section, which is what
// the conflict reports link back to.
package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/jshin42/highschooltrends/internal/schema"
)

// Logger handles extraction session debug logging
type Logger struct {
	mu          sync.RWMutex
	enabled     bool
	fullCapture bool
	startTime   time.Time
	session     *Session
	outputDir   string
	outputPath  string
}

// Session represents the entire debug session
type Session struct {
	StartTime  time.Time               `json:"start_time"`
	EndTime    *time.Time              `json:"end_time,omitempty"`
	Documents  map[string]*DocumentLog `json:"documents"`
	SystemInfo map[string]interface{}  `json:"system_info"`
}

// DocumentLog contains debug data for a single document
type DocumentLog struct {
	Slug            string                  `json:"slug"`
	SourceYear      int                     `json:"source_year"`
	StartTime       time.Time               `json:"start_time"`
	EndTime         *time.Time              `json:"end_time,omitempty"`
	Duration        time.Duration           `json:"duration"`
	Status          schema.ExtractionStatus `json:"status,omitempty"`
	Overall         float64                 `json:"overall_confidence"`
	Errors          []ErrorLog              `json:"errors,omitempty"`
	SectionEvidence string                  `json:"section_evidence,omitempty"`
}

// ErrorLog captures one extraction error in the session file
type ErrorLog struct {
	Field   string    `json:"field"`
	Kind    string    `json:"kind"`
	Method  string    `json:"method"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NewLogger creates a debug logger. A disabled logger is a no-op.
func NewLogger(enabled, fullCapture bool, outputDir string) *Logger {
	l := &Logger{
		enabled:     enabled,
		fullCapture: fullCapture,
		startTime:   time.Now(),
		outputDir:   outputDir,
		outputPath:  filepath.Join(outputDir, "debug"),
	}
	if enabled {
		l.session = &Session{
			StartTime: l.startTime,
			Documents: make(map[string]*DocumentLog),
			SystemInfo: map[string]interface{}{
				"full_capture": fullCapture,
			},
		}
	}
	return l
}

// IsEnabled reports whether the logger records anything.
func (l *Logger) IsEnabled() bool {
	return l != nil && l.enabled
}

// FullCapture reports whether ranking-section evidence should be captured.
func (l *Logger) FullCapture() bool {
	return l.IsEnabled() && l.fullCapture
}

// GetOutputPath returns the directory the session file is written to.
func (l *Logger) GetOutputPath() string {
	return l.outputPath
}

// LogDocumentStart registers a document when a worker picks it up.
func (l *Logger) LogDocumentStart(capture schema.CaptureRecord) {
	if !l.IsEnabled() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.session.Documents[capture.Slug] = &DocumentLog{
		Slug:       capture.Slug,
		SourceYear: capture.SourceYear,
		StartTime:  time.Now(),
	}
}

// LogDocumentComplete records the outcome for a document.
func (l *Logger) LogDocumentComplete(res schema.ExtractionResult) {
	if !l.IsEnabled() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, ok := l.session.Documents[res.Record.Slug]
	if !ok {
		doc = &DocumentLog{Slug: res.Record.Slug, SourceYear: res.Record.SourceYear, StartTime: time.Now()}
		l.session.Documents[res.Record.Slug] = doc
	}
	now := time.Now()
	doc.EndTime = &now
	doc.Duration = res.Elapsed
	doc.Status = res.Record.ExtractionStatus
	doc.Overall = res.Record.OverallConfidence
	for _, e := range res.Errors {
		doc.Errors = append(doc.Errors, ErrorLog{
			Field:   e.FieldName,
			Kind:    string(e.Kind),
			Method:  string(e.Method),
			Message: e.Message,
			At:      e.Timestamp,
		})
	}
}

// CaptureEvidence converts a document's ranking-section HTML to markdown
// and attaches it to the document log. Only active under full capture.
func (l *Logger) CaptureEvidence(slug, sectionHTML string) {
	if !l.FullCapture() || sectionHTML == "" {
		return
	}
	markdown, err := md.ConvertString(sectionHTML)
	if err != nil {
		markdown = fmt.Sprintf("(evidence conversion failed: %v)", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	doc, ok := l.session.Documents[slug]
	if !ok {
		doc = &DocumentLog{Slug: slug, StartTime: time.Now()}
		l.session.Documents[slug] = doc
	}
	doc.SectionEvidence = markdown
}

// Evidence returns the captured ranking-section markdown for a slug.
func (l *Logger) Evidence(slug string) string {
	if !l.IsEnabled() {
		return ""
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if doc, ok := l.session.Documents[slug]; ok {
		return doc.SectionEvidence
	}
	return ""
}

// Finalize writes the session file.
func (l *Logger) Finalize() error {
	if !l.IsEnabled() {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.session.EndTime = &now

	if err := os.MkdirAll(l.outputPath, 0750); err != nil {
		return fmt.Errorf("failed to create debug directory: %w", err)
	}
	data, err := json.MarshalIndent(l.session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal debug session: %w", err)
	}
	path := filepath.Join(l.outputPath, "session.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write debug session: %w", err)
	}
	return nil
}
