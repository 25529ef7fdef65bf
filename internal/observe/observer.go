// Package observe defines the observer interface the assembler and
// pipeline report into. There is no package-level logger; callers inject
// an implementation (zerolog-backed in production, Nop in tests).
package observe

import (
	"github.com/rs/zerolog"

	"github.com/jshin42/highschooltrends/internal/schema"
)

// Observer receives extraction lifecycle events.
type Observer interface {
	DocumentStarted(capture schema.CaptureRecord)
	FieldExtracted(slug, field string, confidence float64)
	RankingResolved(slug string, national, state *int, precision string)
	UnrankedDecision(slug, reason string, confidence float64)
	RecordCompleted(slug string, status schema.ExtractionStatus, overall float64, errorCount int)
	ConflictDetected(slug, kind string, rank, year int)
	Error(slug string, err schema.ExtractionError)
}

type nopObserver struct{}

func (nopObserver) DocumentStarted(schema.CaptureRecord)                            {}
func (nopObserver) FieldExtracted(string, string, float64)                          {}
func (nopObserver) RankingResolved(string, *int, *int, string)                      {}
func (nopObserver) UnrankedDecision(string, string, float64)                        {}
func (nopObserver) RecordCompleted(string, schema.ExtractionStatus, float64, int)   {}
func (nopObserver) ConflictDetected(string, string, int, int)                       {}
func (nopObserver) Error(string, schema.ExtractionError)                            {}

// Nop returns an observer that drops every event.
func Nop() Observer {
	return nopObserver{}
}

// Logging wraps a zerolog logger as an Observer.
type Logging struct {
	log zerolog.Logger
}

// NewLogging creates a zerolog-backed observer.
func NewLogging(log zerolog.Logger) *Logging {
	return &Logging{log: log}
}

func (l *Logging) DocumentStarted(capture schema.CaptureRecord) {
	l.log.Debug().
		Str("slug", capture.Slug).
		Int("year", capture.SourceYear).
		Int64("bytes", capture.ByteLength).
		Msg("document started")
}

func (l *Logging) FieldExtracted(slug, field string, confidence float64) {
	l.log.Debug().
		Str("slug", slug).
		Str("field", field).
		Float64("confidence", confidence).
		Msg("field extracted")
}

func (l *Logging) RankingResolved(slug string, national, state *int, precision string) {
	ev := l.log.Info().Str("slug", slug).Str("precision", precision)
	if national != nil {
		ev = ev.Int("national_rank", *national)
	}
	if state != nil {
		ev = ev.Int("state_rank", *state)
	}
	ev.Msg("ranking resolved")
}

func (l *Logging) UnrankedDecision(slug, reason string, confidence float64) {
	l.log.Info().
		Str("slug", slug).
		Str("reason", reason).
		Float64("confidence", confidence).
		Msg("unranked verdict")
}

func (l *Logging) RecordCompleted(slug string, status schema.ExtractionStatus, overall float64, errorCount int) {
	l.log.Info().
		Str("slug", slug).
		Str("status", string(status)).
		Float64("overall_confidence", overall).
		Int("errors", errorCount).
		Msg("record completed")
}

func (l *Logging) ConflictDetected(slug, kind string, rank, year int) {
	l.log.Warn().
		Str("slug", slug).
		Str("kind", kind).
		Int("rank", rank).
		Int("year", year).
		Msg("ranking conflict")
}

func (l *Logging) Error(slug string, err schema.ExtractionError) {
	l.log.Warn().
		Str("slug", slug).
		Str("field", err.FieldName).
		Str("kind", string(err.Kind)).
		Str("method", string(err.Method)).
		Msg(err.Message)
}
