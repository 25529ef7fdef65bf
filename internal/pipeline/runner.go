// Package pipeline executes batch extraction over captured snapshots with
// a bounded worker pool. Per-document extraction is a pure function, so
// documents parallelize freely; the uniqueness validator is the single
// shared structure and serializes internally.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jshin42/highschooltrends/internal/assemble"
	"github.com/jshin42/highschooltrends/internal/config"
	"github.com/jshin42/highschooltrends/internal/debug"
	"github.com/jshin42/highschooltrends/internal/htmldoc"
	"github.com/jshin42/highschooltrends/internal/observe"
	"github.com/jshin42/highschooltrends/internal/progress"
	"github.com/jshin42/highschooltrends/internal/schema"
	"github.com/jshin42/highschooltrends/internal/sink"
	"github.com/jshin42/highschooltrends/internal/stats"
	"github.com/jshin42/highschooltrends/internal/uniqueness"
)

// Runner drives a batch through the assembler, validator, and sink.
type Runner struct {
	cfg       *config.Config
	assembler *assemble.Assembler
	validator *uniqueness.Validator
	out       sink.Sink
	collector *stats.Collector
	progress  *progress.Manager
	dbg       *debug.Logger
	obs       observe.Observer
}

// NewRunner wires a batch runner. Any of progress, dbg may be nil-safe
// no-ops from their constructors; sink and observer are required.
func NewRunner(cfg *config.Config, out sink.Sink, prog *progress.Manager, dbg *debug.Logger, obs observe.Observer) *Runner {
	return &Runner{
		cfg:       cfg,
		assembler: assemble.New(cfg, obs),
		validator: uniqueness.New(obs),
		out:       out,
		collector: stats.NewCollector(),
		progress:  prog,
		dbg:       dbg,
		obs:       obs,
	}
}

// GetCollector exposes the batch result collector for reporting.
func (r *Runner) GetCollector() *stats.Collector {
	return r.collector
}

// Validator exposes the uniqueness validator for reporting.
func (r *Runner) Validator() *uniqueness.Validator {
	return r.validator
}

// Run processes every capture. Cancellation is honored between documents;
// a document in flight finishes or hits the per-document timeout. Only a
// fully drained batch returns nil.
func (r *Runner) Run(ctx context.Context, captures []schema.CaptureRecord) error {
	limit := r.cfg.General.Concurrency
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	done := make(chan struct{}, len(captures))
	timeout := r.cfg.General.TimeoutDuration()

	dispatched := 0
	for _, capture := range captures {
		if ctx.Err() != nil {
			break
		}
		dispatched++
		sem <- struct{}{}
		go func(c schema.CaptureRecord) {
			defer func() {
				<-sem
				done <- struct{}{}
			}()
			r.processDocument(c, timeout)
		}(capture)
	}

	for i := 0; i < dispatched; i++ {
		<-done
	}

	// Soft window-clustering pass per observed year.
	years := map[int]struct{}{}
	for _, c := range captures {
		years[c.SourceYear] = struct{}{}
	}
	for year := range years {
		r.validator.WindowReport(year)
	}

	if r.progress != nil {
		r.progress.Finish()
	}
	return ctx.Err()
}

// processDocument runs one capture to completion: read bytes, extract
// under the wall-clock timeout, validate, record, and persist.
func (r *Runner) processDocument(capture schema.CaptureRecord, timeout time.Duration) {
	r.dbg.LogDocumentStart(capture)

	body, err := os.ReadFile(capture.FilePath)
	if err != nil {
		res := r.syntheticFailure(capture, schema.ErrMethodFailure,
			fmt.Sprintf("failed to read snapshot: %v", err))
		r.finish(res)
		return
	}

	resCh := make(chan schema.ExtractionResult, 1)
	go func() {
		resCh <- r.assembler.Extract(capture, body)
	}()

	var res schema.ExtractionResult
	select {
	case res = <-resCh:
	case <-time.After(timeout):
		res = r.syntheticFailure(capture, schema.ErrMethodFailure,
			fmt.Sprintf("extraction exceeded %s wall-clock timeout", timeout))
	}

	if r.dbg.FullCapture() {
		section := htmldoc.Parse(body).Scoped(r.cfg.Ranking.SectionSelector)
		if section.Exists() {
			r.dbg.CaptureEvidence(capture.Slug, section.HTML())
		}
	}

	if res.Accepted {
		r.validator.Observe(&res.Record)
	}
	r.finish(res)
}

func (r *Runner) finish(res schema.ExtractionResult) {
	r.collector.AddResult(stats.FromExtraction(res))
	r.dbg.LogDocumentComplete(res)
	if r.progress != nil {
		r.progress.CompleteDocument(string(res.Record.ExtractionStatus))
	}
	if err := r.out.Write(res.Record); err != nil {
		r.obs.Error(res.Record.Slug, schema.NewError("sink", schema.ErrMethodFailure,
			schema.MethodHeuristic, err.Error()))
	}
}

func (r *Runner) syntheticFailure(capture schema.CaptureRecord, kind schema.ErrorKind, message string) schema.ExtractionResult {
	synthetic := schema.NewError("document", kind, schema.MethodHeuristic, message)
	r.obs.Error(capture.Slug, synthetic)
	rec := schema.SchoolRecord{
		Slug:             capture.Slug,
		SourceYear:       capture.SourceYear,
		SourceFile:       capture.FilePath,
		ExtractionStatus: schema.StatusFailed,
		ExtractionErrors: []schema.ExtractionError{synthetic},
		ExtractedAt:      time.Now(),
	}
	return schema.ExtractionResult{Record: rec, Errors: rec.ExtractionErrors}
}
