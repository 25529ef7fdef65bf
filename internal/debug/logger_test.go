package debug

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jshin42/highschooltrends/internal/schema"
)

func capture(slug string) schema.CaptureRecord {
	return schema.CaptureRecord{Slug: slug, SourceYear: 2024}
}

func TestDisabledLoggerIsNoop(t *testing.T) {
	l := NewLogger(false, false, t.TempDir())
	l.LogDocumentStart(capture("a-high"))
	l.LogDocumentComplete(schema.ExtractionResult{Record: schema.SchoolRecord{Slug: "a-high"}})
	l.CaptureEvidence("a-high", "<strong>Unranked</strong>")
	if err := l.Finalize(); err != nil {
		t.Fatalf("Finalize() on disabled logger: %v", err)
	}
	if l.IsEnabled() || l.FullCapture() {
		t.Error("disabled logger reports enabled")
	}
}

func TestSessionFileWritten(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(true, false, dir)
	l.LogDocumentStart(capture("a-high"))
	l.LogDocumentComplete(schema.ExtractionResult{
		Record: schema.SchoolRecord{
			Slug:              "a-high",
			SourceYear:        2024,
			ExtractionStatus:  schema.StatusExtracted,
			OverallConfidence: 91,
		},
		Errors: []schema.ExtractionError{
			schema.NewError("phone", schema.ErrSelectorMiss, schema.MethodSelector, "no match"),
		},
	})
	if err := l.Finalize(); err != nil {
		t.Fatalf("Finalize() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "debug", "session.json"))
	if err != nil {
		t.Fatalf("session file not written: %v", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		t.Fatalf("session file is not valid JSON: %v", err)
	}
	doc, ok := session.Documents["a-high"]
	if !ok {
		t.Fatal("document missing from session")
	}
	if doc.Status != schema.StatusExtracted || doc.Overall != 91 {
		t.Errorf("document log = %+v", doc)
	}
	if len(doc.Errors) != 1 || doc.Errors[0].Field != "phone" {
		t.Errorf("errors = %+v", doc.Errors)
	}
	if session.EndTime == nil {
		t.Error("end time not stamped")
	}
}

func TestCaptureEvidenceRequiresFullCapture(t *testing.T) {
	l := NewLogger(true, false, t.TempDir())
	l.LogDocumentStart(capture("a-high"))
	l.CaptureEvidence("a-high", "<div><strong>Unranked</strong></div>")
	if got := l.Evidence("a-high"); got != "" {
		t.Errorf("evidence captured without full capture: %q", got)
	}
}

func TestCaptureEvidenceMarkdown(t *testing.T) {
	l := NewLogger(true, true, t.TempDir())
	l.LogDocumentStart(capture("a-high"))
	l.CaptureEvidence("a-high", "<div><strong>Unranked</strong> no ranking data</div>")
	got := l.Evidence("a-high")
	if !strings.Contains(got, "**Unranked**") {
		t.Errorf("evidence = %q, want strong text rendered as markdown", got)
	}
}

func TestConcurrentDocumentLogging(t *testing.T) {
	l := NewLogger(true, false, t.TempDir())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			slug := "school-" + string(rune('a'+n))
			l.LogDocumentStart(capture(slug))
			l.LogDocumentComplete(schema.ExtractionResult{Record: schema.SchoolRecord{Slug: slug}})
		}(i)
	}
	wg.Wait()
	if err := l.Finalize(); err != nil {
		t.Fatalf("Finalize() error: %v", err)
	}
}
