// Package report generates Markdown and JSON reports from batch
// extraction results and ranking conflicts.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jshin42/highschooltrends/internal/debug"
	"github.com/jshin42/highschooltrends/internal/schema"
	"github.com/jshin42/highschooltrends/internal/stats"
	"github.com/jshin42/highschooltrends/internal/uniqueness"
)

// FormatLatency formats a duration as milliseconds for consistent comparison.
func FormatLatency(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// Generator creates reports from batch results
type Generator struct {
	collector *stats.Collector
	conflicts []uniqueness.Conflict
	dbg       *debug.Logger
	outputDir string
}

// NewGenerator creates a new report generator. The debug logger is
// optional; when it captured ranking-section evidence, conflict entries
// link to it.
func NewGenerator(collector *stats.Collector, conflicts []uniqueness.Conflict, dbg *debug.Logger, outputDir string) *Generator {
	return &Generator{
		collector: collector,
		conflicts: conflicts,
		dbg:       dbg,
		outputDir: outputDir,
	}
}

// GenerateAll generates every report format
func (g *Generator) GenerateAll() error {
	if err := g.GenerateMarkdown(); err != nil {
		return fmt.Errorf("failed to generate markdown report: %w", err)
	}
	if err := g.GenerateJSON(); err != nil {
		return fmt.Errorf("failed to generate JSON report: %w", err)
	}
	return nil
}

type jsonReport struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Summary     stats.Summary         `json:"summary"`
	Conflicts   []uniqueness.Conflict `json:"conflicts,omitempty"`
	Results     []stats.Result        `json:"results"`
}

// GenerateJSON writes the machine-readable batch report.
func (g *Generator) GenerateJSON() error {
	payload := jsonReport{
		GeneratedAt: time.Now(),
		Summary:     g.collector.ComputeSummary(),
		Conflicts:   g.conflicts,
		Results:     g.collector.GetResults(),
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	path := filepath.Join(g.outputDir, "report.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	return nil
}

// GenerateMarkdown writes the operator-facing batch report.
func (g *Generator) GenerateMarkdown() error {
	var b strings.Builder
	summary := g.collector.ComputeSummary()

	b.WriteString("# Extraction Batch Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().Format(time.RFC3339))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Documents | %d |\n", summary.TotalDocuments)
	fmt.Fprintf(&b, "| Extracted | %d |\n", summary.Extracted)
	fmt.Fprintf(&b, "| Partial | %d |\n", summary.Partial)
	fmt.Fprintf(&b, "| Failed | %d |\n", summary.Failed)
	fmt.Fprintf(&b, "| Accepted | %d (%.1f%%) |\n", summary.Accepted, summary.AcceptanceRate)
	fmt.Fprintf(&b, "| Unranked | %d |\n", summary.Unranked)
	fmt.Fprintf(&b, "| Avg confidence | %.1f |\n", summary.AvgConfidence)
	fmt.Fprintf(&b, "| P50 / P95 per doc | %s / %s |\n\n",
		FormatLatency(summary.P50Elapsed), FormatLatency(summary.P95Elapsed))

	if len(summary.ConfidenceDist) > 0 {
		b.WriteString("## Confidence distribution\n\n")
		buckets := make([]string, 0, len(summary.ConfidenceDist))
		for bucket := range summary.ConfidenceDist {
			buckets = append(buckets, bucket)
		}
		sort.Strings(buckets)
		for _, bucket := range buckets {
			fmt.Fprintf(&b, "- %s: %d\n", bucket, summary.ConfidenceDist[bucket])
		}
		b.WriteString("\n")
	}

	if len(summary.ErrorBreakdown) > 0 {
		b.WriteString("## Error breakdown\n\n")
		kinds := make([]string, 0, len(summary.ErrorBreakdown))
		for kind := range summary.ErrorBreakdown {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(&b, "- %s: %d\n", kind, summary.ErrorBreakdown[schema.ErrorKind(kind)])
		}
		b.WriteString("\n")
	}

	if len(g.conflicts) > 0 {
		b.WriteString("## Ranking conflicts\n\n")
		b.WriteString("| Kind | Severity | Rank | Year | Offender | Cohort |\n|---|---|---|---|---|---|\n")
		for _, c := range g.conflicts {
			fmt.Fprintf(&b, "| %s | %s | %d | %d | %s | %s |\n",
				c.Kind, c.Severity, c.Rank, c.Year, c.Offender, strings.Join(c.ExistingCohort, ", "))
		}
		b.WriteString("\n")
		g.writeConflictEvidence(&b)
	}

	path := filepath.Join(g.outputDir, "report.md")
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write Markdown report: %w", err)
	}
	return nil
}

// writeConflictEvidence appends the captured ranking-section markdown for
// each conflicting record, when the debug logger has it.
func (g *Generator) writeConflictEvidence(b *strings.Builder) {
	if g.dbg == nil || !g.dbg.FullCapture() {
		return
	}
	seen := map[string]struct{}{}
	for _, c := range g.conflicts {
		if c.Offender == "" {
			continue
		}
		if _, dup := seen[c.Offender]; dup {
			continue
		}
		seen[c.Offender] = struct{}{}
		evidence := g.dbg.Evidence(c.Offender)
		if evidence == "" {
			continue
		}
		fmt.Fprintf(b, "### Ranking section: %s\n\n%s\n\n", c.Offender, evidence)
	}
}
