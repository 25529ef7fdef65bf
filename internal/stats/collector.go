// Package stats provides collection and aggregation of batch extraction
// results.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/jshin42/highschooltrends/internal/schema"
)

// Result captures the outcome of one document extraction.
type Result struct {
	Slug              string                      `json:"slug"`
	SourceYear        int                         `json:"source_year"`
	Status            schema.ExtractionStatus     `json:"status"`
	Accepted          bool                        `json:"accepted"`
	OverallConfidence float64                     `json:"overall_confidence"`
	Categories        map[schema.Category]float64 `json:"categories,omitempty"`
	ErrorKinds        map[schema.ErrorKind]int    `json:"error_kinds,omitempty"`
	Unranked          bool                        `json:"unranked,omitempty"`
	NationalRank      *int                        `json:"national_rank,omitempty"`
	Elapsed           time.Duration               `json:"elapsed"`
	Timestamp         time.Time                   `json:"timestamp"`
}

// FromExtraction builds a Result from an extraction outcome.
func FromExtraction(res schema.ExtractionResult) Result {
	kinds := make(map[schema.ErrorKind]int)
	for _, e := range res.Errors {
		kinds[e.Kind]++
	}
	return Result{
		Slug:              res.Record.Slug,
		SourceYear:        res.Record.SourceYear,
		Status:            res.Record.ExtractionStatus,
		Accepted:          res.Accepted,
		OverallConfidence: res.Record.OverallConfidence,
		Categories:        res.Record.CategoryConfidences,
		ErrorKinds:        kinds,
		Unranked:          res.Record.IsUnranked,
		NationalRank:      res.Record.NationalRank,
		Elapsed:           res.Elapsed,
		Timestamp:         res.Record.ExtractedAt,
	}
}

// Summary contains aggregated metrics for one batch.
type Summary struct {
	TotalDocuments  int     `json:"total_documents"`
	Extracted       int     `json:"extracted"`
	Partial         int     `json:"partial"`
	Failed          int     `json:"failed"`
	Accepted        int     `json:"accepted"`
	Unranked        int     `json:"unranked"`
	AcceptanceRate  float64 `json:"acceptance_rate"`
	SuccessRate     float64 `json:"success_rate"`
	AvgConfidence   float64 `json:"avg_confidence"`
	MinConfidence   float64 `json:"min_confidence"`
	MaxConfidence   float64 `json:"max_confidence"`
	P50Elapsed      time.Duration `json:"p50_elapsed"`
	P95Elapsed      time.Duration `json:"p95_elapsed"`
	TotalElapsed    time.Duration `json:"total_elapsed"`

	// Confidence distribution buckets keyed "0-19" .. "80-100".
	ConfidenceDist map[string]int `json:"confidence_dist"`

	// Per-category confidence averages over documents carrying the category.
	CategoryAvg map[schema.Category]float64 `json:"category_avg,omitempty"`

	// Error breakdown across all documents.
	ErrorBreakdown map[schema.ErrorKind]int `json:"error_breakdown,omitempty"`
}

// Collector handles collection and aggregation of extraction results
type Collector struct {
	results []Result
	mu      sync.RWMutex
}

// NewCollector creates a new collector
func NewCollector() *Collector {
	return &Collector{
		results: make([]Result, 0),
	}
}

// AddResult adds a document result to the collector
func (c *Collector) AddResult(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

// GetResults returns a copy of all collected results
func (c *Collector) GetResults() []Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	results := make([]Result, len(c.results))
	copy(results, c.results)
	return results
}

// ComputeSummary aggregates the collected results.
func (c *Collector) ComputeSummary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Summary{
		TotalDocuments: len(c.results),
		ConfidenceDist: map[string]int{},
		CategoryAvg:    map[schema.Category]float64{},
		ErrorBreakdown: map[schema.ErrorKind]int{},
	}
	if len(c.results) == 0 {
		return s
	}

	catSums := map[schema.Category]float64{}
	catCounts := map[schema.Category]int{}
	var confSum float64
	s.MinConfidence = 101
	elapsed := make([]time.Duration, 0, len(c.results))

	for _, r := range c.results {
		switch r.Status {
		case schema.StatusExtracted:
			s.Extracted++
		case schema.StatusPartial:
			s.Partial++
		default:
			s.Failed++
		}
		if r.Accepted {
			s.Accepted++
		}
		if r.Unranked {
			s.Unranked++
		}

		confSum += r.OverallConfidence
		if r.OverallConfidence < s.MinConfidence {
			s.MinConfidence = r.OverallConfidence
		}
		if r.OverallConfidence > s.MaxConfidence {
			s.MaxConfidence = r.OverallConfidence
		}
		s.ConfidenceDist[confBucket(r.OverallConfidence)]++

		for cat, v := range r.Categories {
			if v > 0 {
				catSums[cat] += v
				catCounts[cat]++
			}
		}
		for kind, n := range r.ErrorKinds {
			s.ErrorBreakdown[kind] += n
		}
		elapsed = append(elapsed, r.Elapsed)
		s.TotalElapsed += r.Elapsed
	}

	s.AvgConfidence = confSum / float64(len(c.results))
	s.AcceptanceRate = float64(s.Accepted) / float64(len(c.results)) * 100
	s.SuccessRate = float64(s.Extracted+s.Partial) / float64(len(c.results)) * 100
	for cat, sum := range catSums {
		s.CategoryAvg[cat] = sum / float64(catCounts[cat])
	}

	sort.Slice(elapsed, func(i, j int) bool { return elapsed[i] < elapsed[j] })
	s.P50Elapsed = percentile(elapsed, 50)
	s.P95Elapsed = percentile(elapsed, 95)

	return s
}

func confBucket(v float64) string {
	switch {
	case v >= 80:
		return "80-100"
	case v >= 60:
		return "60-79"
	case v >= 40:
		return "40-59"
	case v >= 20:
		return "20-39"
	default:
		return "0-19"
	}
}

// percentile expects a sorted slice.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
