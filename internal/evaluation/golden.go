// Package evaluation provides golden dataset management and regression
// detection between snapshot batches. A golden dataset pins the expected
// extraction for known slugs; a baseline stores the previous batch's
// scores so a selector rot or layout change surfaces as a regression
// instead of silently degraded records.
package evaluation

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/jshin42/highschooltrends/internal/schema"
	"github.com/jshin42/highschooltrends/internal/stats"
)

// GoldenDataset represents a set of canonical documents with expected results
type GoldenDataset struct {
	Version   string       `json:"version"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Cases     []GoldenCase `json:"cases"`
}

// GoldenCase pins the expected extraction for one slug
type GoldenCase struct {
	Slug          string `json:"slug"`
	SourceYear    int    `json:"source_year"`
	ExpectNationalRank *int                     `json:"expect_national_rank,omitempty"`
	ExpectStateRank    *int                     `json:"expect_state_rank,omitempty"`
	ExpectUnranked     bool                     `json:"expect_unranked,omitempty"`
	ExpectStatus       schema.ExtractionStatus  `json:"expect_status,omitempty"`
	MinConfidence      float64                  `json:"min_confidence"`
}

// BaselineScores stores the previous batch's per-slug scores
type BaselineScores struct {
	Version    string                   `json:"version"`
	CreatedAt  time.Time                `json:"created_at"`
	SlugScores map[string]SlugBaseline `json:"slug_scores"`
}

// SlugBaseline stores the baseline for one document
type SlugBaseline struct {
	Slug       string                  `json:"slug"`
	Confidence float64                 `json:"confidence"`
	Status     schema.ExtractionStatus `json:"status"`
	ElapsedMs  float64                 `json:"elapsed_ms"`
}

// RegressionResult represents a detected regression
type RegressionResult struct {
	Slug          string  `json:"slug"`
	Metric        string  `json:"metric"` // confidence, status, expectation
	BaselineValue float64 `json:"baseline_value,omitempty"`
	CurrentValue  float64 `json:"current_value,omitempty"`
	ChangePercent float64 `json:"change_percent,omitempty"`
	Detail        string  `json:"detail,omitempty"`
	Severity      string  `json:"severity"` // critical, warning, info
}

// regressionThreshold is the relative confidence drop that flags a warning;
// twice that flags critical.
const regressionThreshold = 0.10

// GoldenManager manages the golden dataset and baseline scores
type GoldenManager struct {
	datasetPath  string
	baselinePath string
	dataset      *GoldenDataset
	baseline     *BaselineScores
}

// NewGoldenManager creates a new golden manager
func NewGoldenManager(datasetPath, baselinePath string) *GoldenManager {
	return &GoldenManager{
		datasetPath:  datasetPath,
		baselinePath: baselinePath,
	}
}

// LoadDataset loads the golden dataset from disk
func (m *GoldenManager) LoadDataset() error {
	data, err := os.ReadFile(m.datasetPath)
	if err != nil {
		if os.IsNotExist(err) {
			m.dataset = &GoldenDataset{
				Version:   "1.0",
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
				Cases:     []GoldenCase{},
			}
			return nil
		}
		return fmt.Errorf("failed to read dataset: %w", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return fmt.Errorf("failed to parse dataset: %w", err)
	}
	m.dataset = &dataset
	return nil
}

// SaveDataset saves the golden dataset to disk
func (m *GoldenManager) SaveDataset() error {
	if m.dataset == nil {
		return fmt.Errorf("no dataset loaded")
	}
	m.dataset.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(m.dataset, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}
	// #nosec G306 - 0640 allows owner/group to read, which is appropriate for dataset files
	if err := os.WriteFile(m.datasetPath, data, 0640); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}

// LoadBaseline loads baseline scores from disk
func (m *GoldenManager) LoadBaseline() error {
	data, err := os.ReadFile(m.baselinePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.baseline = &BaselineScores{
				Version:    "1.0",
				CreatedAt:  time.Now(),
				SlugScores: make(map[string]SlugBaseline),
			}
			return nil
		}
		return fmt.Errorf("failed to read baseline: %w", err)
	}

	var baseline BaselineScores
	if err := json.Unmarshal(data, &baseline); err != nil {
		return fmt.Errorf("failed to parse baseline: %w", err)
	}
	m.baseline = &baseline
	return nil
}

// SaveBaseline saves baseline scores to disk
func (m *GoldenManager) SaveBaseline() error {
	if m.baseline == nil {
		return fmt.Errorf("no baseline loaded")
	}
	data, err := json.MarshalIndent(m.baseline, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal baseline: %w", err)
	}
	// #nosec G306 - 0640 allows owner/group to read
	if err := os.WriteFile(m.baselinePath, data, 0640); err != nil {
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	return nil
}

// AddCase adds or updates a case in the golden dataset
func (m *GoldenManager) AddCase(c GoldenCase) error {
	if m.dataset == nil {
		if err := m.LoadDataset(); err != nil {
			return err
		}
	}
	for i, existing := range m.dataset.Cases {
		if existing.Slug == c.Slug && existing.SourceYear == c.SourceYear {
			m.dataset.Cases[i] = c
			return m.SaveDataset()
		}
	}
	m.dataset.Cases = append(m.dataset.Cases, c)
	return m.SaveDataset()
}

// UpdateBaseline replaces the baseline with the current batch's scores.
func (m *GoldenManager) UpdateBaseline(results []stats.Result) error {
	if m.baseline == nil {
		if err := m.LoadBaseline(); err != nil {
			return err
		}
	}
	for _, r := range results {
		m.baseline.SlugScores[r.Slug] = SlugBaseline{
			Slug:       r.Slug,
			Confidence: r.OverallConfidence,
			Status:     r.Status,
			ElapsedMs:  float64(r.Elapsed.Milliseconds()),
		}
	}
	return m.SaveBaseline()
}

// CheckGolden verifies batch results against the pinned expectations.
func (m *GoldenManager) CheckGolden(records map[string]*schema.SchoolRecord) []RegressionResult {
	if m.dataset == nil {
		return nil
	}
	var out []RegressionResult
	for _, c := range m.dataset.Cases {
		rec, ok := records[c.Slug]
		if !ok {
			out = append(out, RegressionResult{
				Slug: c.Slug, Metric: "expectation", Severity: "critical",
				Detail: "golden slug missing from batch",
			})
			continue
		}
		if c.ExpectUnranked != rec.IsUnranked {
			out = append(out, RegressionResult{
				Slug: c.Slug, Metric: "expectation", Severity: "critical",
				Detail: fmt.Sprintf("unranked = %v, expected %v", rec.IsUnranked, c.ExpectUnranked),
			})
		}
		if c.ExpectNationalRank != nil && (rec.NationalRank == nil || *rec.NationalRank != *c.ExpectNationalRank) {
			out = append(out, RegressionResult{
				Slug: c.Slug, Metric: "expectation", Severity: "critical",
				Detail: fmt.Sprintf("national_rank = %v, expected %d", rec.NationalRank, *c.ExpectNationalRank),
			})
		}
		if c.ExpectStateRank != nil && (rec.StateRank == nil || *rec.StateRank != *c.ExpectStateRank) {
			out = append(out, RegressionResult{
				Slug: c.Slug, Metric: "expectation", Severity: "critical",
				Detail: fmt.Sprintf("state_rank = %v, expected %d", rec.StateRank, *c.ExpectStateRank),
			})
		}
		if c.ExpectStatus != "" && rec.ExtractionStatus != c.ExpectStatus {
			out = append(out, RegressionResult{
				Slug: c.Slug, Metric: "status", Severity: "warning",
				Detail: fmt.Sprintf("status = %s, expected %s", rec.ExtractionStatus, c.ExpectStatus),
			})
		}
		if c.MinConfidence > 0 && rec.OverallConfidence < c.MinConfidence {
			out = append(out, RegressionResult{
				Slug: c.Slug, Metric: "confidence", Severity: "warning",
				BaselineValue: c.MinConfidence, CurrentValue: rec.OverallConfidence,
				Detail: "confidence below golden minimum",
			})
		}
	}
	return out
}

// DetectRegressions compares the current batch to the stored baseline.
func (m *GoldenManager) DetectRegressions(results []stats.Result) []RegressionResult {
	if m.baseline == nil || len(m.baseline.SlugScores) == 0 {
		return nil
	}
	var out []RegressionResult
	for _, r := range results {
		base, ok := m.baseline.SlugScores[r.Slug]
		if !ok {
			continue
		}
		if base.Confidence > 0 {
			change := (r.OverallConfidence - base.Confidence) / base.Confidence
			if change < -regressionThreshold {
				severity := "warning"
				if change < -2*regressionThreshold {
					severity = "critical"
				}
				out = append(out, RegressionResult{
					Slug:          r.Slug,
					Metric:        "confidence",
					BaselineValue: base.Confidence,
					CurrentValue:  r.OverallConfidence,
					ChangePercent: math.Abs(change) * 100,
					Severity:      severity,
				})
			}
		}
		if statusRank(r.Status) < statusRank(base.Status) {
			out = append(out, RegressionResult{
				Slug:     r.Slug,
				Metric:   "status",
				Detail:   fmt.Sprintf("status fell from %s to %s", base.Status, r.Status),
				Severity: "critical",
			})
		}
	}
	return out
}

func statusRank(s schema.ExtractionStatus) int {
	switch s {
	case schema.StatusExtracted:
		return 2
	case schema.StatusPartial:
		return 1
	default:
		return 0
	}
}
