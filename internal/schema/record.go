// Package schema defines the record model shared across the extraction
// pipeline: capture metadata in, normalized school records plus structured
// extraction errors out.
package schema

import (
	"fmt"
	"time"
)

// ExtractionStatus tracks a record through its extraction lifecycle.
type ExtractionStatus string

const (
	// StatusPending indicates the document has not been processed yet.
	StatusPending ExtractionStatus = "pending"
	// StatusExtracting indicates a worker is currently processing the document.
	StatusExtracting ExtractionStatus = "extracting"
	// StatusExtracted indicates at least 80% of mandatory fields were populated.
	StatusExtracted ExtractionStatus = "extracted"
	// StatusPartial indicates at least 30% of mandatory fields were populated.
	StatusPartial ExtractionStatus = "partial"
	// StatusFailed indicates the document produced no usable record.
	StatusFailed ExtractionStatus = "failed"
)

// NationalPrecision describes how a national rank should be compared.
type NationalPrecision string

const (
	// PrecisionExact marks a uniquely published national rank.
	PrecisionExact NationalPrecision = "exact"
	// PrecisionRange marks a wide-band bucket rank (start/end pair).
	PrecisionRange NationalPrecision = "range"
	// PrecisionEstimated marks a rank outside the published bands.
	PrecisionEstimated NationalPrecision = "estimated"
)

// StatePrecision describes how a state rank should be compared.
type StatePrecision string

const (
	// StatePrecisionExact marks a state rank extracted alongside a national rank.
	StatePrecisionExact StatePrecision = "exact"
	// StatePrecisionStateOnly marks a state rank with no national counterpart.
	StatePrecisionStateOnly StatePrecision = "state_only"
	// StatePrecisionEstimated marks a state rank from a loose fallback match.
	StatePrecisionEstimated StatePrecision = "estimated"
)

// Category groups record fields for confidence rollups.
type Category string

const (
	CategoryIdentity     Category = "identity"
	CategoryLocation     Category = "location"
	CategoryCapacity     Category = "capacity"
	CategoryRankings     Category = "rankings"
	CategoryPerformance  Category = "performance"
	CategoryDemographics Category = "demographics"
)

// Categories lists all rollup categories in weight order.
func Categories() []Category {
	return []Category{
		CategoryIdentity,
		CategoryRankings,
		CategoryPerformance,
		CategoryDemographics,
		CategoryLocation,
		CategoryCapacity,
	}
}

// SchoolRecord is the normalized output entity for one captured document.
// Every non-identity field is optional; nil means "not extracted".
type SchoolRecord struct {
	Slug       string `json:"slug"`
	SourceYear int    `json:"source_year"`
	SourceFile string `json:"source_file,omitempty"`

	// Identity & location
	Name       *string `json:"name,omitempty"`
	Grades     *string `json:"grades,omitempty"`
	Street     *string `json:"street,omitempty"`
	City       *string `json:"city,omitempty"`
	State      *string `json:"state,omitempty"`
	ZipCode    *string `json:"zip_code,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Website    *string `json:"website,omitempty"`
	SettingClassification *string `json:"setting_classification,omitempty"`

	// Capacity
	Enrollment          *int    `json:"enrollment,omitempty"`
	StudentTeacherRatio *string `json:"student_teacher_ratio,omitempty"`
	FullTimeTeachers    *int    `json:"full_time_teachers,omitempty"`

	// Rankings
	NationalRank          *int               `json:"national_rank,omitempty"`
	NationalRankEnd       *int               `json:"national_rank_end,omitempty"`
	NationalRankPrecision *NationalPrecision `json:"national_rank_precision,omitempty"`
	StateRank             *int               `json:"state_rank,omitempty"`
	StateRankPrecision    *StatePrecision    `json:"state_rank_precision,omitempty"`
	IsUnranked            bool               `json:"is_unranked"`
	UnrankedReason        *string            `json:"unranked_reason,omitempty"`

	// Performance
	APParticipationRate *float64 `json:"ap_participation_rate,omitempty"`
	APPassRate          *float64 `json:"ap_pass_rate,omitempty"`
	MathProficiency     *float64 `json:"math_proficiency,omitempty"`
	ReadingProficiency  *float64 `json:"reading_proficiency,omitempty"`
	ScienceProficiency  *float64 `json:"science_proficiency,omitempty"`
	GraduationRate      *float64 `json:"graduation_rate,omitempty"`
	CollegeReadiness    *float64 `json:"college_readiness_index,omitempty"`

	// Demographics
	WhitePct              *float64 `json:"white_pct,omitempty"`
	AsianPct              *float64 `json:"asian_pct,omitempty"`
	HispanicPct           *float64 `json:"hispanic_pct,omitempty"`
	BlackPct              *float64 `json:"black_pct,omitempty"`
	AmericanIndianPct     *float64 `json:"american_indian_pct,omitempty"`
	TwoOrMorePct          *float64 `json:"two_or_more_pct,omitempty"`
	FemalePct             *float64 `json:"female_pct,omitempty"`
	MalePct               *float64 `json:"male_pct,omitempty"`
	EconDisadvantagedPct  *float64 `json:"econ_disadvantaged_pct,omitempty"`

	// Provenance
	ExtractionStatus     ExtractionStatus     `json:"extraction_status"`
	OverallConfidence    float64              `json:"overall_confidence"`
	CategoryConfidences  map[Category]float64 `json:"category_confidences,omitempty"`
	ExtractionErrors     []ExtractionError    `json:"extraction_errors,omitempty"`
	ExtractedAt          time.Time            `json:"extracted_at,omitempty"`
}

// percentFields returns every percentage pointer for invariant checks.
func (r *SchoolRecord) percentFields() map[string]*float64 {
	return map[string]*float64{
		"ap_participation_rate":  r.APParticipationRate,
		"ap_pass_rate":           r.APPassRate,
		"math_proficiency":       r.MathProficiency,
		"reading_proficiency":    r.ReadingProficiency,
		"science_proficiency":    r.ScienceProficiency,
		"graduation_rate":        r.GraduationRate,
		"white_pct":              r.WhitePct,
		"asian_pct":              r.AsianPct,
		"hispanic_pct":           r.HispanicPct,
		"black_pct":              r.BlackPct,
		"american_indian_pct":    r.AmericanIndianPct,
		"two_or_more_pct":        r.TwoOrMorePct,
		"female_pct":             r.FemalePct,
		"male_pct":               r.MalePct,
		"econ_disadvantaged_pct": r.EconDisadvantagedPct,
	}
}

// RacePcts returns the race percentage values that are present.
func (r *SchoolRecord) RacePcts() []float64 {
	var out []float64
	for _, p := range []*float64{r.WhitePct, r.AsianPct, r.HispanicPct, r.BlackPct, r.AmericanIndianPct, r.TwoOrMorePct} {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// Bucket boundaries for national ranks. Exact ranks are published uniquely;
// the range bucket is published only as a wide band.
const (
	ExactRankMax  = 13426
	RangeRankMin  = 13427
	RangeRankMax  = 17901
	MaxNationalRank = 50000
	MaxStateRank    = 10000
)

// Validate checks the record against the model invariants. It returns all
// violations rather than stopping at the first one.
func (r *SchoolRecord) Validate() []error {
	var errs []error

	for name, p := range r.percentFields() {
		if p != nil && (*p < 0 || *p > 100) {
			errs = append(errs, fmt.Errorf("%s out of range: %.2f", name, *p))
		}
	}

	if r.NationalRank != nil && (*r.NationalRank < 1 || *r.NationalRank > MaxNationalRank) {
		errs = append(errs, fmt.Errorf("national_rank out of range: %d", *r.NationalRank))
	}
	if r.StateRank != nil && (*r.StateRank < 1 || *r.StateRank > MaxStateRank) {
		errs = append(errs, fmt.Errorf("state_rank out of range: %d", *r.StateRank))
	}

	if r.NationalRankPrecision != nil && r.NationalRank != nil {
		switch *r.NationalRankPrecision {
		case PrecisionExact:
			if *r.NationalRank > ExactRankMax {
				errs = append(errs, fmt.Errorf("exact national_rank above bucket boundary: %d", *r.NationalRank))
			}
		case PrecisionRange:
			if r.NationalRankEnd == nil {
				errs = append(errs, fmt.Errorf("range precision without national_rank_end"))
			} else {
				if *r.NationalRankEnd < *r.NationalRank {
					errs = append(errs, fmt.Errorf("national_rank_end %d below national_rank %d", *r.NationalRankEnd, *r.NationalRank))
				}
				if *r.NationalRank < RangeRankMin || *r.NationalRankEnd > RangeRankMax {
					errs = append(errs, fmt.Errorf("range [%d,%d] outside bucket [%d,%d]", *r.NationalRank, *r.NationalRankEnd, RangeRankMin, RangeRankMax))
				}
			}
		}
	}
	if r.NationalRankEnd != nil && (r.NationalRankPrecision == nil || *r.NationalRankPrecision != PrecisionRange) {
		errs = append(errs, fmt.Errorf("national_rank_end set without range precision"))
	}

	if r.IsUnranked && (r.NationalRank != nil || r.StateRank != nil) {
		errs = append(errs, fmt.Errorf("unranked record carries rank values"))
	}
	if !r.IsUnranked && r.NationalRank == nil && r.StateRank == nil && r.ExtractionStatus == StatusExtracted {
		errs = append(errs, fmt.Errorf("extracted record has neither ranks nor an unranked verdict"))
	}

	if race := r.RacePcts(); len(race) == 6 {
		var sum float64
		for _, v := range race {
			sum += v
		}
		if sum < 95 || sum > 105 {
			errs = append(errs, fmt.Errorf("race percentages sum to %.1f", sum))
		}
	}
	if r.FemalePct != nil && r.MalePct != nil {
		sum := *r.FemalePct + *r.MalePct
		if sum < 95 || sum > 105 {
			errs = append(errs, fmt.Errorf("gender percentages sum to %.1f", sum))
		}
	}

	if r.Enrollment != nil && r.FullTimeTeachers != nil && *r.FullTimeTeachers > 0 {
		ratio := float64(*r.Enrollment) / float64(*r.FullTimeTeachers)
		if ratio < 5 || ratio > 50 {
			errs = append(errs, fmt.Errorf("enrollment/teacher ratio %.1f outside [5,50]", ratio))
		}
	}

	if r.OverallConfidence < 0 || r.OverallConfidence > 100 {
		errs = append(errs, fmt.Errorf("overall confidence out of range: %.1f", r.OverallConfidence))
	}
	for cat, v := range r.CategoryConfidences {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Errorf("%s confidence out of range: %.1f", cat, v))
		}
	}

	return errs
}
