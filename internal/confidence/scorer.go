// Package confidence rolls per-field confidences up into category scores
// and a weighted overall score, applies cross-field sanity adjustments,
// and decides record acceptance.
package confidence

import "github.com/jshin42/highschooltrends/internal/schema"

// Weights is the category weighting for the overall score.
type Weights map[schema.Category]float64

// DefaultWeights returns the production category weights.
func DefaultWeights() Weights {
	return Weights{
		schema.CategoryIdentity:     0.25,
		schema.CategoryRankings:     0.20,
		schema.CategoryPerformance:  0.20,
		schema.CategoryDemographics: 0.15,
		schema.CategoryLocation:     0.10,
		schema.CategoryCapacity:     0.10,
	}
}

// Thresholds gates record acceptance.
type Thresholds struct {
	MinOverall    float64
	MinIdentity   float64
	MinSupporting float64
}

// DefaultThresholds returns the production acceptance gate.
func DefaultThresholds() Thresholds {
	return Thresholds{MinOverall: 60, MinIdentity: 40, MinSupporting: 50}
}

// Scores is the scorer output.
type Scores struct {
	Categories map[schema.Category]float64
	Overall    float64
	Accepted   bool
}

// fieldCategory maps every field name to its rollup category.
var fieldCategory = map[string]schema.Category{
	"name": schema.CategoryIdentity, "grades": schema.CategoryIdentity,
	"setting": schema.CategoryIdentity,
	"street":  schema.CategoryLocation, "city": schema.CategoryLocation,
	"state": schema.CategoryLocation, "zip_code": schema.CategoryLocation,
	"phone": schema.CategoryLocation, "website": schema.CategoryLocation,
	"enrollment": schema.CategoryCapacity, "student_teacher_ratio": schema.CategoryCapacity,
	"full_time_teachers": schema.CategoryCapacity,
	"national_rank":      schema.CategoryRankings, "state_rank": schema.CategoryRankings,
	"is_unranked":           schema.CategoryRankings,
	"ap_participation_rate": schema.CategoryPerformance, "ap_pass_rate": schema.CategoryPerformance,
	"math_proficiency": schema.CategoryPerformance, "reading_proficiency": schema.CategoryPerformance,
	"science_proficiency": schema.CategoryPerformance, "graduation_rate": schema.CategoryPerformance,
	"college_readiness_index": schema.CategoryPerformance,
	"white_pct":               schema.CategoryDemographics, "asian_pct": schema.CategoryDemographics,
	"hispanic_pct": schema.CategoryDemographics, "black_pct": schema.CategoryDemographics,
	"american_indian_pct": schema.CategoryDemographics, "two_or_more_pct": schema.CategoryDemographics,
	"female_pct": schema.CategoryDemographics, "male_pct": schema.CategoryDemographics,
	"econ_disadvantaged_pct": schema.CategoryDemographics,
}

// CategoryOf returns the rollup category for a field name.
func CategoryOf(field string) (schema.Category, bool) {
	c, ok := fieldCategory[field]
	return c, ok
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Score computes category rollups and the weighted overall for a record.
// A category is as good as its best-extracted member: the rollup is the
// max of contributing field confidences. The cross-field adjustments then
// reward internally consistent data and punish contradictions.
func Score(rec *schema.SchoolRecord, fields map[string]float64, weights Weights, thresholds Thresholds) Scores {
	categories := make(map[schema.Category]float64, len(weights))
	for field, conf := range fields {
		cat, ok := fieldCategory[field]
		if !ok {
			continue
		}
		if conf > categories[cat] {
			categories[cat] = clamp(conf)
		}
	}

	applyAdjustments(rec, categories)

	var weightedSum, weightSum float64
	for cat, weight := range weights {
		conf := categories[cat]
		if conf <= 0 {
			continue
		}
		weightedSum += conf * weight
		weightSum += weight
	}
	overall := 0.0
	if weightSum > 0 {
		overall = clamp(weightedSum / weightSum)
	}

	accepted := overall >= thresholds.MinOverall && categories[schema.CategoryIdentity] >= thresholds.MinIdentity
	if accepted {
		supporting := false
		for cat, conf := range categories {
			if cat != schema.CategoryIdentity && conf >= thresholds.MinSupporting {
				supporting = true
				break
			}
		}
		accepted = supporting
	}

	return Scores{Categories: categories, Overall: overall, Accepted: accepted}
}

func applyAdjustments(rec *schema.SchoolRecord, categories map[schema.Category]float64) {
	if race := rec.RacePcts(); len(race) == 6 {
		var sum float64
		for _, v := range race {
			sum += v
		}
		switch {
		case sum >= 95 && sum <= 105:
			categories[schema.CategoryDemographics] = clamp(categories[schema.CategoryDemographics] + 10)
		case sum > 110 || sum < 80:
			categories[schema.CategoryDemographics] = clamp(categories[schema.CategoryDemographics] - 15)
		}
	}

	if rec.FemalePct != nil && rec.MalePct != nil {
		sum := *rec.FemalePct + *rec.MalePct
		if sum >= 95 && sum <= 105 {
			categories[schema.CategoryDemographics] = clamp(categories[schema.CategoryDemographics] + 5)
		} else {
			categories[schema.CategoryDemographics] = clamp(categories[schema.CategoryDemographics] - 10)
		}
	}

	if rec.NationalRank != nil && rec.StateRank != nil {
		if *rec.NationalRank > *rec.StateRank {
			categories[schema.CategoryRankings] = clamp(categories[schema.CategoryRankings] + 5)
		} else {
			categories[schema.CategoryRankings] = clamp(categories[schema.CategoryRankings] - 10)
		}
	}

	if rec.Enrollment != nil && rec.FullTimeTeachers != nil && *rec.FullTimeTeachers > 0 {
		ratio := float64(*rec.Enrollment) / float64(*rec.FullTimeTeachers)
		if ratio >= 8 && ratio <= 35 {
			categories[schema.CategoryCapacity] = clamp(categories[schema.CategoryCapacity] + 5)
		}
	}
}
