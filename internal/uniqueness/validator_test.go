package uniqueness

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jshin42/highschooltrends/internal/observe"
	"github.com/jshin42/highschooltrends/internal/schema"
)

func exactRecord(slug string, year, rank int) *schema.SchoolRecord {
	p := schema.PrecisionExact
	r := rank
	return &schema.SchoolRecord{
		Slug:                  slug,
		SourceYear:            year,
		NationalRank:          &r,
		NationalRankPrecision: &p,
		OverallConfidence:     90,
	}
}

func rangeRecord(slug string, year, rank int) *schema.SchoolRecord {
	p := schema.PrecisionRange
	r := rank
	end := schema.RangeRankMax
	return &schema.SchoolRecord{
		Slug:                  slug,
		SourceYear:            year,
		NationalRank:          &r,
		NationalRankEnd:       &end,
		NationalRankPrecision: &p,
		OverallConfidence:     90,
	}
}

func stateRecord(slug string, year, rank int, state string) *schema.SchoolRecord {
	r := rank
	s := state
	return &schema.SchoolRecord{
		Slug:              slug,
		SourceYear:        year,
		StateRank:         &r,
		State:             &s,
		OverallConfidence: 90,
	}
}

func TestBucketOneCollision(t *testing.T) {
	v := New(observe.Nop())

	first := exactRecord("alpha-high", 2024, 21)
	require.Empty(t, v.Observe(first))
	require.NotNil(t, first.NationalRank, "first-written record is retained")

	second := exactRecord("beta-high", 2024, 21)
	conflicts := v.Observe(second)
	require.Len(t, conflicts, 1)

	c := conflicts[0]
	assert.Equal(t, KindBucketOneCollision, c.Kind)
	assert.Equal(t, SeverityFatal, c.Severity)
	assert.Equal(t, 21, c.Rank)
	assert.Equal(t, 2024, c.Year)
	assert.Equal(t, "beta-high", c.Offender)
	assert.Equal(t, []string{"alpha-high"}, c.ExistingCohort)

	assert.Nil(t, second.NationalRank, "duplicate rank is nulled")
	assert.Nil(t, second.NationalRankPrecision)
	assert.InDelta(t, 40, second.OverallConfidence, 0.001, "confidence reduced by 50")
	assert.NotNil(t, first.NationalRank, "retained record untouched")
	assert.Empty(t, second.Validate(), "nulled record stays internally consistent")
}

func TestExactRanksDistinctAcrossPopulation(t *testing.T) {
	v := New(observe.Nop())
	seen := map[int]bool{}
	for i := 1; i <= 20; i++ {
		rec := exactRecord(fmt.Sprintf("school-%d", i), 2024, 1+i%10)
		v.Observe(rec)
		if rec.NationalRank != nil {
			require.False(t, seen[*rec.NationalRank], "exact rank %d assigned twice", *rec.NationalRank)
			seen[*rec.NationalRank] = true
		}
	}
}

func TestCrossYearReuseIsLegal(t *testing.T) {
	v := New(observe.Nop())
	require.Empty(t, v.Observe(exactRecord("alpha-high", 2024, 21)))
	second := exactRecord("alpha-high", 2025, 21)
	require.Empty(t, v.Observe(second), "same rank in a different year must not conflict")
	require.NotNil(t, second.NationalRank)
}

func TestClusterBound(t *testing.T) {
	v := New(observe.Nop())
	for i := 0; i < 10; i++ {
		rec := rangeRecord(fmt.Sprintf("band-school-%d", i), 2024, 13427)
		require.Empty(t, v.Observe(rec))
	}

	overflow := rangeRecord("band-school-overflow", 2024, 13427)
	conflicts := v.Observe(overflow)
	require.Len(t, conflicts, 1)
	assert.Equal(t, KindClusterBound, conflicts[0].Kind)
	assert.Len(t, conflicts[0].ExistingCohort, 10)
	assert.Nil(t, overflow.NationalRank)
	assert.InDelta(t, 50, overflow.OverallConfidence, 0.001, "confidence reduced by 40")
	assert.Equal(t, 10, v.CohortSize(2024, 13427))
}

func TestStateDuplicateWarns(t *testing.T) {
	v := New(observe.Nop())
	require.Empty(t, v.Observe(stateRecord("first-high", 2024, 12, "TX")))

	dup := stateRecord("second-high", 2024, 12, "TX")
	conflicts := v.Observe(dup)
	require.Len(t, conflicts, 1)
	assert.Equal(t, KindStateDuplicate, conflicts[0].Kind)
	assert.Equal(t, SeverityWarning, conflicts[0].Severity)
	assert.NotNil(t, dup.StateRank, "state duplicates are kept")
	assert.InDelta(t, 60, dup.OverallConfidence, 0.001, "confidence reduced by 30")

	// Same rank in a different state is fine.
	other := stateRecord("third-high", 2024, 12, "OH")
	assert.Empty(t, v.Observe(other))
}

func TestGlobalFrequencyAlert(t *testing.T) {
	v := New(observe.Nop())
	// Spread the same rank value across years so no per-year bound trips.
	total := 0
	var systemic []Conflict
	for year := 2000; year < 2020 && total <= globalFrequencyLimit; year++ {
		for i := 0; i < 3 && total <= globalFrequencyLimit; i++ {
			total++
			rec := rangeRecord(fmt.Sprintf("freq-school-%d", total), year, 14001)
			for _, c := range v.Observe(rec) {
				if c.Kind == KindGlobalFrequency {
					systemic = append(systemic, c)
				}
			}
		}
	}
	require.Len(t, systemic, 1, "alert fires exactly once when crossing the limit")
	assert.Equal(t, SeveritySystemic, systemic[0].Severity)
	assert.Equal(t, 14001, systemic[0].Rank)
}

func TestWindowReport(t *testing.T) {
	v := New(observe.Nop())
	// Three ranks within one 40-wide window, each hosting 5 records.
	for _, rank := range []int{14000, 14010, 14020} {
		for i := 0; i < 5; i++ {
			rec := rangeRecord(fmt.Sprintf("w-%d-%d", rank, i), 2024, rank)
			v.Observe(rec)
		}
	}

	warnings := v.WindowReport(2024)
	require.NotEmpty(t, warnings)
	assert.Equal(t, KindWindowClustering, warnings[0].Kind)
	assert.Equal(t, SeverityWarning, warnings[0].Severity)
	assert.Equal(t, 14000, warnings[0].Rank)
}

func TestWindowReportUnderLimit(t *testing.T) {
	v := New(observe.Nop())
	// Only two hot ranks in the window: allowed.
	for _, rank := range []int{14000, 14010} {
		for i := 0; i < 5; i++ {
			v.Observe(rangeRecord(fmt.Sprintf("w-%d-%d", rank, i), 2024, rank))
		}
	}
	assert.Empty(t, v.WindowReport(2024))
}

func TestConflictsSnapshot(t *testing.T) {
	v := New(observe.Nop())
	v.Observe(exactRecord("a-high", 2024, 5))
	v.Observe(exactRecord("b-high", 2024, 5))

	snapshot := v.Conflicts()
	require.Len(t, snapshot, 1)
	snapshot[0].Kind = "mutated"
	assert.Equal(t, KindBucketOneCollision, v.Conflicts()[0].Kind, "snapshot is a copy")
}
