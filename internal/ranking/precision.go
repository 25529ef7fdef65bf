package ranking

import "github.com/jshin42/highschooltrends/internal/schema"

// DerivePrecision maps a national rank to its publication bucket. Ranks in
// the first bucket are published exactly; ranks in the second are only
// published as a wide band ending at the bucket ceiling; anything above is
// an estimate.
func DerivePrecision(rank int) (precision schema.NationalPrecision, end *int) {
	switch {
	case rank >= 1 && rank <= schema.ExactRankMax:
		return schema.PrecisionExact, nil
	case rank >= schema.RangeRankMin && rank <= schema.RangeRankMax:
		e := schema.RangeRankMax
		return schema.PrecisionRange, &e
	default:
		return schema.PrecisionEstimated, nil
	}
}
