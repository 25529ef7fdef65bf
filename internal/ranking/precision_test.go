package ranking

import (
	"testing"

	"github.com/jshin42/highschooltrends/internal/schema"
)

func TestDerivePrecision(t *testing.T) {
	tests := []struct {
		rank    int
		want    schema.NationalPrecision
		wantEnd int // 0 means nil
	}{
		{1, schema.PrecisionExact, 0},
		{13426, schema.PrecisionExact, 0},
		{13427, schema.PrecisionRange, 17901},
		{17901, schema.PrecisionRange, 17901},
		{17902, schema.PrecisionEstimated, 0},
		{50000, schema.PrecisionEstimated, 0},
	}
	for _, tt := range tests {
		got, end := DerivePrecision(tt.rank)
		if got != tt.want {
			t.Errorf("DerivePrecision(%d) = %s, want %s", tt.rank, got, tt.want)
		}
		if tt.wantEnd == 0 && end != nil {
			t.Errorf("DerivePrecision(%d) end = %d, want nil", tt.rank, *end)
		}
		if tt.wantEnd != 0 && (end == nil || *end != tt.wantEnd) {
			t.Errorf("DerivePrecision(%d) end = %v, want %d", tt.rank, end, tt.wantEnd)
		}
	}
}

func TestStateNames(t *testing.T) {
	for _, name := range []string{"Texas", "south carolina", "DISTRICT OF COLUMBIA", "Puerto  Rico", "Guam", "Virgin Islands"} {
		if !IsStateName(name) {
			t.Errorf("IsStateName(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"National", "Ontario", "Europe", ""} {
		if IsStateName(name) {
			t.Errorf("IsStateName(%q) = true, want false", name)
		}
	}
	if got := CanonicalStateName("district of columbia"); got != "District of Columbia" {
		t.Errorf("CanonicalStateName = %q", got)
	}
	if got := CanonicalStateName("not a state"); got != "" {
		t.Errorf("CanonicalStateName(non-state) = %q, want empty", got)
	}
}
