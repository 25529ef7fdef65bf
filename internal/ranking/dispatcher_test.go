package ranking

import (
	"testing"

	"github.com/jshin42/highschooltrends/internal/schema"
)

func frag(priority int, text string) Fragment {
	return Fragment{Selector: "test", Priority: priority, Text: text}
}

func TestDispatchAuthoritativeInline(t *testing.T) {
	ext, errs := Dispatch([]Fragment{
		frag(1, "This school is ranked #397 nationally."),
		frag(2, "#14,000-17,901 in National Rankings"),
	})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if ext.National == nil {
		t.Fatal("expected national rank")
	}
	if ext.National.Rank != 397 {
		t.Errorf("rank = %d, want 397", ext.National.Rank)
	}
	if ext.National.Precision != schema.PrecisionExact {
		t.Errorf("precision = %s, want exact", ext.National.Precision)
	}
	if ext.National.Confidence != 98 {
		t.Errorf("confidence = %.0f, want 98", ext.National.Confidence)
	}
	if ext.National.RankEnd != nil {
		t.Errorf("rank end = %d, want nil", *ext.National.RankEnd)
	}
}

func TestDispatchAuthoritativeOnlyBindsInFirstPriorityFragment(t *testing.T) {
	// "ranked #397" in a lower-priority fragment must not trigger the
	// authoritative pattern; the range should win instead.
	ext, _ := Dispatch([]Fragment{
		frag(1, "#13,427-17,901"),
		frag(2, "a nearby school is ranked #397"),
	})
	if ext.National == nil {
		t.Fatal("expected national rank")
	}
	if ext.National.Precision != schema.PrecisionRange {
		t.Fatalf("precision = %s, want range", ext.National.Precision)
	}
	if ext.National.Rank != 13427 {
		t.Errorf("rank = %d, want 13427", ext.National.Rank)
	}
}

func TestDispatchBucketTwoRange(t *testing.T) {
	ext, errs := Dispatch([]Fragment{frag(2, "Schools in this band: #13,427-17,901")})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	n := ext.National
	if n == nil {
		t.Fatal("expected national rank")
	}
	if n.Rank != 13427 || n.RankEnd == nil || *n.RankEnd != 17901 {
		t.Errorf("range = [%d, %v], want [13427, 17901]", n.Rank, n.RankEnd)
	}
	if n.Precision != schema.PrecisionRange {
		t.Errorf("precision = %s, want range", n.Precision)
	}
	if n.Confidence != 95 {
		t.Errorf("confidence = %.0f, want 95", n.Confidence)
	}
}

func TestDispatchRangeBoundaryViolationsRejected(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"start below bucket", "#13,000-17,901"},
		{"end above bucket", "#13,427-18,500"},
		{"inverted", "#17,901-13,427"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, errs := Dispatch([]Fragment{frag(2, tt.text)})
			if ext.National != nil {
				t.Fatalf("range %q should be rejected, got rank %d", tt.text, ext.National.Rank)
			}
			if len(errs) == 0 {
				t.Fatal("expected a validation error")
			}
			if errs[0].Kind != schema.ErrValidation {
				t.Errorf("error kind = %s, want validation", errs[0].Kind)
			}
		})
	}
}

func TestDispatchComposite(t *testing.T) {
	ext, errs := Dispatch([]Fragment{frag(2, "#1,102 in National Rankings #10 in South Carolina High Schools")})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if ext.National == nil || ext.State == nil {
		t.Fatalf("expected both ranks, got national=%v state=%v", ext.National, ext.State)
	}
	if ext.National.Rank != 1102 || ext.National.Precision != schema.PrecisionExact {
		t.Errorf("national = %d/%s, want 1102/exact", ext.National.Rank, ext.National.Precision)
	}
	if ext.State.Rank != 10 || ext.State.Precision != schema.StatePrecisionExact {
		t.Errorf("state = %d/%s, want 10/exact", ext.State.Rank, ext.State.Precision)
	}
	if ext.State.StateName != "South Carolina" {
		t.Errorf("state name = %q, want South Carolina", ext.State.StateName)
	}
	if ext.National.Confidence != 95 || ext.State.Confidence != 95 {
		t.Errorf("confidences = %.0f/%.0f, want 95/95", ext.National.Confidence, ext.State.Confidence)
	}
}

func TestDispatchCompositePreemptsStateOnly(t *testing.T) {
	// The state-only regex also matches inside the composite text; the
	// composite must win and tag the state rank exact, not state_only.
	ext, _ := Dispatch([]Fragment{frag(2, "#500 in National Rankings #7 in Texas High Schools")})
	if ext.State == nil {
		t.Fatal("expected state rank")
	}
	if ext.State.Precision != schema.StatePrecisionExact {
		t.Errorf("state precision = %s, want exact", ext.State.Precision)
	}
}

func TestDispatchStateOnly(t *testing.T) {
	ext, _ := Dispatch([]Fragment{frag(2, "#1,092 in Texas High Schools")})
	if ext.National != nil {
		t.Errorf("national should be nil, got %d", ext.National.Rank)
	}
	if ext.State == nil {
		t.Fatal("expected state rank")
	}
	if ext.State.Rank != 1092 || ext.State.Precision != schema.StatePrecisionStateOnly {
		t.Errorf("state = %d/%s, want 1092/state_only", ext.State.Rank, ext.State.Precision)
	}
}

func TestDispatchStateOnlyRejectsUnknownState(t *testing.T) {
	ext, _ := Dispatch([]Fragment{frag(2, "#44 in Ontario High Schools")})
	if ext.State != nil && ext.State.Precision == schema.StatePrecisionStateOnly {
		t.Errorf("unknown state bound as state_only: %+v", ext.State)
	}
}

func TestDispatchStandardNational(t *testing.T) {
	tests := []struct {
		text      string
		rank      int
		precision schema.NationalPrecision
	}{
		{"#842 in National Rankings", 842, schema.PrecisionExact},
		{"#13,500 in National Rankings", 13500, schema.PrecisionRange},
		{"#18,000 in National Rankings", 18000, schema.PrecisionEstimated},
	}
	for _, tt := range tests {
		ext, _ := Dispatch([]Fragment{frag(2, tt.text)})
		if ext.National == nil {
			t.Fatalf("Dispatch(%q) found no national rank", tt.text)
		}
		if ext.National.Rank != tt.rank || ext.National.Precision != tt.precision {
			t.Errorf("Dispatch(%q) = %d/%s, want %d/%s",
				tt.text, ext.National.Rank, ext.National.Precision, tt.rank, tt.precision)
		}
	}
}

func TestDispatchRangePrecisionDefaultsEnd(t *testing.T) {
	ext, _ := Dispatch([]Fragment{frag(2, "#13,500 in National Rankings")})
	if ext.National == nil || ext.National.RankEnd == nil {
		t.Fatal("expected a defaulted range end")
	}
	if *ext.National.RankEnd != 17901 {
		t.Errorf("rank end = %d, want 17901", *ext.National.RankEnd)
	}
}

func TestDispatchLooseFallbacks(t *testing.T) {
	ext, _ := Dispatch([]Fragment{frag(2, "#730 among National charter programs")})
	if ext.National == nil {
		t.Fatal("expected loose national match")
	}
	if ext.National.Confidence != 85 {
		t.Errorf("confidence = %.0f, want 85", ext.National.Confidence)
	}

	ext, _ = Dispatch([]Fragment{frag(2, "#12 Colorado")})
	if ext.State == nil {
		t.Fatal("expected loose state match")
	}
	if ext.State.Rank != 12 || ext.State.Confidence != 85 {
		t.Errorf("state = %d at %.0f, want 12 at 85", ext.State.Rank, ext.State.Confidence)
	}
	if ext.State.Precision != schema.StatePrecisionEstimated {
		t.Errorf("precision = %s, want estimated", ext.State.Precision)
	}
}

func TestDispatchLooseStateSkipsNational(t *testing.T) {
	ext, _ := Dispatch([]Fragment{frag(2, "#730 National")})
	if ext.State != nil {
		t.Errorf("trailing National must not bind a state rank: %+v", ext.State)
	}
}

func TestDispatchRejectsOversizedRank(t *testing.T) {
	ext, _ := Dispatch([]Fragment{frag(1, "ranked #99,999")})
	if ext.National != nil {
		t.Errorf("rank above 50,000 should be rejected, got %d", ext.National.Rank)
	}
}

func TestDispatchEmptyInput(t *testing.T) {
	ext, errs := Dispatch(nil)
	if ext.National != nil || ext.State != nil || len(errs) != 0 {
		t.Errorf("Dispatch(nil) = %+v, %v; want empty", ext, errs)
	}
}

func TestDispatchIdempotent(t *testing.T) {
	frags := []Fragment{
		frag(1, "ranked #1,102"),
		frag(2, "#1,102 in National Rankings #10 in South Carolina High Schools"),
	}
	first, _ := Dispatch(frags)
	second, _ := Dispatch(frags)
	if *first.National != *second.National {
		t.Errorf("national differs across runs: %+v vs %+v", first.National, second.National)
	}
	if (first.State == nil) != (second.State == nil) {
		t.Fatalf("state presence differs across runs")
	}
	if first.State != nil && *first.State != *second.State {
		t.Errorf("state differs across runs: %+v vs %+v", first.State, second.State)
	}
}
