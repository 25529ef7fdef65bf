package selector

import (
	"testing"

	"github.com/jshin42/highschooltrends/internal/htmldoc"
	"github.com/jshin42/highschooltrends/internal/schema"
)

func testExtractor() *Extractor {
	return New(map[string][]string{
		"name":       {"h1.profile-school-name", "h1[data-testid='school-name']", "header h1"},
		"zip_code":   {".school-address .zip", "address .zip"},
		"phone":      {".school-contact .phone", "a[href^='tel:']"},
		"website":    {"a.school-site"},
		"enrollment": {".enrollment-count"},
		"grades":     {".school-grades"},
		"student_teacher_ratio": {".student-teacher-ratio"},
		"graduation_rate":       {".graduation-rate"},
		"white_pct":             {".demographics .white"},
	})
}

func TestExtractFirstSelectorWins(t *testing.T) {
	doc := htmldoc.Parse([]byte(`<html><body>
		<h1 class="profile-school-name">Lincoln High School</h1>
		<header><h1>Wrong Name From Header</h1></header>
	</body></html>`))
	res, errs, ok := testExtractor().Extract(doc, "name")
	if !ok {
		t.Fatalf("expected extraction, errs=%v", errs)
	}
	if res.Text != "Lincoln High School" {
		t.Errorf("value = %q", res.Text)
	}
	if res.Confidence != 95 {
		t.Errorf("confidence = %.0f, want 95 (first selector, strict)", res.Confidence)
	}
}

func TestExtractFallsThroughToLastSelector(t *testing.T) {
	doc := htmldoc.Parse([]byte(`<html><body>
		<header><h1>Jefferson Senior High</h1></header>
	</body></html>`))
	res, _, ok := testExtractor().Extract(doc, "name")
	if !ok {
		t.Fatal("expected extraction from last selector")
	}
	if res.Confidence != 70 {
		t.Errorf("confidence = %.0f, want 70 (last selector)", res.Confidence)
	}
	if res.Selector != "header h1" {
		t.Errorf("selector = %q", res.Selector)
	}
}

func TestExtractInvalidValueFallsThrough(t *testing.T) {
	// First selector matches but yields an error-page phrase; the second
	// selector carries the real name.
	doc := htmldoc.Parse([]byte(`<html><body>
		<h1 class="profile-school-name">404 Page Not Found</h1>
		<h1 data-testid="school-name">Roosevelt High School</h1>
	</body></html>`))
	res, errs, ok := testExtractor().Extract(doc, "name")
	if !ok {
		t.Fatal("expected fallback extraction")
	}
	if res.Text != "Roosevelt High School" {
		t.Errorf("value = %q", res.Text)
	}
	if res.Confidence != 85 {
		t.Errorf("confidence = %.0f, want 85 (middle selector)", res.Confidence)
	}
	if len(errs) == 0 || errs[0].Kind != schema.ErrValidation {
		t.Errorf("expected a validation error for the blacklisted value, got %v", errs)
	}
}

func TestExtractSelectorMiss(t *testing.T) {
	doc := htmldoc.Parse([]byte(`<html><body><p>nothing relevant</p></body></html>`))
	_, errs, ok := testExtractor().Extract(doc, "name")
	if ok {
		t.Fatal("expected miss")
	}
	if len(errs) != 1 || errs[0].Kind != schema.ErrSelectorMiss {
		t.Fatalf("errs = %v, want one selector_miss", errs)
	}
}

func TestExtractZipStrictAndLoose(t *testing.T) {
	doc := htmldoc.Parse([]byte(`<html><body>
		<div class="school-address"><span class="zip">29201-1234</span></div>
	</body></html>`))
	res, _, ok := testExtractor().Extract(doc, "zip_code")
	if !ok || res.Text != "29201-1234" {
		t.Fatalf("strict zip: %v %q", ok, res.Text)
	}
	if res.Confidence != 95 {
		t.Errorf("strict zip confidence = %.0f, want 95", res.Confidence)
	}

	doc = htmldoc.Parse([]byte(`<html><body>
		<div class="school-address"><span class="zip">ZIP: 29201 (Richland)</span></div>
	</body></html>`))
	res, _, ok = testExtractor().Extract(doc, "zip_code")
	if !ok || res.Text != "29201" {
		t.Fatalf("loose zip: %v %q", ok, res.Text)
	}
	if res.Confidence != 95*0.6 {
		t.Errorf("loose zip confidence = %.1f, want %.1f", res.Confidence, 95*0.6)
	}
}

func TestExtractPhoneFromTelHref(t *testing.T) {
	doc := htmldoc.Parse([]byte(`<html><body>
		<a href="tel:+18035551234">Call us</a>
	</body></html>`))
	res, _, ok := testExtractor().Extract(doc, "phone")
	if !ok {
		t.Fatal("expected phone extraction")
	}
	if res.Text != "(803) 555-1234" {
		t.Errorf("phone = %q, want (803) 555-1234", res.Text)
	}
}

func TestExtractWebsiteSchemePrefixed(t *testing.T) {
	doc := htmldoc.Parse([]byte(`<html><body>
		<a class="school-site" href="lincolnhigh.example.org">Site</a>
	</body></html>`))
	res, _, ok := testExtractor().Extract(doc, "website")
	if !ok {
		t.Fatal("expected website extraction")
	}
	if res.Text != "https://lincolnhigh.example.org" {
		t.Errorf("website = %q", res.Text)
	}
	if res.Confidence != 95*0.6 {
		t.Errorf("confidence = %.1f, want loose factor applied", res.Confidence)
	}
}

func TestExtractNumericFields(t *testing.T) {
	doc := htmldoc.Parse([]byte(`<html><body>
		<span class="enrollment-count">1,847</span>
		<span class="student-teacher-ratio">16:1</span>
		<span class="graduation-rate">92%</span>
		<div class="demographics"><span class="white">0.41</span></div>
		<span class="school-grades">9-12</span>
	</body></html>`))
	ex := testExtractor()

	res, _, ok := ex.Extract(doc, "enrollment")
	if !ok || res.Number == nil || *res.Number != 1847 {
		t.Errorf("enrollment = %+v, %v", res, ok)
	}

	res, _, ok = ex.Extract(doc, "student_teacher_ratio")
	if !ok || res.Text != "16:1" {
		t.Errorf("ratio = %+v, %v", res, ok)
	}

	res, _, ok = ex.Extract(doc, "graduation_rate")
	if !ok || res.Number == nil || *res.Number != 92 {
		t.Errorf("graduation = %+v, %v", res, ok)
	}

	// Demographics accept fraction-scaled decimals at the loose factor.
	res, _, ok = ex.Extract(doc, "white_pct")
	if !ok || res.Number == nil || *res.Number != 41 {
		t.Errorf("white_pct = %+v, %v", res, ok)
	}
	if res.Confidence != 95*0.6 {
		t.Errorf("scaled decimal confidence = %.1f, want loose", res.Confidence)
	}

	res, _, ok = ex.Extract(doc, "grades")
	if !ok || res.Text != "9-12" {
		t.Errorf("grades = %+v, %v", res, ok)
	}
}

func TestRankingFragmentsKeepPriorities(t *testing.T) {
	doc := htmldoc.Parse([]byte(`<html><body>
		<div id="rankings-section"><p class="rank-statement">ranked #397</p> plus context</div>
	</body></html>`))
	frags := RankingFragments(doc, []string{
		"#rankings-section .rank-statement",
		"#rankings-section",
		".hero-ranking",
	})
	if len(frags) != 2 {
		t.Fatalf("fragments = %d, want 2", len(frags))
	}
	if frags[0].Priority != 1 || frags[0].Text != "ranked #397" {
		t.Errorf("authoritative fragment = %+v", frags[0])
	}
	if frags[1].Priority != 2 {
		t.Errorf("second fragment priority = %d, want 2", frags[1].Priority)
	}
}

func TestRankingFragmentsMissingAuthoritative(t *testing.T) {
	doc := htmldoc.Parse([]byte(`<html><body>
		<div class="hero-ranking">#13,427-17,901</div>
	</body></html>`))
	frags := RankingFragments(doc, []string{
		"#rankings-section .rank-statement",
		"#rankings-section",
		".hero-ranking",
	})
	if len(frags) != 1 {
		t.Fatalf("fragments = %d, want 1", len(frags))
	}
	if frags[0].Priority != 3 {
		t.Errorf("priority = %d, want 3 (authoritative slot stays empty)", frags[0].Priority)
	}
}
