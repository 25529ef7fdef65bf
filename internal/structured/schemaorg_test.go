package structured

import (
	"testing"

	"github.com/jshin42/highschooltrends/internal/htmldoc"
	"github.com/jshin42/highschooltrends/internal/schema"
)

func parseHTML(t *testing.T, html string) *htmldoc.Document {
	t.Helper()
	return htmldoc.Parse([]byte(html))
}

func TestExtractHighSchoolBlock(t *testing.T) {
	doc := parseHTML(t, `<html><head>
	<script type="application/ld+json">
	{
		"@type": "HighSchool",
		"name": "Lincoln High School",
		"telephone": "(803) 555-1234",
		"description": "Lincoln High School is ranked #397 in National Rankings.",
		"location": {
			"address": {
				"streetAddress": "100 Main St",
				"addressLocality": "Columbia",
				"addressRegion": "SC",
				"postalCode": "29201"
			}
		}
	}
	</script>
	</head><body></body></html>`)

	data, errs := Extract(doc)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if data == nil || !data.Found() {
		t.Fatal("expected a lifted entity")
	}
	if data.Name != "Lincoln High School" {
		t.Errorf("name = %q", data.Name)
	}
	if data.Telephone != "(803) 555-1234" {
		t.Errorf("telephone = %q", data.Telephone)
	}
	if data.Street != "100 Main St" || data.City != "Columbia" || data.State != "SC" || data.Zip != "29201" {
		t.Errorf("address = %q %q %q %q", data.Street, data.City, data.State, data.Zip)
	}
	if data.Description == "" {
		t.Error("description should be carried for the dispatcher")
	}
}

func TestExtractTypeList(t *testing.T) {
	doc := parseHTML(t, `<html><head><script type="application/ld+json">
	{"@type": ["EducationalOrganization", "HighSchool"], "name": "Roosevelt High"}
	</script></head><body></body></html>`)
	data, _ := Extract(doc)
	if data == nil || data.Name != "Roosevelt High" {
		t.Fatalf("type list entity not lifted: %+v", data)
	}
}

func TestExtractGraphAndTopLevelAddress(t *testing.T) {
	doc := parseHTML(t, `<html><head><script type="application/ld+json">
	{"@graph": [
		{"@type": "WebPage", "name": "profile"},
		{"@type": "HighSchool", "name": "Jefferson Senior High",
		 "address": {"streetAddress": "9 Elm Ave", "addressLocality": "Austin", "addressRegion": "TX", "postalCode": "73301"}}
	]}
	</script></head><body></body></html>`)
	data, _ := Extract(doc)
	if data == nil {
		t.Fatal("expected graph member to be lifted")
	}
	if data.Name != "Jefferson Senior High" || data.City != "Austin" {
		t.Errorf("lifted = %+v", data)
	}
}

func TestExtractSkipsNonSchoolEntities(t *testing.T) {
	doc := parseHTML(t, `<html><head><script type="application/ld+json">
	{"@type": "NewsArticle", "name": "Local rankings roundup"}
	</script></head><body></body></html>`)
	data, errs := Extract(doc)
	if data != nil {
		t.Fatalf("non-school entity lifted: %+v", data)
	}
	if len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestExtractMalformedBlockFallsThrough(t *testing.T) {
	doc := parseHTML(t, `<html><head>
	<script type="application/ld+json">{not valid json</script>
	<script type="application/ld+json">{"@type": "HighSchool", "name": "Washington High School"}</script>
	</head><body></body></html>`)
	data, errs := Extract(doc)
	if data == nil || data.Name != "Washington High School" {
		t.Fatalf("second block not lifted: %+v", data)
	}
	if len(errs) != 1 || errs[0].Kind != schema.ErrParse {
		t.Errorf("errs = %v, want one parse error", errs)
	}
	if errs[0].Method != schema.MethodStructuredData {
		t.Errorf("method = %s", errs[0].Method)
	}
}

func TestExtractNoBlocks(t *testing.T) {
	data, errs := Extract(parseHTML(t, `<html><body><p>plain page</p></body></html>`))
	if data != nil || len(errs) != 0 {
		t.Errorf("Extract = %+v, %v; want nil, none", data, errs)
	}
}
